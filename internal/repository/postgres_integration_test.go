//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcPostgres.Run(ctx, "postgres:15-alpine",
		tcPostgres.WithDatabase("royal_elegance_test"),
		tcPostgres.WithUsername("test_user"),
		tcPostgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func TestPostgres_BookingAndPaymentFlow(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	room := createTestRoom(t, db, "301", models.RoomStatusAvailable)
	booking := createTestBooking(t, db, "BK-PG-1", room.ID, day(1), day(4), models.BookingStatusPending)

	overlap, err := NewBookingRepository(db).ExistsOverlap(ctx, room.ID, day(2), day(3), 0)
	require.NoError(t, err)
	assert.True(t, overlap)

	payments := NewPaymentRepository(db)
	p := newTestPayment("ITE_PG_1", models.PaymentStatusPending, time.Now().Add(-time.Minute))
	p.BookingID = &booking.ID
	require.NoError(t, payments.Create(ctx, p))

	err = db.Transaction(func(tx *gorm.DB) error {
		locked, err := payments.WithTx(tx).GetByPaymentNoForUpdate(ctx, "ITE_PG_1")
		if err != nil {
			return err
		}
		locked.Status = models.PaymentStatusSuccess
		return payments.WithTx(tx).Update(ctx, locked)
	})
	require.NoError(t, err)

	expired, err := payments.ListExpiredPending(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, expired)
}
