package khqr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
	paymentService "github.com/chensakkolmlbb2025/royal-elegance/internal/service/payment"
	"github.com/chensakkolmlbb2025/royal-elegance/pkg/stripepay"
)

type fakeCards struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeCards) CreateIntent(_ context.Context, req *stripepay.IntentRequest) (*stripepay.Intent, error) {
	f.mu.Lock()
	f.keys = append(f.keys, stripepay.IdempotencyKey(req.BookingID))
	f.mu.Unlock()
	return &stripepay.Intent{
		ID:           fmt.Sprintf("pi_%d", req.BookingID),
		ClientSecret: fmt.Sprintf("pi_%d_secret_x", req.BookingID),
		Status:       "requires_payment_method",
		Currency:     strings.ToLower(req.Currency),
	}, nil
}

func (f *fakeCards) Ping(context.Context) error { return nil }

func insertBooking(t *testing.T, db *gorm.DB, bookingNo string) *models.Booking {
	t.Helper()
	roomType := &models.RoomType{Name: "Suite", Slug: "suite-" + bookingNo, BasePrice: decimal.NewFromInt(60), MaxOccupancy: 2}
	require.NoError(t, db.Create(roomType).Error)
	room := &models.Room{RoomNo: "R-" + bookingNo, RoomTypeID: roomType.ID, BasePrice: decimal.NewFromInt(60), Status: models.RoomStatusAvailable}
	require.NoError(t, db.Create(room).Error)

	checkIn := time.Now().AddDate(0, 0, 7).Truncate(24 * time.Hour)
	b := &models.Booking{
		BookingNo:     bookingNo,
		UserID:        "user-1",
		RoomID:        room.ID,
		GuestName:     "Sok Dara",
		Guests:        1,
		CheckIn:       checkIn,
		CheckOut:      checkIn.AddDate(0, 0, 2),
		Nights:        2,
		RoomPrice:     decimal.NewFromInt(120),
		TotalAmount:   decimal.RequireFromString("120.50"),
		Currency:      "USD",
		Status:        models.BookingStatusPending,
		PaymentStatus: models.BookingPaymentPending,
	}
	require.NoError(t, db.Create(b).Error)
	return b
}

// ==================== 银行卡支付测试 ====================

func TestHandler_CreateCardIntent(t *testing.T) {
	cards := &fakeCards{}
	r, db := setupRouterWithDB(t, "", paymentService.WithCardGateway(cards, nil))
	b := insertBooking(t, db, "BK-CARD-1")

	body := map[string]interface{}{"booking_no": b.BookingNo, "customer_email": "dara@example.com"}
	_, resp := doJSON(t, r, http.MethodPost, "/api/v1/payments/intents", body, nil)
	require.Equal(t, 0, resp.Code, resp.Message)

	var intent paymentService.CardIntentResponse
	require.NoError(t, json.Unmarshal(resp.Data, &intent))
	assert.Equal(t, fmt.Sprintf("pi_%d", b.ID), intent.TransactionID)
	assert.Equal(t, fmt.Sprintf("pi_%d_secret_x", b.ID), intent.ClientSecret)
	assert.Equal(t, "120.5", intent.Amount.String())
	assert.Equal(t, "USD", intent.Currency)
	assert.False(t, intent.Reused)

	t.Run("重复请求复用同一笔支付", func(t *testing.T) {
		_, resp := doJSON(t, r, http.MethodPost, "/api/v1/payments/intents", body, nil)
		require.Equal(t, 0, resp.Code)
		var again paymentService.CardIntentResponse
		require.NoError(t, json.Unmarshal(resp.Data, &again))
		assert.Equal(t, intent.TransactionID, again.TransactionID)
		assert.True(t, again.Reused)

		var count int64
		require.NoError(t, db.Model(&models.Payment{}).Where("booking_no = ?", b.BookingNo).Count(&count).Error)
		assert.Equal(t, int64(1), count)
		key := stripepay.IdempotencyKey(b.ID)
		assert.Equal(t, []string{key, key}, cards.keys)
	})

	t.Run("缺少预订号", func(t *testing.T) {
		w, _ := doJSON(t, r, http.MethodPost, "/api/v1/payments/intents", map[string]interface{}{}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("预订不存在", func(t *testing.T) {
		_, resp := doJSON(t, r, http.MethodPost, "/api/v1/payments/intents", map[string]interface{}{"booking_no": "BK-NONE"}, nil)
		assert.Equal(t, 8000, resp.Code)
	})
}

func TestHandler_CreateCardIntent_NotConfigured(t *testing.T) {
	r, db := setupRouterWithDB(t, "")
	b := insertBooking(t, db, "BK-CARD-2")

	_, resp := doJSON(t, r, http.MethodPost, "/api/v1/payments/intents", map[string]interface{}{"booking_no": b.BookingNo}, nil)
	assert.Equal(t, 6006, resp.Code)
}
