package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/models"
)

// ==================== RoomRepository 测试 ====================

func TestRoomRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	r1 := createTestRoom(t, db, "101", models.RoomStatusAvailable)
	createTestRoom(t, db, "102", models.RoomStatusMaintenance)

	t.Run("按ID含房型", func(t *testing.T) {
		room, err := repo.GetByID(ctx, r1.ID)
		require.NoError(t, err)
		require.NotNil(t, room.RoomType)
		assert.Equal(t, "Deluxe 101", room.RoomType.Name)
	})

	t.Run("按房号", func(t *testing.T) {
		room, err := repo.GetByRoomNo(ctx, "102")
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusMaintenance, room.Status)
	})

	t.Run("列表过滤", func(t *testing.T) {
		all, err := repo.List(ctx, 0, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		available, err := repo.List(ctx, 0, models.RoomStatusAvailable)
		require.NoError(t, err)
		require.Len(t, available, 1)
		assert.Equal(t, "101", available[0].RoomNo)

		byType, err := repo.List(ctx, r1.RoomTypeID, "")
		require.NoError(t, err)
		assert.Len(t, byType, 1)
	})

	t.Run("更新状态", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, r1.ID, models.RoomStatusOccupied))
		room, err := repo.GetByID(ctx, r1.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusOccupied, room.Status)
	})
}
