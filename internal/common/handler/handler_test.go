package handler

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/errors"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/response"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/middleware"
	"github.com/chensakkolmlbb2025/royal-elegance/pkg/khqr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// 辅助函数：创建测试上下文
func createTestContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// ==================== 错误处理测试 ====================

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"应用错误", errors.ErrBookingNotFound, http.StatusOK, 8000},
		{"包装的应用错误", fmt.Errorf("svc: %w", errors.ErrRoomNotAvailable), http.StatusOK, 8004},
		{"KHQR 错误", &khqr.ChecksumMismatchError{Expected: "ABCD", Actual: "DCBA"}, http.StatusOK, 7002},
		{"普通错误", stderrors.New("db down"), http.StatusInternalServerError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := createTestContext("/")
			assert.True(t, HandleError(c, tt.err))
			assert.Equal(t, tt.wantStatus, w.Code)
			resp := parseResponse(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestHandleError_Nil(t *testing.T) {
	c, w := createTestContext("/")
	assert.False(t, HandleError(c, nil))
	assert.Equal(t, 0, w.Body.Len())
}

func TestHandleError_HidesInternalDetail(t *testing.T) {
	c, w := createTestContext("/")
	HandleError(c, stderrors.New("password=secret"))
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestMustSucceed(t *testing.T) {
	t.Run("成功", func(t *testing.T) {
		c, w := createTestContext("/")
		MustSucceed(c, nil, gin.H{"booking_no": "BK-1"})
		resp := parseResponse(t, w)
		assert.Equal(t, 0, resp.Code)
		assert.Equal(t, map[string]interface{}{"booking_no": "BK-1"}, resp.Data)
	})

	t.Run("失败", func(t *testing.T) {
		c, w := createTestContext("/")
		MustSucceed(c, errors.ErrPaymentNotFound, gin.H{"ignored": true})
		resp := parseResponse(t, w)
		assert.Equal(t, 6000, resp.Code)
		assert.Nil(t, resp.Data)
	})
}

func TestMustSucceedPage(t *testing.T) {
	c, w := createTestContext("/")
	MustSucceedPage(c, nil, []string{"a"}, 1, 1, 10)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

// ==================== 用户认证测试 ====================

func TestRequireUserID(t *testing.T) {
	t.Run("未登录", func(t *testing.T) {
		c, w := createTestContext("/")
		_, ok := RequireUserID(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("已登录", func(t *testing.T) {
		c, _ := createTestContext("/")
		c.Set(middleware.ContextKeyUserID, "guest-9")
		userID, ok := RequireUserID(c)
		assert.True(t, ok)
		assert.Equal(t, "guest-9", userID)
		assert.Equal(t, "guest-9", GetOptionalUserID(c))
	})
}

// ==================== 参数解析测试 ====================

func TestParseParamID(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"12", true},
		{"0", false},
		{"-3", false},
		{"abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			c, w := createTestContext("/")
			c.Params = gin.Params{{Key: "id", Value: tt.value}}
			id, ok := ParseParamID(c, "id", "房间")
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, int64(12), id)
			} else {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}

func TestParseQueryID(t *testing.T) {
	c, _ := createTestContext("/")
	id, ok := ParseQueryID(c, "room_type_id", "房型")
	assert.True(t, ok)
	assert.Nil(t, id)

	c, _ = createTestContext("/?room_type_id=3")
	id, ok = ParseQueryID(c, "room_type_id", "房型")
	require.True(t, ok)
	assert.Equal(t, int64(3), *id)

	c, w := createTestContext("/?room_type_id=x")
	_, ok = ParseQueryID(c, "room_type_id", "房型")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireParam(t *testing.T) {
	c, w := createTestContext("/")
	_, ok := RequireParam(c, "booking_no", "预订号")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ==================== 时间解析测试 ====================

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"RFC3339", "2025-03-01T14:00:00Z", time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)},
		{"日期时间", "2025-03-01 14:00:00", time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)},
		{"纯日期", "2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateTime(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
		})
	}

	_, err := ParseDateTime("03/01/2025")
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
}

func TestParseStayRange(t *testing.T) {
	t.Run("正常", func(t *testing.T) {
		c, _ := createTestContext("/?check_in=2025-03-01&check_out=2025-03-03")
		in, out, ok := ParseStayRange(c)
		require.True(t, ok)
		assert.Equal(t, 48*time.Hour, out.Sub(in))
	})

	t.Run("缺少参数", func(t *testing.T) {
		c, w := createTestContext("/?check_in=2025-03-01")
		_, _, ok := ParseStayRange(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("退房早于入住", func(t *testing.T) {
		c, w := createTestContext("/?check_in=2025-03-03&check_out=2025-03-01")
		_, _, ok := ParseStayRange(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("格式错误", func(t *testing.T) {
		c, w := createTestContext("/?check_in=tomorrow&check_out=2025-03-01")
		_, _, ok := ParseStayRange(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// ==================== 分页测试 ====================

func TestBindPagination(t *testing.T) {
	c, _ := createTestContext("/?page=2&page_size=500")
	p := BindPagination(c)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 100, p.PageSize)

	c, _ = createTestContext("/")
	p = BindPagination(c)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.PageSize)
}
