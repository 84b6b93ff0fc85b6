package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-admin/internal/middleware"
	"storefront-admin/internal/pricing"
	"storefront-admin/internal/service"
	"storefront-admin/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// --- mocks ---

type mockPerms struct{ mock.Mock }

func (m *mockPerms) GetPermissionsByRoleName(ctx context.Context, role string) ([]string, error) {
	args := m.Called(ctx, role)
	codes, _ := args.Get(0).([]string)
	return codes, args.Error(1)
}

type mockQuoteService struct{ mock.Mock }

func (m *mockQuoteService) Quote(ctx context.Context, channelID string, req service.QuoteRequest) (service.QuoteResponse, error) {
	args := m.Called(ctx, channelID, req)
	return args.Get(0).(service.QuoteResponse), args.Error(1)
}

func (m *mockQuoteService) MatchRules(ctx context.Context, channelID string, req service.MatchRequest) (service.MatchResponse, error) {
	args := m.Called(ctx, channelID, req)
	return args.Get(0).(service.MatchResponse), args.Error(1)
}

type mockOrderService struct{ mock.Mock }

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest, userID string) (service.OrderResponse, error) {
	args := m.Called(ctx, req, userID)
	return args.Get(0).(service.OrderResponse), args.Error(1)
}

func (m *mockOrderService) GetOrder(ctx context.Context, id string) (service.OrderResponse, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(service.OrderResponse), args.Error(1)
}

func (m *mockOrderService) GetOrders(ctx context.Context, filter service.OrderListFilter, page, limit int) ([]service.OrderResponse, int64, error) {
	args := m.Called(ctx, filter, page, limit)
	orders, _ := args.Get(0).([]service.OrderResponse)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *mockOrderService) UpdateOrderStatus(ctx context.Context, id string, req service.UpdateOrderStatusRequest, userID string) (service.OrderResponse, error) {
	args := m.Called(ctx, id, req, userID)
	return args.Get(0).(service.OrderResponse), args.Error(1)
}

type mockExportService struct{ mock.Mock }

func (m *mockExportService) ExportOrders(ctx context.Context, filter service.OrderListFilter) ([]byte, error) {
	args := m.Called(ctx, filter)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type mockReceiptService struct{ mock.Mock }

func (m *mockReceiptService) OrderReceipt(ctx context.Context, orderID string) ([]byte, string, error) {
	args := m.Called(ctx, orderID)
	data, _ := args.Get(0).([]byte)
	return data, args.String(1), args.Error(2)
}

type mockChannelService struct{ mock.Mock }

func (m *mockChannelService) CreateChannel(ctx context.Context, req service.CreateChannelRequest, userID string) (service.ChannelResponse, error) {
	args := m.Called(ctx, req, userID)
	return args.Get(0).(service.ChannelResponse), args.Error(1)
}

func (m *mockChannelService) UpdateChannel(ctx context.Context, id string, req service.UpdateChannelRequest, userID string) (service.ChannelResponse, error) {
	args := m.Called(ctx, id, req, userID)
	return args.Get(0).(service.ChannelResponse), args.Error(1)
}

func (m *mockChannelService) DeleteChannel(ctx context.Context, id string, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *mockChannelService) GetChannel(ctx context.Context, id string) (service.ChannelResponse, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(service.ChannelResponse), args.Error(1)
}

func (m *mockChannelService) GetChannels(ctx context.Context, search string, page, limit int) ([]service.ChannelResponse, int64, error) {
	args := m.Called(ctx, search, page, limit)
	channels, _ := args.Get(0).([]service.ChannelResponse)
	return channels, args.Get(1).(int64), args.Error(2)
}

// --- helpers ---

func newTestAuth(perms middleware.PermissionLookup) *middleware.Auth {
	log, _ := test.NewNullLogger()
	return middleware.NewAuth(testSecret, perms, false, log)
}

func bearer(t *testing.T, sub, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func doJSON(r http.Handler, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var res response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

// --- tests ---

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", service.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("channel %w", service.ErrNotFound), http.StatusNotFound},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrInvalidTransition, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", pricing.ErrAmbiguousRules), http.StatusConflict},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestQuoteHandler(t *testing.T) {
	quotes := &mockQuoteService{}
	r := gin.New()
	NewQuoteHandler(quotes, newTestAuth(&mockPerms{})).RegisterRoutes(r.Group(""))
	admin := bearer(t, "u-1", "admin")

	body := service.QuoteRequest{
		CountryCode: "US",
		Lines:       []service.QuoteLineRequest{{Description: "Gift wrap", Quantity: 1, UnitPrice: "15.50"}},
	}

	t.Run("ok", func(t *testing.T) {
		quotes.On("Quote", mock.Anything, "ch-1", body).
			Return(service.QuoteResponse{Total: "17.05", Formatted: service.FormattedTotals{Total: "$17.05"}}, nil).Once()

		w := doJSON(r, http.MethodPost, "/api/channels/ch-1/quote", admin, body)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":"17.05"`)
		assert.Contains(t, w.Body.String(), `"$17.05"`)
	})

	t.Run("ambiguous rules conflict", func(t *testing.T) {
		quotes.On("Quote", mock.Anything, "ch-2", body).
			Return(service.QuoteResponse{}, fmt.Errorf("category clothing: %w", pricing.ErrAmbiguousRules)).Once()

		w := doJSON(r, http.MethodPost, "/api/channels/ch-2/quote", admin, body)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "error", decode(t, w).Status)
	})

	t.Run("empty cart rejected by binding", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/channels/ch-1/quote", admin, service.QuoteRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w).Error, "Invalid request payload")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/channels/ch-1/quote", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	quotes.AssertExpectations(t)
}

func TestOrderHandler(t *testing.T) {
	orders := &mockOrderService{}
	exports := &mockExportService{}
	receipts := &mockReceiptService{}
	perms := &mockPerms{}
	perms.On("GetPermissionsByRoleName", mock.Anything, "staff").Return([]string{"orders.read", "orders.write"}, nil)

	r := gin.New()
	NewOrderHandler(orders, exports, receipts, newTestAuth(perms), nil).RegisterRoutes(r.Group(""))
	staff := bearer(t, "u-7", "staff")
	admin := bearer(t, "u-1", "admin")

	t.Run("create", func(t *testing.T) {
		req := service.CreateOrderRequest{
			ChannelID: "ch-1",
			QuoteRequest: service.QuoteRequest{
				Lines: []service.QuoteLineRequest{{VariantID: "v-1", Quantity: 2}},
			},
		}
		orders.On("CreateOrder", mock.Anything, req, "u-7").
			Return(service.OrderResponse{ID: "o-1", OrderNumber: "SO-1", Status: "pending"}, nil).Once()

		w := doJSON(r, http.MethodPost, "/api/orders", staff, req)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"order_number":"SO-1"`)
	})

	t.Run("list carries filters and meta", func(t *testing.T) {
		filter := service.OrderListFilter{ChannelID: "ch-1", Status: "paid"}
		orders.On("GetOrders", mock.Anything, filter, 2, 5).
			Return([]service.OrderResponse{{ID: "o-1"}}, int64(11), nil).Once()

		w := doJSON(r, http.MethodGet, "/api/orders?channel_id=ch-1&status=paid&page=2&limit=5", staff, nil)
		require.Equal(t, http.StatusOK, w.Code)
		res := decode(t, w)
		require.NotNil(t, res.Meta)
		assert.Equal(t, int64(11), res.Meta.Total)
		assert.Equal(t, int64(3), res.Meta.TotalPages)
	})

	t.Run("invalid transition", func(t *testing.T) {
		req := service.UpdateOrderStatusRequest{Status: "shipped"}
		orders.On("UpdateOrderStatus", mock.Anything, "o-1", req, "u-7").
			Return(service.OrderResponse{}, fmt.Errorf("%w: pending -> shipped", service.ErrInvalidTransition)).Once()

		w := doJSON(r, http.MethodPatch, "/api/orders/o-1/status", staff, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown status rejected by binding", func(t *testing.T) {
		w := doJSON(r, http.MethodPatch, "/api/orders/o-1/status", staff, gin.H{"status": "lost"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("export needs permission", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/api/orders/export", staff, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("export", func(t *testing.T) {
		exports.On("ExportOrders", mock.Anything, service.OrderListFilter{From: "2024-01-01"}).
			Return([]byte("PK\x03\x04"), nil).Once()

		w := doJSON(r, http.MethodGet, "/api/orders/export?from=2024-01-01", admin, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, mimeXLSX, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	})

	t.Run("receipt", func(t *testing.T) {
		receipts.On("OrderReceipt", mock.Anything, "o-1").Return([]byte("%PDF-1.3"), "receipt-SO-1.pdf", nil).Once()

		w := doJSON(r, http.MethodGet, "/api/orders/o-1/receipt", staff, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, mimePDF, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "receipt-SO-1.pdf")
	})

	t.Run("missing order", func(t *testing.T) {
		orders.On("GetOrder", mock.Anything, "nope").Return(service.OrderResponse{}, fmt.Errorf("order %w", service.ErrNotFound)).Once()

		w := doJSON(r, http.MethodGet, "/api/orders/nope", staff, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "order not found", decode(t, w).Error)
	})

	orders.AssertExpectations(t)
	exports.AssertExpectations(t)
	receipts.AssertExpectations(t)
}

func TestChannelHandlerHidesInternalErrors(t *testing.T) {
	channels := &mockChannelService{}
	channels.On("GetChannels", mock.Anything, "web", 1, 20).
		Return(nil, int64(0), errors.New("pq: relation \"channels\" does not exist"))

	r := gin.New()
	NewChannelHandler(channels, newTestAuth(&mockPerms{})).RegisterRoutes(r.Group(""))

	w := doJSON(r, http.MethodGet, "/api/channels?search=web", bearer(t, "u-1", "admin"), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w).Error)
}

func TestChannelHandlerCreate(t *testing.T) {
	channels := &mockChannelService{}
	req := service.CreateChannelRequest{Code: "us-web", Name: "US Web", CountryCode: "US", CurrencyCode: "USD", DefaultTaxRate: "0.10"}
	channels.On("CreateChannel", mock.Anything, req, "u-1").
		Return(service.ChannelResponse{ID: "ch-1", Code: "us-web"}, nil)

	r := gin.New()
	NewChannelHandler(channels, newTestAuth(&mockPerms{})).RegisterRoutes(r.Group(""))

	w := doJSON(r, http.MethodPost, "/api/channels", bearer(t, "u-1", "admin"), req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"us-web"`)
}

func TestHealthHandler(t *testing.T) {
	healthy := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") })

	t.Run("ready", func(t *testing.T) {
		r := gin.New()
		NewHealthHandler(map[string]Pinger{"database": healthy}).RegisterRoutes(r.Group(""))

		assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/livez", "", nil).Code)
		w := doJSON(r, http.MethodGet, "/readyz", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"database":"ok"`)
	})

	t.Run("unavailable", func(t *testing.T) {
		r := gin.New()
		NewHealthHandler(map[string]Pinger{"database": healthy, "redis": down}).RegisterRoutes(r.Group(""))

		assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/health", "", nil).Code)
		w := doJSON(r, http.MethodGet, "/readyz", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")
	})
}
