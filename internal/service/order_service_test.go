package service

import (
	"context"
	"strings"
	"testing"

	"storefront-admin/internal/events"
	"storefront-admin/internal/model"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	*quoteFixture
	orders    *fakeOrderRepo
	audits    *fakeAuditRepo
	publisher *recordingPublisher
	svc       OrderService
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &orderFixture{
		quoteFixture: newQuoteFixture(t),
		orders:       newFakeOrderRepo(),
		audits:       &fakeAuditRepo{},
		publisher:    &recordingPublisher{},
	}
	audit := NewAuditService(f.audits, testLogger())
	f.svc = NewOrderService(f.orders, fakeTx{}, f.quoter, node, audit, f.publisher, nil, testLogger())
	return f
}

func (f *orderFixture) place(t *testing.T) OrderResponse {
	t.Helper()
	res, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
		ChannelID:    f.channel.ID.String(),
		QuoteRequest: f.cart("CA"),
		Note:         "  leave at door ",
	}, uuid.NewString())
	require.NoError(t, err)
	return res
}

func TestCreateOrderPersistsQuotedTotals(t *testing.T) {
	f := newOrderFixture(t)
	res := f.place(t)

	assert.True(t, strings.HasPrefix(res.OrderNumber, "SO-"))
	assert.Equal(t, model.OrderStatusPending, res.Status)
	assert.Equal(t, "55.50", res.Subtotal)
	assert.Equal(t, "4.75", res.TaxAmount)
	assert.Equal(t, "65.25", res.TotalAmount)
	assert.Equal(t, "leave at door", res.Note)
	assert.Equal(t, "us-web", res.ChannelCode)
	assert.Len(t, res.Items, 2)
	assert.Len(t, res.TaxLines, 2)

	stored, err := f.orders.FindByID(context.Background(), uuid.MustParse(res.ID))
	require.NoError(t, err)
	assert.Equal(t, "65.25", stored.TotalAmount.StringFixed(2))
	require.NotNil(t, stored.CreatedBy)

	assert.Equal(t, []events.EventType{events.EventOrderCreated}, f.publisher.types())
	require.Len(t, f.audits.entries, 1)
	assert.Equal(t, model.ActionCreateOrder, f.audits.entries[0].Action)
}

func TestCreateOrderMatchesQuote(t *testing.T) {
	f := newOrderFixture(t)
	quote, err := NewQuoteService(f.quoter, nil).Quote(context.Background(), f.channel.ID.String(), f.cart("CA"))
	require.NoError(t, err)

	order := f.place(t)
	assert.Equal(t, quote.Total, order.TotalAmount)
	assert.Equal(t, quote.TaxAmount, order.TaxAmount)
}

func TestCreateOrderInvalidCartStoresNothing(t *testing.T) {
	f := newOrderFixture(t)
	req := f.cart("CA")
	req.ShippingAmount = "-1"

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
		ChannelID:    f.channel.ID.String(),
		QuoteRequest: req,
	}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, f.orders.byID)
	assert.Empty(t, f.publisher.types())
}

func TestUpdateOrderStatusTransitions(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.place(t)

	_, err := f.svc.UpdateOrderStatus(ctx, order.ID, UpdateOrderStatusRequest{Status: model.OrderStatusShipped}, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	for _, next := range []string{model.OrderStatusPaid, model.OrderStatusShipped, model.OrderStatusDelivered} {
		res, err := f.svc.UpdateOrderStatus(ctx, order.ID, UpdateOrderStatusRequest{Status: next}, "")
		require.NoError(t, err)
		assert.Equal(t, next, res.Status)
	}

	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, UpdateOrderStatusRequest{Status: model.OrderStatusCancelled}, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, []events.EventType{
		events.EventOrderCreated,
		events.EventOrderStatusChanged,
		events.EventOrderStatusChanged,
		events.EventOrderStatusChanged,
	}, f.publisher.types())
}

func TestUpdateOrderStatusErrors(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateOrderStatus(ctx, "bad", UpdateOrderStatusRequest{Status: model.OrderStatusPaid}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.UpdateOrderStatus(ctx, uuid.NewString(), UpdateOrderStatusRequest{Status: model.OrderStatusPaid}, "")
	assert.ErrorIs(t, err, ErrNotFound)

	order := f.place(t)
	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, UpdateOrderStatusRequest{Status: "lost"}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetOrdersValidatesFilter(t *testing.T) {
	f := newOrderFixture(t)
	f.place(t)

	items, total, err := f.svc.GetOrders(context.Background(), OrderListFilter{Status: model.OrderStatusPending}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, items, 1)

	_, _, err = f.svc.GetOrders(context.Background(), OrderListFilter{From: "yesterday"}, 1, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
