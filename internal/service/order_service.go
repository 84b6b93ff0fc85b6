package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront-admin/internal/events"
	"storefront-admin/internal/metrics"
	"storefront-admin/internal/model"
	"storefront-admin/internal/pricing"
	"storefront-admin/internal/repository"
	"storefront-admin/pkg/currency"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// --- DTOs ---

type CreateOrderRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
	QuoteRequest
	Note string `json:"note"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending paid shipped delivered cancelled"`
}

type OrderListFilter struct {
	ChannelID  string
	CustomerID string
	Status     string
	From       string // YYYY-MM-DD
	To         string // YYYY-MM-DD
}

type OrderResponse struct {
	ID             string              `json:"id"`
	OrderNumber    string              `json:"order_number"`
	ChannelID      string              `json:"channel_id"`
	ChannelCode    string              `json:"channel_code,omitempty"`
	CustomerID     *string             `json:"customer_id"`
	CustomerName   string              `json:"customer_name,omitempty"`
	Status         string              `json:"status"`
	IsB2B          bool                `json:"is_b2b"`
	CountryCode    string              `json:"country_code"`
	RegionCode     string              `json:"region_code"`
	CurrencyCode   string              `json:"currency_code"`
	Subtotal       string              `json:"subtotal"`
	TaxAmount      string              `json:"tax_amount"`
	IncludedTax    string              `json:"included_tax"`
	ShippingAmount string              `json:"shipping_amount"`
	TotalAmount    string              `json:"total_amount"`
	TotalText      string              `json:"total_text"`
	OrderDate      string              `json:"order_date"`
	Note           string              `json:"note"`
	Items          []QuoteLineResponse `json:"items,omitempty"`
	TaxLines       []TaxLineResponse   `json:"tax_lines,omitempty"`
	CreatedAt      string              `json:"created_at"`
	UpdatedAt      string              `json:"updated_at"`
}

// --- Interface ---

type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest, userID string) (OrderResponse, error)
	GetOrder(ctx context.Context, id string) (OrderResponse, error)
	GetOrders(ctx context.Context, filter OrderListFilter, page, limit int) ([]OrderResponse, int64, error)
	UpdateOrderStatus(ctx context.Context, id string, req UpdateOrderStatusRequest, userID string) (OrderResponse, error)
}

// --- Implementation ---

type orderService struct {
	orderRepo repository.OrderRepository
	txManager repository.TransactionManager
	quoter    *Quoter
	node      *snowflake.Node
	audit     AuditService
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *logrus.Logger
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	txManager repository.TransactionManager,
	quoter *Quoter,
	node *snowflake.Node,
	audit AuditService,
	publisher events.Publisher,
	m *metrics.Metrics,
	log *logrus.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		txManager: txManager,
		quoter:    quoter,
		node:      node,
		audit:     audit,
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

// CreateOrder prices the cart exactly as Quote would and persists the result
func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest, userID string) (OrderResponse, error) {
	priced, err := s.quoter.price(ctx, req.ChannelID, req.QuoteRequest)
	if err != nil {
		return OrderResponse{}, err
	}

	b := priced.quote.Breakdown
	order := model.Order{
		OrderNumber:    "SO-" + s.node.Generate().String(),
		ChannelID:      priced.channel.ID,
		CustomerID:     priced.customerID,
		Status:         model.OrderStatusPending,
		IsB2B:          priced.input.IsB2B,
		CountryCode:    priced.input.CountryCode,
		RegionCode:     priced.input.RegionCode,
		CurrencyCode:   priced.channel.CurrencyCode,
		Subtotal:       b.Subtotal,
		TaxAmount:      b.TaxAmount,
		IncludedTax:    priced.quote.IncludedTax,
		ShippingAmount: b.ShippingAmount,
		TotalAmount:    b.Total,
		OrderDate:      priced.input.Date,
		Note:           strings.TrimSpace(req.Note),
		Items:          priced.items,
		TaxLines:       priced.taxLines(),
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		order.CreatedBy = &parsed
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Create(txCtx, &order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.audit.Record(ctx, userID, model.ActionCreateOrder, order.ID.String(), order.OrderNumber, map[string]string{
		"channel": priced.channel.Code,
		"total":   order.TotalAmount.StringFixed(2),
	})

	order.Channel = &priced.channel
	res := toOrderResponse(order)
	s.metrics.ObserveOrder(order.Status)
	publishEvent(ctx, s.publisher, s.log, events.EventOrderCreated, order.ID.String(), userID, res)

	return res, nil
}

func (s *orderService) GetOrder(ctx context.Context, id string) (OrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return OrderResponse{}, invalidf("invalid order id")
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return OrderResponse{}, notFoundOr(err, "order")
	}
	return toOrderResponse(*order), nil
}

func (s *orderService) GetOrders(ctx context.Context, filter OrderListFilter, page, limit int) ([]OrderResponse, int64, error) {
	f, err := parseOrderFilter(filter)
	if err != nil {
		return nil, 0, err
	}
	orders, total, err := s.orderRepo.List(ctx, f, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	res := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		res = append(res, toOrderResponse(o))
	}
	return res, total, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, id string, req UpdateOrderStatusRequest, userID string) (OrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return OrderResponse{}, invalidf("invalid order id")
	}
	if !model.IsValidOrderStatus(req.Status) {
		return OrderResponse{}, invalidf("unknown status %q", req.Status)
	}

	var from string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return notFoundOr(err, "order")
		}
		from = order.Status
		if !model.CanTransitionOrder(order.Status, req.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, req.Status)
		}
		if err := s.orderRepo.UpdateStatus(txCtx, orderID, req.Status); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}

	// Reload with relations outside transaction
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("failed to reload order: %w", err)
	}

	s.audit.Record(ctx, userID, model.ActionUpdateOrderStatus, order.ID.String(), order.OrderNumber, map[string]string{
		"from": from,
		"to":   order.Status,
	})
	s.metrics.ObserveOrder(order.Status)
	publishEvent(ctx, s.publisher, s.log, events.EventOrderStatusChanged, order.ID.String(), userID, map[string]string{
		"order_number": order.OrderNumber,
		"from":         from,
		"to":           order.Status,
	})

	return toOrderResponse(*order), nil
}

// --- Helpers ---

func parseOrderFilter(in OrderListFilter) (repository.OrderFilter, error) {
	var f repository.OrderFilter
	if in.ChannelID != "" {
		id, err := uuid.Parse(in.ChannelID)
		if err != nil {
			return f, invalidf("invalid channel_id")
		}
		f.ChannelID = &id
	}
	if in.CustomerID != "" {
		id, err := uuid.Parse(in.CustomerID)
		if err != nil {
			return f, invalidf("invalid customer_id")
		}
		f.CustomerID = &id
	}
	if in.Status != "" {
		if !model.IsValidOrderStatus(in.Status) {
			return f, invalidf("unknown status %q", in.Status)
		}
		f.Status = in.Status
	}
	from, err := pricing.ParseOptionalDate(in.From)
	if err != nil {
		return f, fmt.Errorf("%w: from: %v", ErrInvalidInput, err)
	}
	to, err := pricing.ParseOptionalDate(in.To)
	if err != nil {
		return f, fmt.Errorf("%w: to: %v", ErrInvalidInput, err)
	}
	f.From, f.To = from, to
	return f, nil
}

func toOrderResponse(o model.Order) OrderResponse {
	res := OrderResponse{
		ID:             o.ID.String(),
		OrderNumber:    o.OrderNumber,
		ChannelID:      o.ChannelID.String(),
		CustomerID:     uuidString(o.CustomerID),
		Status:         o.Status,
		IsB2B:          o.IsB2B,
		CountryCode:    o.CountryCode,
		RegionCode:     o.RegionCode,
		CurrencyCode:   o.CurrencyCode,
		Subtotal:       o.Subtotal.StringFixed(2),
		TaxAmount:      o.TaxAmount.StringFixed(2),
		IncludedTax:    o.IncludedTax.StringFixed(2),
		ShippingAmount: o.ShippingAmount.StringFixed(2),
		TotalAmount:    o.TotalAmount.StringFixed(2),
		TotalText:      currency.Format(o.TotalAmount, o.CurrencyCode, o.CountryCode),
		OrderDate:      o.OrderDate.Format(pricing.DateLayout),
		Note:           o.Note,
		CreatedAt:      o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      o.UpdatedAt.Format(time.RFC3339),
	}
	if o.Channel != nil {
		res.ChannelCode = o.Channel.Code
	}
	if o.Customer != nil {
		res.CustomerName = o.Customer.Name
	}
	for _, it := range o.Items {
		res.Items = append(res.Items, toQuoteLineResponse(it))
	}
	for _, tl := range o.TaxLines {
		res.TaxLines = append(res.TaxLines, toTaxLineResponse(tl))
	}
	return res
}
