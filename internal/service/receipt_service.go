package service

import (
	"context"
	"fmt"

	"storefront-admin/internal/pricing"
	"storefront-admin/internal/repository"
	"storefront-admin/pkg/currency"

	"github.com/google/uuid"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type ReceiptService interface {
	// OrderReceipt renders a PDF receipt and returns it with a download file name
	OrderReceipt(ctx context.Context, orderID string) ([]byte, string, error)
}

type receiptService struct {
	orderRepo repository.OrderRepository
}

func NewReceiptService(orderRepo repository.OrderRepository) ReceiptService {
	return &receiptService{orderRepo: orderRepo}
}

func (s *receiptService) OrderReceipt(ctx context.Context, orderID string) ([]byte, string, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, "", invalidf("invalid order id")
	}
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, "", notFoundOr(err, "order")
	}

	res := toOrderResponse(*order)
	pdf, err := generateReceiptPDF(res)
	if err != nil {
		return nil, "", err
	}
	return pdf, fmt.Sprintf("receipt-%s.pdf", order.OrderNumber), nil
}

func generateReceiptPDF(o OrderResponse) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(10).
		WithTopMargin(15).
		WithRightMargin(10).
		Build()

	m := maroto.New(cfg)

	addReceiptHeader(m, o)
	addReceiptItems(m, o)
	addReceiptTotals(m, o)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func addReceiptHeader(m core.Maroto, o OrderResponse) {
	channel := o.ChannelCode
	if channel == "" {
		channel = o.ChannelID
	}
	m.AddRow(20,
		col.New(6).Add(
			text.New(channel, props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Left}),
			text.New(o.CountryCode+" "+o.RegionCode, props.Text{Size: 9, Top: 7, Align: align.Left}),
		),
		col.New(6).Add(
			text.New("RECEIPT", props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Right}),
			text.New("# "+o.OrderNumber, props.Text{Size: 9, Top: 8, Align: align.Right}),
		),
	)
	m.AddRow(5, line.NewCol(12))

	customer := o.CustomerName
	if customer == "" {
		customer = "Walk-in customer"
	}
	m.AddRow(14,
		col.New(6).Add(
			text.New("Bill to: "+customer, props.Text{Size: 9, Align: align.Left}),
			text.New(fmt.Sprintf("B2B: %t", o.IsB2B), props.Text{Size: 9, Top: 5, Align: align.Left}),
		),
		col.New(6).Add(
			text.New("Date: "+o.OrderDate, props.Text{Size: 9, Align: align.Right}),
			text.New("Status: "+o.Status, props.Text{Size: 9, Top: 5, Align: align.Right}),
		),
	)
	m.AddRow(5, line.NewCol(12))
}

func addReceiptItems(m core.Maroto, o OrderResponse) {
	head := props.Text{Size: 9, Style: fontstyle.Bold}
	m.AddRow(7,
		col.New(6).Add(text.New("Item", head)),
		col.New(2).Add(text.New("Qty", withAlign(head, align.Right))),
		col.New(2).Add(text.New("Unit", withAlign(head, align.Right))),
		col.New(2).Add(text.New("Amount", withAlign(head, align.Right))),
	)

	cell := props.Text{Size: 9}
	for _, it := range o.Items {
		m.AddRow(6,
			col.New(6).Add(text.New(it.Description, cell)),
			col.New(2).Add(text.New(fmt.Sprintf("%d", it.Quantity), withAlign(cell, align.Right))),
			col.New(2).Add(text.New(formatMoney(it.UnitPrice, o), withAlign(cell, align.Right))),
			col.New(2).Add(text.New(formatMoney(it.LineTotal, o), withAlign(cell, align.Right))),
		)
	}
	m.AddRow(5, line.NewCol(12))
}

func addReceiptTotals(m core.Maroto, o OrderResponse) {
	row := func(label, value string, bold bool) {
		p := props.Text{Size: 9, Align: align.Right}
		if bold {
			p.Style = fontstyle.Bold
		}
		m.AddRow(6,
			col.New(8).Add(text.New(label, p)),
			col.New(4).Add(text.New(value, p)),
		)
	}

	row("Subtotal", formatMoney(o.Subtotal, o), false)
	for _, tl := range o.TaxLines {
		label := "Tax " + tl.RateText
		if tl.RuleName != "" {
			label += " (" + tl.RuleName + ")"
		}
		if tl.TaxBehavior == string(pricing.BehaviorInclusive) {
			row(label+" included", formatMoney(tl.EmbeddedTax, o), false)
			continue
		}
		row(label, formatMoney(tl.TaxAmount, o), false)
	}
	row("Shipping", formatMoney(o.ShippingAmount, o), false)
	row("Total", o.TotalText, true)
}

func withAlign(p props.Text, a align.Type) props.Text {
	p.Align = a
	return p
}

func formatMoney(amount string, o OrderResponse) string {
	return currency.Format(parseMoney(amount), o.CurrencyCode, o.CountryCode)
}
