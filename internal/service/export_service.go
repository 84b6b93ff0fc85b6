package service

import (
	"bytes"
	"context"
	"fmt"

	"storefront-admin/internal/pricing"
	"storefront-admin/internal/repository"

	"github.com/xuri/excelize/v2"
)

// MaxExportRows bounds a single spreadsheet export
const MaxExportRows = 10000

const ordersSheet = "Orders"

type ExportService interface {
	// ExportOrders renders the filtered orders as an XLSX workbook
	ExportOrders(ctx context.Context, filter OrderListFilter) ([]byte, error)
}

type exportService struct {
	orderRepo repository.OrderRepository
}

func NewExportService(orderRepo repository.OrderRepository) ExportService {
	return &exportService{orderRepo: orderRepo}
}

func (s *exportService) ExportOrders(ctx context.Context, filter OrderListFilter) ([]byte, error) {
	f, err := parseOrderFilter(filter)
	if err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.ListAll(ctx, f, MaxExportRows)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	x := excelize.NewFile()
	defer x.Close()

	index, err := x.NewSheet(ordersSheet)
	if err != nil {
		return nil, err
	}
	x.SetActiveSheet(index)
	_ = x.DeleteSheet("Sheet1")

	headers := []string{
		"Order Number", "Order Date", "Channel", "Customer", "Status", "B2B",
		"Country", "Region", "Currency", "Subtotal", "Tax", "Included Tax",
		"Shipping", "Total",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = x.SetCellValue(ordersSheet, cell, h)
	}
	bold, err := x.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = x.SetCellStyle(ordersSheet, "A1", last, bold)
	}

	for i, o := range orders {
		row := i + 2
		write := func(col int, v interface{}) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = x.SetCellValue(ordersSheet, cell, v)
		}

		channel, customer := "", ""
		if o.Channel != nil {
			channel = o.Channel.Code
		}
		if o.Customer != nil {
			customer = o.Customer.Name
		}

		write(1, o.OrderNumber)
		write(2, o.OrderDate.Format(pricing.DateLayout))
		write(3, channel)
		write(4, customer)
		write(5, o.Status)
		write(6, o.IsB2B)
		write(7, o.CountryCode)
		write(8, o.RegionCode)
		write(9, o.CurrencyCode)
		write(10, o.Subtotal.InexactFloat64())
		write(11, o.TaxAmount.InexactFloat64())
		write(12, o.IncludedTax.InexactFloat64())
		write(13, o.ShippingAmount.InexactFloat64())
		write(14, o.TotalAmount.InexactFloat64())
	}

	var buf bytes.Buffer
	if err := x.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
