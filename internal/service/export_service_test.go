package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportOrdersWorkbook(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t)

	data, err := NewExportService(f.orders).ExportOrders(context.Background(), OrderListFilter{})
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Orders"}, wb.GetSheetList())
	rows, err := wb.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Order Number", rows[0][0])
	assert.Equal(t, order.OrderNumber, rows[1][0])
	assert.Equal(t, "pending", rows[1][4])
	assert.Equal(t, "65.25", rows[1][13])
}

func TestExportOrdersRejectsBadFilter(t *testing.T) {
	_, err := NewExportService(newFakeOrderRepo()).ExportOrders(context.Background(), OrderListFilter{Status: "gone"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOrderReceiptPDF(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t)
	svc := NewReceiptService(f.orders)

	pdf, name, err := svc.OrderReceipt(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.Contains(t, name, order.OrderNumber)

	_, _, err = svc.OrderReceipt(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
