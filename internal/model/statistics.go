package model

// SalesBucket is one period of a channel sales summary
type SalesBucket struct {
	Period      string `json:"period"`
	OrderCount  int64  `json:"order_count"`
	Revenue     string `json:"revenue"`
	TaxAmount   string `json:"tax_amount"`
	IncludedTax string `json:"included_tax"`
	Shipping    string `json:"shipping"`
}

// SalesSummary aggregates non-cancelled orders of a channel over a date range
type SalesSummary struct {
	ChannelID    string        `json:"channel_id"`
	CurrencyCode string        `json:"currency_code"`
	StartDate    string        `json:"start_date"`
	EndDate      string        `json:"end_date"`
	GroupBy      string        `json:"group_by"`
	OrderCount   int64         `json:"order_count"`
	Revenue      string        `json:"revenue"`
	TaxAmount    string        `json:"tax_amount"`
	IncludedTax  string        `json:"included_tax"`
	Buckets      []SalesBucket `json:"buckets"`
}
