// Command quotectl prices YAML checkout scenarios offline, using the same
// tax rule resolution as the API.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"storefront-admin/internal/pricing"
	"storefront-admin/internal/scenario"
	"storefront-admin/pkg/currency"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(time.Now).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(now func() time.Time) *cobra.Command {
	root := &cobra.Command{
		Use:           "quotectl",
		Short:         "Price checkout scenarios against channel tax rules",
		SilenceUsage: true,
	}
	root.AddCommand(newQuoteCmd(now), newRulesCmd(now))
	return root
}

func newQuoteCmd(now func() time.Time) *cobra.Command {
	var file string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Print the order breakdown for a scenario",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := scenario.Load(file)
			if err != nil {
				return err
			}
			q, ch, err := s.Quote(now())
			if err != nil {
				return err
			}
			if asJSON {
				return writeQuoteJSON(cmd.OutOrStdout(), q, ch)
			}
			return writeQuote(cmd.OutOrStdout(), q, ch)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "scenario YAML file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newRulesCmd(now func() time.Time) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rules that match each category of a scenario",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := scenario.Load(file)
			if err != nil {
				return err
			}
			groups, err := s.Match(now())
			if err != nil {
				return err
			}
			return writeMatches(cmd.OutOrStdout(), groups)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "scenario YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func categoryLabel(id *string) string {
	return lo.Ternary(id == nil, "(none)", lo.FromPtr(id))
}

func writeQuote(out io.Writer, q pricing.Quote, ch pricing.Channel) error {
	money := func(d decimal.Decimal) string { return currency.Format(d, ch.CurrencyCode, ch.CountryCode) }

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSOURCE\tRULE\tRATE\tBEHAVIOR\tTAXABLE\tTAX")
	for _, tl := range q.TaxLines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			categoryLabel(tl.CategoryID), tl.Source, lo.Ternary(tl.RuleID == "", "-", tl.RuleID),
			currency.FormatRate(tl.Rate), tl.Behavior, money(tl.Taxable), money(tl.TaxAmount))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Subtotal\t%s\t\n", money(q.Subtotal))
	fmt.Fprintf(tw, "Tax\t%s\t\n", money(q.TaxAmount))
	if !q.IncludedTax.IsZero() {
		fmt.Fprintf(tw, "Included tax\t%s\t\n", money(q.IncludedTax))
	}
	fmt.Fprintf(tw, "Shipping\t%s\t\n", money(q.ShippingAmount))
	fmt.Fprintf(tw, "Total\t%s\t\n", money(q.Total))
	return tw.Flush()
}

type jsonTaxLine struct {
	CategoryID *string `json:"category_id"`
	RuleID     string  `json:"rule_id,omitempty"`
	Source     string  `json:"source"`
	Rate       string  `json:"rate"`
	Behavior   string  `json:"tax_behavior"`
	Taxable    string  `json:"taxable_amount"`
	TaxAmount  string  `json:"tax_amount"`
}

type jsonQuote struct {
	CurrencyCode   string        `json:"currency_code"`
	Subtotal       string        `json:"subtotal"`
	TaxAmount      string        `json:"tax_amount"`
	IncludedTax    string        `json:"included_tax"`
	ShippingAmount string        `json:"shipping_amount"`
	Total          string        `json:"total"`
	TotalText      string        `json:"total_text"`
	TaxLines       []jsonTaxLine `json:"tax_lines"`
}

func writeQuoteJSON(out io.Writer, q pricing.Quote, ch pricing.Channel) error {
	res := jsonQuote{
		CurrencyCode:   ch.CurrencyCode,
		Subtotal:       q.Subtotal.StringFixed(2),
		TaxAmount:      q.TaxAmount.StringFixed(2),
		IncludedTax:    q.IncludedTax.StringFixed(2),
		ShippingAmount: q.ShippingAmount.StringFixed(2),
		Total:          q.Total.StringFixed(2),
		TotalText:      currency.Format(q.Total, ch.CurrencyCode, ch.CountryCode),
		TaxLines: lo.Map(q.TaxLines, func(tl pricing.TaxLine, _ int) jsonTaxLine {
			return jsonTaxLine{
				CategoryID: tl.CategoryID,
				RuleID:     tl.RuleID,
				Source:     string(tl.Source),
				Rate:       tl.Rate.String(),
				Behavior:   string(tl.Behavior),
				Taxable:    tl.Taxable.StringFixed(2),
				TaxAmount:  tl.TaxAmount.StringFixed(2),
			}
		}),
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func writeMatches(out io.Writer, groups []scenario.GroupMatch) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tRULE\tNAME\tRATE\tSPECIFICITY\tRESULT")
	for _, g := range groups {
		label := categoryLabel(g.CategoryID)
		if len(g.Resolution.Matched) == 0 {
			fmt.Fprintf(tw, "%s\t-\t-\t%s\t-\tchannel default\n", label, currency.FormatRate(g.Resolution.Rate))
			continue
		}
		for _, r := range g.Resolution.Matched {
			result := ""
			switch {
			case g.Err != nil:
				result = "ambiguous"
			case g.Resolution.Rule != nil && g.Resolution.Rule.ID == r.ID:
				result = "winner"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", label, r.ID, r.Name, currency.FormatRate(r.Rate), r.Specificity(), result)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	failed := lo.Filter(groups, func(g scenario.GroupMatch, _ int) bool { return g.Err != nil })
	if len(failed) > 0 {
		labels := lo.Map(failed, func(g scenario.GroupMatch, _ int) string { return categoryLabel(g.CategoryID) })
		return fmt.Errorf("%w for categories %s", pricing.ErrAmbiguousRules, strings.Join(labels, ", "))
	}
	return nil
}
