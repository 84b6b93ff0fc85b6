package pricing

import (
	"strings"

	"github.com/samber/lo"
)

// Applies reports whether every filter on r passes for ctx.
// Validity dates compare at day granularity; a nil bound is open.
func Applies(r Rule, ctx Context) bool {
	if !r.IsActive {
		return false
	}

	day := Day(ctx.Date)
	if r.StartDate != nil && day.Before(Day(*r.StartDate)) {
		return false
	}
	if r.EndDate != nil && day.After(Day(*r.EndDate)) {
		return false
	}

	if ctx.IsB2B && !r.ApplyToB2B {
		return false
	}
	if !ctx.IsB2B && !r.ApplyToB2C {
		return false
	}

	if r.MinimumOrderAmount != nil && ctx.OrderAmount.LessThan(*r.MinimumOrderAmount) {
		return false
	}

	if r.CategoryID != nil && (ctx.CategoryID == nil || *ctx.CategoryID != *r.CategoryID) {
		return false
	}
	if r.CountryCode != nil && !strings.EqualFold(*r.CountryCode, ctx.CountryCode) {
		return false
	}
	if r.RegionCode != nil && !strings.EqualFold(*r.RegionCode, ctx.RegionCode) {
		return false
	}

	return true
}

// Match returns the rules that apply to ctx, keeping their input order.
func Match(rules []Rule, ctx Context) []Rule {
	return lo.Filter(rules, func(r Rule, _ int) bool {
		return Applies(r, ctx)
	})
}
