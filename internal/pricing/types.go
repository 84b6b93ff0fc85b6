// Package pricing resolves channel tax rules and assembles order totals.
//
// Everything in this package is a pure function over its arguments: rule
// lists and channel settings are loaded by the caller, nothing is cached,
// and the same input always yields the same output.
package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TaxBehavior tells whether a price already contains tax.
type TaxBehavior string

const (
	BehaviorExclusive TaxBehavior = "exclusive"
	BehaviorInclusive TaxBehavior = "inclusive"
)

// Valid reports whether b is a known behavior.
func (b TaxBehavior) Valid() bool {
	return b == BehaviorExclusive || b == BehaviorInclusive
}

var (
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidRate    = errors.New("tax rate must be between 0 and 1")
	ErrAmbiguousRules = errors.New("more than one tax rule applies")
	ErrUnknownPolicy  = errors.New("unknown resolution strategy")
)

// Rule is an immutable snapshot of a channel tax rule.
type Rule struct {
	ID                 string
	Name               string
	Rate               decimal.Decimal
	CategoryID         *string
	CountryCode        *string
	RegionCode         *string
	ApplyToB2B         bool
	ApplyToB2C         bool
	MinimumOrderAmount *decimal.Decimal
	Behavior           TaxBehavior
	IsActive           bool
	StartDate          *time.Time
	EndDate            *time.Time
}

// Specificity counts the optional filters set on the rule.
func (r Rule) Specificity() int {
	n := 0
	if r.CategoryID != nil {
		n++
	}
	if r.CountryCode != nil {
		n++
	}
	if r.RegionCode != nil {
		n++
	}
	if r.MinimumOrderAmount != nil {
		n++
	}
	if r.StartDate != nil || r.EndDate != nil {
		n++
	}
	return n
}

// Context is what a rule is evaluated against.
type Context struct {
	IsB2B       bool
	OrderAmount decimal.Decimal
	Date        time.Time
	CategoryID  *string
	CountryCode string
	RegionCode  string
}

// Channel carries the defaults used when no rule applies.
type Channel struct {
	Code           string
	CountryCode    string
	CurrencyCode   string
	IsB2B          bool
	DefaultTaxRate decimal.Decimal
	TaxBehavior    TaxBehavior
	Strategy       Strategy
}
