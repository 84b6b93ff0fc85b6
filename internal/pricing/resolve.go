package pricing

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Strategy names how a single rule is picked when several apply.
type Strategy string

const (
	// StrategyMostSpecific prefers the rule with the most filters set,
	// then the higher rate, then the lower ID.
	StrategyMostSpecific Strategy = "most_specific"
	// StrategyHighestRate prefers the higher rate, then specificity, then ID.
	StrategyHighestRate Strategy = "highest_rate"
	// StrategyRejectAmbiguous fails when more than one rule applies.
	StrategyRejectAmbiguous Strategy = "reject_ambiguous"
)

// DefaultStrategy is used when a channel does not name one.
const DefaultStrategy = StrategyMostSpecific

// Resolver picks at most one rule out of the applicable set.
// Implementations must not depend on the order of matched.
type Resolver interface {
	Resolve(matched []Rule) (*Rule, error)
}

// ResolverFor returns the resolver for s. An empty strategy maps to
// DefaultStrategy.
func ResolverFor(s Strategy) (Resolver, error) {
	switch s {
	case "", StrategyMostSpecific:
		return rankResolver{better: moreSpecific}, nil
	case StrategyHighestRate:
		return rankResolver{better: higherRate}, nil
	case StrategyRejectAmbiguous:
		return rejectAmbiguous{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Strategies lists every supported strategy name.
func Strategies() []Strategy {
	return []Strategy{StrategyMostSpecific, StrategyHighestRate, StrategyRejectAmbiguous}
}

type rankResolver struct {
	better func(a, b Rule) bool
}

func (r rankResolver) Resolve(matched []Rule) (*Rule, error) {
	if len(matched) == 0 {
		return nil, nil
	}
	best := lo.MaxBy(matched, r.better)
	return &best, nil
}

type rejectAmbiguous struct{}

func (rejectAmbiguous) Resolve(matched []Rule) (*Rule, error) {
	switch len(matched) {
	case 0:
		return nil, nil
	case 1:
		only := matched[0]
		return &only, nil
	default:
		ids := lo.Map(matched, func(r Rule, _ int) string { return r.ID })
		return nil, fmt.Errorf("%w: %v", ErrAmbiguousRules, ids)
	}
}

// moreSpecific and higherRate are strict total orders over rules with
// distinct IDs, so the winner never depends on input order.
func moreSpecific(a, b Rule) bool {
	if sa, sb := a.Specificity(), b.Specificity(); sa != sb {
		return sa > sb
	}
	if c := a.Rate.Cmp(b.Rate); c != 0 {
		return c > 0
	}
	return a.ID < b.ID
}

func higherRate(a, b Rule) bool {
	if c := a.Rate.Cmp(b.Rate); c != 0 {
		return c > 0
	}
	if sa, sb := a.Specificity(), b.Specificity(); sa != sb {
		return sa > sb
	}
	return a.ID < b.ID
}

// Source tells where a resolved rate came from.
type Source string

const (
	SourceRule           Source = "rule"
	SourceChannelDefault Source = "channel_default"
)

// Resolution is the effective rate for one evaluation context.
type Resolution struct {
	Rate     decimal.Decimal
	Behavior TaxBehavior
	Rule     *Rule
	Source   Source
	Matched  []Rule
}

// Resolve matches rules against ctx and picks one with resolver, falling
// back to the channel default rate and behavior when nothing applies.
func Resolve(ch Channel, rules []Rule, ctx Context, resolver Resolver) (Resolution, error) {
	matched := Match(rules, ctx)
	rule, err := resolver.Resolve(matched)
	if err != nil {
		return Resolution{Matched: matched}, err
	}
	if rule == nil {
		return Resolution{
			Rate:     ch.DefaultTaxRate,
			Behavior: ch.TaxBehavior,
			Source:   SourceChannelDefault,
			Matched:  matched,
		}, nil
	}

	behavior := rule.Behavior
	if !behavior.Valid() {
		behavior = ch.TaxBehavior
	}
	return Resolution{
		Rate:     rule.Rate,
		Behavior: behavior,
		Rule:     rule,
		Source:   SourceRule,
		Matched:  matched,
	}, nil
}
