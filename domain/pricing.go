package domain

import "strings"

// Period is the billing period shown by the pricing toggle.
type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// ParsePeriod maps a query value onto a period; anything unknown means monthly.
func ParsePeriod(s string) Period {
	if Period(strings.ToLower(strings.TrimSpace(s))) == PeriodYearly {
		return PeriodYearly
	}
	return PeriodMonthly
}

// Toggle returns the other billing period.
func (p Period) Toggle() Period {
	if p == PeriodYearly {
		return PeriodMonthly
	}
	return PeriodYearly
}

// Unit is the suffix printed next to a price.
func (p Period) Unit() string {
	if p == PeriodYearly {
		return "year"
	}
	return "month"
}

// YearlyBadge advertises the yearly discount next to the period toggle.
const YearlyBadge = "Save 20%"

// Plan is one card of the pricing table. Prices are whole dollars.
type Plan struct {
	Name     string
	Tagline  string
	Monthly  int
	Yearly   int
	Features []string
	Popular  bool
}

// Price returns the plan price for the period.
func (p Plan) Price(period Period) int {
	if period == PeriodYearly {
		return p.Yearly
	}
	return p.Monthly
}

// PlanPrice is a plan card resolved for one period.
type PlanPrice struct {
	Plan
	Period Period
	Amount int
}

// Plans is the fixed pricing table.
var Plans = []Plan{
	{
		Name:    "Basic",
		Tagline: "Perfect for small projects and individuals",
		Monthly: 9,
		Yearly:  90,
		Features: []string{
			"Up to 5 projects",
			"Basic analytics",
			"24-hour support response time",
			"1GB storage",
		},
	},
	{
		Name:    "Pro",
		Tagline: "Best for growing teams and businesses",
		Monthly: 19,
		Yearly:  190,
		Features: []string{
			"Up to 20 projects",
			"Advanced analytics",
			"4-hour support response time",
			"10GB storage",
			"Team collaboration",
		},
		Popular: true,
	},
	{
		Name:    "Enterprise",
		Tagline: "For large organizations with custom needs",
		Monthly: 49,
		Yearly:  490,
		Features: []string{
			"Unlimited projects",
			"Custom analytics & reporting",
			"1-hour support response time",
			"100GB storage",
			"Team collaboration",
			"Custom integrations",
			"Dedicated account manager",
		},
	},
}

// Prices resolves every plan card for the selected period.
func Prices(plans []Plan, period Period) []PlanPrice {
	out := make([]PlanPrice, len(plans))
	for i, p := range plans {
		out[i] = PlanPrice{Plan: p, Period: period, Amount: p.Price(period)}
	}
	return out
}
