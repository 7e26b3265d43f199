package budget

import (
	"math"
)

// Trend classifies the direction of recent monthly budget totals.
type Trend string

// Trend values.
const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendVolatile   Trend = "volatile"
)

// trendWindow caps how many recent monthly totals feed trend classification.
const trendWindow = 6

// Thresholds tune trend classification and recommendation heuristics.
type Thresholds struct {
	Volatility     float64
	Increase       float64
	Decrease       float64
	Variance       float64
	LowUtilization float64
	MaxCategories  int
}

// DefaultThresholds returns the tuning used when the caller has none.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Volatility:     0.20,
		Increase:       0.10,
		Decrease:       -0.10,
		Variance:       250_000, // monthly totals swinging by ~500
		LowUtilization: 0.50,
		MaxCategories:  15,
	}
}

// Summary holds the current month's headline numbers for recommendations.
type Summary struct {
	Budgeted      float64
	Spent         float64
	CategoryCount int
}

// Snapshot is the derived analytics value. It is recomputed in full on every
// store mutation and replaced wholesale; never partially updated.
type Snapshot struct {
	CategoryDistribution map[string]float64
	Trend                Trend
	Recommendations      []string
	MonthlyVariance      float64
}

// AnalyticsInput gathers everything Compute derives from.
type AnalyticsInput struct {
	// MonthlyTotals is the ordered series of monthly budget totals,
	// oldest first.
	MonthlyTotals []float64
	// Distribution is each category's amount summed across all months.
	Distribution map[string]float64
	// Current summarizes the month being viewed.
	Current Summary
	// Thresholds defaults to DefaultThresholds when zero.
	Thresholds Thresholds
}

// Compute derives a full analytics snapshot from the input.
func Compute(in AnalyticsInput) Snapshot {
	th := in.Thresholds
	if th == (Thresholds{}) {
		th = DefaultThresholds()
	}

	return Snapshot{
		MonthlyVariance:      populationVariance(in.MonthlyTotals),
		CategoryDistribution: in.Distribution,
		Trend:                classifyTrend(in.MonthlyTotals, th),
		Recommendations:      recommend(in, th),
	}
}

// classifyTrend inspects the most recent window of monthly totals.
// Volatility wins over direction: a series that is both rising fast and
// swinging hard classifies as volatile.
func classifyTrend(totals []float64, th Thresholds) Trend {
	if len(totals) < 2 {
		return TrendStable
	}

	if len(totals) > trendWindow {
		totals = totals[len(totals)-trendWindow:]
	}

	// Consecutive percentage changes; pairs with a zero previous total are
	// skipped because the percentage change is undefined.
	var changes []float64
	for i := 1; i < len(totals); i++ {
		prev := totals[i-1]
		if prev <= 0 {
			continue
		}
		changes = append(changes, (totals[i]-prev)/prev)
	}

	if len(changes) == 0 {
		return TrendStable
	}

	var sum float64
	for _, c := range changes {
		sum += c
	}
	averageChange := sum / float64(len(changes))

	var sumSq float64
	for _, c := range changes {
		d := c - averageChange
		sumSq += d * d
	}
	volatility := math.Sqrt(sumSq / float64(len(changes)))

	switch {
	case volatility > th.Volatility:
		return TrendVolatile
	case averageChange > th.Increase:
		return TrendIncreasing
	case averageChange < th.Decrease:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// recommend applies every independent heuristic; all that match are included,
// in display order.
func recommend(in AnalyticsInput, th Thresholds) []string {
	var recs []string
	cur := in.Current

	if cur.Spent > cur.Budgeted && cur.Budgeted > 0 {
		recs = append(recs, "Consider reducing spending in high-cost categories")
	}
	if cur.Budgeted > 0 && cur.Spent/cur.Budgeted < th.LowUtilization {
		recs = append(recs, "You're under budget, consider increasing savings")
	}
	if populationVariance(in.MonthlyTotals) > th.Variance {
		recs = append(recs, "Consider evening out monthly budget allocations")
	}
	if cur.CategoryCount > th.MaxCategories {
		recs = append(recs, "Consider consolidating similar categories")
	}
	if cur.Budgeted == 0 {
		recs = append(recs, "Set up your first budget categories")
	}
	return recs
}

// populationVariance is the variance of the series with divisor n.
func populationVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(len(values))
}
