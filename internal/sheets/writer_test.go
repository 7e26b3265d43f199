package sheets

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marchbank/pennywort/internal/budget"
)

func testReport() *Report {
	return &Report{
		Year:          2026,
		Month:         3,
		MonthlyTotals: []float64{1500, 1500, 1600, 1600, 1600, 1600, 1600, 1600, 1600, 1600, 1600, 1600},
		Spent: map[string]float64{
			"Groceries": 380,
			"Rent":      1200,
		},
		Analytics: budget.Snapshot{
			Trend: budget.TrendStable,
			CategoryDistribution: map[string]float64{
				"Groceries": 4800,
				"Rent":      14400,
			},
			Recommendations: []string{"You're under budget, consider increasing savings"},
			MonthlyVariance: 1875,
		},
	}
}

func TestPrepareReportData(t *testing.T) {
	w := &Writer{
		config: DefaultConfig(),
		logger: slog.Default(),
	}

	values := w.prepareReportData(testReport())
	require.NotEmpty(t, values)

	t.Run("header carries the year", func(t *testing.T) {
		assert.Equal(t, "Budget Report", values[0][0])
		assert.Equal(t, "2026", values[0][1])
	})

	t.Run("summary totals the whole year", func(t *testing.T) {
		assert.Equal(t, []any{"Total Budgeted", 19000.0}, values[3])
		assert.Equal(t, []any{"Categories", 2}, values[4])
		assert.Equal(t, []any{"Trend", "stable"}, values[5])
	})

	t.Run("one row per month", func(t *testing.T) {
		// Monthly rows start after the summary block and its header
		assert.Equal(t, []any{"January", 1500.0}, values[10])
		assert.Equal(t, []any{"December", 1600.0}, values[21])
	})

	t.Run("categories sorted by amount descending", func(t *testing.T) {
		var catRows [][]any
		for i, row := range values {
			if len(row) == 3 && row[0] == "Category" {
				catRows = values[i+1 : i+3]
				break
			}
		}
		require.Len(t, catRows, 2)
		assert.Equal(t, "Rent", catRows[0][0])
		assert.Equal(t, "Groceries", catRows[1][0])
		assert.Equal(t, 1200.0, catRows[0][2])
	})

	t.Run("recommendations appended", func(t *testing.T) {
		last := values[len(values)-1]
		assert.Equal(t, "You're under budget, consider increasing savings", last[0])
	})
}

func TestMockWriter(t *testing.T) {
	mock := NewMockWriter()

	report := testReport()
	require.NoError(t, mock.Write(context.Background(), report))

	reports := mock.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, 2026, reports[0].Year)
}
