package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marchbank/pennywort/internal/model"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPurchaseRoundTrip(t *testing.T) {
	purchases := []model.Purchase{
		{Date: date("2024-06-01"), Amount: 42.5, Category: "Groceries", Note: "weekly shop"},
		{Date: date("2024-06-03"), Amount: 9.99, Category: "Books", Note: ""},
		// Embedded commas are escaped to semicolons on export and stay that way.
		{Date: date("2024-06-05"), Amount: 120, Category: "Travel, misc", Note: "flights, one-way"},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePurchases(&buf, purchases))

	got, err := ParsePurchases(&buf)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, purchases[0].Date, got[0].Date)
	assert.Equal(t, purchases[0].Amount, got[0].Amount)
	assert.Equal(t, "Groceries", got[0].Category)
	assert.Equal(t, "weekly shop", got[0].Note)

	assert.Equal(t, "Travel; misc", got[2].Category)
	assert.Equal(t, "flights; one-way", got[2].Note)
}

func TestWritePurchasesHeaderAndAmountFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePurchases(&buf, []model.Purchase{
		{Date: date("2024-01-15"), Amount: 7, Category: "Coffee", Note: "latte"},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Amount,Category,Note", lines[0])
	assert.Equal(t, "2024-01-15,7.00,Coffee,latte", lines[1])
}

func TestParsePurchasesErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "empty file",
			input:   "",
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "wrong header",
			input:   "When,HowMuch,What,Why\n",
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "wrong column count",
			input:   "Date,Amount,Category,Note\n2024-01-01,5.00,Coffee\n",
			wantErr: ErrParse,
		},
		{
			name:    "bad date",
			input:   "Date,Amount,Category,Note\nyesterday,5.00,Coffee,x\n",
			wantErr: ErrParse,
		},
		{
			name:    "bad amount",
			input:   "Date,Amount,Category,Note\n2024-01-01,lots,Coffee,x\n",
			wantErr: ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePurchases(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParsePurchasesSkipsBlankLines(t *testing.T) {
	input := "Date,Amount,Category,Note\n\n2024-01-01,5.00,Coffee,x\n\n"
	got, err := ParsePurchases(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestBudgetRoundTrip(t *testing.T) {
	entries := []model.BudgetEntry{
		{Year: 2024, Month: 1, Category: "Rent", Amount: 1200, IsHistorical: false},
		{Year: 2023, Month: 12, Category: "Gifts, family", Amount: 250.5, IsHistorical: true},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBudgets(&buf, entries))

	got, err := ParseBudgets(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, entries[0], got[0])
	assert.Equal(t, "Gifts; family", got[1].Category)
	assert.True(t, got[1].IsHistorical)
}

func TestParseBudgetsErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "wrong header", input: "A,B,C,D,E\n", wantErr: ErrInvalidFormat},
		{name: "month out of range", input: "Year,Month,Category,Amount,IsHistorical\n2024,13,Rent,100,false\n", wantErr: ErrParse},
		{name: "bad historical flag", input: "Year,Month,Category,Amount,IsHistorical\n2024,1,Rent,100,maybe\n", wantErr: ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBudgets(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
