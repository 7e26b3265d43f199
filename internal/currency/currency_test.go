package currency

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		locale  string
		wantErr bool
	}{
		{name: "US dollars", code: "USD", locale: "en-US"},
		{name: "euros", code: "EUR", locale: "de-DE"},
		{name: "invalid code", code: "NOPE", locale: "en-US", wantErr: true},
		{name: "invalid locale", code: "USD", locale: "!!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFormatter(tt.code, tt.locale)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.code, f.Code())
		})
	}
}

func TestFormatCarriesSymbolAndAmount(t *testing.T) {
	f := MustFormatter("USD", "en-US")

	got := f.Format(1234.5)
	assert.True(t, strings.Contains(got, "$"), "expected dollar symbol in %q", got)
	assert.True(t, strings.Contains(got, "1,234.50") || strings.Contains(got, "1234.50"),
		"expected amount in %q", got)
}

func TestMustFormatterPanicsOnBadCode(t *testing.T) {
	assert.Panics(t, func() {
		MustFormatter("XYZ!", "en-US")
	})
}
