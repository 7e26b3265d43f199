package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marchbank/pennywort/internal/model"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20260315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20260101120000[0:GMT]
<DTEND>20260131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2026011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2026012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>ATM
<DTPOSTED>20260125120000[0:GMT]
<TRNAMT>-60.00
<FITID>2026012501
<NAME>ATM WITHDRAWAL
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20260131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20260315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20260101120000[0:GMT]
<DTEND>20260131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2026011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2026011501
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20260131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "valid bank statement",
			ofxData:       sampleBankOFX,
			expectedCount: 3,
			expectedError: false,
		},
		{
			name:          "valid credit card statement",
			ofxData:       sampleCreditCardOFX,
			expectedCount: 2,
			expectedError: false,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedCount: 0,
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedCount: 0,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			reader := strings.NewReader(tt.ofxData)

			purchases, err := parser.ParseFile(context.Background(), reader)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, purchases, tt.expectedCount)
			}
		})
	}
}

func TestParseBankPurchases(t *testing.T) {
	parser := NewParser()
	reader := strings.NewReader(sampleBankOFX)

	purchases, err := parser.ParseFile(context.Background(), reader)
	require.NoError(t, err)
	require.Len(t, purchases, 3)

	p1 := purchases[0]
	assert.Equal(t, "2026011501", p1.ID)
	assert.Equal(t, "STARBUCKS STORE #1234", p1.Note)
	assert.Equal(t, 25.50, p1.Amount)
	assert.Equal(t, UncategorizedCategory, p1.Category)
	assert.NotEmpty(t, p1.Hash)
	// Compare just the date components, ignoring timezone
	assert.Equal(t, 2026, p1.Date.Year())
	assert.Equal(t, time.January, p1.Date.Month())
	assert.Equal(t, 15, p1.Date.Day())

	p2 := purchases[1]
	assert.Equal(t, "2026012001", p2.ID)
	assert.Equal(t, "Whole Foods Market", p2.Note)
	assert.Equal(t, 125.00, p2.Amount)

	// ATM withdrawals get an inferred category
	p3 := purchases[2]
	assert.Equal(t, "2026012501", p3.ID)
	assert.Equal(t, 60.00, p3.Amount)
	assert.Equal(t, "Cash & ATM", p3.Category)
}

func TestParseCreditCardPurchases(t *testing.T) {
	parser := NewParser()
	reader := strings.NewReader(sampleCreditCardOFX)

	purchases, err := parser.ParseFile(context.Background(), reader)
	require.NoError(t, err)
	require.Len(t, purchases, 2)

	p1 := purchases[0]
	assert.Equal(t, "CC2026011001", p1.ID)
	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", p1.Note)
	assert.Equal(t, 45.99, p1.Amount)

	p2 := purchases[1]
	assert.Equal(t, "CC2026011501", p2.ID)
	assert.Equal(t, "NETFLIX.COM", p2.Note)
	assert.Equal(t, 15.00, p2.Amount)
}

func TestExtractMerchantName(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "remove POS prefix",
			input:    "POS PURCHASE STARBUCKS",
			expected: "STARBUCKS",
		},
		{
			name:     "remove DEBIT CARD prefix",
			input:    "DEBIT CARD PURCHASE WHOLE FOODS",
			expected: "WHOLE FOODS",
		},
		{
			name:     "keep clean name",
			input:    "NETFLIX.COM",
			expected: "NETFLIX.COM",
		},
		{
			name:     "trim whitespace",
			input:    "  AMAZON.COM  ",
			expected: "AMAZON.COM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ofxgo.Transaction{
				Name: ofxgo.String(tt.input),
			}
			result := parser.extractMerchantName(tx)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestPurchaseDeduplication(t *testing.T) {
	p1 := model.Purchase{
		ID:       "TX001",
		Date:     time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Category: "Coffee",
		Note:     "Starbucks",
		Amount:   25.50,
	}
	p1.Hash = p1.GenerateHash()

	// Same purchase with a different external ID still hashes the same
	p2 := p1
	p2.ID = "TX002"
	p2.Hash = p2.GenerateHash()
	assert.Equal(t, p1.Hash, p2.Hash)

	p3 := p1
	p3.Amount = 30.00
	p3.Hash = p3.GenerateHash()
	assert.NotEqual(t, p1.Hash, p3.Hash)

	p4 := p1
	p4.Date = time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)
	p4.Hash = p4.GenerateHash()
	assert.NotEqual(t, p1.Hash, p4.Hash)
}
