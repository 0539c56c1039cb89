package ofx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
<DTSERVER>20240315120000[0:GMT]
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
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>125.00
<FITID>2024012001
<NAME>REFUND Whole Foods Market
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParse_BankStatement(t *testing.T) {
	parser := NewParser()

	rows, err := parser.Parse(strings.NewReader(sampleBankOFX), "Uncategorized")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Debit becomes positive spending
	assert.Equal(t, "2024-01-15", rows[0].Date)
	assert.Equal(t, "25.5", rows[0].Amount)
	assert.Equal(t, "Uncategorized", rows[0].Category)
	assert.Equal(t, "STARBUCKS STORE #1234", rows[0].Description)
	assert.Equal(t, 1, rows[0].Line)

	// Credit becomes a negative amount (refund)
	assert.Equal(t, "-125", rows[1].Amount)
	assert.Equal(t, 2, rows[1].Line)
}

func TestParse_InvalidData(t *testing.T) {
	parser := NewParser()

	_, err := parser.Parse(strings.NewReader("this is not an OFX file"), "Uncategorized")
	assert.Error(t, err)
}

func TestPreprocess(t *testing.T) {
	parser := NewParser()

	t.Run("fixes mixed-case severity", func(t *testing.T) {
		input := "<SEVERITY>Info</SEVERITY>"
		assert.Equal(t, "<SEVERITY>INFO</SEVERITY>", parser.preprocess(input))
	})

	t.Run("adds missing closing brackets", func(t *testing.T) {
		input := "<DTSERVER\n"
		assert.Equal(t, "<DTSERVER>\n", parser.preprocess(input))
	})

	t.Run("trims leading blank lines", func(t *testing.T) {
		input := "\n\n  OFXHEADER:100"
		assert.Equal(t, "OFXHEADER:100", parser.preprocess(input))
	})
}
