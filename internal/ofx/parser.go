// Package ofx parses OFX/QFX bank statements into candidate import rows.
package ofx

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/mkropat/spendwell/internal/importer"
	"github.com/mkropat/spendwell/internal/model"
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocess fixes common formatting issues in OFX files exported by
// real banks.
func (p *Parser) preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Fix missing closing angle brackets in SGML-style OFX files
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// Parse reads an OFX/QFX document and returns one import row per
// statement transaction, assigning each the given category name.
// OFX reports debits as negative amounts; the sign is flipped so that
// spending is positive and credits come through as refunds.
func (p *Parser) Parse(reader io.Reader, category string) ([]importer.Row, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var rows []importer.Row
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			for _, ofxTx := range stmt.BankTranList.Transactions {
				rows = append(rows, p.convertTransaction(ofxTx, category, len(rows)+1))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			for _, ofxTx := range stmt.BankTranList.Transactions {
				rows = append(rows, p.convertTransaction(ofxTx, category, len(rows)+1))
			}
		}
	}

	slog.Info("Parsed OFX file",
		"transactions", len(rows),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return rows, nil
}

// convertTransaction converts an OFX transaction to an import row.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, category string, line int) importer.Row {
	amount := decimal.Zero
	if d, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(2)); err == nil {
		// Debits negative in OFX, positive spending here
		amount = d.Neg()
	}

	description := strings.TrimSpace(string(ofxTx.Name))
	if memo := strings.TrimSpace(string(ofxTx.Memo)); memo != "" && memo != description {
		if description == "" {
			description = memo
		} else {
			description = description + " - " + memo
		}
	}

	return importer.Row{
		Line:        line,
		Date:        ofxTx.DtPosted.Time.Format(model.DateFormat),
		Amount:      amount.String(),
		Category:    category,
		Description: description,
	}
}
