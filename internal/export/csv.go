// Package export implements the CSV round-trip surfaces: purchase export and
// import, and the budget import format.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/marchbank/pennywort/internal/model"
)

// Import errors. Parse failures wrap ErrParse with row detail.
var (
	ErrInvalidFormat = errors.New("invalid file format")
	ErrParse         = errors.New("data parsing error")
	ErrFileAccess    = errors.New("file access error")
)

const (
	purchaseHeader = "Date,Amount,Category,Note"
	budgetHeader   = "Year,Month,Category,Amount,IsHistorical"
	dateLayout     = "2006-01-02"
)

// sanitizeField makes a value safe for an unquoted CSV cell. Embedded commas
// become semicolons; the escaping is lossy and not undone on import.
func sanitizeField(s string) string {
	return strings.ReplaceAll(s, ",", ";")
}

// WritePurchases writes purchases as Date,Amount,Category,Note rows.
func WritePurchases(w io.Writer, purchases []model.Purchase) error {
	buf := bufio.NewWriter(w)

	if _, err := fmt.Fprintln(buf, purchaseHeader); err != nil {
		return fmt.Errorf("%w: %v", ErrFileAccess, err)
	}

	for _, p := range purchases {
		_, err := fmt.Fprintf(buf, "%s,%.2f,%s,%s\n",
			p.Date.Format(dateLayout),
			p.Amount,
			sanitizeField(p.Category),
			sanitizeField(p.Note))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFileAccess, err)
		}
	}

	if err := buf.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	return nil
}

// ParsePurchases reads the four-column purchase format back. Blank lines are
// skipped; any malformed row aborts the parse with row detail.
func ParsePurchases(r io.Reader) ([]model.Purchase, error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFileAccess, err)
		}
		return nil, fmt.Errorf("%w: empty file", ErrInvalidFormat)
	}
	if header := strings.TrimSpace(scanner.Text()); header != purchaseHeader {
		return nil, fmt.Errorf("%w: expected header %q, got %q", ErrInvalidFormat, purchaseHeader, header)
	}

	var purchases []model.Purchase
	line := 1
	for scanner.Scan() {
		line++
		row := strings.TrimSpace(scanner.Text())
		if row == "" {
			continue
		}

		fields := strings.Split(row, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("%w: line %d: expected 4 fields, got %d", ErrParse, line, len(fields))
		}

		date, err := time.Parse(dateLayout, strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad date %q", ErrParse, line, fields[0])
		}

		amount, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad amount %q", ErrParse, line, fields[1])
		}

		p := model.Purchase{
			Date:     date,
			Amount:   amount,
			Category: strings.TrimSpace(fields[2]),
			Note:     strings.TrimSpace(fields[3]),
		}
		p.Hash = p.GenerateHash()
		purchases = append(purchases, p)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	return purchases, nil
}

// WriteBudgets writes budget entries in the Year,Month,Category,Amount,IsHistorical format.
func WriteBudgets(w io.Writer, entries []model.BudgetEntry) error {
	buf := bufio.NewWriter(w)

	if _, err := fmt.Fprintln(buf, budgetHeader); err != nil {
		return fmt.Errorf("%w: %v", ErrFileAccess, err)
	}

	for _, e := range entries {
		_, err := fmt.Fprintf(buf, "%d,%d,%s,%.2f,%t\n",
			e.Year, e.Month, sanitizeField(e.Category), e.Amount, e.IsHistorical)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFileAccess, err)
		}
	}

	if err := buf.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	return nil
}

// ParseBudgets reads the five-column budget format back.
func ParseBudgets(r io.Reader) ([]model.BudgetEntry, error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFileAccess, err)
		}
		return nil, fmt.Errorf("%w: empty file", ErrInvalidFormat)
	}
	if header := strings.TrimSpace(scanner.Text()); header != budgetHeader {
		return nil, fmt.Errorf("%w: expected header %q, got %q", ErrInvalidFormat, budgetHeader, header)
	}

	var entries []model.BudgetEntry
	line := 1
	for scanner.Scan() {
		line++
		row := strings.TrimSpace(scanner.Text())
		if row == "" {
			continue
		}

		fields := strings.Split(row, ",")
		if len(fields) != 5 {
			return nil, fmt.Errorf("%w: line %d: expected 5 fields, got %d", ErrParse, line, len(fields))
		}

		year, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad year %q", ErrParse, line, fields[0])
		}

		month, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil || month < 1 || month > 12 {
			return nil, fmt.Errorf("%w: line %d: bad month %q", ErrParse, line, fields[1])
		}

		amount, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad amount %q", ErrParse, line, fields[3])
		}

		historical, err := strconv.ParseBool(strings.TrimSpace(fields[4]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad historical flag %q", ErrParse, line, fields[4])
		}

		entries = append(entries, model.BudgetEntry{
			Year:         year,
			Month:        month,
			Category:     strings.TrimSpace(fields[2]),
			Amount:       amount,
			IsHistorical: historical,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	return entries, nil
}
