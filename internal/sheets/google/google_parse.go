package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ports "fintrack/internal/sheets"
)

// parseLedgerRows converts a values matrix (as returned by the Sheets API)
// into ledger rows for email. The header row and malformed rows are skipped.
func parseLedgerRows(values [][]any, email string) []ports.LedgerRow {
	var out []ports.LedgerRow
	for _, raw := range values {
		cols := toStrings(raw)
		if len(cols) < 3 {
			continue
		}
		at, err := time.Parse(time.RFC3339, cols[0])
		if err != nil {
			// header or hand-edited row
			continue
		}
		if !strings.EqualFold(cols[1], email) {
			continue
		}
		row := ports.LedgerRow{
			OccurredAt: at.UTC(),
			Email:      cols[1],
			Event:      cols[2],
			Index:      -1,
			Date:       safeGet(cols, 4),
			Type:       safeGet(cols, 5),
			Category:   safeGet(cols, 6),
		}
		if i, err := strconv.Atoi(safeGet(cols, 3)); err == nil {
			row.Index = i
		}
		if amt, ok := parseAmount(safeGet(cols, 7)); ok {
			row.Amount = &amt
		}
		out = append(out, row)
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseAmount accepts sheet-formatted numbers, including a decimal comma.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
