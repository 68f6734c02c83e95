package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"vfms/internal/core"
	"vfms/internal/ledger"
)

var (
	paymentHeader = []any{"Date", "Payment ID", "Household", "Fund", "Amount", "Method", "Details", "Recorded At"}
	summaryHeader = []any{"Household", "Head", "Total Due", "Total Paid", "Pending", "Compliance %"}
)

func paymentRow(p core.Payment) []any {
	return []any{
		p.Date.Format("2006-01-02"),
		p.ID,
		p.FamilyID,
		p.FundID,
		p.Amount.Decimal(),
		string(p.Method),
		p.Details,
		p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// summaryValues renders the whole summary sheet: header, one row per
// household and a trailing generation stamp.
func summaryValues(rows []ledger.HouseholdSummary, generatedAt time.Time) [][]any {
	out := make([][]any, 0, len(rows)+3)
	out = append(out, summaryHeader)
	for _, r := range rows {
		out = append(out, []any{
			r.Household.ID,
			r.Household.HeadName,
			r.TotalDue.Decimal(),
			r.TotalPaid.Decimal(),
			r.TotalPending.Decimal(),
			strconv.FormatFloat(r.ComplianceRate, 'f', 1, 64),
		})
	}
	out = append(out, []any{}, []any{"Generated at", generatedAt.UTC().Format(time.RFC3339)})
	return out
}

// paymentsByYear groups payments by calendar year, keeping first-seen order.
func paymentsByYear(payments []core.Payment) ([]int, map[int][]core.Payment) {
	var years []int
	groups := make(map[int][]core.Payment)
	for _, p := range payments {
		y := p.Date.Year()
		if _, ok := groups[y]; !ok {
			years = append(years, y)
		}
		groups[y] = append(groups[y], p)
	}
	return years, groups
}

func headerMatches(got []any, want []any) bool {
	if len(got) < len(want) {
		return false
	}
	g := toStrings(got)
	for i, w := range want {
		if !strings.EqualFold(g[i], fmt.Sprint(w)) {
			return false
		}
	}
	return true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// sheetOf returns the sheet part of an A1 range such as "Payments!A:H".
func sheetOf(rng string) string {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		return strings.Trim(rng[:i], "'")
	}
	return rng
}
