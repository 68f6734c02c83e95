package google

import (
	"testing"
	"time"

	"vfms/internal/core"
	"vfms/internal/ledger"
)

func TestPaymentRow(t *testing.T) {
	p := core.Payment{
		ID:        "p-1",
		FamilyID:  "FAM001",
		FundID:    "FUND002",
		Amount:    core.Money{Cents: 125050},
		Date:      time.Date(2024, 3, 9, 15, 4, 0, 0, time.UTC),
		Method:    core.MethodUPI,
		Details:   "UPI: ram@okbank",
		CreatedAt: time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC),
	}
	got := toStrings(paymentRow(p))
	want := []string{"2024-03-09", "p-1", "FAM001", "FUND002", "1250.50", "UPI", "UPI: ram@okbank", "2024-03-09T15:04:05Z"}
	if len(got) != len(want) || len(got) != len(paymentHeader) {
		t.Fatalf("row = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("col %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSummaryValues(t *testing.T) {
	rows := []ledger.HouseholdSummary{{
		Household:      core.Household{ID: "FAM001", HeadName: "Ramasamy"},
		TotalDue:       core.Rupees(800),
		TotalPaid:      core.Rupees(500),
		TotalPending:   core.Rupees(300),
		ComplianceRate: 62.5,
	}}
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	values := summaryValues(rows, at)

	if len(values) != 4 {
		t.Fatalf("got %d rows", len(values))
	}
	if !headerMatches(values[0], summaryHeader) {
		t.Errorf("header = %v", values[0])
	}
	got := toStrings(values[1])
	want := []string{"FAM001", "Ramasamy", "800", "500", "300", "62.5"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("col %d = %q, want %q", i, got[i], want[i])
		}
	}
	if stamp := toStrings(values[3]); stamp[1] != "2024-05-01T08:00:00Z" {
		t.Errorf("stamp = %v", stamp)
	}
}

func TestPaymentsByYear(t *testing.T) {
	payments := []core.Payment{
		{ID: "a", Date: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
		{ID: "b", Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "c", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	years, groups := paymentsByYear(payments)
	if len(years) != 2 || years[0] != 2024 || years[1] != 2025 {
		t.Fatalf("years = %v", years)
	}
	if len(groups[2024]) != 2 || groups[2024][1].ID != "c" {
		t.Errorf("2024 = %+v", groups[2024])
	}
}

func TestHeaderMatches(t *testing.T) {
	tests := []struct {
		name string
		got  []any
		want bool
	}{
		{"exact", paymentHeader, true},
		{"case and spacing", []any{" date", "PAYMENT ID", "Household", "Fund", "Amount", "Method", "Details", "Recorded At", "extra"}, true},
		{"short", []any{"Date"}, false},
		{"different", []any{"Month", "Day", "Description", "Amount", "", "", "Primary", "Secondary"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := headerMatches(tt.got, paymentHeader); got != tt.want {
				t.Errorf("headerMatches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"Payments", "2024 Payments"},
		{"  Payments ", "2024 Payments"},
		{"2023 Payments", "2023 Payments"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, 2024); got != tt.want {
			t.Errorf("yearPrefixedName(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestSheetOf(t *testing.T) {
	if got := sheetOf("2024 Payments!A:H"); got != "2024 Payments" {
		t.Errorf("got %q", got)
	}
	if got := sheetOf("'Summary'!A1"); got != "Summary" {
		t.Errorf("got %q", got)
	}
	if got := sheetOf("Summary"); got != "Summary" {
		t.Errorf("got %q", got)
	}
}
