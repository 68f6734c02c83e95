package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"500", 50000, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		m    Money
		want string
	}{
		{Rupees(800), "₹800"},
		{Money{Cents: 1250}, "₹12.50"},
		{Money{Cents: 5}, "₹0.05"},
		{Money{Cents: -300}, "₹-3"},
	}
	for _, tc := range cases {
		if got := tc.m.String(); got != tc.want {
			t.Fatalf("%d: want %q got %q", tc.m.Cents, tc.want, got)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":500,"b":"12.5","c":0}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A.Cents != 50000 || v.B.Cents != 1250 || v.C.Cents != 0 {
		t.Fatalf("unexpected cents: %+v", v)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":500,"b":12.50,"c":0}` {
		t.Fatalf("unexpected json: %s", out)
	}
	if err := json.Unmarshal([]byte(`{"a":-5}`), &v); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestDateJSON(t *testing.T) {
	var v struct {
		D Date `json:"d"`
		E Date `json:"e"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2024-12-31","e":null}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.D.Year() != 2024 || v.D.Month() != 12 || v.D.Day() != 31 {
		t.Fatalf("unexpected date %v", v.D)
	}
	if !v.E.IsEmpty() {
		t.Fatalf("expected empty date")
	}
	out, _ := json.Marshal(v)
	if string(out) != `{"d":"2024-12-31","e":null}` {
		t.Fatalf("unexpected json: %s", out)
	}
	if _, err := ParseDate("31/12/2024"); err == nil {
		t.Fatalf("expected parse error")
	}
}
