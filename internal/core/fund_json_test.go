package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFundJSONShape(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantKind  FundKind
		wantGroup string
		wantMonth int
		wantYear  int
	}{
		{
			name:      "flat recurrence fields",
			in:        `{"id":"FUND002_2024_1","title":"Monthly Fund - January 2024","amount":100,"isMandatory":true,"groupId":"FUND002","monthIndex":0,"year":2024,"classification":"Monthly"}`,
			wantKind:  RecurringChildFund,
			wantGroup: "FUND002",
			wantMonth: 0,
			wantYear:  2024,
		},
		{
			name:      "nested recurrence object",
			in:        `{"id":"FUND002_2024_4","title":"Monthly Fund - April 2024","amount":100,"recurrence":{"groupId":"FUND002","monthIndex":3,"year":2024}}`,
			wantKind:  RecurringChildFund,
			wantGroup: "FUND002",
			wantMonth: 3,
			wantYear:  2024,
		},
		{
			name:     "template",
			in:       `{"id":"FUND002","title":"Water Tank","amount":100,"classification":"Monthly"}`,
			wantKind: TemplateFund,
		},
		{
			name:     "standard",
			in:       `{"id":"FUND001","title":"Festival","amount":500,"classification":"Event"}`,
			wantKind: StandardFund,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Fund
			if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
				t.Fatal(err)
			}
			if f.Kind() != tt.wantKind {
				t.Fatalf("kind = %v, want %v", f.Kind(), tt.wantKind)
			}
			if tt.wantGroup == "" {
				if f.Recurrence != nil {
					t.Fatalf("unexpected recurrence %+v", f.Recurrence)
				}
				return
			}
			r := f.Recurrence
			if r.GroupID != tt.wantGroup || r.MonthIndex != tt.wantMonth || r.Year != tt.wantYear {
				t.Fatalf("recurrence = %+v", r)
			}
		})
	}
}

func TestFundMarshalIsFlat(t *testing.T) {
	tpl := Fund{ID: "FUND002", Title: "Water Tank", Amount: Rupees(100), Classification: ClassificationMonthly}
	child := NewRecurringChild(tpl, 2024, 0)

	data, err := json.Marshal(child)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{`"groupId":"FUND002"`, `"monthIndex":0`, `"year":2024`} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %s in %s", want, s)
		}
	}
	if strings.Contains(s, `"recurrence"`) {
		t.Errorf("nested recurrence written: %s", s)
	}

	var back Fund
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Kind() != RecurringChildFund || *back.Recurrence != *child.Recurrence {
		t.Fatalf("round trip lost recurrence: %+v", back.Recurrence)
	}

	data, err = json.Marshal(tpl)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "groupId") || strings.Contains(string(data), "monthIndex") {
		t.Errorf("template should carry no recurrence fields: %s", data)
	}
}
