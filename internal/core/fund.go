package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FundKind separates the three shapes a Fund record can take.
type FundKind int

const (
	// StandardFund is directly payable and has no recurrence.
	StandardFund FundKind = iota
	// TemplateFund is a Monthly fund without a parent link. It only drives
	// generation and is never payable itself.
	TemplateFund
	// RecurringChildFund is one dated month generated from a template.
	RecurringChildFund
)

func (k FundKind) String() string {
	switch k {
	case TemplateFund:
		return "template"
	case RecurringChildFund:
		return "recurring"
	default:
		return "standard"
	}
}

// Recurrence links a generated monthly fund back to its template.
type Recurrence struct {
	GroupID    string `json:"groupId"`
	MonthIndex int    `json:"monthIndex"` // 0-11
	Year       int    `json:"year"`
}

type Fund struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Amount           Money          `json:"amount"`
	Type             string         `json:"type,omitempty"`
	Classification   Classification `json:"classification"`
	IsMandatory      bool           `json:"isMandatory"`
	Priority         Priority       `json:"priority,omitempty"`
	Deadline         Date           `json:"deadline"`
	CreatedDate      Date           `json:"createdDate"`
	IsPublic         bool           `json:"isPublic"`
	AffectedFamilyID string         `json:"affectedFamilyId,omitempty"`
	// Recurrence is written as flat groupId, monthIndex and year fields.
	Recurrence *Recurrence `json:"-"`
}

// fundRecord is the wire shape of a Fund.
type fundRecord struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Amount           Money          `json:"amount"`
	Type             string         `json:"type,omitempty"`
	Classification   Classification `json:"classification"`
	IsMandatory      bool           `json:"isMandatory"`
	Priority         Priority       `json:"priority,omitempty"`
	Deadline         Date           `json:"deadline"`
	CreatedDate      Date           `json:"createdDate"`
	IsPublic         bool           `json:"isPublic"`
	AffectedFamilyID string         `json:"affectedFamilyId,omitempty"`
	GroupID          string         `json:"groupId,omitempty"`
	MonthIndex       *int           `json:"monthIndex,omitempty"`
	Year             int            `json:"year,omitempty"`
	// Nested form kept readable for snapshots written before the flat fields.
	Recurrence *Recurrence `json:"recurrence,omitempty"`
}

func (f Fund) MarshalJSON() ([]byte, error) {
	rec := fundRecord{
		ID:               f.ID,
		Title:            f.Title,
		Description:      f.Description,
		Amount:           f.Amount,
		Type:             f.Type,
		Classification:   f.Classification,
		IsMandatory:      f.IsMandatory,
		Priority:         f.Priority,
		Deadline:         f.Deadline,
		CreatedDate:      f.CreatedDate,
		IsPublic:         f.IsPublic,
		AffectedFamilyID: f.AffectedFamilyID,
	}
	if r := f.Recurrence; r != nil {
		month := r.MonthIndex
		rec.GroupID, rec.MonthIndex, rec.Year = r.GroupID, &month, r.Year
	}
	return json.Marshal(rec)
}

func (f *Fund) UnmarshalJSON(b []byte) error {
	var rec fundRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	*f = Fund{
		ID:               rec.ID,
		Title:            rec.Title,
		Description:      rec.Description,
		Amount:           rec.Amount,
		Type:             rec.Type,
		Classification:   rec.Classification,
		IsMandatory:      rec.IsMandatory,
		Priority:         rec.Priority,
		Deadline:         rec.Deadline,
		CreatedDate:      rec.CreatedDate,
		IsPublic:         rec.IsPublic,
		AffectedFamilyID: rec.AffectedFamilyID,
	}
	switch {
	case rec.GroupID != "":
		r := &Recurrence{GroupID: rec.GroupID, Year: rec.Year}
		if rec.MonthIndex != nil {
			r.MonthIndex = *rec.MonthIndex
		}
		f.Recurrence = r
	case rec.Recurrence != nil && rec.Recurrence.GroupID != "":
		r := *rec.Recurrence
		f.Recurrence = &r
	}
	return nil
}

var (
	ErrInvalidMonthIndex = errors.New("month index must be between 0 and 11")
	ErrInvalidYear       = errors.New("invalid year")
	ErrTemplateChain     = errors.New("recurring fund cannot point at itself")
	ErrNegativeAmount    = errors.New("amount cannot be negative")
)

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the English month name for a 0-based month index.
func MonthName(monthIndex int) string {
	if monthIndex < 0 || monthIndex > 11 {
		return ""
	}
	return monthNames[monthIndex]
}

// Kind reports which variant the record is.
func (f Fund) Kind() FundKind {
	if f.Recurrence != nil && f.Recurrence.GroupID != "" {
		return RecurringChildFund
	}
	if f.Classification == ClassificationMonthly || strings.EqualFold(f.Type, "Monthly") {
		return TemplateFund
	}
	return StandardFund
}

// Payable reports whether the ledger treats the fund as a due.
func (f Fund) Payable() bool {
	return f.Kind() != TemplateFund
}

func (f Fund) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(f.Title) == "" {
		return ErrEmptyTitle
	}
	if f.Amount.Cents < 0 {
		return ErrNegativeAmount
	}
	if f.Recurrence == nil {
		return nil
	}
	r := f.Recurrence
	if r.GroupID == f.ID {
		return ErrTemplateChain
	}
	if r.MonthIndex < 0 || r.MonthIndex > 11 {
		return ErrInvalidMonthIndex
	}
	if r.Year < 1 {
		return ErrInvalidYear
	}
	return nil
}

// ChildFundID is the deterministic id of the generated fund for a template month.
func ChildFundID(templateID string, year, monthIndex int) string {
	return fmt.Sprintf("%s_%d_%d", templateID, year, monthIndex+1)
}

// ParseChildFundID splits a generated fund id back into its template id,
// year and 0-based month index.
func ParseChildFundID(id string) (templateID string, year, monthIndex int, ok bool) {
	last := strings.LastIndex(id, "_")
	if last <= 0 {
		return "", 0, 0, false
	}
	month, err := strconv.Atoi(id[last+1:])
	if err != nil || month < 1 || month > 12 {
		return "", 0, 0, false
	}
	rest := id[:last]
	prev := strings.LastIndex(rest, "_")
	if prev <= 0 {
		return "", 0, 0, false
	}
	y, err := strconv.Atoi(rest[prev+1:])
	if err != nil || len(rest[prev+1:]) != 4 {
		return "", 0, 0, false
	}
	return rest[:prev], y, month - 1, true
}

// NewRecurringChild builds the fund generated for one month of a template.
func NewRecurringChild(template Fund, year, monthIndex int) Fund {
	return Fund{
		ID:             ChildFundID(template.ID, year, monthIndex),
		Title:          fmt.Sprintf("Monthly Fund - %s %d", MonthName(monthIndex), year),
		Description:    template.Description,
		Amount:         template.Amount,
		Type:           "Monthly",
		Classification: ClassificationMonthly,
		IsMandatory:    template.IsMandatory,
		Priority:       template.Priority,
		Deadline:       NewDate(year, 12, 31),
		CreatedDate:    NewDate(year, monthIndex+1, 1),
		IsPublic:       true,
		Recurrence: &Recurrence{
			GroupID:    template.ID,
			MonthIndex: monthIndex,
			Year:       year,
		},
	}
}
