package ledger

import (
	"cmp"
	"slices"

	"vfms/internal/core"
)

// CompareDues is the allocation order: mandatory first, then earliest
// deadline (undated last), then higher priority, then oldest createdDate
// (undated first).
func CompareDues(a, b core.DueStatus) int {
	fa, fb := a.Fund, b.Fund
	if fa.IsMandatory != fb.IsMandatory {
		if fa.IsMandatory {
			return -1
		}
		return 1
	}
	if c := compareDeadline(fa.Deadline, fb.Deadline); c != 0 {
		return c
	}
	if c := cmp.Compare(fb.Priority.Rank(), fa.Priority.Rank()); c != 0 {
		return c
	}
	return compareCreated(fa.CreatedDate, fb.CreatedDate)
}

func compareDeadline(a, b core.Date) int {
	switch {
	case a.IsEmpty() && b.IsEmpty():
		return 0
	case a.IsEmpty():
		return 1
	case b.IsEmpty():
		return -1
	}
	return a.Compare(b.Time)
}

func compareCreated(a, b core.Date) int {
	switch {
	case a.IsEmpty() && b.IsEmpty():
		return 0
	case a.IsEmpty():
		return -1
	case b.IsEmpty():
		return 1
	}
	return a.Compare(b.Time)
}

// SortDues orders dues for allocation. Equal keys keep their input order.
func SortDues(dues []core.DueStatus) {
	slices.SortStableFunc(dues, CompareDues)
}
