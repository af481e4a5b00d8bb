// Package domain holds the call-outcome rules for leads. It has no storage
// or transport dependencies so the rules can be tested exhaustively.
package domain

import (
	"strings"

	"callcenter_backend/platform/apperr"

	"github.com/google/uuid"
)

// Well-known catalog names that drive the disposition tree.
const (
	FirstLevelContacted    = "Contacted"
	FirstLevelNotContacted = "Not Contacted"
	SecondLevelSale        = "Sale"
	SecondLevelNoSale      = "No Sale"
)

// ReasonCategory tags a third-level reason with the path it belongs to.
type ReasonCategory string

const (
	ReasonNoSale       ReasonCategory = "no_sale"
	ReasonNotContacted ReasonCategory = "not_contacted"
)

// Valid reports whether the category is one of the known values.
func (c ReasonCategory) Valid() bool {
	return c == ReasonNoSale || c == ReasonNotContacted
}

// User-facing validation messages.
const (
	MsgSaleRequiresContacted  = "Sale status can only be set when contact status is Contacted"
	MsgReasonRequiresSale     = "Reason requires a sale status first"
	MsgReasonRequiresNoSale   = "Reason can only be set when sale status is No Sale"
	MsgReasonCategoryMismatch = "Reason does not belong to the selected status"
	msgInactiveContactStatus  = "contact status is inactive"
	msgInactiveSaleStatus     = "sale status is inactive"
	msgInactiveReason         = "reason is inactive"
)

// Disposition is a first- or second-level catalog entry.
type Disposition struct {
	ID       uuid.UUID
	Name     string
	IsActive bool
}

// Reason is a third-level catalog entry.
type Reason struct {
	ID       uuid.UUID
	Name     string
	Category ReasonCategory
	IsActive bool
}

// DispositionState is the resolved outcome of a call. Only the four
// implementations in this package exist, so an illegal combination of
// levels cannot be represented.
type DispositionState interface {
	// Kind is a stable label for logs and metrics.
	Kind() string
	// Columns flattens the state into the three stored disposition ids.
	Columns() (first uuid.UUID, second *uuid.UUID, third *uuid.UUID)
	isDispositionState()
}

// NotContacted: the lead was not reached, optionally with a not_contacted reason.
type NotContacted struct {
	Status Disposition
	Reason *Reason
}

// Contacted: the lead was reached and no sale outcome was recorded.
// Any first-level status other than "Not Contacted" resolves here when
// no second level is given.
type Contacted struct {
	Status Disposition
}

// ContactedSale: the lead was reached and an outcome other than "No Sale" was recorded.
type ContactedSale struct {
	Status  Disposition
	Outcome Disposition
}

// ContactedNoSale: the lead was reached, declined, optionally with a no_sale reason.
type ContactedNoSale struct {
	Status  Disposition
	Outcome Disposition
	Reason  *Reason
}

func (NotContacted) Kind() string    { return "not_contacted" }
func (Contacted) Kind() string       { return "contacted" }
func (ContactedSale) Kind() string   { return "contacted_sale" }
func (ContactedNoSale) Kind() string { return "contacted_no_sale" }

func (s NotContacted) Columns() (uuid.UUID, *uuid.UUID, *uuid.UUID) {
	return s.Status.ID, nil, reasonID(s.Reason)
}

func (s Contacted) Columns() (uuid.UUID, *uuid.UUID, *uuid.UUID) {
	return s.Status.ID, nil, nil
}

func (s ContactedSale) Columns() (uuid.UUID, *uuid.UUID, *uuid.UUID) {
	second := s.Outcome.ID
	return s.Status.ID, &second, nil
}

func (s ContactedNoSale) Columns() (uuid.UUID, *uuid.UUID, *uuid.UUID) {
	second := s.Outcome.ID
	return s.Status.ID, &second, reasonID(s.Reason)
}

func (NotContacted) isDispositionState()    {}
func (Contacted) isDispositionState()       {}
func (ContactedSale) isDispositionState()   {}
func (ContactedNoSale) isDispositionState() {}

// ResolveDisposition validates a selection of catalog entries and returns the
// state it represents. All three entries must already exist; nil means the
// level was not selected.
func ResolveDisposition(first Disposition, second *Disposition, third *Reason) (DispositionState, error) {
	if !first.IsActive {
		return nil, apperr.Validation(msgInactiveContactStatus)
	}

	if second != nil {
		if !IsNamed(first.Name, FirstLevelContacted) {
			return nil, apperr.Validation(MsgSaleRequiresContacted)
		}
		if !second.IsActive {
			return nil, apperr.Validation(msgInactiveSaleStatus)
		}
		return resolveContactedOutcome(first, *second, third)
	}

	if third == nil {
		if IsNamed(first.Name, FirstLevelNotContacted) {
			return NotContacted{Status: first}, nil
		}
		return Contacted{Status: first}, nil
	}

	if !IsNamed(first.Name, FirstLevelNotContacted) {
		return nil, apperr.Validation(MsgReasonRequiresSale)
	}
	if err := checkReason(*third, ReasonNotContacted); err != nil {
		return nil, err
	}
	reason := *third
	return NotContacted{Status: first, Reason: &reason}, nil
}

// CheckReasonPlacement reports whether a reason may be selected under first
// and second, before the reason itself is looked up.
func CheckReasonPlacement(first Disposition, second *Disposition) error {
	if _, err := ResolveDisposition(first, second, nil); err != nil {
		return err
	}
	if second == nil && !IsNamed(first.Name, FirstLevelNotContacted) {
		return apperr.Validation(MsgReasonRequiresSale)
	}
	return nil
}

func resolveContactedOutcome(first, second Disposition, third *Reason) (DispositionState, error) {
	if !IsNamed(second.Name, SecondLevelNoSale) {
		if third != nil {
			return nil, apperr.Validation(MsgReasonRequiresNoSale)
		}
		return ContactedSale{Status: first, Outcome: second}, nil
	}

	if third == nil {
		return ContactedNoSale{Status: first, Outcome: second}, nil
	}
	if err := checkReason(*third, ReasonNoSale); err != nil {
		return nil, err
	}
	reason := *third
	return ContactedNoSale{Status: first, Outcome: second, Reason: &reason}, nil
}

func checkReason(reason Reason, want ReasonCategory) error {
	if reason.Category != want {
		return apperr.Validation(MsgReasonCategoryMismatch).WithDetails(map[string]string{
			"reason":   reason.Name,
			"category": string(reason.Category),
			"expected": string(want),
		})
	}
	if !reason.IsActive {
		return apperr.Validation(msgInactiveReason)
	}
	return nil
}

// IsNamed compares catalog names ignoring case and surrounding whitespace.
func IsNamed(name, want string) bool {
	return strings.EqualFold(strings.TrimSpace(name), want)
}

func reasonID(r *Reason) *uuid.UUID {
	if r == nil {
		return nil
	}
	id := r.ID
	return &id
}
