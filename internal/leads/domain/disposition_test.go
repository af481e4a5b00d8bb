package domain

import (
	"testing"

	"callcenter_backend/platform/apperr"

	"github.com/google/uuid"
)

func disp(name string) Disposition {
	return Disposition{ID: uuid.New(), Name: name, IsActive: true}
}

func reason(name string, cat ReasonCategory) *Reason {
	return &Reason{ID: uuid.New(), Name: name, Category: cat, IsActive: true}
}

func ptr(d Disposition) *Disposition { return &d }

func TestResolveDispositionTree(t *testing.T) {
	contacted := disp(FirstLevelContacted)
	notContacted := disp(FirstLevelNotContacted)
	sale := disp(SecondLevelSale)
	noSale := disp(SecondLevelNoSale)
	tooExpensive := reason("Too Expensive", ReasonNoSale)
	noAnswer := reason("No Answer", ReasonNotContacted)

	cases := []struct {
		name    string
		first   Disposition
		second  *Disposition
		third   *Reason
		kind    string
		wantErr string
	}{
		{"contacted only", contacted, nil, nil, "contacted", ""},
		{"not contacted only", notContacted, nil, nil, "not_contacted", ""},
		{"not contacted with reason", notContacted, nil, noAnswer, "not_contacted", ""},
		{"contacted sale", contacted, ptr(sale), nil, "contacted_sale", ""},
		{"contacted no sale", contacted, ptr(noSale), nil, "contacted_no_sale", ""},
		{"contacted no sale with reason", contacted, ptr(noSale), tooExpensive, "contacted_no_sale", ""},
		{"sale under not contacted", notContacted, ptr(sale), nil, "", MsgSaleRequiresContacted},
		{"no sale under not contacted", notContacted, ptr(noSale), tooExpensive, "", MsgSaleRequiresContacted},
		{"reason without sale status", contacted, nil, tooExpensive, "", MsgReasonRequiresSale},
		{"reason under sale", contacted, ptr(sale), tooExpensive, "", MsgReasonRequiresNoSale},
		{"not contacted reason under no sale", contacted, ptr(noSale), noAnswer, "", MsgReasonCategoryMismatch},
		{"no sale reason under not contacted", notContacted, nil, tooExpensive, "", MsgReasonCategoryMismatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state, err := ResolveDisposition(tc.first, tc.second, tc.third)
			if tc.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got state %T", tc.wantErr, state)
				}
				e, ok := apperr.As(err)
				if !ok || e.Kind != apperr.KindValidation || e.Message != tc.wantErr {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if state.Kind() != tc.kind {
				t.Fatalf("kind = %s, want %s", state.Kind(), tc.kind)
			}
		})
	}
}

// Every legal state must flatten to columns that resolve back to the same state.
func TestColumnsRoundTripOverCatalog(t *testing.T) {
	firsts := []Disposition{disp(FirstLevelContacted), disp(FirstLevelNotContacted), disp("Callback Requested")}
	seconds := []*Disposition{nil, ptr(disp(SecondLevelSale)), ptr(disp(SecondLevelNoSale)), ptr(disp("Follow Up"))}
	thirds := []*Reason{nil, reason("Too Expensive", ReasonNoSale), reason("Wrong Number", ReasonNotContacted)}

	legal := 0
	for _, f := range firsts {
		for _, s := range seconds {
			for _, r := range thirds {
				state, err := ResolveDisposition(f, s, r)
				if err != nil {
					if !apperr.Is(err, apperr.KindValidation) {
						t.Fatalf("illegal combination must be a validation error, got %v", err)
					}
					continue
				}
				legal++

				first, second, third := state.Columns()
				if first != f.ID {
					t.Fatalf("first column mismatch for %s", state.Kind())
				}
				if (second == nil) != (s == nil) || (second != nil && *second != s.ID) {
					t.Fatalf("second column mismatch for %s", state.Kind())
				}
				if (third == nil) != (r == nil) || (third != nil && *third != r.ID) {
					t.Fatalf("third column mismatch for %s", state.Kind())
				}
				if third != nil && second == nil && !IsNamed(f.Name, FirstLevelNotContacted) {
					t.Fatalf("reason without sale status accepted under %q", f.Name)
				}
				if second != nil && !IsNamed(f.Name, FirstLevelContacted) {
					t.Fatalf("sale status accepted under %q", f.Name)
				}
			}
		}
	}

	// contacted: 1 + sale + follow up + no sale + no sale/reason = 5
	// not contacted: bare + reason = 2
	// callback requested: bare = 1
	if legal != 8 {
		t.Fatalf("legal combinations = %d, want 8", legal)
	}
}

func TestResolveDispositionRejectsInactiveEntries(t *testing.T) {
	inactive := disp(FirstLevelContacted)
	inactive.IsActive = false
	if _, err := ResolveDisposition(inactive, nil, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for inactive first level, got %v", err)
	}

	sale := disp(SecondLevelSale)
	sale.IsActive = false
	if _, err := ResolveDisposition(disp(FirstLevelContacted), &sale, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for inactive second level, got %v", err)
	}

	r := reason("Wrong Number", ReasonNotContacted)
	r.IsActive = false
	if _, err := ResolveDisposition(disp(FirstLevelNotContacted), nil, r); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for inactive reason, got %v", err)
	}
}

func TestResolveDispositionMatchesNamesCaseInsensitively(t *testing.T) {
	state, err := ResolveDisposition(disp("contacted"), ptr(disp("no sale")), reason("Budget", ReasonNoSale))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := state.(ContactedNoSale); !ok {
		t.Fatalf("state = %T, want ContactedNoSale", state)
	}
}

func TestCanManageLeads(t *testing.T) {
	if CanManageLeads([]string{RoleAgent}) {
		t.Error("agents must not manage leads")
	}
	if !CanManageLeads([]string{RoleAgent, RoleSupervisor}) {
		t.Error("supervisors manage leads")
	}
}

func TestCheckReasonPlacement(t *testing.T) {
	contacted := disp(FirstLevelContacted)
	notContacted := disp(FirstLevelNotContacted)
	sale := disp(SecondLevelSale)
	noSale := disp(SecondLevelNoSale)

	cases := []struct {
		name    string
		first   Disposition
		second  *Disposition
		wantErr string
	}{
		{"not contacted", notContacted, nil, ""},
		{"contacted no sale", contacted, ptr(noSale), ""},
		{"contacted without sale status", contacted, nil, MsgReasonRequiresSale},
		{"sale under not contacted", notContacted, ptr(sale), MsgSaleRequiresContacted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckReasonPlacement(tc.first, tc.second)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			e, ok := apperr.As(err)
			if !ok || e.Kind != apperr.KindValidation || e.Message != tc.wantErr {
				t.Fatalf("got %v, want validation %q", err, tc.wantErr)
			}
		})
	}
}
