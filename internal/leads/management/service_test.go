package management

import (
	"context"
	"errors"
	"sync"
	"testing"

	"callcenter_backend/internal/leads/dedupe"
	"callcenter_backend/internal/leads/domain"
	"callcenter_backend/internal/leads/leadstest"
	"callcenter_backend/internal/leads/repository"
	"callcenter_backend/internal/leads/transport"
	"callcenter_backend/platform/apperr"

	"github.com/google/uuid"
)

type regionConfig string

func (r regionConfig) GetPhoneDefaultRegion() string { return string(r) }

func newService(store *leadstest.Store, bus *leadstest.Bus) *Service {
	return New(store, dedupe.New(store, nil, nil, nil), bus, regionConfig("US"), nil)
}

func TestCreateLead(t *testing.T) {
	store := leadstest.NewStore()
	bus := leadstest.NewBus()
	svc := newService(store, bus)

	resp, err := svc.CreateLead(context.Background(), transport.CreateLeadRequest{FullName: "Alice", PhoneNumber: " +1 555 0101 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.PhoneNumber != "+15550101" || resp.Source != domain.SourcePublic {
		t.Fatalf("unexpected lead %+v", resp)
	}
	if resp.CampaignID != nil || resp.AssignedToID != nil {
		t.Fatal("public leads carry no campaign and no agent")
	}
	if names := bus.Names(); len(names) != 1 || names[0] != "leads.lead.created" {
		t.Fatalf("unexpected events %v", names)
	}

	_, err = svc.CreateLead(context.Background(), transport.CreateLeadRequest{FullName: "Again", PhoneNumber: "+15550101"})
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindConflict || e.Message != msgDuplicatePhone {
		t.Fatalf("got %v, want duplicate conflict", err)
	}
}

func TestCreateLeadMapsStorageErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{name: "lost race on unique phone", err: repository.ErrDuplicatePhone, want: apperr.KindConflict},
		{name: "unknown product", err: repository.ErrNotFound, want: apperr.KindValidation},
		{name: "storage failure", err: errors.New("connection reset"), want: apperr.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := leadstest.NewStore()
			store.Fail["CreateLead"] = tt.err
			svc := newService(store, leadstest.NewBus())

			_, err := svc.CreateLead(context.Background(), transport.CreateLeadRequest{FullName: "Bob", PhoneNumber: "555-0102"})
			if !apperr.Is(err, tt.want) {
				t.Fatalf("got %v, want kind %v", err, tt.want)
			}
			if tt.want == apperr.KindInternal {
				if e, _ := apperr.As(err); e.Message != "internal server error" {
					t.Fatalf("storage detail leaked: %q", e.Message)
				}
			}
		})
	}
}

func TestQuickEntry(t *testing.T) {
	store := leadstest.NewStore()
	bus := leadstest.NewBus()
	svc := newService(store, bus)
	agent := store.AddUser("Ava", domain.RoleAgent, true)
	campaign := store.AddCampaign("Inbound", true, nil)
	notes := "called back"

	resp, err := svc.QuickEntry(context.Background(), campaign.ID, transport.QuickEntryRequest{FullName: "Carol", PhoneNumber: "0612 345 678", Notes: &notes}, agent.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.CampaignID == nil || *resp.CampaignID != campaign.ID {
		t.Fatal("lead not bound to campaign")
	}
	if resp.AssignedToID == nil || *resp.AssignedToID != agent.ID {
		t.Fatal("lead not assigned to the entering agent")
	}
	if resp.Notes == nil || *resp.Notes != notes || resp.Source != domain.SourceQuickEntry {
		t.Fatalf("unexpected lead %+v", resp)
	}
	if got := store.Campaign(campaign.ID).LeadCount; got != 1 {
		t.Fatalf("lead_count = %d, want 1", got)
	}
}

func TestQuickEntryFailures(t *testing.T) {
	store := leadstest.NewStore()
	agent := store.AddUser("Ava", domain.RoleAgent, true)
	active := store.AddCampaign("Inbound", true, nil)
	inactive := store.AddCampaign("Closed", false, nil)
	store.AddLead(repository.Lead{FullName: "Existing", PhoneNumber: "0611111111"})

	tests := []struct {
		name       string
		campaignID uuid.UUID
		phone      string
		fail       string
		want       apperr.Kind
	}{
		{name: "unknown campaign", campaignID: uuid.New(), phone: "0622222222", want: apperr.KindNotFound},
		{name: "inactive campaign", campaignID: inactive.ID, phone: "0622222222", want: apperr.KindValidation},
		{name: "duplicate phone", campaignID: active.ID, phone: "06 1111 1111", want: apperr.KindConflict},
		{name: "blank phone", campaignID: active.ID, phone: "   ", want: apperr.KindValidation},
		{name: "counter failure", campaignID: active.ID, phone: "0633333333", fail: "IncrementLeadCount", want: apperr.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delete(store.Fail, "IncrementLeadCount")
			if tt.fail != "" {
				store.Fail[tt.fail] = errors.New("boom")
			}
			svc := newService(store, leadstest.NewBus())

			_, err := svc.QuickEntry(context.Background(), tt.campaignID, transport.QuickEntryRequest{FullName: "Dan", PhoneNumber: tt.phone}, agent.ID)
			if !apperr.Is(err, tt.want) {
				t.Fatalf("got %v, want kind %v", err, tt.want)
			}
		})
	}

	if got := store.Campaign(active.ID).LeadCount; got != 0 {
		t.Fatalf("lead_count = %d after failed entries", got)
	}
	if got := store.CountCampaignLeads(active.ID); got != 0 {
		t.Fatalf("%d leads left behind by rolled back entries", got)
	}
}

func TestGetLead(t *testing.T) {
	store := leadstest.NewStore()
	svc := newService(store, leadstest.NewBus())
	lead := store.AddLead(repository.Lead{FullName: "Erin", PhoneNumber: "0644444444"})

	got, err := svc.GetLead(context.Background(), lead.ID)
	if err != nil || got.ID != lead.ID {
		t.Fatalf("got %+v, %v", got, err)
	}
	if _, err := svc.GetLead(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestCheckDuplicate(t *testing.T) {
	store := leadstest.NewStore()
	svc := newService(store, leadstest.NewBus())
	store.AddLead(repository.Lead{FullName: "Frank", PhoneNumber: "+16502530000"})

	tests := []struct {
		name      string
		phone     string
		duplicate bool
		hint      string
	}{
		{name: "whitespace variant of stored number", phone: "+1 650 253 0000", duplicate: true, hint: "+16502530000"},
		{name: "punctuation is not stripped", phone: "+1-650-253-0000", duplicate: false, hint: "+16502530000"},
		{name: "unparseable number has no hint", phone: "abc", duplicate: false, hint: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CheckDuplicate(context.Background(), tt.phone)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.IsDuplicate != tt.duplicate || got.E164Hint != tt.hint {
				t.Fatalf("got %+v", got)
			}
		})
	}

	if _, err := svc.CheckDuplicate(context.Background(), " "); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("blank phone: got %v", err)
	}
}

func TestConcurrentCreatesKeepPhoneUnique(t *testing.T) {
	const workers = 8

	store := leadstest.NewStore()
	bus := leadstest.NewBus()
	svc := newService(store, bus)

	start := make(chan struct{})
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.CreateLead(context.Background(), transport.CreateLeadRequest{FullName: "Web", PhoneNumber: "0655 555 555"})
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	created, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			created++
		case apperr.Is(err, apperr.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if created != 1 || conflicts != workers-1 {
		t.Fatalf("created=%d conflicts=%d, want 1 and %d", created, conflicts, workers-1)
	}
	if got := len(store.Leads); got != 1 {
		t.Fatalf("stored leads = %d, want 1", got)
	}
	if got := len(bus.Names()); got != 1 {
		t.Fatalf("published %d events, want 1", got)
	}
}

func TestConcurrentQuickEntriesCountOnce(t *testing.T) {
	const workers = 6

	store := leadstest.NewStore()
	agent := store.AddUser("Ava", domain.RoleAgent, true)
	campaign := store.AddCampaign("Inbound", true, nil)
	svc := newService(store, leadstest.NewBus())

	start := make(chan struct{})
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.QuickEntry(context.Background(), campaign.ID, transport.QuickEntryRequest{FullName: "Desk", PhoneNumber: "0677777777"}, agent.ID)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		if !apperr.Is(err, apperr.KindConflict) {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	if got := store.Campaign(campaign.ID).LeadCount; got != 1 {
		t.Fatalf("lead_count = %d, want 1", got)
	}
}
