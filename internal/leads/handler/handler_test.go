package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"callcenter_backend/internal/leads/assignment"
	"callcenter_backend/internal/leads/dedupe"
	"callcenter_backend/internal/leads/disposition"
	"callcenter_backend/internal/leads/domain"
	"callcenter_backend/internal/leads/leadstest"
	"callcenter_backend/internal/leads/management"
	"callcenter_backend/internal/leads/pools"
	"callcenter_backend/internal/leads/repository"
	"callcenter_backend/platform/httpkit"
	"callcenter_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type testConfig struct{}

func (testConfig) GetImportDefaultSector() string { return "General" }
func (testConfig) GetImportMaxRows() int          { return 100 }
func (testConfig) GetPhoneDefaultRegion() string  { return "US" }

type testServer struct {
	store  *leadstest.Store
	engine *gin.Engine
}

// newTestServer mounts every lead route. The X-Test-User and X-Test-Role
// headers stand in for a verified access token.
func newTestServer() testServer {
	gin.SetMode(gin.TestMode)
	store := leadstest.NewStore()
	bus := leadstest.NewBus()
	val := validator.New()
	dupes := dedupe.New(store, nil, nil, nil)

	intake := management.New(store, dupes, bus, testConfig{}, nil)
	h := New(disposition.New(store, bus, nil), assignment.New(store, bus, nil), intake, val)
	ph := NewPoolHandler(pools.New(store, dupes, nil, bus, testConfig{}, nil), val, 1<<20)
	ih := NewIntakeHandler(intake, val)

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	ih.RegisterPublicRoutes(v1.Group("/public"))

	protected := v1.Group("", fakeAuth)
	h.RegisterRoutes(protected)
	ih.RegisterAgentRoutes(protected.Group("", httpkit.RequireRole(domain.RoleAgent)))

	supervisors := protected.Group("", httpkit.RequireAnyRole(domain.RoleAdmin, domain.RoleSupervisor))
	h.RegisterSupervisorRoutes(supervisors)
	ph.RegisterRoutes(supervisors.Group("/pools"))

	return testServer{store: store, engine: engine}
}

func fakeAuth(c *gin.Context) {
	id, err := uuid.Parse(c.GetHeader("X-Test-User"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(httpkit.ContextUserIDKey, id)
	c.Set(httpkit.ContextRolesKey, []string{c.GetHeader("X-Test-Role")})
	c.Next()
}

func (s testServer) do(t *testing.T, method, path string, user *repository.User, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("X-Test-User", user.ID.String())
		req.Header.Set("X-Test-Role", user.Role)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestUpdateDispositionRoute(t *testing.T) {
	s := newTestServer()
	agent := s.store.AddUser("Ava", domain.RoleAgent, true)
	other := s.store.AddUser("Ben", domain.RoleAgent, true)
	supervisor := s.store.AddUser("Sue", domain.RoleSupervisor, true)
	contacted := s.store.AddFirstLevel(domain.FirstLevelContacted, true)
	sale := s.store.AddSecondLevel(domain.SecondLevelSale, true)
	lead := s.store.AddLead(repository.Lead{FullName: "Alice", PhoneNumber: "1", AssignedToID: &agent.ID})
	path := "/api/v1/leads/" + lead.ID.String() + "/disposition"
	body := map[string]interface{}{"firstLevelDispositionId": contacted.ID, "secondLevelDispositionId": sale.ID}

	tests := []struct {
		name string
		path string
		user *repository.User
		body interface{}
		want int
	}{
		{name: "assigned agent", path: path, user: &agent, body: body, want: http.StatusOK},
		{name: "supervisor on any lead", path: path, user: &supervisor, body: body, want: http.StatusOK},
		{name: "other agent", path: path, user: &other, body: body, want: http.StatusForbidden},
		{name: "missing first level", path: path, user: &agent, body: map[string]interface{}{}, want: http.StatusBadRequest},
		{name: "malformed id", path: "/api/v1/leads/nope/disposition", user: &agent, body: body, want: http.StatusBadRequest},
		{name: "unknown lead", path: "/api/v1/leads/" + uuid.NewString() + "/disposition", user: &supervisor, body: body, want: http.StatusNotFound},
		{name: "anonymous", path: path, body: body, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPut, tt.path, tt.user, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec := s.do(t, http.MethodPut, path, &agent, body)
	var resp struct {
		State string `json:"state"`
	}
	decode(t, rec, &resp)
	if resp.State != "contacted_sale" {
		t.Fatalf("state = %q", resp.State)
	}
}

func TestAssignmentRoutesRequireSupervisor(t *testing.T) {
	s := newTestServer()
	agent := s.store.AddUser("Ava", domain.RoleAgent, true)
	admin := s.store.AddUser("Ada", domain.RoleAdmin, true)
	campaign := s.store.AddCampaign("Outbound", true, nil)
	free := s.store.AddLead(repository.Lead{FullName: "Free", PhoneNumber: "1"})
	bound := s.store.AddLead(repository.Lead{FullName: "Bound", PhoneNumber: "2", CampaignID: &campaign.ID})
	missing := uuid.New()

	body := map[string]interface{}{"campaignId": campaign.ID, "leadIds": []uuid.UUID{free.ID, bound.ID, missing}}

	if rec := s.do(t, http.MethodPost, "/api/v1/leads/campaign/bulk", &agent, body); rec.Code != http.StatusForbidden {
		t.Fatalf("agent status = %d, want 403", rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/api/v1/leads/campaign/bulk", &admin, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Assigned        int `json:"assigned"`
		AlreadyAssigned int `json:"alreadyAssigned"`
		NotFound        int `json:"notFound"`
	}
	decode(t, rec, &resp)
	if resp.Assigned != 1 || resp.AlreadyAssigned != 1 || resp.NotFound != 1 {
		t.Fatalf("unexpected partition %+v", resp)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/leads/"+free.ID.String()+"/campaign", &admin, map[string]interface{}{"campaignId": campaign.ID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("reassign status = %d, want 409", rec.Code)
	}
}

func TestIntakeRoutes(t *testing.T) {
	s := newTestServer()
	agent := s.store.AddUser("Ava", domain.RoleAgent, true)
	supervisor := s.store.AddUser("Sue", domain.RoleSupervisor, true)
	campaign := s.store.AddCampaign("Inbound", true, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/public/leads", nil, map[string]interface{}{"fullName": "Alice", "phoneNumber": "+1 555 0101"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("public create status = %d (%s)", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/api/v1/public/leads", nil, map[string]interface{}{"fullName": "Alice", "phoneNumber": "+15550101"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/leads/check-duplicate?phone=%2B1%20555%200101", &agent, nil)
	var dup struct {
		IsDuplicate     bool   `json:"isDuplicate"`
		NormalizedPhone string `json:"normalizedPhone"`
	}
	decode(t, rec, &dup)
	if !dup.IsDuplicate || dup.NormalizedPhone != "+15550101" {
		t.Fatalf("unexpected duplicate check %+v", dup)
	}

	quick := "/api/v1/campaigns/" + campaign.ID.String() + "/leads"
	entry := map[string]interface{}{"fullName": "Bob", "phoneNumber": "555-0102"}
	if rec := s.do(t, http.MethodPost, quick, &supervisor, entry); rec.Code != http.StatusForbidden {
		t.Fatalf("supervisor quick entry status = %d, want 403", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, quick, &agent, entry); rec.Code != http.StatusCreated {
		t.Fatalf("quick entry status = %d (%s)", rec.Code, rec.Body.String())
	}
	if got := s.store.Campaign(campaign.ID).LeadCount; got != 1 {
		t.Fatalf("lead_count = %d, want 1", got)
	}
}

func TestPoolImportFileRoute(t *testing.T) {
	s := newTestServer()
	supervisor := s.store.AddUser("Sue", domain.RoleSupervisor, true)
	campaign := s.store.AddCampaign("Outbound", true, nil)
	pool := s.store.AddPool("March", campaign.ID)
	s.store.AddSector("General")

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "march.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("Full Name,Phone Number\nAlice,0611111111\n,0622222222\n"))
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pools/"+pool.ID.String()+"/import/file", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-Test-User", supervisor.ID.String())
	req.Header.Set("X-Test-Role", supervisor.Role)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Imported int `json:"imported"`
		Errors   int `json:"errors"`
	}
	decode(t, rec, &resp)
	if resp.Imported != 1 || resp.Errors != 1 {
		t.Fatalf("unexpected result %+v", resp)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/pools/"+pool.ID.String(), &supervisor, nil)
	var got struct {
		Summary struct {
			Unassigned int `json:"unassigned"`
		} `json:"summary"`
	}
	decode(t, rec, &got)
	if got.Summary.Unassigned != 1 {
		t.Fatalf("unexpected pool summary %s", rec.Body.String())
	}
}
