package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	middle "pulsewatch/internals/middleware"
	"pulsewatch/internals/modules/channel"
	"pulsewatch/internals/modules/history"
	"pulsewatch/internals/modules/status"
	"pulsewatch/internals/security"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/logger"
	"pulsewatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type memRepo struct {
	mu       sync.Mutex
	monitors map[uuid.UUID]Monitor
	order    []uuid.UUID
}

func newMemRepo() *memRepo {
	return &memRepo{monitors: map[uuid.UUID]Monitor{}}
}

func (r *memRepo) Create(ctx context.Context, cmd CreateMonitorCmd) (Monitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	m := Monitor{ID: uuid.New(), UserID: cmd.UserID, Name: cmd.Name, URL: cmd.URL, IntervalSec: cmd.IntervalSec, Enabled: cmd.Enabled, CreatedAt: now, UpdatedAt: now}
	r.monitors[m.ID] = m
	r.order = append(r.order, m.ID)
	return m, nil
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (Monitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.monitors[id]
	if !ok {
		return Monitor{}, notFound("test.get_by_id")
	}
	return m, nil
}

func (r *memRepo) Get(ctx context.Context, userID, id uuid.UUID) (Monitor, error) {
	m, err := r.GetByID(ctx, id)
	if err != nil || m.UserID != userID || m.Deleted() {
		return Monitor{}, notFound("test.get")
	}
	return m, nil
}

func (r *memRepo) List(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]Monitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Monitor{}
	for _, id := range r.order {
		if m := r.monitors[id]; m.UserID == userID && !m.Deleted() {
			out = append(out, m)
		}
	}
	if int(offset) >= len(out) {
		return []Monitor{}, nil
	}
	out = out[offset:]
	if len(out) > int(limit) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) ListSchedulable(ctx context.Context) ([]Monitor, error) {
	return nil, nil
}

func (r *memRepo) Update(ctx context.Context, userID, id uuid.UUID, cmd UpdateMonitorCmd) (Monitor, error) {
	m, err := r.Get(ctx, userID, id)
	if err != nil {
		return Monitor{}, err
	}
	if cmd.Name != nil {
		m.Name = *cmd.Name
	}
	if cmd.IntervalSec != nil {
		m.IntervalSec = *cmd.IntervalSec
	}
	if cmd.Enabled != nil {
		m.Enabled = *cmd.Enabled
	}
	r.mu.Lock()
	r.monitors[id] = m
	r.mu.Unlock()
	return m, nil
}

func (r *memRepo) SoftDelete(ctx context.Context, userID, id uuid.UUID) error {
	m, err := r.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	now := time.Now()
	m.DeletedAt = &now
	r.mu.Lock()
	r.monitors[id] = m
	r.mu.Unlock()
	return nil
}

func (r *memRepo) HardDelete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.monitors, id)
	r.mu.Unlock()
	return nil
}

type stubChecks struct {
	mu        sync.Mutex
	triggered []uuid.UUID
	forgotten []uuid.UUID
	busy      map[uuid.UUID]bool
}

func (c *stubChecks) TriggerNow(id uuid.UUID, url string, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy[id] {
		return &apperror.Error{Kind: apperror.Conflict, Op: "test.trigger", Message: "check already running"}
	}
	c.triggered = append(c.triggered, id)
	return nil
}

func (c *stubChecks) Forget(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forgotten = append(c.forgotten, id)
}

type stubAlerts struct {
	forgotten []uuid.UUID
}

func (a *stubAlerts) Forget(ctx context.Context, id uuid.UUID) error {
	a.forgotten = append(a.forgotten, id)
	return nil
}

type stubSubs struct {
	channels map[uuid.UUID]channel.Channel
	links    map[uuid.UUID][]uuid.UUID
}

func (s *stubSubs) Get(ctx context.Context, userID, channelID uuid.UUID) (channel.Channel, error) {
	ch, ok := s.channels[channelID]
	if !ok || ch.UserID != userID {
		return channel.Channel{}, &apperror.Error{Kind: apperror.NotFound, Op: "test.channel.get", Message: "channel not found"}
	}
	return ch, nil
}

func (s *stubSubs) Subscribe(ctx context.Context, monitorID, channelID uuid.UUID) error {
	s.links[monitorID] = append(s.links[monitorID], channelID)
	return nil
}

func (s *stubSubs) Unsubscribe(ctx context.Context, monitorID, channelID uuid.UUID) error {
	return nil
}

func (s *stubSubs) SubscribedChannels(ctx context.Context, monitorID uuid.UUID) ([]channel.Channel, error) {
	var out []channel.Channel
	for _, id := range s.links[monitorID] {
		out = append(out, s.channels[id])
	}
	return out, nil
}

type stubTokens struct {
	users map[string]uuid.UUID
}

func (s stubTokens) ValidateAccessToken(token string) (*security.RequestClaims, error) {
	id, ok := s.users[token]
	if !ok {
		return nil, &apperror.Error{Kind: apperror.Unauthorised, Op: "test.token", Message: "invalid token"}
	}
	return &security.RequestClaims{UserID: id.String(), Email: "owner@example.com"}, nil
}

type apiFixture struct {
	repo    *memRepo
	store   *history.MemoryStore
	checks  *stubChecks
	alerts  *stubAlerts
	subs    *stubSubs
	router  http.Handler
	userID  uuid.UUID
	otherID uuid.UUID
}

func newAPIFixture(t *testing.T, hardDelete bool) *apiFixture {
	t.Helper()
	f := &apiFixture{
		repo:    newMemRepo(),
		store:   history.NewMemoryStore(),
		checks:  &stubChecks{busy: map[uuid.UUID]bool{}},
		alerts:  &stubAlerts{},
		subs:    &stubSubs{channels: map[uuid.UUID]channel.Channel{}, links: map[uuid.UUID][]uuid.UUID{}},
		userID:  uuid.New(),
		otherID: uuid.New(),
	}
	svc := NewService(f.repo, nil, f.subs, f.checks, f.store,
		status.NewAggregator(f.store, 2, 24*time.Hour), f.alerts, hardDelete, logger.Nop())
	h := NewHandler(svc, utils.NewValidator())
	authMW := middle.NewAuthMiddleware(stubTokens{users: map[string]uuid.UUID{"owner": f.userID, "other": f.otherID}})

	r := chi.NewRouter()
	r.Mount("/monitors", Routes(h, authMW))
	f.router = r
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return env
}

func (f *apiFixture) create(t *testing.T) MonitorResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/monitors", "owner",
		`{"name":"Example","url":"https://example.com","check_interval_seconds":30}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	var m MonitorResponse
	if err := json.Unmarshal(decode(t, rec).Data, &m); err != nil {
		t.Fatalf("decode monitor: %v", err)
	}
	return m
}

func TestCreateMonitorValidation(t *testing.T) {
	f := newAPIFixture(t, false)

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing name", `{"url":"https://example.com","check_interval_seconds":30}`, "name is required"},
		{"blank name", `{"name":"  ","url":"https://example.com","check_interval_seconds":30}`, "name must not be blank"},
		{"relative url", `{"name":"x","url":"example.com/health","check_interval_seconds":30}`, "url must be an absolute http(s) URL"},
		{"ftp url", `{"name":"x","url":"ftp://example.com","check_interval_seconds":30}`, "url must be an absolute http(s) URL"},
		{"zero interval", `{"name":"x","url":"https://example.com","check_interval_seconds":0}`, "check_interval_seconds is required"},
		{"interval too large", `{"name":"x","url":"https://example.com","check_interval_seconds":86401}`, "check_interval_seconds must be at most 86400"},
		{"malformed", `{"name":`, "malformed request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/monitors", "owner", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			env := decode(t, rec)
			if env.Success || env.Error.Kind != string(apperror.InvalidInput) {
				t.Fatalf("unexpected envelope: %+v", env)
			}
			if !strings.Contains(env.Error.Message, tt.wantMsg) {
				t.Errorf("message %q does not contain %q", env.Error.Message, tt.wantMsg)
			}
		})
	}

	if got, _ := f.repo.List(context.Background(), f.userID, 10, 0); len(got) != 0 {
		t.Fatalf("invalid requests must not create monitors, got %d", len(got))
	}
}

func TestRoutesRequireAuth(t *testing.T) {
	f := newAPIFixture(t, false)

	for _, token := range []string{"", "forged"} {
		rec := f.do(t, http.MethodGet, "/monitors", token, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: status = %d, want 401", token, rec.Code)
		}
	}
}

func TestListEmbedsDerivedStatus(t *testing.T) {
	f := newAPIFixture(t, false)
	m := f.create(t)
	id := uuid.MustParse(m.ID)

	now := time.Now().UTC().Truncate(time.Second)
	ms := int64(120)
	code := 500
	_ = f.store.Append(context.Background(), history.CheckResult{MonitorID: id, Timestamp: now.Add(-2 * time.Minute), Outcome: history.OutcomeUp, ResponseTimeMs: &ms})
	_ = f.store.Append(context.Background(), history.CheckResult{MonitorID: id, Timestamp: now.Add(-time.Minute), Outcome: history.OutcomeDown, HTTPStatus: &code, Reason: history.ReasonHTTPStatus})

	rec := f.do(t, http.MethodGet, "/monitors", "owner", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list ListMonitorsResponse
	if err := json.Unmarshal(decode(t, rec).Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Monitors) != 1 || list.Monitors[0].Status == nil {
		t.Fatalf("expected one monitor with status, got %+v", list.Monitors)
	}
	st := list.Monitors[0].Status
	if st.CurrentStatus != status.StatusDegraded {
		t.Errorf("current status = %s, want degraded", st.CurrentStatus)
	}
	if st.UptimePercent == nil || *st.UptimePercent != 50 {
		t.Errorf("uptime = %v, want 50", st.UptimePercent)
	}

	// other users never see it
	rec = f.do(t, http.MethodGet, "/monitors/"+m.ID, "other", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign monitor: status = %d, want 404", rec.Code)
	}
}

func TestUpdateDisableForgetsSchedule(t *testing.T) {
	f := newAPIFixture(t, false)
	m := f.create(t)

	rec := f.do(t, http.MethodPatch, "/monitors/"+m.ID, "owner", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty patch: status = %d, want 400", rec.Code)
	}

	rec = f.do(t, http.MethodPatch, "/monitors/"+m.ID, "owner", `{"enabled":false,"check_interval_seconds":60}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: status = %d body %s", rec.Code, rec.Body.String())
	}
	var got MonitorResponse
	_ = json.Unmarshal(decode(t, rec).Data, &got)
	if got.Enabled || got.CheckIntervalSeconds != 60 {
		t.Fatalf("unexpected monitor after patch: %+v", got)
	}
	if len(f.checks.forgotten) != 1 {
		t.Fatalf("expected schedule state to be dropped, got %v", f.checks.forgotten)
	}
}

func TestDeleteModes(t *testing.T) {
	t.Run("soft", func(t *testing.T) {
		f := newAPIFixture(t, false)
		m := f.create(t)
		id := uuid.MustParse(m.ID)
		ms := int64(5)
		_ = f.store.Append(context.Background(), history.CheckResult{MonitorID: id, Timestamp: time.Now(), Outcome: history.OutcomeUp, ResponseTimeMs: &ms})

		if rec := f.do(t, http.MethodDelete, "/monitors/"+m.ID, "owner", ""); rec.Code != http.StatusOK {
			t.Fatalf("delete: status = %d", rec.Code)
		}
		if rec := f.do(t, http.MethodGet, "/monitors/"+m.ID, "owner", ""); rec.Code != http.StatusNotFound {
			t.Fatalf("get after delete: status = %d, want 404", rec.Code)
		}
		if latest, _ := f.store.Latest(context.Background(), id, 1); len(latest) != 1 {
			t.Fatal("soft delete must keep history")
		}
		if len(f.alerts.forgotten) != 0 {
			t.Fatal("soft delete must keep alert state")
		}
	})

	t.Run("hard", func(t *testing.T) {
		f := newAPIFixture(t, true)
		m := f.create(t)
		id := uuid.MustParse(m.ID)
		ms := int64(5)
		_ = f.store.Append(context.Background(), history.CheckResult{MonitorID: id, Timestamp: time.Now(), Outcome: history.OutcomeUp, ResponseTimeMs: &ms})

		if rec := f.do(t, http.MethodDelete, "/monitors/"+m.ID, "owner", ""); rec.Code != http.StatusOK {
			t.Fatalf("delete: status = %d", rec.Code)
		}
		if latest, _ := f.store.Latest(context.Background(), id, 1); len(latest) != 0 {
			t.Fatal("hard delete must purge history")
		}
		if len(f.alerts.forgotten) != 1 || len(f.checks.forgotten) != 1 {
			t.Fatalf("expected alert and schedule state to be dropped, got %v / %v", f.alerts.forgotten, f.checks.forgotten)
		}
	})
}

func TestHistoryAndIncidents(t *testing.T) {
	f := newAPIFixture(t, false)
	m := f.create(t)
	id := uuid.MustParse(m.ID)

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i, up := range []bool{true, true, false, false, true} {
		r := history.CheckResult{MonitorID: id, Timestamp: base.Add(time.Duration(i) * 30 * time.Second)}
		if up {
			ms := int64(100)
			r.Outcome, r.ResponseTimeMs = history.OutcomeUp, &ms
		} else {
			r.Outcome, r.Reason = history.OutcomeTimeout, history.ReasonTimeout
		}
		if err := f.store.Append(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}

	q := "?from=2026-03-01T12:00:00Z&to=2026-03-01T12:02:00Z"
	rec := f.do(t, http.MethodGet, "/monitors/"+m.ID+"/history"+q, "owner", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history: status = %d body %s", rec.Code, rec.Body.String())
	}
	var hist HistoryResponse
	_ = json.Unmarshal(decode(t, rec).Data, &hist)
	if len(hist.Results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(hist.Results))
	}
	for i := 1; i < len(hist.Results); i++ {
		if !hist.Results[i].Timestamp.After(hist.Results[i-1].Timestamp) {
			t.Fatalf("results out of order at %d", i)
		}
	}

	rec = f.do(t, http.MethodGet, "/monitors/"+m.ID+"/incidents"+q, "owner", "")
	var inc IncidentsResponse
	_ = json.Unmarshal(decode(t, rec).Data, &inc)
	if len(inc.Incidents) != 1 {
		t.Fatalf("expected one incident, got %+v", inc.Incidents)
	}
	if !inc.Incidents[0].StartedAt.Equal(base.Add(60*time.Second)) || inc.Incidents[0].ResolvedAt == nil ||
		!inc.Incidents[0].ResolvedAt.Equal(base.Add(120*time.Second)) {
		t.Fatalf("unexpected incident: %+v", inc.Incidents[0])
	}

	rec = f.do(t, http.MethodGet, "/monitors/"+m.ID+"/history?from=2026-03-02T00:00:00Z&to=2026-03-01T00:00:00Z", "owner", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted range: status = %d, want 400", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/monitors/"+m.ID+"/history?from=yesterday", "owner", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad timestamp: status = %d, want 400", rec.Code)
	}
}

func TestCheckNowAndCheckAll(t *testing.T) {
	f := newAPIFixture(t, false)
	a := f.create(t)
	b := f.create(t)

	if rec := f.do(t, http.MethodPost, "/monitors/"+a.ID+"/check", "owner", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("check: status = %d", rec.Code)
	}

	f.checks.busy[uuid.MustParse(a.ID)] = true
	if rec := f.do(t, http.MethodPost, "/monitors/"+a.ID+"/check", "owner", ""); rec.Code != http.StatusConflict {
		t.Fatalf("busy check: status = %d, want 409", rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/monitors/check-all", "owner", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("check-all: status = %d", rec.Code)
	}
	var res CheckAllResult
	_ = json.Unmarshal(decode(t, rec).Data, &res)
	if res.Queued != 1 || res.Skipped != 1 {
		t.Fatalf("unexpected check-all result: %+v", res)
	}
	if last := f.checks.triggered[len(f.checks.triggered)-1]; last.String() != b.ID {
		t.Fatalf("expected %s to be triggered, got %s", b.ID, last)
	}
}

func TestSubscriptions(t *testing.T) {
	f := newAPIFixture(t, false)
	m := f.create(t)

	own := channel.Channel{ID: uuid.New(), UserID: f.userID, Type: channel.TypeEmail, Destination: "ops@example.com", Enabled: true}
	foreign := channel.Channel{ID: uuid.New(), UserID: f.otherID, Type: channel.TypeEmail, Destination: "x@example.com", Enabled: true}
	f.subs.channels[own.ID] = own
	f.subs.channels[foreign.ID] = foreign

	if rec := f.do(t, http.MethodPut, "/monitors/"+m.ID+"/channels/"+own.ID.String(), "owner", ""); rec.Code != http.StatusOK {
		t.Fatalf("subscribe: status = %d body %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(t, http.MethodPut, "/monitors/"+m.ID+"/channels/"+foreign.ID.String(), "owner", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign channel: status = %d, want 404", rec.Code)
	}
	if rec := f.do(t, http.MethodPut, "/monitors/"+m.ID+"/channels/not-a-uuid", "owner", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad channel id: status = %d, want 400", rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/monitors/"+m.ID+"/channels", "owner", "")
	var channels []channel.Channel
	_ = json.Unmarshal(decode(t, rec).Data, &channels)
	if len(channels) != 1 || channels[0].ID != own.ID {
		t.Fatalf("unexpected subscriptions: %+v", channels)
	}
}

func TestLookupIncludesSoftDeleted(t *testing.T) {
	f := newAPIFixture(t, false)
	svc := NewService(f.repo, nil, f.subs, f.checks, f.store, status.NewAggregator(f.store, 2, time.Hour), f.alerts, false, logger.Nop())

	m, _ := svc.Create(context.Background(), CreateMonitorCmd{UserID: f.userID, Name: "x", URL: "https://example.com", IntervalSec: 30, Enabled: true})
	if err := svc.Delete(context.Background(), f.userID, m.ID); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Lookup(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !got.Deleted() {
		t.Fatal("expected the soft deleted monitor to be returned as deleted")
	}

	_, err = svc.Lookup(context.Background(), uuid.New())
	if !apperror.IsKind(err, apperror.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type memCache struct {
	mu   sync.Mutex
	rows map[uuid.UUID]Monitor
}

func newMemCache() *memCache {
	return &memCache{rows: map[uuid.UUID]Monitor{}}
}

func (c *memCache) GetMonitor(ctx context.Context, id uuid.UUID) (Monitor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.rows[id]
	return m, ok
}

func (c *memCache) SetMonitor(ctx context.Context, m Monitor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[m.ID] = m
	return nil
}

func (c *memCache) AddMonitor(ctx context.Context, m Monitor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rows[m.ID]; !ok {
		c.rows[m.ID] = m
	}
	return nil
}

func (c *memCache) DelMonitor(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rows, id)
	return nil
}

// racingRepo runs during once, after GetByID has read its row.
type racingRepo struct {
	*memRepo
	during func()
}

func (r *racingRepo) GetByID(ctx context.Context, id uuid.UUID) (Monitor, error) {
	m, err := r.memRepo.GetByID(ctx, id)
	if f := r.during; f != nil {
		r.during = nil
		f()
	}
	return m, err
}

func TestLookupCacheNeverKeepsRowReadBeforeWrite(t *testing.T) {
	ctx := context.Background()
	off := false

	tests := []struct {
		name  string
		write func(svc *Service, userID, id uuid.UUID) error
		check func(m Monitor) bool
	}{
		{
			name: "disable",
			write: func(svc *Service, userID, id uuid.UUID) error {
				_, err := svc.Update(ctx, userID, id, UpdateMonitorCmd{Enabled: &off})
				return err
			},
			check: func(m Monitor) bool { return !m.Enabled },
		},
		{
			name: "soft delete",
			write: func(svc *Service, userID, id uuid.UUID) error {
				return svc.Delete(ctx, userID, id)
			},
			check: func(m Monitor) bool { return m.Deleted() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, false)
			repo := &racingRepo{memRepo: f.repo}
			cache := newMemCache()
			svc := NewService(repo, cache, f.subs, f.checks, f.store, status.NewAggregator(f.store, 2, time.Hour), f.alerts, false, logger.Nop())

			m, err := svc.Create(ctx, CreateMonitorCmd{UserID: f.userID, Name: "x", URL: "https://example.com", IntervalSec: 30, Enabled: true})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			_ = cache.DelMonitor(ctx, m.ID)

			// the write lands between the lookup's read and its cache fill
			repo.during = func() {
				if err := tt.write(svc, f.userID, m.ID); err != nil {
					t.Fatalf("write: %v", err)
				}
			}
			if _, err := svc.Lookup(ctx, m.ID); err != nil {
				t.Fatalf("lookup: %v", err)
			}

			got, err := svc.Lookup(ctx, m.ID)
			if err != nil {
				t.Fatalf("lookup: %v", err)
			}
			if !tt.check(got) {
				t.Fatalf("cache kept the row read before the write: %+v", got)
			}
		})
	}
}
