package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/accrue/internal/accrual"
	"github.com/theirongolddev/accrue/internal/logging"
	"github.com/theirongolddev/accrue/internal/model"
)

type savePersister struct {
	mu    sync.Mutex
	saves []model.AccrualConfig
}

func (p *savePersister) Save(_ context.Context, cfg model.AccrualConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, cfg)
	return nil
}

func newTestService(t *testing.T, starting, monthly string, cfg Config) *Service {
	t.Helper()
	eng, err := accrual.NewFromStrings(starting, monthly)
	if err != nil {
		t.Fatalf("NewFromStrings: %v", err)
	}
	eng.Start()
	cfg.Logger = logging.Discard()
	return New(eng, nil, cfg)
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := newTestService(t, "1000", "5000", Config{EventsBuffer: 2})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestSnapshotEventsFollowPublishEvery(t *testing.T) {
	s := newTestService(t, "1000", "5000", Config{PublishEvery: 5})

	for i := 0; i < 12; i++ {
		s.driver.Step(0)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].Snapshot.Ticks != 5 || s.events[1].Snapshot.Ticks != 10 {
		t.Fatalf("snapshot ticks = [%d, %d], want [5, 10]", s.events[0].Snapshot.Ticks, s.events[1].Snapshot.Ticks)
	}
	if s.events[1].ID != s.events[0].ID+1 {
		t.Fatalf("event IDs not sequential: %d, %d", s.events[0].ID, s.events[1].ID)
	}
	if s.snapshot.Ticks != 12 {
		t.Fatalf("latest snapshot ticks = %d, want 12", s.snapshot.Ticks)
	}
}

func TestMilestoneEventPublished(t *testing.T) {
	// 0.0017 per second, one simulated second per tick
	s := newTestService(t, "999.999", "4471.0272", Config{
		PublishEvery: 100,
		Step:         decimal.NewFromInt(1),
	})

	s.driver.Step(0)

	st := s.snapshotStatus()
	if st.LastMilestone == nil {
		t.Fatal("LastMilestone = nil, want 1000")
	}
	if !st.LastMilestone.Boundary.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("milestone boundary = %s, want 1000", st.LastMilestone.Boundary)
	}
	if st.EventCount != 1 {
		t.Fatalf("event count = %d, want 1", st.EventCount)
	}

	s.mu.RLock()
	ev := s.events[0]
	s.mu.RUnlock()
	if ev.Type != EventMilestone {
		t.Fatalf("event type = %q, want %q", ev.Type, EventMilestone)
	}

	// still inside the same whole unit
	s.driver.Step(0)
	if got := s.snapshotStatus().EventCount; got != 1 {
		t.Fatalf("event count after second tick = %d, want 1", got)
	}
}

func TestHTTPEndpoints(t *testing.T) {
	s := newTestService(t, "1000", "5000", Config{PublishEvery: 1, StoreLabel: "file test.json"})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	s.driver.Step(0)
	s.driver.Step(0)

	var st Status
	getJSON(t, srv.URL+"/v1/status", &st)
	if st.RunID != s.RunID() {
		t.Fatalf("run id = %q, want %q", st.RunID, s.RunID())
	}
	if st.Summary.Ticks != 2 {
		t.Fatalf("summary ticks = %d, want 2", st.Summary.Ticks)
	}
	if len(st.Boundaries) != len(accrual.Boundaries) {
		t.Fatalf("boundaries = %d, want %d", len(st.Boundaries), len(accrual.Boundaries))
	}
	if st.Store != "file test.json" || st.Mode != accrual.ModeFixed {
		t.Fatalf("store/mode = %q/%q", st.Store, st.Mode)
	}
	want := decimal.NewFromInt(1000).Add(accrual.IncomePerSecond(decimal.NewFromInt(5000)).Mul(decimal.RequireFromString("0.2")))
	if !st.Summary.CurrentAmount.Equal(want) {
		t.Fatalf("current = %s, want %s", st.Summary.CurrentAmount, want)
	}

	var events []Event
	getJSON(t, srv.URL+"/v1/events", &events)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[1].Type != EventSnapshot {
		t.Fatalf("event type = %q", events[1].Type)
	}
}

func TestStreamSendsCurrentSnapshot(t *testing.T) {
	s := newTestService(t, "1000", "5000", Config{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /v1/stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		if sc.Text() == "" {
			break
		}
		lines = append(lines, sc.Text())
	}
	if len(lines) != 2 || lines[0] != "event: snapshot" || !strings.HasPrefix(lines[1], "data: ") {
		t.Fatalf("unexpected first event: %q", lines)
	}

	var ev Event
	if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if !ev.Snapshot.CurrentAmount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("streamed amount = %s, want 1000", ev.Snapshot.CurrentAmount)
	}
}

func TestWebSocketReceivesMilestone(t *testing.T) {
	s := newTestService(t, "999.999", "4471.0272", Config{
		PublishEvery: 100,
		Step:         decimal.NewFromInt(1),
	})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial event: %v", err)
	}
	if first.Type != EventSnapshot {
		t.Fatalf("initial event type = %q", first.Type)
	}

	// the subscriber is registered before the initial event is written
	s.driver.Step(0)

	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read milestone: %v", err)
	}
	if ev.Type != EventMilestone || ev.Milestone == nil {
		t.Fatalf("event = %+v, want milestone", ev)
	}
	if !ev.Milestone.Boundary.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("boundary = %s, want 1000", ev.Milestone.Boundary)
	}
}

func TestRunSavesOnShutdown(t *testing.T) {
	eng, err := accrual.NewFromStrings("1000", "5000")
	if err != nil {
		t.Fatalf("NewFromStrings: %v", err)
	}
	p := &savePersister{}
	s := New(eng, p, Config{
		Addr:     "127.0.0.1:0",
		Interval: 5 * time.Millisecond,
		Logger:   logging.Discard(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saves) != 1 {
		t.Fatalf("saves = %d, want 1", len(p.saves))
	}
	if !p.saves[0].Current().GreaterThan(decimal.NewFromInt(1000)) {
		t.Fatalf("saved balance %s did not advance", p.saves[0].Current())
	}
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}
