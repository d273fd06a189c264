// Package daemon runs the accrual headless and serves its state over HTTP,
// Server-Sent Events and WebSocket.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/accrue/internal/accrual"
	"github.com/theirongolddev/accrue/internal/logging"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	EventsBuffer int
	// PublishEvery is how many ticks pass between snapshot events.
	PublishEvery int
	Interval     time.Duration
	Step         decimal.Decimal
	Mode         accrual.Mode
	// StoreLabel describes where the balance is persisted.
	StoreLabel string
	Logger     *slog.Logger
}

// Snapshot is the JSON form of an engine snapshot.
type Snapshot struct {
	At              time.Time       `json:"at"`
	CurrentAmount   decimal.Decimal `json:"current_amount"`
	StartingAmount  decimal.Decimal `json:"starting_amount"`
	MonthlyIncome   decimal.Decimal `json:"monthly_income"`
	IncomePerSecond decimal.Decimal `json:"income_per_second"`
	HourlyRate      decimal.Decimal `json:"hourly_rate"`
	TotalEarned     decimal.Decimal `json:"total_earned"`
	ElapsedSec      float64         `json:"elapsed_sec"`
	Ticks           int64           `json:"ticks"`
}

// Milestone is the JSON form of a whole-unit crossing.
type Milestone struct {
	Boundary decimal.Decimal `json:"boundary"`
	Amount   decimal.Decimal `json:"amount"`
}

// BoundaryProgress is the JSON form of progress toward one boundary.
type BoundaryProgress struct {
	Label             string          `json:"label"`
	Unit              decimal.Decimal `json:"unit"`
	Fraction          decimal.Decimal `json:"fraction"`
	SecondsToBoundary decimal.Decimal `json:"seconds_to_boundary"`
	AtBoundary        bool            `json:"at_boundary,omitempty"`
	Unreachable       bool            `json:"unreachable,omitempty"`
}

// Event types.
const (
	EventSnapshot  = "snapshot"
	EventMilestone = "milestone"
)

// Event is published on the ring buffer and to stream subscribers.
type Event struct {
	ID        int64      `json:"id"`
	Type      string     `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
	Snapshot  Snapshot   `json:"snapshot"`
	Milestone *Milestone `json:"milestone,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	RunID           string             `json:"run_id"`
	StartedAt       time.Time          `json:"started_at"`
	LastTickAt      time.Time          `json:"last_tick_at"`
	TickIntervalMS  int64              `json:"tick_interval_ms"`
	Step            decimal.Decimal    `json:"step_seconds"`
	Mode            accrual.Mode       `json:"mode"`
	Store           string             `json:"store,omitempty"`
	Summary         Snapshot           `json:"summary"`
	Boundaries      []BoundaryProgress `json:"boundaries"`
	LastMilestone   *Milestone         `json:"last_milestone,omitempty"`
	EventCount      int                `json:"event_count"`
	SubscriberCount int                `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg    Config
	runID  string
	driver *accrual.Driver
	log    *slog.Logger

	mu            sync.RWMutex
	startedAt     time.Time
	lastTickAt    time.Time
	snapshot      accrual.Snapshot
	lastMilestone *Milestone
	nextEventID   int64
	events        []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service driving engine. persister receives the final
// balance when Run stops; nil disables saving.
func New(engine *accrual.Engine, persister accrual.Persister, cfg Config) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.PublishEvery < 1 {
		cfg.PublishEvery = 10
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8788"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.Step.Sign() <= 0 {
		cfg.Step = accrual.DefaultStep
	}
	if cfg.Mode == "" {
		cfg.Mode = accrual.ModeFixed
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	runID := uuid.Must(uuid.NewV7()).String()
	logger := cfg.Logger.With(logging.FieldComponent, logging.ComponentDaemon, logging.FieldRunID, runID)

	s := &Service{
		cfg:       cfg,
		runID:     runID,
		log:       logger,
		startedAt: time.Now(),
		snapshot:  engine.Snapshot(),
		subs:      make(map[int]chan Event),
	}
	s.driver = accrual.NewDriver(engine, persister, accrual.DriverOptions{
		Interval: cfg.Interval,
		Step:     cfg.Step,
		Mode:     cfg.Mode,
		Logger:   cfg.Logger,
		OnTick:   s.onTick,
	})
	return s
}

// RunID identifies this daemon run in events and logs.
func (s *Service) RunID() string { return s.runID }

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	mux.HandleFunc("GET /v1/ws", s.handleWebSocket)
	return mux
}

// Run serves the API and drives the engine until ctx is canceled. The driver
// saves the final balance before Run returns.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("daemon listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// Streams end when the daemon stops.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	s.log.Info("daemon listening", "addr", ln.Addr().String(), "store", s.cfg.StoreLabel)

	g.Go(func() error {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("daemon http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.driver.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	s.log.Info("daemon stopped", "err", err)
	return err
}

// onTick runs on the driver goroutine.
func (s *Service) onTick(r accrual.TickReport) {
	var pending []Event

	s.mu.Lock()
	s.snapshot = r.Snapshot
	s.lastTickAt = r.Snapshot.At
	snap := toSnapshot(r.Snapshot)

	if r.Snapshot.Ticks%int64(s.cfg.PublishEvery) == 0 {
		pending = append(pending, s.newEventLocked(EventSnapshot, snap, nil))
	}
	if r.Milestone != nil {
		m := &Milestone{Boundary: r.Milestone.Boundary, Amount: r.Milestone.Amount}
		s.lastMilestone = m
		pending = append(pending, s.newEventLocked(EventMilestone, snap, m))
	}
	s.mu.Unlock()

	for _, ev := range pending {
		s.publishEvent(ev)
	}
}

func (s *Service) newEventLocked(typ string, snap Snapshot, m *Milestone) Event {
	s.nextEventID++
	return Event{
		ID:        s.nextEventID,
		Type:      typ,
		Timestamp: snap.At,
		Snapshot:  snap,
		Milestone: m,
	}
}

func toSnapshot(s accrual.Snapshot) Snapshot {
	return Snapshot{
		At:              s.At,
		CurrentAmount:   s.CurrentAmount,
		StartingAmount:  s.StartingAmount,
		MonthlyIncome:   s.MonthlyIncome,
		IncomePerSecond: s.IncomePerSecond,
		HourlyRate:      s.HourlyRate,
		TotalEarned:     s.TotalEarned,
		ElapsedSec:      s.Elapsed.Seconds(),
		Ticks:           s.Ticks,
	}
}

func boundaryProgress(s accrual.Snapshot) []BoundaryProgress {
	out := make([]BoundaryProgress, 0, len(accrual.Boundaries))
	for _, b := range accrual.Boundaries {
		p, err := s.ProgressAt(b.Unit)
		if err != nil {
			continue
		}
		out = append(out, BoundaryProgress{
			Label:             b.Label,
			Unit:              b.Unit,
			Fraction:          p.Fraction,
			SecondsToBoundary: p.SecondsToBoundary,
			AtBoundary:        p.AtBoundary,
			Unreachable:       p.Unreachable,
		})
	}
	return out
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	// Slow subscribers miss events rather than stall the driver.
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		RunID:           s.runID,
		StartedAt:       s.startedAt,
		LastTickAt:      s.lastTickAt,
		TickIntervalMS:  s.cfg.Interval.Milliseconds(),
		Step:            s.cfg.Step,
		Mode:            s.cfg.Mode,
		Store:           s.cfg.StoreLabel,
		Summary:         toSnapshot(s.snapshot),
		Boundaries:      boundaryProgress(s.snapshot),
		LastMilestone:   s.lastMilestone,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

// currentEvent is the unnumbered snapshot sent to new stream subscribers.
func (s *Service) currentEvent() Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := toSnapshot(s.snapshot)
	return Event{Type: EventSnapshot, Timestamp: time.Now(), Snapshot: snap}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	writeSSE(w, s.currentEvent())
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
