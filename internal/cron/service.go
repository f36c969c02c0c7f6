// Package cron schedules reminders. When a reminder fires, the agent receives
// a system notice through its own inbound channel.
//
// Jobs persist as JSON:
//
//	{ "version": 1, "jobs": [ { "id":"…", "name":"…", "enabled":true,
//	    "schedule":{"kind":"every","everyMs":…},
//	    "message":"…",
//	    "state":{"nextRunAtMs":…,"lastRunAtMs":…,"lastStatus":"ok"},
//	    "createdAtMs":…, "updatedAtMs":…, "deleteAfterRun":false } ] }
package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	robfigcron "github.com/robfig/cron/v3"

	"github.com/projectlily/lily/internal/bus"
	"github.com/projectlily/lily/internal/schema"
)

const (
	KindEvery = "every"
	KindCron  = "cron"
	KindAt    = "at"
)

// ReminderPrefix starts every notice a reminder sends to the agent.
const ReminderPrefix = "Reminder: "

var ErrNotRunning = errors.New("reminder service is not running")

type Schedule struct {
	Kind    string `json:"kind"`              // "every" | "cron" | "at"
	AtMs    *int64 `json:"atMs,omitempty"`    // one-time
	EveryMs *int64 `json:"everyMs,omitempty"` // interval
	Expr    string `json:"expr,omitempty"`    // cron expression
	TZ      string `json:"tz,omitempty"`      // IANA timezone
}

// Every builds an interval schedule.
func Every(d time.Duration) Schedule {
	ms := d.Milliseconds()
	return Schedule{Kind: KindEvery, EveryMs: &ms}
}

// At builds a one-time schedule.
func At(t time.Time) Schedule {
	ms := t.UnixMilli()
	return Schedule{Kind: KindAt, AtMs: &ms}
}

// Cron builds a five-field cron schedule, evaluated in tz when set.
func Cron(expr, tz string) Schedule {
	return Schedule{Kind: KindCron, Expr: expr, TZ: tz}
}

// Validate rejects schedules that can never fire.
func (s Schedule) Validate(now time.Time) error {
	switch s.Kind {
	case KindEvery:
		if s.EveryMs == nil || *s.EveryMs <= 0 {
			return errors.New("interval must be positive")
		}
	case KindAt:
		if s.AtMs == nil || *s.AtMs <= now.UnixMilli() {
			return errors.New("time must be in the future")
		}
	case KindCron:
		if _, err := parseCron(s.Expr); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", s.Expr, err)
		}
		if _, err := s.location(); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", s.TZ, err)
		}
	default:
		return fmt.Errorf("unknown schedule kind %q", s.Kind)
	}
	return nil
}

// Describe renders the schedule for listings.
func (s Schedule) Describe() string {
	switch s.Kind {
	case KindEvery:
		if s.EveryMs != nil {
			return "every " + (time.Duration(*s.EveryMs) * time.Millisecond).String()
		}
	case KindAt:
		if s.AtMs != nil {
			return "at " + time.UnixMilli(*s.AtMs).Format(time.DateTime)
		}
	case KindCron:
		if s.TZ != "" {
			return s.Expr + " (" + s.TZ + ")"
		}
		return s.Expr
	}
	return s.Kind
}

func (s Schedule) location() (*time.Location, error) {
	if s.TZ == "" {
		return time.Local, nil
	}
	return time.LoadLocation(s.TZ)
}

type JobState struct {
	NextRunAtMs *int64 `json:"nextRunAtMs,omitempty"`
	LastRunAtMs *int64 `json:"lastRunAtMs,omitempty"`
	LastStatus  string `json:"lastStatus,omitempty"`
	LastError   string `json:"lastError,omitempty"`
}

// Job is one reminder.
type Job struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Enabled        bool     `json:"enabled"`
	Schedule       Schedule `json:"schedule"`
	Message        string   `json:"message"`
	State          JobState `json:"state"`
	CreatedAtMs    int64    `json:"createdAtMs"`
	UpdatedAtMs    int64    `json:"updatedAtMs"`
	DeleteAfterRun bool     `json:"deleteAfterRun"`
}

type jobStore struct {
	Version int   `json:"version"`
	Jobs    []Job `json:"jobs"`
}

// InboundOpener is the part of the router the service needs.
type InboundOpener interface {
	OpenInbound(name string) *bus.Sender
}

// Service manages reminder jobs. The CLI uses it without starting it; the
// agent process starts it as an integration.
type Service struct {
	storePath string
	router    InboundOpener

	mu     sync.Mutex
	store  jobStore
	loaded bool
	runCtx context.Context
	out    *bus.Sender

	// Active timers / cron entries keyed by job ID.
	timers    map[string]*time.Timer
	robfig    *robfigcron.Cron
	robfigIDs map[string]robfigcron.EntryID
}

// NewService creates a Service persisting to storePath. router may be nil
// when the service is only used to edit jobs.
func NewService(storePath string, router InboundOpener) *Service {
	return &Service{
		storePath: storePath,
		router:    router,
		timers:    make(map[string]*time.Timer),
		robfig:    robfigcron.New(),
		robfigIDs: make(map[string]robfigcron.EntryID),
	}
}

func (s *Service) Name() string { return string(bus.ChannelCron) }

// Start opens the cron channel, arms every enabled job and blocks until ctx
// is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if s.router == nil {
		return errors.New("cron: no router")
	}
	out := s.router.OpenInbound(s.Name())
	defer out.Close()

	s.mu.Lock()
	if err := s.loadLocked(); err != nil {
		slog.Warn("cron: load failed, starting empty", "err", err)
	}
	s.out = out
	s.runCtx = ctx
	s.recomputeNextRunsLocked()
	s.saveLocked()
	s.armAllLocked()
	jobs := len(s.store.Jobs)
	s.mu.Unlock()

	s.robfig.Start()
	slog.Info("cron: started", "jobs", jobs)

	<-ctx.Done()

	<-s.robfig.Stop().Done()
	s.mu.Lock()
	for id := range s.timers {
		s.cancelTimerLocked(id)
	}
	s.out = nil
	s.runCtx = nil
	s.mu.Unlock()
	slog.Info("cron: stopped")
	return nil
}

// AddJob validates, saves and (when running) arms a new reminder.
func (s *Service) AddJob(name, message string, sched Schedule, deleteAfterRun bool) (Job, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Job{}, errors.New("reminder message is empty")
	}
	now := time.Now()
	if err := sched.Validate(now); err != nil {
		return Job{}, err
	}
	if name == "" {
		name = message
	}

	job := Job{
		ID:             uuid.NewString()[:8],
		Name:           name,
		Enabled:        true,
		Schedule:       sched,
		Message:        message,
		State:          JobState{NextRunAtMs: computeNextRun(sched, now.UnixMilli())},
		CreatedAtMs:    now.UnixMilli(),
		UpdatedAtMs:    now.UnixMilli(),
		DeleteAfterRun: deleteAfterRun,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return Job{}, fmt.Errorf("load jobs: %w", err)
	}
	s.store.Jobs = append(s.store.Jobs, job)
	s.saveLocked()
	if s.runCtx != nil {
		s.armJobLocked(job)
	}

	slog.Info("cron: added job", "name", name, "id", job.ID, "kind", sched.Kind)
	return job, nil
}

// ListJobs returns jobs ordered by next run; includeDisabled controls
// visibility.
func (s *Service) ListJobs(includeDisabled bool) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		slog.Warn("cron: load failed", "err", err)
	}
	var jobs []Job
	for _, j := range s.store.Jobs {
		if includeDisabled || j.Enabled {
			jobs = append(jobs, j)
		}
	}
	sort.SliceStable(jobs, func(i, k int) bool {
		return nextRunOrMax(jobs[i]) < nextRunOrMax(jobs[k])
	})
	return jobs
}

func nextRunOrMax(j Job) int64 {
	if j.State.NextRunAtMs == nil {
		return int64(^uint64(0) >> 1)
	}
	return *j.State.NextRunAtMs
}

// RemoveJob removes a job by ID and reports whether it existed.
func (s *Service) RemoveJob(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.loadLocked()
	if !s.removeLocked(id) {
		return false
	}
	s.cancelTimerLocked(id)
	s.saveLocked()
	return true
}

func (s *Service) removeLocked(id string) bool {
	before := len(s.store.Jobs)
	filtered := s.store.Jobs[:0]
	for _, j := range s.store.Jobs {
		if j.ID != id {
			filtered = append(filtered, j)
		}
	}
	s.store.Jobs = filtered
	return len(filtered) < before
}

// EnableJob enables or disables a job.
func (s *Service) EnableJob(id string, enabled bool) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.loadLocked()
	for i := range s.store.Jobs {
		j := &s.store.Jobs[i]
		if j.ID != id {
			continue
		}
		j.Enabled = enabled
		j.UpdatedAtMs = nowMs()
		if enabled {
			j.State.NextRunAtMs = computeNextRun(j.Schedule, nowMs())
			if s.runCtx != nil {
				s.armJobLocked(*j)
			}
		} else {
			j.State.NextRunAtMs = nil
			s.cancelTimerLocked(id)
		}
		s.saveLocked()
		return *j, true
	}
	return Job{}, false
}

// --------------------------------------------------------------------------
// Internal scheduling logic
// --------------------------------------------------------------------------

func (s *Service) recomputeNextRunsLocked() {
	now := nowMs()
	for i := range s.store.Jobs {
		if s.store.Jobs[i].Enabled {
			s.store.Jobs[i].State.NextRunAtMs = computeNextRun(s.store.Jobs[i].Schedule, now)
		}
	}
}

func (s *Service) armAllLocked() {
	for _, j := range s.store.Jobs {
		if j.Enabled {
			s.armJobLocked(j)
		}
	}
}

func (s *Service) armJobLocked(job Job) {
	s.cancelTimerLocked(job.ID)

	switch job.Schedule.Kind {
	case KindEvery:
		if job.Schedule.EveryMs == nil || *job.Schedule.EveryMs <= 0 {
			return
		}
		d := time.Duration(*job.Schedule.EveryMs) * time.Millisecond
		s.timers[job.ID] = time.AfterFunc(d, func() {
			s.fire(job.ID)
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.runCtx == nil {
				return
			}
			for _, j := range s.store.Jobs {
				if j.ID == job.ID && j.Enabled {
					s.armJobLocked(j)
					break
				}
			}
		})

	case KindAt:
		if job.Schedule.AtMs == nil {
			return
		}
		delay := time.Until(time.UnixMilli(*job.Schedule.AtMs))
		if delay < 0 {
			return
		}
		s.timers[job.ID] = time.AfterFunc(delay, func() { s.fire(job.ID) })

	case KindCron:
		sched, err := parseCron(job.Schedule.Expr)
		if err != nil {
			slog.Warn("cron: invalid cron expression", "job", job.ID, "expr", job.Schedule.Expr, "err", err)
			return
		}
		loc, err := job.Schedule.location()
		if err != nil {
			loc = time.Local
		}
		id := job.ID
		s.robfigIDs[id] = s.robfig.Schedule(withLocation(sched, loc), robfigcron.FuncJob(func() { s.fire(id) }))
	}
}

func (s *Service) cancelTimerLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	if eid, ok := s.robfigIDs[id]; ok {
		s.robfig.Remove(eid)
		delete(s.robfigIDs, id)
	}
}

// fire sends the reminder to the agent and records the outcome.
func (s *Service) fire(id string) {
	s.mu.Lock()
	var job *Job
	for i := range s.store.Jobs {
		if s.store.Jobs[i].ID == id {
			job = &s.store.Jobs[i]
			break
		}
	}
	if job == nil || !job.Enabled {
		s.mu.Unlock()
		return
	}
	snapshot := *job
	ctx, out := s.runCtx, s.out
	s.mu.Unlock()

	startMs := nowMs()
	slog.Info("cron: firing reminder", "name", snapshot.Name, "id", id)
	err := ErrNotRunning
	if out != nil && ctx != nil {
		err = out.Send(ctx, schema.NewSystemMessage(schema.SeverityInfo, ReminderPrefix+snapshot.Message))
	}
	if err != nil {
		slog.Error("cron: reminder failed", "name", snapshot.Name, "err", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.store.Jobs {
		j := &s.store.Jobs[i]
		if j.ID != id {
			continue
		}
		now := nowMs()
		j.State.LastRunAtMs = &startMs
		j.State.LastStatus = "ok"
		j.State.LastError = ""
		if err != nil {
			j.State.LastStatus = "error"
			j.State.LastError = err.Error()
		}
		j.UpdatedAtMs = now

		if j.Schedule.Kind == KindAt {
			if j.DeleteAfterRun {
				s.removeLocked(id)
				delete(s.timers, id)
			} else {
				j.Enabled = false
				j.State.NextRunAtMs = nil
			}
		} else {
			j.State.NextRunAtMs = computeNextRun(j.Schedule, now)
		}
		break
	}
	s.saveLocked()
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

func (s *Service) loadLocked() error {
	if s.loaded {
		return nil
	}
	data, err := os.ReadFile(s.storePath)
	if errors.Is(err, os.ErrNotExist) {
		s.store = jobStore{Version: 1}
		s.loaded = true
		return nil
	}
	if err != nil {
		return err
	}
	var st jobStore
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	s.store = st
	s.loaded = true
	return nil
}

func (s *Service) saveLocked() {
	if err := os.MkdirAll(filepath.Dir(s.storePath), 0o755); err != nil {
		slog.Warn("cron: mkdir failed", "err", err)
		return
	}
	if s.store.Version == 0 {
		s.store.Version = 1
	}
	data, err := json.MarshalIndent(s.store, "", "  ")
	if err != nil {
		slog.Warn("cron: marshal failed", "err", err)
		return
	}
	if err := os.WriteFile(s.storePath, data, 0o644); err != nil {
		slog.Warn("cron: write failed", "err", err)
	}
}

// --------------------------------------------------------------------------
// Utility
// --------------------------------------------------------------------------

func nowMs() int64 { return time.Now().UnixMilli() }

func parseCron(expr string) (robfigcron.Schedule, error) {
	return robfigcron.ParseStandard(expr)
}

func computeNextRun(sched Schedule, nowMs int64) *int64 {
	switch sched.Kind {
	case KindAt:
		if sched.AtMs != nil && *sched.AtMs > nowMs {
			v := *sched.AtMs
			return &v
		}
	case KindEvery:
		if sched.EveryMs != nil && *sched.EveryMs > 0 {
			v := nowMs + *sched.EveryMs
			return &v
		}
	case KindCron:
		parsed, err := parseCron(sched.Expr)
		if err != nil {
			return nil
		}
		loc, err := sched.location()
		if err != nil {
			loc = time.Local
		}
		v := parsed.Next(time.UnixMilli(nowMs).In(loc)).UnixMilli()
		return &v
	}
	return nil
}

// locSchedule evaluates a schedule in a fixed location.
type locSchedule struct {
	inner robfigcron.Schedule
	loc   *time.Location
}

func (l locSchedule) Next(t time.Time) time.Time {
	return l.inner.Next(t.In(l.loc))
}

func withLocation(s robfigcron.Schedule, loc *time.Location) robfigcron.Schedule {
	return locSchedule{inner: s, loc: loc}
}
