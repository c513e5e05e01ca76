package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"StopLineTrader/internal/engine"
	"StopLineTrader/internal/notifier"

	"github.com/robfig/cron/v3"
)

// Action is one tick activity dispatched by the minute clock.
type Action int

const (
	ActionBuy Action = iota
	ActionSell
	ActionDetect
	ActionFlatten
)

// Plan maps a minute offset since market open to the tick actions due there,
// reproducing the staggered schedule: buys every interval starting at
// 3*coolOut, sells shifted by interval-1, detection shifted by -1, and the
// forced flatten a fixed number of minutes before the close. When sell and
// detect share a minute, sell is listed first so rebalancing always reads the
// previous tick's lines.
type Plan struct {
	Interval           int
	CoolOutTime        int
	SessionMinutes     int
	FlattenBeforeClose int
}

// ActionsAt returns the actions due at offset, in dispatch order.
func (p Plan) ActionsAt(offset int) []Action {
	var out []Action
	start := p.CoolOutTime * 3
	total := p.SessionMinutes - 2*p.Interval

	due := func(first, last int) bool {
		return offset >= first && offset < last && (offset-first)%p.Interval == 0
	}
	if due(start, total) {
		out = append(out, ActionBuy)
	}
	if due(start+p.Interval-1, total+p.Interval-1) {
		out = append(out, ActionSell)
	}
	if due(start-1, total-1) {
		out = append(out, ActionDetect)
	}
	if offset == p.SessionMinutes-p.FlattenBeforeClose {
		out = append(out, ActionFlatten)
	}
	return out
}

// Config holds the clock parameters.
type Config struct {
	MarketOpen         string // "HH:MM" local to Timezone
	Timezone           string
	SessionMinutes     int
	Interval           int
	CoolOutTime        int
	FlattenBeforeClose int
}

// Scheduler drives the session on a one-minute cron clock during market hours.
type Scheduler struct {
	Cron     *cron.Cron
	Session  *engine.Session
	Notifier *notifier.TelegramNotifier
	Ctx      context.Context

	plan      Plan
	loc       *time.Location
	openHour  int
	openMin   int
	dayActive bool
	lastDay   time.Time
}

// NewScheduler creates a scheduler around an existing session.
func NewScheduler(ctx context.Context, session *engine.Session, tn *notifier.TelegramNotifier, cfg Config) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	var hour, min int
	if _, err := fmt.Sscanf(cfg.MarketOpen, "%d:%d", &hour, &min); err != nil {
		return nil, fmt.Errorf("parse market open %q: %w", cfg.MarketOpen, err)
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Session:  session,
		Notifier: tn,
		Ctx:      ctx,
		plan: Plan{
			Interval:           cfg.Interval,
			CoolOutTime:        cfg.CoolOutTime,
			SessionMinutes:     cfg.SessionMinutes,
			FlattenBeforeClose: cfg.FlattenBeforeClose,
		},
		loc:      loc,
		openHour: hour,
		openMin:  min,
	}, nil
}

// RegisterAll registers the minute clock.
func (s *Scheduler) RegisterAll() error {
	if _, err := s.Cron.AddFunc("0 * * * * *", s.onMinute); err != nil {
		return fmt.Errorf("register minute clock: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// offsetAt returns the minute offset since market open, negative before open.
func (s *Scheduler) offsetAt(now time.Time) int {
	open := time.Date(now.Year(), now.Month(), now.Day(), s.openHour, s.openMin, 0, 0, s.loc)
	return int(now.Sub(open) / time.Minute)
}

func (s *Scheduler) onMinute() {
	now := time.Now().In(s.loc)
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return
	}
	offset := s.offsetAt(now)
	if offset < 0 || offset >= s.plan.SessionMinutes {
		s.dayActive = false
		return
	}

	// First in-session minute of the day; also covers a mid-day restart.
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	if !s.dayActive || !day.Equal(s.lastDay) {
		if err := s.Session.StartDay(); err != nil {
			log.Printf("[ERROR] session start: %v", err)
			return
		}
		s.dayActive = true
		s.lastDay = day
	}

	s.Session.OnMinute()
	for _, a := range s.plan.ActionsAt(offset) {
		switch a {
		case ActionBuy:
			s.Session.RebalanceBuy()
		case ActionSell:
			s.Session.RebalanceSell()
		case ActionDetect:
			s.Session.Detect()
		case ActionFlatten:
			s.flatten()
		}
	}
}

func (s *Scheduler) flatten() {
	sum := s.Session.Flatten()
	if sum == nil {
		return
	}
	s.trySend(notifier.FormatSessionReport(sum))
}

// RunStartOfDayNow forces a session start immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunStartOfDayNow() {
	if err := s.Session.StartDay(); err != nil {
		log.Printf("[ERROR] session start: %v", err)
		return
	}
	now := time.Now().In(s.loc)
	s.dayActive = true
	s.lastDay = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/status":
		pool, holdings := s.Session.Snapshot()
		return notifier.FormatStatus(pool, holdings)
	case "/levels":
		return notifier.FormatLevels(s.Session.ActiveLevels())
	case "/flatten":
		sum := s.Session.Flatten()
		if sum == nil {
			return "Session already flattened."
		}
		return notifier.FormatSessionReport(sum)
	default:
		return "Available commands:\n• /status\n• /levels\n• /flatten"
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
