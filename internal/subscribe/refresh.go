// Package subscribe periodically pulls configured calendar feeds and
// proposes their entries to the draft inbox.
package subscribe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"journeycal/internal/config"
	"journeycal/internal/ics"
	appLog "journeycal/internal/log"
	"journeycal/internal/model"
	"journeycal/internal/planner"
)

// Fetcher is the part of ics.Fetcher the refresher needs.
type Fetcher interface {
	FetchAll(ctx context.Context, subs []ics.Subscription) ([]ics.FetchResult, []error)
}

// Stats summarizes one refresh run.
type Stats struct {
	Feeds    int `json:"feeds"`
	Proposed int `json:"proposed"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Refresher runs subscription refreshes on a cron schedule.
type Refresher struct {
	subs     []ics.Subscription
	fetcher  Fetcher
	inbox    *planner.Inbox
	loc      *time.Location
	months   int
	schedule string

	mu      sync.Mutex // serializes runs
	cron    *cron.Cron
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New builds a Refresher from cfg. Subscriptions without a URL are ignored.
func New(cfg *config.Config, fetcher Fetcher, inbox *planner.Inbox, loc *time.Location) *Refresher {
	subs := make([]ics.Subscription, 0, len(cfg.Subscriptions))
	for _, s := range cfg.Subscriptions {
		if s.URL == "" {
			continue
		}
		subs = append(subs, ics.Subscription{ID: s.ID, URL: s.URL})
	}
	if loc == nil {
		loc = time.Local
	}
	return &Refresher{
		subs:     subs,
		fetcher:  fetcher,
		inbox:    inbox,
		loc:      loc,
		months:   cfg.RecurrenceDefaultMonths,
		schedule: cfg.RefreshCron,
	}
}

// RunOnce fetches every feed and proposes the parsed drafts. Entries already
// in the inbox are skipped by the inbox's de-duplication.
func (r *Refresher) RunOnce(ctx context.Context) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{Feeds: len(r.subs)}
	if len(r.subs) == 0 {
		return stats, nil
	}

	started := time.Now()
	results, errs := r.fetcher.FetchAll(ctx, r.subs)
	stats.Failed = len(errs)

	for _, res := range results {
		parsed, err := ics.Parse(res.Body, ics.ParseOptions{
			Location:         r.loc,
			Source:           model.SourceSubscription,
			SourceRef:        res.Subscription.ID,
			RecurrenceMonths: r.months,
		})
		if err != nil {
			stats.Failed++
			errs = append(errs, fmt.Errorf("subscription %s: %w", res.Subscription.ID, err))
			continue
		}
		for _, msg := range parsed.Errors {
			appLog.Debug("subscription entry skipped", "id", res.Subscription.ID, "reason", msg)
		}

		added := r.inbox.Propose(parsed.Drafts...)
		stats.Proposed += len(added)
		stats.Skipped += len(parsed.Drafts) - len(added)
	}

	appLog.Info("subscription refresh finished",
		"feeds", stats.Feeds,
		"proposed", stats.Proposed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"elapsed", time.Since(started).String(),
	)
	return stats, errors.Join(errs...)
}

// Start schedules RunOnce on the configured cron schedule. The refresher stops
// when ctx is done or Stop is called.
func (r *Refresher) Start(ctx context.Context) error {
	if r.cron != nil {
		return errors.New("refresher already started")
	}
	r.baseCtx, r.cancel = context.WithCancel(ctx)

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, r.tick); err != nil {
		r.cancel()
		return fmt.Errorf("invalid refresh schedule %q: %w", r.schedule, err)
	}
	r.cron = c
	c.Start()
	appLog.Info("subscription refresh scheduled", "cron", r.schedule, "feeds", len(r.subs))

	go func() {
		<-r.baseCtx.Done()
		r.Stop()
	}()
	return nil
}

func (r *Refresher) tick() {
	if _, err := r.RunOnce(r.baseCtx); err != nil {
		appLog.Error("subscription refresh had failures", err)
	}
}

// Stop halts the schedule, cancels a running refresh and waits for it.
func (r *Refresher) Stop() {
	if r.cron == nil {
		return
	}
	r.cancel()
	<-r.cron.Stop().Done()
}
