// Package planner holds imported drafts until the user decides on them and
// turns accepted drafts into stored tasks.
package planner

import (
	"errors"
	"sync"
	"time"

	"journeycal/internal/model"
)

// State is the review state of a draft. Accepted and Rejected are terminal.
type State string

const (
	Proposed State = "proposed"
	Accepted State = "accepted"
	Rejected State = "rejected"
)

var (
	ErrUnknownDraft   = errors.New("unknown draft")
	ErrAlreadyDecided = errors.New("draft already accepted or rejected")
	ErrDraftBusy      = errors.New("draft is being accepted")
)

// Review is a draft together with its decision.
type Review struct {
	Draft     model.Draft `json:"draft"`
	State     State       `json:"state"`
	DecidedAt *time.Time  `json:"decided_at,omitempty"`
	TaskIDs   []string    `json:"task_ids,omitempty"`

	busy bool
}

// Inbox is an in-memory, concurrency-safe collection of drafts under review.
type Inbox struct {
	mu    sync.RWMutex
	order []string
	items map[string]*Review
	seen  map[string]string
	now   func() time.Time
}

func NewInbox() *Inbox {
	return &Inbox{
		items: make(map[string]*Review),
		seen:  make(map[string]string),
		now:   time.Now,
	}
}

// dedupKey identifies the same calendar instance across repeated imports.
// Drafts without a source reference are never deduplicated.
func dedupKey(d model.Draft) string {
	if d.SourceRef == "" {
		return ""
	}
	return string(d.Source) + "|" + d.SourceRef + "|" + d.StartDate + "|" + d.StartTime
}

// Propose adds drafts in the Proposed state and returns those actually
// added; drafts already seen (by ID or by source instance) are skipped.
func (in *Inbox) Propose(drafts ...model.Draft) []model.Draft {
	in.mu.Lock()
	defer in.mu.Unlock()

	added := make([]model.Draft, 0, len(drafts))
	for _, d := range drafts {
		if _, dup := in.items[d.ID]; dup || d.ID == "" {
			continue
		}
		key := dedupKey(d)
		if key != "" {
			if _, dup := in.seen[key]; dup {
				continue
			}
			in.seen[key] = d.ID
		}
		in.items[d.ID] = &Review{Draft: d, State: Proposed}
		in.order = append(in.order, d.ID)
		added = append(added, d)
	}
	return added
}

// Pending lists proposed drafts in the order they arrived.
func (in *Inbox) Pending() []model.Draft {
	in.mu.RLock()
	defer in.mu.RUnlock()

	out := make([]model.Draft, 0, len(in.order))
	for _, id := range in.order {
		if r := in.items[id]; r.State == Proposed {
			out = append(out, r.Draft)
		}
	}
	return out
}

// Get returns a snapshot of one review.
func (in *Inbox) Get(id string) (Review, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()

	r, ok := in.items[id]
	if !ok {
		return Review{}, false
	}
	cp := *r
	cp.TaskIDs = append([]string(nil), r.TaskIDs...)
	return cp, true
}

// Reject moves a proposed draft to Rejected.
func (in *Inbox) Reject(id string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	r, err := in.proposedLocked(id)
	if err != nil {
		return err
	}
	now := in.now()
	r.State = Rejected
	r.DecidedAt = &now
	return nil
}

// claim marks a proposed draft busy so only one accept runs at a time.
func (in *Inbox) claim(id string) (model.Draft, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	r, err := in.proposedLocked(id)
	if err != nil {
		return model.Draft{}, err
	}
	r.busy = true
	return r.Draft, nil
}

// release ends a claim. With task IDs the draft becomes Accepted, without
// it returns to Proposed.
func (in *Inbox) release(id string, taskIDs []string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	r, ok := in.items[id]
	if !ok {
		return
	}
	r.busy = false
	if len(taskIDs) == 0 {
		return
	}
	now := in.now()
	r.State = Accepted
	r.DecidedAt = &now
	r.TaskIDs = taskIDs
}

func (in *Inbox) proposedLocked(id string) (*Review, error) {
	r, ok := in.items[id]
	if !ok {
		return nil, ErrUnknownDraft
	}
	if r.State != Proposed {
		return nil, ErrAlreadyDecided
	}
	if r.busy {
		return nil, ErrDraftBusy
	}
	return r, nil
}
