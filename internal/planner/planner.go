package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	appLog "journeycal/internal/log"
	"journeycal/internal/model"
	"journeycal/internal/recurrence"
	"journeycal/internal/store"
)

// Repository is the slice of the store the planner writes through.
type Repository interface {
	AddTask(ctx context.Context, in store.NewTask) (model.Task, error)
	CreateGoal(ctx context.Context, in store.NewGoal) (model.Goal, error)
	DeleteGoal(ctx context.Context, id string) error
}

// AcceptRequest carries the user's edits and goal choice for one draft.
type AcceptRequest struct {
	Override model.DraftOverride `json:"override"`
	// GoalID attaches the tasks to an existing goal; it wins over the
	// draft's suggestion.
	GoalID *string `json:"goal_id,omitempty"`
	// CreateGoal creates a goal named after the draft's suggested goal
	// title (or its own title) and attaches the tasks to it.
	CreateGoal bool `json:"create_goal,omitempty"`
}

// AcceptResult lists what was written.
type AcceptResult struct {
	Draft model.Draft  `json:"draft"`
	Goal  *model.Goal  `json:"goal,omitempty"`
	Tasks []model.Task `json:"tasks"`
}

// Planner turns reviewed drafts into tasks.
type Planner struct {
	repo     Repository
	inbox    *Inbox
	expander recurrence.Expander
	// recurrenceMonths bounds recurring drafts that lack an end date.
	recurrenceMonths int
}

func New(repo Repository, inbox *Inbox, recurrenceMonths int) *Planner {
	if recurrenceMonths <= 0 {
		recurrenceMonths = 6
	}
	return &Planner{repo: repo, inbox: inbox, recurrenceMonths: recurrenceMonths}
}

// Inbox exposes the planner's draft inbox.
func (p *Planner) Inbox() *Inbox {
	return p.inbox
}

// Reject discards a proposed draft.
func (p *Planner) Reject(id string) error {
	return p.inbox.Reject(id)
}

// Accept merges req.Override into the draft, expands it when recurring and
// creates one task per date.
//
// Every date is attempted even if some fail; failures are returned joined
// alongside the tasks that were written. The draft becomes Accepted once at
// least one task exists. A bad recurrence range or date stops the batch
// before anything is written and leaves the draft Proposed. A goal created
// for the draft is removed again when no task could be written.
func (p *Planner) Accept(ctx context.Context, id string, req AcceptRequest) (AcceptResult, error) {
	draft, err := p.inbox.claim(id)
	if err != nil {
		return AcceptResult{}, err
	}

	var createdIDs []string
	defer func() { p.inbox.release(id, createdIDs) }()

	merged := model.Merge(draft, req.Override)
	res := AcceptResult{Draft: merged, Tasks: []model.Task{}}

	dates, err := p.dates(merged)
	if err != nil {
		return res, err
	}

	goalID := req.GoalID
	if goalID == nil && merged.GoalID != "" {
		g := merged.GoalID
		goalID = &g
	}
	if req.CreateGoal {
		title := merged.GoalTitle
		if strings.TrimSpace(title) == "" {
			title = merged.Title
		}
		g, err := p.repo.CreateGoal(ctx, store.NewGoal{Title: title})
		if err != nil {
			return res, fmt.Errorf("create goal for draft: %w", err)
		}
		res.Goal = &g
		goalID = &g.ID
	}

	taskType := merged.Type
	if taskType != model.TypeEvent {
		taskType = model.TypeTask
	}

	var errs []error
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		t, err := p.repo.AddTask(ctx, store.NewTask{
			GoalID:    goalID,
			Title:     merged.Title,
			Type:      taskType,
			Date:      &date,
			StartTime: optional(merged.StartTime),
			EndTime:   optional(merged.EndTime),
			Notes:     notesFor(merged),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", date, err))
			continue
		}
		res.Tasks = append(res.Tasks, t)
		createdIDs = append(createdIDs, t.ID)
	}

	if res.Goal != nil && len(res.Tasks) == 0 {
		if err := p.repo.DeleteGoal(context.WithoutCancel(ctx), res.Goal.ID); err != nil {
			errs = append(errs, fmt.Errorf("remove empty goal %s: %w", res.Goal.ID, err))
		} else {
			res.Goal = nil
		}
	}

	if len(errs) > 0 {
		appLog.Error("draft accept incomplete", errors.Join(errs...),
			"draft", id, "created", len(res.Tasks), "failed", len(errs))
	} else {
		appLog.Info("draft accepted", "draft", id, "tasks", len(res.Tasks), "recurring", merged.IsRecurring)
	}
	return res, errors.Join(errs...)
}

// dates lists the task dates for a merged draft.
func (p *Planner) dates(d model.Draft) ([]string, error) {
	start, err := recurrence.ParseDate(d.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start %w", store.ErrInvalidInput, err)
	}
	if !d.IsRecurring {
		return []string{start.Format(model.DateLayout)}, nil
	}

	freq := d.Frequency
	if !freq.Valid() {
		freq = recurrence.ParseFrequency(d.RecurrenceRule)
	}
	until := recurrence.AddMonths(start, p.recurrenceMonths)
	if d.RecurrenceEndDate != "" {
		if until, err = recurrence.ParseDate(d.RecurrenceEndDate); err != nil {
			return nil, fmt.Errorf("%w: recurrence end %w", store.ErrInvalidInput, err)
		}
	}

	occ, err := p.expander.Expand(start, freq, until)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(occ))
	for i, t := range occ {
		out[i] = t.Format(model.DateLayout)
	}
	return out, nil
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func notesFor(d model.Draft) *string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(d.Description); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(d.Location); s != "" {
		parts = append(parts, "Location: "+s)
	}
	if len(parts) == 0 {
		return nil
	}
	n := strings.Join(parts, "\n")
	return &n
}
