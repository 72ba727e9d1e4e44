package model

import "strings"

// Frequency is the repeat step of a recurring draft.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Valid reports whether f is a supported step.
func (f Frequency) Valid() bool {
	return f == Daily || f == Weekly || f == Monthly
}

// DraftSource records where a draft was produced.
type DraftSource string

const (
	SourceFile         DraftSource = "ics"
	SourceSubscription DraftSource = "subscription"
	SourceText         DraftSource = "text"
)

// Draft is a parsed-but-not-yet-persisted candidate event or task. Drafts
// are values: edits are expressed as a DraftOverride and combined with Merge.
type Draft struct {
	ID          string      `json:"id"`
	Source      DraftSource `json:"source"`
	SourceRef   string      `json:"source_ref,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date"`
	StartTime   string      `json:"start_time"`
	EndTime     string      `json:"end_time"`
	Type        TaskType    `json:"type"`
	Confidence  float64     `json:"confidence"`
	Reasoning   string      `json:"reasoning"`

	IsRecurring       bool      `json:"is_recurring"`
	RecurrenceRule    string    `json:"recurrence_rule,omitempty"`
	Frequency         Frequency `json:"frequency,omitempty"`
	RecurrenceEndDate string    `json:"recurrence_end_date,omitempty"`

	// GoalID / GoalTitle are suggestions from text extraction.
	GoalID    string `json:"goal_id,omitempty"`
	GoalTitle string `json:"goal_title,omitempty"`
}

// DraftOverride carries the fields a user changed while reviewing a draft.
// Nil fields keep the draft's value.
type DraftOverride struct {
	Title             *string    `json:"title,omitempty"`
	Description       *string    `json:"description,omitempty"`
	Location          *string    `json:"location,omitempty"`
	StartDate         *string    `json:"start_date,omitempty"`
	EndDate           *string    `json:"end_date,omitempty"`
	StartTime         *string    `json:"start_time,omitempty"`
	EndTime           *string    `json:"end_time,omitempty"`
	Type              *TaskType  `json:"type,omitempty"`
	IsRecurring       *bool      `json:"is_recurring,omitempty"`
	Frequency         *Frequency `json:"frequency,omitempty"`
	RecurrenceEndDate *string    `json:"recurrence_end_date,omitempty"`
}

// Merge returns d with every non-nil field of o applied. Neither input is
// modified. A title override that is blank after trimming is ignored.
func Merge(d Draft, o DraftOverride) Draft {
	out := d
	if o.Title != nil && strings.TrimSpace(*o.Title) != "" {
		out.Title = strings.TrimSpace(*o.Title)
	}
	if o.Description != nil {
		out.Description = *o.Description
	}
	if o.Location != nil {
		out.Location = *o.Location
	}
	if o.StartDate != nil {
		out.StartDate = *o.StartDate
	}
	if o.EndDate != nil {
		out.EndDate = *o.EndDate
	}
	if o.StartTime != nil {
		out.StartTime = *o.StartTime
	}
	if o.EndTime != nil {
		out.EndTime = *o.EndTime
	}
	if o.Type != nil {
		out.Type = *o.Type
	}
	if o.IsRecurring != nil {
		out.IsRecurring = *o.IsRecurring
	}
	if o.Frequency != nil {
		out.Frequency = *o.Frequency
	}
	if o.RecurrenceEndDate != nil {
		out.RecurrenceEndDate = *o.RecurrenceEndDate
	}
	return out
}
