package entity

import "github.com/google/uuid"

// DispatchScopeKind selects the pages a dispatch targets.
type DispatchScopeKind int

const (
	DispatchAllActive DispatchScopeKind = iota
	DispatchChannel
	DispatchPage
)

// DispatchScope is one of AllActiveChannels, OneChannel(id) or OnePage(channelID, pageID).
type DispatchScope struct {
	Kind      DispatchScopeKind
	ChannelID uuid.UUID
	PageID    uuid.UUID
}

func AllActiveChannels() DispatchScope { return DispatchScope{Kind: DispatchAllActive} }

func OneChannel(id uuid.UUID) DispatchScope {
	return DispatchScope{Kind: DispatchChannel, ChannelID: id}
}

func OnePage(channelID, pageID uuid.UUID) DispatchScope {
	return DispatchScope{Kind: DispatchPage, ChannelID: channelID, PageID: pageID}
}

// OutcomeStatus is the result of dispatching one candidate page.
type OutcomeStatus string

const (
	OutcomeEnqueued OutcomeStatus = "enqueued"
	OutcomeSkipped  OutcomeStatus = "skipped"
	OutcomeFailed   OutcomeStatus = "failed"
)

type DispatchOutcome struct {
	ChannelID uuid.UUID     `json:"channel_id"`
	PageID    *uuid.UUID    `json:"page_id,omitempty"`
	Queue     QueueName     `json:"queue,omitempty"`
	JobID     string        `json:"job_id,omitempty"`
	Status    OutcomeStatus `json:"status"`
	Reason    string        `json:"reason,omitempty"`
}

// DispatchReport counts what a dispatch actually enqueued against its candidates.
type DispatchReport struct {
	Total    int               `json:"total"`
	Enqueued int               `json:"jobs_count"`
	Skipped  int               `json:"skipped"`
	Failed   int               `json:"failed"`
	Outcomes []DispatchOutcome `json:"outcomes,omitempty"`
}

func (r *DispatchReport) Record(o DispatchOutcome) {
	r.Total++
	switch o.Status {
	case OutcomeEnqueued:
		r.Enqueued++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
	r.Outcomes = append(r.Outcomes, o)
}
