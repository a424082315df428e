package model

import "time"

// FlowKind names a multi-step conversational command.
type FlowKind string

const (
	FlowSingle FlowKind = "single"
	FlowBatch  FlowKind = "batch"
)

// FlowStep tags where in the flow the user currently is. Idle is represented
// by the absence of a stored state.
type FlowStep string

const (
	StepAwaitingLink  FlowStep = "awaiting_link"
	StepAwaitingCount FlowStep = "awaiting_count"
)

// ConversationState holds one user's progress through a flow. At most one per
// user; starting a new flow discards the previous one.
type ConversationState struct {
	Kind      FlowKind        `json:"kind"`
	Step      FlowStep        `json:"step"`
	Link      SourceReference `json:"link"`
	CreatedAt time.Time       `json:"created_at"`
}
