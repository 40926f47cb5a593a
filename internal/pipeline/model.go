package pipeline

import (
	"time"

	"github.com/linnemanlabs/frontdesk/internal/mail"
)

// Stage tracks where a run is in the pipeline.
type Stage string

const (
	// StageCreated means the run exists but no step has executed yet.
	StageCreated Stage = "created"

	// StageClassified means the classification step has completed.
	StageClassified Stage = "classified"

	// StageContextRetrieved means knowledge-base retrieval has completed.
	StageContextRetrieved Stage = "context_retrieved"

	// StageDrafted means a draft reply exists.
	StageDrafted Stage = "drafted"

	// StageEscalated means the run was routed to a human reviewer.
	StageEscalated Stage = "escalated"

	// StageFinalized means the draft was auto-approved as the final reply.
	StageFinalized Stage = "finalized"

	// StageDispatched means the sender-facing reply was accepted by the mailbox.
	StageDispatched Stage = "dispatched"

	// StageDone is the terminal state.
	StageDone Stage = "done"
)

// Urgency is one level of the ordered urgency scale.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

var urgencyRank = map[Urgency]int{
	UrgencyLow:      0,
	UrgencyMedium:   1,
	UrgencyHigh:     2,
	UrgencyCritical: 3,
}

// AtLeast reports whether u is at or above the given level on the scale.
// Unknown levels rank below low.
func (u Urgency) AtLeast(min Urgency) bool {
	ur, ok := urgencyRank[u]
	if !ok {
		return false
	}
	return ur >= urgencyRank[min]
}

// ParseUrgency normalizes a raw urgency string, defaulting to medium for
// anything outside the known scale.
func ParseUrgency(raw string) Urgency {
	switch Urgency(raw) {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return Urgency(raw)
	default:
		return UrgencyMedium
	}
}

// Classification is the structured judgment produced once per run by the
// classification step. Never mutated after creation.
type Classification struct {
	Category        string   `json:"category"`
	Urgency         Urgency  `json:"urgency"`
	ComplexityScore float64  `json:"complexity_score"`
	SensitiveTopics []string `json:"sensitive_topics"`
	Reasoning       string   `json:"reasoning"`
	RequiresReview  bool     `json:"requires_human_review"`
}

// Approval is the tri-state human-approval outcome. Declined is reserved
// for a manual-approval extension and is never set by the automated path.
type Approval string

const (
	ApprovalUnset    Approval = ""
	ApprovalApproved Approval = "approved"
	ApprovalDeclined Approval = "declined"
)

// Run is the single mutable record threaded through the pipeline for one
// inbound message. It is created at run start, mutated in place by each
// step in pipeline order, and discarded after dispatch; the durable record
// is the conversation log.
type Run struct {
	Msg *mail.Inbound `json:"message"`

	Stage          Stage           `json:"stage"`
	Classification *Classification `json:"classification,omitempty"`
	Context        []string        `json:"retrieved_context,omitempty"`
	Draft          string          `json:"draft_reply,omitempty"`
	RequiresReview bool            `json:"requires_review"`
	Approval       Approval        `json:"approval,omitempty"`
	FinalReply     string          `json:"final_reply,omitempty"`
	Sent           bool            `json:"sent"`

	// ReviewerNotified captures the independent outcome of the secondary
	// reviewer-notification send; it never affects Sent.
	ReviewerNotified bool `json:"reviewer_notified,omitempty"`

	// Err holds the last tagged step error. Absorbed failures
	// (classification, retrieval, generation) are recorded here but do not
	// stop the run; only dispatch failures surface to the batch driver.
	Err *StepError `json:"error,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Duration    float64   `json:"duration_seconds,omitempty"`
}

// NewRun creates a run in the initial state for the given message.
func NewRun(msg *mail.Inbound) *Run {
	return &Run{
		Msg:       msg,
		Stage:     StageCreated,
		StartedAt: time.Now(),
	}
}

// Errored reports whether the run ended with a surfaced error
// (dispatch failure). Absorbed step failures do not count.
func (r *Run) Errored() bool {
	return r.Err != nil && r.Err.Kind == ErrDispatch
}
