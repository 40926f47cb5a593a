package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/frontdesk/internal/mail"
)

// holdingTimeframe returns the follow-up promise for the holding reply.
func holdingTimeframe(u Urgency) string {
	if u == UrgencyCritical {
		return "2 hours"
	}
	return "24 hours"
}

// buildHoldingReply is the fixed interim reply sent to the customer when a
// run escalates. It, not the draft, becomes the run's final reply.
func buildHoldingReply(customerName, subject string, urgency Urgency, sig Signature) string {
	return fmt.Sprintf(`Dear %s,

Thank you for contacting us regarding: %s

Your inquiry has been escalated to our specialist team due to the nature of your request.

One of our specialists will personally review your case and get back to you within %s.

If this matter is extremely urgent, please call us directly at our support hotline.%s`,
		customerName, subject, holdingTimeframe(urgency), sig.Render())
}

// buildReviewerNotification assembles the full-detail escalation email for
// the human reviewer: classification, original body, unsent draft, and the
// action-required instruction naming the sender as the reply target.
func buildReviewerNotification(run *Run) string {
	rule := strings.Repeat("=", 60)
	c := run.classificationOrDefault()

	draft := run.Draft
	if draft == "" {
		draft = "N/A"
	}

	return fmt.Sprintf(`ESCALATED CUSTOMER EMAIL
%s

Email ID: %s
From: %s
Subject: %s
Received: %s

Classification:
- Category: %s
- Urgency: %s
- Complexity: %.2f
- Reasoning: %s

%s
ORIGINAL EMAIL:
%s
%s

%s
AI GENERATED DRAFT (Not Sent):
%s
%s

%s
ACTION REQUIRED:
Please respond to this customer directly at: %s
A holding response has been sent informing them a specialist will contact them.
%s
`,
		rule,
		run.Msg.ID, run.Msg.From, run.Msg.Subject, run.Msg.ReceivedAt.Format(time.RFC3339),
		c.Category, c.Urgency, c.ComplexityScore, c.Reasoning,
		rule, rule, run.Msg.Body,
		rule, rule, draft,
		rule, run.Msg.From, rule,
	)
}

// escalate runs the escalation path: the holding reply becomes the final
// reply, and the reviewer is notified as an explicit secondary send whose
// outcome is captured independently and never blocks the customer-facing
// delivery or affects the run's sent flag.
func (e *Engine) escalate(ctx context.Context, run *Run) {
	customerName := mail.DisplayName(run.Msg.From)

	urgency := UrgencyHigh
	if run.Classification != nil {
		urgency = run.Classification.Urgency
	}

	run.FinalReply = buildHoldingReply(customerName, run.Msg.Subject, urgency, e.opts.Signature)

	notification := &mail.Outbound{
		To:      []string{e.opts.ReviewerAddr},
		From:    e.fromAddr(run),
		Subject: "[ESCALATED] " + run.Msg.Subject,
		Body:    buildReviewerNotification(run),
	}

	if err := e.sender.Send(ctx, notification); err != nil {
		e.logger.Error(ctx, err, "reviewer notification failed",
			"message_id", run.Msg.ID, "reviewer", e.opts.ReviewerAddr)
		e.hooks.onReviewerNotify(false)
		return
	}

	run.ReviewerNotified = true
	e.hooks.onReviewerNotify(true)
	e.logger.Info(ctx, "reviewer notified", "message_id", run.Msg.ID, "reviewer", e.opts.ReviewerAddr)
}

// finalize runs the finalization path: the draft is promoted verbatim and
// auto-approved, with no human gate.
func (e *Engine) finalize(run *Run) {
	run.FinalReply = run.Draft
	run.Approval = ApprovalApproved
}
