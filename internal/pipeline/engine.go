package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/frontdesk/internal/convlog"
	"github.com/linnemanlabs/frontdesk/internal/mail"
)

var tracer = otel.Tracer("github.com/linnemanlabs/frontdesk/internal/pipeline")

// Options configures the pipeline engine.
type Options struct {
	// Categories, UrgencyLevels, and SensitiveTopics are the configured
	// vocabularies handed to the classifier prompt. SensitiveTopics doubles
	// as the escalation-rule vocabulary.
	Categories      []string
	UrgencyLevels   []string
	SensitiveTopics []string

	// ComplexityThreshold gates unconditional escalation.
	// Zero means DefaultComplexityThreshold.
	ComplexityThreshold float64

	// TopK bounds knowledge-base retrieval. Zero means DefaultTopK.
	TopK int

	// ReviewerAddr receives escalation notifications.
	ReviewerAddr string

	// DefaultFrom is the reply identity when the inbound message carries
	// no recipient-of-record.
	DefaultFrom string

	// Signature is the fixed block appended to every outgoing reply.
	Signature Signature
}

// Engine executes the processing pipeline for one inbound message at a
// time: classify, retrieve context, draft, decide escalation, then dispatch
// exactly one sender-facing reply. Collaborator calls are issued strictly
// in pipeline order; there is no concurrency within one run.
type Engine struct {
	completer Completer
	retriever Retriever
	sender    Sender
	conv      ConversationLog
	logger    log.Logger
	opts      Options
	hooks     EngineHooks
}

// NewEngine creates a pipeline engine with the given collaborators.
func NewEngine(completer Completer, retriever Retriever, sender Sender, conv ConversationLog, logger log.Logger, opts Options, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		completer: completer,
		retriever: retriever,
		sender:    sender,
		conv:      conv,
		logger:    logger,
		opts:      opts,
		hooks:     hooks,
	}
}

// Run processes one inbound message end to end and returns the completed
// run record. The message must have passed mail.Inbound.Validate before a
// run starts; malformed input is a batch-driver rejection, not a pipeline
// state. Errors from absorbed steps are data on the run, not aborts: the
// run always produces a sender-facing outcome unless the mailbox itself
// cannot be reached.
func (e *Engine) Run(ctx context.Context, msg *mail.Inbound) *Run {
	run := NewRun(msg)

	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("frontdesk.message.id", msg.ID),
		attribute.String("frontdesk.message.subject", msg.Subject),
	))
	defer span.End()

	L := e.logger.With("message_id", msg.ID, "from", msg.From)

	e.step(ctx, run, "pipeline.classify", func(ctx context.Context) { e.classify(ctx, run) })
	run.Stage = StageClassified

	e.step(ctx, run, "pipeline.retrieve", func(ctx context.Context) { e.retrieve(ctx, run) })
	run.Stage = StageContextRetrieved

	e.step(ctx, run, "pipeline.generate", func(ctx context.Context) { e.generate(ctx, run) })
	run.Stage = StageDrafted

	// Exactly one of the two paths executes per run. The decision was
	// computed once at classification time and is not re-evaluated here.
	if run.RequiresReview {
		e.step(ctx, run, "pipeline.escalate", func(ctx context.Context) { e.escalate(ctx, run) })
		run.Stage = StageEscalated
		L.Info(ctx, "run escalated to human review",
			"urgency", string(e.runUrgency(run)), "reviewer_notified", run.ReviewerNotified)
	} else {
		e.finalize(run)
		run.Stage = StageFinalized
		L.Info(ctx, "run finalized, draft auto-approved")
	}

	e.step(ctx, run, "pipeline.dispatch", func(ctx context.Context) { e.dispatch(ctx, run) })

	run.CompletedAt = time.Now()
	run.Duration = time.Since(run.StartedAt).Seconds()

	span.SetAttributes(
		attribute.String("frontdesk.run.stage", string(run.Stage)),
		attribute.Bool("frontdesk.run.sent", run.Sent),
		attribute.Bool("frontdesk.run.escalated", run.RequiresReview),
	)

	e.hooks.onComplete(&CompleteEvent{
		Escalated: run.RequiresReview,
		Sent:      run.Sent,
		Urgency:   string(e.runUrgency(run)),
		Category:  e.runCategory(run),
		Duration:  run.Duration,
	})

	L.Info(ctx, "run complete",
		"stage", string(run.Stage),
		"sent", run.Sent,
		"escalated", run.RequiresReview,
		"duration", run.Duration,
	)

	return run
}

// dispatch sends the final reply to the original sender. On acceptance the
// inbound message and the reply are appended to the conversation log and
// the conversation is flushed to durable storage. On failure the run ends
// incomplete with a surfaced error; retry is a batch-level concern.
func (e *Engine) dispatch(ctx context.Context, run *Run) {
	// The state machine forbids re-entering dispatch once a run is done.
	if run.Sent || run.Stage == StageDone {
		return
	}

	out := &mail.Outbound{
		To:      []string{run.Msg.From},
		From:    e.fromAddr(run),
		Subject: "Re: " + run.Msg.Subject,
		Body:    run.FinalReply,
		ReplyTo: e.fromAddr(run),
	}

	if err := e.sender.Send(ctx, out); err != nil {
		e.logger.Error(ctx, err, "dispatch failed", "message_id", run.Msg.ID, "to", run.Msg.From)
		run.Err = stepErr(ErrDispatch, err)
		run.Sent = false
		e.hooks.onDispatch(false)
		return
	}

	run.Sent = true
	run.Stage = StageDispatched
	e.hooks.onDispatch(true)

	e.appendConversation(ctx, run)
	run.Stage = StageDone
}

// appendConversation records the completed exchange and flushes it. Only
// completed sender-visible exchanges are persisted; escalation-without-send
// and errored runs never reach this point.
func (e *Engine) appendConversation(ctx context.Context, run *Run) {
	e.conv.Append(run.Msg.ID, convlog.Entry{
		Role:      convlog.RoleInbound,
		Content:   run.Msg.Body,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"subject": run.Msg.Subject,
			"from":    run.Msg.From,
		},
	})

	meta := map[string]any{}
	if run.Classification != nil {
		meta["classification"] = run.Classification
	}
	e.conv.Append(run.Msg.ID, convlog.Entry{
		Role:      convlog.RoleAssistant,
		Content:   run.FinalReply,
		Timestamp: time.Now(),
		Metadata:  meta,
	})

	if err := e.conv.Flush(ctx, run.Msg.ID); err != nil {
		// The reply is already out; losing the log copy is not a dispatch
		// failure.
		e.logger.Error(ctx, err, "conversation flush failed", "conversation_id", run.Msg.ID)
	}
}

// step wraps one pipeline step in a span and error accounting.
func (e *Engine) step(ctx context.Context, run *Run, name string, fn func(ctx context.Context)) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("frontdesk.message.id", run.Msg.ID),
	))
	defer span.End()

	before := run.Err
	fn(ctx)
	if run.Err != nil && run.Err != before {
		span.SetAttributes(attribute.String("frontdesk.step.error", string(run.Err.Kind)))
		e.hooks.onStepError(run.Err.Kind)
	}
}

// fromAddr picks the reply identity: the first recipient-of-record when
// available, else the configured default.
func (e *Engine) fromAddr(run *Run) string {
	if len(run.Msg.To) > 0 && run.Msg.To[0] != "" {
		return mail.Address(run.Msg.To[0])
	}
	return e.opts.DefaultFrom
}

func (e *Engine) decideConfig() DecideConfig {
	return DecideConfig{
		ComplexityThreshold: e.opts.ComplexityThreshold,
		SensitiveTopics:     e.opts.SensitiveTopics,
	}
}

// classificationOrDefault returns the run's classification, or the same
// defaults a parse failure produces when the step errored out entirely.
func (r *Run) classificationOrDefault() Classification {
	if r.Classification != nil {
		return *r.Classification
	}
	return defaultClassification()
}

func (e *Engine) runUrgency(run *Run) Urgency {
	if run.Classification != nil {
		return run.Classification.Urgency
	}
	return UrgencyMedium
}

func (e *Engine) runCategory(run *Run) string {
	if run.Classification != nil {
		return run.Classification.Category
	}
	return "general"
}
