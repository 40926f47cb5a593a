// Package batch drives the pipeline over the mailbox: it receives unread
// messages, rejects malformed ones before a run starts, skips the
// service's own mail, and runs each remaining message through the engine.
// A message is marked read only after its run dispatched successfully, so
// delivery stays at-least-once across crashes.
package batch

import (
	"context"
	"errors"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/frontdesk/internal/mail"
	"github.com/linnemanlabs/frontdesk/internal/mailbox"
	"github.com/linnemanlabs/frontdesk/internal/pipeline"
)

// Runner runs the pipeline for one inbound message.
type Runner interface {
	Run(ctx context.Context, msg *mail.Inbound) *pipeline.Run
}

// Options configures the poller.
type Options struct {
	// Limit caps the messages fetched per poll. Zero means no cap.
	Limit int

	// Interval between polls in the continuous loop.
	Interval time.Duration

	// SelfAddrs are the service's own addresses; mail from them is
	// skipped so replies never trigger replies.
	SelfAddrs []string
}

// Stats summarizes one poll. Errored counts dispatch failures and
// malformed rejections only; absorbed step failures inside a run leave
// the message counted by its outcome.
type Stats struct {
	Fetched         int `json:"fetched"`
	Processed       int `json:"processed"`
	AutoSent        int `json:"auto_sent"`
	RequiringReview int `json:"requiring_review"`
	Errored         int `json:"errored"`
	SkippedSelf     int `json:"skipped_self"`
}

// Poller runs poll batches against a mailbox.
type Poller struct {
	mbox   mailbox.Mailbox
	runner Runner
	logger log.Logger
	opts   Options
	hooks  PollerHooks
}

// NewPoller creates a poller.
func NewPoller(mbox mailbox.Mailbox, runner Runner, logger log.Logger, opts Options, hooks PollerHooks) *Poller {
	if logger == nil {
		logger = log.Nop()
	}
	return &Poller{
		mbox:   mbox,
		runner: runner,
		logger: logger,
		opts:   opts,
		hooks:  hooks,
	}
}

// RunOnce executes one poll batch: receive, filter, run, mark read. The
// returned stats cover the batch even when the error is non-nil partway
// through; a receive failure returns zero stats.
func (p *Poller) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats

	msgs, err := p.mbox.Receive(ctx, p.opts.Limit)
	if err != nil {
		return stats, err
	}
	stats.Fetched = len(msgs)

	for _, msg := range msgs {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		if err := msg.Validate(); err != nil {
			stats.Errored++
			p.logger.Warn(ctx, "rejecting malformed message",
				"message_id", msg.ID, "error", err)
			continue
		}

		if mail.IsSelf(msg.From, p.opts.SelfAddrs) {
			stats.SkippedSelf++
			p.logger.Info(ctx, "skipping self-addressed message",
				"message_id", msg.ID, "from", msg.From)
			// Mark read so the skip is not re-evaluated every poll.
			p.markRead(ctx, msg.ID)
			continue
		}

		run := p.runner.Run(ctx, msg)
		stats.Processed++

		switch {
		case !run.Sent:
			stats.Errored++
		case run.RequiresReview:
			stats.RequiringReview++
			p.markRead(ctx, msg.ID)
		default:
			stats.AutoSent++
			p.markRead(ctx, msg.ID)
		}
	}

	p.hooks.onPoll(&stats)
	p.logger.Info(ctx, "poll complete",
		"fetched", stats.Fetched,
		"processed", stats.Processed,
		"auto_sent", stats.AutoSent,
		"requiring_review", stats.RequiringReview,
		"errored", stats.Errored,
		"skipped_self", stats.SkippedSelf,
	)
	return stats, nil
}

// markRead marks a message read, logging failures. An unread message that
// was already answered is re-fetched next poll; dispatch guards against
// double replies within a run, and the conversation store is keyed by
// message ID, so the cost of a failed mark is a duplicate run, not a
// corrupted log.
func (p *Poller) markRead(ctx context.Context, id string) {
	if err := p.mbox.MarkRead(ctx, id); err != nil {
		p.logger.Error(ctx, err, "mark read failed", "message_id", id)
	}
}

// Run polls immediately and then on every interval tick until the context
// is canceled. Poll errors are logged and do not stop the loop, except a
// receive-unsupported provider which is a configuration error.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.opts.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunOnce(ctx); err != nil {
			if errors.Is(err, mailbox.ErrReceiveUnsupported) || ctx.Err() != nil {
				return err
			}
			p.logger.Error(ctx, err, "poll failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
