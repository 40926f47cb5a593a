package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/frontdesk/internal/mail"
)

// defaultClassification is the permissive fallback used when the model's
// answer cannot be parsed, or when the completion provider is unreachable.
// It never silently escalates; the escalation decision runs on it like any
// other result.
func defaultClassification() Classification {
	return Classification{
		Category:        "general",
		Urgency:         UrgencyMedium,
		ComplexityScore: 0.5,
		Reasoning:       "unable to parse classification",
	}
}

// buildClassifySystemPrompt constructs the classifier instructions,
// grounding the judgment in the configured category, urgency, and
// sensitive-topic vocabularies.
func buildClassifySystemPrompt(categories []string, levels []string, topics []string) string {
	return fmt.Sprintf(`You are a support email classifier. Analyze the email and classify it based on:
1. Category: %s
2. Urgency: %s
3. Complexity score (0-1): How complex is this query?
4. Sensitive topics: Identify any sensitive topics like %s

Return a JSON object with: category, urgency, complexity_score, sensitive_topics (list), and reasoning.`,
		strings.Join(categories, ", "),
		strings.Join(levels, ", "),
		strings.Join(topics, ", "),
	)
}

func buildClassifyUserPrompt(msg *mail.Inbound) string {
	return fmt.Sprintf("Subject: %s\n\nBody: %s", msg.Subject, msg.Body)
}

// rawClassification mirrors the JSON shape the model is asked to produce.
type rawClassification struct {
	Category        string   `json:"category"`
	Urgency         string   `json:"urgency"`
	ComplexityScore float64  `json:"complexity_score"`
	SensitiveTopics []string `json:"sensitive_topics"`
	Reasoning       string   `json:"reasoning"`
}

// parseClassification extracts the first well-formed JSON object from the
// model's answer, tolerating surrounding prose. The second return is false
// when no usable object was found and the default should be substituted.
func parseClassification(text string) (Classification, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return Classification{}, false
	}

	var raw rawClassification
	dec := json.NewDecoder(strings.NewReader(text[start:]))
	if err := dec.Decode(&raw); err != nil {
		return Classification{}, false
	}

	c := Classification{
		Category:        raw.Category,
		Urgency:         ParseUrgency(strings.ToLower(raw.Urgency)),
		ComplexityScore: clamp01(raw.ComplexityScore),
		SensitiveTopics: raw.SensitiveTopics,
		Reasoning:       raw.Reasoning,
	}
	if c.Category == "" {
		c.Category = "general"
	}
	return c, true
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// classify runs the classification step: one completion request, parsed
// into a Classification with the derived requires-review flag. Provider
// failures are recorded as a tagged error and leave Classification absent;
// downstream steps use the same defaults as a parse failure.
func (e *Engine) classify(ctx context.Context, run *Run) {
	system := buildClassifySystemPrompt(e.opts.Categories, e.opts.UrgencyLevels, e.opts.SensitiveTopics)

	started := time.Now()
	answer, err := e.completer.Complete(ctx, system, buildClassifyUserPrompt(run.Msg))
	e.hooks.onLLMCall("classify", time.Since(started).Seconds(), err != nil)
	if err != nil {
		run.Err = stepErr(ErrClassification, err)
		// Decision still runs, on the same defaults a parse failure uses.
		run.RequiresReview = Decide(defaultClassification(), e.decideConfig())
		return
	}

	c, ok := parseClassification(answer)
	if !ok {
		c = defaultClassification()
	}
	c.RequiresReview = Decide(c, e.decideConfig())

	run.Classification = &c
	run.RequiresReview = c.RequiresReview
}
