package pipeline

import "slices"

// DefaultComplexityThreshold is the complexity score at or above which a
// run always escalates.
const DefaultComplexityThreshold = 0.7

// sensitiveComplexityFloor is the complexity score at or above which a
// sensitive topic tips a run into escalation.
const sensitiveComplexityFloor = 0.5

// DecideConfig holds the escalation rule inputs.
type DecideConfig struct {
	// ComplexityThreshold is the unconditional escalation gate.
	// Zero means DefaultComplexityThreshold.
	ComplexityThreshold float64

	// SensitiveTopics is the configured vocabulary. Only tags from this
	// list count toward the sensitive-topic rule.
	SensitiveTopics []string
}

func (c DecideConfig) threshold() float64 {
	if c.ComplexityThreshold <= 0 {
		return DefaultComplexityThreshold
	}
	return c.ComplexityThreshold
}

// Decide reports whether a classification requires human sign-off.
// Rules are evaluated in order, first match wins:
//
//  1. urgency high or critical
//  2. complexity score at or above the configured threshold
//  3. a configured sensitive topic present AND (urgency high/critical OR
//     complexity >= 0.5)
//  4. otherwise, no escalation
//
// Sensitive topics alone never force escalation: a simple question about a
// sensitive topic can be answered from the knowledge base. Pure function,
// no side effects.
func Decide(c Classification, cfg DecideConfig) bool {
	if c.Urgency.AtLeast(UrgencyHigh) {
		return true
	}
	if c.ComplexityScore >= cfg.threshold() {
		return true
	}
	if hasConfiguredTopic(c.SensitiveTopics, cfg.SensitiveTopics) &&
		(c.Urgency.AtLeast(UrgencyHigh) || c.ComplexityScore >= sensitiveComplexityFloor) {
		return true
	}
	return false
}

func hasConfiguredTopic(tags, vocabulary []string) bool {
	for _, tag := range tags {
		if slices.Contains(vocabulary, tag) {
			return true
		}
	}
	return false
}
