package pipeline

import "context"

// DefaultTopK bounds retrieval when no top-k is configured.
const DefaultTopK = 4

// retrieve runs the context-retrieval step. The query is the subject and
// body concatenated; there is no separate query-rewriting stage. Passages
// keep the collaborator's ranking order, with no dedup or re-ranking here.
// Any collaborator error degrades to an empty context and never propagates.
func (e *Engine) retrieve(ctx context.Context, run *Run) {
	query := run.Msg.Subject + " " + run.Msg.Body

	topK := e.opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	passages, err := e.retriever.Search(ctx, query, topK)
	if err != nil {
		// Absorbed: generation treats an empty context explicitly, so the
		// run stays deterministic without this collaborator.
		e.logger.Warn(ctx, "context retrieval failed, continuing with empty context",
			"message_id", run.Msg.ID, "error", err)
		e.hooks.onStepError(ErrRetrieval)
		run.Context = nil
		return
	}

	run.Context = passages
}
