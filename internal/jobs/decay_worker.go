package jobs

import "context"

// DecayPayload is the Job.Payload for TopicDecay: one processBatch pass
// over a user_context's stale memories (spec.md §4.10).
type DecayPayload struct {
	UserContext string
	BatchSize   int
}

// DecayProcessor is the narrow capability a decay job handler needs.
type DecayProcessor interface {
	ProcessDecayBatch(ctx context.Context, userContext string, batchSize int) error
}

// NewDecayHandler builds the TopicDecay Handler. cmd/memoriad registers the
// decay topic unconditionally and its hourly schedule enqueues onto it; no
// configuration setting disables the decay queue.
func NewDecayHandler(dp DecayProcessor) Handler {
	return func(ctx context.Context, job Job) error {
		payload, ok := job.Payload.(DecayPayload)
		if !ok {
			return nil
		}
		return dp.ProcessDecayBatch(ctx, payload.UserContext, payload.BatchSize)
	}
}
