package jobs

import "context"

// BatchImportPayload is the Job.Payload for TopicBatchImport: one memory
// of a larger memory_batch request, processed independently so a single
// bad item never blocks the rest of the batch (spec.md §4.8 batchStore:
// "per-item failures are reported, the batch always finishes").
type BatchImportPayload struct {
	BatchID string
	Index   int
	Input   interface{}
}

// BatchImporter is the narrow capability a batch-import job handler needs.
type BatchImporter interface {
	ImportOne(ctx context.Context, batchID string, index int, input interface{}) error
}

// NewBatchImportHandler builds the TopicBatchImport Handler.
func NewBatchImportHandler(importer BatchImporter) Handler {
	return func(ctx context.Context, job Job) error {
		payload, ok := job.Payload.(BatchImportPayload)
		if !ok {
			return nil
		}
		return importer.ImportOne(ctx, payload.BatchID, payload.Index, payload.Input)
	}
}

// ConsolidationPayload is the Job.Payload for TopicConsolidation: one
// consolidation pass over a user_context's memories (spec.md §4.12).
// Strategy selects merge/summarize/cluster; IDs names the source memories
// for merge/summarize and the incremental set for cluster (empty means a
// full clustering pass).
type ConsolidationPayload struct {
	UserContext    string
	Strategy       string
	IDs            []string
	Threshold      float64
	MinClusterSize int
}

// Consolidator is the narrow capability a consolidation job handler needs.
type Consolidator interface {
	RunConsolidation(ctx context.Context, userContext, strategy string, ids []string, threshold float64, minClusterSize int) error
}

// NewConsolidationHandler builds the TopicConsolidation Handler.
func NewConsolidationHandler(c Consolidator) Handler {
	return func(ctx context.Context, job Job) error {
		payload, ok := job.Payload.(ConsolidationPayload)
		if !ok {
			return nil
		}
		return c.RunConsolidation(ctx, payload.UserContext, payload.Strategy, payload.IDs, payload.Threshold, payload.MinClusterSize)
	}
}
