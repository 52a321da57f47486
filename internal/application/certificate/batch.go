package certificate

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// BatchItem is one request of a batch, tagged with where it came from
type BatchItem struct {
	Line    int
	Request IssueRequest
}

// BatchResult is the outcome of one batch item. Err is nil on success.
type BatchResult struct {
	Line   int
	ID     string
	Result *IssueResult
	Err    error
}

// BatchSummary aggregates the outcomes of a batch
type BatchSummary struct {
	Results   []BatchResult
	Succeeded int
	Failed    int
	// Skipped counts items not attempted after a stop
	Skipped int
}

// IssueBatch issues each item in order as an independent issuance. A failed
// item does not undo earlier ones. With stopOnError the remaining items are
// skipped after the first failure; cancellation of ctx always stops the batch.
func (s *IssuanceService) IssueBatch(ctx context.Context, items []BatchItem, stopOnError bool) *BatchSummary {
	ctx, span := s.tracer.Start(ctx, "certificate.IssueBatch", trace.WithAttributes(
		attribute.Int("certificate.batch_size", len(items)),
	))
	defer span.End()

	summary := &BatchSummary{Results: make([]BatchResult, 0, len(items))}
	for i, item := range items {
		if ctx.Err() != nil || (stopOnError && summary.Failed > 0) {
			summary.Skipped = len(items) - i
			break
		}

		result, err := s.Issue(ctx, item.Request)
		summary.Results = append(summary.Results, BatchResult{
			Line:   item.Line,
			ID:     item.Request.ID,
			Result: result,
			Err:    err,
		})
		if err != nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
	}

	span.SetAttributes(
		attribute.Int("certificate.batch_succeeded", summary.Succeeded),
		attribute.Int("certificate.batch_failed", summary.Failed),
	)
	s.logger.Info("Batch issuance finished",
		zap.Int("total", len(items)),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary
}
