// Package pipeline runs the full briefing flow: fetch through the
// backend chain, classify the records, synthesize the briefing.
package pipeline

import (
	"context"
	"time"

	"github.com/nhle/mailbrief/internal/backend"
	"github.com/nhle/mailbrief/internal/briefing"
	"github.com/nhle/mailbrief/internal/classify"
	"github.com/nhle/mailbrief/internal/model"
)

// Pipeline wires the orchestrator to the classification and synthesis
// stages.
type Pipeline struct {
	orch   *backend.Orchestrator
	window time.Duration
	limit  int
}

// New creates a pipeline over the given backend chain.
func New(orch *backend.Orchestrator, window time.Duration, limit int) *Pipeline {
	return &Pipeline{orch: orch, window: window, limit: limit}
}

// Run fetches, annotates, and synthesizes one briefing. The only error
// it returns is the orchestrator's exhaustion error; everything after a
// successful fetch is pure computation.
func (p *Pipeline) Run(
	ctx context.Context,
) (*model.BriefingResult, []backend.Attempt, error) {
	fr, attempts, err := p.orch.Fetch(ctx, p.window, p.limit)
	if err != nil {
		return nil, attempts, err
	}

	annotate(fr)

	result := briefing.Build(fr)
	return &result, attempts, nil
}

// annotate runs the classification pass over the fetched records.
// Automated messages are marked but kept; action sentences are only
// extracted from human correspondence.
func annotate(fr *model.FetchResult) {
	for i := range fr.Records {
		rec := &fr.Records[i]
		rec.Automated = classify.Automated(rec.From, rec.Subject)
		if rec.Automated {
			rec.ActionableSentences = nil
			continue
		}
		rec.ActionableSentences = classify.ActionableSentences(rec.BodyExcerpt)
	}
}
