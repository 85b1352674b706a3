package assessment

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Engine evaluates records against the attribute and document rules.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine returns an engine bound to cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate runs every applicable rule against one record.
func (e *Engine) Evaluate(r Record) RecordAssessment {
	result := RecordAssessment{
		Identifier: r.Identifier(),
		Hierarchy:  r.Hierarchy(),
		Title:      r.First(FieldTitle),
		Attributes: make([]AttributeResult, 0, len(attributeRules)),
		Documents:  []DocumentResult{},
	}
	if code := r.First(FieldStatusCode); code != "" {
		result.StatusCode = &code
	}

	for _, rule := range attributeRules {
		attr := rule(r, e.cfg)
		result.tally(attr.Status)
		result.Attributes = append(result.Attributes, attr)
	}

	if result.Hierarchy == programmeHierarchy {
		result.Documents = make([]DocumentResult, 0, len(documentRules))
		for _, rule := range documentRules {
			doc := rule.evaluate(r, e.cfg)
			result.tally(doc.Status)
			result.Documents = append(result.Documents, doc)
		}
	}

	result.OverallStatus = StatusPass
	if result.FailureCount > 0 {
		result.OverallStatus = StatusFail
	}
	return result
}

func (r *RecordAssessment) tally(s Status) {
	switch s {
	case StatusFail:
		r.FailureCount++
	case StatusNotApplicable:
		r.NotApplicables++
	case StatusPass:
	}
}

// EvaluateAll evaluates records on up to workers goroutines and returns the
// assessments in input order. workers <= 0 means GOMAXPROCS.
func (e *Engine) EvaluateAll(ctx context.Context, records []Record, workers int) ([]RecordAssessment, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]RecordAssessment, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, record := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.Evaluate(record)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
