// Package executor compiles search queries and evaluates them against one
// engine or a set of shard engines.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/query"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/errors"
)

// SearchResult is the response body of a search.
type SearchResult struct {
	Query     string             `json:"query"`
	Plan      string             `json:"plan"`
	Status    string             `json:"status"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
	Stopwords []string           `json:"stopwords,omitempty"`
	Lexemes   []string           `json:"lexemes,omitempty"`
}

// Executor runs plans against a single engine.
type Executor struct {
	engine    *indexer.Engine
	compiler  *query.Compiler
	evaluator *query.Evaluator
	logger    *slog.Logger
}

func New(engine *indexer.Engine) *Executor {
	return &Executor{
		engine:    engine,
		compiler:  query.NewCompiler(tokenizer.Analyzer{}, engine),
		evaluator: query.NewEvaluator(engine, engine.Sections()),
		logger:    slog.Default().With("component", "query-executor"),
	}
}

// Compile turns q into a plan whose wildcards are expanded against this
// engine's vocabulary.
func (e *Executor) Compile(q string) (*query.Plan, error) {
	plan, err := e.compiler.Compile(q)
	if err != nil {
		return nil, invalidQuery(err)
	}
	return plan, nil
}

func invalidQuery(err error) error {
	return fmt.Errorf("%w: %w", apperrors.ErrInvalidQuery, err)
}

// Execute evaluates plan and returns at most limit hits.
func (e *Executor) Execute(ctx context.Context, plan *query.Plan, limit int) (*SearchResult, error) {
	sr, err := e.evaluate(plan)
	if err != nil {
		return nil, err
	}
	sr.Results = truncate(sr.Results, limit)
	e.logger.Info("query executed",
		"query", plan.Query,
		"plan", sr.Plan,
		"status", sr.Status,
		"total_hits", sr.TotalHits,
		"results", len(sr.Results),
	)
	return sr, nil
}

// evaluate returns every hit in rank order.
func (e *Executor) evaluate(plan *query.Plan) (*SearchResult, error) {
	res, err := e.evaluator.Evaluate(plan.Postfix)
	if err != nil {
		return nil, fmt.Errorf("%w: evaluating %q: %w", apperrors.ErrIllegalStatement, plan.Query, err)
	}
	sr := &SearchResult{
		Query:     plan.Query,
		Plan:      plan.Postfix.String(),
		Status:    res.Status.String(),
		TotalHits: len(res.Entries),
		Results:   make([]ranker.ScoredDoc, 0, len(res.Entries)),
		Stopwords: res.Stopwords,
		Lexemes:   res.Lexemes,
	}
	sections := e.engine.Sections()
	for _, en := range res.Entries {
		name, ok := e.engine.DocName(en.DocID)
		if !ok {
			name = fmt.Sprintf("#%d", en.DocID)
		}
		doc := ranker.ScoredDoc{
			DocID:     name,
			Score:     ranker.Round(en.Score),
			Proximity: en.Proximity.String(),
			Matches:   make([]ranker.Match, 0, len(en.Offsets)),
		}
		for _, o := range en.Offsets {
			doc.Matches = append(doc.Matches, ranker.Match{
				Section: sections.Name(o.Section),
				Offset:  o.Offset,
				Term:    o.Term,
			})
		}
		sr.Results = append(sr.Results, doc)
	}
	return sr, nil
}

func truncate(docs []ranker.ScoredDoc, limit int) []ranker.ScoredDoc {
	if limit > 0 && len(docs) > limit {
		return docs[:limit]
	}
	return docs
}
