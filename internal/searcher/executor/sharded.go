package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/query"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/searcher/ranker"
	"golang.org/x/sync/errgroup"
)

// ShardedExecutor compiles a query once against the union of every
// shard's vocabulary, evaluates it on all shards in parallel and merges
// the ranked hits. Scores use each shard's own corpus statistics.
type ShardedExecutor struct {
	shards   []*Executor
	compiler *query.Compiler
	logger   *slog.Logger
}

// NewSharded creates an executor over engines. maxExpansion caps the
// merged wildcard expansion; zero means unlimited.
func NewSharded(engines map[int]*indexer.Engine, maxExpansion int) *ShardedExecutor {
	ids := make([]int, 0, len(engines))
	for id := range engines {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	se := &ShardedExecutor{
		shards: make([]*Executor, 0, len(ids)),
		logger: slog.Default().With("component", "sharded-executor"),
	}
	exp := &shardExpander{limit: maxExpansion}
	for _, id := range ids {
		se.shards = append(se.shards, New(engines[id]))
		exp.engines = append(exp.engines, engines[id])
	}
	se.compiler = query.NewCompiler(tokenizer.Analyzer{}, exp)
	return se
}

func (se *ShardedExecutor) Compile(q string) (*query.Plan, error) {
	plan, err := se.compiler.Compile(q)
	if err != nil {
		return nil, invalidQuery(err)
	}
	return plan, nil
}

func (se *ShardedExecutor) Execute(ctx context.Context, plan *query.Plan, limit int) (*SearchResult, error) {
	results := make([]*SearchResult, len(se.shards))
	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range se.shards {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sr, err := shard.evaluate(plan)
			if err != nil {
				return fmt.Errorf("shard %d: %w", i, err)
			}
			results[i] = sr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("shard fan-out: %w", err)
	}

	merged := &SearchResult{
		Query:  plan.Query,
		Plan:   plan.Postfix.String(),
		Status: query.StatusOK.String(),
	}
	perShard := make([][]ranker.ScoredDoc, 0, len(results))
	seenStop := make(map[string]struct{})
	seenLex := make(map[string]struct{})
	for _, sr := range results {
		if sr.Status != query.StatusOK.String() {
			merged.Status = sr.Status
		}
		merged.TotalHits += sr.TotalHits
		perShard = append(perShard, sr.Results)
		merged.Stopwords = appendUnique(merged.Stopwords, sr.Stopwords, seenStop)
		merged.Lexemes = appendUnique(merged.Lexemes, sr.Lexemes, seenLex)
	}
	mergeLimit := limit
	if mergeLimit <= 0 {
		mergeLimit = merged.TotalHits
	}
	merged.Results = merger.Merge(perShard, mergeLimit)
	se.logger.Info("sharded query executed",
		"query", plan.Query,
		"plan", merged.Plan,
		"status", merged.Status,
		"shards_queried", len(se.shards),
		"total_hits", merged.TotalHits,
		"results", len(merged.Results),
	)
	return merged, nil
}

func appendUnique(dst, src []string, seen map[string]struct{}) []string {
	for _, s := range src {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		dst = append(dst, s)
	}
	return dst
}

// shardExpander expands wildcards over the union of the shard
// vocabularies so every shard evaluates the same plan.
type shardExpander struct {
	engines []*indexer.Engine
	limit   int
}

func (x *shardExpander) Expand(pattern string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, eng := range x.engines {
		for _, term := range eng.Expand(pattern) {
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			out = append(out, term)
		}
	}
	sort.Strings(out)
	if x.limit > 0 && len(out) > x.limit {
		out = out[:x.limit]
	}
	return out
}
