// Package service turns user queries into answers: nearest-neighbor
// retrieval over the index, then a completion-service explanation of
// which documents to open.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kamalkrbh/doc-finder/internal/domain"
	"github.com/kamalkrbh/doc-finder/internal/llm"
)

// User-facing fallback strings. The orchestrator is an interactive
// boundary and must never crash the loop.
const (
	noResultsMessage = "I could not find any PDF files in the index that seem relevant to your query."
	apologyMessage   = "An unexpected error occurred while processing your query."
)

// Searcher is the subset of the index engine the orchestrator needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
}

// QueryEngine composes retrieval and generation.
type QueryEngine struct {
	index   Searcher
	llm     llm.CompletionService
	k       int
	timeout time.Duration
	log     *zap.Logger
}

// New creates a query engine. k <= 0 falls back to 2, timeout <= 0 to 60s.
func New(index Searcher, completion llm.CompletionService, k int, timeout time.Duration, log *zap.Logger) *QueryEngine {
	if k <= 0 {
		k = 2
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &QueryEngine{index: index, llm: completion, k: k, timeout: timeout, log: log}
}

// Answer retrieves candidate documents for the query and asks the
// completion service which ones the user should open. An unloaded index
// is a setup error and propagates; every other failure degrades to a
// user-visible message.
func (q *QueryEngine) Answer(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	results, err := q.index.Search(ctx, query, q.k)
	if err != nil {
		if errors.Is(err, domain.ErrNotLoaded) {
			return "", err
		}
		q.log.Error("search failed", zap.String("query", query), zap.Error(err))
		return apologyMessage, nil
	}
	if len(results) == 0 {
		q.log.Warn("no relevant documents for query", zap.String("query", query))
		return noResultsMessage, nil
	}

	// Deduplicate and sort source ids so the prompt is deterministic.
	previews := make(map[string]string, len(results))
	seen := make(map[string]struct{}, len(results))
	names := make([]string, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.Unit.SourceID]; ok {
			continue
		}
		seen[r.Unit.SourceID] = struct{}{}
		names = append(names, r.Unit.SourceID)
		previews[r.Unit.SourceID] = r.Unit.Preview
	}
	sort.Strings(names)
	q.log.Info("suggesting candidate documents", zap.Strings("sources", names))

	suggestion, err := q.llm.Generate(ctx, buildPrompt(query, names))
	if err != nil {
		q.log.Error("completion service failed", zap.String("query", query), zap.Error(err))
		return apologyMessage, nil
	}

	// The candidate list is prepended regardless of what the model says.
	var b strings.Builder
	b.WriteString("Based on your query, the following PDF files might contain relevant information:\n")
	for _, name := range names {
		b.WriteString("- " + name)
		if p := previews[name]; p != "" {
			b.WriteString("\n    " + p)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nLLM Suggestion:\n")
	b.WriteString(strings.TrimSpace(suggestion))
	return b.String(), nil
}

func buildPrompt(query string, names []string) string {
	return fmt.Sprintf(`Based on the user's query and an analysis of the content of available PDF documents, the following PDF files were identified as potentially relevant:

Potentially Relevant PDF Filenames:
- %s

User Query: %q

Please analyze the user's query and the list of filenames. Suggest which of these PDF files the user should look into to find the information they are seeking. Explain briefly why each suggested file might be relevant, if possible. If none seem particularly relevant despite being listed, state that. Be concise.

Suggested files to check:`, strings.Join(names, "\n- "), query)
}
