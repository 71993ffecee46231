// Package retrieval performs keyword search over the site content index.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/logger"
)

const (
	DefaultLimit        = 5
	DefaultSnippetChars = 500
	minTokenLength      = 3
)

// Index is the read side of the content index.
type Index interface {
	// SearchContent returns up to limit entries whose title or body contains
	// term, compared case-insensitively.
	SearchContent(ctx context.Context, term string, limit int) ([]domain.ContentEntry, error)
}

// Cache stores finished snippet lists keyed by query.
type Cache interface {
	GetSnippets(ctx context.Context, key string) ([]string, bool, error)
	SetSnippets(ctx context.Context, key string, snippets []string) error
}

// Retriever turns a user message into grounding snippets.
type Retriever struct {
	index        Index
	cache        Cache
	snippetChars int
	log          *logger.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithCache enables result caching.
func WithCache(c Cache) Option {
	return func(r *Retriever) { r.cache = c }
}

// WithSnippetChars overrides how much of the body goes into a snippet.
func WithSnippetChars(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.snippetChars = n
		}
	}
}

// WithLogger sets the logger used for swallowed errors.
func WithLogger(l *logger.Logger) Option {
	return func(r *Retriever) { r.log = l }
}

// New creates a retriever over index.
func New(index Index, opts ...Option) *Retriever {
	r := &Retriever{
		index:        index,
		snippetChars: DefaultSnippetChars,
		log:          logger.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search returns at most limit distinct snippets for query. Errors are logged
// and yield an empty or partial result.
func (r *Retriever) Search(ctx context.Context, query string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	terms := Tokenize(query)
	if len(terms) == 0 || r.index == nil {
		return []string{}
	}

	key := cacheKey(terms, limit)
	if r.cache != nil {
		cached, ok, err := r.cache.GetSnippets(ctx, key)
		if err != nil {
			r.log.Warn("content search cache read failed", "error", err)
		} else if ok {
			return cached
		}
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, limit)
	for _, term := range terms {
		entries, err := r.index.SearchContent(ctx, term, limit)
		if err != nil {
			r.log.Warn("content search failed", "term", term, "error", err)
			continue
		}
		rank(entries, term)
		for _, e := range entries {
			s := r.snippet(e)
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}

	if r.cache != nil {
		if err := r.cache.SetSnippets(ctx, key, out); err != nil {
			r.log.Warn("content search cache write failed", "error", err)
		}
	}
	return out
}

// Tokenize lowercases query and keeps whitespace-separated tokens longer than two characters.
func Tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenLength {
			terms = append(terms, f)
		}
	}
	return terms
}

// rank orders title matches first, then shorter bodies.
func rank(entries []domain.ContentEntry, term string) {
	sort.SliceStable(entries, func(i, j int) bool {
		ti := strings.Contains(strings.ToLower(entries[i].Title), term)
		tj := strings.Contains(strings.ToLower(entries[j].Title), term)
		if ti != tj {
			return ti
		}
		return utf8.RuneCountInString(entries[i].Content) < utf8.RuneCountInString(entries[j].Content)
	})
}

func (r *Retriever) snippet(e domain.ContentEntry) string {
	body := e.Content
	if utf8.RuneCountInString(body) > r.snippetChars {
		body = string([]rune(body)[:r.snippetChars])
	}
	return e.Title + ": " + body
}

func cacheKey(terms []string, limit int) string {
	sum := sha256.Sum256([]byte(strings.Join(terms, " ")))
	return fmt.Sprintf("%s:%d", hex.EncodeToString(sum[:16]), limit)
}
