// Package service implements the conversation engine and the operations
// exposed to transports.
package service

import (
	"context"
	"time"

	"github.com/xiaot623/gogo/chatbot/internal/adapter/llm"
	"github.com/xiaot623/gogo/chatbot/internal/config"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/logger"
	"github.com/xiaot623/gogo/chatbot/internal/metrics"
	"github.com/xiaot623/gogo/chatbot/internal/pricing"
	"github.com/xiaot623/gogo/chatbot/internal/repository"
	"github.com/xiaot623/gogo/chatbot/internal/retrieval"
)

// Searcher produces grounding snippets for a message.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []string
}

// OrderLookup answers order-status questions.
type OrderLookup interface {
	LookupOrder(ctx context.Context, orderNumber, email string) (string, error)
}

// ContactNotifier is told about every stored contact.
type ContactNotifier interface {
	ContactCaptured(ctx context.Context, c domain.Contact) error
}

// SearchInvalidator drops cached search results after the index changes.
type SearchInvalidator interface {
	Invalidate(ctx context.Context) error
}

type Service struct {
	store     repository.Store
	providers *llm.Registry
	pricing   *pricing.Calculator
	config    *config.Config
	log       *logger.Logger

	searcher    Searcher
	orders      OrderLookup
	notifier    ContactNotifier
	invalidator SearchInvalidator
	files       FileStore
	metrics     *metrics.Metrics

	now      func() time.Time
	newToken func() (string, error)
}

// Option configures optional collaborators.
type Option func(*Service)

// WithSearcher replaces the default store-backed retriever.
func WithSearcher(s Searcher) Option {
	return func(svc *Service) { svc.searcher = s }
}

// WithOrderLookup enables order grounding when commerce is enabled.
func WithOrderLookup(o OrderLookup) Option {
	return func(svc *Service) { svc.orders = o }
}

func WithNotifier(n ContactNotifier) Option {
	return func(svc *Service) { svc.notifier = n }
}

func WithSearchInvalidator(i SearchInvalidator) Option {
	return func(svc *Service) { svc.invalidator = i }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(svc *Service) { svc.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

func New(store repository.Store, providers *llm.Registry, cfg *config.Config, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Service{
		store:     store,
		providers: providers,
		pricing:   pricing.NewCalculator(cfg.Pricing.Models, cfg.Pricing.Currency),
		config:    cfg,
		log:       log,
		now:       time.Now,
		newToken:  newSessionToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.searcher == nil {
		s.searcher = retrieval.New(store,
			retrieval.WithSnippetChars(cfg.Training.SnippetChars),
			retrieval.WithLogger(log))
	}
	if s.notifier == nil && cfg.Contacts.NotifyOnCapture {
		s.notifier = NewLogNotifier(log)
	}
	return s
}
