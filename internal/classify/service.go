package classify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// storeTimeout bounds the store round trips of one classification flight.
const storeTimeout = 30 * time.Second

// Options tune the caching classifier.
type Options struct {
	// Fallback is consulted when the rule result is below AcceptanceThreshold.
	// Nil means no fallback is configured.
	Fallback        Classifier
	FallbackTimeout time.Duration
}

// Service implements classify-once semantics: a stored classification is
// returned unchanged, otherwise rules (and optionally the fallback) run and
// the result is inserted if absent.
type Service struct {
	store    Store
	rules    *RuleClassifier
	fallback Classifier
	timeout  time.Duration
	logger   zerolog.Logger
	flight   singleflight.Group
}

// NewService wires a classification store with the rule engine and fallback.
func NewService(store Store, rules *RuleClassifier, opts Options, logger zerolog.Logger) *Service {
	if rules == nil {
		rules = NewRuleClassifier()
	}
	timeout := opts.FallbackTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		store:    store,
		rules:    rules,
		fallback: opts.Fallback,
		timeout:  timeout,
		logger:   logger.With().Str("component", "classifier").Logger(),
	}
}

// Classify returns the cached classification for the party or computes and
// stores one.
func (s *Service) Classify(ctx context.Context, in Input) (Classification, error) {
	key := in.PartyKey()
	if key == "" {
		return Classification{}, ErrEmptyName
	}
	in.Key = key

	if existing, ok, err := s.store.GetClassification(ctx, key); err != nil {
		return Classification{}, fmt.Errorf("get classification: %w", err)
	} else if ok {
		return existing, nil
	}

	// The shared flight outlives any single caller; each caller still stops
	// waiting when its own context ends.
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout+storeTimeout)
		defer cancel()
		return s.classifyAndStore(fctx, in)
	})
	select {
	case <-ctx.Done():
		return Classification{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Classification{}, res.Err
		}
		return res.Val.(Classification), nil
	}
}

func (s *Service) classifyAndStore(ctx context.Context, in Input) (Classification, error) {
	// A flight that finished just before this one may already have stored a row.
	if existing, ok, err := s.store.GetClassification(ctx, in.Key); err != nil {
		return Classification{}, fmt.Errorf("get classification: %w", err)
	} else if ok {
		return existing, nil
	}

	result := s.rules.classify(in)
	if result.Confidence < AcceptanceThreshold {
		if ext, ok := s.consultFallback(ctx, in); ok {
			result = ext
		}
	}

	stored, inserted, err := s.store.InsertClassificationIfAbsent(ctx, result)
	if err != nil {
		return Classification{}, fmt.Errorf("store classification: %w", err)
	}
	if !inserted {
		s.logger.Debug().Str("party", in.Key).Msg("classification already stored by another writer")
	} else {
		s.logger.Debug().Str("party", in.Key).
			Str("entity_type", string(stored.EntityType)).
			Str("source", string(stored.Source)).
			Float64("confidence", stored.Confidence).
			Msg("classified party")
	}
	return stored, nil
}

func (s *Service) consultFallback(ctx context.Context, in Input) (Classification, bool) {
	if s.fallback == nil {
		return Classification{}, false
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ext, err := s.fallback.Classify(callCtx, in)
	if err != nil {
		event := s.logger.Warn()
		if errors.Is(err, ErrFallbackUnavailable) {
			event = s.logger.Debug()
		}
		event.Err(err).Str("party", in.Key).Msg("fallback classifier failed; keeping rule result")
		return Classification{}, false
	}
	if !ext.EntityType.Valid() || math.IsNaN(ext.Confidence) {
		s.logger.Warn().Str("party", in.Key).
			Str("entity_type", string(ext.EntityType)).
			Msg("fallback classifier returned an invalid result; keeping rule result")
		return Classification{}, false
	}

	ext.PartyKey = in.Key
	ext.PartyCIK = in.CIK
	ext.Source = SourceExternal
	ext.Confidence = math.Max(0, math.Min(1, ext.Confidence))
	ext.Rationale = strings.TrimSpace(ext.Rationale)
	return ext, true
}

// Override stores a manual classification, replacing any existing row.
func (s *Service) Override(ctx context.Context, in Input, entityType EntityType, fundLike bool, rationale string) (Classification, error) {
	managed, ok := s.store.(ManagedStore)
	if !ok {
		return Classification{}, errors.New("classification store does not support overrides")
	}
	key := in.PartyKey()
	if key == "" {
		return Classification{}, ErrEmptyName
	}
	if !entityType.Valid() {
		return Classification{}, fmt.Errorf("unknown entity type %q", entityType)
	}
	c := Classification{
		PartyKey:   key,
		PartyCIK:   in.CIK,
		EntityType: entityType,
		IsFundLike: fundLike,
		Source:     SourceManual,
		Confidence: 1,
		Rationale:  rationale,
	}
	return managed.PutClassification(ctx, c)
}

// Invalidate deletes the stored classification so the next Classify recomputes it.
func (s *Service) Invalidate(ctx context.Context, key string) (bool, error) {
	managed, ok := s.store.(ManagedStore)
	if !ok {
		return false, errors.New("classification store does not support invalidation")
	}
	return managed.DeleteClassification(ctx, key)
}

var _ Classifier = (*Service)(nil)
