// Package classify decides whether an insider is a natural person or a
// fund-like vehicle, caching one classification per party.
package classify

import (
	"context"
	"errors"
	"time"

	"github.com/yourdesigncoza/get-insider-db/internal/insider"
)

// EntityType enumerates the classification outcomes.
type EntityType string

const (
	EntityPerson           EntityType = "person"
	EntityFund             EntityType = "fund_or_investment_vehicle"
	EntityOperatingCompany EntityType = "operating_company"
	EntityTrust            EntityType = "trust_or_foundation"
	EntityOther            EntityType = "other"
	EntityUnknown          EntityType = "unknown"
)

// Valid reports whether e is one of the known entity types.
func (e EntityType) Valid() bool {
	switch e {
	case EntityPerson, EntityFund, EntityOperatingCompany, EntityTrust, EntityOther, EntityUnknown:
		return true
	}
	return false
}

// Source records which classifier produced a classification.
type Source string

const (
	SourceRules    Source = "rules"
	SourceExternal Source = "external"
	SourceManual   Source = "manual"
)

var (
	// ErrEmptyName is returned when a party has neither key nor name.
	ErrEmptyName = errors.New("classify: party name is required")
	// ErrFallbackUnavailable is returned by fallback classifiers that are not configured.
	ErrFallbackUnavailable = errors.New("classify: fallback classifier unavailable")
)

// Input is what every classifier sees about a party.
type Input struct {
	Key   string
	CIK   string
	Name  string
	Title string
	Flags insider.Flags
}

// PartyKey returns the explicit key or the normalized name.
func (in Input) PartyKey() string {
	if in.Key != "" {
		return in.Key
	}
	return insider.NormalizeName(in.Name)
}

// Classification is the cached judgment attached to one party.
type Classification struct {
	PartyKey   string
	PartyCIK   string
	EntityType EntityType
	IsFundLike bool
	Source     Source
	Confidence float64
	Rationale  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Classifier is the single capability shared by the rule engine and any
// external fallback.
type Classifier interface {
	Classify(ctx context.Context, in Input) (Classification, error)
}

// Store persists at most one classification per party key.
type Store interface {
	GetClassification(ctx context.Context, key string) (Classification, bool, error)
	// InsertClassificationIfAbsent stores c unless a row already exists for
	// c.PartyKey, and returns whichever row is stored afterwards.
	InsertClassificationIfAbsent(ctx context.Context, c Classification) (stored Classification, inserted bool, err error)
}

// ManagedStore adds the explicit override and invalidation paths.
type ManagedStore interface {
	Store
	PutClassification(ctx context.Context, c Classification) (Classification, error)
	DeleteClassification(ctx context.Context, key string) (bool, error)
}
