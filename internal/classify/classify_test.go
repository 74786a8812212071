package classify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourdesigncoza/get-insider-db/internal/insider"
)

type memStore struct {
	mu          sync.Mutex
	rows        map[string]Classification
	insertCalls int
	writes      int
	beforeWrite func(m *memStore, c Classification)
	clock       time.Time
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]Classification), clock: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (m *memStore) GetClassification(_ context.Context, key string) (Classification, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[key]
	return c, ok, nil
}

func (m *memStore) InsertClassificationIfAbsent(_ context.Context, c Classification) (Classification, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.beforeWrite != nil {
		hook := m.beforeWrite
		m.beforeWrite = nil
		hook(m, c)
	}
	if existing, ok := m.rows[c.PartyKey]; ok {
		return existing, false, nil
	}
	m.clock = m.clock.Add(time.Second)
	c.CreatedAt = m.clock
	c.UpdatedAt = m.clock
	m.rows[c.PartyKey] = c
	m.writes++
	return c, true, nil
}

func (m *memStore) PutClassification(_ context.Context, c Classification) (Classification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.PartyKey] = c
	m.writes++
	return c, nil
}

func (m *memStore) DeleteClassification(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[key]
	delete(m.rows, key)
	return ok, nil
}

type fakeFallback struct {
	calls  atomic.Int32
	result Classification
	err    error
	block  bool
}

func (f *fakeFallback) Classify(ctx context.Context, in Input) (Classification, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return Classification{}, ctx.Err()
	}
	return f.result, f.err
}

func TestRuleClassifier(t *testing.T) {
	rc := NewRuleClassifier("SICAV")

	tests := []struct {
		name       string
		in         Input
		wantType   EntityType
		wantFund   bool
		wantConf   float64
		wantReason string
	}{
		{
			name:       "limited partnership with dots",
			in:         Input{Name: "Baker Bros. Advisors L.P."},
			wantType:   EntityFund,
			wantFund:   true,
			wantConf:   0.8,
			wantReason: "Matched fund token(s): ADVISORS, LP",
		},
		{
			name:       "asset management phrase",
			in:         Input{Name: "ACME ASSET MANAGEMENT"},
			wantType:   EntityFund,
			wantFund:   true,
			wantConf:   0.8,
			wantReason: "Matched fund token(s): ASSET MANAGEMENT",
		},
		{
			name:       "extra token",
			in:         Input{Name: "Global Sicav"},
			wantType:   EntityFund,
			wantFund:   true,
			wantConf:   0.8,
			wantReason: "Matched fund token(s): SICAV",
		},
		{
			name:       "flagged person",
			in:         Input{Name: "SMITH JOHN", Flags: insider.Flags{IsOfficer: true}},
			wantType:   EntityPerson,
			wantConf:   0.7,
			wantReason: "Flagged as officer/director",
		},
		{
			name:       "title only",
			in:         Input{Name: "DOE JANE", Title: "CFO"},
			wantType:   EntityPerson,
			wantConf:   0.6,
			wantReason: "Officer title present",
		},
		{
			name:       "vehicle word as prefix",
			in:         Input{Name: "DOE JOHN TRUSTEE"},
			wantType:   EntityFund,
			wantFund:   true,
			wantConf:   0.8,
			wantReason: "Matched fund token(s): TRUST",
		},
		{
			name:       "plural vehicle words",
			in:         Input{Name: "Orbimed Funding Partnership"},
			wantType:   EntityFund,
			wantFund:   true,
			wantConf:   0.8,
			wantReason: "Matched fund token(s): FUND, PARTNERS",
		},
		{
			name:       "extra token matches whole words only",
			in:         Input{Name: "SICAVELLI MARCO"},
			wantType:   EntityPerson,
			wantConf:   0.6,
			wantReason: "Defaulted to person; no fund markers detected",
		},
		{
			name:       "token inside a word does not match",
			in:         Input{Name: "RALPH LPEREZ INCE"},
			wantType:   EntityPerson,
			wantConf:   0.6,
			wantReason: "Defaulted to person; no fund markers detected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := rc.Classify(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, c.EntityType)
			assert.Equal(t, tt.wantFund, c.IsFundLike)
			assert.InDelta(t, tt.wantConf, c.Confidence, 1e-9)
			assert.Equal(t, tt.wantReason, c.Rationale)
			assert.Equal(t, SourceRules, c.Source)
			assert.Equal(t, insider.NormalizeName(tt.in.Name), c.PartyKey)
		})
	}
}

func TestServiceClassifyOnce(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, Options{}, zerolog.Nop())
	in := Input{Name: "  smith   john ", Title: "CFO"}

	first, err := svc.Classify(context.Background(), in)
	require.NoError(t, err)
	second, err := svc.Classify(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "SMITH JOHN", first.PartyKey)
	assert.Equal(t, 1, store.insertCalls)
	assert.Equal(t, 1, store.writes)
}

func TestServiceReturnsStoredRowUnchanged(t *testing.T) {
	store := newMemStore()
	store.rows["ACME FUND"] = Classification{PartyKey: "ACME FUND", EntityType: EntityPerson, Source: SourceManual, Confidence: 1}
	fallback := &fakeFallback{}
	svc := NewService(store, nil, Options{Fallback: fallback}, zerolog.Nop())

	c, err := svc.Classify(context.Background(), Input{Name: "Acme Fund"})
	require.NoError(t, err)
	assert.Equal(t, EntityPerson, c.EntityType)
	assert.Equal(t, SourceManual, c.Source)
	assert.Zero(t, store.insertCalls)
	assert.Zero(t, fallback.calls.Load())
}

func TestServiceFallbackReplacesLowConfidence(t *testing.T) {
	store := newMemStore()
	fallback := &fakeFallback{result: Classification{
		EntityType: EntityTrust,
		IsFundLike: true,
		Source:     SourceRules,
		Confidence: 1.7,
		Rationale:  "  family trust vehicle ",
	}}
	svc := NewService(store, nil, Options{Fallback: fallback}, zerolog.Nop())

	c, err := svc.Classify(context.Background(), Input{Name: "JONES FAMILY", CIK: "0001234"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fallback.calls.Load())
	assert.Equal(t, EntityTrust, c.EntityType)
	assert.True(t, c.IsFundLike)
	assert.Equal(t, SourceExternal, c.Source)
	assert.Equal(t, 1.0, c.Confidence)
	assert.Equal(t, "family trust vehicle", c.Rationale)
	assert.Equal(t, "JONES FAMILY", c.PartyKey)
	assert.Equal(t, "0001234", c.PartyCIK)
}

func TestServiceFallbackNotConsultedAtThreshold(t *testing.T) {
	fallback := &fakeFallback{result: Classification{EntityType: EntityPerson}}
	svc := NewService(newMemStore(), nil, Options{Fallback: fallback}, zerolog.Nop())

	c, err := svc.Classify(context.Background(), Input{Name: "ORBIMED CAPITAL LLC"})
	require.NoError(t, err)
	assert.Zero(t, fallback.calls.Load())
	assert.Equal(t, EntityFund, c.EntityType)
	assert.Equal(t, SourceRules, c.Source)
}

func TestServiceFallbackFailureKeepsRules(t *testing.T) {
	tests := []struct {
		name     string
		fallback *fakeFallback
	}{
		{name: "error", fallback: &fakeFallback{err: errors.New("boom")}},
		{name: "unavailable", fallback: &fakeFallback{err: ErrFallbackUnavailable}},
		{name: "timeout", fallback: &fakeFallback{block: true}},
		{name: "invalid entity type", fallback: &fakeFallback{result: Classification{EntityType: "robot"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMemStore(), nil, Options{Fallback: tt.fallback, FallbackTimeout: 20 * time.Millisecond}, zerolog.Nop())

			c, err := svc.Classify(context.Background(), Input{Name: "DOE JANE", Flags: insider.Flags{IsDirector: true}})
			require.NoError(t, err)
			assert.Equal(t, int32(1), tt.fallback.calls.Load())
			assert.Equal(t, SourceRules, c.Source)
			assert.Equal(t, EntityPerson, c.EntityType)
			assert.InDelta(t, 0.7, c.Confidence, 1e-9)
		})
	}
}

func TestServiceConcurrentFirstEncounter(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, Options{}, zerolog.Nop())

	const workers = 32
	results := make([]Classification, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := svc.Classify(context.Background(), Input{Name: "Doe Jane"})
			assert.NoError(t, err)
			results[i] = c
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Equal(t, results[0], results[i])
	}
	assert.Equal(t, 1, store.insertCalls)
	assert.Equal(t, 1, store.writes)
}

type gatedFallback struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	result  Classification
}

func (g *gatedFallback) Classify(ctx context.Context, _ Input) (Classification, error) {
	g.calls.Add(1)
	g.started <- struct{}{}
	select {
	case <-g.release:
		return g.result, nil
	case <-ctx.Done():
		return Classification{}, ctx.Err()
	}
}

func TestServiceCancelledCallerKeepsSharedClassification(t *testing.T) {
	store := newMemStore()
	fallback := &gatedFallback{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		result:  Classification{EntityType: EntityPerson, Confidence: 0.95, Rationale: "individual"},
	}
	svc := NewService(store, nil, Options{Fallback: fallback, FallbackTimeout: 5 * time.Second}, zerolog.Nop())
	in := Input{Name: "DOE JANE"}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Classify(firstCtx, in)
		firstErr <- err
	}()
	<-fallback.started

	type outcome struct {
		c   Classification
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		c, err := svc.Classify(context.Background(), in)
		second <- outcome{c: c, err: err}
	}()

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(fallback.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, SourceExternal, got.c.Source)
	assert.InDelta(t, 0.95, got.c.Confidence, 1e-9)
	assert.Equal(t, int32(1), fallback.calls.Load())
	assert.Equal(t, 1, store.writes)
}

func TestServiceLosesInsertRace(t *testing.T) {
	store := newMemStore()
	winner := Classification{PartyKey: "DOE JANE", EntityType: EntityOther, Source: SourceExternal, Confidence: 0.9}
	store.beforeWrite = func(m *memStore, _ Classification) {
		m.rows[winner.PartyKey] = winner
	}
	svc := NewService(store, nil, Options{}, zerolog.Nop())

	c, err := svc.Classify(context.Background(), Input{Name: "DOE JANE"})
	require.NoError(t, err)
	assert.Equal(t, winner, c)
	assert.Zero(t, store.writes)
}

func TestServiceOverrideAndInvalidate(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, Options{}, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Classify(ctx, Input{Name: "KLEINER FAMILY"})
	require.NoError(t, err)

	c, err := svc.Override(ctx, Input{Name: "kleiner family"}, EntityTrust, true, "family office")
	require.NoError(t, err)
	assert.Equal(t, SourceManual, c.Source)

	got, err := svc.Classify(ctx, Input{Name: "KLEINER FAMILY"})
	require.NoError(t, err)
	assert.Equal(t, EntityTrust, got.EntityType)
	assert.True(t, got.IsFundLike)

	removed, err := svc.Invalidate(ctx, "KLEINER FAMILY")
	require.NoError(t, err)
	assert.True(t, removed)

	got, err = svc.Classify(ctx, Input{Name: "KLEINER FAMILY"})
	require.NoError(t, err)
	assert.Equal(t, SourceRules, got.Source)

	_, err = svc.Override(ctx, Input{Name: "X"}, "robot", false, "")
	assert.Error(t, err)
}

func TestServiceEmptyName(t *testing.T) {
	svc := NewService(newMemStore(), nil, Options{}, zerolog.Nop())
	_, err := svc.Classify(context.Background(), Input{Name: "   "})
	assert.ErrorIs(t, err, ErrEmptyName)
}
