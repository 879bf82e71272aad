package ledger

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpha-oracle/internal/address"
	"alpha-oracle/internal/domain"
	"alpha-oracle/internal/events"
	"alpha-oracle/internal/storage/memory"
)

// fakeClock is a settable unix-seconds clock.
type fakeClock struct {
	mu  sync.Mutex
	now int64
}

func (c *fakeClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// captureSink records published events.
type captureSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *captureSink) Publish(_ context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) all() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.events...)
}

func authorityKey(fill byte) string {
	raw := make([]byte, address.KeyLen)
	for i := range raw {
		raw[i] = fill
	}
	return base58.Encode(raw)
}

func newTestService(t *testing.T) (*Service, *fakeClock, *captureSink) {
	t.Helper()

	clock := &fakeClock{now: 1704067200}
	sink := &captureSink{}
	svc, err := New(Config{
		Store:  memory.NewLedgerStore(),
		Sinks:  []events.Sink{sink},
		Now:    clock.Now,
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	return svc, clock, sink
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestInitializeOracle(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	auth := authorityKey(1)

	o, err := svc.InitializeOracle(ctx, auth, "alpha oracle")
	require.NoError(t, err)
	assert.Equal(t, auth, o.Authority)
	assert.Equal(t, "alpha oracle", o.Name)
	assert.EqualValues(t, 1704067200, o.CreatedAt)
	assert.Zero(t, o.TotalPredictions)
	assert.Zero(t, o.Wins)
	assert.Zero(t, o.Losses)

	wantAddr, err := address.ForOracle(auth)
	require.NoError(t, err)
	assert.Equal(t, wantAddr, o.Address)
}

func TestInitializeOracle_SecondCallFails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	auth := authorityKey(1)

	_, err := svc.InitializeOracle(ctx, auth, "first")
	require.NoError(t, err)

	_, err = svc.InitializeOracle(ctx, auth, "second")
	require.ErrorIs(t, err, ErrAlreadyExists)

	// The original record is untouched.
	o, err := svc.GetOracle(ctx, auth)
	require.NoError(t, err)
	assert.Equal(t, "first", o.Name)
}

func TestInitializeOracle_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitializeOracle(ctx, authorityKey(1), "")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.InitializeOracle(ctx, authorityKey(1), strings.Repeat("x", domain.MaxNameLen+1))
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.InitializeOracle(ctx, "not-a-key", "name")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestInitializeOracle_ConcurrentSingleWinner(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	auth := authorityKey(2)

	const n = 10
	var wg sync.WaitGroup
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.InitializeOracle(ctx, auth, "racer")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrAlreadyExists)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func btcLong() CreatePredictionRequest {
	return CreatePredictionRequest{
		Asset:          "BTC",
		Direction:      domain.DirectionLong,
		EntryPrice:     97_000_000_000,
		TakeProfit:     100_000_000_000,
		StopLoss:       94_000_000_000,
		TimeframeHours: 1,
	}
}

func TestCreatePrediction(t *testing.T) {
	svc, _, sink := newTestService(t)
	ctx := context.Background()
	auth := authorityKey(1)

	_, err := svc.InitializeOracle(ctx, auth, "alpha")
	require.NoError(t, err)

	p, err := svc.CreatePrediction(ctx, auth, btcLong())
	require.NoError(t, err)

	assert.EqualValues(t, 0, p.PredictionID)
	assert.Equal(t, "BTC", p.Asset)
	assert.Equal(t, domain.StatusActive, p.Status)
	assert.Zero(t, p.ResultPrice)
	assert.EqualValues(t, 1704067200, p.CreatedAt)
	assert.EqualValues(t, 1704067200+3600, p.ExpiresAt)

	o, err := svc.GetOracle(ctx, auth)
	require.NoError(t, err)
	assert.EqualValues(t, 1, o.TotalPredictions)
	assert.EqualValues(t, 1, o.Pending())

	published := sink.all()
	require.Len(t, published, 1)
	assert.Equal(t, events.TypePredictionCreated, published[0].Type)
	assert.Equal(t, p.Oracle, published[0].Oracle)
}

func TestCreatePrediction_SequentialIDs(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	auth := authorityKey(1)

	_, err := svc.InitializeOracle(ctx, auth, "alpha")
	require.NoError(t, err)

	const n = 5
	for i := 0; i < n; i++ {
		p, err := svc.CreatePrediction(ctx, auth, btcLong())
		require.NoError(t, err)
		assert.EqualValues(t, i, p.PredictionID)
	}

	list, err := svc.ListPredictions(ctx, auth)
	require.NoError(t, err)
	require.Len(t, list, n)
	for i, p := range list {
		assert.EqualValues(t, i, p.PredictionID)
	}
}

func TestCreatePrediction_Unauthorized(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.InitializeOracle(ctx, authorityKey(1), "alpha")
	require.NoError(t, err)

	// A different identity has no oracle at its derived address.
	_, err = svc.CreatePrediction(ctx, authorityKey(2), btcLong())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePrediction_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	auth := authorityKey(1)

	_, err := svc.InitializeOracle(ctx, auth, "alpha")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*CreatePredictionRequest)
	}{
		{"empty asset", func(r *CreatePredictionRequest) { r.Asset = "" }},
		{"long asset", func(r *CreatePredictionRequest) { r.Asset = strings.Repeat("A", domain.MaxAssetLen+1) }},
		{"bad direction", func(r *CreatePredictionRequest) { r.Direction = "SIDEWAYS" }},
		{"zero entry", func(r *CreatePredictionRequest) { r.EntryPrice = 0 }},
		{"zero take profit", func(r *CreatePredictionRequest) { r.TakeProfit = 0 }},
		{"zero stop loss", func(r *CreatePredictionRequest) { r.StopLoss = 0 }},
		{"zero timeframe", func(r *CreatePredictionRequest) { r.TimeframeHours = 0 }},
		{"negative timeframe", func(r *CreatePredictionRequest) { r.TimeframeHours = -1 }},
		{"huge timeframe", func(r *CreatePredictionRequest) { r.TimeframeHours = domain.MaxTimeframeHours + 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := btcLong()
			tt.mutate(&req)
			_, err := svc.CreatePrediction(ctx, auth, req)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	// No failed attempt may have bumped the counter.
	o, err := svc.GetOracle(ctx, auth)
	require.NoError(t, err)
	assert.Zero(t, o.TotalPredictions)
}

// Full lifecycle: create a BTC long, fail verification before expiry,
// settle as won after expiry, reject a second settlement.
func TestVerifyPrediction_Lifecycle(t *testing.T) {
	svc, clock, sink := newTestService(t)
	ctx := context.Background()
	auth := authorityKey(1)

	_, err := svc.InitializeOracle(ctx, auth, "alpha")
	require.NoError(t, err)

	p, err := svc.CreatePrediction(ctx, auth, btcLong())
	require.NoError(t, err)

	// Before expiry.
	_, err = svc.VerifyPrediction(ctx, p.Oracle, p.PredictionID, 99_000_000_000)
	require.ErrorIs(t, err, ErrNotYetExpired)

	list, err := svc.ListPredictions(ctx, auth)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, list[0].Status)

	// After expiry: result above take profit wins.
	clock.Set(p.ExpiresAt)
	settled, err := svc.VerifyPrediction(ctx, p.Oracle, p.PredictionID, 101_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWon, settled.Status)
	assert.EqualValues(t, 101_000_000_000, settled.ResultPrice)
	assert.Equal(t, p.ExpiresAt, settled.VerifiedAt)

	o, err := svc.GetOracle(ctx, auth)
	require.NoError(t, err)
	assert.EqualValues(t, 1, o.Wins)
	assert.EqualValues(t, 0, o.Losses)
	assert.EqualValues(t, 0, o.Pending())

	// Settlement is single-shot.
	_, err = svc.VerifyPrediction(ctx, p.Oracle, p.PredictionID, 90_000_000_000)
	require.ErrorIs(t, err, ErrAlreadySettled)

	list, err = svc.ListPredictions(ctx, auth)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWon, list[0].Status)
	assert.EqualValues(t, 101_000_000_000, list[0].ResultPrice)

	o, err = svc.GetOracle(ctx, auth)
	require.NoError(t, err)
	assert.EqualValues(t, 1, o.Wins)
	assert.EqualValues(t, 0, o.Losses)

	published := sink.all()
	require.Len(t, published, 2)
	assert.Equal(t, events.TypePredictionVerified, published[1].Type)
	assert.Equal(t, domain.StatusWon, published[1].Status)
}

// ETH short settles as lost when the result crosses the stop.
func TestVerifyPrediction_ShortLoss(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()
	auth := authorityKey(1)

	_, err := svc.InitializeOracle(ctx, auth, "alpha")
	require.NoError(t, err)

	p, err := svc.CreatePrediction(ctx, auth, CreatePredictionRequest{
		Asset:          "ETH",
		Direction:      domain.DirectionShort,
		EntryPrice:     2_700_000_000,
		TakeProfit:     2_500_000_000,
		StopLoss:       3_000_000_000,
		TimeframeHours: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, p.CreatedAt+4*3600, p.ExpiresAt)

	clock.Set(p.ExpiresAt + 1)
	settled, err := svc.VerifyPrediction(ctx, p.Oracle, p.PredictionID, 3_100_000_000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLost, settled.Status)

	o, err := svc.GetOracle(ctx, auth)
	require.NoError(t, err)
	assert.EqualValues(t, 0, o.Wins)
	assert.EqualValues(t, 1, o.Losses)
}

func TestVerifyPrediction_Validation(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()
	auth := authorityKey(1)

	_, err := svc.InitializeOracle(ctx, auth, "alpha")
	require.NoError(t, err)
	p, err := svc.CreatePrediction(ctx, auth, btcLong())
	require.NoError(t, err)
	clock.Set(p.ExpiresAt)

	_, err = svc.VerifyPrediction(ctx, p.Oracle, p.PredictionID, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.VerifyPrediction(ctx, p.Oracle, 99, 1_000_000)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.VerifyPrediction(ctx, "bad-address", 0, 1_000_000)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

// Racing verifiers: exactly one settles, wins+losses stays consistent with
// the number of settled predictions.
func TestVerifyPrediction_ConcurrentSingleWinner(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()
	auth := authorityKey(1)

	_, err := svc.InitializeOracle(ctx, auth, "alpha")
	require.NoError(t, err)
	p, err := svc.CreatePrediction(ctx, auth, btcLong())
	require.NoError(t, err)
	clock.Set(p.ExpiresAt)

	const n = 20
	var wg sync.WaitGroup
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.VerifyPrediction(ctx, p.Oracle, p.PredictionID, 101_000_000_000)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrAlreadySettled)
		}
	}
	assert.Equal(t, 1, succeeded)

	o, err := svc.GetOracle(ctx, auth)
	require.NoError(t, err)
	assert.EqualValues(t, 1, o.Wins+o.Losses)
}
