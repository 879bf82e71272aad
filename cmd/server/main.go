// Command server hosts the prediction ledger over HTTP:
// oracle initialization, prediction creation, open settlement, read-only
// statistics, and a WebSocket stream of ledger events.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"alpha-oracle/internal/domain"
	"alpha-oracle/internal/events"
	"alpha-oracle/internal/ledger"
	"alpha-oracle/internal/stats"
	"alpha-oracle/internal/storage"
	chstore "alpha-oracle/internal/storage/clickhouse"
	"alpha-oracle/internal/storage/memory"
	"alpha-oracle/internal/storage/migrations"
	pgstore "alpha-oracle/internal/storage/postgres"
)

func main() {
	// Optional .env for local development; env vars win when both are set.
	_ = godotenv.Load()

	listenAddr := flag.String("listen-addr", ":8080", "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for event analytics (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("service", "alpha-oracle").
		Logger()

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := createStore(ctx, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create store")
	}
	defer cleanup()

	hub := events.NewHub(logger)
	defer hub.Close()
	sinks := []events.Sink{hub}

	if *clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect clickhouse")
		}
		defer conn.Close()
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			logger.Fatal().Err(err).Msg("failed to run clickhouse migrations")
		}
		sinks = append(sinks, chstore.NewEventStore(conn))
		logger.Info().Msg("clickhouse event analytics enabled")
	}

	svc, err := ledger.New(ledger.Config{
		Store:  store,
		Sinks:  sinks,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create ledger service")
	}

	srv := &server{svc: svc, hub: hub, logger: logger}

	httpServer := &http.Server{
		Addr:         *listenAddr,
		Handler:      srv.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	logger.Info().Str("addr", *listenAddr).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("shutdown complete")
}

// createStore builds the ledger store from flags.
func createStore(ctx context.Context, postgresDSN string, useMemory bool) (storage.LedgerStore, func(), error) {
	if useMemory {
		return memory.NewLedgerStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}
	return pgstore.NewLedgerStore(pool), pool.Close, nil
}

// server holds the HTTP handlers.
type server struct {
	svc    *ledger.Service
	hub    *events.Hub
	logger zerolog.Logger
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oracles", s.handleInitializeOracle)
	mux.HandleFunc("GET /v1/oracles/{authority}", s.handleGetOracle)
	mux.HandleFunc("GET /v1/oracles/{authority}/predictions", s.handleListPredictions)
	mux.HandleFunc("POST /v1/oracles/{authority}/predictions", s.handleCreatePrediction)
	mux.HandleFunc("POST /v1/oracles/{authority}/predictions/{id}/verify", s.handleVerifyPrediction)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /ws", s.hub)
	return mux
}

type initializeOracleRequest struct {
	Authority string `json:"authority"`
	Name      string `json:"name"`
}

func (s *server) handleInitializeOracle(w http.ResponseWriter, r *http.Request) {
	var req initializeOracleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed body", ledger.ErrInvalidArgument))
		return
	}

	o, err := s.svc.InitializeOracle(r.Context(), req.Authority, req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, oracleResponse(o))
}

func (s *server) handleGetOracle(w http.ResponseWriter, r *http.Request) {
	o, err := s.svc.GetOracle(r.Context(), r.PathValue("authority"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, oracleResponse(o))
}

type createPredictionRequest struct {
	// Caller is the identity claiming to be the oracle authority.
	// Transport-level signatures are out of scope; the hosting environment
	// is expected to have authenticated this value.
	Caller         string  `json:"caller"`
	Asset          string  `json:"asset"`
	Direction      string  `json:"direction"`
	EntryPrice     float64 `json:"entry_price"`
	TakeProfit     float64 `json:"take_profit"`
	StopLoss       float64 `json:"stop_loss"`
	TimeframeHours int     `json:"timeframe_hours"`
}

func (s *server) handleCreatePrediction(w http.ResponseWriter, r *http.Request) {
	var req createPredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed body", ledger.ErrInvalidArgument))
		return
	}
	if req.Caller != r.PathValue("authority") {
		s.writeError(w, ledger.ErrUnauthorized)
		return
	}

	entry, err := domain.PriceToMicro(req.EntryPrice)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: entry_price: %v", ledger.ErrInvalidArgument, err))
		return
	}
	tp, err := domain.PriceToMicro(req.TakeProfit)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: take_profit: %v", ledger.ErrInvalidArgument, err))
		return
	}
	sl, err := domain.PriceToMicro(req.StopLoss)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: stop_loss: %v", ledger.ErrInvalidArgument, err))
		return
	}

	p, err := s.svc.CreatePrediction(r.Context(), req.Caller, ledger.CreatePredictionRequest{
		Asset:          req.Asset,
		Direction:      domain.Direction(req.Direction),
		EntryPrice:     entry,
		TakeProfit:     tp,
		StopLoss:       sl,
		TimeframeHours: req.TimeframeHours,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, predictionResponse(p))
}

func (s *server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListPredictions(r.Context(), r.PathValue("authority"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(list))
	for _, p := range list {
		resp = append(resp, predictionResponse(p))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type verifyPredictionRequest struct {
	ResultPrice float64 `json:"result_price"`
}

func (s *server) handleVerifyPrediction(w http.ResponseWriter, r *http.Request) {
	var req verifyPredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed body", ledger.ErrInvalidArgument))
		return
	}

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: prediction id", ledger.ErrInvalidArgument))
		return
	}

	result, err := domain.PriceToMicro(req.ResultPrice)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: result_price: %v", ledger.ErrInvalidArgument, err))
		return
	}

	o, err := s.svc.GetOracle(r.Context(), r.PathValue("authority"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	p, err := s.svc.VerifyPrediction(r.Context(), o.Address, id, result)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, predictionResponse(p))
}

func oracleResponse(o *domain.Oracle) map[string]any {
	st := stats.Compute(o)
	resp := map[string]any{
		"address":           o.Address,
		"authority":         o.Authority,
		"name":              o.Name,
		"total_predictions": o.TotalPredictions,
		"wins":              o.Wins,
		"losses":            o.Losses,
		"pending":           st.Pending,
		"created_at":        o.CreatedAt,
	}
	if st.HasSettled {
		resp["win_rate"] = st.WinRate
	} else {
		resp["win_rate"] = nil
	}
	return resp
}

func predictionResponse(p *domain.Prediction) map[string]any {
	resp := map[string]any{
		"address":       p.Address,
		"oracle":        p.Oracle,
		"prediction_id": p.PredictionID,
		"asset":         p.Asset,
		"direction":     p.Direction,
		"entry_price":   domain.PriceFromMicro(p.EntryPrice),
		"take_profit":   domain.PriceFromMicro(p.TakeProfit),
		"stop_loss":     domain.PriceFromMicro(p.StopLoss),
		"created_at":    p.CreatedAt,
		"expires_at":    p.ExpiresAt,
		"status":        p.Status,
	}
	if p.Status.Terminal() {
		resp["result_price"] = domain.PriceFromMicro(p.ResultPrice)
		resp["verified_at"] = p.VerifiedAt
	}
	return resp
}

func (s *server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("write response failed")
	}
}

// writeError maps ledger errors to HTTP status codes.
func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyExists), errors.Is(err, ledger.ErrAlreadySettled):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrNotYetExpired):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrOverflow):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
