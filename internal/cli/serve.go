package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/spectate"
	"github.com/aretw0/spectate/internal/config"
	httpAdapter "github.com/aretw0/spectate/pkg/adapters/http"
	"github.com/aretw0/spectate/pkg/adapters/memory"
	"github.com/aretw0/spectate/pkg/adapters/redis"
	"github.com/aretw0/spectate/pkg/observability"
	"github.com/aretw0/spectate/pkg/persistence/middleware"
	"github.com/aretw0/spectate/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
)

var skus = []string{"apple", "fig", "kiwi", "pear", "plum"}

// Simulator mutates a warehouse of linked inventories. Step must not be
// called concurrently; Run calls it from a single goroutine.
type Simulator struct {
	Warehouse *Inventory
	Bins      []*Inventory
	rng       *rand.Rand
	logger    *slog.Logger
}

// ErrNoBins is returned by a simulator with no bin to mutate.
var ErrNoBins = errors.New("simulator needs at least one bin")

// NewSimulator creates a warehouse with the given bins linked under it.
// It fails with ErrNoBins when bins is empty.
func NewSimulator(logger *slog.Logger, seed uint64, bins ...string) (*Simulator, error) {
	if len(bins) == 0 {
		return nil, ErrNoBins
	}
	s := &Simulator{
		Warehouse: NewInventory("warehouse"),
		rng:       rand.New(rand.NewPCG(seed, seed)),
		logger:    logger,
	}
	for _, name := range bins {
		bin := NewInventory(name)
		spectate.Link(s.Warehouse, bin)
		s.Bins = append(s.Bins, bin)
	}
	return s, nil
}

// Step applies one random change to a random bin: a single set, a held
// burst of sets, or a failing rollback.
func (s *Simulator) Step() error {
	if len(s.Bins) == 0 {
		return ErrNoBins
	}
	bin := s.Bins[s.rng.IntN(len(s.Bins))]
	sku := skus[s.rng.IntN(len(skus))]

	switch s.rng.IntN(3) {
	case 0:
		return bin.Set(sku, s.rng.IntN(20))
	case 1:
		return spectate.Hold(bin, func() error {
			for range 3 {
				if err := bin.Set(sku, s.rng.IntN(20)); err != nil {
					return err
				}
			}
			return nil
		}, spectate.WithReducer(StockDiff))
	default:
		err := spectate.Rollback(bin, func() error {
			if err := bin.Set(sku, 999); err != nil {
				return err
			}
			return bin.Remove("missing")
		}, spectate.WithUndo(RestoreStock))
		if errors.Is(err, ErrUnknownSKU) {
			return nil
		}
		return err
	}
}

// Run calls Step every tick until ctx is done.
func (s *Simulator) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Step(); err != nil {
				s.logger.Warn("simulation step failed", "err", err)
			}
		}
	}
}

// Stack is everything `spectate serve` runs.
type Stack struct {
	Handler   http.Handler
	Simulator *Simulator
	Journal   ports.Journal
	Registry  *prometheus.Registry
	closers   []func() error
}

// Close releases external clients.
func (st *Stack) Close() error {
	var errs []error
	for _, c := range st.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewStack wires the simulator, journal, metrics and optional Redis
// publisher behind the HTTP handler.
func NewStack(cfg config.Config, logger *slog.Logger) (*Stack, error) {
	st := &Stack{Registry: prometheus.NewRegistry()}
	st.Registry.MustRegister(collectors.NewGoCollector())

	metrics, err := observability.NewMetrics(st.Registry, observability.WithModelLabel(Label))
	if err != nil {
		return nil, err
	}

	streams := httpAdapter.NewStreamManager()
	views := []spectate.ViewFunc{metrics.View, observability.LogView(logger, slog.LevelDebug)}

	if cfg.Redis.Enabled() {
		client := backend.NewClient(&backend.Options{Addr: cfg.Redis.Addr})
		st.closers = append(st.closers, client.Close)

		st.Journal = redis.NewJournal(client,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithCapacity(cfg.Redis.Capacity),
			redis.WithLocker(redis.NewLocker(client, cfg.Redis.Prefix), cfg.Redis.Timeout),
		)
		if cfg.Redis.Channel != "" {
			pub := redis.NewPublisher(client,
				redis.WithChannel(cfg.Redis.Channel),
				redis.WithTimeout(cfg.Redis.Timeout),
				redis.WithModelLabel(Label),
			)
			views = append(views, pub.View)
		}
		logger.Info("publishing to redis", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	} else {
		st.Journal = memory.NewRecorder(cfg.Server.Capacity)
	}
	if st.Journal, err = guardJournal(st.Journal, cfg.Journal); err != nil {
		return nil, err
	}
	views = append(views, httpAdapter.Tap(st.Journal, streams, Label))

	if st.Simulator, err = NewSimulator(logger, uint64(time.Now().UnixNano()), "north", "south"); err != nil {
		return nil, err
	}
	spectate.View(st.Simulator.Warehouse, observability.Fanout(views...), spectate.ViewName("serve"))

	st.Handler = httpAdapter.NewHandler(st.Journal,
		httpAdapter.WithStreams(streams),
		httpAdapter.WithGatherer(st.Registry),
	)
	return st, nil
}

// guardJournal wraps j with the masking and encryption cfg asks for.
// Masking runs first so masked values are never encrypted.
func guardJournal(j ports.Journal, cfg config.JournalConfig) (ports.Journal, error) {
	var mws []middleware.Middleware
	if len(cfg.Mask) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.Mask))
	}
	key, err := cfg.KeyBytes()
	if err != nil {
		return nil, err
	}
	if key != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(j, mws...), nil
}

// Serve runs the HTTP server and the simulator until ctx is done.
func Serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	st, err := NewStack(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           st.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Open event streams end with ctx instead of holding up Shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	var wg sync.WaitGroup
	simCtx, stopSim := context.WithCancel(ctx)
	defer func() {
		stopSim()
		wg.Wait()
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		st.Simulator.Run(simCtx, cfg.Server.Tick)
	}()

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting spectate server", "addr", srv.Addr, "tick", cfg.Server.Tick)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		return nil
	}
}
