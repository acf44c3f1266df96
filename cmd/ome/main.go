// Command ome runs the matching engine standalone for local exercise: it
// loads configuration, starts the engine on its dedicated goroutine, drives
// a handful of synthetic orders through the request queue, and logs every
// response and market update it observes until interrupted or until a
// two-second demo window elapses.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdoElHodaky/nitek-ome/internal/exchange/config"
	"github.com/abdoElHodaky/nitek-ome/internal/exchange/matching"
	"github.com/abdoElHodaky/nitek-ome/internal/exchange/telemetry"
	"github.com/abdoElHodaky/nitek-ome/internal/exchange/types"
	asynclog "github.com/abdoElHodaky/nitek-ome/internal/lowlatency/logger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "optional config file overlay (yaml/json/toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	alog := asynclog.New(logger, "cmd")
	defer alog.Close()

	runID := uuid.New()
	alog.Info("starting matching engine",
		zap.String("run_id", runID.String()),
		zap.Int("engine_core", cfg.EngineCore),
		zap.Int("max_tickers", cfg.Limits.MaxTickers),
	)

	engine := matching.New(cfg, logger)
	engine.AttachMetrics(telemetry.New(prometheus.NewRegistry()))
	engine.Start(cfg.EngineCore)
	defer engine.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go drainOutputs(engine, alog, done)
	go sendDemoOrders(engine, alog)

	select {
	case <-stop:
		alog.Info("shutdown signal received")
	case <-time.After(2 * time.Second):
		alog.Info("demo window elapsed")
	}
	close(done)
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if l, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = l
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

// sendDemoOrders pushes a small, deterministic sequence of new orders and a
// cancel onto ticker 0, exercising the full accept/match/rest/cancel path.
func sendDemoOrders(engine *matching.Engine, log *asynclog.AsyncLogger) {
	requests := engine.Requests()

	orders := []types.ClientRequest{
		{Type: types.ClientRequestNew, ClientID: 1, TickerID: 0, ClientOID: 100, Side: types.SideBuy, Price: 100, Qty: 10},
		{Type: types.ClientRequestNew, ClientID: 2, TickerID: 0, ClientOID: 200, Side: types.SideSell, Price: 101, Qty: 5},
		{Type: types.ClientRequestNew, ClientID: 3, TickerID: 0, ClientOID: 300, Side: types.SideSell, Price: 100, Qty: 4},
		{Type: types.ClientRequestCancel, ClientID: 1, TickerID: 0, ClientOID: 100},
	}

	for _, req := range orders {
		*requests.NextToWrite() = req
		requests.CommitWrite()
	}
	log.Info("demo orders submitted", zap.Int("count", len(orders)))
}

// drainOutputs logs every response and market update until done is closed.
func drainOutputs(engine *matching.Engine, log *asynclog.AsyncLogger, done <-chan struct{}) {
	responses := engine.Responses()
	updates := engine.Updates()

	for {
		select {
		case <-done:
			return
		default:
		}

		if r := responses.NextToRead(); r != nil {
			log.Info("response",
				zap.Uint8("type", uint8(r.Type)),
				zap.String("client_oid", r.ClientOID.String()),
				zap.String("market_oid", r.MarketOID.String()),
				zap.String("qty_executed", r.QtyExecuted.String()),
				zap.String("qty_remain", r.QtyRemain.String()),
			)
			responses.CommitRead()
		}
		if u := updates.NextToRead(); u != nil {
			log.Info("market update",
				zap.Uint8("type", uint8(u.Type)),
				zap.String("market_oid", u.MarketOID.String()),
				zap.String("price", u.Price.String()),
				zap.String("qty", u.Qty.String()),
			)
			updates.CommitRead()
		}
	}
}
