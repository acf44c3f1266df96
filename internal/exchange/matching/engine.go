// Package matching implements the order-matching engine: it owns one
// OrderBook per ticker, drains the inbound request queue on a single
// dedicated goroutine, and dispatches each request to the right book.
package matching

import (
	"sync/atomic"

	"github.com/abdoElHodaky/nitek-ome/internal/exchange/config"
	"github.com/abdoElHodaky/nitek-ome/internal/exchange/orderbook"
	"github.com/abdoElHodaky/nitek-ome/internal/exchange/telemetry"
	"github.com/abdoElHodaky/nitek-ome/internal/exchange/types"
	asynclog "github.com/abdoElHodaky/nitek-ome/internal/lowlatency/logger"
	"github.com/abdoElHodaky/nitek-ome/internal/lowlatency/queue"
	"github.com/abdoElHodaky/nitek-ome/internal/lowlatency/threadutil"
	"go.uber.org/zap"
)

// Engine owns the per-ticker order books and the three SPSC queues that
// connect it to the (external) order gateway and market-data publisher.
// It is driven by exactly one goroutine, started by Start and stopped by
// Stop. Book exposes each book for inspection without synchronising with
// that goroutine.
type Engine struct {
	limits config.Limits
	logger *zap.Logger
	log    *asynclog.AsyncLogger

	requests  *queue.SPSC[types.ClientRequest]
	responses *queue.SPSC[types.ClientResponse]
	updates   *queue.SPSC[types.MarketUpdate]

	books []*orderbook.OrderBook

	running atomic.Bool
	stopped chan struct{}

	ordersProcessed atomic.Uint64
	rejected        atomic.Uint64

	metrics *telemetry.Collector
}

// emitter adapts the engine's two output queues to orderbook.Emitter.
type emitter struct {
	responses *queue.SPSC[types.ClientResponse]
	updates   *queue.SPSC[types.MarketUpdate]
}

func (e emitter) SendClientResponse(r types.ClientResponse) {
	*e.responses.NextToWrite() = r
	e.responses.CommitWrite()
}

func (e emitter) SendMarketUpdate(u types.MarketUpdate) {
	*e.updates.NextToWrite() = u
	e.updates.CommitWrite()
}

// New constructs an engine with one order book per ticker in
// 0..limits.MaxTickers, wired to fresh request/response/update queues sized
// per limits.
func New(cfg config.Engine, logger *zap.Logger) *Engine {
	limits := cfg.Limits
	e := &Engine{
		limits:    limits,
		logger:    logger,
		log:       asynclog.New(logger, "engine"),
		requests:  queue.New[types.ClientRequest](limits.MaxClientUpdates, "requests", logger),
		responses: queue.New[types.ClientResponse](limits.MaxClientUpdates, "responses", logger),
		updates:   queue.New[types.MarketUpdate](limits.MaxMarketUpdates, "marketUpdates", logger),
		books:     make([]*orderbook.OrderBook, limits.MaxTickers),
		stopped:   make(chan struct{}),
	}

	em := emitter{responses: e.responses, updates: e.updates}
	for i := range e.books {
		e.books[i] = orderbook.New(types.TickerID(i), limits, em, logger)
	}
	return e
}

// Requests returns the producer-side handle to the inbound queue (the
// order gateway's end of the contract).
func (e *Engine) Requests() *queue.SPSC[types.ClientRequest] { return e.requests }

// Responses returns the consumer-side handle to the response queue (the
// order gateway's end of the contract).
func (e *Engine) Responses() *queue.SPSC[types.ClientResponse] { return e.responses }

// Updates returns the consumer-side handle to the market-update queue (the
// market-data publisher's end of the contract).
func (e *Engine) Updates() *queue.SPSC[types.MarketUpdate] { return e.updates }

// AttachMetrics wires a Collector into the engine: every dispatch and fill
// from that point on updates its counters and queue-depth gauges. Passing
// nil detaches metrics reporting. Safe to call before Start only.
func (e *Engine) AttachMetrics(c *telemetry.Collector) {
	e.metrics = c
}

// Book returns the order book for ticker, or nil if ticker is out of range.
func (e *Engine) Book(ticker types.TickerID) *orderbook.OrderBook {
	if int(ticker) >= len(e.books) {
		return nil
	}
	return e.books[ticker]
}

// Start spawns the engine's dedicated worker goroutine, optionally pinned
// to engineCore (a negative value disables pinning), and returns immediately.
func (e *Engine) Start(engineCore int) {
	e.running.Store(true)
	threadutil.Spawn(engineCore, "matching-engine", e.log, e.run)
}

// Stop clears the running flag, blocks until the worker goroutine has
// observed it and exited, then shuts down every book's and the engine's own
// log drain.
func (e *Engine) Stop() {
	e.running.Store(false)
	<-e.stopped
	for _, b := range e.books {
		b.Close()
	}
	e.log.Close()
}

// run is the engine's main loop: busy-spin on the request queue (no yield —
// latency takes priority over CPU usage), dispatch, commit, repeat.
func (e *Engine) run() {
	defer close(e.stopped)
	e.log.Info("matching engine accepting requests")
	for e.running.Load() {
		req := e.requests.NextToRead()
		if req == nil {
			continue
		}
		e.dispatch(req)
		e.requests.CommitRead()

		if e.metrics != nil {
			e.metrics.RequestQueueLen.Set(float64(e.requests.Size()))
			e.metrics.ResponseQueueLen.Set(float64(e.responses.Size()))
			e.metrics.UpdateQueueLen.Set(float64(e.updates.Size()))
		}
	}
}

func (e *Engine) dispatch(req *types.ClientRequest) {
	if int(req.TickerID) >= len(e.books) {
		e.reject(req)
		return
	}
	book := e.books[req.TickerID]

	trades := 0
	switch req.Type {
	case types.ClientRequestNew:
		trades = book.Add(req.ClientID, req.ClientOID, req.Side, req.Price, req.Qty)
		e.accept()
	case types.ClientRequestCancel:
		book.Cancel(req.ClientID, req.ClientOID)
		e.accept()
	default:
		e.reject(req)
		return
	}
	if e.metrics != nil && trades > 0 {
		e.metrics.Trades.Add(float64(trades))
	}
}

func (e *Engine) accept() {
	e.ordersProcessed.Add(1)
	if e.metrics != nil {
		e.metrics.OrdersProcessed.Inc()
	}
}

func (e *Engine) reject(req *types.ClientRequest) {
	e.rejected.Add(1)
	if e.metrics != nil {
		e.metrics.OrdersRejected.Inc()
	}
	e.emitInvalidRequest(req)
}

func (e *Engine) emitInvalidRequest(req *types.ClientRequest) {
	*e.responses.NextToWrite() = types.ClientResponse{
		Type:      types.ClientResponseInvalidRequest,
		ClientID:  req.ClientID,
		TickerID:  req.TickerID,
		ClientOID: req.ClientOID,
		MarketOID: types.OrderIDInvalid,
		Side:      types.SideInvalid,
		Price:     types.PriceInvalid,
	}
	e.responses.CommitWrite()
}

// Stats is a point-in-time snapshot of engine throughput counters.
type Stats struct {
	OrdersProcessed uint64
	Rejected        uint64
}

// Stats returns the current counters. Safe to call from any goroutine.
func (e *Engine) Stats() Stats {
	return Stats{
		OrdersProcessed: e.ordersProcessed.Load(),
		Rejected:        e.rejected.Load(),
	}
}
