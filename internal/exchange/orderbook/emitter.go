package orderbook

import "github.com/abdoElHodaky/nitek-ome/internal/exchange/types"

// Emitter is the capability an OrderBook uses to publish responses and
// market updates. Passing it in at construction (rather than giving the
// book a back-reference to its owning engine) breaks the engine<->book
// reference cycle while keeping emission on the same goroutine: both
// methods must be cheap, non-blocking pushes onto pre-sized SPSC queues.
type Emitter interface {
	SendClientResponse(types.ClientResponse)
	SendMarketUpdate(types.MarketUpdate)
}
