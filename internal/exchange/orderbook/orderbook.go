// Package orderbook implements a single-ticker limit order book: bid/ask
// price levels, FIFO queues at each level, and the matching algorithm that
// walks the opposing side on every incoming order.
//
// An OrderBook is owned exclusively by the matching-engine goroutine that
// constructed it; there is no internal locking. Every book, pool and
// counter it touches is mutated from that single goroutine only.
//
// Orders and price levels live in fixed-capacity pools (package pool) and
// reference each other by stable slot index rather than pointer: the pool
// owns storage, the book owns the index graph.
package orderbook

import (
	"fmt"
	"strings"

	"github.com/abdoElHodaky/nitek-ome/internal/exchange/config"
	"github.com/abdoElHodaky/nitek-ome/internal/exchange/types"
	asynclog "github.com/abdoElHodaky/nitek-ome/internal/lowlatency/logger"
	"github.com/abdoElHodaky/nitek-ome/internal/lowlatency/pool"
	"go.uber.org/zap"
)

// order is one resting order, part of an intrusive circular FIFO list
// within its price level.
type order struct {
	client    types.ClientID
	clientOID types.OrderID
	marketOID types.OrderID
	side      types.Side
	price     types.Price
	qty       types.Qty
	priority  types.Priority

	prev, next uint32 // sibling order slots within the same level
	level      uint32 // owning price-level slot
}

// priceLevel is the FIFO queue of all live orders at one price on one side,
// and a member of the side's circular, aggressiveness-ordered list.
type priceLevel struct {
	side      types.Side
	price     types.Price
	headOrder uint32 // lowest-priority (next to match) order slot

	prev, next uint32 // sibling price levels on the same side
}

// OrderBook is the limit order book for a single ticker.
type OrderBook struct {
	ticker types.TickerID
	log    *asynclog.AsyncLogger
	emit   Emitter

	orders *pool.Pool[order]
	levels *pool.Pool[priceLevel]

	bidsHead uint32 // highest bid, or pool.NilIndex
	asksHead uint32 // lowest ask, or pool.NilIndex

	priceIndex  []uint32   // price_to_index(price) -> level slot, or NilIndex
	clientOrder [][]uint32 // [client][order_id_slot] -> order slot, or NilIndex

	nextMarketOID types.OrderID
}

// New constructs an empty order book for ticker, sized per limits, emitting
// responses/updates through emit.
func New(ticker types.TickerID, limits config.Limits, emit Emitter, logger *zap.Logger) *OrderBook {
	name := fmt.Sprintf("ticker-%d", ticker)
	clientOrder := make([][]uint32, limits.MaxClients)
	for i := range clientOrder {
		row := make([]uint32, limits.MaxOrderIDs)
		for j := range row {
			row[j] = pool.NilIndex
		}
		clientOrder[i] = row
	}
	priceIndex := make([]uint32, limits.MaxPriceLevels)
	for i := range priceIndex {
		priceIndex[i] = pool.NilIndex
	}

	log := asynclog.New(logger, "book["+name+"]")
	log.Info("order book constructed",
		zap.String("ticker", ticker.String()),
		zap.Int("max_clients", limits.MaxClients),
		zap.Int("max_order_ids", limits.MaxOrderIDs),
	)

	return &OrderBook{
		ticker:        ticker,
		log:           log,
		emit:          emit,
		orders:        pool.New[order](limits.MaxOrderIDs, "orders["+name+"]", logger),
		levels:        pool.New[priceLevel](limits.MaxPriceLevels, "levels["+name+"]", logger),
		bidsHead:      pool.NilIndex,
		asksHead:      pool.NilIndex,
		priceIndex:    priceIndex,
		clientOrder:   clientOrder,
		nextMarketOID: 1,
	}
}

// Close stops the book's background log drain. Call once the owning engine
// has stopped dispatching to this book.
func (b *OrderBook) Close() {
	b.log.Close()
}

// Ticker returns the instrument this book trades.
func (b *OrderBook) Ticker() types.TickerID { return b.ticker }

// Add enters a new order into the book: it is immediately reported
// ACCEPTED, matched against the opposing side, and any unfilled remainder
// rests at its price. It returns the number of fills the incoming order
// participated in.
func (b *OrderBook) Add(client types.ClientID, clientOID types.OrderID, side types.Side, price types.Price, qty types.Qty) int {
	marketOID := b.nextMarketOID
	b.nextMarketOID++

	b.emit.SendClientResponse(types.ClientResponse{
		Type:        types.ClientResponseAccepted,
		ClientID:    client,
		TickerID:    b.ticker,
		ClientOID:   clientOID,
		MarketOID:   marketOID,
		Side:        side,
		Price:       price,
		QtyExecuted: 0,
		QtyRemain:   qty,
	})

	remaining, trades := b.match(client, clientOID, marketOID, side, price, qty)
	if remaining > 0 {
		b.addToBook(client, clientOID, marketOID, side, price, remaining)
	}
	return trades
}

// Cancel removes a resting order on behalf of client. An order unknown to
// the book (or a client ID out of range) is reported CANCEL_REJECTED with
// no state mutation.
func (b *OrderBook) Cancel(client types.ClientID, clientOID types.OrderID) {
	ord, orderIdx, ok := b.lookupLive(client, clientOID)
	if !ok {
		b.log.Debug("cancel rejected: no live order for client/clientOID",
			zap.String("client", client.String()),
			zap.String("client_oid", clientOID.String()),
		)
		b.emit.SendClientResponse(types.ClientResponse{
			Type:      types.ClientResponseCancelRejected,
			ClientID:  client,
			TickerID:  b.ticker,
			ClientOID: clientOID,
			MarketOID: types.OrderIDInvalid,
			Side:      types.SideInvalid,
			Price:     types.PriceInvalid,
		})
		return
	}

	b.emit.SendClientResponse(types.ClientResponse{
		Type:        types.ClientResponseCancelled,
		ClientID:    client,
		TickerID:    b.ticker,
		ClientOID:   clientOID,
		MarketOID:   ord.marketOID,
		Side:        ord.side,
		Price:       ord.price,
		QtyExecuted: types.QtyInvalid,
		QtyRemain:   ord.qty,
	})
	b.emit.SendMarketUpdate(types.MarketUpdate{
		Type:      types.MarketUpdateCancel,
		MarketOID: ord.marketOID,
		TickerID:  b.ticker,
		Side:      ord.side,
		Price:     ord.price,
		Qty:       0,
		Priority:  ord.priority,
	})

	b.clearClientOrderSlot(client, clientOID)
	b.removeOrder(orderIdx)
}

// lookupLive resolves a (client, clientOID) pair to its live order, if any.
func (b *OrderBook) lookupLive(client types.ClientID, clientOID types.OrderID) (order, uint32, bool) {
	if int(client) >= len(b.clientOrder) {
		return order{}, pool.NilIndex, false
	}
	row := b.clientOrder[client]
	slot := types.OrderIDSlot(clientOID, len(row))
	idx := row[slot]
	if idx == pool.NilIndex || !b.orders.InUse(idx) {
		return order{}, pool.NilIndex, false
	}
	o := b.orders.At(idx)
	if o.clientOID != clientOID {
		// Table slot now holds a different order (OrderID wrapped modulo
		// table size) — nothing live under this client/clientOID.
		return order{}, pool.NilIndex, false
	}
	return *o, idx, true
}

func (b *OrderBook) clearClientOrderSlot(client types.ClientID, clientOID types.OrderID) {
	row := b.clientOrder[client]
	row[types.OrderIDSlot(clientOID, len(row))] = pool.NilIndex
}

// match walks the opposing side while the incoming order can still trade,
// emitting two FILLED responses and a TRADE update per fill, and a
// terminating MODIFY or CANCEL update for the resting order. It returns the
// incoming order's unfilled remainder and the number of fills executed.
func (b *OrderBook) match(client types.ClientID, clientOID types.OrderID, marketOID types.OrderID, side types.Side, price types.Price, qty types.Qty) (types.Qty, int) {
	remaining := qty
	trades := 0

	for remaining > 0 {
		oppHead := b.asksHead
		if side == types.SideSell {
			oppHead = b.bidsHead
		}
		if oppHead == pool.NilIndex {
			break
		}

		lvl := b.levels.At(oppHead)
		if side == types.SideBuy && lvl.price > price {
			break
		}
		if side == types.SideSell && lvl.price < price {
			break
		}

		restingIdx := lvl.headOrder
		resting := b.orders.At(restingIdx)

		fill := resting.qty
		if remaining < fill {
			fill = remaining
		}
		remaining -= fill
		resting.qty -= fill
		trades++

		b.emit.SendClientResponse(types.ClientResponse{
			Type:        types.ClientResponseFilled,
			ClientID:    client,
			TickerID:    b.ticker,
			ClientOID:   clientOID,
			MarketOID:   marketOID,
			Side:        side,
			Price:       lvl.price,
			QtyExecuted: fill,
			QtyRemain:   remaining,
		})
		b.emit.SendClientResponse(types.ClientResponse{
			Type:        types.ClientResponseFilled,
			ClientID:    resting.client,
			TickerID:    b.ticker,
			ClientOID:   resting.clientOID,
			MarketOID:   resting.marketOID,
			Side:        resting.side,
			Price:       lvl.price,
			QtyExecuted: fill,
			QtyRemain:   resting.qty,
		})
		b.emit.SendMarketUpdate(types.MarketUpdate{
			Type:      types.MarketUpdateTrade,
			MarketOID: types.OrderIDInvalid,
			TickerID:  b.ticker,
			Side:      side,
			Price:     lvl.price,
			Qty:       fill,
			Priority:  types.PriorityInvalid,
		})

		if resting.qty == 0 {
			b.emit.SendMarketUpdate(types.MarketUpdate{
				Type:      types.MarketUpdateCancel,
				MarketOID: resting.marketOID,
				TickerID:  b.ticker,
				Side:      resting.side,
				Price:     lvl.price,
				Qty:       fill,
				Priority:  types.PriorityInvalid,
			})
			b.clearClientOrderSlot(resting.client, resting.clientOID)
			b.removeOrder(restingIdx)
		} else {
			b.emit.SendMarketUpdate(types.MarketUpdate{
				Type:      types.MarketUpdateModify,
				MarketOID: resting.marketOID,
				TickerID:  b.ticker,
				Side:      resting.side,
				Price:     resting.price,
				Qty:       resting.qty,
				Priority:  resting.priority,
			})
		}
	}

	return remaining, trades
}

// addToBook allocates and links a new resting order for the unfilled
// remainder of an Add, creating its price level if necessary.
func (b *OrderBook) addToBook(client types.ClientID, clientOID types.OrderID, marketOID types.OrderID, side types.Side, price types.Price, qty types.Qty) {
	if int(client) >= len(b.clientOrder) {
		b.log.Fatal("client id out of range",
			zap.String("client", client.String()),
			zap.Int("max_clients", len(b.clientOrder)),
		)
		return
	}

	idx := types.PriceToIndex(price, len(b.priceIndex))
	levelIdx := b.priceIndex[idx]
	if levelIdx != pool.NilIndex && b.levels.At(levelIdx).price != price {
		b.log.Fatal("price level index collision",
			zap.String("price", price.String()),
			zap.String("existing_price", b.levels.At(levelIdx).price.String()),
			zap.Int("max_price_levels", len(b.priceIndex)),
		)
		return
	}

	var priority types.Priority
	if levelIdx == pool.NilIndex {
		priority = 1
	} else {
		tailIdx := b.tailOf(levelIdx)
		priority = b.orders.At(tailIdx).priority + 1
	}

	orderIdx := b.orders.Allocate(func(o *order) {
		o.client = client
		o.clientOID = clientOID
		o.marketOID = marketOID
		o.side = side
		o.price = price
		o.qty = qty
		o.priority = priority
		o.level = pool.NilIndex
	})
	ord := b.orders.At(orderIdx)

	if levelIdx == pool.NilIndex {
		levelIdx = b.levels.Allocate(func(l *priceLevel) {
			l.side = side
			l.price = price
			l.headOrder = orderIdx
		})
		ord.prev, ord.next = orderIdx, orderIdx
		b.insertLevel(levelIdx, side)
		b.priceIndex[idx] = levelIdx
	} else {
		lvl := b.levels.At(levelIdx)
		headIdx := lvl.headOrder
		tailIdx := b.orders.At(headIdx).prev
		ord.prev, ord.next = tailIdx, headIdx
		b.orders.At(tailIdx).next = orderIdx
		b.orders.At(headIdx).prev = orderIdx
	}
	ord.level = levelIdx

	row := b.clientOrder[client]
	row[types.OrderIDSlot(clientOID, len(row))] = orderIdx

	b.emit.SendMarketUpdate(types.MarketUpdate{
		Type:      types.MarketUpdateAdd,
		MarketOID: marketOID,
		TickerID:  b.ticker,
		Side:      side,
		Price:     price,
		Qty:       qty,
		Priority:  priority,
	})
}

func (b *OrderBook) tailOf(levelIdx uint32) uint32 {
	head := b.levels.At(levelIdx).headOrder
	return b.orders.At(head).prev
}

// moreAggressive reports whether price a is closer to the top of book than
// price b for side: higher is more aggressive for BUY, lower for SELL.
func moreAggressive(a, b types.Price, side types.Side) bool {
	if side == types.SideBuy {
		return a > b
	}
	return a < b
}

// insertLevel splices a newly allocated, as-yet-unlinked price level into
// its side's circular, aggressiveness-ordered list, updating the side head.
// The caller records the level in the direct-mapped price index.
func (b *OrderBook) insertLevel(newIdx uint32, side types.Side) {
	headPtr := &b.bidsHead
	if side == types.SideSell {
		headPtr = &b.asksHead
	}
	newLevel := b.levels.At(newIdx)

	head := *headPtr
	if head == pool.NilIndex {
		newLevel.prev, newLevel.next = newIdx, newIdx
		*headPtr = newIdx
		return
	}

	if moreAggressive(newLevel.price, b.levels.At(head).price, side) {
		tail := b.levels.At(head).prev
		newLevel.prev, newLevel.next = tail, head
		b.levels.At(tail).next = newIdx
		b.levels.At(head).prev = newIdx
		*headPtr = newIdx
		return
	}

	cur := head
	for {
		next := b.levels.At(cur).next
		if next == head {
			newLevel.prev, newLevel.next = cur, head
			b.levels.At(cur).next = newIdx
			b.levels.At(head).prev = newIdx
			return
		}
		if moreAggressive(newLevel.price, b.levels.At(next).price, side) {
			newLevel.prev, newLevel.next = cur, next
			b.levels.At(cur).next = newIdx
			b.levels.At(next).prev = newIdx
			return
		}
		cur = next
	}
}

// removeLevel unlinks an emptied price level from its side list, clears its
// direct-map slot and frees it back to the pool.
func (b *OrderBook) removeLevel(levelIdx uint32, side types.Side) {
	headPtr := &b.bidsHead
	if side == types.SideSell {
		headPtr = &b.asksHead
	}
	lvl := b.levels.At(levelIdx)
	prev, next := lvl.prev, lvl.next

	if next == levelIdx {
		*headPtr = pool.NilIndex
	} else {
		b.levels.At(prev).next = next
		b.levels.At(next).prev = prev
		if *headPtr == levelIdx {
			*headPtr = next
		}
	}

	b.priceIndex[types.PriceToIndex(lvl.price, len(b.priceIndex))] = pool.NilIndex
	b.levels.Deallocate(levelIdx)
}

// removeOrder unlinks an order from its price level's FIFO list, removing
// the level too if this was its last order, then frees the order back to
// the pool.
func (b *OrderBook) removeOrder(orderIdx uint32) {
	ord := b.orders.At(orderIdx)
	levelIdx := ord.level
	side := ord.side

	if ord.next == orderIdx {
		b.removeLevel(levelIdx, side)
	} else {
		prev, next := ord.prev, ord.next
		b.orders.At(prev).next = next
		b.orders.At(next).prev = prev
		lvl := b.levels.At(levelIdx)
		if lvl.headOrder == orderIdx {
			lvl.headOrder = next
		}
	}

	b.orders.Deallocate(orderIdx)
}

// OrderSnapshot is a read-only view of one live order, for tests and
// diagnostics.
type OrderSnapshot struct {
	ClientID  types.ClientID
	ClientOID types.OrderID
	MarketOID types.OrderID
	Qty       types.Qty
	Priority  types.Priority
}

// LevelSnapshot is a read-only view of one price level, head-to-tail.
type LevelSnapshot struct {
	Price  types.Price
	Orders []OrderSnapshot
}

// BidLevels returns the bid side, best (highest) price first.
func (b *OrderBook) BidLevels() []LevelSnapshot { return b.snapshotSide(b.bidsHead) }

// AskLevels returns the ask side, best (lowest) price first.
func (b *OrderBook) AskLevels() []LevelSnapshot { return b.snapshotSide(b.asksHead) }

func (b *OrderBook) snapshotSide(head uint32) []LevelSnapshot {
	if head == pool.NilIndex {
		return nil
	}
	var out []LevelSnapshot
	cur := head
	for {
		lvl := b.levels.At(cur)
		out = append(out, LevelSnapshot{Price: lvl.price, Orders: b.snapshotLevel(lvl)})
		cur = lvl.next
		if cur == head {
			break
		}
	}
	return out
}

func (b *OrderBook) snapshotLevel(lvl *priceLevel) []OrderSnapshot {
	var out []OrderSnapshot
	cur := lvl.headOrder
	for {
		o := b.orders.At(cur)
		out = append(out, OrderSnapshot{
			ClientID:  o.client,
			ClientOID: o.clientOID,
			MarketOID: o.marketOID,
			Qty:       o.qty,
			Priority:  o.priority,
		})
		cur = o.next
		if cur == lvl.headOrder {
			break
		}
	}
	return out
}

// LookupOrder reports the live order resting under (client, clientOID), if
// any — used by tests asserting that every live order remains reachable
// through the client-order table.
func (b *OrderBook) LookupOrder(client types.ClientID, clientOID types.OrderID) (OrderSnapshot, bool) {
	o, _, ok := b.lookupLive(client, clientOID)
	if !ok {
		return OrderSnapshot{}, false
	}
	return OrderSnapshot{ClientID: o.client, ClientOID: o.clientOID, MarketOID: o.marketOID, Qty: o.qty, Priority: o.priority}, true
}

// CheckInvariants walks the book verifying price-level ordering, strictly
// increasing per-level priority, and that no live order has zero quantity,
// returning the first violation found. It is informational — used by tests
// and optional debug logging — and is distinct from the engine's own
// fatal-on-corruption hot path.
func (b *OrderBook) CheckInvariants() error {
	if err := b.checkSide(b.bidsHead, types.SideBuy); err != nil {
		return err
	}
	if err := b.checkSide(b.asksHead, types.SideSell); err != nil {
		return err
	}
	return nil
}

func (b *OrderBook) checkSide(head uint32, side types.Side) error {
	if head == pool.NilIndex {
		return nil
	}
	cur := head
	var prevPrice types.Price
	first := true
	for {
		lvl := b.levels.At(cur)
		if !first && !moreAggressive(prevPrice, lvl.price, side) {
			return fmt.Errorf("orderbook: price levels not strictly ordered on %s side", side)
		}
		prevPrice = lvl.price
		first = false

		if err := b.checkLevel(lvl); err != nil {
			return err
		}

		cur = lvl.next
		if cur == head {
			break
		}
	}
	return nil
}

func (b *OrderBook) checkLevel(lvl *priceLevel) error {
	cur := lvl.headOrder
	var prevPriority types.Priority
	first := true
	for {
		o := b.orders.At(cur)
		if o.qty == 0 {
			return fmt.Errorf("orderbook: live order with zero qty at price %s", lvl.price)
		}
		if !first && o.priority <= prevPriority {
			return fmt.Errorf("orderbook: priorities not strictly increasing at price %s", lvl.price)
		}
		prevPriority = o.priority
		first = false

		cur = o.next
		if cur == lvl.headOrder {
			break
		}
	}
	return nil
}

// DebugString renders the book's contents for logs and tests. When
// detailed is true, every order at every level is printed; otherwise only
// per-level aggregates are shown.
func (b *OrderBook) DebugString(detailed bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "OrderBook[ticker=%s]\n", b.ticker)
	sb.WriteString(" bids:\n")
	writeSide(&sb, b.BidLevels(), detailed)
	sb.WriteString(" asks:\n")
	writeSide(&sb, b.AskLevels(), detailed)
	return sb.String()
}

func writeSide(sb *strings.Builder, levels []LevelSnapshot, detailed bool) {
	for _, lvl := range levels {
		var qty types.Qty
		for _, o := range lvl.Orders {
			qty += o.Qty
		}
		fmt.Fprintf(sb, "  price=%s qty=%s orders=%d\n", lvl.Price, qty, len(lvl.Orders))
		if detailed {
			for _, o := range lvl.Orders {
				fmt.Fprintf(sb, "    client=%s clientOID=%s marketOID=%s qty=%s priority=%s\n",
					o.ClientID, o.ClientOID, o.MarketOID, o.Qty, o.Priority)
			}
		}
	}
}
