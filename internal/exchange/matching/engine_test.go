package matching

import (
	"testing"
	"time"

	"github.com/abdoElHodaky/nitek-ome/internal/exchange/config"
	"github.com/abdoElHodaky/nitek-ome/internal/exchange/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() config.Engine {
	return config.Engine{
		Limits: config.Limits{
			MaxTickers:       2,
			MaxClients:       4,
			MaxOrderIDs:      64,
			MaxPriceLevels:   16,
			MaxClientUpdates: 256,
			MaxMarketUpdates: 256,
		},
		EngineCore: -1,
		LogLevel:   "info",
	}
}

func waitForResponse(t *testing.T, e *Engine) types.ClientResponse {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if r := e.Responses().NextToRead(); r != nil {
			resp := *r
			e.Responses().CommitRead()
			return resp
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for response")
		default:
		}
	}
}

func TestEngine_NewOrderIsAcceptedAndBookReflectsIt(t *testing.T) {
	e := New(testConfig(), zap.NewNop())
	e.Start(-1)
	defer e.Stop()

	*e.Requests().NextToWrite() = types.ClientRequest{
		Type: types.ClientRequestNew, ClientID: 1, TickerID: 0, ClientOID: 10,
		Side: types.SideBuy, Price: 100, Qty: 5,
	}
	e.Requests().CommitWrite()

	resp := waitForResponse(t, e)
	assert.Equal(t, types.ClientResponseAccepted, resp.Type)

	snap, ok := e.Book(0).LookupOrder(1, 10)
	require.True(t, ok)
	assert.Equal(t, types.Qty(5), snap.Qty)
}

func TestEngine_UnknownTickerIsRejectedAsInvalidRequest(t *testing.T) {
	e := New(testConfig(), zap.NewNop())
	e.Start(-1)
	defer e.Stop()

	*e.Requests().NextToWrite() = types.ClientRequest{
		Type: types.ClientRequestNew, ClientID: 1, TickerID: 99, ClientOID: 1,
		Side: types.SideBuy, Price: 1, Qty: 1,
	}
	e.Requests().CommitWrite()

	resp := waitForResponse(t, e)
	assert.Equal(t, types.ClientResponseInvalidRequest, resp.Type)
	assert.Equal(t, uint64(1), e.Stats().Rejected)
}

func TestEngine_UnknownRequestTypeIsRejected(t *testing.T) {
	e := New(testConfig(), zap.NewNop())
	e.Start(-1)
	defer e.Stop()

	*e.Requests().NextToWrite() = types.ClientRequest{
		Type: types.ClientRequestInvalid, ClientID: 1, TickerID: 0,
	}
	e.Requests().CommitWrite()

	resp := waitForResponse(t, e)
	assert.Equal(t, types.ClientResponseInvalidRequest, resp.Type)
}

func TestEngine_CancelAfterAddRemovesRestingOrder(t *testing.T) {
	e := New(testConfig(), zap.NewNop())
	e.Start(-1)
	defer e.Stop()

	*e.Requests().NextToWrite() = types.ClientRequest{
		Type: types.ClientRequestNew, ClientID: 1, TickerID: 0, ClientOID: 10,
		Side: types.SideBuy, Price: 100, Qty: 5,
	}
	e.Requests().CommitWrite()
	waitForResponse(t, e) // accepted

	*e.Requests().NextToWrite() = types.ClientRequest{
		Type: types.ClientRequestCancel, ClientID: 1, TickerID: 0, ClientOID: 10,
	}
	e.Requests().CommitWrite()
	resp := waitForResponse(t, e)
	assert.Equal(t, types.ClientResponseCancelled, resp.Type)

	_, ok := e.Book(0).LookupOrder(1, 10)
	assert.False(t, ok)
	assert.Equal(t, uint64(2), e.Stats().OrdersProcessed)
}

func TestEngine_StopBlocksUntilRunLoopExits(t *testing.T) {
	e := New(testConfig(), zap.NewNop())
	e.Start(-1)
	e.Stop()
	assert.False(t, e.running.Load())
	select {
	case <-e.stopped:
	default:
		t.Fatal("run loop had not exited when Stop returned")
	}
}
