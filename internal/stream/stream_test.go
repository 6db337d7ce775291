package stream

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/faytonn/clobx/internal/clock"
	"github.com/faytonn/clobx/internal/domain"
	"github.com/faytonn/clobx/internal/engine"
	"github.com/faytonn/clobx/internal/eventbus"
	"github.com/faytonn/clobx/internal/snapshot"
	"github.com/faytonn/clobx/pkg/wire"
)

func testServer(t *testing.T) (*httptest.Server, *eventbus.Bus, *engine.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	bus := eventbus.New(16, zap.NewNop())
	snap, err := snapshot.NewWriter("", zap.NewNop())
	require.NoError(t, err)
	eng := engine.New(clock.New(), zap.NewNop(), bus, snap, engine.WindowParams{PreWindowDays: 15, PostWindowSec: 60}, "password123")

	router := gin.New()
	New(bus, zap.NewNop()).RegisterRoutes(router, eng)
	return httptest.NewServer(router), bus, eng
}

func wsURL(httpURL, path string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + path
}

func TestStreamTradesRelaysPublishedTrade(t *testing.T) {
	srv, bus, _ := testServer(t)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "/v2/stream/trades"), nil)
	require.NoError(t, err)
	defer conn.Close()

	trade := domain.Trade{TradeID: "t1", BuyerID: "alice", SellerID: "bob", Price: 100, Quantity: 5, Source: domain.SourceV2}
	bus.PublishTrade(trade)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	obj, err := wire.Decode(data)
	require.NoError(t, err)
	tradeID, err := obj.GetString("trade_id")
	require.NoError(t, err)
	assert.Equal(t, "t1", tradeID)
}

func TestStreamExecutionReportsRejectsBadToken(t *testing.T) {
	srv, _, _ := testServer(t)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "/v2/stream/execution-reports?token=garbage"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestStreamExecutionReportsRelaysForAuthenticatedOwner(t *testing.T) {
	srv, bus, eng := testServer(t)
	defer srv.Close()

	require.Nil(t, eng.Register("carol", "password"))
	token, err := eng.Login("carol", "password")
	require.Nil(t, err)

	conn, _, derr := websocket.DefaultDialer.Dial(wsURL(srv.URL, "/v2/stream/execution-reports?token="+token), nil)
	require.NoError(t, derr)
	defer conn.Close()

	bus.PublishExecutionReport(eventbus.ExecutionReport{Owner: "carol", OrderID: "o1", Status: domain.StatusActive, Quantity: 3})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, rerr := conn.ReadMessage()
	require.NoError(t, rerr)

	obj, derr2 := wire.Decode(data)
	require.NoError(t, derr2)
	orderID, gerr := obj.GetString("order_id")
	require.NoError(t, gerr)
	assert.Equal(t, "o1", orderID)
}
