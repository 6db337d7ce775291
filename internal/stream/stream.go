// Package stream implements the websocket push transport (§6
// GET /v2/stream/*) on top of the event bus (C8). It is a pure transport
// adapter: framing and connection lifecycle only, no business logic.
package stream

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/faytonn/clobx/internal/domain"
	"github.com/faytonn/clobx/internal/engine"
	"github.com/faytonn/clobx/internal/eventbus"
	"github.com/faytonn/clobx/pkg/wire"
)

// Hub upgrades incoming connections and relays event-bus subscriber
// channels onto the websocket, following a standard
// upgrade-then-pump-goroutine connection lifecycle.
type Hub struct {
	bus      *eventbus.Bus
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New returns a Hub fanning out events from bus.
func New(bus *eventbus.Bus, logger *zap.Logger) *Hub {
	return &Hub{
		bus:    bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The exchange is a single-venue service behind its own
			// origin; cross-origin browser clients are not a deployment
			// target for this API.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes wires the three push endpoints (§6).
func (h *Hub) RegisterRoutes(router *gin.Engine, eng *engine.Engine) {
	router.GET("/v2/stream/trades", h.handleTrades)
	router.GET("/v2/stream/order-book", h.handleOrderBook)
	router.GET("/v2/stream/execution-reports", h.handleExecutionReports(eng))
}

func (h *Hub) handleTrades(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	sub := h.bus.SubscribeTrades()
	h.pump(conn, sub, func(event any) *wire.Object {
		t := event.(domain.Trade)
		return wire.NewObject().
			Set("trade_id", wire.Str(t.TradeID)).
			Set("buyer_id", wire.Str(t.BuyerID)).
			Set("seller_id", wire.Str(t.SellerID)).
			Set("price", wire.Int(t.Price)).
			Set("quantity", wire.Int(t.Quantity)).
			Set("timestamp", wire.Int(t.Timestamp)).
			Set("delivery_start", wire.Int(t.DeliveryStart)).
			Set("delivery_end", wire.Int(t.DeliveryEnd))
	})
}

func (h *Hub) handleOrderBook(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	sub := h.bus.SubscribeOrderBook()
	h.pump(conn, sub, func(event any) *wire.Object {
		d := event.(eventbus.BookDelta)
		return wire.NewObject().
			Set("op", wire.Str(string(d.Op))).
			Set("delivery_start", wire.Int(d.Contract.DeliveryStart)).
			Set("delivery_end", wire.Int(d.Contract.DeliveryEnd)).
			Set("order_id", wire.Str(d.Order.OrderID)).
			Set("side", wire.Str(string(d.Order.Side))).
			Set("price", wire.Int(d.Order.Price)).
			Set("quantity", wire.Int(d.Order.Quantity))
	})
}

func (h *Hub) handleExecutionReports(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		owner, ok := eng.AuthenticateToken(token)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		sub := h.bus.SubscribeExecutionReports(owner)
		h.pump(conn, sub, func(event any) *wire.Object {
			r := event.(eventbus.ExecutionReport)
			return wire.NewObject().
				Set("order_id", wire.Str(r.OrderID)).
				Set("status", wire.Str(string(r.Status))).
				Set("filled_quantity", wire.Int(r.FilledQuantity)).
				Set("price", wire.Int(r.Price)).
				Set("quantity", wire.Int(r.Quantity))
		})
	}
}

// pump relays sub's channel onto conn until either closes, encoding each
// event as a v2 galactic-buffer frame. Reaping a disconnected peer
// happens on the next write attempt (§5 "push subscribers... reaped on
// next publish").
func (h *Hub) pump(conn *websocket.Conn, sub *eventbus.Subscriber, toFields func(any) *wire.Object) {
	defer conn.Close()
	defer h.unsubscribe(sub)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	go h.drainReads(conn)

	for event := range sub.Chan() {
		data, err := wire.Encode(wire.V2, toFields(event))
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			return
		}
	}
}

// drainReads discards client frames (this API is push-only) so control
// frames (ping/close) are still processed by the gorilla read loop.
func (h *Hub) drainReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) unsubscribe(sub *eventbus.Subscriber) {
	h.bus.Unsubscribe(sub)
}
