package server

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/faytonn/clobx/internal/domain"
	"github.com/faytonn/clobx/internal/engine"
	"github.com/faytonn/clobx/pkg/wire"
	"github.com/faytonn/clobx/pkg/xerrors"
)

func (s *Server) registerV2OrderRoutes() {
	g := s.router.Group("/v2")
	g.POST("/orders", s.handleSubmitOrder)
	g.PUT("/orders/:id", s.handleModifyOrder)
	g.DELETE("/orders/:id", s.handleCancelOrder)
	g.GET("/orders", s.handleGetBook)
	g.GET("/my-orders", s.handleMyOrders)
	g.GET("/my-trades", s.handleMyTrades)
	g.GET("/trades", s.handleTrades)
	g.POST("/bulk-operations", s.handleBulkOperations)
}

func contractFromQuery(c *gin.Context) (domain.Contract, *xerrors.Error) {
	start, err1 := strconv.ParseInt(c.Query("delivery_start"), 10, 64)
	end, err2 := strconv.ParseInt(c.Query("delivery_end"), 10, 64)
	if err1 != nil || err2 != nil {
		return domain.Contract{}, badRequest("delivery_start and delivery_end are required")
	}
	return domain.Contract{DeliveryStart: start, DeliveryEnd: end}, nil
}

func executionTypeOr(body *wire.Object, def domain.ExecutionType) domain.ExecutionType {
	v := body.GetStringOr("execution_type", string(def))
	return domain.ExecutionType(v)
}

func sideFromField(body *wire.Object) (domain.Side, *xerrors.Error) {
	v, err := body.GetString("side")
	if err != nil {
		return "", badRequest("side is required")
	}
	return domain.Side(v), nil
}

func outcomeObject(out engine.OrderOutcome) *wire.Object {
	return wire.NewObject().
		Set("order_id", wire.Str(out.OrderID)).
		Set("status", wire.Str(string(out.Status))).
		Set("filled_quantity", wire.Int(out.FilledQuantity))
}

func (s *Server) handleSubmitOrder(c *gin.Context) {
	body, ver, rerr := readBody(c)
	if rerr != nil {
		writeError(c, wire.V2, rerr)
		return
	}
	side, serr := sideFromField(body)
	if serr != nil {
		writeError(c, ver, serr)
		return
	}
	price, perr := body.GetInt("price")
	quantity, qerr := body.GetInt("quantity")
	deliveryStart, dserr := body.GetInt("delivery_start")
	deliveryEnd, deerr := body.GetInt("delivery_end")
	if perr != nil || qerr != nil || dserr != nil || deerr != nil {
		writeError(c, ver, badRequest("price, quantity, delivery_start, delivery_end are required"))
		return
	}

	req := engine.SubmitOrderRequest{
		Side: side, Price: price, Quantity: quantity,
		ExecutionType: executionTypeOr(body, domain.GTC),
		Contract:      domain.Contract{DeliveryStart: deliveryStart, DeliveryEnd: deliveryEnd},
	}
	out, err := s.eng.SubmitOrder(bearerToken(c), req)
	if err != nil {
		writeError(c, ver, err)
		return
	}
	writeObject(c, 200, ver, outcomeObject(out))
}

func (s *Server) handleModifyOrder(c *gin.Context) {
	body, ver, rerr := readBody(c)
	if rerr != nil {
		writeError(c, wire.V2, rerr)
		return
	}
	price, perr := body.GetInt("price")
	quantity, qerr := body.GetInt("quantity")
	if perr != nil || qerr != nil {
		writeError(c, ver, badRequest("price and quantity are required"))
		return
	}
	out, err := s.eng.ModifyOrder(bearerToken(c), c.Param("id"), price, quantity)
	if err != nil {
		writeError(c, ver, err)
		return
	}
	writeObject(c, 200, ver, outcomeObject(out))
}

func (s *Server) handleCancelOrder(c *gin.Context) {
	if err := s.eng.CancelOrder(bearerToken(c), c.Param("id")); err != nil {
		writeError(c, wire.V2, err)
		return
	}
	writeEmpty(c, 204)
}

func orderViewObject(o engine.OrderView) *wire.Object {
	return wire.NewObject().
		Set("order_id", wire.Str(o.OrderID)).
		Set("owner", wire.Str(o.Owner)).
		Set("side", wire.Str(string(o.Side))).
		Set("price", wire.Int(o.Price)).
		Set("quantity", wire.Int(o.Quantity)).
		Set("original_quantity", wire.Int(o.OriginalQuantity)).
		Set("status", wire.Str(string(o.Status))).
		Set("execution_type", wire.Str(string(o.ExecutionType))).
		Set("created_at", wire.Int(o.CreatedAt))
}

func (s *Server) handleGetBook(c *gin.Context) {
	contract, cerr := contractFromQuery(c)
	if cerr != nil {
		writeError(c, wire.V2, cerr)
		return
	}
	view := s.eng.GetBook(contract)
	bids := make([]*wire.Object, len(view.Bids))
	for i, o := range view.Bids {
		bids[i] = orderViewObject(o)
	}
	asks := make([]*wire.Object, len(view.Asks))
	for i, o := range view.Asks {
		asks[i] = orderViewObject(o)
	}
	writeObject(c, 200, wire.V2, wire.NewObject().Set("bids", wire.ObjList(bids)).Set("asks", wire.ObjList(asks)))
}

func (s *Server) handleMyOrders(c *gin.Context) {
	orders, err := s.eng.MyOrders(bearerToken(c))
	if err != nil {
		writeError(c, wire.V2, err)
		return
	}
	objs := make([]*wire.Object, len(orders))
	for i, o := range orders {
		objs[i] = orderViewObject(o)
	}
	writeObject(c, 200, wire.V2, wire.NewObject().Set("orders", wire.ObjList(objs)))
}

func tradeViewObject(t engine.TradeView, role string) *wire.Object {
	obj := wire.NewObject().
		Set("trade_id", wire.Str(t.TradeID)).
		Set("buyer_id", wire.Str(t.BuyerID)).
		Set("seller_id", wire.Str(t.SellerID)).
		Set("price", wire.Int(t.Price)).
		Set("quantity", wire.Int(t.Quantity)).
		Set("timestamp", wire.Int(t.Timestamp)).
		Set("delivery_start", wire.Int(t.DeliveryStart)).
		Set("delivery_end", wire.Int(t.DeliveryEnd))
	if role != "" {
		obj.Set("role", wire.Str(role))
	}
	return obj
}

func (s *Server) handleMyTrades(c *gin.Context) {
	contract, cerr := contractFromQuery(c)
	if cerr != nil {
		writeError(c, wire.V2, cerr)
		return
	}
	trades, err := s.eng.MyTrades(bearerToken(c), contract)
	if err != nil {
		writeError(c, wire.V2, err)
		return
	}
	objs := make([]*wire.Object, len(trades))
	for i, t := range trades {
		obj := tradeViewObject(t.TradeView, t.Role)
		obj.Set("counterparty", wire.Str(t.Counterparty))
		objs[i] = obj
	}
	writeObject(c, 200, wire.V2, wire.NewObject().Set("trades", wire.ObjList(objs)))
}

func (s *Server) handleTrades(c *gin.Context) {
	contract, cerr := contractFromQuery(c)
	if cerr != nil {
		writeError(c, wire.V2, cerr)
		return
	}
	trades := s.eng.Trades(contract)
	objs := make([]*wire.Object, len(trades))
	for i, t := range trades {
		objs[i] = tradeViewObject(t, "")
	}
	writeObject(c, 200, wire.V2, wire.NewObject().Set("trades", wire.ObjList(objs)))
}
