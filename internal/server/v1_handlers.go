package server

import (
	"github.com/gin-gonic/gin"

	"github.com/faytonn/clobx/internal/domain"
	"github.com/faytonn/clobx/internal/engine"
	"github.com/faytonn/clobx/pkg/wire"
)

func (s *Server) registerV1OrderRoutes() {
	g := s.router.Group("/v1")
	g.POST("/orders", s.handleCreateV1Order)
	g.GET("/orders", s.handleListV1Orders)
	g.POST("/orders/:id/take", s.handleTakeV1Order)
}

func v1ViewObject(o engine.V1OrderView) *wire.Object {
	return wire.NewObject().
		Set("order_id", wire.Str(o.OrderID)).
		Set("owner", wire.Str(o.Owner)).
		Set("price", wire.Int(o.Price)).
		Set("quantity", wire.Int(o.Quantity)).
		Set("active", wire.Int(boolToInt(o.Active)))
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (s *Server) handleCreateV1Order(c *gin.Context) {
	body, ver, rerr := readBody(c)
	if rerr != nil {
		writeError(c, wire.V2, rerr)
		return
	}
	price, perr := body.GetInt("price")
	quantity, qerr := body.GetInt("quantity")
	start, serr := body.GetInt("delivery_start")
	end, eerr := body.GetInt("delivery_end")
	if perr != nil || qerr != nil || serr != nil || eerr != nil {
		writeError(c, ver, badRequest("price, quantity, delivery_start, delivery_end are required"))
		return
	}
	view, err := s.eng.CreateV1Order(bearerToken(c), engine.V1CreateRequest{
		Price: price, Quantity: quantity,
		Contract: domain.Contract{DeliveryStart: start, DeliveryEnd: end},
	})
	if err != nil {
		writeError(c, ver, err)
		return
	}
	writeObject(c, 200, ver, v1ViewObject(view))
}

func (s *Server) handleListV1Orders(c *gin.Context) {
	contract, cerr := contractFromQuery(c)
	if cerr != nil {
		writeError(c, wire.V2, cerr)
		return
	}
	orders := s.eng.V1Orders(contract)
	objs := make([]*wire.Object, len(orders))
	for i, o := range orders {
		objs[i] = v1ViewObject(o)
	}
	writeObject(c, 200, wire.V2, wire.NewObject().Set("orders", wire.ObjList(objs)))
}

func (s *Server) handleTakeV1Order(c *gin.Context) {
	if err := s.eng.TakeV1Order(bearerToken(c), c.Param("id")); err != nil {
		writeError(c, wire.V2, err)
		return
	}
	writeEmpty(c, 204)
}
