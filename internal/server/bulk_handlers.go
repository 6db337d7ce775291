package server

import (
	"github.com/gin-gonic/gin"

	"github.com/faytonn/clobx/internal/domain"
	"github.com/faytonn/clobx/internal/engine"
	"github.com/faytonn/clobx/pkg/wire"
)

func (s *Server) handleBulkOperations(c *gin.Context) {
	body, ver, rerr := readBody(c)
	if rerr != nil {
		writeError(c, wire.V2, rerr)
		return
	}
	contractObjs, cerr := body.GetObjectList("contracts")
	if cerr != nil {
		writeError(c, ver, badRequest("contracts is required"))
		return
	}

	contracts := make([]engine.BulkContract, 0, len(contractObjs))
	for _, co := range contractObjs {
		start, _ := co.GetInt("delivery_start")
		end, _ := co.GetInt("delivery_end")
		opObjs, operr := co.GetObjectList("operations")
		if operr != nil {
			writeError(c, ver, badRequest("operations is required per contract"))
			return
		}
		ops := make([]engine.BulkOp, 0, len(opObjs))
		for _, oo := range opObjs {
			ops = append(ops, bulkOpFromObject(oo))
		}
		contracts = append(contracts, engine.BulkContract{
			Contract:   domain.Contract{DeliveryStart: start, DeliveryEnd: end},
			Operations: ops,
		})
	}

	results, err := s.eng.BulkOperations(contracts)
	if err != nil {
		writeError(c, ver, err)
		return
	}
	objs := make([]*wire.Object, len(results))
	for i, r := range results {
		objs[i] = wire.NewObject().
			Set("type", wire.Str(string(r.Type))).
			Set("order_id", wire.Str(r.OrderID)).
			Set("status", wire.Str(string(r.Status)))
	}
	writeObject(c, 200, ver, wire.NewObject().Set("operations", wire.ObjList(objs)))
}

func bulkOpFromObject(oo wire.Object) engine.BulkOp {
	typ, _ := oo.GetString("type")
	token, _ := oo.GetString("participant_token")
	side, _ := oo.GetString("side")
	execType := oo.GetStringOr("execution_type", string(domain.GTC))
	return engine.BulkOp{
		Type:             engine.BulkOpType(typ),
		ParticipantToken: token,
		Side:             domain.Side(side),
		Price:            oo.GetIntOr("price", 0),
		Quantity:         oo.GetIntOr("quantity", 0),
		ExecutionType:    domain.ExecutionType(execType),
		OrderID:          oo.GetStringOr("order_id", ""),
		NewPrice:         oo.GetIntOr("new_price", 0),
		NewQuantity:      oo.GetIntOr("new_quantity", 0),
	}
}
