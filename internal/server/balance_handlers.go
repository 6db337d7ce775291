package server

import (
	"github.com/gin-gonic/gin"

	"github.com/faytonn/clobx/pkg/wire"
)

func (s *Server) registerBalanceRoutes() {
	s.router.GET("/balance", s.handleBalance)
	s.router.PUT("/collateral/:user", s.handleSetCollateral)
}

func (s *Server) handleBalance(c *gin.Context) {
	bal, err := s.eng.Balance(bearerToken(c))
	if err != nil {
		writeError(c, wire.V2, err)
		return
	}
	writeObject(c, 200, wire.V2, wire.NewObject().
		Set("balance", wire.Int(bal.Balance)).
		Set("potential_balance", wire.Int(bal.PotentialBalance)).
		Set("collateral", wire.Int(bal.CollateralLimit)))
}

func (s *Server) handleSetCollateral(c *gin.Context) {
	body, ver, rerr := readBody(c)
	if rerr != nil {
		writeError(c, wire.V2, rerr)
		return
	}
	limit, lerr := body.GetInt("collateral")
	if lerr != nil {
		writeError(c, ver, badRequest("collateral is required"))
		return
	}
	if err := s.eng.SetCollateral(bearerToken(c), c.Param("user"), limit); err != nil {
		writeError(c, ver, err)
		return
	}
	writeEmpty(c, 204)
}
