package server

import "github.com/gin-gonic/gin"

func (s *Server) registerHealth() {
	s.router.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})
}
