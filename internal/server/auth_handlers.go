package server

import (
	"github.com/gin-gonic/gin"

	"github.com/faytonn/clobx/pkg/wire"
)

func (s *Server) registerAuthRoutes() {
	s.router.POST("/register", s.handleRegister)
	s.router.POST("/login", s.handleLogin)
	s.router.PUT("/user/password", s.handleChangePassword)
	s.router.POST("/dna-submit", s.handleDNASubmit)
	s.router.POST("/dna-login", s.handleDNALogin)
}

func (s *Server) handleRegister(c *gin.Context) {
	body, ver, rerr := readBody(c)
	if rerr != nil {
		writeError(c, wire.V2, rerr)
		return
	}
	username, uerr := body.GetString("username")
	password, perr := body.GetString("password")
	if uerr != nil || perr != nil {
		writeError(c, ver, badRequest("username and password are required"))
		return
	}
	if err := s.eng.Register(username, password); err != nil {
		writeError(c, ver, err)
		return
	}
	writeEmpty(c, 204)
}

func (s *Server) handleLogin(c *gin.Context) {
	body, ver, rerr := readBody(c)
	if rerr != nil {
		writeError(c, wire.V2, rerr)
		return
	}
	username, uerr := body.GetString("username")
	password, perr := body.GetString("password")
	if uerr != nil || perr != nil {
		writeError(c, ver, badRequest("username and password are required"))
		return
	}
	token, err := s.eng.Login(username, password)
	if err != nil {
		writeError(c, ver, err)
		return
	}
	writeObject(c, 200, ver, wire.NewObject().Set("token", wire.Str(token)))
}

func (s *Server) handleChangePassword(c *gin.Context) {
	body, ver, rerr := readBody(c)
	if rerr != nil {
		writeError(c, wire.V2, rerr)
		return
	}
	username, _ := body.GetString("username")
	oldPassword, _ := body.GetString("old_password")
	newPassword, _ := body.GetString("new_password")
	if username == "" || oldPassword == "" || newPassword == "" {
		writeError(c, ver, badRequest("username, old_password, and new_password are required"))
		return
	}
	if err := s.eng.ChangePassword(username, oldPassword, newPassword); err != nil {
		writeError(c, ver, err)
		return
	}
	writeEmpty(c, 204)
}

func (s *Server) handleDNASubmit(c *gin.Context) {
	body, ver, rerr := readBody(c)
	if rerr != nil {
		writeError(c, wire.V2, rerr)
		return
	}
	username, _ := body.GetString("username")
	password, _ := body.GetString("password")
	sample, _ := body.GetString("dna_sample")
	if err := s.eng.DNASubmit(username, password, sample); err != nil {
		writeError(c, ver, err)
		return
	}
	writeEmpty(c, 204)
}

func (s *Server) handleDNALogin(c *gin.Context) {
	body, ver, rerr := readBody(c)
	if rerr != nil {
		writeError(c, wire.V2, rerr)
		return
	}
	username, _ := body.GetString("username")
	sample, _ := body.GetString("dna_sample")
	token, err := s.eng.DNALogin(username, sample)
	if err != nil {
		writeError(c, ver, err)
		return
	}
	writeObject(c, 200, ver, wire.NewObject().Set("token", wire.Str(token)))
}
