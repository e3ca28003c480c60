package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"userAuthService/internal/auth"
	"userAuthService/internal/service"
)

// LivenessMessage is served at GET /.
const LivenessMessage = "Web API is running"

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Handlers holds the HTTP endpoints.
type Handlers struct {
	svc *service.AuthService
}

func NewHandlers(svc *service.AuthService) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) root(c *gin.Context) {
	c.String(http.StatusOK, LivenessMessage)
}

func (h *Handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}
	err := h.svc.Register(c.Request.Context(), service.RegisterRequest{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "registered"})
}

func (h *Handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}
	tok, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: tok})
}

func (h *Handlers) me(c *gin.Context) {
	p, _ := auth.FromContext(c.Request.Context())
	me, err := h.svc.CurrentUser(p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, me)
}

func (h *Handlers) listUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// boom exercises the error boundary.
func (h *Handlers) boom(c *gin.Context) {
	panic("simulated failure")
}
