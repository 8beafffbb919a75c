package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"urna/internal/middleware"
	"urna/internal/models"
	"urna/internal/services"
)

type AuthHandler struct {
	auth *services.AuthService
	log  *zap.Logger
}

func NewAuthHandler(auth *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

type loginRequest struct {
	CPF   string `json:"cpf"`
	Senha string `json:"senha"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}

	result, err := h.auth.Login(req.CPF, req.Senha, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		// Who exists is not leaked with a distinct status.
		if errors.Is(err, models.ErrUsuarioNaoEncontrado) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error()})
			return
		}
		Fail(c, h.log, err)
		return
	}

	OK(c, "Login realizado com sucesso", gin.H{
		"token":     result.Token,
		"usuario":   result.User,
		"presencas": result.Presencas,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetHeader(middleware.SessionHeader)
	if err := h.auth.Logout(token); err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "Logout realizado com sucesso", nil)
}

// Me returns the identity bound to the presented session token.
func (h *AuthHandler) Me(c *gin.Context) {
	OK(c, "", gin.H{"usuario": middleware.CurrentUser(c)})
}
