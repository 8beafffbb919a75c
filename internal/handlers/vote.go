package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"urna/internal/middleware"
	"urna/internal/services"
)

type VoteHandler struct {
	votes *services.VoteService
	log   *zap.Logger
}

func NewVoteHandler(votes *services.VoteService, log *zap.Logger) *VoteHandler {
	return &VoteHandler{votes: votes, log: log}
}

type voteRequest struct {
	Votos []string `json:"votos"`
}

// Register accepts the caller's ballot, one entry per selected option.
func (h *VoteHandler) Register(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}
	user := middleware.CurrentUser(c)
	if err := h.votes.Register(id, user.ID, req.Votos); err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "Voto registrado com sucesso", gin.H{"quantidade": len(req.Votos)})
}

// Check tells the caller whether their municipality already voted.
func (h *VoteHandler) Check(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	status, err := h.votes.CheckVoted(id, user.ID)
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "", gin.H{"status": status})
}
