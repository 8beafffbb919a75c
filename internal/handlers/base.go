package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"urna/internal/models"
	"urna/internal/services"
)

// OK writes the success envelope with extra payload fields merged in.
func OK(c *gin.Context, message string, payload gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Fail maps a service error onto the HTTP reply. Unrecognized errors become
// an opaque 500; the real cause goes to the log, not to the client.
func Fail(c *gin.Context, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"success": false, "message": "Erro interno do servidor"})
		return
	}
	c.JSON(status, gin.H{"success": false, "message": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrCPFInvalido),
		errors.Is(err, models.ErrSenhaObrigatoria),
		errors.Is(err, models.ErrAntesPeriodo),
		errors.Is(err, models.ErrAposPeriodo),
		errors.Is(err, models.ErrForaDoPeriodo),
		errors.Is(err, models.ErrStatusInvalido),
		errors.Is(err, models.ErrQuorumInsuficiente),
		errors.Is(err, models.ErrOpcaoInvalida),
		errors.Is(err, models.ErrOpcaoExclusiva),
		errors.Is(err, models.ErrVotosExcedidos),
		errors.Is(err, services.ErrCamposObrigatorios),
		errors.Is(err, services.ErrTipoVotacaoInvalido),
		errors.Is(err, services.ErrAlternativasMinimas),
		errors.Is(err, services.ErrPeriodoInvertido),
		errors.Is(err, services.ErrNomePesoObrigatorios),
		errors.Is(err, services.ErrNomeTipoObrigatorios),
		errors.Is(err, services.ErrMunicipioObrigatorio),
		errors.Is(err, services.ErrNadaParaAtualizar):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrSenhaIncorreta),
		errors.Is(err, models.ErrSessaoInvalida):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrNaoParticipante),
		errors.Is(err, models.ErrPresencaNecessaria),
		errors.Is(err, models.ErrVotacaoNaoLiberada):
		return http.StatusForbidden
	case errors.Is(err, models.ErrEventoNaoEncontrado),
		errors.Is(err, models.ErrMunicipioNaoEncontrado),
		errors.Is(err, models.ErrUsuarioNaoEncontrado),
		errors.Is(err, models.ErrLoteNaoEncontrado):
		return http.StatusNotFound
	case errors.Is(err, models.ErrMunicipioJaVotou),
		errors.Is(err, models.ErrCPFJaCadastrado),
		errors.Is(err, models.ErrMunicipioEmUso):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// paramID parses the :id route parameter.
func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "ID inválido"})
		return 0, false
	}
	return uint(id), true
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}
