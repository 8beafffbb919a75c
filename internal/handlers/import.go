package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"urna/internal/services"
)

// ImportHandler drives the two-phase bulk import. Rows arrive already
// column-mapped; spreadsheet parsing is the caller's problem.
type ImportHandler struct {
	importer *services.ImporterService
	log      *zap.Logger
}

func NewImportHandler(importer *services.ImporterService, log *zap.Logger) *ImportHandler {
	return &ImportHandler{importer: importer, log: log}
}

type previewRequest struct {
	Linhas []services.ImportRow `json:"linhas"`
}

func (h *ImportHandler) Preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}
	if len(req.Linhas) == 0 {
		badRequest(c, "Nenhuma linha foi enviada")
		return
	}
	preview, err := h.importer.Preview(req.Linhas)
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "", gin.H{"preview": preview})
}

type commitRequest struct {
	LoteID string `json:"lote_id"`
}

func (h *ImportHandler) Commit(c *gin.Context) {
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.LoteID == "" {
		badRequest(c, "Informe o lote a importar")
		return
	}
	result, err := h.importer.Commit(req.LoteID)
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "Importação concluída com sucesso", gin.H{"resultado": result})
}
