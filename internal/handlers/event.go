package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"urna/internal/config"
	"urna/internal/middleware"
	"urna/internal/services"
)

// EventHandler covers the event lifecycle, presence, live results and the
// report download.
type EventHandler struct {
	events   *services.EventService
	presence *services.PresenceService
	results  *services.ResultsService
	report   *services.ReportService
	cfg      *config.Config
	log      *zap.Logger
}

func NewEventHandler(
	events *services.EventService,
	presence *services.PresenceService,
	results *services.ResultsService,
	report *services.ReportService,
	cfg *config.Config,
	log *zap.Logger,
) *EventHandler {
	return &EventHandler{
		events:   events,
		presence: presence,
		results:  results,
		report:   report,
		cfg:      cfg,
		log:      log,
	}
}

func (h *EventHandler) Create(c *gin.Context) {
	var req services.CreateEventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}
	user := middleware.CurrentUser(c)
	evento, err := h.events.Create(user.ID, req)
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "Evento criado com sucesso", gin.H{"evento": evento})
}

func (h *EventHandler) List(c *gin.Context) {
	eventos, err := h.events.List()
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "", gin.H{"eventos": eventos})
}

func (h *EventHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	detalhe, err := h.events.Get(id)
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "", gin.H{"evento": detalhe})
}

type participantsRequest struct {
	Usuarios []uint `json:"usuarios"`
}

func (h *EventHandler) AddParticipants(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req participantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}
	if err := h.events.AddParticipants(id, req.Usuarios); err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "Participantes adicionados com sucesso", nil)
}

func (h *EventHandler) Start(c *gin.Context) {
	h.transition(c, h.events.Start, "Evento iniciado, aguardando quórum")
}

func (h *EventHandler) Release(c *gin.Context) {
	h.transition(c, h.events.Release, "Votação liberada")
}

func (h *EventHandler) Close(c *gin.Context) {
	h.transition(c, h.events.Close, "Evento encerrado")
}

func (h *EventHandler) Delete(c *gin.Context) {
	h.transition(c, h.events.Delete, "Evento deletado com sucesso")
}

func (h *EventHandler) transition(c *gin.Context, op func(uint) error, message string) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := op(id); err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, message, nil)
}

// ConfirmPresence flips the caller's roster flag and reports the quorum
// reached with it.
func (h *EventHandler) ConfirmPresence(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	quorum, err := h.presence.ConfirmPresence(id, user.ID)
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "Presença confirmada", gin.H{"quorum": quorum})
}

func (h *EventHandler) Quorum(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	quorum, err := h.presence.ComputeQuorum(id)
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "", gin.H{"quorum": quorum})
}

func (h *EventHandler) Results(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resultados, err := h.results.Compute(id)
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "", gin.H{"resultados": resultados})
}

// StreamResults pushes result snapshots over SSE until the client drops.
func (h *EventHandler) StreamResults(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	err := h.results.Stream(c.Request.Context(), id, h.cfg.StreamInterval, func(r *services.Resultados) error {
		c.SSEvent("resultados", r)
		c.Writer.Flush()
		return nil
	})
	if err != nil && c.Request.Context().Err() == nil {
		h.log.Error("stream de resultados interrompido", zap.Uint("evento_id", id), zap.Error(err))
	}
}

// ExportCSV downloads the flat voting report.
func (h *EventHandler) ExportCSV(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	filename, body, err := h.report.Build(id)
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
}
