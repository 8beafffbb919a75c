package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"urna/internal/services"
)

// AdminHandler exposes the municipality and user registry.
type AdminHandler struct {
	registry *services.RegistryService
	log      *zap.Logger
}

func NewAdminHandler(registry *services.RegistryService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{registry: registry, log: log}
}

// ---- Municipalities ----

type municipioRequest struct {
	Nome string  `json:"nome"`
	Peso float64 `json:"peso"`
}

func (h *AdminHandler) CreateMunicipio(c *gin.Context) {
	var req municipioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}
	m, err := h.registry.CreateMunicipio(req.Nome, req.Peso)
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "Município criado com sucesso", gin.H{"municipio": m})
}

func (h *AdminHandler) ListMunicipios(c *gin.Context) {
	municipios, err := h.registry.ListMunicipios()
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "", gin.H{"municipios": municipios})
}

type municipioUpdateRequest struct {
	Nome *string  `json:"nome"`
	Peso *float64 `json:"peso"`
}

func (h *AdminHandler) UpdateMunicipio(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req municipioUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}
	if err := h.registry.UpdateMunicipio(id, req.Nome, req.Peso); err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "Município atualizado com sucesso", nil)
}

func (h *AdminHandler) DeleteMunicipio(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteMunicipio(id); err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "Município deletado com sucesso", nil)
}

// ---- Users ----

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}
	user, err := h.registry.CreateUser(req)
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "Usuário criado com sucesso", gin.H{"usuario": user})
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.registry.ListUsers()
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "", gin.H{"usuarios": users})
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req services.UpdateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}
	if err := h.registry.UpdateUser(id, req); err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "Usuário atualizado com sucesso", nil)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	nome, votos, err := h.registry.DeleteUser(id)
	if err != nil {
		Fail(c, h.log, err)
		return
	}
	OK(c, "Usuário deletado com sucesso", gin.H{
		"nome":            nome,
		"votos_removidos": votos,
	})
}
