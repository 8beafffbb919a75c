package models

import (
	"time"
)

// Voting types.
const (
	VotacaoAprovacao    = "APROVACAO"
	VotacaoAlternativas = "ALTERNATIVAS"
	VotacaoSimNao       = "SIM_NAO"
)

func TipoVotacaoValido(tipo string) bool {
	switch tipo {
	case VotacaoAprovacao, VotacaoAlternativas, VotacaoSimNao:
		return true
	}
	return false
}

// Event status. Transitions only move forward:
// RASCUNHO -> AGUARDANDO_INICIO -> ATIVO -> ENCERRADO.
const (
	StatusRascunho         = "RASCUNHO"
	StatusAguardandoInicio = "AGUARDANDO_INICIO"
	StatusAtivo            = "ATIVO"
	StatusEncerrado        = "ENCERRADO"
)

// Derived position of "now" relative to [DataInicio, DataFim). Never stored.
const (
	PeriodoAntes  = "ANTES_PERIODO"
	PeriodoDentro = "DENTRO_PERIODO"
	PeriodoApos   = "APOS_PERIODO"
)

type Evento struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Titulo           string    `gorm:"size:500;not null" json:"titulo"`
	Descricao        string    `gorm:"type:text" json:"descricao"`
	TipoVotacao      string    `gorm:"size:20;not null;index" json:"tipo_votacao"`
	VotacaoMultipla  bool      `gorm:"not null;default:false" json:"votacao_multipla"`
	VotosMaximos     int       `gorm:"not null;default:1" json:"votos_maximos"`
	OpcoesVotacao    string    `gorm:"type:text" json:"-"` // canonical JSON array, see OptionSet
	DataInicio       time.Time `gorm:"not null;index" json:"data_inicio"`
	DataFim          time.Time `gorm:"not null" json:"data_fim"`
	PesoMinimoQuorum float64   `gorm:"not null;default:60" json:"peso_minimo_quorum"`
	Status           string    `gorm:"size:20;not null;default:'RASCUNHO';index" json:"status"`
	CriadoPor        uint      `gorm:"not null" json:"criado_por"`
	Criador          *User     `gorm:"foreignKey:CriadoPor" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PeriodoStatus classifies now against the event window. The end bound is
// exclusive: an event is votable while DataInicio <= now < DataFim.
func (e *Evento) PeriodoStatus(now time.Time) string {
	if now.Before(e.DataInicio) {
		return PeriodoAntes
	}
	if !now.Before(e.DataFim) {
		return PeriodoApos
	}
	return PeriodoDentro
}

// Opcoes returns the event's closed option set, falling back to the voting
// type's default set when the stored column cannot be parsed.
func (e *Evento) Opcoes() OptionSet {
	return ParseOptionSet(e.OpcoesVotacao, e.TipoVotacao)
}

// MaxSelecoes is how many ballot entries one municipality may submit.
func (e *Evento) MaxSelecoes() int {
	if e.VotacaoMultipla && e.VotosMaximos > 1 {
		return e.VotosMaximos
	}
	return 1
}
