package services

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"urna/internal/models"
)

// VoteService registers municipal ballots. The whole registration runs in
// one transaction holding row locks on the event and on any existing votes
// of the caller's municipality, so two representatives racing each other
// resolve to exactly one committed ballot.
type VoteService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewVoteService(db *gorm.DB, log *zap.Logger) *VoteService {
	return &VoteService{db: db, log: log}
}

// Register validates and persists the caller's ballot. Selections are
// checked against the event's closed option set; a failure at any step
// rolls the whole ballot back.
func (s *VoteService) Register(eventoID, userID uint, selecoes []string) error {
	if len(selecoes) == 0 {
		return models.ErrOpcaoInvalida
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Serialize voters against the same event.
		var evento models.Evento
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&evento, eventoID).Error
		if err != nil {
			return eventoLookupErr(err)
		}

		if evento.PeriodoStatus(time.Now()) != models.PeriodoDentro {
			return models.ErrForaDoPeriodo
		}
		if evento.Status != models.StatusAtivo {
			return models.ErrVotacaoNaoLiberada
		}

		opcoes := evento.Opcoes()
		for _, sel := range selecoes {
			if !opcoes.Contains(sel) {
				return models.ErrOpcaoInvalida
			}
		}
		if len(selecoes) > evento.MaxSelecoes() {
			return models.ErrVotosExcedidos
		}
		if evento.VotacaoMultipla && models.MixesSentinel(selecoes) {
			return models.ErrOpcaoExclusiva
		}

		var user models.User
		if err := tx.Preload("Municipio").First(&user, userID).Error; err != nil {
			return err
		}
		if user.MunicipioID == nil || user.Municipio == nil {
			return models.ErrNaoParticipante
		}

		var participante models.Participante
		err = tx.Where("evento_id = ? AND user_id = ?", eventoID, userID).First(&participante).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ErrNaoParticipante
		}
		if err != nil {
			return err
		}
		if !participante.Presente {
			return models.ErrPresencaNecessaria
		}

		// The linchpin: lock and check any existing votes of the
		// municipality, not just of this user.
		var existentes []models.Voto
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("User").
			Where("evento_id = ? AND municipio_id = ?", eventoID, *user.MunicipioID).
			Find(&existentes).Error
		if err != nil {
			return err
		}
		if len(existentes) > 0 {
			votante := ""
			if existentes[0].User != nil {
				votante = existentes[0].User.Nome
			}
			return &models.AlreadyVotedError{Votante: votante}
		}

		now := time.Now()
		for i, sel := range selecoes {
			voto := models.Voto{
				EventoID:    eventoID,
				UserID:      userID,
				MunicipioID: *user.MunicipioID,
				Voto:        sel,
				VotoNumero:  i + 1,
				Peso:        user.Municipio.Peso,
				DataHora:    now,
			}
			if err := tx.Create(&voto).Error; err != nil {
				// Race that slipped past the explicit check: the unique
				// index on (evento, municipio, numero) is the backstop.
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return &models.AlreadyVotedError{Votante: ""}
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("voto registrado",
		zap.Uint("evento_id", eventoID),
		zap.Uint("usuario_id", userID),
		zap.Int("selecoes", len(selecoes)))
	return nil
}

// VotoStatus tells a representative whether their municipality already
// voted, and by whom.
type VotoStatus struct {
	JaVotou         bool   `json:"jaVotou"`
	Votante         string `json:"votante,omitempty"`
	QuantidadeVotos int    `json:"quantidadeVotos"`
	VotouOutro      bool   `json:"votouOutroUsuario"`
	MeuVoto         bool   `json:"meuVoto"`
}

func (s *VoteService) CheckVoted(eventoID, userID uint) (*VotoStatus, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, err
	}
	if user.MunicipioID == nil {
		return &VotoStatus{}, nil
	}

	var votos []models.Voto
	err := s.db.Preload("User").
		Where("evento_id = ? AND municipio_id = ?", eventoID, *user.MunicipioID).
		Order("voto_numero").
		Find(&votos).Error
	if err != nil {
		return nil, err
	}
	if len(votos) == 0 {
		return &VotoStatus{}, nil
	}

	status := &VotoStatus{
		JaVotou:         true,
		QuantidadeVotos: len(votos),
		VotouOutro:      votos[0].UserID != userID,
		MeuVoto:         votos[0].UserID == userID,
	}
	if votos[0].User != nil {
		status.Votante = votos[0].User.Nome
	}
	return status, nil
}
