package services

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"urna/internal/config"
	"urna/internal/models"
	"urna/internal/utils"
)

// EventService owns the lifecycle state machine. Transitions are conditional
// updates (WHERE status = <from>) so a racing admin can never move an event
// backwards.
type EventService struct {
	db       *gorm.DB
	presence *PresenceService
	cfg      *config.Config
	log      *zap.Logger
}

func NewEventService(db *gorm.DB, presence *PresenceService, cfg *config.Config, log *zap.Logger) *EventService {
	return &EventService{db: db, presence: presence, cfg: cfg, log: log}
}

type CreateEventInput struct {
	Titulo           string    `json:"titulo"`
	Descricao        string    `json:"descricao"`
	TipoVotacao      string    `json:"tipo_votacao"`
	VotacaoMultipla  bool      `json:"votacao_multipla"`
	VotosMaximos     int       `json:"votos_maximos"`
	OpcoesVotacao    []string  `json:"opcoes_votacao"`
	DataInicio       time.Time `json:"data_inicio"`
	DataFim          time.Time `json:"data_fim"`
	PesoMinimoQuorum float64   `json:"peso_minimo_quorum"`
	Participantes    []uint    `json:"participantes"`
}

var (
	// Validation failures surfaced verbatim to the caller.
	ErrCamposObrigatorios  = errors.New("título, datas e tipo de votação são obrigatórios")
	ErrTipoVotacaoInvalido = errors.New("tipo de votação inválido. Use: APROVACAO, ALTERNATIVAS ou SIM_NAO")
	ErrAlternativasMinimas = errors.New("para votação por alternativas, forneça pelo menos 2 candidatos/opções")
	ErrPeriodoInvertido    = errors.New("data de fim deve ser posterior à data de início")
)

// Create persists a RASCUNHO event with its closed option set and enrolls
// participants per the configured selection policy.
func (s *EventService) Create(criadoPor uint, in CreateEventInput) (*models.Evento, error) {
	if in.Titulo == "" || in.DataInicio.IsZero() || in.DataFim.IsZero() || in.TipoVotacao == "" {
		return nil, ErrCamposObrigatorios
	}
	if !models.TipoVotacaoValido(in.TipoVotacao) {
		return nil, ErrTipoVotacaoInvalido
	}
	if in.TipoVotacao == models.VotacaoAlternativas && len(in.OpcoesVotacao) < 2 {
		return nil, ErrAlternativasMinimas
	}
	if !in.DataInicio.Before(in.DataFim) {
		return nil, ErrPeriodoInvertido
	}

	maxVotos := in.VotosMaximos
	if maxVotos < 1 {
		maxVotos = 1
	}
	quorum := in.PesoMinimoQuorum
	if quorum <= 0 {
		quorum = 60
	}

	evento := models.Evento{
		Titulo:           in.Titulo,
		Descricao:        in.Descricao,
		TipoVotacao:      in.TipoVotacao,
		VotacaoMultipla:  in.VotacaoMultipla,
		VotosMaximos:     maxVotos,
		OpcoesVotacao:    models.NewOptionSet(in.TipoVotacao, in.OpcoesVotacao).Encode(),
		DataInicio:       in.DataInicio,
		DataFim:          in.DataFim,
		PesoMinimoQuorum: quorum,
		Status:           models.StatusRascunho,
		CriadoPor:        criadoPor,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&evento).Error; err != nil {
			return err
		}
		ids := in.Participantes
		if s.cfg.ParticipantSelection == config.SelecaoTodosAtivos {
			var all []models.User
			if err := tx.Where("ativo = ? AND tipo <> ?", true, models.TipoAdmin).Find(&all).Error; err != nil {
				return err
			}
			ids = ids[:0]
			for _, u := range all {
				ids = append(ids, u.ID)
			}
		}
		return enroll(tx, evento.ID, ids)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("evento criado",
		zap.Uint("evento_id", evento.ID),
		zap.String("tipo", evento.TipoVotacao),
		zap.Int("participantes", len(in.Participantes)))
	return &evento, nil
}

// AddParticipants enrolls users on an existing event, skipping duplicates.
func (s *EventService) AddParticipants(eventoID uint, userIDs []uint) error {
	if _, err := s.byID(eventoID); err != nil {
		return err
	}
	return enroll(s.db, eventoID, userIDs)
}

func enroll(tx *gorm.DB, eventoID uint, userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]models.Participante, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, models.Participante{EventoID: eventoID, UserID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// Start declares a RASCUNHO event ready (AGUARDANDO_INICIO). Requires the
// clock to already be inside the event window.
func (s *EventService) Start(eventoID uint) error {
	evento, err := s.byID(eventoID)
	if err != nil {
		return err
	}
	switch evento.PeriodoStatus(time.Now()) {
	case models.PeriodoAntes:
		return models.ErrAntesPeriodo
	case models.PeriodoApos:
		return models.ErrAposPeriodo
	}

	res := s.db.Model(&models.Evento{}).
		Where("id = ? AND status = ?", eventoID, models.StatusRascunho).
		Update("status", models.StatusAguardandoInicio)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrStatusInvalido
	}
	return nil
}

// Release is the single gate that unlocks voting: inside the window, from
// AGUARDANDO_INICIO, and only when presence weight strictly exceeds the
// quorum bar of the configured policy.
func (s *EventService) Release(eventoID uint) error {
	evento, err := s.byID(eventoID)
	if err != nil {
		return err
	}
	if evento.PeriodoStatus(time.Now()) != models.PeriodoDentro {
		return models.ErrForaDoPeriodo
	}
	if evento.Status != models.StatusAguardandoInicio {
		return models.ErrStatusInvalido
	}

	quorum, err := s.presence.ComputeQuorum(eventoID)
	if err != nil {
		return err
	}
	bar := evento.PesoMinimoQuorum
	if s.cfg.QuorumComparison == config.QuorumMaioriaEstrita {
		bar = 50
	}
	if !(quorum.Percentual > bar) {
		s.log.Debug("liberação negada por quórum",
			zap.Uint("evento_id", eventoID),
			zap.Float64("percentual", quorum.Percentual),
			zap.Float64("minimo", bar))
		return models.ErrQuorumInsuficiente
	}

	res := s.db.Model(&models.Evento{}).
		Where("id = ? AND status = ?", eventoID, models.StatusAguardandoInicio).
		Update("status", models.StatusAtivo)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrStatusInvalido
	}
	s.log.Info("votação liberada", zap.Uint("evento_id", eventoID))
	return nil
}

// Close moves any non-closed event to ENCERRADO. No time or quorum check:
// administrators may close early or late. Closing twice is an error, never a
// regression.
func (s *EventService) Close(eventoID uint) error {
	if _, err := s.byID(eventoID); err != nil {
		return err
	}
	res := s.db.Model(&models.Evento{}).
		Where("id = ? AND status <> ?", eventoID, models.StatusEncerrado).
		Update("status", models.StatusEncerrado)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrStatusInvalido
	}
	return nil
}

// Delete removes an event still in RASCUNHO. Any later status is permanent.
func (s *EventService) Delete(eventoID uint) error {
	if _, err := s.byID(eventoID); err != nil {
		return err
	}
	res := s.db.Where("id = ? AND status = ?", eventoID, models.StatusRascunho).
		Delete(&models.Evento{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrStatusInvalido
	}
	// Roster rows go with the event.
	return s.db.Where("evento_id = ?", eventoID).Delete(&models.Participante{}).Error
}

// EventoDetalhe is the read model of one event: derived period status,
// decoded options, sanitized description and the sorted roster.
type EventoDetalhe struct {
	models.Evento
	PeriodoStatus string                `json:"periodo_status"`
	Opcoes        models.OptionSet      `json:"opcoes_votacao"`
	DescricaoHTML string                `json:"descricao_html"`
	Participantes []models.Participante `json:"participantes"`
}

func (s *EventService) Get(eventoID uint) (*EventoDetalhe, error) {
	evento, err := s.byID(eventoID)
	if err != nil {
		return nil, err
	}

	var roster []models.Participante
	err = s.db.Preload("User.Municipio").
		Joins("JOIN users ON users.id = participantes.user_id").
		Where("participantes.evento_id = ?", eventoID).
		Order("participantes.presente DESC, users.nome").
		Find(&roster).Error
	if err != nil {
		return nil, err
	}

	return &EventoDetalhe{
		Evento:        *evento,
		PeriodoStatus: evento.PeriodoStatus(time.Now()),
		Opcoes:        evento.Opcoes(),
		DescricaoHTML: utils.RenderMarkdown(evento.Descricao),
		Participantes: roster,
	}, nil
}

// EventoResumo is the list read model with the dashboard counters.
type EventoResumo struct {
	models.Evento
	PeriodoStatus      string  `json:"periodo_status"`
	CriadorNome        string  `json:"criador_nome"`
	TotalParticipantes int64   `json:"total_participantes"`
	TotalPresentes     int64   `json:"total_presentes"`
	PesoPresentes      float64 `json:"peso_presentes"`
	TotalVotos         int64   `json:"total_votos"`
}

// List returns every event, newest first, with per-event aggregates. Volume
// is bounded by the number of events, so the N+1 reads are acceptable.
func (s *EventService) List() ([]EventoResumo, error) {
	var eventos []models.Evento
	if err := s.db.Preload("Criador").Order("created_at DESC").Find(&eventos).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]EventoResumo, 0, len(eventos))
	for _, e := range eventos {
		resumo := EventoResumo{Evento: e, PeriodoStatus: e.PeriodoStatus(now)}
		if e.Criador != nil {
			resumo.CriadorNome = e.Criador.Nome
		}

		err := s.db.Model(&models.Participante{}).Where("evento_id = ?", e.ID).Count(&resumo.TotalParticipantes).Error
		if err != nil {
			return nil, err
		}
		err = s.db.Model(&models.Participante{}).Where("evento_id = ? AND presente = ?", e.ID, true).Count(&resumo.TotalPresentes).Error
		if err != nil {
			return nil, err
		}
		q, err := s.presence.ComputeQuorum(e.ID)
		if err != nil {
			return nil, err
		}
		resumo.PesoPresentes = q.PesoPresente
		err = s.db.Model(&models.Voto{}).Where("evento_id = ?", e.ID).Distinct("municipio_id").Count(&resumo.TotalVotos).Error
		if err != nil {
			return nil, err
		}

		out = append(out, resumo)
	}
	return out, nil
}

func (s *EventService) byID(eventoID uint) (*models.Evento, error) {
	var evento models.Evento
	if err := s.db.First(&evento, eventoID).Error; err != nil {
		return nil, eventoLookupErr(err)
	}
	return &evento, nil
}

func eventoLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrEventoNaoEncontrado
	}
	return err
}
