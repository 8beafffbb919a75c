package services

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"urna/internal/models"
)

// PresenceService flips roster presence and computes weighted quorum.
// Quorum counts municipalities, not heads: a municipality is present when at
// least one of its enrolled users is, and contributes its weight once.
type PresenceService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewPresenceService(db *gorm.DB, log *zap.Logger) *PresenceService {
	return &PresenceService{db: db, log: log}
}

// PresencaEvento reports the auto-confirmation outcome for one open event
// at login time.
type PresencaEvento struct {
	EventoID   uint   `json:"id"`
	Titulo     string `json:"titulo"`
	Confirmada bool   `json:"presencaConfirmada"`
	Automatica bool   `json:"automatica"`
	Mensagem   string `json:"mensagem"`
}

// Quorum is the weighted presence picture of one event.
type Quorum struct {
	PesoPresente float64 `json:"pesoPresente"`
	PesoTotal    float64 `json:"pesoTotal"`
	Percentual   float64 `json:"percentualPeso"`
	Minimo       float64 `json:"quorumMinimo"`
	Atingido     bool    `json:"quorumAtingido"`
}

// ConfirmPresence marks the (event, user) roster row present. Re-confirming
// is permitted and keeps the first timestamp meaningfully close anyway.
func (s *PresenceService) ConfirmPresence(eventoID, userID uint) (*Quorum, error) {
	now := time.Now()
	res := s.db.Model(&models.Participante{}).
		Where("evento_id = ? AND user_id = ?", eventoID, userID).
		Updates(map[string]interface{}{"presente": true, "data_presenca": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, models.ErrNaoParticipante
	}
	return s.ComputeQuorum(eventoID)
}

// AutoConfirmOnLogin implements first-to-login-wins presence: for every open
// event where the user's municipality is enrolled, the logging-in user is
// marked present unless some participant of the municipality already is.
// The roster rows are locked so concurrent logins from the same municipality
// settle on exactly one automatic confirmation.
func (s *PresenceService) AutoConfirmOnLogin(userID, municipioID uint) ([]PresencaEvento, error) {
	var out []PresencaEvento

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var eventos []models.Evento
		err := tx.
			Where("status IN ?", []string{models.StatusRascunho, models.StatusAguardandoInicio, models.StatusAtivo}).
			Where("id IN (?)", tx.Model(&models.Participante{}).
				Select("participantes.evento_id").
				Joins("JOIN users ON users.id = participantes.user_id").
				Where("users.municipio_id = ?", municipioID)).
			Find(&eventos).Error
		if err != nil {
			return err
		}

		for _, evento := range eventos {
			var roster []models.Participante
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Preload("User").
				Joins("JOIN users ON users.id = participantes.user_id").
				Where("participantes.evento_id = ? AND users.municipio_id = ?", evento.ID, municipioID).
				Find(&roster).Error
			if err != nil {
				return err
			}

			confirmado := ""
			var mine *models.Participante
			for i := range roster {
				if roster[i].Presente && confirmado == "" && roster[i].User != nil {
					confirmado = roster[i].User.Nome
				}
				if roster[i].UserID == userID {
					mine = &roster[i]
				}
			}

			switch {
			case confirmado != "":
				out = append(out, PresencaEvento{
					EventoID:   evento.ID,
					Titulo:     evento.Titulo,
					Confirmada: true,
					Automatica: false,
					Mensagem:   "Presença já confirmada por: " + confirmado,
				})
			case mine != nil:
				now := time.Now()
				err := tx.Model(&models.Participante{}).
					Where("evento_id = ? AND user_id = ?", evento.ID, userID).
					Updates(map[string]interface{}{"presente": true, "data_presenca": now}).Error
				if err != nil {
					return err
				}
				out = append(out, PresencaEvento{
					EventoID:   evento.ID,
					Titulo:     evento.Titulo,
					Confirmada: true,
					Automatica: true,
					Mensagem:   "Você é o primeiro do município a confirmar presença",
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ComputeQuorum returns present and total weights deduplicated by
// municipality. An empty roster yields 0%, not an error.
func (s *PresenceService) ComputeQuorum(eventoID uint) (*Quorum, error) {
	var evento models.Evento
	if err := s.db.First(&evento, eventoID).Error; err != nil {
		return nil, eventoLookupErr(err)
	}

	var roster []models.Participante
	err := s.db.Preload("User.Municipio").Where("evento_id = ?", eventoID).Find(&roster).Error
	if err != nil {
		return nil, err
	}

	total := map[uint]float64{}
	present := map[uint]float64{}
	for _, p := range roster {
		if p.User == nil || p.User.MunicipioID == nil || p.User.Municipio == nil {
			continue
		}
		id := *p.User.MunicipioID
		total[id] = p.User.Municipio.Peso
		if p.Presente {
			present[id] = p.User.Municipio.Peso
		}
	}

	q := &Quorum{Minimo: evento.PesoMinimoQuorum}
	for _, peso := range total {
		q.PesoTotal += peso
	}
	for _, peso := range present {
		q.PesoPresente += peso
	}
	if q.PesoTotal > 0 {
		q.Percentual = round2(q.PesoPresente / q.PesoTotal * 100)
	}
	q.Atingido = q.Percentual >= q.Minimo
	return q, nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
