package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"urna/internal/models"
)

// ResultsService tallies the vote ledger. Every read recomputes from the
// store; nothing is cached between requests.
type ResultsService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewResultsService(db *gorm.DB, log *zap.Logger) *ResultsService {
	return &ResultsService{db: db, log: log}
}

// OpcaoTally is one option's share of the vote, by municipality count and
// by weight.
type OpcaoTally struct {
	Quantidade           int     `json:"quantidade"`
	Peso                 float64 `json:"peso"`
	PercentualQuantidade float64 `json:"percentualQuantidade"`
	PercentualPeso       float64 `json:"percentualPeso"`
}

// MunicipioVotos is the per-municipality breakdown row: the ballot text in
// sequence order, joined with " | ".
type MunicipioVotos struct {
	Municipio       string    `json:"municipio"`
	Peso            float64   `json:"peso"`
	Votos           string    `json:"votos"`
	QuantidadeVotos int       `json:"quantidade_votos"`
	Votante         string    `json:"votante"`
	DataVoto        time.Time `json:"data_voto"`
}

type Totais struct {
	VotosRegistrados        int     `json:"votosRegistrados"`
	PesoTotal               float64 `json:"pesoTotal"`
	MunicipiosParticipantes int     `json:"municipiosParticipantes"`
	PercentualParticipacao  float64 `json:"percentualParticipacao"`
}

type Resultados struct {
	TipoVotacao       string                `json:"tipo_votacao"`
	VotacaoMultipla   bool                  `json:"votacao_multipla"`
	VotosMaximos      int                   `json:"votos_maximos"`
	Opcoes            models.OptionSet      `json:"opcoes"`
	Resultados        map[string]OpcaoTally `json:"resultados"`
	Totais            Totais                `json:"totais"`
	VotosPorMunicipio []MunicipioVotos      `json:"votosPorMunicipio"`
}

// Compute groups the ledger by option, counting distinct municipalities and
// summing their snapshotted weights. Zero-tally options stay in the map so
// every option of the closed set reports a percentage.
func (s *ResultsService) Compute(eventoID uint) (*Resultados, error) {
	var evento models.Evento
	if err := s.db.First(&evento, eventoID).Error; err != nil {
		return nil, eventoLookupErr(err)
	}

	var votos []models.Voto
	err := s.db.Preload("User").Preload("Municipio").
		Where("evento_id = ?", eventoID).
		Order("municipio_id, voto_numero").
		Find(&votos).Error
	if err != nil {
		return nil, err
	}

	opcoes := evento.Opcoes()
	out := &Resultados{
		TipoVotacao:     evento.TipoVotacao,
		VotacaoMultipla: evento.VotacaoMultipla,
		VotosMaximos:    evento.VotosMaximos,
		Opcoes:          opcoes,
		Resultados:      make(map[string]OpcaoTally, len(opcoes)),
	}

	// Per-option distinct municipalities and weight. A municipality counts
	// once per option even on multi-select ballots; its weight counts once
	// per option it touched.
	type key struct {
		opcao       string
		municipioID uint
	}
	seen := map[key]bool{}
	counts := map[string]int{}
	weights := map[string]float64{}
	totalMunicipios := 0
	pesoTotal := 0.0
	for _, v := range votos {
		k := key{v.Voto, v.MunicipioID}
		if seen[k] {
			continue
		}
		seen[k] = true
		counts[v.Voto]++
		weights[v.Voto] += v.Peso
		totalMunicipios++
		pesoTotal += v.Peso
	}

	for _, opcao := range opcoes {
		tally := OpcaoTally{Quantidade: counts[opcao], Peso: round2(weights[opcao])}
		if totalMunicipios > 0 {
			tally.PercentualQuantidade = round2(float64(tally.Quantidade) / float64(totalMunicipios) * 100)
		}
		if pesoTotal > 0 {
			tally.PercentualPeso = round2(weights[opcao] / pesoTotal * 100)
		}
		out.Resultados[opcao] = tally
	}

	// Per-municipality breakdown.
	porMunicipio := map[uint]*MunicipioVotos{}
	var ordem []uint
	for _, v := range votos {
		row, ok := porMunicipio[v.MunicipioID]
		if !ok {
			row = &MunicipioVotos{}
			if v.Municipio != nil {
				row.Municipio = v.Municipio.Nome
				row.Peso = v.Municipio.Peso
			}
			if v.User != nil {
				row.Votante = v.User.Nome
			}
			porMunicipio[v.MunicipioID] = row
			ordem = append(ordem, v.MunicipioID)
		}
		if row.Votos != "" {
			row.Votos += " | "
		}
		row.Votos += v.Voto
		row.QuantidadeVotos++
		if v.DataHora.After(row.DataVoto) {
			row.DataVoto = v.DataHora
		}
	}
	for _, id := range ordem {
		out.VotosPorMunicipio = append(out.VotosPorMunicipio, *porMunicipio[id])
	}

	// Participation: voted municipalities over enrolled municipalities.
	var enrolled int64
	s.db.Model(&models.Participante{}).
		Joins("JOIN users ON users.id = participantes.user_id").
		Where("participantes.evento_id = ? AND users.municipio_id IS NOT NULL", eventoID).
		Distinct("users.municipio_id").
		Count(&enrolled)

	out.Totais = Totais{
		VotosRegistrados:        len(porMunicipio),
		PesoTotal:               round2(pesoTotal),
		MunicipiosParticipantes: int(enrolled),
	}
	if enrolled > 0 {
		out.Totais.PercentualParticipacao = round2(float64(len(porMunicipio)) / float64(enrolled) * 100)
	}
	return out, nil
}

// Stream pushes a snapshot immediately and then on every tick until the
// context is cancelled or send fails. Poll-and-push, not event driven.
func (s *ResultsService) Stream(ctx context.Context, eventoID uint, interval time.Duration, send func(*Resultados) error) error {
	emit := func() error {
		res, err := s.Compute(eventoID)
		if err != nil {
			s.log.Error("falha ao computar resultados", zap.Uint("evento_id", eventoID), zap.Error(err))
			return nil // transient: keep the subscription alive
		}
		return send(res)
	}

	if err := emit(); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := emit(); err != nil {
				return err
			}
		}
	}
}
