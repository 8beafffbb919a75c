package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"urna/internal/models"
	"urna/internal/utils"
)

// batchTTL bounds how long a previewed batch stays committable.
const batchTTL = 30 * time.Minute

// ImportRow is one row of the bulk dataset. File parsing happens outside the
// core; by the time a row gets here it is already column-mapped.
type ImportRow struct {
	CPF       string  `json:"cpf"`
	Nome      string  `json:"nome"`
	Tipo      string  `json:"tipo"`
	Municipio string  `json:"municipio"`
	Peso      float64 `json:"peso"`
	Ativo     *bool   `json:"ativo"`
}

// RowError points at the offending spreadsheet line (header is line 1).
type RowError struct {
	Linha    int    `json:"linha"`
	Campo    string `json:"campo"`
	Mensagem string `json:"mensagem"`
}

type stagedUser struct {
	Linha     int     `json:"linha"`
	CPF       string  `json:"cpf"`
	Nome      string  `json:"nome"`
	Tipo      string  `json:"tipo"`
	Municipio string  `json:"municipio"`
	Peso      float64 `json:"peso"`
	Ativo     bool    `json:"ativo"`
}

type stagedMunicipio struct {
	Nome string  `json:"nome"`
	Peso float64 `json:"peso"`
}

// ImportPreview is what the administrator reviews before confirming.
type ImportPreview struct {
	LoteID          string            `json:"lote_id"`
	TotalLinhas     int               `json:"totalLinhas"`
	UsuariosValidos int               `json:"usuariosValidos"`
	Erros           int               `json:"erros"`
	MunicipiosNovos []stagedMunicipio `json:"municipiosNovos"`
	Usuarios        []stagedUser      `json:"usuarios"`
	TodosErros      []RowError        `json:"todosErros"`
}

// ImportResult summarizes a committed batch. Row failures are collected, not
// fatal; each upsert is individually transactional.
type ImportResult struct {
	MunicipiosCriados   int        `json:"municipiosCriados"`
	UsuariosCriados     int        `json:"usuariosCriados"`
	UsuariosAtualizados int        `json:"usuariosAtualizados"`
	Erros               int        `json:"erros"`
	DetalhesErros       []RowError `json:"detalhesErros"`
}

type stagedBatch struct {
	usuarios   []stagedUser
	municipios []stagedMunicipio
	createdAt  time.Time
}

// ImporterService runs the two-phase bulk import: Preview validates and
// stages rows under a batch id, Commit applies a staged batch through the
// registry upserts.
type ImporterService struct {
	registry *RegistryService
	log      *zap.Logger

	mu      sync.Mutex
	batches map[string]stagedBatch
}

func NewImporterService(registry *RegistryService, log *zap.Logger) *ImporterService {
	return &ImporterService{
		registry: registry,
		log:      log,
		batches:  map[string]stagedBatch{},
	}
}

// Preview validates each row and stages the valid ones. Invalid rows are
// reported with their line number and skipped; they never block the rest.
func (s *ImporterService) Preview(rows []ImportRow) (*ImportPreview, error) {
	known, err := s.registry.ListMunicipios()
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(known))
	for _, m := range known {
		existing[strings.ToUpper(m.Nome)] = true
	}

	var (
		erros      []RowError
		usuarios   []stagedUser
		municipios []stagedMunicipio
		novos      = map[string]bool{}
		seenCPF    = map[string]int{}
	)

	for i, row := range rows {
		linha := i + 2 // line 1 is the header

		if row.CPF == "" {
			erros = append(erros, RowError{linha, "cpf", "CPF é obrigatório"})
			continue
		}
		if row.Nome == "" {
			erros = append(erros, RowError{linha, "nome", "Nome é obrigatório"})
			continue
		}
		if row.Tipo == "" {
			erros = append(erros, RowError{linha, "tipo", "Tipo é obrigatório (PREFEITO ou REPRESENTANTE)"})
			continue
		}
		if row.Municipio == "" {
			erros = append(erros, RowError{linha, "municipio", "Município é obrigatório"})
			continue
		}

		cpf := utils.NormalizeCPF(row.CPF)
		if !utils.ValidateCPF(cpf) {
			erros = append(erros, RowError{linha, "cpf", fmt.Sprintf("CPF inválido: %s", row.CPF)})
			continue
		}

		tipo := strings.ToUpper(strings.TrimSpace(row.Tipo))
		if tipo != models.TipoPrefeito && tipo != models.TipoRepresentante {
			erros = append(erros, RowError{linha, "tipo",
				fmt.Sprintf("Tipo inválido: %s. Use PREFEITO ou REPRESENTANTE", row.Tipo)})
			continue
		}

		if prev, ok := seenCPF[cpf]; ok {
			erros = append(erros, RowError{linha, "cpf",
				fmt.Sprintf("CPF duplicado na planilha (linha %d)", prev)})
			continue
		}
		seenCPF[cpf] = linha

		nome := strings.TrimSpace(row.Municipio)
		upper := strings.ToUpper(nome)
		if !existing[upper] && !novos[upper] {
			novos[upper] = true
			municipios = append(municipios, stagedMunicipio{Nome: nome, Peso: row.Peso})
		}

		ativo := true
		if row.Ativo != nil {
			ativo = *row.Ativo
		}
		usuarios = append(usuarios, stagedUser{
			Linha:     linha,
			CPF:       cpf,
			Nome:      strings.TrimSpace(row.Nome),
			Tipo:      tipo,
			Municipio: nome,
			Peso:      row.Peso,
			Ativo:     ativo,
		})
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.expireLocked(time.Now())
	s.batches[id] = stagedBatch{usuarios: usuarios, municipios: municipios, createdAt: time.Now()}
	s.mu.Unlock()

	s.log.Info("lote de importação validado",
		zap.String("lote_id", id),
		zap.Int("linhas", len(rows)),
		zap.Int("validos", len(usuarios)),
		zap.Int("erros", len(erros)))

	return &ImportPreview{
		LoteID:          id,
		TotalLinhas:     len(rows),
		UsuariosValidos: len(usuarios),
		Erros:           len(erros),
		MunicipiosNovos: municipios,
		Usuarios:        usuarios,
		TodosErros:      erros,
	}, nil
}

// Commit applies a staged batch. The batch is consumed whether or not every
// row succeeds; the caller re-previews to retry failures.
func (s *ImporterService) Commit(loteID string) (*ImportResult, error) {
	s.mu.Lock()
	batch, ok := s.batches[loteID]
	if ok {
		delete(s.batches, loteID)
	}
	s.mu.Unlock()
	if !ok || time.Since(batch.createdAt) > batchTTL {
		return nil, models.ErrLoteNaoEncontrado
	}

	var result ImportResult

	municipioIDs := map[string]uint{}
	for _, m := range batch.municipios {
		created, err := s.registry.UpsertMunicipio(m.Nome, m.Peso)
		if err != nil {
			result.DetalhesErros = append(result.DetalhesErros,
				RowError{0, "municipio", fmt.Sprintf("%s: %v", m.Nome, err)})
			continue
		}
		municipioIDs[strings.ToUpper(m.Nome)] = created.ID
		result.MunicipiosCriados++
	}

	for _, u := range batch.usuarios {
		id, ok := municipioIDs[strings.ToUpper(u.Municipio)]
		if !ok {
			m, err := s.registry.UpsertMunicipio(u.Municipio, u.Peso)
			if err != nil {
				result.DetalhesErros = append(result.DetalhesErros,
					RowError{u.Linha, "municipio", fmt.Sprintf("Município não encontrado: %s", u.Municipio)})
				continue
			}
			id = m.ID
			municipioIDs[strings.ToUpper(u.Municipio)] = id
		}

		created, err := s.registry.UpsertUser(u.CPF, u.Nome, u.Tipo, id, u.Ativo)
		if err != nil {
			result.DetalhesErros = append(result.DetalhesErros,
				RowError{u.Linha, "cpf", fmt.Sprintf("%s: %v", u.CPF, err)})
			continue
		}
		if created {
			result.UsuariosCriados++
		} else {
			result.UsuariosAtualizados++
		}
	}

	result.Erros = len(result.DetalhesErros)
	s.log.Info("importação concluída",
		zap.String("lote_id", loteID),
		zap.Int("municipios_criados", result.MunicipiosCriados),
		zap.Int("usuarios_criados", result.UsuariosCriados),
		zap.Int("usuarios_atualizados", result.UsuariosAtualizados),
		zap.Int("erros", result.Erros))
	return &result, nil
}

func (s *ImporterService) expireLocked(now time.Time) {
	for id, b := range s.batches {
		if now.Sub(b.createdAt) > batchTTL {
			delete(s.batches, id)
		}
	}
}
