package services

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"urna/internal/models"
	"urna/internal/utils"
)

// RegistryService is the admin CRUD over municipalities and users, and the
// two upsert entry points the bulk importer is allowed to call.
type RegistryService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewRegistryService(db *gorm.DB, log *zap.Logger) *RegistryService {
	return &RegistryService{db: db, log: log}
}

var (
	ErrNomePesoObrigatorios = errors.New("nome e peso são obrigatórios")
	ErrNomeTipoObrigatorios = errors.New("nome e tipo são obrigatórios")
	ErrMunicipioObrigatorio = errors.New("município é obrigatório para usuários não administradores")
	ErrNadaParaAtualizar    = errors.New("nenhum campo para atualizar")
)

// ---- Municipalities ----

func (s *RegistryService) CreateMunicipio(nome string, peso float64) (*models.Municipio, error) {
	if nome == "" || peso <= 0 {
		return nil, ErrNomePesoObrigatorios
	}
	m := models.Municipio{Nome: nome, Peso: peso}
	if err := s.db.Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *RegistryService) ListMunicipios() ([]models.Municipio, error) {
	var out []models.Municipio
	err := s.db.Order("nome").Find(&out).Error
	return out, err
}

func (s *RegistryService) UpdateMunicipio(id uint, nome *string, peso *float64) error {
	updates := map[string]interface{}{}
	if nome != nil && *nome != "" {
		updates["nome"] = *nome
	}
	if peso != nil {
		updates["peso"] = *peso
	}
	if len(updates) == 0 {
		return ErrNadaParaAtualizar
	}
	res := s.db.Model(&models.Municipio{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrMunicipioNaoEncontrado
	}
	return nil
}

// DeleteMunicipio refuses while any user still references the municipality.
func (s *RegistryService) DeleteMunicipio(id uint) error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("municipio_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return models.ErrMunicipioEmUso
	}
	res := s.db.Delete(&models.Municipio{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrMunicipioNaoEncontrado
	}
	return nil
}

// ---- Users ----

type CreateUserInput struct {
	CPF         string `json:"cpf"`
	Nome        string `json:"nome"`
	Senha       string `json:"senha"`
	Tipo        string `json:"tipo"`
	MunicipioID *uint  `json:"municipio_id"`
}

func (s *RegistryService) CreateUser(in CreateUserInput) (*models.User, error) {
	cpf := utils.NormalizeCPF(in.CPF)
	if !utils.ValidateCPF(cpf) {
		return nil, models.ErrCPFInvalido
	}
	if in.Nome == "" || !models.TipoValido(in.Tipo) {
		return nil, ErrNomeTipoObrigatorios
	}
	if in.Tipo == models.TipoAdmin && in.Senha == "" {
		return nil, models.ErrSenhaObrigatoria
	}
	if in.Tipo != models.TipoAdmin && in.MunicipioID == nil {
		return nil, ErrMunicipioObrigatorio
	}

	var existing int64
	if err := s.db.Model(&models.User{}).Where("cpf = ?", cpf).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, models.ErrCPFJaCadastrado
	}

	user := models.User{
		CPF:         cpf,
		Nome:        in.Nome,
		Tipo:        in.Tipo,
		MunicipioID: in.MunicipioID,
		Ativo:       true,
	}
	if in.Tipo == models.TipoAdmin {
		hash, err := utils.HashPassword(in.Senha)
		if err != nil {
			return nil, err
		}
		user.Senha = &hash
		user.MunicipioID = nil
	}
	if err := s.db.Create(&user).Error; err != nil {
		// Concurrent create that slipped past the count: the unique index
		// on cpf is the backstop.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.ErrCPFJaCadastrado
		}
		return nil, err
	}
	return &user, nil
}

func (s *RegistryService) ListUsers() ([]models.User, error) {
	var out []models.User
	err := s.db.Preload("Municipio").Order("nome").Find(&out).Error
	return out, err
}

type UpdateUserInput struct {
	Nome        *string `json:"nome"`
	Senha       *string `json:"senha"`
	Tipo        *string `json:"tipo"`
	MunicipioID *uint   `json:"municipio_id"`
	Ativo       *bool   `json:"ativo"`
}

func (s *RegistryService) UpdateUser(id uint, in UpdateUserInput) error {
	var user models.User
	err := s.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrUsuarioNaoEncontrado
	}
	if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if in.Nome != nil && *in.Nome != "" {
		updates["nome"] = *in.Nome
	}
	if in.Tipo != nil {
		if !models.TipoValido(*in.Tipo) {
			return ErrNomeTipoObrigatorios
		}
		updates["tipo"] = *in.Tipo
		// Leaving the admin role clears the credential.
		if *in.Tipo != models.TipoAdmin {
			updates["senha"] = nil
		}
	}
	if in.Senha != nil && *in.Senha != "" {
		tipo := user.Tipo
		if in.Tipo != nil {
			tipo = *in.Tipo
		}
		if tipo == models.TipoAdmin {
			hash, err := utils.HashPassword(*in.Senha)
			if err != nil {
				return err
			}
			updates["senha"] = hash
		}
	}
	if in.MunicipioID != nil {
		updates["municipio_id"] = *in.MunicipioID
	}
	if in.Ativo != nil {
		updates["ativo"] = *in.Ativo
	}
	if len(updates) == 0 {
		return ErrNadaParaAtualizar
	}
	return s.db.Model(&user).Updates(updates).Error
}

// DeleteUser removes the user and, by explicit product decision, any votes
// they cast. The reply reports how many were erased so the override is
// visible to the administrator.
func (s *RegistryService) DeleteUser(id uint) (nome string, votosRemovidos int64, err error) {
	var user models.User
	err = s.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, models.ErrUsuarioNaoEncontrado
	}
	if err != nil {
		return "", 0, err
	}

	if err = s.db.Model(&models.Voto{}).Where("user_id = ?", id).Count(&votosRemovidos).Error; err != nil {
		return "", 0, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Voto{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Participante{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return "", 0, err
	}
	if votosRemovidos > 0 {
		s.log.Warn("usuário deletado com votos em cascata",
			zap.Uint("usuario_id", id), zap.Int64("votos_removidos", votosRemovidos))
	}
	return user.Nome, votosRemovidos, nil
}

// ---- Importer entry points (the only mutations the importer may call) ----

// UpsertMunicipio creates or updates by case-insensitive name. A
// non-positive weight keeps the stored one (or defaults to 1 on create).
// Individually transactional: one bad row never poisons a batch.
func (s *RegistryService) UpsertMunicipio(nome string, peso float64) (*models.Municipio, error) {
	if nome == "" {
		return nil, ErrNomePesoObrigatorios
	}

	var m models.Municipio
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("UPPER(nome) = UPPER(?)", nome).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if peso <= 0 {
				peso = 1
			}
			m = models.Municipio{Nome: nome, Peso: peso}
			return tx.Create(&m).Error
		}
		if err != nil {
			return err
		}
		if peso > 0 && m.Peso != peso {
			m.Peso = peso
			return tx.Model(&m).Update("peso", peso).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertUser creates or updates by CPF. CPF must already be normalized and
// valid; the importer validates before staging.
func (s *RegistryService) UpsertUser(cpf, nome, tipo string, municipioID uint, ativo bool) (created bool, err error) {
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("cpf = ?", cpf).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			mid := municipioID
			return tx.Create(&models.User{
				CPF:         cpf,
				Nome:        nome,
				Tipo:        tipo,
				MunicipioID: &mid,
				Ativo:       ativo,
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&user).Updates(map[string]interface{}{
			"nome":         nome,
			"tipo":         tipo,
			"municipio_id": municipioID,
			"ativo":        ativo,
		}).Error
	})
	return created, err
}
