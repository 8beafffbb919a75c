package db

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"urna/internal/models"
	"urna/internal/utils"
)

// Connect opens the database and runs migrations. The handle is returned to
// the caller and injected everywhere; there is no package-level instance.
func Connect(dsn string) (*gorm.DB, error) {
	// TranslateError maps driver unique-violation errors onto
	// gorm.ErrDuplicatedKey, which the vote path relies on.
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("db: connect: %w", err)
	}
	if err := Migrate(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&models.Municipio{},
		&models.User{},
		&models.Session{},
		&models.Evento{},
		&models.Participante{},
		&models.Voto{},
	)
	if err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}

// SeedAdmin creates the bootstrap administrator when no admin exists yet.
// Skipped silently when the CPF or password is not configured.
func SeedAdmin(conn *gorm.DB, cpf, nome, password string, log *zap.Logger) error {
	if cpf == "" || password == "" {
		return nil
	}
	cpf = utils.NormalizeCPF(cpf)
	if !utils.ValidateCPF(cpf) {
		return fmt.Errorf("db: seed admin: %w", models.ErrCPFInvalido)
	}

	var count int64
	if err := conn.Model(&models.User{}).Where("tipo = ?", models.TipoAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	admin := models.User{
		CPF:   cpf,
		Nome:  nome,
		Senha: &hash,
		Tipo:  models.TipoAdmin,
		Ativo: true,
	}
	if err := conn.Create(&admin).Error; err != nil {
		return fmt.Errorf("db: seed admin: %w", err)
	}
	log.Info("seed admin created", zap.String("nome", nome))
	return nil
}
