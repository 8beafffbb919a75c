package models

import (
	"time"
)

// User roles. Only ADMIN carries a password; everyone else logs in by CPF.
const (
	TipoAdmin         = "ADMIN"
	TipoPrefeito      = "PREFEITO"
	TipoRepresentante = "REPRESENTANTE"
	TipoGovernador    = "GOVERNADOR"
	TipoSecretario    = "SECRETARIO"
)

func TipoValido(tipo string) bool {
	switch tipo {
	case TipoAdmin, TipoPrefeito, TipoRepresentante, TipoGovernador, TipoSecretario:
		return true
	}
	return false
}

type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CPF         string     `gorm:"size:11;uniqueIndex;not null" json:"cpf"`
	Nome        string     `gorm:"size:100;not null" json:"nome"`
	Senha       *string    `gorm:"size:255" json:"-"` // bcrypt hash, ADMIN only
	Tipo        string     `gorm:"size:20;not null;index" json:"tipo"`
	MunicipioID *uint      `gorm:"index" json:"municipio_id"`
	Municipio   *Municipio `gorm:"constraint:OnDelete:RESTRICT" json:"municipio,omitempty"`
	Ativo       bool       `gorm:"not null;default:true" json:"ativo"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Tipo == TipoAdmin
}

// Peso returns the municipal weight the user votes with, 0 when unaffiliated.
func (u *User) Peso() float64 {
	if u.Municipio == nil {
		return 0
	}
	return u.Municipio.Peso
}
