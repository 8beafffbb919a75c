package models

import (
	"time"
)

// Voto is one ballot entry. A municipality's ballot is the set of rows
// sharing (EventoID, MunicipioID), numbered 1..N by VotoNumero. Rows are
// immutable; the only delete path is the cascade from user deletion.
// The unique index on (evento, municipio, voto_numero) backs the explicit
// already-voted check as a second line of defense.
type Voto struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	EventoID    uint       `gorm:"not null;uniqueIndex:idx_voto_municipio_numero;index" json:"evento_id"`
	Evento      *Evento    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID      uint       `gorm:"not null;index" json:"usuario_id"`
	User        *User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	MunicipioID uint       `gorm:"not null;uniqueIndex:idx_voto_municipio_numero" json:"municipio_id"`
	Municipio   *Municipio `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Voto        string     `gorm:"size:500;not null" json:"voto"`
	VotoNumero  int        `gorm:"not null;default:1;uniqueIndex:idx_voto_municipio_numero" json:"voto_numero"`
	Peso        float64    `gorm:"not null" json:"peso"` // municipality weight at cast time
	DataHora    time.Time  `gorm:"not null;index" json:"data_hora"`
}
