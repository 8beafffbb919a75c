package models

import (
	"time"
)

// Participante is the event roster row. Presence flips to true once (auto on
// first login of the municipality, or explicitly) and is never reset.
type Participante struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	EventoID     uint       `gorm:"not null;uniqueIndex:idx_evento_usuario;index" json:"evento_id"`
	Evento       *Evento    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID       uint       `gorm:"not null;uniqueIndex:idx_evento_usuario" json:"usuario_id"`
	User         *User      `gorm:"constraint:OnDelete:CASCADE" json:"usuario,omitempty"`
	Presente     bool       `gorm:"not null;default:false;index" json:"presente"`
	DataPresenca *time.Time `json:"data_presenca"`
	CreatedAt    time.Time  `json:"created_at"`
}
