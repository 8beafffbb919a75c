package models

import (
	"time"
)

// Municipio carries the voting weight used by every quorum and tally
// computation. Weight is per municipality, never per user.
type Municipio struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Nome      string    `gorm:"size:100;uniqueIndex;not null" json:"nome"`
	Peso      float64   `gorm:"not null;default:1" json:"peso"`
	CreatedAt time.Time `json:"created_at"`
}
