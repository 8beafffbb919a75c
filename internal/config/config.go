package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Participant selection at event creation: EXPLICIT takes the
// caller-supplied list, ALL_ACTIVE enrolls every active non-admin user.
const (
	SelecaoExplicita   = "EXPLICIT"
	SelecaoTodosAtivos = "ALL_ACTIVE"
)

// Quorum gate for releasing the vote: the event's configured threshold, or
// a hardcoded strict majority.
const (
	QuorumConfiguravel   = "CONFIGURABLE_THRESHOLD"
	QuorumMaioriaEstrita = "STRICT_MAJORITY"
)

type Config struct {
	Port        string `env:"PORT" env-default:"8080"`
	DatabaseURL string `env:"DATABASE_URL" env-default:"host=localhost user=postgres password=postgres dbname=urna port=5432 sslmode=disable"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	SessionTTL     time.Duration `env:"SESSION_TTL" env-default:"1h"`
	SweepInterval  time.Duration `env:"SESSION_SWEEP_INTERVAL" env-default:"30m"`
	StreamInterval time.Duration `env:"RESULTS_STREAM_INTERVAL" env-default:"3s"`

	ParticipantSelection string `env:"PARTICIPANT_SELECTION" env-default:"EXPLICIT"`
	QuorumComparison     string `env:"QUORUM_COMPARISON" env-default:"CONFIGURABLE_THRESHOLD"`

	// Seed admin created on first boot when no admin exists.
	AdminCPF      string `env:"ADMIN_CPF" env-default:""`
	AdminNome     string `env:"ADMIN_NOME" env-default:"Administrador"`
	AdminPassword string `env:"ADMIN_PASSWORD" env-default:""`
}

func New() (*Config, error) {
	// Missing .env is fine; env vars may come from the system.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.ParticipantSelection {
	case SelecaoExplicita, SelecaoTodosAtivos:
	default:
		return fmt.Errorf("config: invalid PARTICIPANT_SELECTION %q", c.ParticipantSelection)
	}
	switch c.QuorumComparison {
	case QuorumConfiguravel, QuorumMaioriaEstrita:
	default:
		return fmt.Errorf("config: invalid QUORUM_COMPARISON %q", c.QuorumComparison)
	}
	return nil
}
