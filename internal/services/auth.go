package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"urna/internal/models"
	"urna/internal/utils"
)

// AuthService owns sessions: CPF login, token verification, logout and the
// expired-session sweep. Admin logins additionally require the password.
type AuthService struct {
	db       *gorm.DB
	presence *PresenceService
	ttl      time.Duration
	log      *zap.Logger
}

func NewAuthService(db *gorm.DB, presence *PresenceService, ttl time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{db: db, presence: presence, ttl: ttl, log: log}
}

// LoginResult is the login reply: the issued token, the authenticated user
// (municipality preloaded) and the auto-presence outcome per open event.
type LoginResult struct {
	Token     string
	User      *models.User
	Presencas []PresencaEvento
}

func (s *AuthService) Login(cpf, senha, ip, userAgent string) (*LoginResult, error) {
	cpf = utils.NormalizeCPF(cpf)
	if !utils.ValidateCPF(cpf) {
		return nil, models.ErrCPFInvalido
	}

	var user models.User
	err := s.db.Preload("Municipio").
		Where("cpf = ? AND ativo = ?", cpf, true).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrUsuarioNaoEncontrado
	}
	if err != nil {
		return nil, err
	}

	if user.IsAdmin() {
		if senha == "" {
			return nil, models.ErrSenhaObrigatoria
		}
		if user.Senha == nil || !utils.CheckPasswordHash(senha, *user.Senha) {
			return nil, models.ErrSenhaIncorreta
		}
	}

	var presencas []PresencaEvento
	if !user.IsAdmin() && user.MunicipioID != nil {
		presencas, err = s.presence.AutoConfirmOnLogin(user.ID, *user.MunicipioID)
		if err != nil {
			return nil, err
		}
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	session := models.Session{
		Token:     token,
		UserID:    user.ID,
		IPAddress: ip,
		UserAgent: userAgent,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, err
	}

	s.log.Info("login",
		zap.Uint("usuario_id", user.ID),
		zap.String("tipo", user.Tipo),
		zap.Int("presencas_automaticas", countAutomatic(presencas)))

	return &LoginResult{Token: token, User: &user, Presencas: presencas}, nil
}

// Verify resolves a token to its active user. Unknown, expired and
// inactive-user tokens are indistinguishable to the caller.
func (s *AuthService) Verify(token string) (*models.User, error) {
	if token == "" {
		return nil, models.ErrSessaoInvalida
	}

	var session models.Session
	err := s.db.Preload("User.Municipio").Where("token = ?", token).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrSessaoInvalida
	}
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now()) || session.User == nil || !session.User.Ativo {
		return nil, models.ErrSessaoInvalida
	}
	return session.User, nil
}

// Logout deletes the session. Deleting an absent token is not an error.
func (s *AuthService) Logout(token string) error {
	if token == "" {
		return nil
	}
	return s.db.Where("token = ?", token).Delete(&models.Session{}).Error
}

// SweepExpired removes sessions past their expiry. Best effort; the caller
// logs failures and keeps going.
func (s *AuthService) SweepExpired() (int64, error) {
	res := s.db.Where("expires_at < ?", time.Now()).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}

// newToken returns 32 random bytes hex-encoded, the session id format.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func countAutomatic(presencas []PresencaEvento) int {
	n := 0
	for _, p := range presencas {
		if p.Automatica {
			n++
		}
	}
	return n
}
