package services

import (
	"errors"
	"testing"
	"time"

	"urna/internal/models"
	"urna/internal/testutil"
)

func newAuthService(t *testing.T) (*AuthService, *PresenceService, *testDeps) {
	t.Helper()
	deps := newDeps(t)
	presence := NewPresenceService(deps.db, deps.log)
	return NewAuthService(deps.db, presence, time.Hour, deps.log), presence, deps
}

func TestLoginRepresentative(t *testing.T) {
	auth, _, deps := newAuthService(t)
	m := testutil.Municipio(t, deps.db, "Vitória", 10)
	user := testutil.User(t, deps.db, "Maria", models.TipoRepresentante, &m.ID)

	result, err := auth.Login(user.CPF, "", "10.0.0.1", "go-test")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if len(result.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(result.Token))
	}
	if result.User.ID != user.ID {
		t.Errorf("logged user = %d, want %d", result.User.ID, user.ID)
	}
	if result.User.Municipio == nil {
		t.Error("expected municipality preloaded on login")
	}

	got, err := auth.Verify(result.Token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Verify() user = %d, want %d", got.ID, user.ID)
	}
}

func TestLoginAcceptsFormattedCPF(t *testing.T) {
	auth, _, deps := newAuthService(t)
	m := testutil.Municipio(t, deps.db, "Serra", 9.5)
	user := testutil.User(t, deps.db, "Pedro", models.TipoPrefeito, &m.ID)

	cpf := user.CPF
	formatted := cpf[:3] + "." + cpf[3:6] + "." + cpf[6:9] + "-" + cpf[9:]
	if _, err := auth.Login(formatted, "", "", ""); err != nil {
		t.Errorf("Login(formatted cpf) error = %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	auth, _, deps := newAuthService(t)
	admin := testutil.Admin(t, deps.db, "Admin", "s3nha-forte")
	m := testutil.Municipio(t, deps.db, "Vila Velha", 8)
	inactive := testutil.User(t, deps.db, "Inativo", models.TipoRepresentante, &m.ID)
	deps.db.Model(inactive).Update("ativo", false)

	tests := []struct {
		name    string
		cpf     string
		senha   string
		wantErr error
	}{
		{"malformed cpf", "123", "", models.ErrCPFInvalido},
		{"unknown cpf", "52998224725", "", models.ErrUsuarioNaoEncontrado},
		{"inactive user", inactive.CPF, "", models.ErrUsuarioNaoEncontrado},
		{"admin without password", admin.CPF, "", models.ErrSenhaObrigatoria},
		{"admin wrong password", admin.CPF, "errada", models.ErrSenhaIncorreta},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Login(tt.cpf, tt.senha, "", "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Login() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := auth.Login(admin.CPF, "s3nha-forte", "", ""); err != nil {
		t.Errorf("Login(admin, correct password) error = %v", err)
	}
}

func TestLoginAutoConfirmsPresence(t *testing.T) {
	auth, _, deps := newAuthService(t)
	m := testutil.Municipio(t, deps.db, "Guarapari", 7)
	admin := testutil.Admin(t, deps.db, "Admin", "x")
	prefeito := testutil.User(t, deps.db, "Prefeito", models.TipoPrefeito, &m.ID)
	repr := testutil.User(t, deps.db, "Representante", models.TipoRepresentante, &m.ID)
	evento := testutil.OpenEvent(t, deps.db, admin.ID, models.VotacaoAprovacao, nil)
	testutil.Enroll(t, deps.db, evento.ID, prefeito.ID, false)
	testutil.Enroll(t, deps.db, evento.ID, repr.ID, false)

	first, err := auth.Login(prefeito.CPF, "", "", "")
	if err != nil {
		t.Fatalf("first login error = %v", err)
	}
	if len(first.Presencas) != 1 || !first.Presencas[0].Automatica {
		t.Fatalf("first login presencas = %+v, want one automatic", first.Presencas)
	}

	second, err := auth.Login(repr.CPF, "", "", "")
	if err != nil {
		t.Fatalf("second login error = %v", err)
	}
	if len(second.Presencas) != 1 {
		t.Fatalf("second login presencas = %+v, want one entry", second.Presencas)
	}
	if second.Presencas[0].Automatica {
		t.Error("second login should not auto-confirm, municipality already present")
	}
	if second.Presencas[0].Mensagem != "Presença já confirmada por: Prefeito" {
		t.Errorf("mensagem = %q", second.Presencas[0].Mensagem)
	}

	// Only the first login flipped a roster row.
	var present int64
	deps.db.Model(&models.Participante{}).
		Where("evento_id = ? AND presente = ?", evento.ID, true).
		Count(&present)
	if present != 1 {
		t.Errorf("present rows = %d, want 1", present)
	}
}

func TestVerifyRejectsExpiredAndUnknown(t *testing.T) {
	auth, _, deps := newAuthService(t)
	m := testutil.Municipio(t, deps.db, "Cariacica", 6)
	user := testutil.User(t, deps.db, "Ana", models.TipoRepresentante, &m.ID)

	result, err := auth.Login(user.CPF, "", "", "")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if _, err := auth.Verify("no-such-token"); !errors.Is(err, models.ErrSessaoInvalida) {
		t.Errorf("Verify(unknown) error = %v, want ErrSessaoInvalida", err)
	}

	deps.db.Model(&models.Session{}).
		Where("token = ?", result.Token).
		Update("expires_at", time.Now().Add(-time.Minute))
	if _, err := auth.Verify(result.Token); !errors.Is(err, models.ErrSessaoInvalida) {
		t.Errorf("Verify(expired) error = %v, want ErrSessaoInvalida", err)
	}
}

func TestVerifyRejectsDeactivatedUser(t *testing.T) {
	auth, _, deps := newAuthService(t)
	m := testutil.Municipio(t, deps.db, "Linhares", 5)
	user := testutil.User(t, deps.db, "José", models.TipoRepresentante, &m.ID)

	result, err := auth.Login(user.CPF, "", "", "")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	deps.db.Model(&models.User{}).Where("id = ?", user.ID).Update("ativo", false)

	if _, err := auth.Verify(result.Token); !errors.Is(err, models.ErrSessaoInvalida) {
		t.Errorf("Verify(deactivated) error = %v, want ErrSessaoInvalida", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	auth, _, deps := newAuthService(t)
	m := testutil.Municipio(t, deps.db, "Colatina", 4)
	user := testutil.User(t, deps.db, "Rita", models.TipoRepresentante, &m.ID)

	result, err := auth.Login(user.CPF, "", "", "")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := auth.Logout(result.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := auth.Verify(result.Token); !errors.Is(err, models.ErrSessaoInvalida) {
		t.Errorf("Verify after logout error = %v, want ErrSessaoInvalida", err)
	}
	if err := auth.Logout(result.Token); err != nil {
		t.Errorf("second Logout() error = %v, want nil", err)
	}
}

func TestSweepExpired(t *testing.T) {
	auth, _, deps := newAuthService(t)
	m := testutil.Municipio(t, deps.db, "Aracruz", 3)
	user := testutil.User(t, deps.db, "Caio", models.TipoRepresentante, &m.ID)

	live, err := auth.Login(user.CPF, "", "", "")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	stale, err := auth.Login(user.CPF, "", "", "")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	deps.db.Model(&models.Session{}).
		Where("token = ?", stale.Token).
		Update("expires_at", time.Now().Add(-time.Hour))

	removed, err := auth.SweepExpired()
	if err != nil {
		t.Fatalf("SweepExpired() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := auth.Verify(live.Token); err != nil {
		t.Errorf("live session swept: %v", err)
	}
}
