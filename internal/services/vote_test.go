package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"urna/internal/models"
	"urna/internal/testutil"
)

type voteFixture struct {
	deps   *testDeps
	svc    *VoteService
	evento *models.Evento
	m      *models.Municipio
	user   *models.User
}

func newVoteFixture(t *testing.T) *voteFixture {
	t.Helper()
	deps := newDeps(t)
	admin := testutil.Admin(t, deps.db, "Admin", "x")
	m := testutil.Municipio(t, deps.db, "Vitória", 10)
	user := testutil.User(t, deps.db, "Maria", models.TipoRepresentante, &m.ID)
	evento := testutil.OpenEvent(t, deps.db, admin.ID, models.VotacaoAprovacao, nil)
	testutil.Enroll(t, deps.db, evento.ID, user.ID, true)
	return &voteFixture{
		deps:   deps,
		svc:    NewVoteService(deps.db, deps.log),
		evento: evento,
		m:      m,
		user:   user,
	}
}

func TestRegisterVote(t *testing.T) {
	f := newVoteFixture(t)

	if err := f.svc.Register(f.evento.ID, f.user.ID, []string{"Aprovar"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	var votos []models.Voto
	f.deps.db.Where("evento_id = ?", f.evento.ID).Find(&votos)
	if len(votos) != 1 {
		t.Fatalf("votos = %d, want 1", len(votos))
	}
	v := votos[0]
	if v.Voto != "Aprovar" || v.VotoNumero != 1 {
		t.Errorf("voto = %+v, want Aprovar #1", v)
	}
	if v.Peso != 10 {
		t.Errorf("peso = %v, want snapshot 10", v.Peso)
	}
	if v.MunicipioID != f.m.ID {
		t.Errorf("municipio = %d, want %d", v.MunicipioID, f.m.ID)
	}
}

func TestRegisterVoteRejections(t *testing.T) {
	f := newVoteFixture(t)

	outsider := testutil.User(t, f.deps.db, "Fora", models.TipoRepresentante, &f.m.ID)
	absent := testutil.User(t, f.deps.db, "Ausente", models.TipoRepresentante, &f.m.ID)
	testutil.Enroll(t, f.deps.db, f.evento.ID, absent.ID, false)

	tests := []struct {
		name     string
		userID   uint
		selecoes []string
		wantErr  error
	}{
		{"empty ballot", f.user.ID, nil, models.ErrOpcaoInvalida},
		{"option outside the set", f.user.ID, []string{"Talvez"}, models.ErrOpcaoInvalida},
		{"too many selections", f.user.ID, []string{"Aprovar", "Reprovar"}, models.ErrVotosExcedidos},
		{"not enrolled", outsider.ID, []string{"Aprovar"}, models.ErrNaoParticipante},
		{"enrolled but not present", absent.ID, []string{"Aprovar"}, models.ErrPresencaNecessaria},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.Register(f.evento.ID, tt.userID, tt.selecoes)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	var count int64
	f.deps.db.Model(&models.Voto{}).Where("evento_id = ?", f.evento.ID).Count(&count)
	if count != 0 {
		t.Errorf("vote rows = %d, want 0 after rejections", count)
	}
}

func TestRegisterVoteLifecycleGates(t *testing.T) {
	f := newVoteFixture(t)

	t.Run("not released", func(t *testing.T) {
		f.deps.db.Model(f.evento).Update("status", models.StatusAguardandoInicio)
		err := f.svc.Register(f.evento.ID, f.user.ID, []string{"Aprovar"})
		if !errors.Is(err, models.ErrVotacaoNaoLiberada) {
			t.Errorf("error = %v, want ErrVotacaoNaoLiberada", err)
		}
		f.deps.db.Model(f.evento).Update("status", models.StatusAtivo)
	})

	t.Run("outside window", func(t *testing.T) {
		f.deps.db.Model(f.evento).Update("data_fim", time.Now().Add(-time.Minute))
		err := f.svc.Register(f.evento.ID, f.user.ID, []string{"Aprovar"})
		if !errors.Is(err, models.ErrForaDoPeriodo) {
			t.Errorf("error = %v, want ErrForaDoPeriodo", err)
		}
	})
}

func TestRegisterVoteMunicipalityAlreadyVoted(t *testing.T) {
	f := newVoteFixture(t)
	second := testutil.User(t, f.deps.db, "Pedro", models.TipoPrefeito, &f.m.ID)
	testutil.Enroll(t, f.deps.db, f.evento.ID, second.ID, true)

	if err := f.svc.Register(f.evento.ID, f.user.ID, []string{"Aprovar"}); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	err := f.svc.Register(f.evento.ID, second.ID, []string{"Reprovar"})
	if !errors.Is(err, models.ErrMunicipioJaVotou) {
		t.Fatalf("second Register() error = %v, want ErrMunicipioJaVotou", err)
	}
	var already *models.AlreadyVotedError
	if errors.As(err, &already) && already.Votante != "Maria" {
		t.Errorf("Votante = %q, want Maria", already.Votante)
	}

	// Repeating the same user is equally blocked.
	if err := f.svc.Register(f.evento.ID, f.user.ID, []string{"Aprovar"}); !errors.Is(err, models.ErrMunicipioJaVotou) {
		t.Errorf("repeat Register() error = %v, want ErrMunicipioJaVotou", err)
	}

	var count int64
	f.deps.db.Model(&models.Voto{}).Where("evento_id = ?", f.evento.ID).Count(&count)
	if count != 1 {
		t.Errorf("vote rows = %d, want exactly 1", count)
	}
}

func multiSelectEvent(t *testing.T, f *voteFixture, max int) *models.Evento {
	t.Helper()
	evento := testutil.OpenEvent(t, f.deps.db, f.evento.CriadoPor, models.VotacaoAlternativas,
		[]string{"Chapa 1", "Chapa 2", "Chapa 3"})
	f.deps.db.Model(evento).Updates(map[string]interface{}{
		"votacao_multipla": true,
		"votos_maximos":    max,
	})
	testutil.Enroll(t, f.deps.db, evento.ID, f.user.ID, true)
	return evento
}

func TestRegisterMultiSelect(t *testing.T) {
	f := newVoteFixture(t)
	evento := multiSelectEvent(t, f, 2)

	if err := f.svc.Register(evento.ID, f.user.ID, []string{"Chapa 1", "Chapa 3"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	var votos []models.Voto
	f.deps.db.Where("evento_id = ?", evento.ID).Order("voto_numero").Find(&votos)
	if len(votos) != 2 {
		t.Fatalf("votos = %d, want 2", len(votos))
	}
	if votos[0].VotoNumero != 1 || votos[1].VotoNumero != 2 {
		t.Errorf("sequence = %d,%d, want 1,2", votos[0].VotoNumero, votos[1].VotoNumero)
	}
}

func TestRegisterMultiSelectSentinelExclusive(t *testing.T) {
	f := newVoteFixture(t)
	evento := multiSelectEvent(t, f, 3)

	err := f.svc.Register(evento.ID, f.user.ID, []string{"Chapa 1", models.OpcaoAbstencao})
	if !errors.Is(err, models.ErrOpcaoExclusiva) {
		t.Fatalf("Register(mixed) error = %v, want ErrOpcaoExclusiva", err)
	}

	// A lone sentinel is a valid ballot.
	if err := f.svc.Register(evento.ID, f.user.ID, []string{models.OpcaoAbstencao}); err != nil {
		t.Errorf("Register(sentinel only) error = %v", err)
	}
}

func TestRegisterVoteConcurrentRepresentatives(t *testing.T) {
	f := newVoteFixture(t)
	second := testutil.User(t, f.deps.db, "Pedro", models.TipoPrefeito, &f.m.ID)
	testutil.Enroll(t, f.deps.db, f.evento.ID, second.ID, true)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userID := range []uint{f.user.ID, second.ID} {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			errs[i] = f.svc.Register(f.evento.ID, userID, []string{"Aprovar"})
		}(i, userID)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, models.ErrMunicipioJaVotou):
			lost++
		default:
			t.Fatalf("unexpected race outcome: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Errorf("won = %d, lost = %d, want exactly one committed ballot", won, lost)
	}

	var count int64
	f.deps.db.Model(&models.Voto{}).Where("evento_id = ?", f.evento.ID).Count(&count)
	if count != 1 {
		t.Errorf("vote rows = %d, want 1", count)
	}
}

func TestCheckVoted(t *testing.T) {
	f := newVoteFixture(t)
	second := testutil.User(t, f.deps.db, "Pedro", models.TipoPrefeito, &f.m.ID)
	testutil.Enroll(t, f.deps.db, f.evento.ID, second.ID, true)

	status, err := f.svc.CheckVoted(f.evento.ID, f.user.ID)
	if err != nil {
		t.Fatalf("CheckVoted() error = %v", err)
	}
	if status.JaVotou {
		t.Error("JaVotou = true before any vote")
	}

	if err := f.svc.Register(f.evento.ID, f.user.ID, []string{"Aprovar"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	mine, err := f.svc.CheckVoted(f.evento.ID, f.user.ID)
	if err != nil {
		t.Fatalf("CheckVoted() error = %v", err)
	}
	if !mine.JaVotou || !mine.MeuVoto || mine.VotouOutro {
		t.Errorf("own status = %+v, want own vote", mine)
	}

	other, err := f.svc.CheckVoted(f.evento.ID, second.ID)
	if err != nil {
		t.Fatalf("CheckVoted() error = %v", err)
	}
	if !other.JaVotou || !other.VotouOutro || other.Votante != "Maria" {
		t.Errorf("colleague status = %+v, want voted-by-Maria", other)
	}
}
