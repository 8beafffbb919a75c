package services

import (
	"errors"
	"strings"
	"testing"

	"urna/internal/models"
	"urna/internal/testutil"
)

func TestBuildReport(t *testing.T) {
	deps := newDeps(t)
	votes := NewVoteService(deps.db, deps.log)
	report := NewReportService(deps.db, deps.log)

	admin := testutil.Admin(t, deps.db, "Admin", "x")
	a := testutil.Municipio(t, deps.db, "Vitoria", 10)
	b := testutil.Municipio(t, deps.db, "Serra", 30)
	ua := testutil.User(t, deps.db, "Maria", models.TipoPrefeito, &a.ID)
	ub := testutil.User(t, deps.db, "Pedro", models.TipoPrefeito, &b.ID)

	evento := testutil.OpenEvent(t, deps.db, admin.ID, models.VotacaoAprovacao, nil)
	deps.db.Model(evento).Update("titulo", "Orçamento 2026")
	testutil.Enroll(t, deps.db, evento.ID, ua.ID, true)
	testutil.Enroll(t, deps.db, evento.ID, ub.ID, true)
	if err := votes.Register(evento.ID, ua.ID, []string{"Aprovar"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	filename, body, err := report.Build(evento.ID)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	text := string(body)
	if !strings.HasPrefix(text, "\ufeff") {
		t.Error("report missing UTF-8 BOM")
	}
	for _, section := range []string{
		"RELATORIO DE VOTACAO",
		"PARTICIPANTES",
		"VOTOS REGISTRADOS",
		"RESUMO DE VOTOS POR MUNICIPIO",
		"CONTAGEM POR OPCAO",
		"ESTATISTICAS GERAIS",
	} {
		if !strings.Contains(text, section+"\n") {
			t.Errorf("missing section %q", section)
		}
	}

	if !strings.Contains(text, "Criado por;Admin\n") {
		t.Error("missing creator line")
	}
	if !strings.Contains(text, "Maria;"+ua.CPF+";Aprovar;1;10.00;") {
		t.Error("missing vote row for Maria")
	}
	if !strings.Contains(text, "Total de Participantes Cadastrados;2\n") {
		t.Error("missing participant count")
	}
	if !strings.Contains(text, "Total de Municipios que Votaram;1\n") {
		t.Error("missing voted municipality count")
	}
	// 10 of 40 enrolled weight voted.
	if !strings.Contains(text, "Percentual de Participacao (Peso);25.00%\n") {
		t.Error("missing weighted participation")
	}

	if !strings.HasPrefix(filename, "votacao_Orcamento_2026_") {
		// Accent stripping is not attempted; non-ASCII is dropped.
		if !strings.HasPrefix(filename, "votacao_Or") {
			t.Errorf("filename = %q", filename)
		}
	}
	if !strings.HasSuffix(filename, ".csv") {
		t.Errorf("filename = %q, want .csv", filename)
	}
}

func TestBuildReportUnknownEvent(t *testing.T) {
	deps := newDeps(t)
	report := NewReportService(deps.db, deps.log)
	if _, _, err := report.Build(42); !errors.Is(err, models.ErrEventoNaoEncontrado) {
		t.Errorf("Build(42) error = %v, want ErrEventoNaoEncontrado", err)
	}
}
