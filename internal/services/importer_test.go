package services

import (
	"errors"
	"strings"
	"testing"

	"urna/internal/models"
	"urna/internal/testutil"
)

func newImporter(t *testing.T) (*ImporterService, *RegistryService, *testDeps) {
	t.Helper()
	deps := newDeps(t)
	registry := NewRegistryService(deps.db, deps.log)
	return NewImporterService(registry, deps.log), registry, deps
}

func TestPreviewValidatesRows(t *testing.T) {
	importer, _, deps := newImporter(t)
	testutil.Municipio(t, deps.db, "Serra", 9)

	cpf1 := testutil.CPF(910000001)
	rows := []ImportRow{
		{CPF: cpf1, Nome: "Maria", Tipo: "PREFEITO", Municipio: "Vitoria", Peso: 10},
		{CPF: "", Nome: "Sem CPF", Tipo: "PREFEITO", Municipio: "Vitoria"},
		{CPF: "12345678900", Nome: "CPF Ruim", Tipo: "PREFEITO", Municipio: "Vitoria"},
		{CPF: testutil.CPF(910000002), Nome: "Tipo Ruim", Tipo: "VEREADOR", Municipio: "Vitoria"},
		{CPF: cpf1, Nome: "Duplicada", Tipo: "REPRESENTANTE", Municipio: "Vitoria"},
		{CPF: testutil.CPF(910000003), Nome: "Ok Serra", Tipo: "representante", Municipio: "Serra", Peso: 9},
	}

	preview, err := importer.Preview(rows)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if preview.LoteID == "" {
		t.Error("expected batch id")
	}
	if preview.TotalLinhas != 6 {
		t.Errorf("TotalLinhas = %d, want 6", preview.TotalLinhas)
	}
	if preview.UsuariosValidos != 2 {
		t.Errorf("UsuariosValidos = %d, want 2", preview.UsuariosValidos)
	}
	if preview.Erros != 4 {
		t.Errorf("Erros = %d, want 4: %+v", preview.Erros, preview.TodosErros)
	}

	// Only Vitoria is new: Serra already exists.
	if len(preview.MunicipiosNovos) != 1 || preview.MunicipiosNovos[0].Nome != "Vitoria" {
		t.Errorf("MunicipiosNovos = %+v, want just Vitoria", preview.MunicipiosNovos)
	}

	// Line numbers skip the header (first row is line 2).
	if preview.TodosErros[0].Linha != 3 {
		t.Errorf("first error line = %d, want 3", preview.TodosErros[0].Linha)
	}
	dup := preview.TodosErros[3]
	if dup.Campo != "cpf" || !strings.Contains(dup.Mensagem, "linha 2") {
		t.Errorf("duplicate error = %+v, want pointer to line 2", dup)
	}

	// Role is normalized.
	if preview.Usuarios[1].Tipo != models.TipoRepresentante {
		t.Errorf("tipo = %s, want REPRESENTANTE", preview.Usuarios[1].Tipo)
	}
}

func TestCommitAppliesBatch(t *testing.T) {
	importer, _, deps := newImporter(t)
	serra := testutil.Municipio(t, deps.db, "Serra", 9)
	existing := testutil.User(t, deps.db, "Antiga", models.TipoPrefeito, &serra.ID)

	rows := []ImportRow{
		{CPF: testutil.CPF(920000001), Nome: "Nova", Tipo: "PREFEITO", Municipio: "Vitoria", Peso: 10},
		{CPF: existing.CPF, Nome: "Atualizada", Tipo: "REPRESENTANTE", Municipio: "Serra"},
	}
	preview, err := importer.Preview(rows)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	result, err := importer.Commit(preview.LoteID)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if result.MunicipiosCriados != 1 {
		t.Errorf("MunicipiosCriados = %d, want 1", result.MunicipiosCriados)
	}
	if result.UsuariosCriados != 1 || result.UsuariosAtualizados != 1 {
		t.Errorf("result = %+v, want 1 created and 1 updated", result)
	}
	if result.Erros != 0 {
		t.Errorf("Erros = %d: %+v", result.Erros, result.DetalhesErros)
	}

	var updated models.User
	deps.db.Where("cpf = ?", existing.CPF).First(&updated)
	if updated.Nome != "Atualizada" || updated.Tipo != models.TipoRepresentante {
		t.Errorf("updated user = %+v", updated)
	}

	// A batch is consumed on commit.
	if _, err := importer.Commit(preview.LoteID); !errors.Is(err, models.ErrLoteNaoEncontrado) {
		t.Errorf("second Commit() error = %v, want ErrLoteNaoEncontrado", err)
	}
}

func TestCommitUnknownBatch(t *testing.T) {
	importer, _, _ := newImporter(t)
	if _, err := importer.Commit("no-such-lote"); !errors.Is(err, models.ErrLoteNaoEncontrado) {
		t.Errorf("Commit(unknown) error = %v, want ErrLoteNaoEncontrado", err)
	}
}
