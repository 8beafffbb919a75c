package testutil

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"urna/internal/db"
	"urna/internal/models"
	"urna/internal/utils"
)

// DB opens a throwaway file-backed database and migrates the schema. A file
// (not :memory:) so concurrent connections in race tests see the same data;
// the busy timeout keeps writer contention from surfacing as errors.
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(10000)"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}

// Logger is a no-op zap logger for service constructors.
func Logger() *zap.Logger {
	return zap.NewNop()
}

func Municipio(t *testing.T, conn *gorm.DB, nome string, peso float64) *models.Municipio {
	t.Helper()
	m := models.Municipio{Nome: nome, Peso: peso}
	if err := conn.Create(&m).Error; err != nil {
		t.Fatalf("create municipio %s: %v", nome, err)
	}
	return &m
}

// CPF generates a checksum-valid CPF from a 9-digit seed.
func CPF(seed int) string {
	base := fmt.Sprintf("%09d", seed)
	digits := make([]int, 11)
	for i := 0; i < 9; i++ {
		digits[i] = int(base[i] - '0')
	}
	digits[9] = cpfDigit(digits, 9)
	digits[10] = cpfDigit(digits, 10)
	out := ""
	for _, d := range digits {
		out += fmt.Sprintf("%d", d)
	}
	return out
}

func cpfDigit(digits []int, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += digits[i] * (n + 1 - i)
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		return 0
	}
	return rest
}

func User(t *testing.T, conn *gorm.DB, nome, tipo string, municipioID *uint) *models.User {
	t.Helper()
	u := models.User{
		CPF:         CPF(userSeq()),
		Nome:        nome,
		Tipo:        tipo,
		MunicipioID: municipioID,
		Ativo:       true,
	}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", nome, err)
	}
	return &u
}

func Admin(t *testing.T, conn *gorm.DB, nome, senha string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(senha)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := models.User{
		CPF:   CPF(userSeq()),
		Nome:  nome,
		Senha: &hash,
		Tipo:  models.TipoAdmin,
		Ativo: true,
	}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("create admin %s: %v", nome, err)
	}
	return &u
}

var seq int

func userSeq() int {
	seq++
	return 100000000 + seq
}

// OpenEvent creates an ATIVO event whose window brackets now.
func OpenEvent(t *testing.T, conn *gorm.DB, criadoPor uint, tipo string, opcoes []string) *models.Evento {
	t.Helper()
	return Event(t, conn, criadoPor, tipo, opcoes, models.StatusAtivo,
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
}

func Event(t *testing.T, conn *gorm.DB, criadoPor uint, tipo string, opcoes []string, status string, inicio, fim time.Time) *models.Evento {
	t.Helper()
	e := models.Evento{
		Titulo:           "Evento de Teste",
		TipoVotacao:      tipo,
		OpcoesVotacao:    models.NewOptionSet(tipo, opcoes).Encode(),
		DataInicio:       inicio,
		DataFim:          fim,
		PesoMinimoQuorum: 60,
		Status:           status,
		CriadoPor:        criadoPor,
	}
	if err := conn.Create(&e).Error; err != nil {
		t.Fatalf("create evento: %v", err)
	}
	return &e
}

// Enroll adds a user to the event roster, optionally already present.
func Enroll(t *testing.T, conn *gorm.DB, eventoID, userID uint, presente bool) *models.Participante {
	t.Helper()
	p := models.Participante{EventoID: eventoID, UserID: userID, Presente: presente}
	if presente {
		now := time.Now()
		p.DataPresenca = &now
	}
	if err := conn.Create(&p).Error; err != nil {
		t.Fatalf("enroll user %d: %v", userID, err)
	}
	return &p
}
