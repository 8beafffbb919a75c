package models

import (
	"reflect"
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return ts
}

func TestNewOptionSet(t *testing.T) {
	tests := []struct {
		name         string
		tipo         string
		alternativas []string
		want         OptionSet
	}{
		{
			name: "aprovacao has fixed set",
			tipo: VotacaoAprovacao,
			want: OptionSet{"Aprovar", "Reprovar", OpcaoNuloBranco, OpcaoAbstencao},
		},
		{
			name: "sim_nao has fixed set",
			tipo: VotacaoSimNao,
			want: OptionSet{"SIM", "NÃO", OpcaoNuloBranco, OpcaoAbstencao},
		},
		{
			name:         "alternativas appends sentinels",
			tipo:         VotacaoAlternativas,
			alternativas: []string{"Chapa 1", "Chapa 2"},
			want:         OptionSet{"Chapa 1", "Chapa 2", OpcaoNuloBranco, OpcaoAbstencao},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewOptionSet(tt.tipo, tt.alternativas)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NewOptionSet() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseOptionSet(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		tipo   string
		want   OptionSet
	}{
		{
			name:   "json array round trip",
			stored: `["A","B"]`,
			tipo:   VotacaoAlternativas,
			want:   OptionSet{"A", "B"},
		},
		{
			name:   "comma fallback",
			stored: "A, B ,C",
			tipo:   VotacaoAlternativas,
			want:   OptionSet{"A", "B", "C"},
		},
		{
			name:   "empty yields default",
			stored: "",
			tipo:   VotacaoAprovacao,
			want:   OptionSet{"Aprovar", "Reprovar", OpcaoNuloBranco, OpcaoAbstencao},
		},
		{
			name:   "broken json yields default",
			stored: `["A",`,
			tipo:   VotacaoSimNao,
			want:   OptionSet{"SIM", "NÃO", OpcaoNuloBranco, OpcaoAbstencao},
		},
		{
			name:   "broken json for alternativas keeps only sentinels",
			stored: `[{`,
			tipo:   VotacaoAlternativas,
			want:   OptionSet{OpcaoNuloBranco, OpcaoAbstencao},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseOptionSet(tt.stored, tt.tipo)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseOptionSet(%q) = %v, want %v", tt.stored, got, tt.want)
			}
		})
	}
}

func TestOptionSetEncodeParse(t *testing.T) {
	set := NewOptionSet(VotacaoAlternativas, []string{"X", "Y"})
	got := ParseOptionSet(set.Encode(), VotacaoAlternativas)
	if !reflect.DeepEqual(got, set) {
		t.Errorf("round trip = %v, want %v", got, set)
	}
}

func TestMixesSentinel(t *testing.T) {
	tests := []struct {
		name     string
		selecoes []string
		want     bool
	}{
		{"only substantive", []string{"A", "B"}, false},
		{"only sentinel", []string{OpcaoAbstencao}, false},
		{"mixed", []string{"A", OpcaoNuloBranco}, true},
		{"both sentinels", []string{OpcaoNuloBranco, OpcaoAbstencao}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MixesSentinel(tt.selecoes); got != tt.want {
				t.Errorf("MixesSentinel(%v) = %v, want %v", tt.selecoes, got, tt.want)
			}
		})
	}
}

func TestPeriodoStatus(t *testing.T) {
	inicio := mustTime(t, "2026-01-10T10:00:00Z")
	fim := mustTime(t, "2026-01-10T18:00:00Z")
	e := Evento{DataInicio: inicio, DataFim: fim}

	tests := []struct {
		name string
		now  string
		want string
	}{
		{"before window", "2026-01-10T09:59:59Z", PeriodoAntes},
		{"at start", "2026-01-10T10:00:00Z", PeriodoDentro},
		{"inside", "2026-01-10T14:00:00Z", PeriodoDentro},
		{"at end is closed", "2026-01-10T18:00:00Z", PeriodoApos},
		{"after", "2026-01-10T19:00:00Z", PeriodoApos},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.PeriodoStatus(mustTime(t, tt.now)); got != tt.want {
				t.Errorf("PeriodoStatus(%s) = %s, want %s", tt.now, got, tt.want)
			}
		})
	}
}
