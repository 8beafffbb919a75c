package models

import (
	"encoding/json"
	"strings"
)

// Sentinel options present in every event regardless of voting type. In a
// multi-select ballot they are mutually exclusive with substantive options.
const (
	OpcaoNuloBranco = "Voto Nulo ou Branco"
	OpcaoAbstencao  = "Abstenção"
)

// OptionSet is the closed, ordered ballot option list of an event. It is
// built once at event creation and stored as a canonical JSON array; reads
// of legacy rows still tolerate comma-separated text.
type OptionSet []string

// NewOptionSet computes the closed set for a voting type. APROVACAO and
// SIM_NAO define their own fixed sets; ALTERNATIVAS appends the two
// sentinels to the caller-supplied options.
func NewOptionSet(tipoVotacao string, alternativas []string) OptionSet {
	switch tipoVotacao {
	case VotacaoAprovacao:
		return OptionSet{"Aprovar", "Reprovar", OpcaoNuloBranco, OpcaoAbstencao}
	case VotacaoSimNao:
		return OptionSet{"SIM", "NÃO", OpcaoNuloBranco, OpcaoAbstencao}
	case VotacaoAlternativas:
		set := make(OptionSet, 0, len(alternativas)+2)
		set = append(set, alternativas...)
		return append(set, OpcaoNuloBranco, OpcaoAbstencao)
	}
	return nil
}

// DefaultOptionSet is the fallback when a stored options column is
// unreadable. For ALTERNATIVAS the caller options are gone, so only the
// sentinels survive.
func DefaultOptionSet(tipoVotacao string) OptionSet {
	if tipoVotacao == VotacaoAlternativas {
		return OptionSet{OpcaoNuloBranco, OpcaoAbstencao}
	}
	return NewOptionSet(tipoVotacao, nil)
}

// ParseOptionSet reads a stored options column. Accepts a JSON array, falls
// back to comma-separated text, and substitutes the type default instead of
// failing on garbage.
func ParseOptionSet(stored, tipoVotacao string) OptionSet {
	trimmed := strings.TrimSpace(stored)
	if trimmed == "" {
		return DefaultOptionSet(tipoVotacao)
	}
	if strings.HasPrefix(trimmed, "[") {
		var set OptionSet
		if err := json.Unmarshal([]byte(trimmed), &set); err == nil {
			return set
		}
		return DefaultOptionSet(tipoVotacao)
	}
	var set OptionSet
	for _, part := range strings.Split(trimmed, ",") {
		if p := strings.TrimSpace(part); p != "" {
			set = append(set, p)
		}
	}
	if len(set) == 0 {
		return DefaultOptionSet(tipoVotacao)
	}
	return set
}

// Encode renders the canonical stored form.
func (s OptionSet) Encode() string {
	b, err := json.Marshal([]string(s))
	if err != nil {
		return "[]"
	}
	return string(b)
}

func (s OptionSet) Contains(opcao string) bool {
	for _, o := range s {
		if o == opcao {
			return true
		}
	}
	return false
}

func IsSentinel(opcao string) bool {
	return opcao == OpcaoNuloBranco || opcao == OpcaoAbstencao
}

// MixesSentinel reports whether a ballot combines a sentinel option with a
// substantive one, which multi-select events must reject.
func MixesSentinel(selecoes []string) bool {
	var sentinel, normal bool
	for _, s := range selecoes {
		if IsSentinel(s) {
			sentinel = true
		} else {
			normal = true
		}
	}
	return sentinel && normal
}
