package models

import (
	"errors"
	"fmt"
)

// Domain errors. Handlers map these to HTTP codes; services return them
// untouched so callers can dispatch with errors.Is.
var (
	ErrCPFInvalido            = errors.New("CPF inválido")
	ErrUsuarioNaoEncontrado   = errors.New("usuário não encontrado ou inativo")
	ErrSenhaObrigatoria       = errors.New("senha é obrigatória para administradores")
	ErrSenhaIncorreta         = errors.New("senha incorreta")
	ErrSessaoInvalida         = errors.New("sessão inválida ou expirada")
	ErrCPFJaCadastrado        = errors.New("CPF já cadastrado")
	ErrMunicipioEmUso         = errors.New("não é possível deletar município com usuários vinculados")
	ErrMunicipioNaoEncontrado = errors.New("município não encontrado")

	ErrEventoNaoEncontrado = errors.New("evento não encontrado")
	ErrStatusInvalido      = errors.New("transição de status não permitida")
	ErrAntesPeriodo        = errors.New("evento ainda não iniciou")
	ErrAposPeriodo         = errors.New("evento já encerrou")
	ErrForaDoPeriodo       = errors.New("evento fora do período permitido")
	ErrQuorumInsuficiente  = errors.New("quórum mínimo não atingido")

	ErrNaoParticipante    = errors.New("você não está cadastrado neste evento")
	ErrPresencaNecessaria = errors.New("você precisa confirmar presença antes de votar")
	ErrVotacaoNaoLiberada = errors.New("votação não foi liberada pelo administrador")
	ErrOpcaoInvalida      = errors.New("opção de voto inválida")
	ErrOpcaoExclusiva     = errors.New("voto nulo/branco ou abstenção não pode ser combinado com outras opções")
	ErrVotosExcedidos     = errors.New("quantidade de votos acima do permitido")

	ErrLoteNaoEncontrado = errors.New("lote de importação não encontrado ou expirado")
)

// AlreadyVotedError names who cast the municipality's ballot, so the second
// representative sees a useful message instead of a bare conflict.
type AlreadyVotedError struct {
	Votante string
}

func (e *AlreadyVotedError) Error() string {
	return fmt.Sprintf("seu município já votou neste evento. Voto registrado por: %s", e.Votante)
}

// ErrMunicipioJaVotou matches any AlreadyVotedError in errors.Is checks.
var ErrMunicipioJaVotou = errors.New("município já votou neste evento")

func (e *AlreadyVotedError) Is(target error) bool {
	return target == ErrMunicipioJaVotou
}
