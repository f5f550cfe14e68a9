package domain

import (
	"errors"
	"fmt"
)

// Erros de domínio (sem dependências externas).
var (
	ErrNotFound     = errors.New("recurso não encontrado")
	ErrUserNotFound = errors.New("usuário não encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("não autorizado")
	ErrForbidden    = errors.New("acesso negado")
	ErrConflict     = errors.New("conflito com o estado atual")
	ErrPrecondition = errors.New("pré-condição de transmissão violada")
)

// Códigos de pré-condição do ciclo fiscal. Cada falha síncrona de Submit/Cancel
// carrega exatamente um destes códigos.
const (
	PreconditionCertificateInvalid = "CERT_INVALID"       // certificado ausente, expirado ou marcado inválido
	PreconditionMissingField       = "MISSING_FIELD"      // campo fiscal obrigatório ausente
	PreconditionIllegalTransition  = "ILLEGAL_TRANSITION" // transição de status não permitida
	PreconditionPendingEntry       = "PENDING_ENTRY"      // já existe entrada pendente na fila de transmissão
	PreconditionEmptyReason        = "EMPTY_REASON"       // cancelamento sem motivo
)

// PreconditionError descreve qual pré-condição de Submit/Cancel falhou.
// Compatível com errors.Is(err, ErrPrecondition).
type PreconditionError struct {
	Code   string // um dos códigos Precondition*
	Detail string
}

func (e *PreconditionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("pré-condição violada: %s", e.Code)
	}
	return fmt.Sprintf("pré-condição violada: %s: %s", e.Code, e.Detail)
}

// Is faz o erro responder a errors.Is(err, ErrPrecondition).
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// NewPreconditionError constrói um erro de pré-condição com código e detalhe.
func NewPreconditionError(code, detail string) *PreconditionError {
	return &PreconditionError{Code: code, Detail: detail}
}

// PreconditionCode extrai o código de pré-condição de um erro, ou "" se não for um.
func PreconditionCode(err error) string {
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
