package entity

import "time"

// Tipos de evento do histórico de transmissão.
const (
	EventSubmission    = "submission"
	EventAuthorization = "authorization"
	EventRejection     = "rejection"
	EventCancellation  = "cancellation"
	EventStatusCheck   = "status_check" // consulta genérica de situação (reconciliador)
)

// FiscalEvent é uma entrada append-only do histórico de um documento.
// Eventos nunca são editados ou apagados; formam a história autoritativa
// independente do campo de status (mutável) do documento.
type FiscalEvent struct {
	ID               string
	DocumentID       string
	Kind             string // submission | authorization | rejection | cancellation | status_check
	Description      string
	AuthorityMessage string // mensagem crua devolvida pela autoridade (pode ser vazia)
	ResultingStatus  string // status do documento após o evento
	CreatedAt        time.Time
}
