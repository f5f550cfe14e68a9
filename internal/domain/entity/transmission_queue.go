package entity

import "time"

// Ações possíveis de uma entrada da fila de transmissão.
const (
	QueueActionSubmit = "submit"
	QueueActionCancel = "cancel"
)

// Status de entrega de uma entrada da fila. Independente do status de negócio
// do documento: a entrega pode ser success (autoridade respondeu) mesmo quando
// o desfecho de negócio é uma rejeição.
const (
	QueueStatusPending = "pending"
	QueueStatusSuccess = "success"
	QueueStatusError   = "error"
)

// TransmissionQueueEntry é um item durável de trabalho aguardando o gateway.
// Entradas nunca são apagadas (auditoria/exportação); uma entrada resolvida
// não bloqueia a criação de outra para o mesmo documento.
type TransmissionQueueEntry struct {
	ID           string
	DocumentID   string
	DocumentType string // nfce | nfse
	Action       string // submit | cancel
	CancelReason string // preenchido só quando Action == cancel
	Status       string // pending | success | error
	LastError    string
	CreatedAt    time.Time
	ResolvedAt   *time.Time
}

// Resolved informa se a entrada já saiu de pending.
func (e *TransmissionQueueEntry) Resolved() bool {
	return e.Status != QueueStatusPending
}
