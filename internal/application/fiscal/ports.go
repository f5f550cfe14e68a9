// Package fiscal implementa o ciclo de vida de transmissão dos documentos
// fiscais eletrônicos (NFC-e e NFS-e): máquina de estados, fila de
// transmissão, reconciliador e pré-condições de certificado.
package fiscal

import (
	"context"

	"github.com/vfarias/gestor-api/internal/domain/entity"
	"github.com/vfarias/gestor-api/internal/domain/repository"
)

// Status devolvidos pelo gateway da autoridade. O código trata o gateway como
// opaco: um resultado descreve o desfecho, nunca o formato do protocolo.
const (
	GatewayAuthorized = "authorized"
	GatewayRejected   = "rejected"
	GatewayPending    = "pending" // autoridade ainda processando
	GatewayCanceled   = "canceled"
)

// GatewayResult desfecho de uma chamada ao gateway. Payload e RawResponse são
// blobs opacos de propriedade do adaptador, persistidos como artefatos.
type GatewayResult struct {
	Status      string // authorized | rejected | pending | canceled
	Protocol    string
	AccessKey   string
	Message     string // mensagem da autoridade (rejeição, observações)
	Payload     string // XML enviado (vazio em consultas)
	RawResponse string
}

// Gateway porta de saída para o web service da autoridade fiscal.
// Chamadas são lentas e falíveis; erro de transporte vem como error, desfecho
// de negócio (inclusive rejeição) vem no GatewayResult.
type Gateway interface {
	Submit(ctx context.Context, doc *entity.FiscalDocument, items []*entity.FiscalDocumentItem) (*GatewayResult, error)
	Cancel(ctx context.Context, doc *entity.FiscalDocument, reason string) (*GatewayResult, error)
	QueryStatus(ctx context.Context, doc *entity.FiscalDocument) (*GatewayResult, error)
}

// TxRunner executa fn dentro de uma transação com os repositórios do ciclo
// fiscal atados à tx (commit se fn == nil, rollback caso contrário).
type TxRunner interface {
	Run(ctx context.Context, fn func(
		docs repository.FiscalDocumentRepository,
		events repository.FiscalEventRepository,
		queue repository.TransmissionQueueRepository,
	) error) error
}

// CertificateChecker responde se a credencial do tipo de documento permite
// transmitir agora, com motivo legível quando não permite.
type CertificateChecker interface {
	IsSubmittable(ctx context.Context, documentType string) (ok bool, reason string, err error)
}

// ChangeNotifier é o gancho opcional de "mudou" emitido após qualquer mutação
// de status. Preocupação de apresentação (invalidação de cache da UI), não de
// correção; implementações não devem bloquear.
type ChangeNotifier interface {
	DocumentChanged(documentID, status string)
}

// NopNotifier implementação vazia de ChangeNotifier.
type NopNotifier struct{}

// DocumentChanged não faz nada.
func (NopNotifier) DocumentChanged(string, string) {}
