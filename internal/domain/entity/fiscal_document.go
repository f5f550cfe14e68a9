package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de documento fiscal suportados.
const (
	DocumentTypeNFCe = "nfce" // venda ao consumidor (varejo)
	DocumentTypeNFSe = "nfse" // prestação de serviço
)

// Status do ciclo de transmissão. A sequência legal é
// pending → processing → {authorized, rejected}; authorized → canceled.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusAuthorized = "authorized"
	StatusRejected   = "rejected"
	StatusCanceled   = "canceled"
)

// legalTransitions tabela de transições permitidas do ciclo de vida.
var legalTransitions = map[string][]string{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusAuthorized, StatusRejected},
	StatusAuthorized: {StatusCanceled},
	StatusRejected:   {},
	StatusCanceled:   {},
}

// CanTransition informa se a transição from → to é legal.
func CanTransition(from, to string) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus informa se o status encerra a transmissão normal.
// authorized ainda admite cancelamento; rejected e canceled não admitem nada.
func IsTerminalStatus(status string) bool {
	return status == StatusAuthorized || status == StatusRejected || status == StatusCanceled
}

// ValidDocumentType informa se o tipo é um dos suportados.
func ValidDocumentType(t string) bool {
	return t == DocumentTypeNFCe || t == DocumentTypeNFSe
}

// FiscalDocument é a nota fiscal eletrônica (NFC-e ou NFS-e). Os totais são
// calculados no servidor a partir dos itens e nunca mutados de forma isolada.
// UpdatedAt é o sinal de staleness usado pelo reconciliador.
type FiscalDocument struct {
	ID             string
	DocumentType   string // nfce | nfse
	Number         int64  // sequencial, monotônico por série
	Series         string
	ClientID       string
	ServiceOrderID string // opcional; só NFC-e referencia ordem de serviço

	GrossAmount decimal.Decimal // soma dos subtotais dos itens
	Discount    decimal.Decimal
	ISSRate     decimal.Decimal // alíquota ISS (fração, ex. 0.05)
	ISSBase     decimal.Decimal // base de cálculo = bruto - desconto
	TaxAmount   decimal.Decimal
	Total       decimal.Decimal

	Status       string
	CancelReason string     // imutável depois de preenchido
	CanceledAt   *time.Time // idem

	// Artefatos de transmissão — blobs opacos de propriedade do gateway;
	// a máquina de estados nunca os interpreta.
	Payload           string
	AuthorityResponse string
	Protocol          string
	AccessKey         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FiscalDocumentItem é uma linha do documento (serviço ou produto).
type FiscalDocumentItem struct {
	ID          string
	DocumentID  string
	Description string // discriminação do serviço / descrição do item
	ServiceCode string // código de serviço/tributação municipal
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	Subtotal    decimal.Decimal // quantidade × preço - desconto
}

// ComputeTotals recalcula os campos financeiros do documento a partir dos itens
// e da alíquota ISS corrente. Única via legítima de alterar os totais.
func (d *FiscalDocument) ComputeTotals(items []*FiscalDocumentItem) {
	gross := decimal.Zero
	discount := d.Discount
	for _, it := range items {
		it.Subtotal = it.Quantity.Mul(it.UnitPrice).Sub(it.Discount)
		gross = gross.Add(it.Subtotal)
	}
	d.GrossAmount = gross
	d.ISSBase = gross.Sub(discount)
	d.TaxAmount = d.ISSBase.Mul(d.ISSRate).Round(2)
	d.Total = d.ISSBase.Add(d.TaxAmount)
}
