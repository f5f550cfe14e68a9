package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vfarias/gestor-api/internal/domain/entity"
)

// CreateDocumentRequest body de POST /api/documents.
type CreateDocumentRequest struct {
	DocumentType   string                `json:"document_type"` // nfce | nfse
	ClientID       string                `json:"client_id"`
	ServiceOrderID string                `json:"service_order_id,omitempty"` // só NFC-e
	Series         string                `json:"series"`
	Discount       decimal.Decimal       `json:"discount"`
	ISSRate        decimal.Decimal       `json:"iss_rate"` // fração (0.05) ou percentual (5)
	Items          []DocumentItemRequest `json:"items"`
}

// DocumentItemRequest linha do documento.
type DocumentItemRequest struct {
	Description string          `json:"description"`
	ServiceCode string          `json:"service_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
}

// CancelDocumentRequest body de POST /api/documents/:id/cancel.
type CancelDocumentRequest struct {
	Reason string `json:"reason"`
}

// DocumentResponse documento completo em respostas.
type DocumentResponse struct {
	ID             string                 `json:"id"`
	DocumentType   string                 `json:"document_type"`
	Number         int64                  `json:"number"`
	Series         string                 `json:"series"`
	ClientID       string                 `json:"client_id"`
	ServiceOrderID string                 `json:"service_order_id,omitempty"`
	GrossAmount    decimal.Decimal        `json:"gross_amount"`
	Discount       decimal.Decimal        `json:"discount"`
	ISSRate        decimal.Decimal        `json:"iss_rate"`
	ISSBase        decimal.Decimal        `json:"iss_base"`
	TaxAmount      decimal.Decimal        `json:"tax_amount"`
	Total          decimal.Decimal        `json:"total"`
	Status         string                 `json:"status"`
	CancelReason   string                 `json:"cancel_reason,omitempty"`
	CanceledAt     *time.Time             `json:"canceled_at,omitempty"`
	Protocol       string                 `json:"protocol,omitempty"`
	AccessKey      string                 `json:"access_key,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	Items          []DocumentItemResponse `json:"items"`
	Events         []EventResponse        `json:"events,omitempty"`
}

// DocumentItemResponse linha em respostas.
type DocumentItemResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	ServiceCode string          `json:"service_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// EventResponse entrada do histórico de transmissão.
type EventResponse struct {
	ID               string    `json:"id"`
	Kind             string    `json:"kind"`
	Description      string    `json:"description"`
	AuthorityMessage string    `json:"authority_message,omitempty"`
	ResultingStatus  string    `json:"resulting_status"`
	CreatedAt        time.Time `json:"created_at"`
}

// DocumentStatusResponse projeção leve para polling da UI.
// O frontend consulta até o status ser terminal.
type DocumentStatusResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"` // pending|processing|authorized|rejected|canceled
	Protocol  string `json:"protocol,omitempty"`
	AccessKey string `json:"access_key,omitempty"`
}

// CertificateResponse visão do certificado ativo de um tipo.
type CertificateResponse struct {
	DocumentType string    `json:"document_type"`
	Environment  string    `json:"environment"`
	Holder       string    `json:"holder,omitempty"`
	ValidFrom    time.Time `json:"valid_from"`
	ValidUntil   time.Time `json:"valid_until"`
	Submittable  bool      `json:"submittable"`
	Reason       string    `json:"reason,omitempty"` // preenchido quando submittable == false
}

// RegisterCertificateRequest body de PUT /api/certificates/:type.
type RegisterCertificateRequest struct {
	CertPath     string `json:"cert_path"`
	CertPassword string `json:"cert_password"`
	Environment  string `json:"environment"` // homologacao | producao
}

// ToDocumentResponse monta a resposta a partir das entidades.
func ToDocumentResponse(doc *entity.FiscalDocument, items []*entity.FiscalDocumentItem, events []*entity.FiscalEvent) *DocumentResponse {
	resp := &DocumentResponse{
		ID:             doc.ID,
		DocumentType:   doc.DocumentType,
		Number:         doc.Number,
		Series:         doc.Series,
		ClientID:       doc.ClientID,
		ServiceOrderID: doc.ServiceOrderID,
		GrossAmount:    doc.GrossAmount,
		Discount:       doc.Discount,
		ISSRate:        doc.ISSRate,
		ISSBase:        doc.ISSBase,
		TaxAmount:      doc.TaxAmount,
		Total:          doc.Total,
		Status:         doc.Status,
		CancelReason:   doc.CancelReason,
		CanceledAt:     doc.CanceledAt,
		Protocol:       doc.Protocol,
		AccessKey:      doc.AccessKey,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
		Items:          make([]DocumentItemResponse, 0, len(items)),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, DocumentItemResponse{
			ID:          it.ID,
			Description: it.Description,
			ServiceCode: it.ServiceCode,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			Subtotal:    it.Subtotal,
		})
	}
	if len(events) > 0 {
		resp.Events = ToEventResponses(events)
	}
	return resp
}

// ToEventResponses converte o histórico para a resposta.
func ToEventResponses(events []*entity.FiscalEvent) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, EventResponse{
			ID:               ev.ID,
			Kind:             ev.Kind,
			Description:      ev.Description,
			AuthorityMessage: ev.AuthorityMessage,
			ResultingStatus:  ev.ResultingStatus,
			CreatedAt:        ev.CreatedAt,
		})
	}
	return out
}
