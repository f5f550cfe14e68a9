package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/vfarias/gestor-api/internal/application/dto"
	"github.com/vfarias/gestor-api/internal/application/fiscal"
	"github.com/vfarias/gestor-api/internal/domain"
	"github.com/vfarias/gestor-api/internal/domain/entity"
)

// timeNow indireto para os testes fixarem o relógio.
var timeNow = time.Now

// CertificateHandler trata a administração dos certificados (protegido, admin).
type CertificateHandler struct {
	uc *fiscal.CertificateUseCase
}

// NewCertificateHandler constrói o handler.
func NewCertificateHandler(uc *fiscal.CertificateUseCase) *CertificateHandler {
	return &CertificateHandler{uc: uc}
}

// Get devolve a configuração ativa do tipo, com a avaliação de validade.
// GET /api/certificates/:type
func (h *CertificateHandler) Get(c *fiber.Ctx) error {
	documentType := c.Params("type")
	if !entity.ValidDocumentType(documentType) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "tipo deve ser nfce ou nfse"})
	}
	cfg, err := h.uc.Get(c.Context(), documentType)
	if err != nil {
		if err == domain.ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "nenhum certificado configurado para o tipo"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(toCertificateResponse(cfg))
}

// Register registra (ou substitui) o certificado do tipo.
// PUT /api/certificates/:type
func (h *CertificateHandler) Register(c *fiber.Ctx) error {
	documentType := c.Params("type")
	if !entity.ValidDocumentType(documentType) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "tipo deve ser nfce ou nfse"})
	}
	var in dto.RegisterCertificateRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	cfg, err := h.uc.Register(c.Context(), documentType, in.CertPath, in.CertPassword, in.Environment)
	if err != nil {
		if err == domain.ErrInvalidInput {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "caminho do certificado e ambiente obrigatórios"})
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "CERT_INVALID", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(toCertificateResponse(cfg))
}

func toCertificateResponse(cfg *entity.CertificateConfig) dto.CertificateResponse {
	ok, reason := cfg.IsSubmittable(timeNow())
	return dto.CertificateResponse{
		DocumentType: cfg.DocumentType,
		Environment:  cfg.Environment,
		Holder:       cfg.Holder,
		ValidFrom:    cfg.ValidFrom,
		ValidUntil:   cfg.ValidUntil,
		Submittable:  ok,
		Reason:       reason,
	}
}
