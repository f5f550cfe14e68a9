package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/vfarias/gestor-api/internal/application/dto"
	"github.com/vfarias/gestor-api/internal/application/fiscal"
	"github.com/vfarias/gestor-api/internal/domain"
)

// FiscalHandler trata as requisições HTTP do ciclo fiscal (protegido).
type FiscalHandler struct {
	createUC    *fiscal.CreateDocumentUseCase
	lifecycleUC *fiscal.LifecycleUseCase
	mirrorUC    *fiscal.MirrorUseCase
}

// NewFiscalHandler constrói o handler.
func NewFiscalHandler(createUC *fiscal.CreateDocumentUseCase, lifecycleUC *fiscal.LifecycleUseCase, mirrorUC *fiscal.MirrorUseCase) *FiscalHandler {
	return &FiscalHandler{createUC: createUC, lifecycleUC: lifecycleUC, mirrorUC: mirrorUC}
}

// Create emite um documento em pending com numeração da série.
// POST /api/documents
func (h *FiscalHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	doc, err := h.createUC.Create(c.Context(), in)
	if err != nil {
		return mapFiscalError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// GetByID obtém o documento completo com itens e histórico.
// GET /api/documents/:id
func (h *FiscalHandler) GetByID(c *fiber.Ctx) error {
	doc, err := h.createUC.Get(c.Context(), c.Params("id"))
	if err != nil {
		return mapFiscalError(c, err)
	}
	return c.JSON(doc)
}

// GetStatus devolve a projeção leve de status para polling da UI.
// GET /api/documents/:id/status
func (h *FiscalHandler) GetStatus(c *fiber.Ctx) error {
	status, err := h.createUC.GetStatus(c.Context(), c.Params("id"))
	if err != nil {
		return mapFiscalError(c, err)
	}
	return c.JSON(status)
}

// History devolve o histórico de eventos de transmissão do documento.
// GET /api/documents/:id/events
func (h *FiscalHandler) History(c *fiber.Ctx) error {
	events, err := h.createUC.History(c.Context(), c.Params("id"))
	if err != nil {
		return mapFiscalError(c, err)
	}
	return c.JSON(events)
}

// Submit valida as pré-condições e enfileira o documento para transmissão.
// POST /api/documents/:id/submit
func (h *FiscalHandler) Submit(c *fiber.Ctx) error {
	if err := h.lifecycleUC.Submit(c.Context(), c.Params("id")); err != nil {
		return mapFiscalError(c, err)
	}
	status, err := h.createUC.GetStatus(c.Context(), c.Params("id"))
	if err != nil {
		return mapFiscalError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(status)
}

// Cancel enfileira o pedido de cancelamento do documento autorizado.
// POST /api/documents/:id/cancel
func (h *FiscalHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	if err := h.lifecycleUC.Cancel(c.Context(), c.Params("id"), in.Reason); err != nil {
		return mapFiscalError(c, err)
	}
	status, err := h.createUC.GetStatus(c.Context(), c.Params("id"))
	if err != nil {
		return mapFiscalError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(status)
}

// PDF devolve o espelho do documento autorizado.
// GET /api/documents/:id/pdf
func (h *FiscalHandler) PDF(c *fiber.Ctx) error {
	pdfBytes, err := h.mirrorUC.Generate(c.Context(), c.Params("id"))
	if err != nil {
		return mapFiscalError(c, err)
	}
	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", `inline; filename="documento.pdf"`)
	return c.Send(pdfBytes)
}

// mapFiscalError traduz erros de domínio para status HTTP. Pré-condições
// violadas viram 409 (fila pendente, transição ilegal) ou 422 (dados/certificado).
func mapFiscalError(c *fiber.Ctx, err error) error {
	if err == domain.ErrNotFound {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento não encontrado"})
	}
	if err == domain.ErrInvalidInput {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "dados inválidos"})
	}
	var pe *domain.PreconditionError
	if errors.As(err, &pe) {
		status := fiber.StatusUnprocessableEntity
		if pe.Code == domain.PreconditionPendingEntry || pe.Code == domain.PreconditionIllegalTransition {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(dto.ErrorResponse{Code: pe.Code, Message: pe.Detail})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
