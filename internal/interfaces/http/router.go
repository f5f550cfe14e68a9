package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vfarias/gestor-api/internal/application/auth"
	"github.com/vfarias/gestor-api/internal/application/fiscal"
	"github.com/vfarias/gestor-api/internal/domain/entity"
)

// RouterDeps dependências para o router.
type RouterDeps struct {
	CreateDocument *fiscal.CreateDocumentUseCase
	Lifecycle      *fiscal.LifecycleUseCase
	Mirror         *fiscal.MirrorUseCase
	CertificateUC  *fiscal.CertificateUseCase
	AuthUC         *auth.AuthUseCase
	JWTSecret      string
}

// Router registra as rotas da API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rotas protegidas (exigem Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Documentos fiscais (protegido)
	documents := protected.Group("/documents")
	fiscalHandler := NewFiscalHandler(deps.CreateDocument, deps.Lifecycle, deps.Mirror)
	documents.Post("/", fiscalHandler.Create)
	documents.Get("/:id", fiscalHandler.GetByID)
	documents.Get("/:id/status", fiscalHandler.GetStatus)
	documents.Get("/:id/events", fiscalHandler.History)
	documents.Post("/:id/submit", fiscalHandler.Submit)
	documents.Post("/:id/cancel", fiscalHandler.Cancel)
	documents.Get("/:id/pdf", fiscalHandler.PDF)

	// Certificados (protegido; Register exige papel admin)
	certificates := protected.Group("/certificates")
	certificateHandler := NewCertificateHandler(deps.CertificateUC)
	certificates.Get("/:type", certificateHandler.Get)
	certificates.Put("/:type", RequireRole(entity.RoleAdmin), certificateHandler.Register)
}
