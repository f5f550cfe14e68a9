package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfarias/gestor-api/internal/application/fiscal"
	"github.com/vfarias/gestor-api/internal/domain/entity"
)

type memCertRepo struct {
	mu      sync.Mutex
	configs map[string]*entity.CertificateConfig
}

func (m *memCertRepo) GetActiveByType(_ context.Context, documentType string) (*entity.CertificateConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[documentType]
	if !ok {
		return nil, nil
	}
	cp := *cfg
	return &cp, nil
}

func (m *memCertRepo) Upsert(_ context.Context, cfg *entity.CertificateConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.configs == nil {
		m.configs = map[string]*entity.CertificateConfig{}
	}
	cp := *cfg
	m.configs[cfg.DocumentType] = &cp
	return nil
}

type stubInspector struct {
	holder     string
	validFrom  time.Time
	validUntil time.Time
	err        error
}

func (s *stubInspector) Inspect(certPath, password string) (string, time.Time, time.Time, error) {
	return s.holder, s.validFrom, s.validUntil, s.err
}

func buildCertApp(repo *memCertRepo, inspector *stubInspector) *fiber.App {
	app := fiber.New()
	h := NewCertificateHandler(fiscal.NewCertificateUseCase(repo, inspector))
	app.Get("/certificates/:type", h.Get)
	app.Put("/certificates/:type", h.Register)
	return app
}

func doCertRequest(t *testing.T, app *fiber.App, method, path string, body any) (*nethttp.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed
}

// Consultar um tipo sem certificado configurado é fluxo normal do operador
// (checar antes de registrar) e responde 404, nunca erro interno.
func TestCertificateGet_SemCertificadoConfigurado(t *testing.T) {
	app := buildCertApp(&memCertRepo{}, &stubInspector{})

	resp, body := doCertRequest(t, app, nethttp.MethodGet, "/certificates/nfse", nil)

	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestCertificateGet_TipoInvalido(t *testing.T) {
	app := buildCertApp(&memCertRepo{}, &stubInspector{})

	resp, body := doCertRequest(t, app, nethttp.MethodGet, "/certificates/nfe", nil)

	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", body["code"])
}

func TestCertificateGet_CertificadoVigente(t *testing.T) {
	now := time.Now()
	repo := &memCertRepo{}
	inspector := &stubInspector{
		holder:     "OFICINA EXEMPLO LTDA",
		validFrom:  now.Add(-time.Hour),
		validUntil: now.Add(200 * 24 * time.Hour),
	}
	app := buildCertApp(repo, inspector)

	resp, _ := doCertRequest(t, app, nethttp.MethodPut, "/certificates/nfce", map[string]string{
		"cert_path":     "/certs/a1.pfx",
		"cert_password": "senha",
		"environment":   entity.EnvironmentHomologacao,
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)

	resp, body := doCertRequest(t, app, nethttp.MethodGet, "/certificates/nfce", nil)

	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, entity.DocumentTypeNFCe, body["document_type"])
	assert.Equal(t, "OFICINA EXEMPLO LTDA", body["holder"])
	assert.Equal(t, true, body["submittable"])
}

func TestCertificateRegister_AmbienteInvalido(t *testing.T) {
	app := buildCertApp(&memCertRepo{}, &stubInspector{})

	resp, body := doCertRequest(t, app, nethttp.MethodPut, "/certificates/nfce", map[string]string{
		"cert_path":   "/certs/a1.pfx",
		"environment": "staging",
	})

	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", body["code"])
}

func TestCertificateRegister_MaterialIlegivel(t *testing.T) {
	inspector := &stubInspector{err: fmt.Errorf("pkcs12: senha incorreta")}
	app := buildCertApp(&memCertRepo{}, inspector)

	resp, body := doCertRequest(t, app, nethttp.MethodPut, "/certificates/nfce", map[string]string{
		"cert_path":   "/certs/a1.pfx",
		"environment": entity.EnvironmentHomologacao,
	})

	assert.Equal(t, nethttp.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "CERT_INVALID", body["code"])
}
