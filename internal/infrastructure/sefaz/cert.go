// Carga e leitura de certificados A1 (.p12/.pfx PKCS#12 ou par PEM).

package sefaz

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vfarias/gestor-api/internal/application/fiscal"
	"golang.org/x/crypto/pkcs12"
)

var _ fiscal.CertificateInspector = (*CertInspector)(nil)

// CertInspector lê o certificado do disco e expõe titular e janela de validade.
type CertInspector struct{}

// NewCertInspector cria o inspector.
func NewCertInspector() *CertInspector {
	return &CertInspector{}
}

// Inspect abre o certificado (PKCS#12 ou PEM) e devolve titular e validade.
func (CertInspector) Inspect(certPath, password string) (holder string, validFrom, validUntil time.Time, err error) {
	var leaf *x509.Certificate
	if strings.HasSuffix(certPath, ".p12") || strings.HasSuffix(certPath, ".pfx") {
		leaf, err = loadLeafFromP12(certPath, password)
	} else {
		leaf, err = loadLeafFromPEM(certPath)
	}
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	return leaf.Subject.CommonName, leaf.NotBefore, leaf.NotAfter, nil
}

// loadLeafFromP12 carrega o certificado folha de um arquivo .p12/.pfx.
// O password pode ser vazio se o arquivo não está protegido.
func loadLeafFromP12(path, password string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ler p12: %w", err)
	}
	_, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("decodificar p12: %w", err)
	}
	return cert, nil
}

// loadLeafFromPEM carrega o certificado folha de um arquivo PEM (cert+key combinados).
func loadLeafFromPEM(path string) (*x509.Certificate, error) {
	pair, err := tls.LoadX509KeyPair(path, path)
	if err != nil {
		return nil, fmt.Errorf("carregar PEM: %w", err)
	}
	if pair.Leaf != nil {
		return pair.Leaf, nil
	}
	if len(pair.Certificate) == 0 {
		return nil, fmt.Errorf("PEM sem certificado")
	}
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("parsear certificado: %w", err)
	}
	return leaf, nil
}
