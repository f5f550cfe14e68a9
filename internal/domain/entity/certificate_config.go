package entity

import (
	"fmt"
	"time"
)

// Ambientes da autoridade fiscal.
const (
	EnvironmentHomologacao = "homologacao"
	EnvironmentProducao    = "producao"
)

// CertificateConfig guarda a credencial de assinatura (certificado A1) de um
// tipo de documento e sua janela de validade, derivada do certificado x509.
// Uma configuração ativa por tipo (nfce | nfse).
type CertificateConfig struct {
	ID           string
	DocumentType string // nfce | nfse
	CertPath     string // .pfx/.p12 ou PEM
	CertPassword string
	Environment  string // homologacao | producao
	Holder       string // CN do titular, para exibição
	ValidFrom    time.Time
	ValidUntil   time.Time
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsSubmittable informa se a credencial permite transmitir agora, com um motivo
// legível quando não permite. A máquina de estados trata resposta negativa como
// bloqueio duro: nenhuma entrada de fila é criada.
func (c *CertificateConfig) IsSubmittable(now time.Time) (bool, string) {
	if c == nil {
		return false, "certificado não configurado"
	}
	if !c.Active {
		return false, "certificado marcado como inativo"
	}
	if now.Before(c.ValidFrom) {
		return false, fmt.Sprintf("certificado ainda não vigente (início %s)", c.ValidFrom.Format("2006-01-02"))
	}
	if !now.Before(c.ValidUntil) {
		return false, fmt.Sprintf("certificado expirado em %s", c.ValidUntil.Format("2006-01-02"))
	}
	return true, ""
}
