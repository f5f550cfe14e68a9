package sefaz

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vfarias/gestor-api/internal/application/fiscal"
	"github.com/vfarias/gestor-api/internal/domain/entity"
)

var _ fiscal.Gateway = (*Client)(nil)

// Client implementa fiscal.Gateway usando os web services SOAP da autoridade.
// Usa net/http da stdlib; não requer bibliotecas de terceiros para o transporte.
type Client struct {
	httpClient  *http.Client
	builder     *PayloadBuilder
	environment string
	nfceURL     string
	nfseURL     string
}

// NewClient constrói o cliente SOAP com timeout de rede generoso (60 s): os
// web services da SEFAZ podem demorar vários segundos para responder.
// gatewayURL, quando não vazio, substitui os endpoints dos dois tipos
// (útil em homologação local e testes).
func NewClient(environment, gatewayURL string) *Client {
	nfceURL := urlNFCeHomologacao
	nfseURL := urlNFSeHomologacao
	if environment == EnvProducao {
		nfceURL = urlNFCeProducao
		nfseURL = urlNFSeProducao
	}
	if gatewayURL != "" {
		nfceURL = gatewayURL
		nfseURL = gatewayURL
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		builder:     NewPayloadBuilder(),
		environment: environment,
		nfceURL:     nfceURL,
		nfseURL:     nfseURL,
	}
}

// Submit envia o documento para autorização e devolve o desfecho de negócio.
// Erros de transporte (rede, fault SOAP, resposta ilegível) vêm como error;
// rejeição da autoridade vem como resultado com status rejected.
func (c *Client) Submit(ctx context.Context, doc *entity.FiscalDocument, items []*entity.FiscalDocumentItem) (*fiscal.GatewayResult, error) {
	var payload string
	var err error
	switch doc.DocumentType {
	case entity.DocumentTypeNFSe:
		payload, err = c.builder.BuildNFSe(doc, items)
	default:
		payload, err = c.builder.BuildNFCe(doc, items)
	}
	if err != nil {
		return nil, err
	}

	retorno, raw, err := c.call(ctx, c.endpointFor(doc.DocumentType), "NFeAutorizacao4",
		&autorizacaoBody{Xmlns: "http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4", Dados: payload})
	if err != nil {
		return nil, err
	}
	result := c.toResult(retorno, raw)
	result.Payload = payload
	return result, nil
}

// Cancel envia o evento de cancelamento do documento autorizado.
func (c *Client) Cancel(ctx context.Context, doc *entity.FiscalDocument, reason string) (*fiscal.GatewayResult, error) {
	payload, err := c.builder.BuildCancelamento(doc, reason)
	if err != nil {
		return nil, err
	}
	retorno, raw, err := c.call(ctx, c.endpointFor(doc.DocumentType), "RecepcaoEvento4",
		&eventoBody{Xmlns: "http://www.portalfiscal.inf.br/nfe/wsdl/NFeRecepcaoEvento4", Dados: payload})
	if err != nil {
		return nil, err
	}
	result := c.toResult(retorno, raw)
	result.Payload = payload
	return result, nil
}

// QueryStatus consulta a situação atual do documento na autoridade. É uma
// consulta, nunca um reenvio: não altera nada do lado de lá.
func (c *Client) QueryStatus(ctx context.Context, doc *entity.FiscalDocument) (*fiscal.GatewayResult, error) {
	payload, err := c.builder.BuildConsulta(doc)
	if err != nil {
		return nil, err
	}
	retorno, raw, err := c.call(ctx, c.endpointFor(doc.DocumentType), "NFeConsultaProtocolo4",
		&consultaBody{Xmlns: "http://www.portalfiscal.inf.br/nfe/wsdl/NFeConsultaProtocolo4", Dados: payload})
	if err != nil {
		return nil, err
	}
	return c.toResult(retorno, raw), nil
}

func (c *Client) endpointFor(documentType string) string {
	if documentType == entity.DocumentTypeNFSe {
		return c.nfseURL
	}
	return c.nfceURL
}

// call monta o envelope SOAP, faz o POST e desempacota o retorno da autoridade.
func (c *Client) call(ctx context.Context, url, operation string, body interface{}) (*retornoAutoridade, string, error) {
	envelope := soapEnvelope{
		XmlnsS: soapNS,
		Body:   soapBody{Content: body},
	}
	xmlPayload, err := xml.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("soap: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(xmlPayload))
	if err != nil {
		return nil, "", fmt.Errorf("soap: criar request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapActionBase+operation)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", fmt.Errorf("soap: timeout ou cancelamento: %w", ctx.Err())
		}
		return nil, "", fmt.Errorf("soap: chamada HTTP falhou: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, "", fmt.Errorf("soap: ler resposta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("soap: HTTP %d da autoridade", resp.StatusCode)
	}

	var envResp soapResponseEnvelope
	if err := xml.Unmarshal(rawBody, &envResp); err != nil {
		return nil, "", fmt.Errorf("soap: resposta ilegível: %w", err)
	}
	if envResp.Body.Fault != nil {
		return nil, "", fmt.Errorf("soap: fault [%s]: %s", envResp.Body.Fault.FaultCode, envResp.Body.Fault.FaultString)
	}
	if envResp.Body.Retorno == nil {
		return nil, "", fmt.Errorf("soap: resposta sem retorno da autoridade")
	}
	return envResp.Body.Retorno, string(rawBody), nil
}

// toResult mapeia o cStat da autoridade para o desfecho de negócio. Qualquer
// código não reconhecido vira rejeição com a mensagem da autoridade.
func (c *Client) toResult(retorno *retornoAutoridade, raw string) *fiscal.GatewayResult {
	result := &fiscal.GatewayResult{
		Protocol:    retorno.NProt,
		AccessKey:   retorno.ChNFe,
		Message:     retorno.XMotivo,
		RawResponse: raw,
	}
	switch retorno.CStat {
	case cStatAutorizado:
		result.Status = fiscal.GatewayAuthorized
	case cStatCancelado, cStatEventoRegistrado, cStatCanceladoForaPrazo:
		result.Status = fiscal.GatewayCanceled
	case cStatLoteEmProcesso, cStatServicoParalisado:
		result.Status = fiscal.GatewayPending
	default:
		result.Status = fiscal.GatewayRejected
	}
	return result
}
