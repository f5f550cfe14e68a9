package sefaz

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfarias/gestor-api/internal/application/fiscal"
	"github.com/vfarias/gestor-api/internal/domain/entity"
)

func sampleDoc() (*entity.FiscalDocument, []*entity.FiscalDocumentItem) {
	doc := &entity.FiscalDocument{
		ID:           "doc-1",
		DocumentType: entity.DocumentTypeNFCe,
		Number:       42,
		Series:       "1",
		ClientID:     "client-1",
		GrossAmount:  decimal.NewFromInt(100),
		Discount:     decimal.Zero,
		ISSRate:      decimal.NewFromFloat(0.05),
		ISSBase:      decimal.NewFromInt(100),
		TaxAmount:    decimal.NewFromInt(5),
		Total:        decimal.NewFromInt(105),
		Status:       entity.StatusProcessing,
		CreatedAt:    time.Now(),
	}
	items := []*entity.FiscalDocumentItem{{
		ID:          "item-1",
		DocumentID:  doc.ID,
		Description: "Manutenção preventiva",
		ServiceCode: "14.01",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(100),
		Discount:    decimal.Zero,
		Subtotal:    decimal.NewFromInt(100),
	}}
	return doc, items
}

func respostaAutoridade(cStat, xMotivo, nProt, chNFe string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <nfeResultMsg>
      <retorno>
        <cStat>%s</cStat>
        <xMotivo>%s</xMotivo>
        <protNFe><infProt><nProt>%s</nProt><chNFe>%s</chNFe></infProt></protNFe>
      </retorno>
    </nfeResultMsg>
  </soap:Body>
</soap:Envelope>`, cStat, xMotivo, nProt, chNFe)
}

func TestSubmit_Autorizado(t *testing.T) {
	var gotAction, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAction = r.Header.Get("SOAPAction")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		fmt.Fprint(w, respostaAutoridade("100", "Autorizado o uso da NF-e", "135230000012345", "35230800000000000165650010000000421000000427"))
	}))
	defer srv.Close()

	client := NewClient(EnvHomologacao, srv.URL)
	doc, items := sampleDoc()

	result, err := client.Submit(context.Background(), doc, items)
	require.NoError(t, err)

	assert.Equal(t, fiscal.GatewayAuthorized, result.Status)
	assert.Equal(t, "135230000012345", result.Protocol)
	assert.Equal(t, "35230800000000000165650010000000421000000427", result.AccessKey)
	assert.Equal(t, "Autorizado o uso da NF-e", result.Message)
	assert.Contains(t, result.Payload, "<mod>65</mod>")
	assert.Contains(t, result.RawResponse, "<cStat>100</cStat>")

	assert.Equal(t, "http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4", gotAction)
	assert.Contains(t, gotBody, "<nfeDadosMsg")
	assert.Contains(t, gotBody, "<nNF>42</nNF>")
}

func TestSubmit_RejeicaoEhResultadoNaoErro(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, respostaAutoridade("204", "Rejeição: Duplicidade de NF-e", "", ""))
	}))
	defer srv.Close()

	client := NewClient(EnvHomologacao, srv.URL)
	doc, items := sampleDoc()

	result, err := client.Submit(context.Background(), doc, items)
	require.NoError(t, err)

	assert.Equal(t, fiscal.GatewayRejected, result.Status)
	assert.Equal(t, "Rejeição: Duplicidade de NF-e", result.Message)
	assert.Empty(t, result.Protocol)
}

func TestSubmit_LoteEmProcessamentoEhPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, respostaAutoridade("105", "Lote em processamento", "", ""))
	}))
	defer srv.Close()

	client := NewClient(EnvHomologacao, srv.URL)
	doc, items := sampleDoc()

	result, err := client.Submit(context.Background(), doc, items)
	require.NoError(t, err)
	assert.Equal(t, fiscal.GatewayPending, result.Status)
}

func TestSubmit_FaultSOAPEhErroDeTransporte(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap:Server</faultcode>
      <faultstring>Internal server error</faultstring>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`)
	}))
	defer srv.Close()

	client := NewClient(EnvHomologacao, srv.URL)
	doc, items := sampleDoc()

	result, err := client.Submit(context.Background(), doc, items)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "fault")
}

func TestSubmit_HTTPNaoOKEhErroDeTransporte(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(EnvHomologacao, srv.URL)
	doc, items := sampleDoc()

	_, err := client.Submit(context.Background(), doc, items)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestSubmit_RespostaIlegivelEhErroDeTransporte(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<<< isso não é XML >>>")
	}))
	defer srv.Close()

	client := NewClient(EnvHomologacao, srv.URL)
	doc, items := sampleDoc()

	_, err := client.Submit(context.Background(), doc, items)
	require.Error(t, err)
}

func TestCancel_EventoRegistrado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "http://www.portalfiscal.inf.br/nfe/wsdl/RecepcaoEvento4", r.Header.Get("SOAPAction"))
		fmt.Fprint(w, respostaAutoridade("135", "Evento registrado e vinculado a NF-e", "135230000099999", ""))
	}))
	defer srv.Close()

	client := NewClient(EnvHomologacao, srv.URL)
	doc, _ := sampleDoc()
	doc.Status = entity.StatusAuthorized
	doc.AccessKey = "35230800000000000165650010000000421000000427"
	doc.Protocol = "135230000012345"

	result, err := client.Cancel(context.Background(), doc, "erro de digitação")
	require.NoError(t, err)

	assert.Equal(t, fiscal.GatewayCanceled, result.Status)
	assert.Contains(t, result.Payload, "<tpEvento>110111</tpEvento>")
	assert.Contains(t, result.Payload, "erro de digitacao")
}

func TestQueryStatus_NaoPersistePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "http://www.portalfiscal.inf.br/nfe/wsdl/NFeConsultaProtocolo4", r.Header.Get("SOAPAction"))
		fmt.Fprint(w, respostaAutoridade("100", "Autorizado o uso da NF-e", "135230000012345", ""))
	}))
	defer srv.Close()

	client := NewClient(EnvHomologacao, srv.URL)
	doc, _ := sampleDoc()

	result, err := client.QueryStatus(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, fiscal.GatewayAuthorized, result.Status)
	assert.Empty(t, result.Payload, "consulta não gera payload de transmissão")
}

func TestNewClient_EndpointsPorAmbiente(t *testing.T) {
	homolog := NewClient(EnvHomologacao, "")
	assert.Equal(t, urlNFCeHomologacao, homolog.nfceURL)
	assert.Equal(t, urlNFSeHomologacao, homolog.nfseURL)

	prod := NewClient(EnvProducao, "")
	assert.Equal(t, urlNFCeProducao, prod.nfceURL)
	assert.Equal(t, urlNFSeProducao, prod.nfseURL)

	override := NewClient(EnvProducao, "http://localhost:9090/ws")
	assert.Equal(t, "http://localhost:9090/ws", override.nfceURL)
	assert.Equal(t, "http://localhost:9090/ws", override.nfseURL)
}
