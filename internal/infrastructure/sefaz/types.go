// Package sefaz implementa o adaptador de gateway para os web services da
// autoridade fiscal: autorização e cancelamento de NFC-e (SEFAZ estadual) e
// emissão de NFS-e (prefeitura, padrão ABRASF). O resto do sistema enxerga o
// gateway só através de fiscal.Gateway; os detalhes de protocolo ficam aqui.
package sefaz

import "encoding/xml"

// Ambientes da autoridade.
const (
	EnvHomologacao = "homologacao"
	EnvProducao    = "producao"

	urlNFCeHomologacao = "https://homologacao.nfce.fazenda.gov.br/ws/NFeAutorizacao4.asmx"
	urlNFCeProducao    = "https://nfce.fazenda.gov.br/ws/NFeAutorizacao4.asmx"
	urlNFSeHomologacao = "https://homologacao.nfse.prefeitura.gov.br/ws/nfse.asmx"
	urlNFSeProducao    = "https://nfse.prefeitura.gov.br/ws/nfse.asmx"

	soapNS         = "http://schemas.xmlsoap.org/soap/envelope/"
	soapActionBase = "http://www.portalfiscal.inf.br/nfe/wsdl/"
)

// Códigos de status (cStat) devolvidos pela autoridade. A lista completa tem
// centenas de códigos; aqui só os que mudam o desfecho.
const (
	cStatAutorizado         = "100" // Autorizado o uso
	cStatCancelado          = "101" // Cancelamento homologado
	cStatLoteEmProcesso     = "105" // Lote em processamento
	cStatServicoParalisado  = "108" // Serviço paralisado momentaneamente
	cStatEventoRegistrado   = "135" // Evento registrado e vinculado
	cStatCanceladoForaPrazo = "155" // Cancelamento homologado fora de prazo
)

// ── Estruturas SOAP ───────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name   `xml:"s:Envelope"`
	XmlnsS  string     `xml:"xmlns:s,attr"`
	Header  soapHeader `xml:"s:Header"`
	Body    soapBody   `xml:"s:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "s:Body"
	e.EncodeToken(start)
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// autorizacaoBody corpo da operação de autorização (NFeAutorizacao4 / GerarNfse).
type autorizacaoBody struct {
	XMLName xml.Name `xml:"nfeDadosMsg"`
	Xmlns   string   `xml:"xmlns,attr"`
	Dados   string   `xml:",innerxml"` // XML do documento já montado
}

// eventoBody corpo do evento de cancelamento (RecepcaoEvento4 / CancelarNfse).
type eventoBody struct {
	XMLName xml.Name `xml:"nfeDadosMsg"`
	Xmlns   string   `xml:"xmlns,attr"`
	Dados   string   `xml:",innerxml"`
}

// consultaBody corpo da consulta de situação (NfeConsultaProtocolo4 / ConsultarNfse).
type consultaBody struct {
	XMLName xml.Name `xml:"nfeDadosMsg"`
	Xmlns   string   `xml:"xmlns,attr"`
	Dados   string   `xml:",innerxml"`
}

// ── Estruturas de resposta ────────────────────────────────────────────────────

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	Retorno *retornoAutoridade `xml:"nfeResultMsg>retorno"`
	Fault   *soapFault         `xml:"Fault"`
}

// retornoAutoridade campos comuns das respostas da autoridade. nProt e chNFe
// só vêm preenchidos em desfechos definitivos.
type retornoAutoridade struct {
	CStat   string `xml:"cStat"`
	XMotivo string `xml:"xMotivo"`
	NProt   string `xml:"protNFe>infProt>nProt"`
	ChNFe   string `xml:"protNFe>infProt>chNFe"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}
