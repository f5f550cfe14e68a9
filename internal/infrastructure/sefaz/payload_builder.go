package sefaz

import (
	"fmt"
	"time"
	"unicode"

	"github.com/beevik/etree"
	"github.com/vfarias/gestor-api/internal/domain/entity"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PayloadBuilder monta o XML dos documentos no layout exigido pela autoridade.
// Textos livres passam por removeAcentos: os validadores da SEFAZ rejeitam
// caracteres fora do conjunto básico em vários campos.
type PayloadBuilder struct{}

// NewPayloadBuilder cria o builder.
func NewPayloadBuilder() *PayloadBuilder {
	return &PayloadBuilder{}
}

// BuildNFCe gera o XML de autorização da NFC-e (layout 4.00 simplificado).
func (b *PayloadBuilder) BuildNFCe(doc *entity.FiscalDocument, items []*entity.FiscalDocumentItem) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("sefaz: documento vazio")
	}
	d := etree.NewDocument()
	d.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	nfe := d.CreateElement("NFe")
	nfe.CreateAttr("xmlns", "http://www.portalfiscal.inf.br/nfe")
	inf := nfe.CreateElement("infNFe")
	inf.CreateAttr("Id", "NFe"+doc.ID)
	inf.CreateAttr("versao", "4.00")

	ide := inf.CreateElement("ide")
	ide.CreateElement("mod").SetText("65") // modelo NFC-e
	ide.CreateElement("serie").SetText(doc.Series)
	ide.CreateElement("nNF").SetText(fmt.Sprintf("%d", doc.Number))
	ide.CreateElement("dhEmi").SetText(doc.CreatedAt.Format(time.RFC3339))

	dest := inf.CreateElement("dest")
	dest.CreateElement("idDest").SetText(doc.ClientID)
	if doc.ServiceOrderID != "" {
		inf.CreateElement("infAdic").
			CreateElement("infCpl").SetText("OS " + doc.ServiceOrderID)
	}

	for i, it := range items {
		det := inf.CreateElement("det")
		det.CreateAttr("nItem", fmt.Sprintf("%d", i+1))
		prod := det.CreateElement("prod")
		prod.CreateElement("cProd").SetText(it.ServiceCode)
		prod.CreateElement("xProd").SetText(removeAcentos(it.Description))
		prod.CreateElement("qCom").SetText(it.Quantity.String())
		prod.CreateElement("vUnCom").SetText(it.UnitPrice.StringFixed(2))
		prod.CreateElement("vDesc").SetText(it.Discount.StringFixed(2))
		prod.CreateElement("vProd").SetText(it.Subtotal.StringFixed(2))
	}

	total := inf.CreateElement("total").CreateElement("ICMSTot")
	total.CreateElement("vProd").SetText(doc.GrossAmount.StringFixed(2))
	total.CreateElement("vDesc").SetText(doc.Discount.StringFixed(2))
	total.CreateElement("vTotTrib").SetText(doc.TaxAmount.StringFixed(2))
	total.CreateElement("vNF").SetText(doc.Total.StringFixed(2))

	return serialize(d)
}

// BuildNFSe gera o XML de geração da NFS-e (padrão ABRASF 2.04 simplificado).
func (b *PayloadBuilder) BuildNFSe(doc *entity.FiscalDocument, items []*entity.FiscalDocumentItem) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("sefaz: documento vazio")
	}
	d := etree.NewDocument()
	d.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	envio := d.CreateElement("GerarNfseEnvio")
	envio.CreateAttr("xmlns", "http://www.abrasf.org.br/nfse.xsd")
	rps := envio.CreateElement("Rps").CreateElement("InfDeclaracaoPrestacaoServico")
	rps.CreateAttr("Id", "rps"+doc.ID)

	ident := rps.CreateElement("Rps").CreateElement("IdentificacaoRps")
	ident.CreateElement("Numero").SetText(fmt.Sprintf("%d", doc.Number))
	ident.CreateElement("Serie").SetText(doc.Series)
	ident.CreateElement("Tipo").SetText("1")
	rps.CreateElement("Competencia").SetText(doc.CreatedAt.Format("2006-01-02"))

	servico := rps.CreateElement("Servico")
	valores := servico.CreateElement("Valores")
	valores.CreateElement("ValorServicos").SetText(doc.GrossAmount.StringFixed(2))
	valores.CreateElement("ValorDeducoes").SetText(doc.Discount.StringFixed(2))
	valores.CreateElement("ValorIss").SetText(doc.TaxAmount.StringFixed(2))
	valores.CreateElement("Aliquota").SetText(doc.ISSRate.StringFixed(4))
	valores.CreateElement("BaseCalculo").SetText(doc.ISSBase.StringFixed(2))
	if len(items) > 0 {
		servico.CreateElement("ItemListaServico").SetText(items[0].ServiceCode)
		discriminacao := ""
		for i, it := range items {
			if i > 0 {
				discriminacao += "; "
			}
			discriminacao += removeAcentos(it.Description)
		}
		servico.CreateElement("Discriminacao").SetText(discriminacao)
	}

	tomador := rps.CreateElement("Tomador").CreateElement("IdentificacaoTomador")
	tomador.CreateElement("CpfCnpj").CreateElement("Cnpj").SetText(doc.ClientID)

	return serialize(d)
}

// BuildCancelamento gera o XML do evento de cancelamento.
func (b *PayloadBuilder) BuildCancelamento(doc *entity.FiscalDocument, reason string) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("sefaz: documento vazio")
	}
	d := etree.NewDocument()
	d.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	evento := d.CreateElement("envEvento")
	evento.CreateAttr("xmlns", "http://www.portalfiscal.inf.br/nfe")
	evento.CreateAttr("versao", "1.00")
	inf := evento.CreateElement("evento").CreateElement("infEvento")
	inf.CreateElement("chNFe").SetText(doc.AccessKey)
	inf.CreateElement("tpEvento").SetText("110111") // cancelamento
	inf.CreateElement("dhEvento").SetText(time.Now().Format(time.RFC3339))
	det := inf.CreateElement("detEvento")
	det.CreateAttr("versao", "1.00")
	det.CreateElement("descEvento").SetText("Cancelamento")
	det.CreateElement("nProt").SetText(doc.Protocol)
	det.CreateElement("xJust").SetText(removeAcentos(reason))

	return serialize(d)
}

// BuildConsulta gera o XML de consulta de situação do documento.
func (b *PayloadBuilder) BuildConsulta(doc *entity.FiscalDocument) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("sefaz: documento vazio")
	}
	d := etree.NewDocument()
	d.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	consulta := d.CreateElement("consSitNFe")
	consulta.CreateAttr("xmlns", "http://www.portalfiscal.inf.br/nfe")
	consulta.CreateAttr("versao", "4.00")
	consulta.CreateElement("tpAmb").SetText("2")
	consulta.CreateElement("xServ").SetText("CONSULTAR")
	if doc.AccessKey != "" {
		consulta.CreateElement("chNFe").SetText(doc.AccessKey)
	} else {
		// Documento ainda sem chave: consulta por número/série.
		consulta.CreateElement("serie").SetText(doc.Series)
		consulta.CreateElement("nNF").SetText(fmt.Sprintf("%d", doc.Number))
	}

	return serialize(d)
}

func serialize(d *etree.Document) (string, error) {
	d.Indent(2)
	out, err := d.WriteToString()
	if err != nil {
		return "", fmt.Errorf("sefaz: serializar XML: %w", err)
	}
	return out, nil
}

// removeAcentos troca caracteres acentuados pelo equivalente ASCII (NFD + remoção de marcas).
func removeAcentos(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
