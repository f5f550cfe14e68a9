package sefaz

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfarias/gestor-api/internal/domain/entity"
)

func TestBuildNFCe_EstruturaDoLayout(t *testing.T) {
	doc, items := sampleDoc()
	doc.ServiceOrderID = "os-77"

	xml, err := NewPayloadBuilder().BuildNFCe(doc, items)
	require.NoError(t, err)

	assert.Contains(t, xml, `<NFe xmlns="http://www.portalfiscal.inf.br/nfe">`)
	assert.Contains(t, xml, `versao="4.00"`)
	assert.Contains(t, xml, "<mod>65</mod>")
	assert.Contains(t, xml, "<serie>1</serie>")
	assert.Contains(t, xml, "<nNF>42</nNF>")
	assert.Contains(t, xml, "<xProd>Manutencao preventiva</xProd>")
	assert.Contains(t, xml, "<vNF>105.00</vNF>")
	assert.Contains(t, xml, "<infCpl>OS os-77</infCpl>")
}

func TestBuildNFSe_EstruturaABRASF(t *testing.T) {
	doc, items := sampleDoc()
	doc.DocumentType = entity.DocumentTypeNFSe
	items = append(items, &entity.FiscalDocumentItem{
		Description: "Instalação de peça",
		ServiceCode: "14.01",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(50),
		Subtotal:    decimal.NewFromInt(50),
	})

	xml, err := NewPayloadBuilder().BuildNFSe(doc, items)
	require.NoError(t, err)

	assert.Contains(t, xml, `<GerarNfseEnvio xmlns="http://www.abrasf.org.br/nfse.xsd">`)
	assert.Contains(t, xml, "<ValorServicos>100.00</ValorServicos>")
	assert.Contains(t, xml, "<Aliquota>0.0500</Aliquota>")
	assert.Contains(t, xml, "<BaseCalculo>100.00</BaseCalculo>")
	assert.Contains(t, xml, "<ItemListaServico>14.01</ItemListaServico>")
	// Discriminação junta todos os itens, sem acentos.
	assert.Contains(t, xml, "<Discriminacao>Manutencao preventiva; Instalacao de peca</Discriminacao>")
	assert.Contains(t, xml, "<Competencia>"+doc.CreatedAt.Format("2006-01-02")+"</Competencia>")
}

func TestBuildCancelamento(t *testing.T) {
	doc, _ := sampleDoc()
	doc.AccessKey = "35230800000000000165650010000000421000000427"
	doc.Protocol = "135230000012345"

	xml, err := NewPayloadBuilder().BuildCancelamento(doc, "cliente desistiu da compra")
	require.NoError(t, err)

	assert.Contains(t, xml, "<chNFe>"+doc.AccessKey+"</chNFe>")
	assert.Contains(t, xml, "<tpEvento>110111</tpEvento>")
	assert.Contains(t, xml, "<nProt>"+doc.Protocol+"</nProt>")
	assert.Contains(t, xml, "<xJust>cliente desistiu da compra</xJust>")
}

func TestBuildConsulta_PorChaveOuPorNumero(t *testing.T) {
	doc, _ := sampleDoc()
	doc.AccessKey = "35230800000000000165650010000000421000000427"

	comChave, err := NewPayloadBuilder().BuildConsulta(doc)
	require.NoError(t, err)
	assert.Contains(t, comChave, "<chNFe>"+doc.AccessKey+"</chNFe>")
	assert.NotContains(t, comChave, "<nNF>")

	doc.AccessKey = ""
	semChave, err := NewPayloadBuilder().BuildConsulta(doc)
	require.NoError(t, err)
	assert.Contains(t, semChave, "<serie>1</serie>")
	assert.Contains(t, semChave, "<nNF>42</nNF>")
}

func TestBuild_DocumentoNuloFalha(t *testing.T) {
	b := NewPayloadBuilder()

	_, err := b.BuildNFCe(nil, nil)
	assert.Error(t, err)
	_, err = b.BuildNFSe(nil, nil)
	assert.Error(t, err)
	_, err = b.BuildCancelamento(nil, "x")
	assert.Error(t, err)
	_, err = b.BuildConsulta(nil)
	assert.Error(t, err)
}

func TestRemoveAcentos(t *testing.T) {
	cases := map[string]string{
		"Manutenção elétrica":   "Manutencao eletrica",
		"João & Cia":            "Joao & Cia",
		"sem acento":            "sem acento",
		"ÁÉÍÓÚ àèìòù âêîôû ãõç": "AEIOU aeiou aeiou aoc",
	}
	for in, want := range cases {
		assert.Equal(t, want, removeAcentos(in), in)
	}
}

// dhEmi usa a data de criação do documento, não o relógio do builder.
func TestBuildNFCe_DataDeEmissao(t *testing.T) {
	doc, items := sampleDoc()
	doc.CreatedAt = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	xml, err := NewPayloadBuilder().BuildNFCe(doc, items)
	require.NoError(t, err)
	assert.Contains(t, xml, "<dhEmi>2026-03-15T10:30:00Z</dhEmi>")
}
