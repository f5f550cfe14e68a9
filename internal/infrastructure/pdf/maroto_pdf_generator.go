// Package pdf implementa a geração do espelho (representação gráfica) do
// documento fiscal eletrônico autorizado.
//
// Layout da página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Tipo do documento  │  Número/Série + Data           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOMADOR: Nome + CPF/CNPJ + município                       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABELA: Qtd | Descrição | Cód. serviço | P.Unit | Subtotal │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAIS: Valor bruto / Desconto / ISS / TOTAL               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: Protocolo + Chave de acesso + QR + legenda legal   │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/vfarias/gestor-api/internal/application/fiscal"
	"github.com/vfarias/gestor-api/internal/domain/entity"
)

// ── Paleta de cores ───────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 16, Green: 83, Blue: 52}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

var _ fiscal.DocumentPDFGenerator = (*MarotoPDFGenerator)(nil)

// MarotoPDFGenerator implementa fiscal.DocumentPDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator constrói o gerador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateDocumentPDF gera o PDF e devolve seus bytes.
func (g *MarotoPDFGenerator) GenerateDocumentPDF(
	_ context.Context,
	doc *entity.FiscalDocument,
	client *entity.Client,
	items []*entity.FiscalDocumentItem,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(docTitle(doc.DocumentType), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tomadorRow(client))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableItemRows(items) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(doc))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range fiscalFooterRows(doc) {
		m.AddRows(r)
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: gerar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Seções ────────────────────────────────────────────────────────────────────

func docTitle(documentType string) string {
	if documentType == entity.DocumentTypeNFSe {
		return "NFS-e - Nota Fiscal de Serviços Eletrônica"
	}
	return "NFC-e - Nota Fiscal de Consumidor Eletrônica"
}

// headerRow: tipo do documento (esq) e número/série + data (dir).
func headerRow(doc *entity.FiscalDocument) core.Row {
	numero := fmt.Sprintf("Nº %d  Série %s", doc.Number, doc.Series)
	data := doc.CreatedAt.Format("02/01/2006")

	return row.New(18).Add(
		col.New(7).Add(
			text.New(docTitle(doc.DocumentType), props.Text{
				Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1,
			}),
			text.New("DOCUMENTO AUXILIAR - ESPELHO", props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(numero, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 3,
			}),
			text.New("Emissão: "+data, props.Text{
				Size: 8, Align: align.Right, Top: 11, Color: colorGray,
			}),
		),
	)
}

// tomadorRow: dados do tomador/consumidor.
func tomadorRow(client *entity.Client) core.Row {
	name := "CONSUMIDOR NÃO IDENTIFICADO"
	detalhe := ""
	if client != nil {
		name = client.Name
		detalhe = fmt.Sprintf("CPF/CNPJ: %s   |   Município: %s",
			client.TaxID, nonEmpty(client.Municipality, "—"))
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("TOMADOR / CONSUMIDOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(name, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(detalhe, props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabeçalho da tabela de itens.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Qtd.", 1, align.Center),
		h("Descrição do serviço", 5, align.Left),
		h("Código", 2, align.Center),
		h("Preço Unit.", 2, align.Right),
		h("Subtotal", 2, align.Right),
	)
}

// tableItemRows: uma linha por item do documento.
func tableItemRows(items []*entity.FiscalDocumentItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				it.Quantity.StringFixed(0),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(5).Add(text.New(
				it.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				it.ServiceCode,
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				"R$ "+formatMoney(it.UnitPrice.StringFixed(2)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(2).Add(text.New(
				"R$ "+formatMoney(it.Subtotal.StringFixed(2)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: bloco de totais alinhado à direita.
func totalsRow(doc *entity.FiscalDocument) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	return row.New(32).Add(
		col.New(3),
		col.New(4).Add(
			label("Valor bruto:"),
			label("Desconto:"),
			label("ISS retido:"),
			grandLabel("TOTAL:"),
		),
		col.New(4).Add(
			value("R$ "+formatMoney(doc.GrossAmount.StringFixed(2))),
			value("R$ "+formatMoney(doc.Discount.StringFixed(2))),
			value("R$ "+formatMoney(doc.TaxAmount.StringFixed(2))),
			grandValue("R$ "+formatMoney(doc.Total.StringFixed(2))),
		),
		col.New(1),
	)
}

// fiscalFooterRows: protocolo, chave de acesso partida, QR e legenda legal.
func fiscalFooterRows(doc *entity.FiscalDocument) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("INFORMAÇÕES DA AUTORIZAÇÃO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}

	if doc.Protocol != "" {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New("Protocolo de autorização: "+doc.Protocol, props.Text{
				Size: 7, Top: 1,
			}),
		)))
	}

	// Chave de acesso partida em fragmentos de 4 dígitos
	if doc.AccessKey != "" {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New("Chave de acesso:", props.Text{
				Style: fontstyle.Bold, Size: 7, Top: 1,
			}),
		)))
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New(strings.Join(splitEvery(doc.AccessKey, 4), " "), props.Text{
				Size: 6.5, Color: colorGray, Top: 0.5, Left: 2,
			}),
		)))
	}

	rows = append(rows, row.New(3))

	if doc.AccessKey != "" {
		rows = append(rows, row.New(45).Add(
			col.New(4).Add(code.NewQr(doc.AccessKey, props.Rect{
				Percent: 95,
				Center:  true,
			})),
			col.New(8).Add(
				text.New("Consulte pela chave de acesso\nno portal da autoridade fiscal.", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
			),
		))
	}

	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Espelho gerado a partir do documento fiscal eletrônico autorizado. "+
				"Não substitui o documento transmitido à autoridade.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))

	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney troca o separador decimal por vírgula e insere pontos de milhar.
// Ex: "25000.00" → "25.000,00"
func formatMoney(s string) string {
	intPart := s
	decPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		decPart = "," + s[i+1:]
	}
	n := len(intPart)
	if n <= 3 {
		return intPart + decPart
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf) + decPart
}

// splitEvery divide s em pedaços de no máximo n caracteres.
func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
