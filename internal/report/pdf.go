package report

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"example.com/canview/internal/highlight"
)

// PDFOptions controls PDF rendering. Core PDF fonts cover Latin-1 only, so
// non-English labels need FontPath pointing at a UTF-8 TrueType font; without
// one the labels fall back to English.
type PDFOptions struct {
	Lang     Language
	FontPath string
}

type summaryItem struct {
	label string
	value string
}

var pdfColumnWidths = []float64{12, 38, 40, 62, 55, 70}

type pdfDoc struct {
	pdf  *gofpdf.Fpdf
	tr   Translator
	font string
	text func(string) string
}

// SaveViewPDF renders rep into a PDF file.
func SaveViewPDF(rep ViewReport, out string, opts PDFOptions) error {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := WriteViewPDF(f, rep, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteViewPDF renders rep as a landscape A4 table of the visible rows.
func WriteViewPDF(w io.Writer, rep ViewReport, opts PDFOptions) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	doc := &pdfDoc{pdf: pdf, font: "Helvetica"}
	if opts.FontPath != "" {
		pdf.AddUTF8Font("viewfont", "", opts.FontPath)
		pdf.AddUTF8Font("viewfont", "B", opts.FontPath)
		doc.font = "viewfont"
		doc.tr = NewTranslator(opts.Lang)
		doc.text = func(s string) string { return s }
	} else {
		doc.tr = NewTranslator(LangEnglish)
		doc.text = pdf.UnicodeTranslatorFromDescriptor("")
	}

	title := doc.tr.T("title")
	pdf.SetTitle(title, true)
	pdf.SetAuthor("canview", false)
	pdf.SetCreator("canview", false)
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	doc.addTitle(title)
	doc.addSummarySection(rep)
	doc.addRowsSection(rep.Rows)

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.Output(w)
}

func (d *pdfDoc) addTitle(title string) {
	d.pdf.SetFont(d.font, "B", 18)
	d.pdf.Cell(0, 10, d.text(title))
	d.pdf.Ln(12)
}

func (d *pdfDoc) addSummarySection(rep ViewReport) {
	pdf := d.pdf
	top := pdf.GetY()
	pdf.SetFont(d.font, "B", 12)
	pdf.Cell(0, 8, d.text(d.tr.T("summary")))
	pdf.Ln(8)

	pdf.SetFont(d.font, "", 10)
	items := []summaryItem{
		{label: d.tr.T("file"), value: emptyFallback(rep.File, "-")},
		{label: d.tr.T("protocol"), value: emptyFallback(rep.Protocol, "-")},
		{label: d.tr.T("generated"), value: rep.Generated.Format(time.RFC3339)},
		{label: d.tr.T("rows_total"), value: strconv.Itoa(rep.Summary.TotalRaw)},
		{label: d.tr.T("rows_projected"), value: strconv.Itoa(rep.Summary.Projected)},
		{label: d.tr.T("rows_visible"), value: strconv.Itoa(rep.Summary.Visible)},
		{label: d.tr.T("rows_hidden"), value: strconv.Itoa(rep.Summary.Hidden)},
	}
	if rep.Search != "" {
		items = append(items, summaryItem{d.tr.T("search"), rep.Search})
	}
	if len(rep.Hidden) > 0 {
		items = append(items, summaryItem{d.tr.T("hidden_ids"), strings.Join(rep.Hidden, ", ")})
	}
	if rep.Digest != "" {
		items = append(items, summaryItem{d.tr.T("digest"), rep.Digest})
	}
	for _, item := range items {
		pdf.CellFormat(45, 6, d.text(item.label), "", 0, "L", false, 0, "")
		pdf.CellFormat(170, 6, d.text(item.value), "", 1, "L", false, 0, "")
	}
	if msg := d.tr.SummaryMessage(rep.Summary); msg != "" {
		pdf.SetFont(d.font, "", 9)
		pdf.CellFormat(0, 6, d.text(msg), "", 1, "L", false, 0, "")
	}
	d.addDigestQR(rep.File, rep.Digest, top)
	pdf.Ln(4)
}

func (d *pdfDoc) addDigestQR(file, digest string, top float64) {
	if digest == "" {
		return
	}
	png, err := SourceQR(file, digest, 256)
	if err != nil {
		return
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.RegisterImageOptionsReader("digest-qr", opts, bytes.NewReader(png))
	pageW, _ := d.pdf.GetPageSize()
	_, _, right, _ := d.pdf.GetMargins()
	const size = 35.0
	d.pdf.ImageOptions("digest-qr", pageW-right-size, top, size, size, false, opts, 0, "")
}

func (d *pdfDoc) addRowsSection(viewRows []ViewRow) {
	pdf := d.pdf
	headers := d.tr.Columns()
	pdf.SetFillColor(240, 240, 240)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(d.font, "B", 9)
	for i, h := range headers {
		pdf.CellFormat(pdfColumnWidths[i], 7, d.text(h), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(d.font, "", 8)
	if len(viewRows) == 0 {
		pdf.MultiCell(0, 6, d.text(d.tr.T("no_rows")), "1", "C", false)
		return
	}
	for _, r := range viewRows {
		values := append([]string{strconv.Itoa(r.LineNumber)}, r.Cells()...)
		for i := range values {
			values[i] = d.text(values[i])
		}
		d.renderTableRow(values, r.Style, 4.5)
	}
}

// renderTableRow draws one wrapped row; every cell takes the height of the
// tallest one. A style sets the fill and text colour of the whole row.
func (d *pdfDoc) renderTableRow(values []string, style *highlight.Style, lineHeight float64) {
	pdf := d.pdf
	fill := false
	pdf.SetTextColor(0, 0, 0)
	if style != nil {
		if r, g, b, ok := highlight.ParseColor(style.BackgroundColor); ok {
			pdf.SetFillColor(r, g, b)
			fill = true
		}
		if r, g, b, ok := highlight.ParseColor(style.TextColor); ok {
			pdf.SetTextColor(r, g, b)
		}
	}

	splitCols := make([][]string, len(values))
	maxLines := 1
	for i, val := range values {
		text := strings.TrimSpace(val)
		if text == "" {
			text = " "
		}
		lines := pdf.SplitText(text, pdfColumnWidths[i]-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+rowHeight > pageH-bottom {
		pdf.AddPage()
	}

	rectStyle := "D"
	if fill {
		rectStyle = "FD"
	}
	xStart, yStart := pdf.GetX(), pdf.GetY()
	x := xStart
	for i, lines := range splitCols {
		pdf.Rect(x, yStart, pdfColumnWidths[i], rowHeight, rectStyle)
		pdf.SetXY(x, yStart)
		pdf.MultiCell(pdfColumnWidths[i], lineHeight, strings.Join(lines, "\n"), "", "L", false)
		x += pdfColumnWidths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
	pdf.SetTextColor(0, 0, 0)
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
