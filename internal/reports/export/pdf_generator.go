package export

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"

	"top-posts-report/report-backend/internal/media"
)

// PDFDocument lays out key/value tables onto a paginated PDF.
type PDFDocument struct {
	pdf        *gofpdf.Fpdf
	options    PDFOptions
	fontFamily string
	utf8       bool
	tr         func(string) string
	imageSeq   int
	tables   int
	embedded int
	demoted  int
}

// PDFOptions configures PDF generation
type PDFOptions struct {
	PageSize     string     `json:"page_size"`   // A4, Letter, Legal
	Orientation  string     `json:"orientation"` // portrait, landscape
	Unit         string     `json:"unit"`
	Title        string     `json:"title"`
	Author       string     `json:"author,omitempty"`
	Creator      string     `json:"creator,omitempty"`
	FontFamily   string     `json:"font_family"`
	FontSize     float64    `json:"font_size"`
	LineHeight   float64    `json:"line_height"`
	CellPadding  float64    `json:"cell_padding"`
	Margins      PDFMargins `json:"margins"`
	ColumnWidths [2]float64 `json:"column_widths"`
	ImageWidth   float64    `json:"image_width"`
	ImageHeight  float64    `json:"image_height"`
	Compress     bool       `json:"compress"`
	// UTF8FontFile is a TrueType font used instead of the core font so text
	// outside cp1252 survives. Missing files fall back to FontFamily.
	UTF8FontFile string `json:"utf8_font_file,omitempty"`
}

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Named colors used by the table styles.
var (
	ColorBlack      = PDFColor{R: 0, G: 0, B: 0}
	ColorWhiteSmoke = PDFColor{R: 245, G: 245, B: 245}
	ColorLightGrey  = PDFColor{R: 211, G: 211, B: 211}
	ColorLightBlue  = PDFColor{R: 173, G: 216, B: 230}
	ColorLink       = PDFColor{R: 0, G: 0, B: 238}
)

// PDFMargins represents page margins
type PDFMargins struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// TableStyle describes how one table is painted.
type TableStyle struct {
	HeaderFill          PDFColor
	HeaderText          PDFColor
	HeaderFontStyle     string
	HeaderBottomPadding float64
	BodyFill            PDFColor
	BodyText            PDFColor
	Grid                PDFColor
	GridWidth           float64
	TopPadding          float64
	BottomPadding       float64
}

// IdentityStyle is the dark-header style of a post's identity table.
func IdentityStyle() TableStyle {
	return TableStyle{
		HeaderFill:          ColorBlack,
		HeaderText:          ColorWhiteSmoke,
		HeaderBottomPadding: 12,
		BodyFill:            ColorWhiteSmoke,
		BodyText:            ColorBlack,
		Grid:                ColorLightGrey,
		GridWidth:           1,
		TopPadding:          6,
		BottomPadding:       3,
	}
}

// CommentStyle is the light blue style of a post's comment table.
func CommentStyle() TableStyle {
	return TableStyle{
		HeaderFill:          ColorLightBlue,
		HeaderText:          ColorBlack,
		HeaderBottomPadding: 12,
		BodyFill:            ColorLightBlue,
		BodyText:            ColorBlack,
		Grid:                ColorBlack,
		GridWidth:           1,
		TopPadding:          6,
		BottomPadding:       3,
	}
}

// CellKind selects how a value cell is drawn
type CellKind int

const (
	CellText CellKind = iota
	CellImage
	CellLink
)

// Cell is the value side of a table row. Image cells also carry Link, which
// is drawn instead when the image cannot be embedded.
type Cell struct {
	Kind  CellKind
	Text  string
	Link  string
	Image *media.Image
}

// TextCell returns a plain text cell
func TextCell(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// LinkCell returns a clickable cell whose label is the target itself.
func LinkCell(target string) Cell {
	return Cell{Kind: CellLink, Text: target, Link: target}
}

// ImageCell returns an embedded image cell that falls back to a link on ref.
func ImageCell(img *media.Image, ref string) Cell {
	return Cell{Kind: CellImage, Text: ref, Link: ref, Image: img}
}

// TableRow is one label/value line
type TableRow struct {
	Label string
	Value Cell
}

// KeyValueTable is a two-column table with a header line.
type KeyValueTable struct {
	Header TableRow
	Rows   []TableRow
	Style  TableStyle
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:    "Letter",
		Orientation: "landscape",
		Unit:        "pt",
		Title:       "Report",
		Creator:     "top-posts-report",
		FontFamily:  "Helvetica",
		FontSize:    10,
		LineHeight:  12,
		CellPadding: 6,
		Margins: PDFMargins{
			Left:   80,
			Right:  72,
			Top:    10,
			Bottom: 72,
		},
		ColumnWidths: [2]float64{100, 570},
		ImageWidth:   144,
		ImageHeight:  108,
		Compress:     true,
	}
}

// NewPDFDocument creates a document with its first page added
func NewPDFDocument(options PDFOptions) *PDFDocument {
	orientation := "P"
	if options.Orientation == "landscape" {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, options.Unit, options.PageSize, "")
	pdf.SetMargins(options.Margins.Left, options.Margins.Top, options.Margins.Right)
	// Rows are placed by drawSegment, which does its own page breaks.
	pdf.SetAutoPageBreak(false, options.Margins.Bottom)
	pdf.SetCompression(options.Compress)
	pdf.SetTitle(options.Title, true)
	pdf.SetCreator(options.Creator, true)
	if options.Author != "" {
		pdf.SetAuthor(options.Author, true)
	}
	pdf.SetCreationDate(time.Now())

	d := &PDFDocument{
		pdf:        pdf,
		options:    options,
		fontFamily: options.FontFamily,
		tr:         pdf.UnicodeTranslatorFromDescriptor(""),
	}
	d.loadUTF8Font(options.UTF8FontFile)

	pdf.SetFont(d.fontFamily, "", options.FontSize)
	pdf.AddPage()
	return d
}

const utf8FontFamily = "ReportUTF8"

// loadUTF8Font switches the document to a TrueType font when path names a
// readable font file. Core fonts only cover cp1252.
func (d *PDFDocument) loadUTF8Font(path string) {
	if path == "" {
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}
	d.pdf.AddUTF8Font(utf8FontFamily, "", path)
	d.pdf.AddUTF8Font(utf8FontFamily, "B", path)
	if !d.pdf.Ok() {
		d.pdf.ClearError()
		return
	}
	d.fontFamily = utf8FontFamily
	d.utf8 = true
	d.tr = func(s string) string { return strings.Map(bmpOnly, s) }
}

// bmpOnly replaces runes the TrueType width table cannot index.
func bmpOnly(r rune) rune {
	if r > 0xFFFF {
		return utf8.RuneError
	}
	return r
}

// UsesUTF8Font reports whether text is set in the TrueType font.
func (d *PDFDocument) UsesUTF8Font() bool {
	return d.utf8
}

// AddTable appends a table at the current position, flowing rows onto new
// pages as needed.
func (d *PDFDocument) AddTable(t KeyValueTable) {
	d.drawRow(t.Header.Label, t.Header.Value, t.Style, true)
	for _, row := range t.Rows {
		d.drawRow(row.Label, row.Value, t.Style, false)
	}
	d.tables++
}

// AddSpacer adds vertical space after the current position
func (d *PDFDocument) AddSpacer(height float64) {
	d.pdf.SetY(d.pdf.GetY() + height)
}

// Tables returns the number of tables added
func (d *PDFDocument) Tables() int {
	return d.tables
}

// PageCount returns the number of pages
func (d *PDFDocument) PageCount() int {
	return d.pdf.PageNo()
}

// EmbeddedImages returns the number of images placed in the document
func (d *PDFDocument) EmbeddedImages() int {
	return d.embedded
}

// DemotedImages returns the number of image cells drawn as links because the
// PDF writer rejected the image.
func (d *PDFDocument) DemotedImages() int {
	return d.demoted
}

// rowPaint is the resolved look of one table row
type rowPaint struct {
	fontStyle string
	fill      PDFColor
	text      PDFColor
	grid      PDFColor
	gridWidth float64
	top       float64
	bottom    float64
}

func (d *PDFDocument) drawRow(label string, value Cell, style TableStyle, header bool) {
	pad := d.options.CellPadding
	w0, w1 := d.options.ColumnWidths[0], d.options.ColumnWidths[1]

	p := rowPaint{
		fill:      style.BodyFill,
		text:      style.BodyText,
		grid:      style.Grid,
		gridWidth: style.GridWidth,
		top:       style.TopPadding,
		bottom:    style.BottomPadding,
	}
	if header {
		p.fontStyle = style.HeaderFontStyle
		p.fill, p.text = style.HeaderFill, style.HeaderText
		p.bottom = style.HeaderBottomPadding
	}
	d.pdf.SetFont(d.fontFamily, p.fontStyle, d.options.FontSize)

	imageName := ""
	if value.Kind == CellImage {
		var ok bool
		if imageName, ok = d.registerImage(value.Image); !ok {
			value = LinkCell(value.Link)
			d.demoted++
		}
	}

	labelLines := d.splitLines(label, w0-2*pad)
	if value.Kind == CellImage {
		d.drawSegment(labelLines, nil, value, imageName, p)
		return
	}

	if value.Kind == CellLink {
		d.pdf.SetFont(d.fontFamily, p.fontStyle+"U", d.options.FontSize)
	}
	valueLines := d.splitLines(value.Text, w1-2*pad)

	// Text taller than a page continues in rows on the following pages.
	perPage := d.linesPerPage(p.top + p.bottom)
	for len(labelLines) > 0 || len(valueLines) > 0 {
		var labelChunk, valueChunk []string
		labelChunk, labelLines = takeLines(labelLines, perPage)
		valueChunk, valueLines = takeLines(valueLines, perPage)
		d.drawSegment(labelChunk, valueChunk, value, "", p)
	}
}

// drawSegment paints one row box holding the given lines, starting a new
// page first when the box does not fit below the current position.
func (d *PDFDocument) drawSegment(labelLines, valueLines []string, value Cell, imageName string, p rowPaint) {
	pad := d.options.CellPadding
	w0, w1 := d.options.ColumnWidths[0], d.options.ColumnWidths[1]

	contentH := float64(max(len(labelLines), len(valueLines))) * d.options.LineHeight
	if imageName != "" {
		contentH = math.Max(contentH, d.options.ImageHeight)
	}
	rowH := p.top + contentH + p.bottom

	x := d.options.Margins.Left
	y := d.pdf.GetY()
	_, pageH := d.pdf.GetPageSize()
	if y+rowH > pageH-d.options.Margins.Bottom && y > d.options.Margins.Top {
		d.pdf.AddPage()
		y = d.pdf.GetY()
	}

	d.pdf.SetLineWidth(p.gridWidth)
	d.pdf.SetDrawColor(p.grid.R, p.grid.G, p.grid.B)
	d.pdf.SetFillColor(p.fill.R, p.fill.G, p.fill.B)
	d.pdf.Rect(x, y, w0, rowH, "FD")
	d.pdf.Rect(x+w0, y, w1, rowH, "FD")

	top := y + p.top
	d.pdf.SetTextColor(p.text.R, p.text.G, p.text.B)
	d.pdf.SetFont(d.fontFamily, p.fontStyle, d.options.FontSize)
	d.writeLines(labelLines, x+pad, top, w0-2*pad, "")

	switch {
	case imageName != "":
		d.pdf.ImageOptions(imageName, x+w0+pad, top, d.options.ImageWidth, d.options.ImageHeight,
			false, gofpdf.ImageOptions{ImageType: value.Image.Type}, 0, value.Link)
		d.embedded++
	case value.Kind == CellLink:
		d.pdf.SetTextColor(ColorLink.R, ColorLink.G, ColorLink.B)
		d.pdf.SetFont(d.fontFamily, p.fontStyle+"U", d.options.FontSize)
		d.writeLines(valueLines, x+w0+pad, top, w1-2*pad, value.Link)
	default:
		d.writeLines(valueLines, x+w0+pad, top, w1-2*pad, "")
	}

	d.pdf.SetXY(x, y+rowH)
}

// linesPerPage is the number of text lines a single row can hold on an
// empty page.
func (d *PDFDocument) linesPerPage(padding float64) int {
	_, pageH := d.pdf.GetPageSize()
	avail := pageH - d.options.Margins.Top - d.options.Margins.Bottom - padding
	if n := int(avail / d.options.LineHeight); n > 1 {
		return n
	}
	return 1
}

func takeLines(lines []string, n int) ([]string, []string) {
	if len(lines) <= n {
		return lines, nil
	}
	return lines[:n], lines[n:]
}

func (d *PDFDocument) registerImage(img *media.Image) (string, bool) {
	if img == nil || len(img.Data) == 0 {
		return "", false
	}
	d.imageSeq++
	name := fmt.Sprintf("media-%d", d.imageSeq)
	d.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: img.Type}, bytes.NewReader(img.Data))
	if !d.pdf.Ok() {
		d.pdf.ClearError()
		return "", false
	}
	return name, true
}

func (d *PDFDocument) splitLines(s string, width float64) []string {
	if s == "" {
		return []string{""}
	}
	if d.utf8 {
		return d.pdf.SplitText(d.tr(s), width)
	}
	raw := d.pdf.SplitLines([]byte(d.tr(s)), width)
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = string(l)
	}
	return lines
}

func (d *PDFDocument) writeLines(lines []string, x, y, w float64, link string) {
	lh := d.options.LineHeight
	for i, line := range lines {
		d.pdf.SetXY(x, y+float64(i)*lh)
		d.pdf.CellFormat(w, lh, line, "", 0, "LM", false, 0, link)
	}
}

// WriteTo writes the PDF to a writer
func (d *PDFDocument) WriteTo(w io.Writer) error {
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("pdf layout failed: %w", err)
	}
	if err := d.pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

// SaveAs writes the PDF to path atomically. On failure path is left
// untouched.
func (d *PDFDocument) SaveAs(path string) error {
	return WriteFileAtomic(path, d.WriteTo)
}
