package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter exports flat rows to a single Excel sheet
type ExcelExporter struct {
	file    *excelize.File
	options ExcelOptions
	nextRow int
}

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	SheetName    string            `json:"sheet_name"`
	FreezeHeader bool              `json:"freeze_header"`
	AutoFilter   bool              `json:"auto_filter"`
	HeaderStyle  *ExcelStyleConfig `json:"header_style,omitempty"`
	DataStyle    *ExcelStyleConfig `json:"data_style,omitempty"`
	AutoWidth    bool              `json:"auto_width"`
	MaxColWidth  float64           `json:"max_col_width"`
}

// ExcelStyleConfig defines style for cells
type ExcelStyleConfig struct {
	FontBold  bool   `json:"font_bold"`
	FontSize  int    `json:"font_size"`
	FontColor string `json:"font_color"`
	FillColor string `json:"fill_color"`
	Border    bool   `json:"border"`
	WrapText  bool   `json:"wrap_text"`
}

// DefaultExcelOptions returns default Excel export options, colored like the
// PDF identity table.
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		SheetName:    "Top posts",
		FreezeHeader: true,
		AutoFilter:   true,
		AutoWidth:    true,
		MaxColWidth:  60,
		HeaderStyle: &ExcelStyleConfig{
			FontBold:  true,
			FontSize:  11,
			FillColor: "000000",
			FontColor: "F5F5F5",
			Border:    true,
		},
		DataStyle: &ExcelStyleConfig{
			FontSize: 11,
			Border:   true,
			WrapText: true,
		},
	}
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(options ExcelOptions) *ExcelExporter {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", options.SheetName)

	return &ExcelExporter{
		file:    file,
		options: options,
		nextRow: 1,
	}
}

// WriteTable writes the header and rows and sizes the columns.
func (e *ExcelExporter) WriteTable(columns []string, rows [][]any) error {
	sheet := e.options.SheetName

	headerStyle, err := e.createStyle(e.options.HeaderStyle)
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	dataStyle, err := e.createStyle(e.options.DataStyle)
	if err != nil {
		return fmt.Errorf("failed to create data style: %w", err)
	}

	widths := make([]float64, len(columns))
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, e.nextRow)
		if err := e.file.SetCellValue(sheet, cell, col); err != nil {
			return fmt.Errorf("failed to set header: %w", err)
		}
		if headerStyle > 0 {
			e.file.SetCellStyle(sheet, cell, cell, headerStyle)
		}
		widths[i] = estimateWidth(col)
	}
	headerRow := e.nextRow
	e.nextRow++

	for _, row := range rows {
		for i, val := range row {
			cell, _ := excelize.CoordinatesToCellName(i+1, e.nextRow)
			if err := e.file.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("failed to set cell value: %w", err)
			}
			if dataStyle > 0 {
				e.file.SetCellStyle(sheet, cell, cell, dataStyle)
			}
			if i < len(widths) {
				widths[i] = max(widths[i], estimateWidth(fmt.Sprint(val)))
			}
		}
		e.nextRow++
	}

	if e.options.FreezeHeader {
		e.file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      headerRow,
			TopLeftCell: fmt.Sprintf("A%d", headerRow+1),
			ActivePane:  "bottomLeft",
		})
	}

	if e.options.AutoFilter && len(rows) > 0 {
		first, _ := excelize.CoordinatesToCellName(1, headerRow)
		last, _ := excelize.CoordinatesToCellName(len(columns), headerRow)
		e.file.AutoFilter(sheet, first+":"+last, nil)
	}

	if e.options.AutoWidth {
		for i, w := range widths {
			col, _ := excelize.ColumnNumberToName(i + 1)
			w = max(w, 10)
			if e.options.MaxColWidth > 0 {
				w = min(w, e.options.MaxColWidth)
			}
			e.file.SetColWidth(sheet, col, col, w)
		}
	}

	return nil
}

// WriteTo writes the Excel file to a writer
func (e *ExcelExporter) WriteTo(w io.Writer) error {
	_, err := e.file.WriteTo(w)
	return err
}

// SaveAs saves the Excel file to a path atomically
func (e *ExcelExporter) SaveAs(path string) error {
	return WriteFileAtomic(path, e.WriteTo)
}

// Close closes the Excel file
func (e *ExcelExporter) Close() error {
	return e.file.Close()
}

func (e *ExcelExporter) createStyle(config *ExcelStyleConfig) (int, error) {
	if config == nil {
		return 0, nil
	}

	style := &excelize.Style{
		Font: &excelize.Font{
			Bold:  config.FontBold,
			Size:  float64(config.FontSize),
			Color: config.FontColor,
		},
		Alignment: &excelize.Alignment{
			Vertical: "top",
			WrapText: config.WrapText,
		},
	}
	if config.FillColor != "" {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{config.FillColor},
		}
	}
	if config.Border {
		style.Border = []excelize.Border{
			{Type: "left", Color: "D3D3D3", Style: 1},
			{Type: "right", Color: "D3D3D3", Style: 1},
			{Type: "top", Color: "D3D3D3", Style: 1},
			{Type: "bottom", Color: "D3D3D3", Style: 1},
		}
	}

	return e.file.NewStyle(style)
}

// estimateWidth approximates the column width needed for the longest line of s
func estimateWidth(s string) float64 {
	longest, cur := 0, 0
	for _, r := range s {
		if r == '\n' {
			cur = 0
			continue
		}
		cur++
		longest = max(longest, cur)
	}
	return float64(longest) * 1.2
}
