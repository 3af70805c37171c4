package reports

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"top-posts-report/report-backend/internal/reports/export"
)

// Companion export formats written next to the PDF.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// FlatRows flattens a batch into one row per record with the top_posts
// columns, absent comments left blank.
func FlatRows(batch Batch) [][]any {
	rows := make([][]any, 0, batch.Len())
	for _, rec := range batch.Records {
		row := []any{rec.Rank, rec.Title, rec.MediaURL, rec.Upvotes, rec.CommentCount}
		for _, c := range rec.Comments {
			if c.Present {
				row = append(row, c.Author, c.Score, c.Body)
			} else {
				row = append(row, nil, nil, nil)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// CompanionPath derives the path of a companion export from the PDF path.
func CompanionPath(pdfPath, format string) string {
	return strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + "." + format
}

// WriteCompanions writes the batch in each requested format next to pdfPath
// and returns the written paths. Either every companion is written or none
// is.
func WriteCompanions(batch Batch, pdfPath string, formats []string) ([]string, error) {
	stage := export.NewStaging()
	defer stage.Discard()

	written, err := StageCompanions(batch, pdfPath, formats, stage)
	if err != nil {
		return nil, err
	}
	if err := stage.Commit(); err != nil {
		return nil, &DocumentWriteError{Path: pdfPath, Err: err}
	}
	return written, nil
}

// StageCompanions writes each requested format to stage and returns the
// target paths. Nothing is visible until stage is committed.
func StageCompanions(batch Batch, pdfPath string, formats []string, stage *export.Staging) ([]string, error) {
	var staged []string
	for _, format := range formats {
		path := CompanionPath(pdfPath, format)
		if err := stageCompanion(batch, path, format, stage); err != nil {
			return nil, &DocumentWriteError{Path: path, Err: err}
		}
		staged = append(staged, path)
	}
	return staged, nil
}

func stageCompanion(batch Batch, path, format string, stage *export.Staging) error {
	var write func(batch Batch, w io.Writer) error
	switch format {
	case FormatCSV:
		write = writeCSV
	case FormatXLSX:
		write = writeXLSX
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	w, err := stage.Create(path)
	if err != nil {
		return err
	}
	return write(batch, w)
}

func writeCSV(batch Batch, w io.Writer) error {
	e := export.NewCSVExporter(w, export.DefaultCSVOptions())
	if err := e.WriteHeader(TopPostColumns); err != nil {
		return err
	}
	if err := e.WriteRows(FlatRows(batch)); err != nil {
		return err
	}
	return e.Flush()
}

func writeXLSX(batch Batch, w io.Writer) error {
	e := export.NewExcelExporter(export.DefaultExcelOptions())
	defer e.Close()

	if err := e.WriteTable(TopPostColumns, FlatRows(batch)); err != nil {
		return err
	}
	return e.WriteTo(w)
}
