package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"top-posts-report/report-backend/internal/media"
	"top-posts-report/report-backend/internal/reports/export"
)

// Document is the surface the renderer lays tables onto.
type Document interface {
	AddTable(t export.KeyValueTable)
	AddSpacer(height float64)
	WriteTo(w io.Writer) error
}

// DocumentFactory creates an empty document for a batch.
type DocumentFactory func(batch Batch) Document

// RendererOptions configures the renderer
type RendererOptions struct {
	PDF             export.PDFOptions `json:"pdf"`
	IdentitySpacing float64           `json:"identity_spacing"`
	CommentSpacing  float64           `json:"comment_spacing"`
}

// DefaultRendererOptions returns default renderer options
func DefaultRendererOptions() RendererOptions {
	return RendererOptions{
		PDF:             export.DefaultPDFOptions(),
		IdentitySpacing: 30,
		CommentSpacing:  60,
	}
}

// RenderResult summarises a rendered document
type RenderResult struct {
	OutputPath     string `json:"output_path"`
	Records        int    `json:"records"`
	Tables         int    `json:"tables"`
	MediaEmbedded  int    `json:"media_embedded"`
	MediaFallbacks int    `json:"media_fallbacks"`
}

// Renderer turns a batch into a paginated PDF of per-post table pairs.
type Renderer struct {
	resolver    media.Resolver
	newDocument DocumentFactory
	options     RendererOptions
	logger      *zap.Logger
}

// NewRenderer creates a renderer that writes PDFs through gofpdf
func NewRenderer(resolver media.Resolver, options RendererOptions, logger *zap.Logger) *Renderer {
	r := &Renderer{
		resolver: resolver,
		options:  options,
		logger:   logger,
	}
	r.newDocument = r.pdfDocument
	return r
}

// WithDocumentFactory replaces the document implementation.
func (r *Renderer) WithDocumentFactory(factory DocumentFactory) *Renderer {
	r.newDocument = factory
	return r
}

func (r *Renderer) pdfDocument(batch Batch) Document {
	opts := r.options.PDF
	if !batch.Date.IsZero() {
		opts.Title = "Top posts " + batch.Date.Format(time.DateOnly)
	}
	return export.NewPDFDocument(opts)
}

// Render writes one identity table and one comment table per record, in
// batch order, to outputPath. Media that cannot be embedded is rendered as a
// link; only an unwritable output fails the render.
func (r *Renderer) Render(ctx context.Context, batch Batch, outputPath string) (*RenderResult, error) {
	stage := export.NewStaging()
	defer stage.Discard()

	result, err := r.RenderStaged(ctx, batch, outputPath, stage)
	if err != nil {
		return nil, err
	}
	if err := stage.Commit(); err != nil {
		return nil, &DocumentWriteError{Path: outputPath, Err: err}
	}
	return result, nil
}

// RenderStaged is Render without the final move: the document is written to
// a file staged for outputPath and replaces it only when stage is committed.
func (r *Renderer) RenderStaged(ctx context.Context, batch Batch, outputPath string, stage *export.Staging) (*RenderResult, error) {
	if err := checkWritable(outputPath); err != nil {
		return nil, &DocumentWriteError{Path: outputPath, Err: err}
	}

	doc := r.newDocument(batch)
	result := &RenderResult{OutputPath: outputPath, Records: batch.Len()}

	for _, rec := range batch.Records {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("render interrupted: %w", err)
		}

		identity, comments := PivotRecord(rec)

		res := r.resolver.Resolve(ctx, rec.MediaURL)
		if res.IsResolved() {
			result.MediaEmbedded++
		} else {
			result.MediaFallbacks++
			r.logger.Info("Media rendered as link",
				zap.Int("rank", rec.Rank),
				zap.String("media_url", rec.MediaURL),
				zap.Stringer("reason", res.Failure))
		}

		doc.AddTable(IdentityKeyValueTable(identity, res))
		doc.AddSpacer(r.options.IdentitySpacing)
		doc.AddTable(CommentKeyValueTable(comments))
		doc.AddSpacer(r.options.CommentSpacing)
		result.Tables += 2
	}

	w, err := stage.Create(outputPath)
	if err != nil {
		return nil, &DocumentWriteError{Path: outputPath, Err: err}
	}
	if err := doc.WriteTo(w); err != nil {
		return nil, &DocumentWriteError{Path: outputPath, Err: err}
	}

	if d, ok := doc.(interface{ DemotedImages() int }); ok && d.DemotedImages() > 0 {
		result.MediaEmbedded -= d.DemotedImages()
		result.MediaFallbacks += d.DemotedImages()
	}

	r.logger.Info("Report rendered",
		zap.String("output_path", outputPath),
		zap.Int("records", result.Records),
		zap.Int("media_embedded", result.MediaEmbedded),
		zap.Int("media_fallbacks", result.MediaFallbacks))

	return result, nil
}

// IdentityKeyValueTable styles an identity table; the Media row becomes an
// image cell when res resolved and a link cell otherwise.
func IdentityKeyValueTable(t Table, res media.Resolution) export.KeyValueTable {
	kv := toKeyValue(t, export.IdentityStyle())
	if MediaRow < len(kv.Rows) {
		if res.IsResolved() {
			kv.Rows[MediaRow].Value = export.ImageCell(res.Image, res.Ref)
		} else {
			kv.Rows[MediaRow].Value = export.LinkCell(res.Ref)
		}
	}
	return kv
}

// CommentKeyValueTable styles a comment table.
func CommentKeyValueTable(t Table) export.KeyValueTable {
	return toKeyValue(t, export.CommentStyle())
}

func toKeyValue(t Table, style export.TableStyle) export.KeyValueTable {
	kv := export.KeyValueTable{
		Header: export.TableRow{Label: t.Header.Label, Value: export.TextCell(t.Header.Value)},
		Rows:   make([]export.TableRow, len(t.Rows)),
		Style:  style,
	}
	for i, row := range t.Rows {
		kv.Rows[i] = export.TableRow{Label: row.Label, Value: export.TextCell(row.Value)}
	}
	return kv
}

// checkWritable fails early when the output directory is missing or the
// path names a directory.
func checkWritable(path string) error {
	if path == "" {
		return errors.New("output path is empty")
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
