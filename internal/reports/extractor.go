package reports

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultWrapWidth is the comment body line width in characters.
const DefaultWrapWidth = 110

// Extractor loads a batch of ranked posts from the store.
type Extractor struct {
	connect   Connector
	wrapWidth int
	logger    *zap.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(connect Connector, wrapWidth int, logger *zap.Logger) *Extractor {
	if wrapWidth <= 0 {
		wrapWidth = DefaultWrapWidth
	}
	return &Extractor{
		connect:   connect,
		wrapWidth: wrapWidth,
		logger:    logger,
	}
}

// Extract returns the records of the batch dated date with rank <= rankCutoff,
// in ascending rank order. No matching rows yields an empty batch.
func (e *Extractor) Extract(ctx context.Context, date time.Time, rankCutoff int) (Batch, error) {
	if date.IsZero() {
		return Batch{}, fmt.Errorf("%w: batch date is required", ErrInvalidInput)
	}
	if rankCutoff <= 0 {
		return Batch{}, fmt.Errorf("%w: rank cutoff must be positive, got %d", ErrInvalidInput, rankCutoff)
	}

	repo, closeFn, err := e.connect(ctx)
	if err != nil {
		return Batch{}, err
	}
	defer func() {
		if err := closeFn(); err != nil {
			e.logger.Warn("Failed to close database connection", zap.Error(err))
		}
	}()

	rows, err := repo.GetTopPosts(ctx, date, rankCutoff)
	if err != nil {
		return Batch{}, err
	}

	batch := Batch{Date: date, Records: make([]Record, 0, len(rows))}
	seen := make(map[int]bool, len(rows))
	for i, row := range rows {
		rec, err := e.toRecord(i+1, row)
		if err != nil {
			return Batch{}, err
		}
		if seen[rec.Rank] {
			return Batch{}, &DataShapeError{Row: i + 1, Column: "rank", Reason: fmt.Sprintf("duplicates rank %d", rec.Rank)}
		}
		seen[rec.Rank] = true
		batch.Records = append(batch.Records, rec)
	}

	e.logger.Info("Extracted batch",
		zap.String("date", date.Format(time.DateOnly)),
		zap.Int("rank_cutoff", rankCutoff),
		zap.Int("records", batch.Len()))

	return batch, nil
}

func (e *Extractor) toRecord(n int, row TopPostRow) (Record, error) {
	if !row.Rank.Valid {
		return Record{}, &DataShapeError{Row: n, Column: "rank", Reason: "is null"}
	}
	if row.Rank.Int64 <= 0 {
		return Record{}, &DataShapeError{Row: n, Column: "rank", Reason: "is not positive"}
	}
	if !row.PostTitle.Valid {
		return Record{}, &DataShapeError{Row: n, Column: "post_title", Reason: "is null"}
	}

	rec := Record{
		Rank:         int(row.Rank.Int64),
		Title:        row.PostTitle.String,
		MediaURL:     row.MediaURL.String,
		Upvotes:      int(row.UpsNum.Int64),
		CommentCount: int(row.CommentsNum.Int64),
	}

	slots := [CommentSlots]struct {
		author sql.NullString
		score  sql.NullInt64
		body   sql.NullString
	}{
		{row.CommentAuthor1, row.CommentScore1, row.Comment1},
		{row.CommentAuthor2, row.CommentScore2, row.Comment2},
		{row.CommentAuthor3, row.CommentScore3, row.Comment3},
	}
	for i, s := range slots {
		if !s.author.Valid && !s.score.Valid && !s.body.Valid {
			continue
		}
		rec.Comments[i] = Comment{
			Author:  s.author.String,
			Score:   int(s.score.Int64),
			Body:    WrapText(s.body.String, e.wrapWidth),
			Present: true,
		}
	}

	return rec, nil
}
