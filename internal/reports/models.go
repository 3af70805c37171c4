package reports

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// CommentSlots is the number of comment slots stored per post.
const CommentSlots = 3

// Comment is one of a post's top comments. Present is false for an empty
// slot, which renders as blank values.
type Comment struct {
	Author  string `json:"author"`
	Score   int    `json:"score"`
	Body    string `json:"body"`
	Present bool   `json:"present"`
}

// Record is one ranked post of a batch.
type Record struct {
	Rank         int                   `json:"rank"`
	Title        string                `json:"title"`
	MediaURL     string                `json:"media_url"`
	Upvotes      int                   `json:"upvotes"`
	CommentCount int                   `json:"comment_count"`
	Comments     [CommentSlots]Comment `json:"comments"`
}

// Batch is the set of records sharing one extraction date, in rank order.
type Batch struct {
	Date    time.Time `json:"date"`
	Records []Record  `json:"records"`
}

// Len returns the number of records in the batch
func (b Batch) Len() int {
	return len(b.Records)
}

// TopPostRow is the raw shape of a top_posts row.
type TopPostRow struct {
	Rank           sql.NullInt64  `db:"rank"`
	PostTitle      sql.NullString `db:"post_title"`
	MediaURL       sql.NullString `db:"media_url"`
	UpsNum         sql.NullInt64  `db:"ups_num"`
	CommentsNum    sql.NullInt64  `db:"comments_num"`
	CommentAuthor1 sql.NullString `db:"comment_author_1"`
	CommentScore1  sql.NullInt64  `db:"comment_score_1"`
	Comment1       sql.NullString `db:"comment_1"`
	CommentAuthor2 sql.NullString `db:"comment_author_2"`
	CommentScore2  sql.NullInt64  `db:"comment_score_2"`
	Comment2       sql.NullString `db:"comment_2"`
	CommentAuthor3 sql.NullString `db:"comment_author_3"`
	CommentScore3  sql.NullInt64  `db:"comment_score_3"`
	Comment3       sql.NullString `db:"comment_3"`
}

// TopPostColumns lists the columns the extraction query must return.
var TopPostColumns = []string{
	"rank", "post_title", "media_url", "ups_num", "comments_num",
	"comment_author_1", "comment_score_1", "comment_1",
	"comment_author_2", "comment_score_2", "comment_2",
	"comment_author_3", "comment_score_3", "comment_3",
}

// RunOptions controls a single report run
type RunOptions struct {
	Date        time.Time `json:"date"`
	OutputPath  string    `json:"output_path"`
	SkipTrigger bool      `json:"skip_trigger"`
}

// RunStatus describes how a run ended
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusSkipped   RunStatus = "skipped"
	RunStatusFailed    RunStatus = "failed"
)

// RunResult summarises one report run
type RunResult struct {
	RunID          uuid.UUID     `json:"run_id"`
	Status         RunStatus     `json:"status"`
	Date           string        `json:"date"`
	RecordCount    int           `json:"record_count"`
	MediaEmbedded  int           `json:"media_embedded"`
	MediaFallbacks int           `json:"media_fallbacks"`
	OutputPath     string        `json:"output_path,omitempty"`
	ExtraOutputs   []string      `json:"extra_outputs,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    time.Time     `json:"completed_at"`
	Duration       time.Duration `json:"duration"`
	Error          string        `json:"error,omitempty"`
}
