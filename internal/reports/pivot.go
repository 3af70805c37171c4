package reports

import (
	"strconv"
)

// Row labels of the identity table, in order.
const (
	LabelRank         = "Rank"
	LabelTitle        = "Post title"
	LabelMedia        = "Media"
	LabelVotes        = "Vote count"
	LabelCommentCount = "Comment count"
)

// MediaRow is the index of the Media row within the identity table.
const MediaRow = 2

// Row is one label/value line of a transposed table.
type Row struct {
	Label string
	Value string
}

// Table is a two-column transposed table: a header line and its rows.
type Table struct {
	Header Row
	Rows   []Row
}

// IdentityTable pivots a record's identity and metric fields.
func IdentityTable(r Record) Table {
	return Table{
		Header: Row{Label: "Post", Value: "#" + strconv.Itoa(r.Rank)},
		Rows: []Row{
			{Label: LabelRank, Value: strconv.Itoa(r.Rank)},
			{Label: LabelTitle, Value: r.Title},
			{Label: LabelMedia, Value: r.MediaURL},
			{Label: LabelVotes, Value: strconv.Itoa(r.Upvotes)},
			{Label: LabelCommentCount, Value: strconv.Itoa(r.CommentCount)},
		},
	}
}

// CommentTable pivots a record's comment slots. Every slot yields its
// Author/Score/Comment rows; an absent comment has empty values.
func CommentTable(r Record) Table {
	t := Table{
		Header: Row{Label: "Comments", Value: "Top comments on post #" + strconv.Itoa(r.Rank)},
		Rows:   make([]Row, 0, CommentSlots*3),
	}
	for i, c := range r.Comments {
		n := strconv.Itoa(i + 1)
		var author, score, body string
		if c.Present {
			author, score, body = c.Author, strconv.Itoa(c.Score), c.Body
		}
		t.Rows = append(t.Rows,
			Row{Label: "Author " + n, Value: author},
			Row{Label: "Score " + n, Value: score},
			Row{Label: "Comment " + n, Value: body},
		)
	}
	return t
}

// PivotRecord returns the identity and comment tables of a record.
func PivotRecord(r Record) (Table, Table) {
	return IdentityTable(r), CommentTable(r)
}
