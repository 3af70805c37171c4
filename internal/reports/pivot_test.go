package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleRecord() Record {
	return Record{
		Rank:         1,
		Title:        "Cat",
		MediaURL:     "https://i.example/cat.jpg",
		Upvotes:      500,
		CommentCount: 40,
		Comments: [CommentSlots]Comment{
			{Author: "alice", Score: 10, Body: "nice", Present: true},
			{Author: "bob", Score: 5, Body: "lol", Present: true},
		},
	}
}

func TestIdentityTable(t *testing.T) {
	table := IdentityTable(sampleRecord())

	assert.Equal(t, Row{Label: "Post", Value: "#1"}, table.Header)
	assert.Equal(t, []Row{
		{Label: LabelRank, Value: "1"},
		{Label: LabelTitle, Value: "Cat"},
		{Label: LabelMedia, Value: "https://i.example/cat.jpg"},
		{Label: LabelVotes, Value: "500"},
		{Label: LabelCommentCount, Value: "40"},
	}, table.Rows)
	assert.Equal(t, LabelMedia, table.Rows[MediaRow].Label)
}

func TestCommentTableKeepsEmptySlots(t *testing.T) {
	table := CommentTable(sampleRecord())

	assert.Equal(t, "Top comments on post #1", table.Header.Value)
	assert.Equal(t, []Row{
		{Label: "Author 1", Value: "alice"},
		{Label: "Score 1", Value: "10"},
		{Label: "Comment 1", Value: "nice"},
		{Label: "Author 2", Value: "bob"},
		{Label: "Score 2", Value: "5"},
		{Label: "Comment 2", Value: "lol"},
		{Label: "Author 3", Value: ""},
		{Label: "Score 3", Value: ""},
		{Label: "Comment 3", Value: ""},
	}, table.Rows)
}

func TestCommentTablePresentZeroScore(t *testing.T) {
	rec := Record{Rank: 2}
	rec.Comments[0] = Comment{Author: "carol", Present: true}

	table := CommentTable(rec)

	assert.Equal(t, "0", table.Rows[1].Value)
	assert.Equal(t, "", table.Rows[2].Value)
	assert.Equal(t, "", table.Rows[4].Value)
}

func TestPivotRecordIsPure(t *testing.T) {
	rec := sampleRecord()

	id1, c1 := PivotRecord(rec)
	id2, c2 := PivotRecord(rec)

	assert.Equal(t, id1, id2)
	assert.Equal(t, c1, c2)
	assert.Equal(t, sampleRecord(), rec)
}
