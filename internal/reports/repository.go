package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Repository defines data access for the top_posts table
type Repository interface {
	GetTopPosts(ctx context.Context, date time.Time, rankCutoff int) ([]TopPostRow, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const topPostsQuery = `
	SELECT rank, post_title, media_url, ups_num, comments_num,
		comment_author_1, comment_score_1, comment_1,
		comment_author_2, comment_score_2, comment_2,
		comment_author_3, comment_score_3, comment_3
	FROM top_posts
	WHERE rank <= $1 AND extract_date = $2
	ORDER BY rank ASC
`

// GetTopPosts returns the rows of one extraction date with rank <= rankCutoff.
func (r *PostgresRepository) GetTopPosts(ctx context.Context, date time.Time, rankCutoff int) ([]TopPostRow, error) {
	rows, err := r.db.QueryxContext(ctx, topPostsQuery, rankCutoff, date.Format(time.DateOnly))
	if err != nil {
		return nil, &DataAccessError{Op: "query top_posts", Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &DataAccessError{Op: "read columns", Err: err}
	}
	if err := checkColumns(columns); err != nil {
		return nil, err
	}

	var result []TopPostRow
	for rows.Next() {
		var row TopPostRow
		if err := rows.StructScan(&row); err != nil {
			return nil, &DataShapeError{Row: len(result) + 1, Column: "*", Reason: fmt.Sprintf("cannot be scanned: %v", err)}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &DataAccessError{Op: "iterate top_posts", Err: err}
	}

	return result, nil
}

func checkColumns(columns []string) error {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[strings.ToLower(c)] = true
	}
	for _, want := range TopPostColumns {
		if !present[want] {
			return &DataShapeError{Column: want, Reason: "is missing from the result set"}
		}
	}
	return nil
}

// Connector opens a repository for one invocation. The returned close
// function releases the underlying connection.
type Connector func(ctx context.Context) (Repository, func() error, error)

// PostgresConnector connects to databaseURL on every call.
func PostgresConnector(databaseURL string) Connector {
	return func(ctx context.Context) (Repository, func() error, error) {
		db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
		if err != nil {
			return nil, nil, &DataAccessError{Op: "connect", Err: err}
		}
		db.SetMaxOpenConns(1)
		return NewPostgresRepository(db), db.Close, nil
	}
}
