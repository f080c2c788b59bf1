package domain

import (
	"github.com/avelichko/taskdeck/backend/internal/persistence"
)

type Comment struct {
	ID       int64
	CardID   int64
	AuthorID int64
	Body     string
	persistence.Audit
}

func CommentBinding() persistence.Binding[*Comment] {
	return persistence.Binding[*Comment]{
		Table:   "comments",
		Columns: "id, card_id, author_id, body, created_at, updated_at",
		Scan: func(row persistence.Row) (*Comment, error) {
			c := &Comment{}
			err := row.Scan(&c.ID, &c.CardID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt)
			return c, err
		},
		Insert: func(c *Comment) (string, []any) {
			return `INSERT INTO comments (id, card_id, author_id, body, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				[]any{c.ID, c.CardID, c.AuthorID, c.Body, c.CreatedAt, c.UpdatedAt}
		},
		Update: func(c *Comment) (string, []any) {
			return `UPDATE comments SET body = $2, updated_at = $3 WHERE id = $1`,
				[]any{c.ID, c.Body, c.UpdatedAt}
		},
		Delete: func(c *Comment) (string, []any) {
			return `DELETE FROM comments WHERE id = $1`, []any{c.ID}
		},
	}
}

func CommentByID(id int64) persistence.Predicate {
	return persistence.Where("id = $1", id)
}

func CommentsByCard(cardID int64) persistence.Predicate {
	return persistence.Where("card_id = $1", cardID)
}
