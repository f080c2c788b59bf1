package domain

import (
	"github.com/avelichko/taskdeck/backend/internal/persistence"
)

type Card struct {
	ID          int64
	BoardID     int64
	ListID      int64
	Title       string
	Description string
	Position    int
	AssigneeID  *int64
	persistence.Audit
}

func CardBinding() persistence.Binding[*Card] {
	return persistence.Binding[*Card]{
		Table:   "cards",
		Columns: "id, board_id, list_id, title, description, position, assignee_id, created_at, updated_at",
		Scan: func(row persistence.Row) (*Card, error) {
			c := &Card{}
			err := row.Scan(&c.ID, &c.BoardID, &c.ListID, &c.Title, &c.Description,
				&c.Position, &c.AssigneeID, &c.CreatedAt, &c.UpdatedAt)
			return c, err
		},
		Insert: func(c *Card) (string, []any) {
			return `INSERT INTO cards (id, board_id, list_id, title, description, position, assignee_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				[]any{c.ID, c.BoardID, c.ListID, c.Title, c.Description, c.Position, c.AssigneeID, c.CreatedAt, c.UpdatedAt}
		},
		Update: func(c *Card) (string, []any) {
			return `UPDATE cards SET list_id = $2, title = $3, description = $4, position = $5, assignee_id = $6, updated_at = $7 WHERE id = $1`,
				[]any{c.ID, c.ListID, c.Title, c.Description, c.Position, c.AssigneeID, c.UpdatedAt}
		},
		Delete: func(c *Card) (string, []any) {
			return `DELETE FROM cards WHERE id = $1`, []any{c.ID}
		},
	}
}

func CardByID(id, boardID int64) persistence.Predicate {
	return persistence.Where("id = $1 AND board_id = $2", id, boardID)
}

func CardsByBoard(boardID int64) persistence.Predicate {
	return persistence.Where("board_id = $1", boardID)
}

func CardsByList(listID int64) persistence.Predicate {
	return persistence.Where("list_id = $1", listID)
}
