package domain

import (
	"github.com/avelichko/taskdeck/backend/internal/persistence"
)

type List struct {
	ID       int64
	BoardID  int64
	Title    string
	Position int
	persistence.Audit
}

func ListBinding() persistence.Binding[*List] {
	return persistence.Binding[*List]{
		Table:   "lists",
		Columns: "id, board_id, title, position, created_at, updated_at",
		Scan: func(row persistence.Row) (*List, error) {
			l := &List{}
			err := row.Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.CreatedAt, &l.UpdatedAt)
			return l, err
		},
		Insert: func(l *List) (string, []any) {
			return `INSERT INTO lists (id, board_id, title, position, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				[]any{l.ID, l.BoardID, l.Title, l.Position, l.CreatedAt, l.UpdatedAt}
		},
		Update: func(l *List) (string, []any) {
			return `UPDATE lists SET title = $2, position = $3, updated_at = $4 WHERE id = $1`,
				[]any{l.ID, l.Title, l.Position, l.UpdatedAt}
		},
		Delete: func(l *List) (string, []any) {
			return `DELETE FROM lists WHERE id = $1`, []any{l.ID}
		},
	}
}

func ListByID(id, boardID int64) persistence.Predicate {
	return persistence.Where("id = $1 AND board_id = $2", id, boardID)
}

func ListsByBoard(boardID int64) persistence.Predicate {
	return persistence.Where("board_id = $1", boardID)
}
