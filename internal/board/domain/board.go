package domain

import (
	"github.com/avelichko/taskdeck/backend/internal/persistence"
)

type Board struct {
	ID      int64
	Name    string
	OwnerID int64
	persistence.Audit
}

func BoardBinding() persistence.Binding[*Board] {
	return persistence.Binding[*Board]{
		Table:   "boards",
		Columns: "id, name, owner_id, created_at, updated_at",
		Scan: func(row persistence.Row) (*Board, error) {
			b := &Board{}
			err := row.Scan(&b.ID, &b.Name, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt)
			return b, err
		},
		Insert: func(b *Board) (string, []any) {
			return `INSERT INTO boards (id, name, owner_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5)`,
				[]any{b.ID, b.Name, b.OwnerID, b.CreatedAt, b.UpdatedAt}
		},
		Update: func(b *Board) (string, []any) {
			return `UPDATE boards SET name = $2, updated_at = $3 WHERE id = $1`,
				[]any{b.ID, b.Name, b.UpdatedAt}
		},
		Delete: func(b *Board) (string, []any) {
			return `DELETE FROM boards WHERE id = $1`, []any{b.ID}
		},
	}
}

func BoardByID(id int64) persistence.Predicate {
	return persistence.Where("id = $1", id)
}
