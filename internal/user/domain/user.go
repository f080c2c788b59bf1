package domain

import (
	"github.com/avelichko/taskdeck/backend/internal/persistence"
)

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	persistence.Audit
}

func Binding() persistence.Binding[*User] {
	return persistence.Binding[*User]{
		Table:   "users",
		Columns: "id, email, password_hash, created_at, updated_at",
		Scan: func(row persistence.Row) (*User, error) {
			u := &User{}
			err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
			return u, err
		},
		Insert: func(u *User) (string, []any) {
			return `INSERT INTO users (id, email, password_hash, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5)`,
				[]any{u.ID, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt}
		},
		Update: func(u *User) (string, []any) {
			return `UPDATE users SET email = $2, password_hash = $3, updated_at = $4 WHERE id = $1`,
				[]any{u.ID, u.Email, u.PasswordHash, u.UpdatedAt}
		},
		Delete: func(u *User) (string, []any) {
			return `DELETE FROM users WHERE id = $1`, []any{u.ID}
		},
	}
}

// ByID is the canonical unique predicate for users.
func ByID(id int64) persistence.Predicate {
	return persistence.Where("id = $1", id)
}

// ByEmail matches the unique email column.
func ByEmail(email string) persistence.Predicate {
	return persistence.Where("email = $1", email)
}
