package domain

import (
	"github.com/avelichko/taskdeck/backend/internal/persistence"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Membership is one user's access to one board. Its existence is the whole
// authorization model: no row, no access.
type Membership struct {
	UserID  int64
	BoardID int64
	Role    Role
	persistence.Audit
}

func MembershipBinding() persistence.Binding[*Membership] {
	return persistence.Binding[*Membership]{
		Table:   "board_memberships",
		Columns: "user_id, board_id, role, created_at, updated_at",
		Scan: func(row persistence.Row) (*Membership, error) {
			m := &Membership{}
			err := row.Scan(&m.UserID, &m.BoardID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
			return m, err
		},
		Insert: func(m *Membership) (string, []any) {
			return `INSERT INTO board_memberships (user_id, board_id, role, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5)`,
				[]any{m.UserID, m.BoardID, m.Role, m.CreatedAt, m.UpdatedAt}
		},
		Update: func(m *Membership) (string, []any) {
			return `UPDATE board_memberships SET role = $3, updated_at = $4 WHERE user_id = $1 AND board_id = $2`,
				[]any{m.UserID, m.BoardID, m.Role, m.UpdatedAt}
		},
		Delete: func(m *Membership) (string, []any) {
			return `DELETE FROM board_memberships WHERE user_id = $1 AND board_id = $2`,
				[]any{m.UserID, m.BoardID}
		},
	}
}

func MembershipByKey(userID, boardID int64) persistence.Predicate {
	return persistence.Where("user_id = $1 AND board_id = $2", userID, boardID)
}

func MembershipsByBoard(boardID int64) persistence.Predicate {
	return persistence.Where("board_id = $1", boardID)
}

func MembershipsByUser(userID int64) persistence.Predicate {
	return persistence.Where("user_id = $1", userID)
}
