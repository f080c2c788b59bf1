package domain

import (
	"github.com/avelichko/taskdeck/backend/internal/persistence"
)

type Label struct {
	ID      int64
	BoardID int64
	Name    string
	Color   string
	persistence.Audit
}

func LabelBinding() persistence.Binding[*Label] {
	return persistence.Binding[*Label]{
		Table:   "labels",
		Columns: "id, board_id, name, color, created_at, updated_at",
		Scan: func(row persistence.Row) (*Label, error) {
			l := &Label{}
			err := row.Scan(&l.ID, &l.BoardID, &l.Name, &l.Color, &l.CreatedAt, &l.UpdatedAt)
			return l, err
		},
		Insert: func(l *Label) (string, []any) {
			return `INSERT INTO labels (id, board_id, name, color, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				[]any{l.ID, l.BoardID, l.Name, l.Color, l.CreatedAt, l.UpdatedAt}
		},
		Update: func(l *Label) (string, []any) {
			return `UPDATE labels SET name = $2, color = $3, updated_at = $4 WHERE id = $1`,
				[]any{l.ID, l.Name, l.Color, l.UpdatedAt}
		},
		Delete: func(l *Label) (string, []any) {
			return `DELETE FROM labels WHERE id = $1`, []any{l.ID}
		},
	}
}

func LabelByID(id, boardID int64) persistence.Predicate {
	return persistence.Where("id = $1 AND board_id = $2", id, boardID)
}

func LabelsByBoard(boardID int64) persistence.Predicate {
	return persistence.Where("board_id = $1", boardID)
}

// CardLabel attaches a label to a card.
type CardLabel struct {
	CardID  int64
	LabelID int64
	persistence.Audit
}

func CardLabelBinding() persistence.Binding[*CardLabel] {
	return persistence.Binding[*CardLabel]{
		Table:   "card_labels",
		Columns: "card_id, label_id, created_at, updated_at",
		Scan: func(row persistence.Row) (*CardLabel, error) {
			cl := &CardLabel{}
			err := row.Scan(&cl.CardID, &cl.LabelID, &cl.CreatedAt, &cl.UpdatedAt)
			return cl, err
		},
		Insert: func(cl *CardLabel) (string, []any) {
			return `INSERT INTO card_labels (card_id, label_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4)`,
				[]any{cl.CardID, cl.LabelID, cl.CreatedAt, cl.UpdatedAt}
		},
		Update: func(cl *CardLabel) (string, []any) {
			return `UPDATE card_labels SET updated_at = $3 WHERE card_id = $1 AND label_id = $2`,
				[]any{cl.CardID, cl.LabelID, cl.UpdatedAt}
		},
		Delete: func(cl *CardLabel) (string, []any) {
			return `DELETE FROM card_labels WHERE card_id = $1 AND label_id = $2`,
				[]any{cl.CardID, cl.LabelID}
		},
	}
}

func CardLabelByKey(cardID, labelID int64) persistence.Predicate {
	return persistence.Where("card_id = $1 AND label_id = $2", cardID, labelID)
}

func CardLabelsByCard(cardID int64) persistence.Predicate {
	return persistence.Where("card_id = $1", cardID)
}
