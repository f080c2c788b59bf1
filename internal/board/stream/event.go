package stream

// Event is one board change pushed to connected clients. Payload carries
// the affected entity as the HTTP layer would render it.
type Event struct {
	Type    string `json:"type"`
	BoardID int64  `json:"board_id"`
	Payload any    `json:"payload,omitempty"`
}

const (
	EventListCreated    = "list.created"
	EventListUpdated    = "list.updated"
	EventListDeleted    = "list.deleted"
	EventCardCreated    = "card.created"
	EventCardUpdated    = "card.updated"
	EventCardDeleted    = "card.deleted"
	EventLabelCreated   = "label.created"
	EventLabelDeleted   = "label.deleted"
	EventLabelAttached  = "label.attached"
	EventLabelDetached  = "label.detached"
	EventCommentCreated = "comment.created"
	EventCommentDeleted = "comment.deleted"
	EventMemberAdded    = "member.added"
	EventMemberRemoved  = "member.removed"
	EventBoardUpdated   = "board.updated"
	EventBoardDeleted   = "board.deleted"
)
