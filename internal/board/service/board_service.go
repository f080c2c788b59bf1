package service

import (
	"context"
	"errors"

	"github.com/avelichko/taskdeck/backend/internal/board/domain"
	"github.com/avelichko/taskdeck/backend/internal/board/stream"
	"github.com/avelichko/taskdeck/backend/internal/common/crypto"
	commondb "github.com/avelichko/taskdeck/backend/internal/common/db"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
	"github.com/avelichko/taskdeck/backend/internal/common/logger"
	"github.com/avelichko/taskdeck/backend/internal/persistence"
)

// EventPublisher receives board change notifications after they are
// committed.
type EventPublisher interface {
	Publish(boardID int64, event stream.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(int64, stream.Event) {}

// BoardService owns every board-scoped mutation. Each operation opens one
// unit of work, stages its changes, commits, and only then publishes the
// change to the board's stream.
type BoardService struct {
	factory persistence.Factory
	ids     crypto.EntityIDGenerator
	events  EventPublisher
	log     *logger.Logger
}

func NewBoardService(factory persistence.Factory, ids crypto.EntityIDGenerator, events EventPublisher, log *logger.Logger) *BoardService {
	if events == nil {
		events = noopPublisher{}
	}
	return &BoardService{factory: factory, ids: ids, events: events, log: log}
}

// CreateBoard creates the board and its owner's admin membership in one
// commit: a board without an admin never exists, even transiently.
func (s *BoardService) CreateBoard(ctx context.Context, ownerID int64, name string) (*domain.Board, error) {
	boardID, err := s.ids.NewID()
	if err != nil {
		return nil, commonerrors.ErrInternal.WithCause(err)
	}

	board := &domain.Board{ID: boardID, Name: name, OwnerID: ownerID}
	membership := &domain.Membership{UserID: ownerID, BoardID: boardID, Role: domain.RoleAdmin}

	uow, err := s.factory.New(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Dispose()

	persistence.NewRepository(uow, domain.BoardBinding()).Create(board)
	persistence.NewRepository(uow, domain.MembershipBinding()).Create(membership)

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	s.log.WithFields(ctx, logger.Fields{"board_id": boardID, "owner_id": ownerID}).Info("board created")
	return board, nil
}

// Board fetches one board the guard already admitted the caller to.
func (s *BoardService) Board(ctx context.Context, boardID int64) (*domain.Board, error) {
	uow, err := s.factory.New(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Dispose()

	return persistence.NewRepository(uow, domain.BoardBinding()).Get(ctx, domain.BoardByID(boardID))
}

// Boards lists every board the user belongs to.
func (s *BoardService) Boards(ctx context.Context, userID int64) ([]*domain.Board, error) {
	uow, err := s.factory.New(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Dispose()

	pred := persistence.Where(
		"id IN (SELECT board_id FROM board_memberships WHERE user_id = $1)", userID)
	return persistence.NewRepository(uow, domain.BoardBinding()).List(ctx, &pred, &persistence.Order{By: "created_at"})
}

// RenameBoard requires admin role.
func (s *BoardService) RenameBoard(ctx context.Context, actorID, boardID int64, name string) (*domain.Board, error) {
	uow, err := s.factory.New(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Dispose()

	if err := s.requireAdmin(ctx, uow, actorID, boardID); err != nil {
		return nil, err
	}

	boards := persistence.NewRepository(uow, domain.BoardBinding())
	board, err := boards.Get(ctx, domain.BoardByID(boardID))
	if err != nil {
		return nil, err
	}

	board.Name = name
	boards.Update(board)

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	s.events.Publish(boardID, stream.Event{Type: stream.EventBoardUpdated, Payload: board})
	return board, nil
}

// DeleteBoard requires admin role. Contained rows go with the board.
func (s *BoardService) DeleteBoard(ctx context.Context, actorID, boardID int64) error {
	uow, err := s.factory.New(ctx)
	if err != nil {
		return err
	}
	defer uow.Dispose()

	if err := s.requireAdmin(ctx, uow, actorID, boardID); err != nil {
		return err
	}

	boards := persistence.NewRepository(uow, domain.BoardBinding())
	board, err := boards.Get(ctx, domain.BoardByID(boardID))
	if err != nil {
		return err
	}

	boards.Delete(board)

	if err := uow.Commit(ctx); err != nil {
		return err
	}

	s.events.Publish(boardID, stream.Event{Type: stream.EventBoardDeleted})
	s.log.WithFields(ctx, logger.Fields{"board_id": boardID, "actor_id": actorID}).Info("board deleted")
	return nil
}

// AddMember requires admin role on the actor.
func (s *BoardService) AddMember(ctx context.Context, actorID, boardID, userID int64, role domain.Role) (*domain.Membership, error) {
	if !role.Valid() {
		return nil, commonerrors.ErrValidation
	}

	uow, err := s.factory.New(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Dispose()

	if err := s.requireAdmin(ctx, uow, actorID, boardID); err != nil {
		return nil, err
	}

	membership := &domain.Membership{UserID: userID, BoardID: boardID, Role: role}
	persistence.NewRepository(uow, domain.MembershipBinding()).Create(membership)

	if err := uow.Commit(ctx); err != nil {
		if commondb.IsUniqueViolation(err) {
			return nil, commonerrors.ErrMemberExists
		}
		return nil, err
	}

	s.events.Publish(boardID, stream.Event{Type: stream.EventMemberAdded, Payload: membership})
	return membership, nil
}

// RemoveMember requires admin role on the actor. The last admin of a board
// cannot be removed.
func (s *BoardService) RemoveMember(ctx context.Context, actorID, boardID, userID int64) error {
	uow, err := s.factory.New(ctx)
	if err != nil {
		return err
	}
	defer uow.Dispose()

	if err := s.requireAdmin(ctx, uow, actorID, boardID); err != nil {
		return err
	}

	memberships := persistence.NewRepository(uow, domain.MembershipBinding())
	membership, err := memberships.Get(ctx, domain.MembershipByKey(userID, boardID))
	if err != nil {
		return err
	}

	if membership.Role == domain.RoleAdmin {
		admins, err := s.countAdmins(ctx, uow, boardID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return commonerrors.ErrForbidden
		}
	}

	memberships.Delete(membership)

	if err := uow.Commit(ctx); err != nil {
		return err
	}

	s.events.Publish(boardID, stream.Event{Type: stream.EventMemberRemoved, Payload: membership})
	return nil
}

func (s *BoardService) Members(ctx context.Context, boardID int64) ([]*domain.Membership, error) {
	uow, err := s.factory.New(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Dispose()

	pred := domain.MembershipsByBoard(boardID)
	return persistence.NewRepository(uow, domain.MembershipBinding()).List(ctx, &pred, &persistence.Order{By: "created_at"})
}

func (s *BoardService) CreateList(ctx context.Context, boardID int64, title string, position int) (*domain.List, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return nil, commonerrors.ErrInternal.WithCause(err)
	}

	list := &domain.List{ID: id, BoardID: boardID, Title: title, Position: position}

	if err := s.commitOne(ctx, func(uow *persistence.UnitOfWork) error {
		persistence.NewRepository(uow, domain.ListBinding()).Create(list)
		return nil
	}); err != nil {
		return nil, err
	}

	s.events.Publish(boardID, stream.Event{Type: stream.EventListCreated, Payload: list})
	return list, nil
}

func (s *BoardService) UpdateList(ctx context.Context, boardID, listID int64, title string, position int) (*domain.List, error) {
	var list *domain.List
	if err := s.commitOne(ctx, func(uow *persistence.UnitOfWork) error {
		lists := persistence.NewRepository(uow, domain.ListBinding())
		found, err := lists.Get(ctx, domain.ListByID(listID, boardID))
		if err != nil {
			return err
		}
		found.Title = title
		found.Position = position
		lists.Update(found)
		list = found
		return nil
	}); err != nil {
		return nil, err
	}

	s.events.Publish(boardID, stream.Event{Type: stream.EventListUpdated, Payload: list})
	return list, nil
}

func (s *BoardService) DeleteList(ctx context.Context, boardID, listID int64) error {
	if err := s.commitOne(ctx, func(uow *persistence.UnitOfWork) error {
		lists := persistence.NewRepository(uow, domain.ListBinding())
		found, err := lists.Get(ctx, domain.ListByID(listID, boardID))
		if err != nil {
			return err
		}
		lists.Delete(found)
		return nil
	}); err != nil {
		return err
	}

	s.events.Publish(boardID, stream.Event{Type: stream.EventListDeleted, Payload: map[string]int64{"id": listID}})
	return nil
}

func (s *BoardService) Lists(ctx context.Context, boardID int64) ([]*domain.List, error) {
	uow, err := s.factory.New(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Dispose()

	pred := domain.ListsByBoard(boardID)
	return persistence.NewRepository(uow, domain.ListBinding()).List(ctx, &pred, &persistence.Order{By: "position"})
}

type CardInput struct {
	ListID      int64
	Title       string
	Description string
	Position    int
	AssigneeID  *int64
}

func (s *BoardService) CreateCard(ctx context.Context, boardID int64, in CardInput) (*domain.Card, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return nil, commonerrors.ErrInternal.WithCause(err)
	}

	card := &domain.Card{
		ID:          id,
		BoardID:     boardID,
		ListID:      in.ListID,
		Title:       in.Title,
		Description: in.Description,
		Position:    in.Position,
		AssigneeID:  in.AssigneeID,
	}

	if err := s.commitOne(ctx, func(uow *persistence.UnitOfWork) error {
		// The target list must belong to this board.
		if _, err := persistence.NewRepository(uow, domain.ListBinding()).Get(ctx, domain.ListByID(in.ListID, boardID)); err != nil {
			return err
		}
		persistence.NewRepository(uow, domain.CardBinding()).Create(card)
		return nil
	}); err != nil {
		return nil, err
	}

	s.events.Publish(boardID, stream.Event{Type: stream.EventCardCreated, Payload: card})
	return card, nil
}

func (s *BoardService) UpdateCard(ctx context.Context, boardID, cardID int64, in CardInput) (*domain.Card, error) {
	var card *domain.Card
	if err := s.commitOne(ctx, func(uow *persistence.UnitOfWork) error {
		cards := persistence.NewRepository(uow, domain.CardBinding())
		found, err := cards.Get(ctx, domain.CardByID(cardID, boardID))
		if err != nil {
			return err
		}
		if in.ListID != found.ListID {
			if _, err := persistence.NewRepository(uow, domain.ListBinding()).Get(ctx, domain.ListByID(in.ListID, boardID)); err != nil {
				return err
			}
		}
		found.ListID = in.ListID
		found.Title = in.Title
		found.Description = in.Description
		found.Position = in.Position
		found.AssigneeID = in.AssigneeID
		cards.Update(found)
		card = found
		return nil
	}); err != nil {
		return nil, err
	}

	s.events.Publish(boardID, stream.Event{Type: stream.EventCardUpdated, Payload: card})
	return card, nil
}

func (s *BoardService) DeleteCard(ctx context.Context, boardID, cardID int64) error {
	if err := s.commitOne(ctx, func(uow *persistence.UnitOfWork) error {
		cards := persistence.NewRepository(uow, domain.CardBinding())
		found, err := cards.Get(ctx, domain.CardByID(cardID, boardID))
		if err != nil {
			return err
		}
		cards.Delete(found)
		return nil
	}); err != nil {
		return err
	}

	s.events.Publish(boardID, stream.Event{Type: stream.EventCardDeleted, Payload: map[string]int64{"id": cardID}})
	return nil
}

func (s *BoardService) Cards(ctx context.Context, boardID int64) ([]*domain.Card, error) {
	uow, err := s.factory.New(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Dispose()

	pred := domain.CardsByBoard(boardID)
	return persistence.NewRepository(uow, domain.CardBinding()).List(ctx, &pred, &persistence.Order{By: "position"})
}

func (s *BoardService) CreateLabel(ctx context.Context, boardID int64, name, color string) (*domain.Label, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return nil, commonerrors.ErrInternal.WithCause(err)
	}

	label := &domain.Label{ID: id, BoardID: boardID, Name: name, Color: color}

	if err := s.commitOne(ctx, func(uow *persistence.UnitOfWork) error {
		persistence.NewRepository(uow, domain.LabelBinding()).Create(label)
		return nil
	}); err != nil {
		return nil, err
	}

	s.events.Publish(boardID, stream.Event{Type: stream.EventLabelCreated, Payload: label})
	return label, nil
}

func (s *BoardService) DeleteLabel(ctx context.Context, boardID, labelID int64) error {
	if err := s.commitOne(ctx, func(uow *persistence.UnitOfWork) error {
		labels := persistence.NewRepository(uow, domain.LabelBinding())
		found, err := labels.Get(ctx, domain.LabelByID(labelID, boardID))
		if err != nil {
			return err
		}
		labels.Delete(found)
		return nil
	}); err != nil {
		return err
	}

	s.events.Publish(boardID, stream.Event{Type: stream.EventLabelDeleted, Payload: map[string]int64{"id": labelID}})
	return nil
}

func (s *BoardService) Labels(ctx context.Context, boardID int64) ([]*domain.Label, error) {
	uow, err := s.factory.New(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Dispose()

	pred := domain.LabelsByBoard(boardID)
	return persistence.NewRepository(uow, domain.LabelBinding()).List(ctx, &pred, &persistence.Order{By: "name"})
}

func (s *BoardService) AttachLabel(ctx context.Context, boardID, cardID, labelID int64) error {
	if err := s.commitOne(ctx, func(uow *persistence.UnitOfWork) error {
		if _, err := persistence.NewRepository(uow, domain.CardBinding()).Get(ctx, domain.CardByID(cardID, boardID)); err != nil {
			return err
		}
		if _, err := persistence.NewRepository(uow, domain.LabelBinding()).Get(ctx, domain.LabelByID(labelID, boardID)); err != nil {
			return err
		}
		persistence.NewRepository(uow, domain.CardLabelBinding()).Create(&domain.CardLabel{CardID: cardID, LabelID: labelID})
		return nil
	}); err != nil {
		if commondb.IsUniqueViolation(err) {
			// Attaching twice is a no-op.
			return nil
		}
		return err
	}

	s.events.Publish(boardID, stream.Event{
		Type:    stream.EventLabelAttached,
		Payload: map[string]int64{"card_id": cardID, "label_id": labelID},
	})
	return nil
}

func (s *BoardService) DetachLabel(ctx context.Context, boardID, cardID, labelID int64) error {
	if err := s.commitOne(ctx, func(uow *persistence.UnitOfWork) error {
		links := persistence.NewRepository(uow, domain.CardLabelBinding())
		link, err := links.Get(ctx, domain.CardLabelByKey(cardID, labelID))
		if err != nil {
			return err
		}
		links.Delete(link)
		return nil
	}); err != nil {
		return err
	}

	s.events.Publish(boardID, stream.Event{
		Type:    stream.EventLabelDetached,
		Payload: map[string]int64{"card_id": cardID, "label_id": labelID},
	})
	return nil
}

func (s *BoardService) CardLabels(ctx context.Context, boardID, cardID int64) ([]*domain.CardLabel, error) {
	uow, err := s.factory.New(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Dispose()

	if _, err := persistence.NewRepository(uow, domain.CardBinding()).Get(ctx, domain.CardByID(cardID, boardID)); err != nil {
		return nil, err
	}

	pred := domain.CardLabelsByCard(cardID)
	return persistence.NewRepository(uow, domain.CardLabelBinding()).List(ctx, &pred, nil)
}

func (s *BoardService) AddComment(ctx context.Context, boardID, cardID, authorID int64, body string) (*domain.Comment, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return nil, commonerrors.ErrInternal.WithCause(err)
	}

	comment := &domain.Comment{ID: id, CardID: cardID, AuthorID: authorID, Body: body}

	if err := s.commitOne(ctx, func(uow *persistence.UnitOfWork) error {
		if _, err := persistence.NewRepository(uow, domain.CardBinding()).Get(ctx, domain.CardByID(cardID, boardID)); err != nil {
			return err
		}
		persistence.NewRepository(uow, domain.CommentBinding()).Create(comment)
		return nil
	}); err != nil {
		return nil, err
	}

	s.events.Publish(boardID, stream.Event{Type: stream.EventCommentCreated, Payload: comment})
	return comment, nil
}

// DeleteComment allows the author or a board admin.
func (s *BoardService) DeleteComment(ctx context.Context, boardID, commentID, actorID int64) error {
	if err := s.commitOne(ctx, func(uow *persistence.UnitOfWork) error {
		comments := persistence.NewRepository(uow, domain.CommentBinding())
		comment, err := comments.Get(ctx, domain.CommentByID(commentID))
		if err != nil {
			return err
		}

		if _, err := persistence.NewRepository(uow, domain.CardBinding()).Get(ctx, domain.CardByID(comment.CardID, boardID)); err != nil {
			return err
		}

		if comment.AuthorID != actorID {
			if err := s.requireAdmin(ctx, uow, actorID, boardID); err != nil {
				return err
			}
		}

		comments.Delete(comment)
		return nil
	}); err != nil {
		return err
	}

	s.events.Publish(boardID, stream.Event{Type: stream.EventCommentDeleted, Payload: map[string]int64{"id": commentID}})
	return nil
}

func (s *BoardService) Comments(ctx context.Context, boardID, cardID int64) ([]*domain.Comment, error) {
	uow, err := s.factory.New(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Dispose()

	if _, err := persistence.NewRepository(uow, domain.CardBinding()).Get(ctx, domain.CardByID(cardID, boardID)); err != nil {
		return nil, err
	}

	pred := domain.CommentsByCard(cardID)
	return persistence.NewRepository(uow, domain.CommentBinding()).List(ctx, &pred, &persistence.Order{By: "created_at"})
}

// commitOne wraps the single-unit-of-work pattern shared by most
// operations: open, stage via fn, commit, dispose.
func (s *BoardService) commitOne(ctx context.Context, fn func(uow *persistence.UnitOfWork) error) error {
	uow, err := s.factory.New(ctx)
	if err != nil {
		return err
	}
	defer uow.Dispose()

	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

func (s *BoardService) requireAdmin(ctx context.Context, uow *persistence.UnitOfWork, userID, boardID int64) error {
	membership, err := persistence.NewRepository(uow, domain.MembershipBinding()).Get(ctx, domain.MembershipByKey(userID, boardID))
	if err != nil {
		if errors.Is(err, commonerrors.ErrNotFound) {
			return commonerrors.ErrForbidden
		}
		return err
	}
	if membership.Role != domain.RoleAdmin {
		return commonerrors.ErrForbidden
	}
	return nil
}

func (s *BoardService) countAdmins(ctx context.Context, uow *persistence.UnitOfWork, boardID int64) (int, error) {
	pred := persistence.Where("board_id = $1 AND role = $2", boardID, string(domain.RoleAdmin))
	admins, err := persistence.NewRepository(uow, domain.MembershipBinding()).List(ctx, &pred, nil)
	if err != nil {
		return 0, err
	}
	return len(admins), nil
}
