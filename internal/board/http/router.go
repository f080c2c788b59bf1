package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/avelichko/taskdeck/backend/internal/board/domain"
	"github.com/avelichko/taskdeck/backend/internal/board/guard"
	"github.com/avelichko/taskdeck/backend/internal/board/service"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
	commonhttp "github.com/avelichko/taskdeck/backend/internal/common/http"
	"github.com/avelichko/taskdeck/backend/internal/session"
)

// BoardService is the surface the router needs from the board layer.
type BoardService interface {
	CreateBoard(ctx context.Context, ownerID int64, name string) (*domain.Board, error)
	Board(ctx context.Context, boardID int64) (*domain.Board, error)
	Boards(ctx context.Context, userID int64) ([]*domain.Board, error)
	RenameBoard(ctx context.Context, actorID, boardID int64, name string) (*domain.Board, error)
	DeleteBoard(ctx context.Context, actorID, boardID int64) error

	AddMember(ctx context.Context, actorID, boardID, userID int64, role domain.Role) (*domain.Membership, error)
	RemoveMember(ctx context.Context, actorID, boardID, userID int64) error
	Members(ctx context.Context, boardID int64) ([]*domain.Membership, error)

	CreateList(ctx context.Context, boardID int64, title string, position int) (*domain.List, error)
	UpdateList(ctx context.Context, boardID, listID int64, title string, position int) (*domain.List, error)
	DeleteList(ctx context.Context, boardID, listID int64) error
	Lists(ctx context.Context, boardID int64) ([]*domain.List, error)

	CreateCard(ctx context.Context, boardID int64, in service.CardInput) (*domain.Card, error)
	UpdateCard(ctx context.Context, boardID, cardID int64, in service.CardInput) (*domain.Card, error)
	DeleteCard(ctx context.Context, boardID, cardID int64) error
	Cards(ctx context.Context, boardID int64) ([]*domain.Card, error)

	CreateLabel(ctx context.Context, boardID int64, name, color string) (*domain.Label, error)
	DeleteLabel(ctx context.Context, boardID, labelID int64) error
	Labels(ctx context.Context, boardID int64) ([]*domain.Label, error)
	AttachLabel(ctx context.Context, boardID, cardID, labelID int64) error
	DetachLabel(ctx context.Context, boardID, cardID, labelID int64) error

	AddComment(ctx context.Context, boardID, cardID, authorID int64, body string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, boardID, commentID, actorID int64) error
	Comments(ctx context.Context, boardID, cardID int64) ([]*domain.Comment, error)
}

type createBoardRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type renameBoardRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type memberRequest struct {
	UserID int64  `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=admin member"`
}

type listRequest struct {
	ID       int64  `json:"id"`
	Title    string `json:"title" validate:"required,max=120"`
	Position int    `json:"position" validate:"gte=0"`
}

type cardRequest struct {
	ID          int64  `json:"id"`
	ListID      int64  `json:"list_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=10000"`
	Position    int    `json:"position" validate:"gte=0"`
	AssigneeID  *int64 `json:"assignee_id"`
}

type labelRequest struct {
	Name  string `json:"name" validate:"required,max=40"`
	Color string `json:"color" validate:"required,hexcolor"`
}

type cardLabelRequest struct {
	CardID  int64 `json:"card_id" validate:"required"`
	LabelID int64 `json:"label_id" validate:"required"`
}

type commentRequest struct {
	CardID int64  `json:"card_id" validate:"required"`
	Body   string `json:"body" validate:"required,max=4000"`
}

type Handler struct {
	svc      BoardService
	guard    *guard.Guard
	stream   http.HandlerFunc
	errors   *commonhttp.ErrorHandler
	validate *validator.Validate
}

func NewHandler(svc BoardService, g *guard.Guard, stream http.HandlerFunc, errors *commonhttp.ErrorHandler) *Handler {
	return &Handler{
		svc:      svc,
		guard:    g,
		stream:   stream,
		errors:   errors,
		validate: validator.New(),
	}
}

// Register wires the resource surface. /api/boards needs only an identity;
// everything else runs behind the access guard and is scoped to the board
// named by the X-Board-Id header.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/boards", h.handleBoards)

	guarded := func(fn http.HandlerFunc) http.Handler {
		return h.guard.Middleware(fn)
	}

	mux.Handle("/api/board", guarded(h.handleBoard))
	mux.Handle("/api/members", guarded(h.handleMembers))
	mux.Handle("/api/lists", guarded(h.handleLists))
	mux.Handle("/api/cards", guarded(h.handleCards))
	mux.Handle("/api/labels", guarded(h.handleLabels))
	mux.Handle("/api/cards/labels", guarded(h.handleCardLabels))
	mux.Handle("/api/comments", guarded(h.handleComments))

	if h.stream != nil {
		mux.Handle("/api/board/stream", guarded(h.stream))
	}
}

func (h *Handler) handleBoards(w http.ResponseWriter, r *http.Request) {
	userID, ok := session.UserIDFromContext(r.Context())
	if !ok {
		h.errors.HandleError(w, r, commonerrors.ErrUnauthenticated)
		return
	}

	switch r.Method {
	case http.MethodGet:
		boards, err := h.svc.Boards(r.Context(), userID)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusOK, boards)
	case http.MethodPost:
		var req createBoardRequest
		if !h.decodeValid(w, r, &req) {
			return
		}
		board, err := h.svc.CreateBoard(r.Context(), userID, req.Name)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusCreated, board)
	default:
		h.methodNotAllowed(w)
	}
}

func (h *Handler) handleBoard(w http.ResponseWriter, r *http.Request) {
	userID, boardID := h.scope(r)

	switch r.Method {
	case http.MethodGet:
		board, err := h.svc.Board(r.Context(), boardID)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusOK, board)
	case http.MethodPatch:
		var req renameBoardRequest
		if !h.decodeValid(w, r, &req) {
			return
		}
		board, err := h.svc.RenameBoard(r.Context(), userID, boardID, req.Name)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusOK, board)
	case http.MethodDelete:
		if err := h.svc.DeleteBoard(r.Context(), userID, boardID); err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.methodNotAllowed(w)
	}
}

func (h *Handler) handleMembers(w http.ResponseWriter, r *http.Request) {
	userID, boardID := h.scope(r)

	switch r.Method {
	case http.MethodGet:
		members, err := h.svc.Members(r.Context(), boardID)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusOK, members)
	case http.MethodPost:
		var req memberRequest
		if !h.decodeValid(w, r, &req) {
			return
		}
		membership, err := h.svc.AddMember(r.Context(), userID, boardID, req.UserID, domain.Role(req.Role))
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusCreated, membership)
	case http.MethodDelete:
		target, ok := h.queryID(w, r, "user_id")
		if !ok {
			return
		}
		if err := h.svc.RemoveMember(r.Context(), userID, boardID, target); err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.methodNotAllowed(w)
	}
}

func (h *Handler) handleLists(w http.ResponseWriter, r *http.Request) {
	_, boardID := h.scope(r)

	switch r.Method {
	case http.MethodGet:
		lists, err := h.svc.Lists(r.Context(), boardID)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusOK, lists)
	case http.MethodPost:
		var req listRequest
		if !h.decodeValid(w, r, &req) {
			return
		}
		list, err := h.svc.CreateList(r.Context(), boardID, req.Title, req.Position)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusCreated, list)
	case http.MethodPatch:
		var req listRequest
		if !h.decodeValid(w, r, &req) {
			return
		}
		list, err := h.svc.UpdateList(r.Context(), boardID, req.ID, req.Title, req.Position)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusOK, list)
	case http.MethodDelete:
		id, ok := h.queryID(w, r, "id")
		if !ok {
			return
		}
		if err := h.svc.DeleteList(r.Context(), boardID, id); err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.methodNotAllowed(w)
	}
}

func (h *Handler) handleCards(w http.ResponseWriter, r *http.Request) {
	_, boardID := h.scope(r)

	switch r.Method {
	case http.MethodGet:
		cards, err := h.svc.Cards(r.Context(), boardID)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusOK, cards)
	case http.MethodPost:
		var req cardRequest
		if !h.decodeValid(w, r, &req) {
			return
		}
		card, err := h.svc.CreateCard(r.Context(), boardID, cardInput(req))
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusCreated, card)
	case http.MethodPatch:
		var req cardRequest
		if !h.decodeValid(w, r, &req) {
			return
		}
		card, err := h.svc.UpdateCard(r.Context(), boardID, req.ID, cardInput(req))
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusOK, card)
	case http.MethodDelete:
		id, ok := h.queryID(w, r, "id")
		if !ok {
			return
		}
		if err := h.svc.DeleteCard(r.Context(), boardID, id); err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.methodNotAllowed(w)
	}
}

func (h *Handler) handleLabels(w http.ResponseWriter, r *http.Request) {
	_, boardID := h.scope(r)

	switch r.Method {
	case http.MethodGet:
		labels, err := h.svc.Labels(r.Context(), boardID)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusOK, labels)
	case http.MethodPost:
		var req labelRequest
		if !h.decodeValid(w, r, &req) {
			return
		}
		label, err := h.svc.CreateLabel(r.Context(), boardID, req.Name, req.Color)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusCreated, label)
	case http.MethodDelete:
		id, ok := h.queryID(w, r, "id")
		if !ok {
			return
		}
		if err := h.svc.DeleteLabel(r.Context(), boardID, id); err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.methodNotAllowed(w)
	}
}

func (h *Handler) handleCardLabels(w http.ResponseWriter, r *http.Request) {
	_, boardID := h.scope(r)

	var req cardLabelRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	switch r.Method {
	case http.MethodPost:
		if err := h.svc.AttachLabel(r.Context(), boardID, req.CardID, req.LabelID); err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if err := h.svc.DetachLabel(r.Context(), boardID, req.CardID, req.LabelID); err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.methodNotAllowed(w)
	}
}

func (h *Handler) handleComments(w http.ResponseWriter, r *http.Request) {
	userID, boardID := h.scope(r)

	switch r.Method {
	case http.MethodGet:
		cardID, ok := h.queryID(w, r, "card_id")
		if !ok {
			return
		}
		comments, err := h.svc.Comments(r.Context(), boardID, cardID)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusOK, comments)
	case http.MethodPost:
		var req commentRequest
		if !h.decodeValid(w, r, &req) {
			return
		}
		comment, err := h.svc.AddComment(r.Context(), boardID, req.CardID, userID, req.Body)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusCreated, comment)
	case http.MethodDelete:
		id, ok := h.queryID(w, r, "id")
		if !ok {
			return
		}
		if err := h.svc.DeleteComment(r.Context(), boardID, id, userID); err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.methodNotAllowed(w)
	}
}

// scope reads the identity and board id established by the resolver and
// the guard. Guarded handlers only run once both are present.
func (h *Handler) scope(r *http.Request) (userID, boardID int64) {
	userID, _ = session.UserIDFromContext(r.Context())
	boardID, _ = guard.BoardIDFromContext(r.Context())
	return userID, boardID
}

func (h *Handler) queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeBadRequest,
			name+" must be an integer", nil, commonhttp.TraceIDFromContext(r.Context()))
		return 0, false
	}
	return id, true
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter) {
	commonhttp.WriteErrorEnvelope(w, http.StatusMethodNotAllowed, commonhttp.CodeMethodNotAllowed,
		"method not allowed", nil, "")
}

func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := commonhttp.DecodeJSON(r, v); err != nil {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON,
			"request body is not valid json", nil, commonhttp.TraceIDFromContext(r.Context()))
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeBadRequest,
			"request validation failed", validationDetails(err), commonhttp.TraceIDFromContext(r.Context()))
		return false
	}
	return true
}

func validationDetails(err error) map[string]any {
	var verrs validator.ValidationErrors
	details := make(map[string]any)
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return details
}

func cardInput(req cardRequest) service.CardInput {
	return service.CardInput{
		ListID:      req.ListID,
		Title:       req.Title,
		Description: req.Description,
		Position:    req.Position,
		AssigneeID:  req.AssigneeID,
	}
}
