package channel

import (
	"net/http"

	middle "pulsewatch/internals/middleware"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service, validator *validator.Validate) *Handler {
	return &Handler{
		service:   service,
		validator: validator,
	}
}

// POST /channels
func (h *Handler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.channel.create"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	user, ok := middle.UserFromContext(ctx)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "user is unauthorised")
		return
	}

	var req CreateChannelRequest
	if err := utils.DecodeAndValidate(r, h.validator, op, &req); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	ch, err := h.service.Create(ctx, CreateChannelCmd{
		UserID:      user.UserID,
		Type:        Type(req.Type),
		Destination: req.Destination,
		Enabled:     enabled,
	})
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, reqID, utils.ChannelCreated, ch)
}

// GET /channels
func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	user, ok := middle.UserFromContext(ctx)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "user is unauthorised")
		return
	}

	channels, err := h.service.List(ctx, user.UserID)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "", channels)
}

// GET /channels/{channelID}
func (h *Handler) GetChannel(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.channel.get"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	userID, channelID, err := owner(r, op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	ch, err := h.service.Get(ctx, userID, channelID)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "", ch)
}

// PATCH /channels/{channelID}
func (h *Handler) UpdateChannel(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.channel.update"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	userID, channelID, err := owner(r, op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	var req UpdateChannelRequest
	if err := utils.DecodeAndValidate(r, h.validator, op, &req); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	ch, err := h.service.Update(ctx, userID, channelID, UpdateChannelCmd{
		Destination: req.Destination,
		Enabled:     req.Enabled,
	})
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, utils.ChannelUpdated, ch)
}

// DELETE /channels/{channelID}
func (h *Handler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.channel.delete"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	userID, channelID, err := owner(r, op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	if err := h.service.Delete(ctx, userID, channelID); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON[any](w, http.StatusOK, reqID, utils.ChannelDeleted, nil)
}

func owner(r *http.Request, op string) (uuid.UUID, uuid.UUID, error) {
	user, ok := middle.UserFromContext(r.Context())
	if !ok {
		return uuid.Nil, uuid.Nil, &apperror.Error{Kind: apperror.Unauthorised, Op: op, Message: "user is unauthorised"}
	}
	channelID, err := uuid.Parse(chi.URLParam(r, "channelID"))
	if err != nil {
		return uuid.Nil, uuid.Nil, apperror.Invalid(op, "channelID must be a valid uuid")
	}
	return user.UserID, channelID, nil
}
