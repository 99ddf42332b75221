package user

import (
	"net/http"

	middle "pulsewatch/internals/middleware"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
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

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.user.register"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	var req RegisterRequest
	if err := utils.DecodeAndValidate(r, h.validator, op, &req); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	id, err := h.service.Register(ctx, CreateUserCmd{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, reqID, utils.UserRegistered, RegisterResponse{UserID: id.String()})
}

func (h *Handler) LogIn(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.user.login"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	var req LogInRequest
	if err := utils.DecodeAndValidate(r, h.validator, op, &req); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	res, err := h.service.LogIn(ctx, LogInUserCmd{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, utils.UserLoggedIn, LogInResponse{
		UserID:      res.UserID.String(),
		AccessToken: res.AccessToken,
	})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	authUser, ok := middle.UserFromContext(ctx)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "user is unauthorised")
		return
	}

	u, err := h.service.GetProfile(ctx, authUser.UserID)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "profile retrieved", GetProfileResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	})
}
