package monitor

import (
	"net/http"
	"strconv"
	"time"

	middle "pulsewatch/internals/middleware"
	"pulsewatch/internals/modules/channel"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	// default range for history and incident reads
	defaultRange = 24 * time.Hour
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

// POST /monitors
func (h *Handler) CreateMonitor(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.monitor.create"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	user, ok := middle.UserFromContext(ctx)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "user is unauthorised")
		return
	}

	var req CreateMonitorRequest
	if err := utils.DecodeAndValidate(r, h.validator, op, &req); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	m, err := h.service.Create(ctx, CreateMonitorCmd{
		UserID:      user.UserID,
		Name:        req.Name,
		URL:         req.URL,
		IntervalSec: req.CheckIntervalSeconds,
		Enabled:     enabled,
	})
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, reqID, utils.MonitorCreated, toResponse(m, nil))
}

// GET /monitors?limit=&offset=
func (h *Handler) ListMonitors(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.monitor.list"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	user, ok := middle.UserFromContext(ctx)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "user is unauthorised")
		return
	}

	limit, offset, err := pagination(r, op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	views, err := h.service.List(ctx, user.UserID, limit, offset)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	monitors := make([]MonitorResponse, 0, len(views))
	for i := range views {
		monitors = append(monitors, toResponse(views[i].Monitor, &views[i].Status))
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "", ListMonitorsResponse{
		Limit:    limit,
		Offset:   offset,
		Monitors: monitors,
	})
}

// GET /monitors/{monitorID}
func (h *Handler) GetMonitor(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.monitor.get"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	userID, monitorID, err := h.owner(r, op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	v, err := h.service.Get(ctx, userID, monitorID)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, utils.MonitorRetrieved, toResponse(v.Monitor, &v.Status))
}

// PATCH /monitors/{monitorID}
func (h *Handler) UpdateMonitor(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.monitor.update"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	userID, monitorID, err := h.owner(r, op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	var req UpdateMonitorRequest
	if err := utils.DecodeAndValidate(r, h.validator, op, &req); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	m, err := h.service.Update(ctx, userID, monitorID, UpdateMonitorCmd{
		Name:        req.Name,
		IntervalSec: req.CheckIntervalSeconds,
		Enabled:     req.Enabled,
	})
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, utils.MonitorUpdated, toResponse(m, nil))
}

// DELETE /monitors/{monitorID}
func (h *Handler) DeleteMonitor(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.monitor.delete"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	userID, monitorID, err := h.owner(r, op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	if err := h.service.Delete(ctx, userID, monitorID); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON[any](w, http.StatusOK, reqID, utils.MonitorDeleted, nil)
}

// GET /monitors/{monitorID}/history?from=&to=
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.monitor.history"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	userID, monitorID, err := h.owner(r, op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	from, to, err := timeRange(r, op, time.Now())
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	results, err := h.service.History(ctx, userID, monitorID, from, to)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "", HistoryResponse{
		MonitorID: monitorID.String(),
		From:      from,
		To:        to,
		Results:   results,
	})
}

// GET /monitors/{monitorID}/incidents?from=&to=
func (h *Handler) GetIncidents(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.monitor.incidents"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	userID, monitorID, err := h.owner(r, op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	from, to, err := timeRange(r, op, time.Now())
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	incidents, err := h.service.Incidents(ctx, userID, monitorID, from, to)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "", IncidentsResponse{
		MonitorID: monitorID.String(),
		From:      from,
		To:        to,
		Incidents: incidents,
	})
}

// POST /monitors/{monitorID}/check
func (h *Handler) CheckNow(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.monitor.check"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	userID, monitorID, err := h.owner(r, op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	if err := h.service.CheckNow(ctx, userID, monitorID); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON[any](w, http.StatusAccepted, reqID, utils.CheckQueued, nil)
}

// POST /monitors/check-all
func (h *Handler) CheckAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	user, ok := middle.UserFromContext(ctx)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "user is unauthorised")
		return
	}

	res, err := h.service.CheckAll(ctx, user.UserID)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusAccepted, reqID, utils.CheckQueued, res)
}

// GET /monitors/{monitorID}/channels
func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.monitor.list_channels"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	userID, monitorID, err := h.owner(r, op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	channels, err := h.service.Channels(ctx, userID, monitorID)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	if channels == nil {
		channels = []channel.Channel{}
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "", channels)
}

// PUT /monitors/{monitorID}/channels/{channelID}
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.monitor.subscribe"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	userID, monitorID, err := h.owner(r, op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	channelID, err := pathUUID(r, "channelID", op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	if err := h.service.Subscribe(ctx, userID, monitorID, channelID); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON[any](w, http.StatusOK, reqID, utils.SubscriptionAdded, nil)
}

// DELETE /monitors/{monitorID}/channels/{channelID}
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.monitor.unsubscribe"
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	userID, monitorID, err := h.owner(r, op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	channelID, err := pathUUID(r, "channelID", op)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	if err := h.service.Unsubscribe(ctx, userID, monitorID, channelID); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON[any](w, http.StatusOK, reqID, utils.SubscriptionRemoved, nil)
}

// owner returns the caller and the monitor id from the path.
func (h *Handler) owner(r *http.Request, op string) (uuid.UUID, uuid.UUID, error) {
	user, ok := middle.UserFromContext(r.Context())
	if !ok {
		return uuid.Nil, uuid.Nil, &apperror.Error{Kind: apperror.Unauthorised, Op: op, Message: "user is unauthorised"}
	}
	monitorID, err := pathUUID(r, "monitorID", op)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return user.UserID, monitorID, nil
}

func pathUUID(r *http.Request, name, op string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperror.Invalid(op, name+" must be a valid uuid")
	}
	return id, nil
}

func pagination(r *http.Request, op string) (int32, int32, error) {
	q := r.URL.Query()
	limit, offset := int64(defaultLimit), int64(0)

	if s := q.Get("limit"); s != "" {
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil || v < 1 || v > maxLimit {
			return 0, 0, apperror.Invalid(op, "limit must be between 1 and "+strconv.Itoa(maxLimit))
		}
		limit = v
	}
	if s := q.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil || v < 0 {
			return 0, 0, apperror.Invalid(op, "offset must be a non-negative integer")
		}
		offset = v
	}
	return int32(limit), int32(offset), nil
}

// timeRange reads from and to as RFC 3339. Missing bounds default to the
// last 24 hours ending at now.
func timeRange(r *http.Request, op string, now time.Time) (time.Time, time.Time, error) {
	q := r.URL.Query()
	to := now.UTC()
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, time.Time{}, apperror.Invalid(op, "to must be an RFC 3339 timestamp")
		}
		to = t
	}

	from := to.Add(-defaultRange)
	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, time.Time{}, apperror.Invalid(op, "from must be an RFC 3339 timestamp")
		}
		from = t
	}

	if from.After(to) {
		return time.Time{}, time.Time{}, apperror.Invalid(op, "from must not be after to")
	}
	return from, to, nil
}
