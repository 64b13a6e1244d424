package httpapi

import (
	"encoding/json"
	"errors"
	"expvar"
	"net/http"
	"strings"
	"time"

	"queueease/queue-service/internal/store"
)

type Handler struct {
	store store.Store
	now   func() time.Time
}

func NewHandler(st store.Store) *Handler {
	return &Handler{
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type joinQueueRequest struct {
	UserID    string `json:"user_id"`
	ServiceID string `json:"service_id"`
}

type leaveQueueRequest struct {
	UserID string `json:"user_id"`
}

type transferRequest struct {
	EntryID         string `json:"entry_id"`
	TargetServiceID string `json:"target_service_id"`
	UserID          string `json:"user_id"`
}

type validateQRRequest struct {
	Hash string `json:"qr_hash"`
}

type createAppointmentRequest struct {
	UserID          string `json:"user_id"`
	ServiceID       string `json:"service_id"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
}

type cancelAppointmentRequest struct {
	UserID string `json:"user_id"`
}

type setDelayRequest struct {
	DelayMinutes int `json:"delay_minutes"`
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", expvar.Handler())
	mux.HandleFunc("/api/queues", h.handleJoinQueue)
	mux.HandleFunc("/api/queues/active", h.handleActiveEntry)
	mux.HandleFunc("/api/queues/history", h.handleEntryHistory)
	mux.HandleFunc("/api/queues/transfer", h.handleTransfer)
	mux.HandleFunc("/api/queues/", h.handleEntryActions)
	mux.HandleFunc("/api/qr/validate", h.handleValidateQR)
	mux.HandleFunc("/api/appointments", h.handleAppointments)
	mux.HandleFunc("/api/appointments/", h.handleAppointmentActions)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleJoinQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req joinQueueRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.UserID == "" || req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_id and service_id are required")
		return
	}

	detail, err := h.store.JoinQueue(r.Context(), store.JoinQueueInput{
		UserID:    req.UserID,
		ServiceID: req.ServiceID,
		Now:       h.now(),
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

func (h *Handler) handleActiveEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}
	detail, err := h.store.ActiveEntryForUser(r.Context(), userID, h.now())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleEntryHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}
	details, err := h.store.EntryHistory(r.Context(), userID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if details == nil {
		details = []store.EntryDetail{}
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req transferRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.EntryID = strings.TrimSpace(req.EntryID)
	req.TargetServiceID = strings.TrimSpace(req.TargetServiceID)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.EntryID == "" || req.TargetServiceID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "entry_id, target_service_id, and user_id are required")
		return
	}

	detail, err := h.store.TransferEntry(r.Context(), store.TransferInput{
		EntryID:         req.EntryID,
		TargetServiceID: req.TargetServiceID,
		UserID:          req.UserID,
		Now:             h.now(),
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleEntryActions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/queues/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		detail, err := h.store.GetEntry(r.Context(), parts[0], h.now())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)

	case len(parts) == 2 && parts[1] == "complete":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		entry, err := h.store.CompleteEntry(r.Context(), parts[0], h.now())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)

	case len(parts) == 2 && parts[1] == "leave":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req leaveQueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
			return
		}
		if strings.TrimSpace(req.UserID) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
			return
		}
		if err := h.store.LeaveQueue(r.Context(), parts[0], req.UserID, h.now()); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleValidateQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req validateQRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.Hash = strings.TrimSpace(req.Hash)
	if req.Hash == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "qr_hash is required")
		return
	}
	detail, err := h.store.LookupQR(r.Context(), req.Hash)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleAppointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreateAppointment(w, r)
	case http.MethodGet:
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if userID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
			return
		}
		details, err := h.store.UserAppointments(r.Context(), userID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if details == nil {
			details = []store.AppointmentDetail{}
		}
		writeJSON(w, http.StatusOK, details)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.AppointmentDate = strings.TrimSpace(req.AppointmentDate)
	req.AppointmentTime = strings.TrimSpace(req.AppointmentTime)
	if req.UserID == "" || req.ServiceID == "" || req.AppointmentDate == "" || req.AppointmentTime == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_id, service_id, appointment_date, and appointment_time are required")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", req.AppointmentDate, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "appointment_date must be YYYY-MM-DD")
		return
	}
	slot, err := time.Parse("15:04", req.AppointmentTime)
	if err != nil {
		slot, err = time.Parse("15:04:05", req.AppointmentTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "appointment_time must be HH:MM")
			return
		}
	}

	appt, err := h.store.CreateAppointment(r.Context(), store.CreateAppointmentInput{
		UserID:          req.UserID,
		ServiceID:       req.ServiceID,
		AppointmentDate: date,
		// Stored zero-padded so lexical ordering matches clock order.
		AppointmentTime: slot.Format("15:04:05"),
		Now:             h.now(),
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (h *Handler) handleAppointmentActions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/appointments/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		detail, err := h.store.GetAppointment(r.Context(), parts[0], h.now())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)

	case len(parts) == 2:
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleAppointmentAction(w, r, parts[0], parts[1])

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleAppointmentAction(w http.ResponseWriter, r *http.Request, orderID, action string) {
	switch action {
	case "check-in":
		appt, err := h.store.CheckInAppointment(r.Context(), orderID, h.now())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)

	case "start":
		appt, err := h.store.StartAppointment(r.Context(), orderID, h.now())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)

	case "complete":
		appt, err := h.store.CompleteAppointment(r.Context(), orderID, h.now())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)

	case "cancel":
		var req cancelAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
			return
		}
		if strings.TrimSpace(req.UserID) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
			return
		}
		if err := h.store.CancelAppointment(r.Context(), orderID, req.UserID, h.now()); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})

	case "delay":
		var req setDelayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
			return
		}
		if req.DelayMinutes < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "delay_minutes must be >= 0")
			return
		}
		if err := h.store.SetAppointmentDelay(r.Context(), orderID, req.DelayMinutes, h.now()); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// writeStoreError translates the store's sentinel errors into
// distinguishable status codes and bodies.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", "service not found")
	case errors.Is(err, store.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", "user not found")
	case errors.Is(err, store.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "entry_not_found", "queue entry not found")
	case errors.Is(err, store.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", "appointment not found")
	case errors.Is(err, store.ErrQRCodeNotFound):
		writeError(w, http.StatusNotFound, "qr_not_found", "qr code not found")
	case errors.Is(err, store.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not_authorized", "not authorized")
	case errors.Is(err, store.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "already_completed", "entry is no longer pending")
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", "invalid status transition")
	case errors.Is(err, store.ErrLeaveWindowExpired):
		writeError(w, http.StatusUnprocessableEntity, "leave_window_expired", "leave window expired")
	case errors.Is(err, store.ErrTransferWindowExpired):
		writeError(w, http.StatusUnprocessableEntity, "transfer_window_expired", "transfer window expired")
	case errors.Is(err, store.ErrCancelWindowExpired):
		writeError(w, http.StatusUnprocessableEntity, "cancel_window_expired", "cancellation cutoff passed")
	case errors.Is(err, store.ErrIncompatibleService):
		writeError(w, http.StatusUnprocessableEntity, "incompatible_service", "services are not compatible for transfer")
	case errors.Is(err, store.ErrSameService):
		writeError(w, http.StatusUnprocessableEntity, "same_service", "cannot transfer to the same service")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
