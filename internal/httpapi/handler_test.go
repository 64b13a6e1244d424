package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"queueease/queue-service/internal/models"
	"queueease/queue-service/internal/store"
)

type fakeStore struct {
	joinFn        func(ctx context.Context, input store.JoinQueueInput) (store.EntryDetail, error)
	getEntryFn    func(ctx context.Context, entryID string, now time.Time) (store.EntryDetail, error)
	completeFn    func(ctx context.Context, entryID string, now time.Time) (models.QueueEntry, error)
	leaveFn       func(ctx context.Context, entryID, userID string, now time.Time) error
	transferFn    func(ctx context.Context, input store.TransferInput) (store.EntryDetail, error)
	activeFn      func(ctx context.Context, userID string, now time.Time) (store.EntryDetail, error)
	historyFn     func(ctx context.Context, userID string) ([]store.EntryDetail, error)
	lookupQRFn    func(ctx context.Context, hash string) (store.EntryDetail, error)
	createApptFn  func(ctx context.Context, input store.CreateAppointmentInput) (models.AppointmentEntry, error)
	getApptFn     func(ctx context.Context, orderID string, now time.Time) (store.AppointmentDetail, error)
	checkInFn     func(ctx context.Context, orderID string, now time.Time) (models.AppointmentEntry, error)
	cancelApptFn  func(ctx context.Context, orderID, userID string, now time.Time) error
	setDelayFn    func(ctx context.Context, orderID string, minutes int, now time.Time) error
}

func (f *fakeStore) JoinQueue(ctx context.Context, input store.JoinQueueInput) (store.EntryDetail, error) {
	if f.joinFn == nil {
		return store.EntryDetail{}, nil
	}
	return f.joinFn(ctx, input)
}

func (f *fakeStore) GetEntry(ctx context.Context, entryID string, now time.Time) (store.EntryDetail, error) {
	if f.getEntryFn == nil {
		return store.EntryDetail{}, nil
	}
	return f.getEntryFn(ctx, entryID, now)
}

func (f *fakeStore) CompleteEntry(ctx context.Context, entryID string, now time.Time) (models.QueueEntry, error) {
	if f.completeFn == nil {
		return models.QueueEntry{}, nil
	}
	return f.completeFn(ctx, entryID, now)
}

func (f *fakeStore) LeaveQueue(ctx context.Context, entryID, userID string, now time.Time) error {
	if f.leaveFn == nil {
		return nil
	}
	return f.leaveFn(ctx, entryID, userID, now)
}

func (f *fakeStore) TransferEntry(ctx context.Context, input store.TransferInput) (store.EntryDetail, error) {
	if f.transferFn == nil {
		return store.EntryDetail{}, nil
	}
	return f.transferFn(ctx, input)
}

func (f *fakeStore) ActiveEntryForUser(ctx context.Context, userID string, now time.Time) (store.EntryDetail, error) {
	if f.activeFn == nil {
		return store.EntryDetail{}, nil
	}
	return f.activeFn(ctx, userID, now)
}

func (f *fakeStore) EntryHistory(ctx context.Context, userID string) ([]store.EntryDetail, error) {
	if f.historyFn == nil {
		return nil, nil
	}
	return f.historyFn(ctx, userID)
}

func (f *fakeStore) LookupQR(ctx context.Context, hash string) (store.EntryDetail, error) {
	if f.lookupQRFn == nil {
		return store.EntryDetail{}, nil
	}
	return f.lookupQRFn(ctx, hash)
}

func (f *fakeStore) CreateAppointment(ctx context.Context, input store.CreateAppointmentInput) (models.AppointmentEntry, error) {
	if f.createApptFn == nil {
		return models.AppointmentEntry{}, nil
	}
	return f.createApptFn(ctx, input)
}

func (f *fakeStore) GetAppointment(ctx context.Context, orderID string, now time.Time) (store.AppointmentDetail, error) {
	if f.getApptFn == nil {
		return store.AppointmentDetail{}, nil
	}
	return f.getApptFn(ctx, orderID, now)
}

func (f *fakeStore) UserAppointments(ctx context.Context, userID string) ([]store.AppointmentDetail, error) {
	return nil, nil
}

func (f *fakeStore) CheckInAppointment(ctx context.Context, orderID string, now time.Time) (models.AppointmentEntry, error) {
	if f.checkInFn == nil {
		return models.AppointmentEntry{}, nil
	}
	return f.checkInFn(ctx, orderID, now)
}

func (f *fakeStore) StartAppointment(ctx context.Context, orderID string, now time.Time) (models.AppointmentEntry, error) {
	return models.AppointmentEntry{}, nil
}

func (f *fakeStore) CompleteAppointment(ctx context.Context, orderID string, now time.Time) (models.AppointmentEntry, error) {
	return models.AppointmentEntry{}, nil
}

func (f *fakeStore) CancelAppointment(ctx context.Context, orderID, userID string, now time.Time) error {
	if f.cancelApptFn == nil {
		return nil
	}
	return f.cancelApptFn(ctx, orderID, userID, now)
}

func (f *fakeStore) SetAppointmentDelay(ctx context.Context, orderID string, minutes int, now time.Time) error {
	if f.setDelayFn == nil {
		return nil
	}
	return f.setDelayFn(ctx, orderID, minutes, now)
}

func (f *fakeStore) PendingItems(ctx context.Context, limit int) ([]store.PendingItem, error) {
	return nil, nil
}

func (f *fakeStore) DueEntries(ctx context.Context, now time.Time, limit int) ([]store.PendingItem, error) {
	return nil, nil
}

func (f *fakeStore) AutoCompleteEntry(ctx context.Context, entryID string, now time.Time) (bool, error) {
	return false, nil
}

func (f *fakeStore) UpcomingAppointments(ctx context.Context, now time.Time, limit int) ([]store.AppointmentItem, error) {
	return nil, nil
}

func (f *fakeStore) RecordQueueNotification(ctx context.Context, entryID string, position int, now time.Time) error {
	return nil
}

func (f *fakeStore) RecordReminderSent(ctx context.Context, orderID string, now time.Time) error {
	return nil
}

func (f *fakeStore) MarkDelayNotified(ctx context.Context, orderID string) error {
	return nil
}

func (f *fakeStore) MarkMissed(ctx context.Context, orderID string, now time.Time) error {
	return nil
}

func (f *fakeStore) LatestActiveToken(ctx context.Context, userID string) (string, error) {
	return "", store.ErrTokenNotFound
}

func TestJoinQueueValidation(t *testing.T) {
	h := NewHandler(&fakeStore{})
	req := httptest.NewRequest(http.MethodPost, "/api/queues", bytes.NewBufferString(`{"user_id":""}`))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestJoinQueueCreated(t *testing.T) {
	st := &fakeStore{
		joinFn: func(ctx context.Context, input store.JoinQueueInput) (store.EntryDetail, error) {
			if input.UserID != "u-1" || input.ServiceID != "svc-1" {
				t.Fatalf("unexpected input: %+v", input)
			}
			return store.EntryDetail{
				Entry:       models.QueueEntry{EntryID: "e-1", Status: models.StatusPending},
				ServiceName: "Coffee Corner",
				Position:    3,
				WaitMinutes: 9,
			}, nil
		},
	}
	h := NewHandler(st)
	req := httptest.NewRequest(http.MethodPost, "/api/queues", bytes.NewBufferString(`{"user_id":"u-1","service_id":"svc-1"}`))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var detail store.EntryDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.Position != 3 || detail.WaitMinutes != 9 {
		t.Fatalf("unexpected body: %+v", detail)
	}
}

func TestJoinQueueUnknownService(t *testing.T) {
	st := &fakeStore{
		joinFn: func(ctx context.Context, input store.JoinQueueInput) (store.EntryDetail, error) {
			return store.EntryDetail{}, store.ErrServiceNotFound
		},
	}
	h := NewHandler(st)
	req := httptest.NewRequest(http.MethodPost, "/api/queues", bytes.NewBufferString(`{"user_id":"u-1","service_id":"nope"}`))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "service_not_found" {
		t.Fatalf("error code = %q", body.Error.Code)
	}
}

func TestLeaveQueueStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not owner", store.ErrNotAuthorized, http.StatusForbidden, "not_authorized"},
		{"window expired", store.ErrLeaveWindowExpired, http.StatusUnprocessableEntity, "leave_window_expired"},
		{"already done", store.ErrAlreadyCompleted, http.StatusConflict, "already_completed"},
		{"missing", store.ErrEntryNotFound, http.StatusNotFound, "entry_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := &fakeStore{
				leaveFn: func(ctx context.Context, entryID, userID string, now time.Time) error {
					return tc.err
				},
			}
			h := NewHandler(st)
			req := httptest.NewRequest(http.MethodPost, "/api/queues/e-1/leave", bytes.NewBufferString(`{"user_id":"u-1"}`))
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tc.code {
				t.Fatalf("error code = %q, want %q", body.Error.Code, tc.code)
			}
		})
	}
}

func TestGetEntryRoute(t *testing.T) {
	st := &fakeStore{
		getEntryFn: func(ctx context.Context, entryID string, now time.Time) (store.EntryDetail, error) {
			if entryID != "e-42" {
				t.Fatalf("entry id = %q", entryID)
			}
			return store.EntryDetail{Entry: models.QueueEntry{EntryID: entryID}}, nil
		},
	}
	h := NewHandler(st)
	req := httptest.NewRequest(http.MethodGet, "/api/queues/e-42", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestTransferIncompatible(t *testing.T) {
	st := &fakeStore{
		transferFn: func(ctx context.Context, input store.TransferInput) (store.EntryDetail, error) {
			return store.EntryDetail{}, store.ErrIncompatibleService
		},
	}
	h := NewHandler(st)
	body := `{"entry_id":"e-1","target_service_id":"svc-2","user_id":"u-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/queues/transfer", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	h := NewHandler(&fakeStore{})
	body := `{"user_id":"u-1","service_id":"svc-2","appointment_date":"not-a-date","appointment_time":"09:00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateAppointmentCreated(t *testing.T) {
	st := &fakeStore{
		createApptFn: func(ctx context.Context, input store.CreateAppointmentInput) (models.AppointmentEntry, error) {
			if input.AppointmentDate.Format("2006-01-02") != "2026-09-01" {
				t.Fatalf("date = %v", input.AppointmentDate)
			}
			return models.AppointmentEntry{OrderID: "u-1-20260901090000-abcd", Status: models.ApptStatusScheduled}, nil
		},
	}
	h := NewHandler(st)
	body := `{"user_id":"u-1","service_id":"svc-2","appointment_date":"2026-09-01","appointment_time":"09:00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateAppointmentNormalizesTime(t *testing.T) {
	var stored string
	st := &fakeStore{
		createApptFn: func(ctx context.Context, input store.CreateAppointmentInput) (models.AppointmentEntry, error) {
			stored = input.AppointmentTime
			return models.AppointmentEntry{OrderID: "u-1-20260901090000-abcd", Status: models.ApptStatusScheduled}, nil
		},
	}
	h := NewHandler(st)
	body := `{"user_id":"u-1","service_id":"svc-2","appointment_date":"2026-09-01","appointment_time":"9:00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if stored != "09:00:00" {
		t.Fatalf("stored time = %q, want 09:00:00", stored)
	}
}

func TestAppointmentActionRouting(t *testing.T) {
	checked := false
	st := &fakeStore{
		checkInFn: func(ctx context.Context, orderID string, now time.Time) (models.AppointmentEntry, error) {
			checked = true
			if orderID != "o-1" {
				t.Fatalf("order id = %q", orderID)
			}
			return models.AppointmentEntry{OrderID: orderID, Status: models.ApptStatusCheckedIn}, nil
		},
	}
	h := NewHandler(st)
	req := httptest.NewRequest(http.MethodPost, "/api/appointments/o-1/check-in", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !checked {
		t.Fatalf("status = %d checked=%v", rec.Code, checked)
	}
}

func TestCancelAppointmentCutoff(t *testing.T) {
	st := &fakeStore{
		cancelApptFn: func(ctx context.Context, orderID, userID string, now time.Time) error {
			return store.ErrCancelWindowExpired
		},
	}
	h := NewHandler(st)
	req := httptest.NewRequest(http.MethodPost, "/api/appointments/o-1/cancel", bytes.NewBufferString(`{"user_id":"u-1"}`))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestSetDelayRejectsNegative(t *testing.T) {
	h := NewHandler(&fakeStore{})
	req := httptest.NewRequest(http.MethodPost, "/api/appointments/o-1/delay", bytes.NewBufferString(`{"delay_minutes":-5}`))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewHandler(&fakeStore{})
	req := httptest.NewRequest(http.MethodDelete, "/api/queues", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
