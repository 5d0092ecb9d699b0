package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/lock"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/middleware"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/repository"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/service"
)

type fakeApptStore struct {
	mu    sync.Mutex
	items map[string]*models.Appointment
	order []string
}

func newFakeApptStore() *fakeApptStore {
	return &fakeApptStore{items: make(map[string]*models.Appointment)}
}

func (s *fakeApptStore) List(context.Context, models.AppointmentFilter) ([]models.Appointment, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Appointment
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out, len(out), nil
}

func (s *fakeApptStore) FindByID(_ context.Context, id string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *a
	return &copied, nil
}

func (s *fakeApptStore) ListBlockingForSlot(_ context.Context, facultyID, date string) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Appointment
	for _, id := range s.order {
		a := s.items[id]
		if a.FacultyID == facultyID && a.Date == date && a.Status.Blocking() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *fakeApptStore) CreateWithNotification(_ context.Context, appt *models.Appointment, notif *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt.ID = uuid.NewString()
	notif.AppointmentID = appt.ID
	copied := *appt
	s.items[appt.ID] = &copied
	s.order = append(s.order, appt.ID)
	return nil
}

func (s *fakeApptStore) TransitionWithNotification(_ context.Context, appt *models.Appointment, expected models.AppointmentStatus, _ *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.items[appt.ID]
	if current == nil || current.Status != expected {
		return repository.ErrStaleTransition
	}
	current.Status = appt.Status
	return nil
}

type fakeIndex struct{ open bool }

func (f fakeIndex) IsOpen(context.Context, string, models.Weekday, int, int) (bool, error) {
	return f.open, nil
}

type fakeDirectory struct{}

func (fakeDirectory) FindByID(_ context.Context, id string) (*models.User, error) {
	switch id {
	case "f1":
		return &models.User{ID: "f1", Role: models.RoleFaculty}, nil
	case "s1":
		return &models.User{ID: "s1", Role: models.RoleStudent}, nil
	}
	return nil, sql.ErrNoRows
}

func newBookingHandler(store *fakeApptStore) *AppointmentHandler {
	clock := func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }
	svc := service.NewSchedulingService(store, fakeIndex{open: true}, fakeDirectory{}, lock.NewKeyed(), 50*time.Millisecond, 90, clock, nil, nil, nil)
	return NewAppointmentHandler(svc)
}

func requestContext(t *testing.T, method, target string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	c.Request = httptest.NewRequest(method, target, &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}
}

func facultyClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "f1", Role: models.RoleFaculty}
}

func bookingPayload() service.CreateAppointmentRequest {
	return service.CreateAppointmentRequest{
		FacultyID: "f1",
		Date:      "2026-09-07",
		StartTime: "09:00",
		EndTime:   "09:30",
		Purpose:   "advising",
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestAppointmentHandlerCreateRequiresAuth(t *testing.T) {
	handler := newBookingHandler(newFakeApptStore())

	c, rec := requestContext(t, http.MethodPost, "/appointments", bookingPayload(), nil)
	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAppointmentHandlerCreate(t *testing.T) {
	handler := newBookingHandler(newFakeApptStore())

	c, rec := requestContext(t, http.MethodPost, "/appointments", bookingPayload(), studentClaims())
	handler.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	var appt models.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &appt))
	assert.Equal(t, models.StatusRequested, appt.Status)
	assert.Equal(t, "s1", appt.StudentID)
}

func TestAppointmentHandlerCreateRouteAllowsAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newBookingHandler(newFakeApptStore())

	claims := &models.JWTClaims{UserID: "adm", Role: models.RoleAdmin}
	r := gin.New()
	r.POST("/appointments",
		func(c *gin.Context) { c.Set(middleware.ContextUserKey, claims) },
		middleware.RequireRoles(models.RoleStudent, models.RoleAdmin),
		handler.Create,
	)

	payload := bookingPayload()
	payload.StudentID = "s1"
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	req := httptest.NewRequest(http.MethodPost, "/appointments", &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	var appt models.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &appt))
	assert.Equal(t, "s1", appt.StudentID)

	// Faculty stay locked out of the booking route.
	claims = facultyClaims()
	buf.Reset()
	require.NoError(t, json.NewEncoder(&buf).Encode(bookingPayload()))
	req = httptest.NewRequest(http.MethodPost, "/appointments", &buf)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAppointmentHandlerCreateConflict(t *testing.T) {
	store := newFakeApptStore()
	handler := newBookingHandler(store)

	c, rec := requestContext(t, http.MethodPost, "/appointments", bookingPayload(), studentClaims())
	handler.Create(c)
	require.Equal(t, http.StatusCreated, rec.Code)

	payload := bookingPayload()
	payload.StartTime = "09:15"
	payload.EndTime = "09:45"
	c, rec = requestContext(t, http.MethodPost, "/appointments", payload, studentClaims())
	handler.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SLOT_CONFLICT", env.Error.Code)
}

func TestAppointmentHandlerConfirmFlow(t *testing.T) {
	store := newFakeApptStore()
	handler := newBookingHandler(store)

	c, rec := requestContext(t, http.MethodPost, "/appointments", bookingPayload(), studentClaims())
	handler.Create(c)
	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	var appt models.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &appt))

	c, rec = requestContext(t, http.MethodPost, "/appointments/"+appt.ID+"/confirm", nil, facultyClaims())
	c.Params = gin.Params{{Key: "id", Value: appt.ID}}
	handler.Confirm(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second confirm is a lifecycle violation.
	c, rec = requestContext(t, http.MethodPost, "/appointments/"+appt.ID+"/confirm", nil, facultyClaims())
	c.Params = gin.Params{{Key: "id", Value: appt.ID}}
	handler.Confirm(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
	env = decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)
}
