package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
	appErrors "github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/errors"
)

type windowStore struct {
	mu    sync.Mutex
	items map[string]*models.AvailabilityWindow
	order []string
}

func newWindowStore() *windowStore {
	return &windowStore{items: make(map[string]*models.AvailabilityWindow)}
}

func (s *windowStore) ListByFaculty(_ context.Context, facultyID string) ([]models.AvailabilityWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AvailabilityWindow
	for _, id := range s.order {
		if w := s.items[id]; w.FacultyID == facultyID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (s *windowStore) ListActiveByDay(_ context.Context, facultyID string, day models.Weekday) ([]models.AvailabilityWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AvailabilityWindow
	for _, id := range s.order {
		w := s.items[id]
		if w.FacultyID == facultyID && w.DayOfWeek == day && w.Active {
			out = append(out, *w)
		}
	}
	// Callers expect windows sorted by start time.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].StartTime < out[j-1].StartTime; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (s *windowStore) FindByID(_ context.Context, id string) (*models.AvailabilityWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *w
	return &copied, nil
}

func (s *windowStore) Create(_ context.Context, window *models.AvailabilityWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	copied := *window
	s.items[window.ID] = &copied
	s.order = append(s.order, window.ID)
	return nil
}

func (s *windowStore) Update(_ context.Context, window *models.AvailabilityWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[window.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *window
	s.items[window.ID] = &copied
	return nil
}

func (s *windowStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

type recordingCache struct {
	mu      sync.Mutex
	values  map[string][]models.AvailabilityWindow
	deletes []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{values: make(map[string][]models.AvailabilityWindow)}
}

func (c *recordingCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	windows, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*[]models.AvailabilityWindow)) = windows
	return nil
}

func (c *recordingCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value.([]models.AvailabilityWindow)
	return nil
}

func (c *recordingCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	c.deletes = append(c.deletes, key)
	return nil
}

func newIndex(store *windowStore, cache *recordingCache) *AvailabilityService {
	var c availabilityCache
	if cache != nil {
		c = cache
	}
	return NewAvailabilityService(store, facultyDirectory(), c, time.Minute, nil, nil)
}

func addWindow(t *testing.T, svc *AvailabilityService, day, start, end string) *models.AvailabilityWindow {
	t.Helper()
	w, err := svc.CreateWindow(context.Background(), "f1", UpsertWindowRequest{DayOfWeek: day, StartTime: start, EndTime: end})
	require.NoError(t, err)
	return w
}

func TestAvailabilityIsOpen(t *testing.T) {
	svc := newIndex(newWindowStore(), nil)
	addWindow(t, svc, "Mon", "09:00", "12:00")

	cases := []struct {
		name       string
		start, end string
		open       bool
	}{
		{"inside", "09:30", "10:00", true},
		{"exact", "09:00", "12:00", true},
		{"starts before", "08:30", "09:30", false},
		{"ends after", "11:30", "12:30", false},
		{"disjoint", "13:00", "14:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, err := models.ParseClock(tc.start)
			require.NoError(t, err)
			end, err := models.ParseClock(tc.end)
			require.NoError(t, err)
			open, err := svc.IsOpen(context.Background(), "f1", models.Mon, start, end)
			require.NoError(t, err)
			assert.Equal(t, tc.open, open)
		})
	}
}

func TestAvailabilityIsOpenMergesAdjacentWindows(t *testing.T) {
	svc := newIndex(newWindowStore(), nil)
	addWindow(t, svc, "Mon", "09:00", "10:00")
	addWindow(t, svc, "Mon", "10:00", "11:00")

	open, err := svc.IsOpen(context.Background(), "f1", models.Mon, 9*60+30, 10*60+30)
	require.NoError(t, err)
	assert.True(t, open, "slot spanning two back-to-back windows is open")
}

func TestAvailabilityIsOpenGapBetweenWindows(t *testing.T) {
	svc := newIndex(newWindowStore(), nil)
	addWindow(t, svc, "Mon", "09:00", "10:00")
	addWindow(t, svc, "Mon", "10:30", "11:30")

	open, err := svc.IsOpen(context.Background(), "f1", models.Mon, 9*60+30, 11*60)
	require.NoError(t, err)
	assert.False(t, open, "slot crossing the 10:00-10:30 gap is closed")
}

func TestAvailabilityIsOpenIgnoresInactiveWindows(t *testing.T) {
	store := newWindowStore()
	svc := newIndex(store, nil)
	w := addWindow(t, svc, "Mon", "09:00", "12:00")

	off := false
	_, err := svc.UpdateWindow(context.Background(), "f1", w.ID, UpsertWindowRequest{DayOfWeek: "Mon", StartTime: "09:00", EndTime: "12:00", Active: &off})
	require.NoError(t, err)

	open, err := svc.IsOpen(context.Background(), "f1", models.Mon, 9*60, 10*60)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestAvailabilityIsOpenNonFaculty(t *testing.T) {
	svc := newIndex(newWindowStore(), nil)

	_, err := svc.IsOpen(context.Background(), "s1", models.Mon, 9*60, 10*60)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = svc.IsOpen(context.Background(), "missing", models.Mon, 9*60, 10*60)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAvailabilityCreateWindowRejectsOverlap(t *testing.T) {
	svc := newIndex(newWindowStore(), nil)
	addWindow(t, svc, "Mon", "09:00", "12:00")

	_, err := svc.CreateWindow(context.Background(), "f1", UpsertWindowRequest{DayOfWeek: "Mon", StartTime: "11:00", EndTime: "13:00"})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	// Same hours on another weekday are fine.
	_, err = svc.CreateWindow(context.Background(), "f1", UpsertWindowRequest{DayOfWeek: "Tue", StartTime: "11:00", EndTime: "13:00"})
	assert.NoError(t, err)
}

func TestAvailabilityCreateWindowIgnoresInactiveOverlap(t *testing.T) {
	svc := newIndex(newWindowStore(), nil)
	w := addWindow(t, svc, "Mon", "09:00", "12:00")

	// A deactivated window releases its hours.
	off := false
	_, err := svc.UpdateWindow(context.Background(), "f1", w.ID, UpsertWindowRequest{DayOfWeek: "Mon", StartTime: "09:00", EndTime: "12:00", Active: &off})
	require.NoError(t, err)

	_, err = svc.CreateWindow(context.Background(), "f1", UpsertWindowRequest{DayOfWeek: "Mon", StartTime: "10:00", EndTime: "11:00"})
	assert.NoError(t, err)
}

func TestAvailabilityCreateWindowValidation(t *testing.T) {
	svc := newIndex(newWindowStore(), nil)

	_, err := svc.CreateWindow(context.Background(), "f1", UpsertWindowRequest{DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateWindow(context.Background(), "f1", UpsertWindowRequest{DayOfWeek: "Mon", StartTime: "10:00", EndTime: "09:00"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAvailabilityWindowOwnership(t *testing.T) {
	store := newWindowStore()
	svc := newIndex(store, nil)
	require.NoError(t, store.Create(context.Background(), &models.AvailabilityWindow{
		ID: "w-other", FacultyID: "f2", DayOfWeek: models.Mon, StartTime: "09:00", EndTime: "10:00", Active: true,
	}))

	err := svc.DeleteWindow(context.Background(), "f1", "w-other")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAvailabilityCacheInvalidation(t *testing.T) {
	store := newWindowStore()
	cache := newRecordingCache()
	svc := newIndex(store, cache)
	w := addWindow(t, svc, "Mon", "09:00", "12:00")

	// First query populates the cache; mutation clears it.
	open, err := svc.IsOpen(context.Background(), "f1", models.Mon, 9*60, 10*60)
	require.NoError(t, err)
	assert.True(t, open)
	assert.Contains(t, cache.values, "availability:f1:Mon")

	require.NoError(t, svc.DeleteWindow(context.Background(), "f1", w.ID))
	assert.NotContains(t, cache.values, "availability:f1:Mon")
	assert.Contains(t, cache.deletes, "availability:f1:Mon")
}
