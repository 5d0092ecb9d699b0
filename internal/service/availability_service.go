package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
	appErrors "github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/errors"
)

type availabilityRepository interface {
	ListByFaculty(ctx context.Context, facultyID string) ([]models.AvailabilityWindow, error)
	ListActiveByDay(ctx context.Context, facultyID string, day models.Weekday) ([]models.AvailabilityWindow, error)
	FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error)
	Create(ctx context.Context, window *models.AvailabilityWindow) error
	Update(ctx context.Context, window *models.AvailabilityWindow) error
	Delete(ctx context.Context, id string) error
}

type availabilityUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type availabilityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// UpsertWindowRequest carries an availability window payload.
type UpsertWindowRequest struct {
	DayOfWeek string `json:"day_of_week" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Active    *bool  `json:"is_available"`
}

// AvailabilityService owns faculty availability windows and answers slot
// containment queries for the scheduling engine.
type AvailabilityService struct {
	repo      availabilityRepository
	users     availabilityUserLookup
	cache     availabilityCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(repo availabilityRepository, users availabilityUserLookup, cache availabilityCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &AvailabilityService{repo: repo, users: users, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// ListWindows returns all windows owned by the faculty member.
func (s *AvailabilityService) ListWindows(ctx context.Context, facultyID string) ([]models.AvailabilityWindow, error) {
	if err := s.ensureFaculty(ctx, facultyID); err != nil {
		return nil, err
	}
	windows, err := s.repo.ListByFaculty(ctx, facultyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}
	return windows, nil
}

// CreateWindow adds a window after validating it does not overlap existing
// windows on the same weekday.
func (s *AvailabilityService) CreateWindow(ctx context.Context, facultyID string, req UpsertWindowRequest) (*models.AvailabilityWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if err := s.ensureFaculty(ctx, facultyID); err != nil {
		return nil, err
	}

	day, start, end, err := s.parseWindow(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNoWindowOverlap(ctx, facultyID, day, start, end, ""); err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	window := &models.AvailabilityWindow{
		FacultyID: facultyID,
		DayOfWeek: day,
		StartTime: models.FormatClock(start),
		EndTime:   models.FormatClock(end),
		Active:    active,
	}
	if err := s.repo.Create(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability window")
	}
	s.invalidate(ctx, facultyID, day)
	return window, nil
}

// UpdateWindow rewrites a window owned by the faculty member.
func (s *AvailabilityService) UpdateWindow(ctx context.Context, facultyID, windowID string, req UpsertWindowRequest) (*models.AvailabilityWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	window, err := s.loadOwnedWindow(ctx, facultyID, windowID)
	if err != nil {
		return nil, err
	}

	day, start, end, err := s.parseWindow(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNoWindowOverlap(ctx, facultyID, day, start, end, windowID); err != nil {
		return nil, err
	}

	previousDay := window.DayOfWeek
	window.DayOfWeek = day
	window.StartTime = models.FormatClock(start)
	window.EndTime = models.FormatClock(end)
	if req.Active != nil {
		window.Active = *req.Active
	}

	if err := s.repo.Update(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability window")
	}
	s.invalidate(ctx, facultyID, previousDay)
	if day != previousDay {
		s.invalidate(ctx, facultyID, day)
	}
	return window, nil
}

// DeleteWindow removes a window owned by the faculty member.
func (s *AvailabilityService) DeleteWindow(ctx context.Context, facultyID, windowID string) error {
	window, err := s.loadOwnedWindow(ctx, facultyID, windowID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, windowID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability window")
	}
	s.invalidate(ctx, facultyID, window.DayOfWeek)
	return nil
}

// IsOpen reports whether [start,end) in minutes is fully contained in the
// union of the faculty's active windows for the weekday. Adjacent windows
// merge, so a slot spanning two back-to-back windows counts as open.
func (s *AvailabilityService) IsOpen(ctx context.Context, facultyID string, day models.Weekday, start, end int) (bool, error) {
	if err := s.ensureFaculty(ctx, facultyID); err != nil {
		return false, err
	}
	if start >= end {
		return false, nil
	}

	windows, err := s.activeWindows(ctx, facultyID, day)
	if err != nil {
		return false, err
	}

	// Windows arrive sorted by start time; walk them merging adjacency and
	// track how far the open cover extends past the requested start.
	cover := start
	for _, w := range windows {
		ws, err := models.ParseClock(w.StartTime)
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt availability window")
		}
		we, err := models.ParseClock(w.EndTime)
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt availability window")
		}
		if ws > cover {
			break
		}
		if we > cover {
			cover = we
		}
		if cover >= end {
			return true, nil
		}
	}
	return cover >= end, nil
}

func (s *AvailabilityService) activeWindows(ctx context.Context, facultyID string, day models.Weekday) ([]models.AvailabilityWindow, error) {
	key := availabilityCacheKey(facultyID, day)
	var cached []models.AvailabilityWindow
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	windows, err := s.repo.ListActiveByDay(ctx, facultyID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, windows, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache availability windows", zap.Error(err))
		}
	}
	return windows, nil
}

func (s *AvailabilityService) ensureFaculty(ctx context.Context, facultyID string) error {
	user, err := s.users.FindByID(ctx, facultyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "faculty member not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty member")
	}
	if user.Role != models.RoleFaculty {
		return appErrors.Clone(appErrors.ErrNotFound, "user is not a faculty member")
	}
	return nil
}

func (s *AvailabilityService) parseWindow(req UpsertWindowRequest) (models.Weekday, int, int, error) {
	day := models.Weekday(req.DayOfWeek)
	if !day.Valid() {
		return "", 0, 0, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be one of Mon..Sun")
	}
	start, err := models.ParseClock(req.StartTime)
	if err != nil {
		return "", 0, 0, appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	end, err := models.ParseClock(req.EndTime)
	if err != nil {
		return "", 0, 0, appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if start >= end {
		return "", 0, 0, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return day, start, end, nil
}

func (s *AvailabilityService) ensureNoWindowOverlap(ctx context.Context, facultyID string, day models.Weekday, start, end int, excludeID string) error {
	existing, err := s.repo.ListByFaculty(ctx, facultyID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	for _, w := range existing {
		if w.ID == excludeID || w.DayOfWeek != day || !w.Active {
			continue
		}
		ws, err := models.ParseClock(w.StartTime)
		if err != nil {
			continue
		}
		we, err := models.ParseClock(w.EndTime)
		if err != nil {
			continue
		}
		if models.Overlaps(start, end, ws, we) {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("window overlaps existing %s %s-%s", w.DayOfWeek, w.StartTime, w.EndTime))
		}
	}
	return nil
}

func (s *AvailabilityService) loadOwnedWindow(ctx context.Context, facultyID, windowID string) (*models.AvailabilityWindow, error) {
	window, err := s.repo.FindByID(ctx, windowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability window")
	}
	if window.FacultyID != facultyID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "window belongs to another faculty member")
	}
	return window, nil
}

func (s *AvailabilityService) invalidate(ctx context.Context, facultyID string, day models.Weekday) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, availabilityCacheKey(facultyID, day)); err != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
	}
}

func availabilityCacheKey(facultyID string, day models.Weekday) string {
	return fmt.Sprintf("availability:%s:%s", facultyID, day)
}
