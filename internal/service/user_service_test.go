package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
	appErrors "github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/errors"
)

type directoryStore struct {
	users      map[string]*models.User
	referenced map[string]bool
}

func newDirectoryStore(users ...*models.User) *directoryStore {
	s := &directoryStore{users: make(map[string]*models.User), referenced: make(map[string]bool)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *directoryStore) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (s *directoryStore) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (s *directoryStore) HasAppointmentReferences(_ context.Context, userID string) (bool, error) {
	return s.referenced[userID], nil
}

func (s *directoryStore) Update(_ context.Context, user *models.User) error {
	existing, ok := s.users[user.ID]
	if !ok {
		return sql.ErrNoRows
	}
	existing.Name = user.Name
	existing.DepartmentID = user.DepartmentID
	return nil
}

func (s *directoryStore) UpdateRole(_ context.Context, id string, role models.UserRole) error {
	existing, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	existing.Role = role
	return nil
}

func newDirectory(store *directoryStore) *UserService {
	return NewUserService(store, deptStub{ids: map[string]bool{"d1": true}}, nil, nil)
}

func TestUserChangeRole(t *testing.T) {
	store := newDirectoryStore(&models.User{ID: "u1", Name: "Alice", Role: models.RoleStudent})
	svc := newDirectory(store)

	updated, err := svc.ChangeRole(context.Background(), "u1", models.RoleFaculty)
	require.NoError(t, err)
	assert.Equal(t, models.RoleFaculty, updated.Role)
}

func TestUserChangeRoleFrozenByAppointments(t *testing.T) {
	store := newDirectoryStore(&models.User{ID: "u1", Name: "Alice", Role: models.RoleStudent})
	store.referenced["u1"] = true
	svc := newDirectory(store)

	_, err := svc.ChangeRole(context.Background(), "u1", models.RoleFaculty)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, models.RoleStudent, store.users["u1"].Role)
}

func TestUserChangeRoleNoOp(t *testing.T) {
	store := newDirectoryStore(&models.User{ID: "u1", Name: "Alice", Role: models.RoleStudent})
	store.referenced["u1"] = true
	svc := newDirectory(store)

	// Re-assigning the current role never hits the freeze check.
	updated, err := svc.ChangeRole(context.Background(), "u1", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, updated.Role)
}

func TestUserUpdateProfile(t *testing.T) {
	store := newDirectoryStore(&models.User{ID: "u1", Name: "Alice", Role: models.RoleStudent})
	svc := newDirectory(store)

	dept := "d1"
	updated, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileRequest{Name: "Alice Chen", DepartmentID: &dept})
	require.NoError(t, err)
	assert.Equal(t, "Alice Chen", updated.Name)
	require.NotNil(t, updated.DepartmentID)
	assert.Equal(t, "d1", *updated.DepartmentID)

	missing := "nope"
	_, err = svc.UpdateProfile(context.Background(), "u1", UpdateProfileRequest{Name: "Alice", DepartmentID: &missing})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.UpdateProfile(context.Background(), "ghost", UpdateProfileRequest{Name: "Alice"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
