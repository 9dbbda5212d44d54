package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-api/internal/models"
	appErrors "github.com/noah-isme/training-api/pkg/errors"
)

func newTestModuleService(store *fakeStore) *ModuleService {
	return NewModuleService(fakeModules{store}, store, store, nil, nil)
}

func TestModuleServiceCreate(t *testing.T) {
	store := newFakeStore()
	store.addUser("i1", "ivy", models.RoleInstructor, true)
	svc := newTestModuleService(store)

	module, err := svc.Create(context.Background(), "i1", models.CreateModuleRequest{Title: "  Safety  ", DurationMinutes: 45})
	require.NoError(t, err)
	assert.Equal(t, "Safety", module.Title)
	assert.Equal(t, "i1", module.CreatedBy)
	assert.Equal(t, "ivy", module.CreatorUsername)
	assert.True(t, module.IsActive)
}

func TestModuleServiceCreateValidation(t *testing.T) {
	store := newFakeStore()
	store.addUser("i1", "ivy", models.RoleInstructor, true)
	store.addUser("t1", "bob", models.RoleTrainee, true)
	svc := newTestModuleService(store)

	_, err := svc.Create(context.Background(), "i1", models.CreateModuleRequest{Title: "   "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), "i1", models.CreateModuleRequest{Title: strings.Repeat("x", 201)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), "i1", models.CreateModuleRequest{Title: "Neg", DurationMinutes: -1})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), "t1", models.CreateModuleRequest{Title: "Sneaky"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestModuleServiceListHidesInactive(t *testing.T) {
	store := newFakeStore()
	store.addModule("m1", "Active", "i1", true)
	store.addModule("m2", "Retired", "i1", false)
	svc := newTestModuleService(store)

	modules, err := svc.List(context.Background(), models.ModuleFilter{})
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "m1", modules[0].ID)

	modules, err = svc.List(context.Background(), models.ModuleFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, modules, 2)
}

func TestModuleServiceUpdatePartial(t *testing.T) {
	store := newFakeStore()
	store.addModule("m1", "Original", "i1", true)
	svc := newTestModuleService(store)

	duration := 90
	module, err := svc.Update(context.Background(), "m1", models.UpdateModuleRequest{DurationMinutes: &duration, IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, "Original", module.Title)
	assert.Equal(t, 90, module.DurationMinutes)
	assert.False(t, module.IsActive)

	_, err = svc.Update(context.Background(), "missing", models.UpdateModuleRequest{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Update(context.Background(), "m1", models.UpdateModuleRequest{Title: strPtr(" ")})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestModuleServiceDeleteCascadesAssignments(t *testing.T) {
	store := newFakeStore()
	store.addModule("m1", "Doomed", "i1", true)
	store.addAssignment("a1", "t1", "m1", false, nil)
	store.addAssignment("a2", "t2", "m1", true, nil)
	svc := newTestModuleService(store)

	require.NoError(t, svc.Delete(context.Background(), "m1", "i1", models.RequestMeta{}))
	assert.Empty(t, store.modules)
	assert.Empty(t, store.assignments)
	assert.Contains(t, store.auditActions(), models.AuditActionModuleDelete)

	assert.ErrorIs(t, svc.Delete(context.Background(), "m1", "i1", models.RequestMeta{}), appErrors.ErrNotFound)
}
