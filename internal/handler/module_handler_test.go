package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-api/internal/models"
	appErrors "github.com/noah-isme/training-api/pkg/errors"
)

type fakeModuleSrv struct {
	filter  models.ModuleFilter
	author  string
	deleted string
}

func (f *fakeModuleSrv) List(_ context.Context, filter models.ModuleFilter) ([]models.TrainingModule, error) {
	f.filter = filter
	return []models.TrainingModule{}, nil
}

func (f *fakeModuleSrv) Get(_ context.Context, id string) (*models.TrainingModule, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
}

func (f *fakeModuleSrv) Create(_ context.Context, instructorID string, req models.CreateModuleRequest) (*models.TrainingModule, error) {
	f.author = instructorID
	return &models.TrainingModule{ID: "m1", Title: req.Title, CreatedBy: instructorID}, nil
}

func (f *fakeModuleSrv) Update(_ context.Context, id string, req models.UpdateModuleRequest) (*models.TrainingModule, error) {
	return &models.TrainingModule{ID: id}, nil
}

func (f *fakeModuleSrv) Delete(_ context.Context, id, _ string, _ models.RequestMeta) error {
	f.deleted = id
	return nil
}

func TestModuleHandlerListQuery(t *testing.T) {
	srv := &fakeModuleSrv{}
	handler := NewModuleHandler(srv)

	c, rec := newContext(http.MethodGet, "/modules?include_inactive=true&search=safe", nil, instructorClaims)
	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.filter.IncludeInactive)
	assert.Equal(t, "safe", srv.filter.Search)
}

func TestModuleHandlerCreateAndDelete(t *testing.T) {
	srv := &fakeModuleSrv{}
	handler := NewModuleHandler(srv)

	c, rec := newContext(http.MethodPost, "/modules", map[string]interface{}{"title": "Safety", "duration_minutes": 30}, instructorClaims)
	handler.Create(c)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "i1", srv.author)

	c, rec = newContext(http.MethodGet, "/modules/m9", nil, instructorClaims, "id", "m9")
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newContext(http.MethodDelete, "/modules/m1", nil, instructorClaims, "id", "m1")
	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "m1", srv.deleted)
}
