package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/training-api/internal/dto"
	"github.com/noah-isme/training-api/internal/models"
	"github.com/noah-isme/training-api/internal/service"
	appErrors "github.com/noah-isme/training-api/pkg/errors"
)

type fakeTraineeSrv struct {
	deleted string
	format  string
}

func (f *fakeTraineeSrv) List(context.Context) ([]models.User, error) {
	return []models.User{{ID: "t1", Username: "bob"}}, nil
}

func (f *fakeTraineeSrv) Delete(_ context.Context, traineeID, _ string, _ models.RequestMeta) error {
	f.deleted = traineeID
	return nil
}

func (f *fakeTraineeSrv) Progress(_ context.Context, traineeID string) (*dto.TraineeProgressResponse, error) {
	return &dto.TraineeProgressResponse{Trainee: models.User{ID: traineeID}}, nil
}

func (f *fakeTraineeSrv) ExportProgress(_ context.Context, _ string, format string) (*service.ProgressExport, error) {
	f.format = format
	if format == "xlsx" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return &service.ProgressExport{Filename: "trainee-bob-progress.csv", ContentType: "text/csv; charset=utf-8", Body: []byte("module,status\n")}, nil
}

func TestTraineeHandlerExportAttachment(t *testing.T) {
	srv := &fakeTraineeSrv{}
	handler := NewTraineeHandler(srv)

	c, rec := newContext(http.MethodGet, "/instructor/trainees/t1/progress/export?format=csv", nil, instructorClaims, "id", "t1")
	handler.ExportProgress(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", srv.format)
	assert.Equal(t, `attachment; filename=trainee-bob-progress.csv`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "module,status\n", rec.Body.String())

	c, rec = newContext(http.MethodGet, "/instructor/trainees/t1/progress/export?format=xlsx", nil, instructorClaims, "id", "t1")
	handler.ExportProgress(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTraineeHandlerDelete(t *testing.T) {
	srv := &fakeTraineeSrv{}
	handler := NewTraineeHandler(srv)

	c, rec := newContext(http.MethodDelete, "/trainees/t1", nil, instructorClaims, "id", "t1")
	handler.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "t1", srv.deleted)
}

func TestTraineeHandlerListAndProgress(t *testing.T) {
	handler := NewTraineeHandler(&fakeTraineeSrv{})

	c, rec := newContext(http.MethodGet, "/trainees", nil, instructorClaims)
	handler.List(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodGet, "/instructor/trainees/t1/progress", nil, instructorClaims, "id", "t1")
	handler.Progress(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"total_assigned":0`)
}
