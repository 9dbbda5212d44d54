package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsHaveUpAndDown(t *testing.T) {
	files, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.Len(t, files, 5)

	for _, name := range files {
		body, err := fs.ReadFile(FS, name)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", name)
		assert.Contains(t, string(body), "-- +goose Down", name)
	}
}

func TestAssignmentUniquenessConstraint(t *testing.T) {
	body, err := fs.ReadFile(FS, "00003_create_module_assignments.sql")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "UNIQUE (trainee_id, module_id)"))
}
