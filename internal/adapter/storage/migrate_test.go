package storage

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.Len(t, files, 2)

	for _, name := range files {
		body, err := fs.ReadFile(migrations, name)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(body), "-- +goose Up"), name)
		assert.True(t, strings.Contains(string(body), "-- +goose Down"), name)
	}
}

func TestComplaintColumnsMatchScanOrder(t *testing.T) {
	cols := strings.Split(strings.Join(strings.Fields(complaintColumns), ""), ",")
	require.Len(t, cols, 14)
	assert.Equal(t, "id", cols[0])
	assert.Equal(t, "user_id", cols[1])
	assert.Equal(t, "updated_at", cols[13])
}
