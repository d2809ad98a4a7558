package database

import (
	"testing"

	"focusmath_backend/internal/config"
	"focusmath_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDBSeedsGamesOnce(t *testing.T) {
	db, err := InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&model.Game{}).Count(&count).Error)
	assert.Equal(t, int64(11), count)

	require.NoError(t, Migrate(db))
	require.NoError(t, db.Model(&model.Game{}).Count(&count).Error)
	assert.Equal(t, int64(11), count)

	var chapters []string
	require.NoError(t, db.Model(&model.Game{}).Distinct().Pluck("chapter", &chapters).Error)
	assert.Len(t, chapters, 5)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
