package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_EmbedsOrderedGooseFiles(t *testing.T) {
	names, err := fs.Glob(Migrations, "*.sql")
	require.NoError(t, err)
	require.Equal(t, []string{"00001_users.sql", "00002_user_profiles.sql", "00003_voice_memos.sql"}, names)

	for _, n := range names {
		b, err := fs.ReadFile(Migrations, n)
		require.NoError(t, err)
		body := string(b)
		assert.True(t, strings.Contains(body, "-- +goose Up"), n)
		assert.True(t, strings.Contains(body, "-- +goose Down"), n)
	}
}

func TestMigrations_CreatesAllTables(t *testing.T) {
	var all strings.Builder
	names, _ := fs.Glob(Migrations, "*.sql")
	for _, n := range names {
		b, _ := fs.ReadFile(Migrations, n)
		all.Write(b)
	}
	for _, table := range []string{"users", "refresh_tokens", "user_profiles", "voice_memos"} {
		assert.Contains(t, all.String(), "CREATE TABLE "+table+" (")
	}
}
