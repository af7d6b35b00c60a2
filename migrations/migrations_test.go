package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pressroom/pressroom/internal/access"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(files, "sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file %s", name)
		}
	}
	require.Equal(t, ups, downs)
}

func TestSourceReadsFirstVersion(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	v, err := src.First()
	require.NoError(t, err)
	require.EqualValues(t, 1, v)
}

func TestSchemaCoversModeration(t *testing.T) {
	raw, err := fs.ReadFile(files, "sql/000001_init.up.sql")
	require.NoError(t, err)
	schema := string(raw)
	for _, table := range []string{"users", "user_roles", "contents", "comments", "moderation_log", "audit_logs"} {
		require.Contains(t, schema, "CREATE TABLE "+table+" (")
	}
	require.Contains(t, schema, "CHECK (state IN ('pending', 'approved', 'rejected'))")
}

func TestRoleConstraintAcceptsEveryRole(t *testing.T) {
	raw, err := fs.ReadFile(files, "sql/000001_init.up.sql")
	require.NoError(t, err)
	var check string
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.Contains(line, "CHECK (role IN") {
			check = line
		}
	}
	require.NotEmpty(t, check)
	for _, role := range []access.Role{access.RoleAdmin, access.RoleUser, access.RoleCustomer} {
		require.Contains(t, check, "'"+string(role)+"'")
	}
}

func TestDownRejectsZeroSteps(t *testing.T) {
	require.Error(t, Down("postgres://unused", 0))
}
