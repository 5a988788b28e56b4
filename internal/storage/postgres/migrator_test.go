package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func migrationFile(body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(body)}
}

func TestReadMigrationsOrdersByVersion(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0002_loyalty.up.sql":   migrationFile("CREATE TABLE loyalty_t (id INT);"),
		"sql/migrations/0002_loyalty.down.sql": migrationFile("DROP TABLE IF EXISTS loyalty_t;"),
		"sql/migrations/0001_init.up.sql":      migrationFile("CREATE TABLE init_t (id INT);"),
		"sql/migrations/0001_init.down.sql":    migrationFile("DROP TABLE IF EXISTS init_t;"),
	}

	migrations, err := readMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, "init", migrations[0].Name)
	assert.Equal(t, int64(2), migrations[1].Version)
	assert.Equal(t, "loyalty", migrations[1].Name)
}

func TestReadMigrationsRejectsBrokenSets(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr string
	}{
		{
			name: "missing down file",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql": migrationFile("CREATE TABLE t (id INT);"),
			},
			wantErr: "both up and down",
		},
		{
			name: "bad file name",
			fsys: fstest.MapFS{
				"sql/migrations/not_a_migration.sql": migrationFile("SELECT 1;"),
			},
			wantErr: "does not match",
		},
		{
			name: "empty body",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":   migrationFile("   \n"),
				"sql/migrations/0001_init.down.sql": migrationFile("DROP TABLE IF EXISTS t;"),
			},
			wantErr: "empty body",
		},
		{
			name: "conflicting names for one version",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":    migrationFile("CREATE TABLE t (id INT);"),
				"sql/migrations/0001_other.down.sql": migrationFile("DROP TABLE IF EXISTS t;"),
			},
			wantErr: "conflicting names",
		},
		{
			name:    "no files at all",
			fsys:    fstest.MapFS{},
			wantErr: "no migration files",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := readMigrations(tc.fsys)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestEmbeddedMigrationsAreComplete(t *testing.T) {
	t.Parallel()

	migrations, err := readMigrations(embeddedMigrations)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, int64(1), migrations[0].Version)
}
