package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, "001", Version("001_init.sql"))
	assert.Equal(t, "002", Version("002.sql"))
}

func TestPending_SortsAndFilters(t *testing.T) {
	files := fstest.MapFS{
		"sql/010_later.sql":  {Data: []byte("SELECT 1;")},
		"sql/002_second.sql": {Data: []byte("SELECT 1;")},
		"sql/README.md":      {Data: []byte("notes")},
	}

	names, err := Pending(files, "sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"002_second.sql", "010_later.sql"}, names)
}

func TestEmbeddedSchema(t *testing.T) {
	names, err := Pending(embedded, "sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_init.sql", names[0])
}
