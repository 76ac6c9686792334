package filestorage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLogoAndDelete(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	url, err := ls.SaveLogo(7, "Logo.PNG", 4, strings.NewReader("\x89PNG"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/uploads/logos/7/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	rel := strings.TrimPrefix(url, "http://localhost:8080/uploads/")
	_, err = os.Stat(filepath.Join(dir, rel))
	require.NoError(t, err)

	require.NoError(t, ls.Delete(url))
	_, err = os.Stat(filepath.Join(dir, rel))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, ls.Delete("https://cdn.example.com/other.png"))
}

func TestSaveLogo_Rejects(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = ls.SaveLogo(1, "logo.exe", 10, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = ls.SaveLogo(1, "logo.png", MaxLogoSize+1, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	big := bytes.Repeat([]byte("a"), MaxLogoSize+10)
	_, err = ls.SaveLogo(1, "logo.png", 10, bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}
