// Package filestorage stores uploaded institution assets on local disk.
package filestorage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/electivepro/internal/pkg/logger"
)

// MaxLogoSize is the largest accepted logo upload in bytes.
const MaxLogoSize = 2 << 20

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)

var logoExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".svg":  {},
	".webp": {},
}

// LocalStorage saves files below basePath and serves them under baseURL.
type LocalStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage ensures basePath exists.
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &LocalStorage{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// BasePath is the directory served as static files.
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// SaveLogo writes an institution logo and returns its public URL.
func (ls *LocalStorage) SaveLogo(institutionID int64, filename string, size int64, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := logoExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	if size > MaxLogoSize {
		return "", fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}

	rel := filepath.Join("logos", strconv.FormatInt(institutionID, 10))
	dir := filepath.Join(ls.basePath, rel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create logo directory: %w", err)
	}

	name := uuid.New().String() + ext
	dst := filepath.Join(dir, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create logo file: %w", err)
	}
	defer f.Close()

	// +1 so an oversized body whose header lied about its size is still caught
	n, err := io.Copy(f, io.LimitReader(r, MaxLogoSize+1))
	if err == nil && n > MaxLogoSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		_ = os.Remove(dst)
		logger.Error().Err(err).Str("path", dst).Msg("Failed to write logo")
		return "", fmt.Errorf("failed to save logo: %w", err)
	}

	url := ls.baseURL + "/" + filepath.ToSlash(filepath.Join(rel, name))
	logger.Info().Int64("institution_id", institutionID).Str("url", url).Msg("Logo saved")
	return url, nil
}

// Delete removes a file previously returned by SaveLogo. Unknown URLs are ignored.
func (ls *LocalStorage) Delete(fileURL string) error {
	rel := strings.TrimPrefix(fileURL, ls.baseURL+"/")
	if rel == fileURL || strings.Contains(rel, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(ls.basePath, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
