package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultConversionTimeout = 30 * time.Second
	defaultTempMaxAge        = 24 * time.Hour
)

// Rasterizer turns the first page of a PDF into an image file and returns its
// path. The caller owns the returned file.
type Rasterizer interface {
	RasterizeFirstPage(ctx context.Context, pdfPath string) (string, error)
}

type MagickRasterizer struct {
	binary  string
	tempDir string
	timeout time.Duration
	logger  *zap.Logger
}

type RasterizerConfig struct {
	// Binary is the ImageMagick executable. When empty "magick" and then
	// "convert" are looked up in PATH.
	Binary  string
	TempDir string
	Timeout time.Duration
}

func NewMagickRasterizer(cfg RasterizerConfig, logger *zap.Logger) (*MagickRasterizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	binary := cfg.Binary
	if binary == "" {
		for _, candidate := range []string{"magick", "convert"} {
			if p, err := exec.LookPath(candidate); err == nil {
				binary = p
				break
			}
		}
		if binary == "" {
			return nil, fmt.Errorf("imagemagick not found in PATH")
		}
	}

	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "budgetmanager-pdf")
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultConversionTimeout
	}

	logger.Info("pdf rasterizer ready",
		zap.String("binary", binary),
		zap.String("temp_dir", tempDir),
		zap.Duration("timeout", timeout))

	return &MagickRasterizer{
		binary:  binary,
		tempDir: tempDir,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (r *MagickRasterizer) TempDir() string { return r.tempDir }

func (r *MagickRasterizer) RasterizeFirstPage(ctx context.Context, pdfPath string) (string, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return "", &ConversionError{Path: pdfPath, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out := filepath.Join(r.tempDir, fmt.Sprintf("page_%s.jpg", uuid.New().String()))
	args := []string{
		"-density", "300",
		pdfPath + "[0]",
		"-quality", "95",
		out,
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	// children of a killed process may keep stderr open
	cmd.WaitDelay = 2 * time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug("running rasterizer", zap.String("binary", r.binary), zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		os.Remove(out)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &ConversionError{Path: pdfPath, Err: fmt.Errorf("timed out after %s", r.timeout)}
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return "", &ConversionError{Path: pdfPath, Err: err}
	}

	if _, err := os.Stat(out); err != nil {
		return "", &ConversionError{Path: pdfPath, Err: fmt.Errorf("output image missing: %w", err)}
	}
	return out, nil
}

// ConvertToBase64 rasterizes the first page and returns it base64 encoded.
// The temporary image is removed before returning.
func ConvertToBase64(ctx context.Context, r Rasterizer, pdfPath string) (string, error) {
	imagePath, err := r.RasterizeFirstPage(ctx, pdfPath)
	if err != nil {
		return "", err
	}
	defer os.Remove(imagePath)

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", &ConversionError{Path: pdfPath, Err: fmt.Errorf("reading image: %w", err)}
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// CleanupTempFiles deletes files in the rasterizer temp directory older than
// maxAge and returns how many were removed.
func (r *MagickRasterizer) CleanupTempFiles(maxAge time.Duration) (int, error) {
	return CleanupDir(r.tempDir, maxAge, r.logger)
}

func CleanupDir(dir string, maxAge time.Duration, logger *zap.Logger) (int, error) {
	if maxAge <= 0 {
		maxAge = defaultTempMaxAge
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read temp directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			logger.Warn("failed to remove temp file", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Info("cleaned up temp files", zap.String("dir", dir), zap.Int("removed", removed))
	}
	return removed, nil
}
