package appicon

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KyleBrandon/neo/pkg/utils"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const pngMediaType = "image/png"

// IconAsset is an encoded raster image.
type IconAsset struct {
	Data      []byte
	Width     int
	Height    int
	MediaType string
}

// Base64 returns the standard base64 encoding of the image bytes.
func (a IconAsset) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

// DataURL returns the asset as a base64 data URL.
func (a IconAsset) DataURL() string {
	return "data:" + a.MediaType + ";base64," + a.Base64()
}

// convert rasterizes the .icns file to a square PNG through a staged temp file.
func (r *Resolver) convert(ctx context.Context, appName, iconPath string) (IconAsset, error) {
	tmpPNG := r.tempFileName(appName)
	defer r.removeTempFile(tmpPNG)

	size := strconv.Itoa(r.iconSize)
	result, err := r.runner.Run(ctx, "sips",
		"-s", "format", "png",
		"-z", size, size,
		iconPath,
		"--out", tmpPNG,
	)
	if err != nil {
		return IconAsset{}, fmt.Errorf("%w: failed to run sips: %v", ErrConversionFailed, err)
	}
	if !result.Success() {
		return IconAsset{}, fmt.Errorf("%w: sips failed: %s", ErrConversionFailed, strings.TrimSpace(string(result.Stderr)))
	}

	data, err := utils.ReadFile(tmpPNG)
	if err != nil {
		return IconAsset{}, fmt.Errorf("%w: failed to read PNG: %v", ErrConversionFailed, err)
	}

	return r.normalize(data)
}

// normalize ensures the PNG has the configured dimensions, scaling it when the converter
// produced something else.
func (r *Resolver) normalize(data []byte) (IconAsset, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return IconAsset{}, fmt.Errorf("%w: output is not a PNG: %v", ErrConversionFailed, err)
	}

	if cfg.Width == r.iconSize && cfg.Height == r.iconSize {
		return IconAsset{Data: data, Width: cfg.Width, Height: cfg.Height, MediaType: pngMediaType}, nil
	}

	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return IconAsset{}, fmt.Errorf("%w: output is not a PNG: %v", ErrConversionFailed, err)
	}

	slog.Debug("scaling converted icon", "width", cfg.Width, "height", cfg.Height, "size", r.iconSize)

	dst := image.NewRGBA(image.Rect(0, 0, r.iconSize, r.iconSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return IconAsset{}, fmt.Errorf("%w: failed to encode PNG: %v", ErrConversionFailed, err)
	}

	return IconAsset{Data: buf.Bytes(), Width: r.iconSize, Height: r.iconSize, MediaType: pngMediaType}, nil
}

// tempFileName is unique per call so concurrent lookups of the same app never share a file.
func (r *Resolver) tempFileName(appName string) string {
	return filepath.Join(r.tempDir, fmt.Sprintf("neo_icon_%s_%s.png", sanitizeFileName(appName), uuid.NewString()))
}

// removeTempFile deletes the staged file. Failure does not affect the result.
func (r *Resolver) removeTempFile(path string) {
	if err := r.remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove temporary icon", "path", path, "error", err)
	}
}

func sanitizeFileName(name string) string {
	return strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '.':
			return c
		default:
			return '_'
		}
	}, name)
}
