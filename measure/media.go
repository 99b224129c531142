package measure

import (
	"bytes"
	"context"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"pager/book"
)

// Dimensions is intrinsic media size in pixels.
type Dimensions struct {
	Width  float64
	Height float64
}

// fallbackAspect is applied when a referenced asset is missing or broken:
// the probe assumes a 4:3 box scaled to page width instead of failing the
// whole pagination run.
const fallbackAspect = 3.0 / 4.0

// MediaIndex resolves media sources to intrinsic dimensions. Decoding is
// done once per source by Preload; unknown sources resolve to a fallback box
// so pagination never hangs on a broken reference.
type MediaIndex struct {
	mu   sync.RWMutex
	dims map[string]Dimensions
	log  *zap.Logger
}

func NewMediaIndex(log *zap.Logger) *MediaIndex {
	return &MediaIndex{dims: make(map[string]Dimensions), log: log}
}

// Preload decodes every asset and records its intrinsic size. This is the
// "wait for images before measuring" phase: bounded by ctx, and a failed
// decode resolves the entry (with fallback) instead of blocking pagination.
func (m *MediaIndex) Preload(ctx context.Context, media book.Media) error {
	for name, data := range media {
		if err := ctx.Err(); err != nil {
			return err
		}
		dims, err := decodeDimensions(data)
		if err != nil {
			m.log.Warn("Unable to decode media asset, using fallback box",
				zap.String("name", name), zap.Error(err))
			continue
		}
		m.mu.Lock()
		m.dims[name] = dims
		m.mu.Unlock()
	}
	return nil
}

// Resolve returns intrinsic dimensions for src. Missing entries get a
// fallback box at the requested width.
func (m *MediaIndex) Resolve(src string, widthPx float64) Dimensions {
	m.mu.RLock()
	dims, ok := m.dims[src]
	m.mu.RUnlock()
	if ok && dims.Width > 0 && dims.Height > 0 {
		return dims
	}
	return Dimensions{Width: widthPx, Height: widthPx * fallbackAspect}
}

// HeightAt returns rendered height of src scaled to width keeping aspect.
func (m *MediaIndex) HeightAt(src string, widthPx float64) float64 {
	dims := m.Resolve(src, widthPx)
	if dims.Width <= 0 {
		return widthPx * fallbackAspect
	}
	return dims.Height * (widthPx / dims.Width)
}

func decodeDimensions(data []byte) (Dimensions, error) {
	if isSVGData(data) {
		img, err := rasterizeSVG(data, 0)
		if err != nil {
			return Dimensions{}, err
		}
		b := img.Bounds()
		return Dimensions{Width: float64(b.Dx()), Height: float64(b.Dy())}, nil
	}
	if filetype.IsImage(data) {
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return Dimensions{}, err
		}
		b := img.Bounds()
		return Dimensions{Width: float64(b.Dx()), Height: float64(b.Dy())}, nil
	}
	if filetype.IsVideo(data) {
		// video frames are not decoded - posters render as 16:9
		return Dimensions{Width: 16, Height: 9}, nil
	}
	return Dimensions{}, book.ErrUnsupportedFormat
}

func isSVGData(data []byte) bool {
	probe := data[:min(len(data), 1024)]
	return bytes.Contains(probe, []byte("<svg"))
}
