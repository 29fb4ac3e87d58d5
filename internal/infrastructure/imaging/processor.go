// Package imaging validates, resizes and stores product images.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math/rand/v2"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	webpenc "github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

// KeyPrefix is the storage folder for product images
const KeyPrefix = "products"

var (
	ErrImageTooLarge    = shared.NewDomainError("IMAGE_TOO_LARGE", "Image exceeds the maximum upload size")
	ErrTooManyPixels    = shared.NewDomainError("IMAGE_TOO_LARGE", "Image dimensions exceed the maximum pixel count")
	ErrUnsupportedImage = shared.NewDomainError("UNSUPPORTED_IMAGE_TYPE", "Only JPEG, PNG and WebP images are accepted")
	ErrEmptyImage       = shared.NewDomainError("INVALID_INPUT", "No image uploaded")
)

// Format is an accepted image encoding
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

var formatsByMIME = map[string]Format{
	"image/jpeg": FormatJPEG,
	"image/jpg":  FormatJPEG,
	"image/png":  FormatPNG,
	"image/webp": FormatWebP,
}

// Ext returns the file extension without dot
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// ContentType returns the MIME type
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// Store is the subset of storage.Store the processor writes to
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Processed is a re-encoded image ready to store
type Processed struct {
	Data   []byte
	Format Format
	Width  int
	Height int
}

// Processor turns uploads into bounded, re-encoded files
type Processor struct {
	store      Store
	maxBytes   int64
	mainMax    int
	galleryMax int
	maxPixels  int
	quality    int
	logger     *zap.Logger
	now        func() time.Time
}

// NewProcessor creates a processor with the configured limits
func NewProcessor(store Store, cfg config.ImageConfig, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		store:      store,
		maxBytes:   cfg.MaxUploadBytes,
		mainMax:    cfg.MainMaxPixels,
		galleryMax: cfg.GalleryMaxPixels,
		maxPixels:  cfg.MaxSourcePixels,
		quality:    cfg.Quality,
		logger:     logger,
		now:        time.Now,
	}
}

// Detect validates size and type of an upload. declared is the client
// supplied content type; the sniffed type of the bytes must agree with it.
func (p *Processor) Detect(data []byte, declared string) (Format, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return "", ErrImageTooLarge
	}
	sniffed, ok := formatsByMIME[http.DetectContentType(data)]
	if !ok {
		return "", ErrUnsupportedImage
	}
	if declared != "" {
		mt, _, _ := strings.Cut(declared, ";")
		if f, ok := formatsByMIME[strings.ToLower(strings.TrimSpace(mt))]; !ok || f != sniffed {
			return "", ErrUnsupportedImage
		}
	}
	return sniffed, nil
}

// Process decodes the upload, shrinks it to fit the bound for its role and
// re-encodes it in the original format
func (p *Processor) Process(data []byte, declared string, main bool) (*Processed, error) {
	format, err := p.Detect(data, declared)
	if err != nil {
		return nil, err
	}

	// header only: a small file can still declare a huge canvas
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Failed to process image: "+err.Error())
	}
	if p.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(p.maxPixels) {
		return nil, ErrTooManyPixels
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Failed to process image: "+err.Error())
	}

	bound := p.galleryMax
	if main {
		bound = p.mainMax
	}
	b := img.Bounds()
	if bound > 0 && (b.Dx() > bound || b.Dy() > bound) {
		img = imaging.Fit(img, bound, bound, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := encode(&buf, img, format, p.quality); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	out := img.Bounds()
	return &Processed{Data: buf.Bytes(), Format: format, Width: out.Dx(), Height: out.Dy()}, nil
}

func encode(buf *bytes.Buffer, img image.Image, format Format, quality int) error {
	switch format {
	case FormatPNG:
		return imaging.Encode(buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case FormatWebP:
		return webpenc.Encode(buf, img, &webpenc.Options{Quality: float32(quality)})
	default:
		return imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	}
}

// FileName builds <productId>-<unixMillis>-<random>.<ext>
func (p *Processor) FileName(productID uuid.UUID, format Format) string {
	random := strconv.FormatUint(rand.Uint64(), 36)
	return fmt.Sprintf("%s-%d-%s.%s", productID, p.now().UnixMilli(), random, format.Ext())
}

// Save processes and stores an upload, returning its public URL
func (p *Processor) Save(ctx context.Context, productID uuid.UUID, data []byte, declared string, main bool) (string, error) {
	processed, err := p.Process(data, declared, main)
	if err != nil {
		return "", err
	}
	key := path.Join(KeyPrefix, p.FileName(productID, processed.Format))
	url, err := p.store.Put(ctx, key, processed.Data, processed.Format.ContentType())
	if err != nil {
		return "", err
	}
	p.logger.Info("Product image stored",
		zap.String("product_id", productID.String()),
		zap.String("key", key),
		zap.Int("width", processed.Width),
		zap.Int("height", processed.Height),
		zap.Bool("main", main),
	)
	return url, nil
}

// Delete removes the stored file behind a public URL. Only the base name is
// used, so URLs from either backend resolve to the same key.
func (p *Processor) Delete(ctx context.Context, url string) error {
	name := path.Base(strings.TrimSpace(url))
	if name == "" || name == "." || name == "/" {
		return nil
	}
	return p.store.Delete(ctx, path.Join(KeyPrefix, name))
}

// DeleteAll removes several images, logging failures instead of stopping
func (p *Processor) DeleteAll(ctx context.Context, urls []string) {
	for _, u := range urls {
		if err := p.Delete(ctx, u); err != nil {
			p.logger.Warn("Failed to delete product image", zap.String("url", u), zap.Error(err))
		}
	}
}
