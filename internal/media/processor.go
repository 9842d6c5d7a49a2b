package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/hongyu-crm/crm-backend/internal/storage"
	"github.com/rs/zerolog"
)

const customerPrefix = "customers/"

type Options struct {
	MaxDimension int
	JPEGQuality  int
}

// Processor validates image data URIs and, when a storage driver is set,
// normalises and uploads them. Without a driver the data URI itself is the
// asset URL.
type Processor struct {
	driver storage.Driver
	opts   Options
}

func NewProcessor(driver storage.Driver, opts Options) *Processor {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = 1600
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 85
	}
	return &Processor{driver: driver, opts: opts}
}

// Ingest returns the URL to record on the ImageAsset.
func (p *Processor) Ingest(ctx context.Context, customerID, dataURI string) (string, error) {
	uri, err := ParseDataURI(dataURI)
	if err != nil {
		return "", err
	}
	if !uri.IsImage() {
		return "", fmt.Errorf("unsupported media type %q: %w", uri.MimeType, domain.ErrInvalidInput)
	}

	if p.driver == nil {
		if _, _, err := image.DecodeConfig(bytes.NewReader(uri.Data)); err != nil {
			return "", fmt.Errorf("undecodable image: %v: %w", err, domain.ErrInvalidInput)
		}
		return dataURI, nil
	}

	img, err := imaging.Decode(bytes.NewReader(uri.Data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("undecodable image: %v: %w", err, domain.ErrInvalidInput)
	}

	b := img.Bounds()
	if b.Dx() > p.opts.MaxDimension || b.Dy() > p.opts.MaxDimension {
		img = imaging.Fit(img, p.opts.MaxDimension, p.opts.MaxDimension, imaging.Lanczos)
	}

	format, ext, contentType := imaging.JPEG, "jpg", "image/jpeg"
	if uri.MimeType == "image/png" || uri.MimeType == "image/gif" {
		format, ext, contentType = imaging.PNG, "png", "image/png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(p.opts.JPEGQuality)); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	key := customerKey(customerID, uuid.NewString()+"."+ext)
	url, err := p.driver.Upload(ctx, bytes.NewReader(buf.Bytes()), key, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("customer_id", customerID).
		Str("key", key).
		Int("bytes", buf.Len()).
		Msg("image stored")
	return url, nil
}

// Owner returns the customer a stored blob was ingested for. ok is false
// when the URL is not managed by this processor's driver.
func (p *Processor) Owner(url string) (customerID string, ok bool) {
	if p.driver == nil {
		return "", false
	}
	key, ok := p.driver.KeyForURL(url)
	if !ok {
		return "", false
	}
	return ownerFromKey(key), true
}

// Release deletes the blob behind url when it was ingested for customerID.
// Blobs of other customers and unmanaged URLs are left alone. Failures are
// logged and swallowed.
func (p *Processor) Release(ctx context.Context, customerID, url string) {
	if p.driver == nil || customerID == "" {
		return
	}
	key, ok := p.driver.KeyForURL(url)
	if !ok {
		return
	}
	if ownerFromKey(key) != customerID {
		zerolog.Ctx(ctx).Warn().Str("customer_id", customerID).Str("key", key).Msg("refusing to delete blob of another customer")
		return
	}
	if err := p.driver.Delete(ctx, key); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to delete image blob")
	}
}

func customerKey(customerID, name string) string {
	return customerPrefix + customerID + "/" + name
}

// ownerFromKey expects keys shaped customers/{id}/{file}.
func ownerFromKey(key string) string {
	rest, ok := strings.CutPrefix(key, customerPrefix)
	if !ok {
		return ""
	}
	id, file, ok := strings.Cut(rest, "/")
	if !ok || id == "" || file == "" || strings.Contains(file, "/") {
		return ""
	}
	return id
}
