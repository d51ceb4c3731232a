package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maruel/reportdb/internal/jsonldb"
	"github.com/maruel/reportdb/internal/storage"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

// ImageSource resolves an image element src to a decoded image.
type ImageSource interface {
	Open(ctx context.Context, src string) (image.Image, error)
}

// AssetOpener reads uploaded assets. *storage.AssetService implements it.
type AssetOpener interface {
	Open(ctx context.Context, ref jsonldb.BlobRef) (io.ReadCloser, string, error)
}

// ErrUnsupportedSource is returned for a src scheme that cannot be loaded.
var ErrUnsupportedSource = errors.New("unsupported image source")

// Sources loads data: URLs, uploaded assets and http(s) links.
type Sources struct {
	// Assets serves "asset:" sources. Nil disables them.
	Assets AssetOpener
	// Client fetches http(s) sources. Nil disables them.
	Client *http.Client
	// Timeout bounds one fetch. 0 means no limit beyond ctx.
	Timeout time.Duration
	// MaxBytes limits the encoded size of a fetched image. 0 means no limit.
	MaxBytes int64
}

// Open implements ImageSource.
func (s *Sources) Open(ctx context.Context, src string) (image.Image, error) {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return nil, errors.New("empty image source")
	case strings.HasPrefix(src, "data:"):
		data, err := decodeDataURL(src)
		if err != nil {
			return nil, err
		}
		return decodeImage(bytes.NewReader(data))
	case strings.HasPrefix(src, storage.AssetScheme):
		return s.openAsset(ctx, src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return s.fetch(ctx, src)
	default:
		return nil, fmt.Errorf("%w: %.32q", ErrUnsupportedSource, src)
	}
}

func (s *Sources) openAsset(ctx context.Context, src string) (image.Image, error) {
	if s.Assets == nil {
		return nil, fmt.Errorf("%w: assets are disabled", ErrUnsupportedSource)
	}
	ref, ok := storage.ParseAssetSrc(src)
	if !ok {
		return nil, fmt.Errorf("invalid asset reference %q", src)
	}
	rc, _, err := s.Assets.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return decodeImage(rc)
}

func (s *Sources) fetch(ctx context.Context, src string) (image.Image, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("%w: remote images are disabled", ErrUnsupportedSource)
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: %s", resp.Status)
	}
	var r io.Reader = resp.Body
	if s.MaxBytes > 0 {
		r = io.LimitReader(resp.Body, s.MaxBytes)
	}
	return decodeImage(r)
}

func decodeImage(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// decodeDataURL returns the payload of a data: URL.
func decodeDataURL(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URL")
	}
	if strings.HasSuffix(meta, ";base64") {
		// Tolerate unpadded and URL-safe payloads.
		payload = strings.TrimRight(payload, "=")
		if data, err := base64.RawStdEncoding.DecodeString(payload); err == nil {
			return data, nil
		}
		data, err := base64.RawURLEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("malformed data URL: %w", err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed data URL: %w", err)
	}
	return []byte(data), nil
}
