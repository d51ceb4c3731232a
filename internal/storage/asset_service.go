package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/maruel/reportdb/internal/jsonldb"
	"github.com/maruel/reportdb/internal/models"
)

// AssetScheme prefixes image sources that point at an uploaded asset.
const AssetScheme = "asset:"

// ErrUnsupportedAsset is returned when an upload is not a recognized image.
var ErrUnsupportedAsset = errors.New("unsupported asset type")

// Asset describes an uploaded image.
type Asset struct {
	Ref         jsonldb.BlobRef `json:"ref"`
	Src         string          `json:"src"`
	ContentType string          `json:"contentType"`
	Size        int64           `json:"size"`
}

// AssetService handles uploaded image assets.
type AssetService struct {
	blobs    *jsonldb.BlobStore
	maxBytes int64
}

// NewAssetService opens the asset store in dir. Uploads larger than maxBytes
// are rejected; 0 disables the limit.
func NewAssetService(dir string, maxBytes int64) (*AssetService, error) {
	blobs, err := jsonldb.NewBlobStore(dir)
	if err != nil {
		return nil, err
	}
	return &AssetService{blobs: blobs, maxBytes: maxBytes}, nil
}

// Save stores an uploaded image.
func (s *AssetService) Save(ctx context.Context, r io.Reader) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	if len(head) == 0 {
		return nil, errors.New("asset is empty")
	}
	ct := sniff(head)
	if ct == "" {
		return nil, ErrUnsupportedAsset
	}
	ref, err := s.blobs.Put(br, s.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to save asset: %w", err)
	}
	return &Asset{Ref: ref, Src: AssetScheme + string(ref), ContentType: ct, Size: ref.Size()}, nil
}

// Open returns the asset content and its content type.
func (s *AssetService) Open(ctx context.Context, ref jsonldb.BlobRef) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	rc, err := s.blobs.Open(ref)
	if err != nil {
		return nil, "", err
	}
	br := bufio.NewReaderSize(rc, 512)
	head, _ := br.Peek(512)
	ct := sniff(head)
	if ct == "" {
		ct = "application/octet-stream"
	}
	return readCloser{Reader: br, Closer: rc}, ct, nil
}

// Prune removes every asset that no report image references.
func (s *AssetService) Prune(ctx context.Context, reports *ReportService) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	used := map[jsonldb.BlobRef]struct{}{}
	for r := range reports.All() {
		for i := range r.Elements {
			e := &r.Elements[i]
			if e.Type != models.ElementImage {
				continue
			}
			if ref, ok := ParseAssetSrc(e.ImageContent().Src); ok {
				used[ref] = struct{}{}
			}
		}
	}
	return s.blobs.GC(used)
}

// ParseAssetSrc extracts the blob ref from an "asset:" image source.
func ParseAssetSrc(src string) (jsonldb.BlobRef, bool) {
	v, ok := strings.CutPrefix(src, AssetScheme)
	if !ok {
		return "", false
	}
	ref := jsonldb.BlobRef(v)
	if ref.IsZero() || ref.Validate() != nil {
		return "", false
	}
	return ref, true
}

type readCloser struct {
	io.Reader
	io.Closer
}

// sniff returns the image content type of head, or "" when it is not an
// image the renderer can decode.
func sniff(head []byte) string {
	ct := http.DetectContentType(head)
	switch ct {
	case "image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp":
		return ct
	}
	if len(head) >= 4 && (string(head[:4]) == "II*\x00" || string(head[:4]) == "MM\x00*") {
		return "image/tiff"
	}
	return ""
}
