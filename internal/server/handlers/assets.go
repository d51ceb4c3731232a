package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/maruel/reportdb/internal/jsonldb"
	"github.com/maruel/reportdb/internal/server/dto"
)

// multipartOverhead is the room left for multipart headers and boundaries on
// top of the upload limit.
const multipartOverhead = 64 << 10

// AssetHandler handles uploaded images.
type AssetHandler struct {
	Svc *Services
	Cfg *Config
}

// Upload stores an image sent either as the "file" field of a multipart form
// or as the raw request body. The response Src is usable as an image element
// source.
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.Cfg.MaxUploadBytes+multipartOverhead)
	}
	var src io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		part, err := filePart(r)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}
		defer func() {
			if err := part.Close(); err != nil {
				slog.ErrorContext(ctx, "Failed to close uploaded file", "err", err)
			}
		}()
		src = part
	}
	asset, err := h.Svc.Assets.Save(ctx, src)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to save asset", "err", err)
		writeErrorResponse(w, apiError(err, "failed to save asset"))
		return
	}
	slog.InfoContext(ctx, "asset uploaded", "ref", asset.Ref, "type", asset.ContentType, "size", asset.Size)
	writeJSON(w, http.StatusCreated, dto.AssetResponse{
		Ref:         string(asset.Ref),
		Src:         asset.Src,
		ContentType: asset.ContentType,
		Size:        asset.Size,
	})
}

// filePart returns the "file" part of a multipart request.
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, dto.BadRequest("invalid multipart form")
	}
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, dto.MissingField("file")
		}
		if err != nil {
			return nil, apiError(err, "failed to read upload")
		}
		if p.FormName() == "file" {
			return p, nil
		}
		_ = p.Close()
	}
}

// Serve writes a stored asset. Assets are immutable so responses are cached.
func (h *AssetHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ref := jsonldb.BlobRef(r.PathValue("ref"))
	if ref.IsZero() || ref.Validate() != nil {
		writeErrorResponse(w, dto.InvalidField("ref", "must be an asset reference"))
		return
	}
	rc, ct, err := h.Svc.Assets.Open(r.Context(), ref)
	if err != nil {
		if errors.Is(err, jsonldb.ErrNotFound) {
			writeErrorResponse(w, dto.NotFound("asset"))
			return
		}
		writeErrorResponse(w, apiError(err, "failed to read asset"))
		return
	}
	defer func() {
		if err := rc.Close(); err != nil {
			slog.ErrorContext(r.Context(), "Failed to close asset", "err", err)
		}
	}()
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.FormatInt(ref.Size(), 10))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := io.Copy(w, rc); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write asset", "err", err)
	}
}

// Prune deletes every asset no report image references.
func (h *AssetHandler) Prune(ctx context.Context, req *dto.PruneAssetsRequest) (*dto.OkResponse, error) {
	if err := h.Svc.Assets.Prune(ctx, h.Svc.Reports); err != nil {
		return nil, apiError(err, "failed to prune assets")
	}
	return &dto.OkResponse{Ok: true}, nil
}
