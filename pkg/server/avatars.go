package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/contactpic/internal/logger"
	"github.com/marmos91/contactpic/internal/telemetry"
	"github.com/marmos91/contactpic/pkg/avatar"
	"github.com/marmos91/contactpic/pkg/avatar/cache"
	"github.com/marmos91/contactpic/pkg/avatar/loader"
	"github.com/marmos91/contactpic/pkg/avatar/workqueue"
	"github.com/marmos91/contactpic/pkg/bufpool"
	"github.com/marmos91/contactpic/pkg/photo"
)

// HeaderAvatarSource reports where a served avatar came from.
const HeaderAvatarSource = "X-Avatar-Source"

// Avatars is the part of *loader.Loader the API serves.
type Avatars interface {
	Resolve(ctx context.Context, id avatar.Identity) (*avatar.Image, loader.Source, error)
	Fallback(id avatar.Identity) *avatar.Image
	Invalidate(address string) bool
	Purge()
	Stats() loader.Stats
}

// AvatarHandler serves rendered avatars.
type AvatarHandler struct {
	avatars Avatars
}

// NewAvatarHandler returns an avatar handler backed by avatars.
func NewAvatarHandler(avatars Avatars) *AvatarHandler {
	return &AvatarHandler{avatars: avatars}
}

// Get handles GET /api/v1/avatars/{address}.
//
// Query parameters:
//   - name: display name used for the placeholder letter
//   - fallback: when true, skip the directory and render the placeholder
//   - format: png (default), jpeg or bmp
func (h *AvatarHandler) Get(w http.ResponseWriter, r *http.Request) {
	address, ok := addressParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	format := strings.ToLower(q.Get("format"))
	if format == "" {
		format = "png"
	}
	if format == "jpg" {
		format = "jpeg"
	}
	if !slices.Contains(photo.Formats, format) {
		badRequest(w, "format must be one of "+strings.Join(photo.Formats, ", "))
		return
	}

	forceFallback := false
	if raw := q.Get("fallback"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, "fallback must be a boolean")
			return
		}
		forceFallback = v
	}

	id := avatar.NewIdentity(address, q.Get("name"))
	if _, err := id.Key(); err != nil {
		badRequest(w, "invalid address")
		return
	}

	ctx, span := telemetry.StartHTTPSpan(r.Context(), address)
	defer span.End()

	var (
		img *avatar.Image
		src loader.Source
	)
	if forceFallback {
		img, src = h.avatars.Fallback(id), loader.SourceFallback
	} else {
		var err error
		img, src, err = h.avatars.Resolve(ctx, id)
		switch {
		case errors.Is(err, avatar.ErrInvalidInput):
			badRequest(w, err.Error())
			return
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			serviceUnavailable(w, "avatar resolution timed out")
			return
		case err != nil:
			telemetry.RecordError(ctx, err)
			logger.ErrorCtx(ctx, "Avatar resolution failed", logger.Address(address), logger.Err(err))
			internalServerError(w, "failed to resolve avatar")
			return
		}
	}

	buf := bufpool.Get()
	defer bufpool.Put(buf)
	if err := photo.Encode(buf, img, format); err != nil {
		logger.ErrorCtx(ctx, "Avatar encoding failed", logger.Address(address), logger.Err(err))
		internalServerError(w, "failed to encode avatar")
		return
	}

	telemetry.SetAttributes(ctx, telemetry.Source(src.String()))
	w.Header().Set("Content-Type", photo.ContentType(format))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set(HeaderAvatarSource, src.String())
	if src == loader.SourceFallback {
		w.Header().Set("Cache-Control", "no-cache")
	} else {
		w.Header().Set("Cache-Control", "private, max-age=300")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// CacheHandler exposes cache statistics and invalidation.
type CacheHandler struct {
	avatars Avatars
}

// NewCacheHandler returns a cache handler backed by avatars.
func NewCacheHandler(avatars Avatars) *CacheHandler {
	return &CacheHandler{avatars: avatars}
}

// CacheStatsResponse is the body of GET /api/v1/cache/stats.
type CacheStatsResponse struct {
	Cache    cache.Stats     `json:"cache"`
	HitRate  float64         `json:"hit_rate"`
	Queue    workqueue.Stats `json:"queue"`
	InFlight int             `json:"in_flight"`
	Slots    int             `json:"slots"`
}

// Stats handles GET /api/v1/cache/stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s := h.avatars.Stats()
	WriteJSON(w, http.StatusOK, CacheStatsResponse{
		Cache:    s.Cache,
		HitRate:  s.Cache.HitRate(),
		Queue:    s.Queue,
		InFlight: s.InFlight,
		Slots:    s.Slots,
	})
}

// Purge handles DELETE /api/v1/cache.
func (h *CacheHandler) Purge(w http.ResponseWriter, r *http.Request) {
	h.avatars.Purge()
	logger.InfoCtx(r.Context(), "Avatar cache purged")
	w.WriteHeader(http.StatusNoContent)
}

// Invalidate handles DELETE /api/v1/cache/{address}.
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	address, ok := addressParam(w, r)
	if !ok {
		return
	}
	if !h.avatars.Invalidate(address) {
		notFound(w, "no cached avatar for "+address)
		return
	}
	logger.InfoCtx(r.Context(), "Cached avatar invalidated", logger.Address(address))
	w.WriteHeader(http.StatusNoContent)
}

func addressParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	address, err := url.PathUnescape(chi.URLParam(r, "address"))
	if err != nil || strings.TrimSpace(address) == "" {
		badRequest(w, "invalid address")
		return "", false
	}
	return address, true
}
