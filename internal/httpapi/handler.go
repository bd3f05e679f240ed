// Package httpapi exposes the image resolver over HTTP.
//
// Endpoints:
//
//	GET  /api/health             health check
//	POST /api/image/resolve      resolve an image from a JSON request
//	GET  /api/image/placeholder  placeholder URL (?size=)
//	GET  /api/image/tag          <img> markup (?itemId=&size=&attachmentId=&metaKey=&priority=)
package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/fpang/post-image/internal/content"
	"github.com/fpang/post-image/internal/imagesize"
	"github.com/fpang/post-image/internal/metrics"
	"github.com/fpang/post-image/internal/resolve"
)

const (
	healthPath      = "/api/health"
	resolvePath     = "/api/image/resolve"
	placeholderPath = "/api/image/placeholder"
	tagPath         = "/api/image/tag"
)

// maxBodySize bounds resolve request bodies (64 KB).
const maxBodySize = 64 << 10

// Options configures a Handler.
type Options struct {
	// OriginVerifySecret, when set, must be sent in x-origin-verify.
	OriginVerifySecret string
	// Metrics receives per-request EMF documents. Nil disables them.
	Metrics *metrics.Emitter
	// Version is reported by the health check.
	Version string
}

// Handler serves the image API.
type Handler struct {
	resolver *resolve.Resolver
	handler  http.Handler
	version  string
}

// NewHandler creates a Handler backed by resolver.
func NewHandler(resolver *resolve.Resolver, opts Options) *Handler {
	h := &Handler{resolver: resolver, version: opts.Version}

	mux := http.NewServeMux()
	mux.HandleFunc(healthPath, h.handleHealth)
	mux.HandleFunc(resolvePath, h.handleResolve)
	mux.HandleFunc(placeholderPath, h.handlePlaceholder)
	mux.HandleFunc(tagPath, h.handleTag)

	emitter := opts.Metrics
	if emitter == nil {
		emitter = metrics.Discard()
	}
	h.handler = withRequestLogging(withOriginVerify(opts.OriginVerifySecret, withMetrics(emitter, mux)))
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		httpError(w, r, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > maxBodySize {
		httpError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	req, err := resolve.DecodeRequest(body)
	if err != nil {
		httpError(w, r, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if !req.Size.IsZero() && !imagesize.IsAcceptable(req.Size) {
		httpError(w, r, http.StatusBadRequest, "invalid size: "+req.Size.String())
		return
	}

	img, err := h.resolver.ResolveImage(r.Context(), req)
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, "failed to resolve image", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, img)
}

func (h *Handler) handlePlaceholder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	size, ok := sizeParam(w, r)
	if !ok {
		return
	}

	url, err := h.resolver.ResolvePlaceholder(r.Context(), size)
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, "failed to resolve placeholder", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"src": url})
}

func (h *Handler) handleTag(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()

	size, ok := sizeParam(w, r)
	if !ok {
		return
	}
	req := resolve.Request{
		Size:     size,
		MetaKeys: q["metaKey"],
		Priority: resolve.Priority(q.Get("priority")),
	}
	if v := q.Get("itemId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			httpError(w, r, http.StatusBadRequest, "invalid itemId")
			return
		}
		req.ItemID = id
	}
	if v := q.Get("attachmentId"); v != "" {
		req.AttachmentID = content.ParseAttachmentID(v)
		if req.AttachmentID == 0 {
			httpError(w, r, http.StatusBadRequest, "invalid attachmentId")
			return
		}
	}

	tag, err := h.resolver.RenderImageTag(r.Context(), req)
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, "failed to render image tag", err.Error())
		return
	}
	zerolog.Ctx(r.Context()).Debug().Int64("item_id", req.ItemID).Msg("Image tag rendered")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, tag)
}

// sizeParam reads the optional size query parameter. It writes a 400 and
// returns false when the value is not an acceptable size.
func sizeParam(w http.ResponseWriter, r *http.Request) (imagesize.Size, bool) {
	v := r.URL.Query().Get("size")
	if v == "" {
		return imagesize.Size{}, true
	}
	size := imagesize.Parse(v)
	if !imagesize.IsAcceptable(size) {
		httpError(w, r, http.StatusBadRequest, "invalid size: "+v)
		return imagesize.Size{}, false
	}
	return size, true
}
