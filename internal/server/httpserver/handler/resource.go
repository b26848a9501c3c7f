package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/yndnr/crudkv-go/internal/core/domain"
)

// handleList handles GET /<collection>.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	h.traceRequest(r)

	if !h.endpoint.FullCollection {
		ids, err := h.resources.List(r.Context())
		if err != nil {
			h.handleServiceError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, ids)
		return
	}

	entries, err := h.resources.ListFull(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	out := make(map[string]string, len(entries))
	for id, value := range entries {
		out[id] = string(value)
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

// handleCreate handles POST /<collection>.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.traceRequest(r)

	if !h.endpoint.AllowPost {
		w.Header().Set("Allow", "GET")
		h.handleServiceError(w, r, domain.ErrMethodDisabled.WithDetails("POST is disabled on /"+h.endpoint.Name))
		return
	}

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	id, err := h.resources.Create(r.Context(), body)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, domain.CreatedResource{Resource: id})
}

// handleGet handles GET /<collection>/{id}.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.traceRequest(r)

	value, err := h.resources.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", h.endpoint.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(value); err != nil {
		h.requestLogger(r).Debug("write response body", "error", err)
	}
}

// handlePut handles PUT /<collection>/{id}.
func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	h.traceRequest(r)

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	if err := h.resources.Put(r.Context(), r.PathValue("id"), body); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleDelete handles DELETE /<collection>/{id}.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	h.traceRequest(r)

	if err := h.resources.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// readBody checks the media type and reads the request body. On failure it
// has already written the error response.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if !domain.MediaTypeMatches(r.Header.Get("Content-Type"), h.endpoint.ContentType) {
		h.handleServiceError(w, r, domain.ErrUnsupportedMediaType.WithDetails("expected "+h.endpoint.ContentType))
		return nil, false
	}

	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.handleServiceError(w, r, domain.ErrPayloadTooLarge)
			return nil, false
		}
		h.handleServiceError(w, r, domain.ErrBadRequest.WithCause(err).WithDetails("read body"))
		return nil, false
	}
	return data, true
}

func (h *Handler) traceRequest(r *http.Request) {
	h.requestLogger(r).Debug("resource request", "content_type", r.Header.Get("Content-Type"))
}
