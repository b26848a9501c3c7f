package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/yndnr/crudkv-go/internal/core/domain"
	"github.com/yndnr/crudkv-go/internal/core/service"
	"github.com/yndnr/crudkv-go/internal/infra/buildinfo"
	"github.com/yndnr/crudkv-go/internal/storage"
)

// admin guards an admin route behind the admin_enabled switch.
func (h *Handler) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.adminEnabled {
			h.handleServiceError(w, r, domain.ErrAdminDisabled)
			return
		}
		next(w, r)
	}
}

// handleAdminStatus handles GET /admin/v1/status.
func (h *Handler) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.handleServiceError(w, r, service.MapStorageError(err))
		return
	}

	h.writeResponse(w, r, http.StatusOK, StatusResponse{
		Build:         buildinfo.Get(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Collection:    h.endpoint.Name,
		Storage:       stats,
	})
}

// handleAdminGC handles POST /admin/v1/gc.
func (h *Handler) handleAdminGC(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.store.GC(r.Context()); err != nil {
		h.handleServiceError(w, r, service.MapStorageError(err))
		return
	}

	h.requestLogger(r).Info("storage gc triggered", "elapsed", time.Since(start))
	h.writeResponse(w, r, http.StatusOK, GCResponse{
		TriggeredAt: start.UTC().Format(time.RFC3339),
		DurationMS:  time.Since(start).Milliseconds(),
	})
}

// handleAdminBackup handles GET /admin/v1/backup. The record count is sent
// as the X-Backup-Records trailer.
func (h *Handler) handleAdminBackup(w http.ResponseWriter, r *http.Request) {
	if h.store.Closed() {
		h.handleServiceError(w, r, domain.ErrServiceUnavailable)
		return
	}

	name := fmt.Sprintf("crudkv-%s.bak", time.Now().UTC().Format("20060102T150405Z"))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Trailer", "X-Backup-Records")
	w.WriteHeader(http.StatusOK)

	n, err := h.store.Backup(r.Context(), w)
	if err != nil {
		// Headers are already sent; abort the connection so the stream is
		// visibly truncated.
		h.requestLogger(r).Error("backup failed", "records", n, "error", err)
		panic(http.ErrAbortHandler)
	}
	w.Header().Set("X-Backup-Records", strconv.Itoa(n))
	h.requestLogger(r).Info("backup streamed", "records", n)
}

// handleAdminRestore handles POST /admin/v1/restore.
func (h *Handler) handleAdminRestore(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Restore(r.Context(), r.Body)
	if err != nil {
		h.handleServiceError(w, r, restoreError(err, n))
		return
	}

	h.requestLogger(r).Info("backup restored", "records", n)
	h.writeResponse(w, r, http.StatusOK, RestoreResponse{Restored: n})
}

func restoreError(err error, applied int) error {
	details := fmt.Sprintf("%d records applied before the failure", applied)
	switch {
	case errors.Is(err, storage.ErrBackupKeyRequired):
		return domain.ErrBackupKeyNeeded.WithCause(err)
	case errors.Is(err, storage.ErrBackupCorrupted),
		errors.Is(err, storage.ErrChecksumMismatch),
		errors.Is(err, storage.ErrBackupVersion):
		return domain.ErrBackupInvalid.WithCause(err).WithDetails(details)
	default:
		return service.MapStorageError(err).WithDetails(details)
	}
}
