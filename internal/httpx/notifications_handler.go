package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bookmarket/internal/notify"
)

type NotificationsHandler struct {
	Notes *notify.Repo
}

func (h *NotificationsHandler) Register(r *chi.Mux) {
	r.Get("/notifications", h.list)
	r.Post("/notifications/{id}/read", h.markRead)
}

func (h *NotificationsHandler) list(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Notes.ListByUser(ctx, uid, 50)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, list)
}

func (h *NotificationsHandler) markRead(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Notes.MarkRead(ctx, uid, chi.URLParam(r, "id")); err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, nil)
}
