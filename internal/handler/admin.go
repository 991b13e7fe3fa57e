package handler

import (
	"net/http"

	"github.com/Dan9191/finance-service/internal/models"
	"github.com/Dan9191/finance-service/internal/service"
)

// AdminListUsers lists users with ?search=&limit=&offset=
func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	f := models.UserFilter{Search: r.URL.Query().Get("search")}
	var err error
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if f.Offset, err = queryInt(r, "offset"); err != nil {
		h.writeError(w, r, err)
		return
	}
	users, err := h.svc.ListUsers(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// AdminUpdateSubscription overrides a user's subscription
func (h *Handler) AdminUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var in service.AdminSubscriptionUpdate
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.svc.AdminUpdateSubscription(r.Context(), pathID(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.AdminStats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// AdminListCarts lists cart sessions with ?converted=&limit=&offset=
func (h *Handler) AdminListCarts(w http.ResponseWriter, r *http.Request) {
	var f models.CartFilter
	converted, err := queryBool(r, "converted")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f.Converted = converted
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f.Limit, f.Offset = int64(limit), int64(offset)

	carts, err := h.svc.ListCarts(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, carts)
}

func (h *Handler) AdminGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.GetSettings(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) AdminSaveSettings(w http.ResponseWriter, r *http.Request) {
	var in models.AppSettings
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	settings, err := h.svc.SaveSettings(r.Context(), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type iconUploadRequest struct {
	ContentType string `json:"content_type"`
}

// AdminIconUploadURL returns a presigned upload URL for a PWA icon
func (h *Handler) AdminIconUploadURL(w http.ResponseWriter, r *http.Request) {
	var in iconUploadRequest
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	up, err := h.svc.PresignIconUpload(r.Context(), in.ContentType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

// AdminListPlans lists every plan, retired ones included
func (h *Handler) AdminListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.ListPlans(r.Context(), false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *Handler) AdminCreatePlan(w http.ResponseWriter, r *http.Request) {
	var in models.Plan
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	in.Active = true
	plan, err := h.svc.CreatePlan(r.Context(), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}
