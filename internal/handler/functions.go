package handler

import (
	"net/http"

	"github.com/Dan9191/finance-service/internal/service"
)

// FnAdminCreateUser creates an account on behalf of an admin
func (h *Handler) FnAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var in service.AdminCreateUserInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.svc.AdminCreateUser(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

type listAccountsRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) FnListAccounts(w http.ResponseWriter, r *http.Request) {
	var in listAccountsRequest
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	overview, err := h.svc.ListAccounts(r.Context(), in.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

type markCartRequest struct {
	CartID string `json:"cart_id"`
	Email  string `json:"email"`
}

func (h *Handler) FnMarkCartConverted(w http.ResponseWriter, r *http.Request) {
	var in markCartRequest
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.svc.MarkCartConverted(r.Context(), in.CartID, in.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func (h *Handler) FnSubscriptionPastDue(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.SweepPastDue(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *Handler) FnTestSMTP(w http.ResponseWriter, r *http.Request) {
	var in service.TestSMTPInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.TestSMTP(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type whatsAppAuthRequest struct {
	Phone string `json:"phone"`
}

func (h *Handler) FnWhatsAppAuth(w http.ResponseWriter, r *http.Request) {
	var in whatsAppAuthRequest
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	bot, err := h.svc.WhatsAppAuth(r.Context(), in.Phone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}
