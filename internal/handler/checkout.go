package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/Dan9191/finance-service/internal/integrations/asaas"
	"github.com/Dan9191/finance-service/internal/service"
)

// webhookTokenHeader carries the shared secret configured at the processor
const webhookTokenHeader = "asaas-access-token"

// ListPlans lists the plans on sale
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.ListPlans(r.Context(), true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// StartCheckout selects a plan; the caller may be anonymous
func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var in service.CheckoutStart
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	state, err := h.svc.StartCheckout(r.Context(), principal(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if state.SignedOut {
		h.clearSessionCookie(w)
	}
	writeJSON(w, http.StatusOK, state)
}

type completeAuthRequest struct {
	PlanID string `json:"plan_id"`
}

// CompleteCheckoutAuth moves a checkout to payment once the visitor signed in
func (h *Handler) CompleteCheckoutAuth(w http.ResponseWriter, r *http.Request) {
	var in completeAuthRequest
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	state, err := h.svc.CompleteAuth(r.Context(), principal(r), pathID(r), in.PlanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Pay charges a checkout by PIX or card
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	var in service.PaymentInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	in.RemoteIP = remoteIP(r)
	res, err := h.svc.Pay(r.Context(), principal(r), pathID(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// PaymentStatus polls a payment by its processor id
func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.PaymentStatus(r.Context(), principal(r), pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AsaasWebhook receives payment processor callbacks
func (h *Handler) AsaasWebhook(w http.ResponseWriter, r *http.Request) {
	var event asaas.WebhookEvent
	if err := decode(r, &event); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.HandleWebhook(r.Context(), r.Header.Get(webhookTokenHeader), event); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
