package handler

import (
	"fmt"
	"net/http"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/shopspring/decimal"
)

type transactionRequest struct {
	models.Transaction
	// Installments is the length of a recurring series without an end date
	Installments int `json:"installments"`
}

// CreateTransaction creates a transaction or a recurring series
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in transactionRequest
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, err := h.svc.CreateTransaction(r.Context(), userID(r), &in.Transaction, in.Installments)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rows)
}

func transactionFilter(r *http.Request) (models.TransactionFilter, error) {
	var (
		f   models.TransactionFilter
		err error
	)
	q := r.URL.Query()
	if f.From, err = queryDate(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(r, "to"); err != nil {
		return f, err
	}
	if f.Recurring, err = queryBool(r, "recurring"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(r, "offset"); err != nil {
		return f, err
	}
	f.Type = models.TransactionType(q.Get("type"))
	f.Category = q.Get("category")
	f.BankAccountID = q.Get("bank_account_id")
	f.CreditCardID = q.Get("credit_card_id")
	return f, nil
}

// ListTransactions lists the caller's transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, err := h.svc.ListTransactions(r.Context(), userID(r), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetTransaction returns one transaction
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTransaction(r.Context(), userID(r), pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTransaction edits one transaction
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var in models.Transaction
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.svc.UpdateTransaction(r.Context(), userID(r), pathID(r), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTransaction deletes one transaction or, with ?scope=series, its whole series
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	scope := models.DeleteScope(r.URL.Query().Get("scope"))
	n, err := h.svc.DeleteTransaction(r.Context(), userID(r), pathID(r), scope)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// TransactionSummary totals a month
func (h *Handler) TransactionSummary(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	month, err := queryInt(r, "month")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	summary, err := h.svc.MonthlySummary(r.Context(), userID(r), year, month)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// CreateBankAccount handles account creation
func (h *Handler) CreateBankAccount(w http.ResponseWriter, r *http.Request) {
	var in models.BankAccount
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.svc.CreateBankAccount(r.Context(), userID(r), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) ListBankAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListBankAccounts(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) GetBankAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetBankAccount(r.Context(), userID(r), pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) UpdateBankAccount(w http.ResponseWriter, r *http.Request) {
	var in models.BankAccount
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.svc.UpdateBankAccount(r.Context(), userID(r), pathID(r), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) DeleteBankAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBankAccount(r.Context(), userID(r), pathID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type creditCardRequest struct {
	models.CreditCard
	// Number is reduced to its last four digits and never stored
	Number string `json:"number"`
}

func (h *Handler) CreateCreditCard(w http.ResponseWriter, r *http.Request) {
	var in creditCardRequest
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.CreateCreditCard(r.Context(), userID(r), &in.CreditCard, in.Number)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) ListCreditCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.ListCreditCards(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *Handler) GetCreditCard(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCreditCard(r.Context(), userID(r), pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) UpdateCreditCard(w http.ResponseWriter, r *http.Request) {
	var in creditCardRequest
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.UpdateCreditCard(r.Context(), userID(r), pathID(r), &in.CreditCard, in.Number)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCreditCard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCreditCard(r.Context(), userID(r), pathID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var in models.Goal
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	g, err := h.svc.CreateGoal(r.Context(), userID(r), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.svc.ListGoals(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.GetGoal(r.Context(), userID(r), pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	var in models.Goal
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	g, err := h.svc.UpdateGoal(r.Context(), userID(r), pathID(r), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteGoal(r.Context(), userID(r), pathID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type contributionRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ContributeToGoal adds money to a goal
func (h *Handler) ContributeToGoal(w http.ResponseWriter, r *http.Request) {
	var in contributionRequest
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	g, err := h.svc.ContributeToGoal(r.Context(), userID(r), pathID(r), in.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// ProjectGoal estimates when a goal is reached with ?monthly= per month
func (h *Handler) ProjectGoal(w http.ResponseWriter, r *http.Request) {
	monthly := decimal.Zero
	if v := r.URL.Query().Get("monthly"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: monthly must be a number", common.ErrValidation))
			return
		}
		monthly = d
	}
	p, err := h.svc.ProjectGoal(r.Context(), userID(r), pathID(r), monthly)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) CreateScheduledTransaction(w http.ResponseWriter, r *http.Request) {
	var in models.ScheduledTransaction
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.svc.CreateScheduledTransaction(r.Context(), userID(r), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *Handler) ListScheduledTransactions(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListScheduledTransactions(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) GetScheduledTransaction(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.GetScheduledTransaction(r.Context(), userID(r), pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) UpdateScheduledTransaction(w http.ResponseWriter, r *http.Request) {
	var in models.ScheduledTransaction
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.svc.UpdateScheduledTransaction(r.Context(), userID(r), pathID(r), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) DeleteScheduledTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteScheduledTransaction(r.Context(), userID(r), pathID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSubscription returns the caller's subscription and plan
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.GetSubscription(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelSubscription(r.Context(), userID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.svc.GetPreferences(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var in models.PreferencesUpdate
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	prefs, err := h.svc.UpdatePreferences(r.Context(), userID(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
