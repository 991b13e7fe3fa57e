package handler

import (
	"net/http"

	"github.com/Dan9191/finance-service/internal/middleware"
	"github.com/gorilla/mux"
)

// Register mounts the JSON API, the function endpoints, the webhook and /healthz on r
func (h *Handler) Register(r *mux.Router) {
	authenticate := middleware.Authenticate(h.svc)
	subscribed := middleware.RequireSubscription(h.svc)

	signedIn := func(f http.HandlerFunc) http.Handler { return authenticate(f) }
	paid := func(f http.HandlerFunc) http.Handler { return authenticate(subscribed(f)) }
	admin := func(f http.HandlerFunc) http.Handler { return authenticate(middleware.RequireAdmin(f)) }
	apiKey := func(f http.HandlerFunc) http.Handler { return middleware.RequireAPIKey(h.svc)(f) }

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/webhooks/asaas", h.AsaasWebhook).Methods(http.MethodPost)

	// Public routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/plans", h.ListPlans).Methods(http.MethodGet)
	api.HandleFunc("/auth/signup", h.SignUp).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.SignIn).Methods(http.MethodPost)
	api.Handle("/checkout", middleware.OptionalAuth(h.svc)(http.HandlerFunc(h.StartCheckout))).Methods(http.MethodPost)

	// Signed in, no subscription needed
	api.Handle("/auth/logout", signedIn(h.SignOut)).Methods(http.MethodPost)
	api.Handle("/auth/me", signedIn(h.Me)).Methods(http.MethodGet)
	api.Handle("/profile", signedIn(h.UpdateProfile)).Methods(http.MethodPut)
	api.Handle("/checkout/payments/{id}", signedIn(h.PaymentStatus)).Methods(http.MethodGet)
	api.Handle("/checkout/{id}/auth", signedIn(h.CompleteCheckoutAuth)).Methods(http.MethodPost)
	api.Handle("/checkout/{id}/pay", signedIn(h.Pay)).Methods(http.MethodPost)
	api.Handle("/subscription", signedIn(h.GetSubscription)).Methods(http.MethodGet)
	api.Handle("/subscription/cancel", signedIn(h.CancelSubscription)).Methods(http.MethodPost)
	api.Handle("/preferences", signedIn(h.GetPreferences)).Methods(http.MethodGet)
	api.Handle("/preferences", signedIn(h.UpdatePreferences)).Methods(http.MethodPut)

	// Subscriber data
	api.Handle("/transactions", paid(h.ListTransactions)).Methods(http.MethodGet)
	api.Handle("/transactions", paid(h.CreateTransaction)).Methods(http.MethodPost)
	api.Handle("/transactions/summary", paid(h.TransactionSummary)).Methods(http.MethodGet)
	api.Handle("/transactions/{id}", paid(h.GetTransaction)).Methods(http.MethodGet)
	api.Handle("/transactions/{id}", paid(h.UpdateTransaction)).Methods(http.MethodPut)
	api.Handle("/transactions/{id}", paid(h.DeleteTransaction)).Methods(http.MethodDelete)

	api.Handle("/bank-accounts", paid(h.ListBankAccounts)).Methods(http.MethodGet)
	api.Handle("/bank-accounts", paid(h.CreateBankAccount)).Methods(http.MethodPost)
	api.Handle("/bank-accounts/{id}", paid(h.GetBankAccount)).Methods(http.MethodGet)
	api.Handle("/bank-accounts/{id}", paid(h.UpdateBankAccount)).Methods(http.MethodPut)
	api.Handle("/bank-accounts/{id}", paid(h.DeleteBankAccount)).Methods(http.MethodDelete)

	api.Handle("/credit-cards", paid(h.ListCreditCards)).Methods(http.MethodGet)
	api.Handle("/credit-cards", paid(h.CreateCreditCard)).Methods(http.MethodPost)
	api.Handle("/credit-cards/{id}", paid(h.GetCreditCard)).Methods(http.MethodGet)
	api.Handle("/credit-cards/{id}", paid(h.UpdateCreditCard)).Methods(http.MethodPut)
	api.Handle("/credit-cards/{id}", paid(h.DeleteCreditCard)).Methods(http.MethodDelete)

	api.Handle("/goals", paid(h.ListGoals)).Methods(http.MethodGet)
	api.Handle("/goals", paid(h.CreateGoal)).Methods(http.MethodPost)
	api.Handle("/goals/{id}", paid(h.GetGoal)).Methods(http.MethodGet)
	api.Handle("/goals/{id}", paid(h.UpdateGoal)).Methods(http.MethodPut)
	api.Handle("/goals/{id}", paid(h.DeleteGoal)).Methods(http.MethodDelete)
	api.Handle("/goals/{id}/contributions", paid(h.ContributeToGoal)).Methods(http.MethodPost)
	api.Handle("/goals/{id}/projection", paid(h.ProjectGoal)).Methods(http.MethodGet)

	api.Handle("/scheduled-transactions", paid(h.ListScheduledTransactions)).Methods(http.MethodGet)
	api.Handle("/scheduled-transactions", paid(h.CreateScheduledTransaction)).Methods(http.MethodPost)
	api.Handle("/scheduled-transactions/{id}", paid(h.GetScheduledTransaction)).Methods(http.MethodGet)
	api.Handle("/scheduled-transactions/{id}", paid(h.UpdateScheduledTransaction)).Methods(http.MethodPut)
	api.Handle("/scheduled-transactions/{id}", paid(h.DeleteScheduledTransaction)).Methods(http.MethodDelete)

	// Admin console
	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(authenticate, middleware.RequireAdmin)
	adminRouter.HandleFunc("/users", h.AdminListUsers).Methods(http.MethodGet)
	adminRouter.HandleFunc("/users/{id}/subscription", h.AdminUpdateSubscription).Methods(http.MethodPut)
	adminRouter.HandleFunc("/stats", h.AdminStats).Methods(http.MethodGet)
	adminRouter.HandleFunc("/carts", h.AdminListCarts).Methods(http.MethodGet)
	adminRouter.HandleFunc("/settings", h.AdminGetSettings).Methods(http.MethodGet)
	adminRouter.HandleFunc("/settings", h.AdminSaveSettings).Methods(http.MethodPut)
	adminRouter.HandleFunc("/settings/icon-upload-url", h.AdminIconUploadURL).Methods(http.MethodPost)
	adminRouter.HandleFunc("/plans", h.AdminListPlans).Methods(http.MethodGet)
	adminRouter.HandleFunc("/plans", h.AdminCreatePlan).Methods(http.MethodPost)

	// Function endpoints
	fn := r.PathPrefix("/functions/v1").Subrouter()
	fn.Handle("/admin-create-user", admin(h.FnAdminCreateUser)).Methods(http.MethodPost)
	fn.Handle("/test-smtp-connection", admin(h.FnTestSMTP)).Methods(http.MethodPost)
	fn.Handle("/list-accounts", apiKey(h.FnListAccounts)).Methods(http.MethodPost)
	fn.Handle("/subscription-past-due", apiKey(h.FnSubscriptionPastDue)).Methods(http.MethodPost)
	fn.Handle("/whatsapp-auth", apiKey(h.FnWhatsAppAuth)).Methods(http.MethodPost)
	fn.Handle("/mark-cart-converted", middleware.APIKeyOrSession(h.svc, h.svc)(http.HandlerFunc(h.FnMarkCartConverted))).Methods(http.MethodPost)
}
