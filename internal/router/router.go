package router

import (
	"net/http"

	"github.com/servimatch/backend/internal/auth"
	"github.com/servimatch/backend/internal/handlers"
	"github.com/servimatch/backend/internal/middleware"
	"github.com/servimatch/backend/internal/models"
)

// New builds the /v1 API mux. Route patterns carry the method (Go 1.22
// mux); auth and role checks are composed per route.
func New(
	authHandler *auth.Handler,
	walletHandler *handlers.WalletHandler,
	lifecycleHandler *handlers.LifecycleHandler,
	billingHandler *handlers.BillingHandler,
	platformHandler *handlers.PlatformHandler,
	authn func(http.Handler) http.Handler,
) http.Handler {
	mux := http.NewServeMux()

	clientOnly := middleware.RequireRole(models.RoleClient)
	professionalOnly := middleware.RequireRole(models.RoleProfessional)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	client := func(h http.HandlerFunc) http.Handler { return authn(clientOnly(h)) }
	professional := func(h http.HandlerFunc) http.Handler { return authn(professionalOnly(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authn(adminOnly(h)) }
	authed := func(h http.HandlerFunc) http.Handler { return authn(h) }

	// Auth (public)
	mux.HandleFunc("POST /v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", authHandler.Login)

	// Wallet (professionals fund and inspect their own ledger)
	mux.Handle("GET /v1/wallet", professional(walletHandler.GetWallet))
	mux.Handle("GET /v1/wallet/transactions", professional(walletHandler.ListTransactions))
	mux.Handle("POST /v1/wallet/deposit", professional(walletHandler.Deposit))

	// Requests
	mux.Handle("POST /v1/requests", client(lifecycleHandler.CreateRequest))
	mux.Handle("GET /v1/requests", client(lifecycleHandler.ListRequests))
	mux.Handle("GET /v1/requests/{id}", authed(lifecycleHandler.GetRequest))
	mux.Handle("POST /v1/requests/{id}/cancel", client(lifecycleHandler.CancelRequest))
	mux.Handle("POST /v1/requests/{id}/offers", professional(lifecycleHandler.CreateOffer))

	// Offers
	mux.Handle("POST /v1/offers/{id}/accept", client(lifecycleHandler.AcceptOffer))
	mux.Handle("POST /v1/offers/{id}/reject", client(lifecycleHandler.RejectOffer))
	mux.Handle("POST /v1/offers/{id}/withdraw", professional(lifecycleHandler.WithdrawOffer))
	mux.Handle("POST /v1/offers/{id}/click", client(billingHandler.RecordClick))

	// Jobs
	mux.Handle("POST /v1/jobs/{id}/start", professional(lifecycleHandler.StartJob))
	mux.Handle("POST /v1/jobs/{id}/complete", professional(lifecycleHandler.CompleteJob))
	mux.Handle("POST /v1/jobs/{id}/cancel", authed(lifecycleHandler.CancelJob))
	mux.Handle("POST /v1/jobs/{id}/dispute", authed(lifecycleHandler.DisputeJob))
	mux.Handle("POST /v1/jobs/{id}/review", client(lifecycleHandler.CreateReview))

	// Platform settings
	mux.Handle("GET /v1/platform/settings", authed(platformHandler.GetSettings))
	mux.Handle("PATCH /v1/platform/settings", admin(platformHandler.UpdateSettings))

	return mux
}
