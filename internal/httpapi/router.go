package httpapi

import "net/http"

// NewRouter registers control endpoints. When authSecret is set, everything
// under /clients and the broadcast reset require a bearer token.
func NewRouter(h *Handlers, authSecret string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.Health)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /clients", h.Clients)
	protected.HandleFunc("GET /clients/{id}", h.Client)
	protected.HandleFunc("GET /clients/{id}/status", h.Client)
	protected.HandleFunc("GET /clients/{id}/transactions", h.Transactions)
	protected.HandleFunc("GET /clients/{id}/transactions/{txid}", h.Transaction)
	protected.HandleFunc("GET /clients/{id}/config", h.Configuration)
	protected.HandleFunc("POST /clients/{id}/start", h.Start)
	protected.HandleFunc("POST /clients/{id}/stop", h.Stop)
	protected.HandleFunc("POST /clients/{id}/trigger/{message}", h.Trigger)
	protected.HandleFunc("POST /clients/{id}/softreset", h.SoftReset)
	protected.HandleFunc("POST /softreset", h.SoftResetAll)

	var guarded http.Handler = protected
	if authSecret != "" {
		guarded = AuthMiddleware(authSecret)(protected)
	}

	mux.Handle("/clients", guarded)
	mux.Handle("/clients/", guarded)
	mux.Handle("/softreset", guarded)
	return mux
}
