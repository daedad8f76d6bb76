package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// CORS applies the storefront's allowed origin policy. The cart token header
// is exposed so guest clients can persist a freshly issued token.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", CartTokenHeader, "Idempotency-Key", "X-Requested-With"},
		ExposedHeaders:   []string{CartTokenHeader, AccessTokenHeader, requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

const (
	// CartTokenHeader carries the guest cart token.
	CartTokenHeader = "X-Cart-Token"
	// AccessTokenHeader echoes a freshly minted access token.
	AccessTokenHeader = "X-Storefront-Token"
)
