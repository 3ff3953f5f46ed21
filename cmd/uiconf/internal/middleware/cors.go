package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
)

// CORSConfig holds CORS middleware configuration
type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           int // preflight cache in seconds
}

// CORSMiddleware answers preflight requests and marks responses for the
// console's origin when it is hosted apart from this service.
type CORSMiddleware struct {
	config  CORSConfig
	methods string
	headers string
}

// NewCORSMiddleware creates a new CORS middleware instance
func NewCORSMiddleware(config CORSConfig) *CORSMiddleware {
	return &CORSMiddleware{
		config: config,
		methods: strings.Join([]string{
			http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions,
		}, ", "),
		headers: strings.Join([]string{
			constants.HeaderAuthorization, constants.HeaderContentType, constants.HeaderRequestID,
		}, ", "),
	}
}

// Handle wraps the whole router so preflight requests never reach the
// method-specific routes.
func (m *CORSMiddleware) Handle(next http.Handler) http.Handler {
	if !m.config.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || !m.isOriginAllowed(origin) {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Origin", origin)
		if m.config.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Expose-Headers", constants.HeaderRequestID)

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", m.methods)
			h.Set("Access-Control-Allow-Headers", m.headers)
			if m.config.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(m.config.MaxAge))
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isOriginAllowed checks if an origin is in the allowed list
func (m *CORSMiddleware) isOriginAllowed(origin string) bool {
	for _, allowed := range m.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
