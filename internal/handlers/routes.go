package handlers

import (
	"net/http"

	"blog/internal/upload"
)

// Routes builds the API mux wrapped in the middleware chain. limiter may be
// nil to disable rate limiting.
func (h *Handler) Routes(corsOrigins []string, limiter *RateLimiter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health)

	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/me", h.RequireAuth(h.Me))

	mux.HandleFunc("GET /api/posts", h.ListPosts)
	mux.HandleFunc("GET /api/posts/{id}", h.GetPost)
	mux.HandleFunc("POST /api/posts", h.RequireAuth(h.CreatePost))
	mux.HandleFunc("PUT /api/posts/{id}", h.RequireAuth(h.UpdatePost))
	mux.HandleFunc("DELETE /api/posts/{id}", h.RequireAuth(h.DeletePost))

	mux.HandleFunc("GET /api/categories", h.ListCategories)
	mux.HandleFunc("POST /api/categories", h.RequireAdmin(h.CreateCategory))

	mux.Handle("GET "+upload.URLPrefix, h.uploads.Handler())

	mux.HandleFunc("/", h.NotFound)

	var handler http.Handler = h.WithSession(mux)
	if limiter != nil {
		handler = limiter.Middleware(handler)
	}
	handler = WithCORS(corsOrigins)(handler)
	handler = WithAccessLog(handler)
	return WithRecover(handler)
}
