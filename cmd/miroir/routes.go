package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/miroir/auth"
	"github.com/hazyhaar/miroir/miroir"
	"github.com/hazyhaar/miroir/shield"
)

func newRouter(svc *miroir.Service, users *userService, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Served clone documents. No security-header middleware here: a CSP
	// would block the very scripts the mutations inject. View counting
	// happens on the serving path only.
	r.Get("/clones/{cloneID}/index.html", func(w http.ResponseWriter, r *http.Request) {
		cloneID := chi.URLParam(r, "cloneID")
		path, err := svc.ArtifactPath(cloneID)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		// The bytes are written directly: ServeFile redirects any request
		// path ending in /index.html, which would break every clone URL.
		data, err := os.ReadFile(path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		svc.IncrementViews(r.Context(), cloneID)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
	})

	// API surface: full shield stack plus soft JWT parsing.
	r.Group(func(r chi.Router) {
		for _, mw := range shield.DefaultStack() {
			r.Use(mw)
		}
		r.Use(auth.Middleware(jwtSecret))

		r.Post("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Email    string `json:"email"`
				Name     string `json:"name"`
				Password string `json:"password"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			user, err := users.create(r.Context(), req.Email, req.Name, req.Password)
			if err != nil {
				writeError(w, 400, err)
				return
			}
			writeJSON(w, 201, user)
		})

		r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			claims, err := users.authenticate(r.Context(), req.Email, req.Password)
			if err != nil {
				writeJSON(w, 401, map[string]string{"error": "invalid credentials"})
				return
			}
			token, err := auth.GenerateToken(jwtSecret, claims, 30*24*time.Hour)
			if err != nil {
				writeError(w, 500, err)
				return
			}
			secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
			auth.SetTokenCookie(w, token, secure)
			writeJSON(w, 200, map[string]string{
				"id": claims.UserID, "name": claims.DisplayName, "role": claims.Role, "token": token,
			})
		})

		r.Post("/api/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
			auth.ClearTokenCookie(w)
			writeJSON(w, 200, map[string]string{"status": "ok"})
		})

		// Everything below requires a valid session.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession)

			r.Get("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
				c := auth.GetClaims(r.Context())
				profile, err := users.get(r.Context(), c.UserID)
				if err != nil {
					writeError(w, 404, err)
					return
				}
				writeJSON(w, 200, profile)
			})

			r.Get("/api/users/profile", func(w http.ResponseWriter, r *http.Request) {
				c := auth.GetClaims(r.Context())
				profile, err := users.get(r.Context(), c.UserID)
				if err != nil {
					writeError(w, 404, err)
					return
				}
				writeJSON(w, 200, profile)
			})

			r.Put("/api/users/profile", func(w http.ResponseWriter, r *http.Request) {
				c := auth.GetClaims(r.Context())
				var req struct {
					Name     string `json:"name"`
					Password string `json:"password"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				if err := users.update(r.Context(), c.UserID, req.Name, req.Password); err != nil {
					writeError(w, 400, err)
					return
				}
				profile, err := users.get(r.Context(), c.UserID)
				if err != nil {
					writeError(w, 500, err)
					return
				}
				writeJSON(w, 200, profile)
			})

			r.Delete("/api/users/profile", func(w http.ResponseWriter, r *http.Request) {
				c := auth.GetClaims(r.Context())
				if err := users.deactivate(r.Context(), c.UserID); err != nil {
					writeError(w, 500, err)
					return
				}
				auth.ClearTokenCookie(w)
				writeJSON(w, 200, map[string]string{"status": "deleted"})
			})

			r.Post("/api/pages/clone", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					URL string `json:"url"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				page, err := svc.Clone(r.Context(), ownerID(r), req.URL)
				if err != nil {
					writeEngineError(w, err)
					return
				}
				writeJSON(w, 201, page)
			})

			r.Get("/api/pages/list", func(w http.ResponseWriter, r *http.Request) {
				pages, err := svc.List(r.Context(), ownerID(r))
				if err != nil {
					writeEngineError(w, err)
					return
				}
				writeJSON(w, 200, pages)
			})

			r.Get("/api/pages/{id}", func(w http.ResponseWriter, r *http.Request) {
				page, err := svc.Get(r.Context(), ownerID(r), chi.URLParam(r, "id"))
				if err != nil {
					writeEngineError(w, err)
					return
				}
				writeJSON(w, 200, page)
			})

			r.Delete("/api/pages/{id}", func(w http.ResponseWriter, r *http.Request) {
				if err := svc.Delete(r.Context(), ownerID(r), chi.URLParam(r, "id")); err != nil {
					writeEngineError(w, err)
					return
				}
				writeJSON(w, 200, map[string]string{"status": "deleted"})
			})

			r.Get("/api/pages/{id}/status", func(w http.ResponseWriter, r *http.Request) {
				status, err := svc.Status(r.Context(), ownerID(r), chi.URLParam(r, "id"))
				if err != nil {
					writeEngineError(w, err)
					return
				}
				writeJSON(w, 200, map[string]string{"status": status})
			})

			r.Post("/api/pages/{id}/pixel", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					PixelID string `json:"pixelId"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				id := chi.URLParam(r, "id")
				if err := svc.InjectPixel(r.Context(), ownerID(r), id, req.PixelID); err != nil {
					writeEngineError(w, err)
					return
				}
				page, err := svc.Get(r.Context(), ownerID(r), id)
				if err != nil {
					writeEngineError(w, err)
					return
				}
				writeJSON(w, 200, page)
			})

			r.Delete("/api/pages/{id}/pixel", func(w http.ResponseWriter, r *http.Request) {
				id := chi.URLParam(r, "id")
				if err := svc.RemovePixel(r.Context(), ownerID(r), id); err != nil {
					writeEngineError(w, err)
					return
				}
				page, err := svc.Get(r.Context(), ownerID(r), id)
				if err != nil {
					writeEngineError(w, err)
					return
				}
				writeJSON(w, 200, page)
			})

			r.Post("/api/pages/{id}/scripts", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Content  string `json:"content"`
					Location string `json:"location"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				if req.Location == "" {
					req.Location = miroir.LocationBody
				}
				script, err := svc.AddScript(r.Context(), ownerID(r), chi.URLParam(r, "id"), req.Content, req.Location)
				if err != nil {
					writeEngineError(w, err)
					return
				}
				writeJSON(w, 201, script)
			})

			r.Delete("/api/pages/{id}/scripts/{scriptID}", func(w http.ResponseWriter, r *http.Request) {
				err := svc.RemoveScript(r.Context(), ownerID(r), chi.URLParam(r, "id"), chi.URLParam(r, "scriptID"))
				if err != nil {
					writeEngineError(w, err)
					return
				}
				writeJSON(w, 200, map[string]string{"status": "removed"})
			})

			r.Get("/api/pages/{id}/links", func(w http.ResponseWriter, r *http.Request) {
				links, err := svc.ListLinks(r.Context(), ownerID(r), chi.URLParam(r, "id"))
				if err != nil {
					writeEngineError(w, err)
					return
				}
				writeJSON(w, 200, links)
			})

			r.Put("/api/pages/{id}/links/{index}", func(w http.ResponseWriter, r *http.Request) {
				index, err := strconv.Atoi(chi.URLParam(r, "index"))
				if err != nil {
					writeJSON(w, 400, map[string]string{"error": "index must be an integer"})
					return
				}
				var req struct {
					NewURL string `json:"newUrl"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				if err := svc.RewriteLink(r.Context(), ownerID(r), chi.URLParam(r, "id"), index, req.NewURL); err != nil {
					writeEngineError(w, err)
					return
				}
				writeJSON(w, 200, map[string]string{"status": "updated"})
			})

			r.Put("/api/pages/{id}/html", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					HTML string `json:"html"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				if err := svc.ReplaceHTML(r.Context(), ownerID(r), chi.URLParam(r, "id"), req.HTML); err != nil {
					writeEngineError(w, err)
					return
				}
				writeJSON(w, 200, map[string]string{"status": "updated"})
			})

			r.Post("/api/pages/{id}/refresh", func(w http.ResponseWriter, r *http.Request) {
				id := chi.URLParam(r, "id")
				if err := svc.Refresh(r.Context(), ownerID(r), id); err != nil {
					writeEngineError(w, err)
					return
				}
				page, err := svc.Get(r.Context(), ownerID(r), id)
				if err != nil {
					writeEngineError(w, err)
					return
				}
				writeJSON(w, 200, page)
			})
		})
	})

	return r
}

func ownerID(r *http.Request) string {
	return auth.GetClaims(r.Context()).UserID
}

// writeEngineError maps engine sentinels to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, miroir.ErrInvalidURL),
		errors.Is(err, miroir.ErrInvalidPixelID),
		errors.Is(err, miroir.ErrInvalidLocation),
		errors.Is(err, miroir.ErrInvalidHref),
		errors.Is(err, miroir.ErrEmptyScript),
		errors.Is(err, miroir.ErrLinkIndexOutOfRange):
		writeError(w, 400, err)
	case errors.Is(err, miroir.ErrNotFound),
		errors.Is(err, miroir.ErrScriptNotFound):
		writeError(w, 404, err)
	case errors.Is(err, miroir.ErrPixelAlreadySet),
		errors.Is(err, miroir.ErrNoPixelSet):
		writeError(w, 409, err)
	case errors.Is(err, miroir.ErrFetchFailed):
		writeError(w, 502, err)
	default:
		writeError(w, 500, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
