// Package devserver is a development stand-in for the production backend:
// JSON REST replay endpoints with optimistic versioning, JWT auth, and
// presigned attachment uploads. It keeps everything in memory and exists so
// the agent's sync protocol can be exercised end to end without real
// infrastructure.
package devserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/verifield/fieldsync/internal/common"
	"github.com/verifield/fieldsync/internal/logging"
)

type Handler struct {
	cfg      *Config
	store    *MemStore
	uploader Uploader
	log      logging.Logger
}

func NewHandler(cfg *Config, store *MemStore, uploader Uploader, log logging.Logger) *Handler {
	return &Handler{cfg: cfg, store: store, uploader: uploader, log: log}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	r.Post("/api/v1/auth/login", h.Login)
	r.Put("/uploads/{key}", h.LocalUpload)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		for _, c := range []string{"cases", "forms", "attachments"} {
			collection := c
			r.Post("/"+collection, h.handleCreate(collection))
			r.Put("/"+collection+"/{id}", h.handleUpdate(collection))
			r.Delete("/"+collection+"/{id}", h.handleDelete(collection))
		}
	})

	return r
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, ok := h.cfg.Users[req.Username]
	if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := GenerateToken(req.Username, []byte(h.cfg.JWTSecret), h.cfg.TokenTTL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.log.Info(r.Context(), "agent logged in", "username", req.Username)
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		username, err := GetUsernameFromToken(token, []byte(h.cfg.JWTSecret))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), usernameKey{}, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type usernameKey struct{}

func (h *Handler) handleCreate(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var entity struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &entity); err != nil || entity.ID == "" {
			http.Error(w, "payload must carry an id", http.StatusBadRequest)
			return
		}

		version, rejection := h.store.Create(collection, entity.ID, body)
		if rejection != nil {
			writeJSON(w, http.StatusConflict, rejection)
			return
		}

		resp := map[string]any{"entity": json.RawMessage(body), "version": version}

		// Attachment metadata is accepted first; the bytes travel separately
		// to the presigned URL.
		if collection == "attachments" {
			url, err := h.uploader.PresignPut(r.Context(), entity.ID)
			if err != nil {
				h.log.Error(r.Context(), "presign failed", "key", entity.ID, "error", err)
				http.Error(w, "presign failed", http.StatusInternalServerError)
				return
			}
			resp["upload_url"] = url
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *Handler) handleUpdate(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		base, err := baseVersion(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		version, rejection := h.store.Update(collection, id, base, body)
		if rejection != nil {
			writeJSON(w, http.StatusConflict, rejection)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"entity": json.RawMessage(body), "version": version})
	}
}

func (h *Handler) handleDelete(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		base, err := baseVersion(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		version, rejection := h.store.Delete(collection, id, base)
		if rejection != nil {
			writeJSON(w, http.StatusConflict, rejection)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"version": version})
	}
}

// LocalUpload is the no-S3 fallback target for presigned PUTs: bytes land
// in UploadDir under the attachment's key.
func (h *Handler) LocalUpload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(h.cfg.UploadDir, 0o770); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := os.WriteFile(filepath.Join(h.cfg.UploadDir, key), data, 0o660); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func baseVersion(r *http.Request) (int64, error) {
	header := r.Header.Get("X-Base-Version")
	if header == "" {
		return 0, nil
	}
	return strconv.ParseInt(header, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
