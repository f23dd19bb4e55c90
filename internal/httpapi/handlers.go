package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/fleet-bracket/internal/hub"
	"github.com/DoyleJ11/fleet-bracket/internal/lobby"
	"github.com/DoyleJ11/fleet-bracket/internal/style"
	"github.com/DoyleJ11/fleet-bracket/internal/types"
)

const stateTimeout = 2 * time.Second

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// hubError answers for a request the hub could not serve.
func hubError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusServiceUnavailable)
}

// CreateSession starts a session and its catalog load.
func CreateSession(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			existing, err := h.Lookup(r.Context(), c)
			if err != nil {
				hubError(w, err)
				return
			}
			if existing == nil {
				code = c
				break
			}
			logger.Debug("collision on code, regenerating", zap.String("code", c))
		}

		lb, err := h.Create(r.Context(), code)
		if err != nil {
			hubError(w, err)
			return
		}
		if lb == nil {
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

func GetSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		ctx, cancel := context.WithTimeout(r.Context(), stateTimeout)
		defer cancel()

		lb, err := h.Lookup(ctx, code)
		if err != nil {
			hubError(w, err)
			return
		}
		if lb == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		view, err := lb.State(ctx)
		if err != nil {
			status := http.StatusServiceUnavailable
			if errors.Is(err, lobby.ErrClosed) {
				status = http.StatusGone
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, http.StatusOK, types.NewSnapshot(code, view.Version, view.Session, nil))
	}
}

func DeleteSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := h.Remove(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			hubError(w, err)
			return
		}
		if !removed {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Styles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, style.Lookup())
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
