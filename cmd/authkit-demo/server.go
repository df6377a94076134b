package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	authkit "github.com/fieldday/authkit"
	"github.com/fieldday/authkit/middleware"
)

func listenAndServe(addr string, svc *authkit.Service, logger *logrus.Logger) error {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/otp/request", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Identifier string `json:"identifier"`
		}
		if err := decode(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		if err := svc.RequestOTP(clientCtx(r), req.Identifier); err != nil {
			writeFlowError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
	})

	mux.HandleFunc("POST /api/auth/otp/verify", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Identifier string `json:"identifier"`
			Code       string `json:"code"`
		}
		if err := decode(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		user, pair, err := svc.CompleteOTPLogin(clientCtx(r), req.Identifier, req.Code, "")
		if err != nil {
			writeFlowError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse(user, pair, ""))
	})

	mux.HandleFunc("POST /api/auth/magic/request", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email       string `json:"email"`
			RedirectURL string `json:"redirectUrl"`
		}
		if err := decode(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		if err := svc.RequestMagicLink(clientCtx(r), req.Email, req.RedirectURL); err != nil {
			writeFlowError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
	})

	mux.HandleFunc("GET /api/auth/magic/verify", func(w http.ResponseWriter, r *http.Request) {
		user, pair, claim, err := svc.CompleteMagicLinkLogin(clientCtx(r), r.URL.Query().Get("token"), "")
		if err != nil {
			writeFlowError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse(user, pair, claim.RedirectURL))
	})

	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decode(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		pair, err := svc.Refresh(clientCtx(r), req.RefreshToken)
		if err != nil {
			writeFlowError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	})

	me := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := middleware.IdentityFromContext(r.Context())
		writeJSON(w, http.StatusOK, identity)
	})
	mux.Handle("GET /api/me", middleware.Authenticate(svc)(me))

	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Metrics().Snapshot())
	})

	logger.WithField("addr", addr).Debug("routes registered")
	return http.ListenAndServe(addr, mux)
}

func decode(r *http.Request, into any) error {
	return json.NewDecoder(r.Body).Decode(into)
}

func clientCtx(r *http.Request) context.Context {
	return authkit.WithClientIP(r.Context(), r.RemoteAddr)
}

func tokenResponse(user authkit.User, pair *authkit.TokenPair, redirect string) map[string]any {
	resp := map[string]any{
		"userId":       user.ID,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"expiresIn":    pair.ExpiresIn,
	}
	if redirect != "" {
		resp["redirectUrl"] = redirect
	}
	return resp
}

func writeFlowError(w http.ResponseWriter, err error) {
	writeJSON(w, flowStatus(err), map[string]string{"error": authkit.UserMessage(err)})
}

func flowStatus(err error) int {
	switch {
	case errors.Is(err, authkit.ErrRateLimited), errors.Is(err, authkit.ErrBlocked):
		return http.StatusTooManyRequests
	case errors.Is(err, authkit.ErrNoToken):
		return http.StatusUnauthorized
	case errors.Is(err, authkit.ErrTokenInvalid),
		errors.Is(err, authkit.ErrInvalidCode),
		errors.Is(err, authkit.ErrOTPNotFound),
		errors.Is(err, authkit.ErrLinkNotFound),
		errors.Is(err, authkit.ErrLinkConsumed):
		return http.StatusForbidden
	case errors.Is(err, authkit.ErrInvalidIdentifier):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// memoryDirectory stands in for the host application's user database.
type memoryDirectory struct {
	mu    sync.Mutex
	users map[string]authkit.User
	next  int
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{users: make(map[string]authkit.User)}
}

func (d *memoryDirectory) FindOrCreate(_ context.Context, claim authkit.IdentityClaim) (authkit.User, error) {
	key := claim.Email + "|" + claim.Phone

	d.mu.Lock()
	defer d.mu.Unlock()

	if user, ok := d.users[key]; ok {
		return user, nil
	}

	d.next++
	user := authkit.User{
		ID:    "user-" + strconv.Itoa(d.next),
		Email: claim.Email,
		Phone: claim.Phone,
		Roles: []authkit.Role{authkit.RolePlayer},
	}
	d.users[key] = user
	return user, nil
}

func (d *memoryDirectory) FindByID(_ context.Context, id string) (authkit.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, user := range d.users {
		if user.ID == id {
			return user, nil
		}
	}
	return authkit.User{}, errors.New("user not found")
}
