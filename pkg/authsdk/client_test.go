package authsdk_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestLoginAndMe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret-password" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(authsdk.ErrorResponse{
				Error:            authsdk.ErrorCodeInvalidCredentials,
				ErrorDescription: "invalid email or password",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(authsdk.LoginResponse{
			Token:     "tok",
			TokenType: "Bearer",
			ExpiresAt: time.Now().Add(time.Hour),
			User:      authsdk.UserView{ID: "u1", Email: req.Email},
		})
	})
	mux.HandleFunc("GET /v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(authsdk.UserView{ID: "u1"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := authsdk.NewSDKClient(srv.URL + "/")
	ctx := context.Background()

	_, err := client.Login(ctx, "a@b.c", "wrong")
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeInvalidCredentials, apiErr.Code)

	session, err := client.Login(ctx, "a@b.c", "secret-password")
	require.NoError(t, err)
	require.Equal(t, "tok", session.Token())
	require.False(t, session.Expired())

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "u1", me.ID)
}

func TestNonJSONErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := authsdk.NewSDKClient(srv.URL).GetLiveness(context.Background())
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeServerError, apiErr.Code)
}
