// SPDX-License-Identifier: Apache-2.0

package hub_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dbuild-io/dbuild/internal/hub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginStoresToken(t *testing.T) {
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/users/login/", r.URL.Path)

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		gotUser, gotPass = creds["username"], creds["password"]

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token": "jwt-token"}`))
	}))
	defer srv.Close()

	client := hub.New(srv.URL)
	defer client.Close()

	require.NoError(t, client.Login(context.Background(), "user", "secret"))
	assert.Equal(t, "user", gotUser)
	assert.Equal(t, "secret", gotPass)
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := hub.New(srv.URL)
	defer client.Close()

	err := client.Login(context.Background(), "user", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")
}

func TestUpdateReadme(t *testing.T) {
	var gotAuth, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	t.Setenv(hub.EnvAPI, srv.URL)
	t.Setenv(hub.EnvToken, "jwt-token")
	t.Setenv(hub.EnvUsername, "")
	t.Setenv(hub.EnvPassword, "")

	envClient, err := hub.NewFromEnv(context.Background())
	require.NoError(t, err)
	require.NotNil(t, envClient)
	defer envClient.Close()

	require.NoError(t, envClient.UpdateReadme(context.Background(), "acme/app", "# hello"))
	assert.Equal(t, "JWT jwt-token", gotAuth)
	assert.Equal(t, "/v2/repositories/acme/app/", gotPath)
	assert.Contains(t, gotBody, `"full_description":"# hello"`)
}

func TestUpdateReadmeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail": "permission denied"}`))
	}))
	defer srv.Close()

	client := hub.New(srv.URL)
	defer client.Close()

	err := client.UpdateReadme(context.Background(), "acme/app", "# hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme/app")
	assert.Contains(t, err.Error(), "permission denied")
}

func TestNewFromEnvWithoutCredentials(t *testing.T) {
	t.Setenv(hub.EnvAPI, "")
	t.Setenv(hub.EnvToken, "")
	t.Setenv(hub.EnvUsername, "")
	t.Setenv(hub.EnvPassword, "")

	client, err := hub.NewFromEnv(context.Background())
	require.NoError(t, err, "missing credentials are not an error")
	assert.Nil(t, client)
}

func TestNewFromEnvLogsIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/users/login/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token": "jwt-token"}`))
	}))
	defer srv.Close()

	t.Setenv(hub.EnvAPI, srv.URL)
	t.Setenv(hub.EnvToken, "")
	t.Setenv(hub.EnvUsername, "user")
	t.Setenv(hub.EnvPassword, "secret")

	client, err := hub.NewFromEnv(context.Background())
	require.NoError(t, err)
	require.NotNil(t, client)
	client.Close()
}
