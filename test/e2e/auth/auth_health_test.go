package auth_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestLivezEndpoint verifies the liveness check endpoint works before bootstrap.
func TestLivezEndpoint(t *testing.T) {
	svc, cleanup := setupAuthContainer(t, nil)
	defer cleanup()

	client := authsdk.NewSDKClient(svc.BaseURL)

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)

	t.Logf("Livez endpoint is healthy")
}

// TestReadyzEndpoint verifies the store and signer checks pass.
func TestReadyzEndpoint(t *testing.T) {
	svc, cleanup := setupAuthContainer(t, nil)
	defer cleanup()

	client := authsdk.NewSDKClient(svc.BaseURL)

	health, err := client.GetReadiness(t.Context())
	assertHealthy(t, health, err)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "ok", health.Checks.Signer)

	t.Logf("Readyz endpoint is healthy")
}

// TestMetricsEndpoint verifies Prometheus metrics are exposed.
func TestMetricsEndpoint(t *testing.T) {
	svc, cleanup := setupAuthContainer(t, nil)
	defer cleanup()

	resp, err := http.Get(svc.BaseURL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "authcore_http_requests_total")
}
