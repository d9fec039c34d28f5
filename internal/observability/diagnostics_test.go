package observability_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/depfence/internal/observability"
)

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(data)
}

func TestDiagnosticsServer_ServesEndpoints(t *testing.T) {
	t.Parallel()

	srv, err := observability.NewDiagnosticsServer("127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, srv.Close()) })

	base := "http://" + srv.Addr()

	code, body := getBody(t, base+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	code, _ = getBody(t, base+"/readyz")
	assert.Equal(t, http.StatusOK, code)

	code, _ = getBody(t, base+"/metrics")
	assert.Equal(t, http.StatusOK, code)
}

func TestDiagnosticsServer_ReadyChecksGateReadyz(t *testing.T) {
	t.Parallel()

	failing := func(_ context.Context) error { return errors.New("not ready") }

	srv, err := observability.NewDiagnosticsServer("127.0.0.1:0", failing)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, srv.Close()) })

	base := "http://" + srv.Addr()

	code, _ := getBody(t, base+"/healthz")
	assert.Equal(t, http.StatusOK, code)

	code, body := getBody(t, base+"/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.JSONEq(t, `{"status":"unavailable"}`, body)
}
