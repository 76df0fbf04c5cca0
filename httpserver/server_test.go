package httpserver

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windsend/windsend-go/acceptor"
	"github.com/windsend/windsend-go/cryptoutils"
	"github.com/windsend/windsend-go/pki"
)

func testServerConfig() *HTTPServerConfig {
	return &HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      testLogger,
		GracefulShutdownDuration: 5 * time.Second,
		ReadTimeout:              5 * time.Second,
		WriteTimeout:             5 * time.Second,
	}
}

func TestRouter(t *testing.T) {
	core := newFakeCore()
	srv := New(testServerConfig(), NewHandler(core, testLogger), nil)
	router := srv.getRouter()

	testCases := []struct {
		name       string
		path       string
		remoteAddr string
		wantStatus int
		wantBody   string
	}{
		{"livez", "/livez", "203.0.113.5:1", http.StatusOK, `{"status":"alive"}`},
		{"readyz", "/readyz", "203.0.113.5:1", http.StatusOK, `{"status":"ready"}`},
		{"public ca from anywhere", "/api/public/ca_cert", "203.0.113.5:1", http.StatusOK, core.caPEM},
		{"status from untrusted host", "/api/trusted/status", "203.0.113.5:1", http.StatusForbidden, ""},
		{"status from loopback", "/api/trusted/status", "127.0.0.1:1", http.StatusOK, ""},
		{"drain from untrusted host", "/drain", "203.0.113.5:1", http.StatusForbidden, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.RemoteAddr = tc.remoteAddr
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantBody != "" {
				assert.Equal(t, tc.wantBody, rr.Body.String())
			}
		})
	}
}

func TestDrainUndrain(t *testing.T) {
	srv := New(testServerConfig(), NewHandler(newFakeCore(), testLogger), nil)
	router := srv.getRouter()

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "127.0.0.1:1"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, `{"status":"draining"}`, get("/drain").Body.String())
	assert.Equal(t, `{"status":"already draining"}`, get("/drain").Body.String())
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)
	assert.Equal(t, `{"status":"ready"}`, get("/undrain").Body.String())
	assert.Equal(t, `{"status":"already ready"}`, get("/undrain").Body.String())
	assert.Equal(t, http.StatusOK, get("/readyz").Code)
}

func TestServeOverTLS(t *testing.T) {
	dir := t.TempDir()
	manager, err := pki.NewManagerForDir(dir, cryptoutils.DefaultCertificateOptions(), testLogger)
	require.NoError(t, err)
	material, err := manager.EnsureTLSMaterial(context.Background())
	require.NoError(t, err)

	acc, err := acceptor.NewBuilder(dir, testLogger).Acceptor()
	require.NoError(t, err)

	core := newFakeCore()
	core.caPEM = string(material.CA.CertPEM)
	srv := New(testServerConfig(), NewHandler(core, testLogger), acc)
	require.NoError(t, srv.Listen())
	srv.RunInBackground()
	defer srv.Shutdown()

	roots := x509.NewCertPool()
	require.True(t, roots.AppendCertsFromPEM(material.CA.CertPEM))
	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: roots}},
	}
	base := "https://" + srv.Addr().String()

	resp, err := client.Get(base + "/api/public/ca_cert")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, material.CA.CertPEM, body)

	resp, err = client.Get(base + "/api/trusted/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "76e6a5d749ea8822", status.DeviceID)

	plain := &http.Client{Timeout: 5 * time.Second}
	resp, err = plain.Get("http://" + srv.Addr().String() + "/livez")
	if err == nil {
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
}

func TestShutdownWithoutServing(t *testing.T) {
	dir := t.TempDir()
	manager, err := pki.NewManagerForDir(dir, cryptoutils.DefaultCertificateOptions(), testLogger)
	require.NoError(t, err)
	_, err = manager.EnsureTLSMaterial(context.Background())
	require.NoError(t, err)
	acc, err := acceptor.NewBuilder(dir, testLogger).Acceptor()
	require.NoError(t, err)

	srv := New(testServerConfig(), NewHandler(newFakeCore(), testLogger), acc)
	require.NoError(t, srv.Listen())
	addr := srv.Addr().String()

	stopped := make(chan struct{})
	go func() {
		srv.Shutdown()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown blocked on a server that never served")
	}

	_, err = net.DialTimeout("tcp", addr, time.Second)
	assert.Error(t, err, "listener should be closed")
}
