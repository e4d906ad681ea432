package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type captured struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

// fakeController answers every request with status/resp and records the last request.
func fakeController(t *testing.T, status int, resp string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.auth = r.Header.Get("Authorization")
		got.body = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func runCLI(args ...string) (int, string, string) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_StateAsYAML(t *testing.T) {
	srv, got := fakeController(t, http.StatusOK, `{"mode":"AUTO","state":{"lighting":100,"door_lock":"LOCKED"}}`)

	code, out, _ := runCLI("-s", srv.URL, "-t", "tok", "state")
	require.Equal(t, exitOK, code)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/api/v1/bas/state", got.path)
	assert.Equal(t, "Bearer tok", got.auth)

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "AUTO", parsed["mode"])
}

func TestRun_JSONOutput(t *testing.T) {
	srv, _ := fakeController(t, http.StatusOK, `{"count":0,"macros":[]}`)
	code, out, _ := runCLI("--server", srv.URL, "-o", "json", "macros")
	require.Equal(t, exitOK, code)
	assert.JSONEq(t, `{"count":0,"macros":[]}`, out)
}

func TestRun_OverrideSendsOnlyChangedFlags(t *testing.T) {
	srv, got := fakeController(t, http.StatusOK, `{"status":"applied"}`)

	code, _, _ := runCLI("-s", srv.URL, "override", "--lighting", "0", "--door", "unlocked")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "/api/v1/bas/override", got.path)
	assert.Equal(t, map[string]any{"lighting": float64(0), "door_lock": "unlocked"}, got.body)

	code, _, _ = runCLI("-s", srv.URL, "override", "--temp=21.5")
	require.Equal(t, exitOK, code)
	assert.Equal(t, map[string]any{"temperature_c": 21.5}, got.body)
}

func TestRun_ScheduleAddAndLogsQuery(t *testing.T) {
	srv, got := fakeController(t, http.StatusCreated, `{"status":"rule_added"}`)

	code, _, _ := runCLI("-s", srv.URL, "schedule-add", "--name", "night", "--start", "22:00", "--end", "06:00", "-T", "19")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "22:00", got.body["start"])
	assert.Equal(t, float64(19), got.body["temperature_c"])
	assert.Equal(t, "locked", got.body["door_lock"])

	code, _, _ = runCLI("-s", srv.URL, "logs", "--type", "rejected", "--from", "2025-03-01")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "/api/v1/logs", got.path)
	assert.Contains(t, got.query, "type=rejected")
	assert.Contains(t, got.query, "from=2025-03-01")
}

func TestRun_ErrorCodesMapToExitCodes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		resp   string
		args   []string
		want   int
	}{
		{"rejected override", http.StatusConflict, `{"error":"override: rejected","code":"REJECTED_OVERRIDE"}`, []string{"override", "-l", "50"}, exitRejectedOverride},
		{"unknown macro", http.StatusNotFound, `{"error":"macro: unknown","code":"UNKNOWN_MACRO"}`, []string{"macro", "party"}, exitUnknownMacro},
		{"invalid mode", http.StatusBadRequest, `{"error":"mode: invalid mode","code":"INVALID_MODE"}`, []string{"set-mode", "turbo"}, exitInvalidMode},
		{"overlap", http.StatusConflict, `{"error":"schedule: overlapping window","code":"OVERLAPPING_WINDOW"}`, []string{"schedule-add", "--start", "05:00", "--end", "07:00", "-T", "20"}, exitOverlappingWindow},
		{"invalid target", http.StatusBadRequest, `{"error":"target: invalid value","code":"INVALID_TARGET"}`, []string{"override", "-l", "150"}, exitInvalidTarget},
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid or expired token"}`, []string{"state"}, exitUnauthorized},
		{"internal", http.StatusInternalServerError, `{"error":"internal error","code":"INTERNAL"}`, []string{"state"}, exitError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := fakeController(t, tc.status, tc.resp)
			code, _, stderr := runCLI(append([]string{"-s", srv.URL}, tc.args...)...)
			assert.Equal(t, tc.want, code)
			assert.Contains(t, stderr, "basctl:")
		})
	}
}

func TestRun_Usage(t *testing.T) {
	cases := [][]string{
		{},
		{"bogus"},
		{"set-mode"},
		{"mode", "auto", "extra"},
		{"override"},
		{"macro"},
		{"login", "-u", "ops"},
		{"schedule-add", "--start", "22:00"},
		{"-o", "xml", "state"},
	}
	for _, args := range cases {
		code, _, _ := runCLI(append([]string{"-s", "http://127.0.0.1:1"}, args...)...)
		assert.Equal(t, exitUsage, code, "args %v", args)
	}
}

func TestRun_ConnectionFailure(t *testing.T) {
	code, _, stderr := runCLI("-s", "http://127.0.0.1:1", "state")
	assert.Equal(t, exitError, code)
	assert.NotEmpty(t, stderr)
}
