package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/ivy"
	ivyhttp "github.com/aretw0/ivy/pkg/adapters/http"
	"github.com/aretw0/ivy/pkg/domain"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, opts ...ivyhttp.Option) (*ivy.Engine, *httptest.Server) {
	t.Helper()
	eng, err := ivy.New()
	require.NoError(t, err)
	srv := httptest.NewServer(ivyhttp.NewHandler(eng, opts...))
	t.Cleanup(srv.Close)
	return eng, srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	_, srv := newServer(t)
	resp := do(t, "GET", srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRecord_PutGetDelete(t *testing.T) {
	_, srv := newServer(t)
	base := srv.URL + "/records/ada"

	resp := do(t, "PUT", base+"/name?shard=users", `"Ada"`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, "PUT", base+"/age?shard=users", `36`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, "GET", base+"?shard=users", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"name": "Ada", "age": 36.0}, decode[map[string]any](t, resp))

	resp = do(t, "DELETE", base+"/age?shard=users", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, "GET", base+"?shard=users", "")
	assert.Equal(t, map[string]any{"name": "Ada", "age": nil}, decode[map[string]any](t, resp), "a deleted field reads as null")

	resp = do(t, "GET", srv.URL+"/records", "")
	assert.Equal(t, []string{"ada"}, decode[[]string](t, resp))
}

func TestRecord_Patch(t *testing.T) {
	eng, srv := newServer(t)
	ctx := context.Background()
	rec, err := eng.Record(ctx, "users", "ada")
	require.NoError(t, err)
	require.NoError(t, eng.Mutate(ctx, "users", func(context.Context) error {
		require.NoError(t, rec.Write("name", "Ada"))
		return rec.Write("role", "admin")
	}))

	var seen []string
	require.NoError(t, eng.View(func() error {
		_, err := rec.WatchAll(func(key string, _ any) { seen = append(seen, key) })
		return err
	}))
	seen = nil

	resp := do(t, "PATCH", srv.URL+"/records/ada?shard=users", `{"role": null, "email": "ada@example.com", "name": "Ada"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"name": "Ada", "email": "ada@example.com", "role": nil}, decode[map[string]any](t, resp))
	assert.Equal(t, []string{"email", "role"}, seen, "only changed keys are written")
}

func TestRecord_Errors(t *testing.T) {
	_, srv := newServer(t)

	resp := do(t, "PUT", srv.URL+"/records/ada/name?shard=users", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, "PUT", srv.URL+"/records/ada/name?shard=users", `"Ada"`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, "GET", srv.URL+"/records/ada?shard=orders", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "record is declared under another shard")

	resp = do(t, "PATCH", srv.URL+"/records/ada?shard=users", `[1, 2]`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSequence_Operations(t *testing.T) {
	_, srv := newServer(t)
	base := srv.URL + "/sequences/todo"

	resp := do(t, "POST", base+"?shard=lists", `{"value": "b"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = do(t, "POST", base+"?shard=lists", `{"offset": 0, "value": "a"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = do(t, "PUT", base+"/1?shard=lists", `"B"`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, "GET", base+"?shard=lists", "")
	assert.Equal(t, []any{"a", "B"}, decode[[]any](t, resp))

	resp = do(t, "DELETE", base+"/0?shard=lists", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, "GET", base+"?shard=lists", "")
	assert.Equal(t, []any{"B"}, decode[[]any](t, resp))

	resp = do(t, "DELETE", base+"/7?shard=lists", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp = do(t, "DELETE", base+"/x?shard=lists", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, "GET", srv.URL+"/sequences/empty", "")
	assert.Equal(t, []any{}, decode[[]any](t, resp))
}

func TestCallerHeader_Authorizes(t *testing.T) {
	eng, err := ivy.New(ivy.WithAuthorizer(callerIs("alice")))
	require.NoError(t, err)
	srv := httptest.NewServer(ivyhttp.NewHandler(eng))
	defer srv.Close()

	req, _ := http.NewRequest("PUT", srv.URL+"/records/ada/name?shard=users", bytes.NewBufferString(`"Ada"`))
	req.Header.Set("X-Caller", "mallory")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, _ = http.NewRequest("PUT", srv.URL+"/records/ada/name?shard=users", bytes.NewBufferString(`"Ada"`))
	req.Header.Set("X-Caller", "alice")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "ivy_test_total"}))
	_, srv := newServer(t, ivyhttp.WithMetrics(reg))

	resp := do(t, "GET", srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	assert.Contains(t, body.String(), "ivy_test_total")
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWatchRecord_Streams(t *testing.T) {
	_, srv := newServer(t)
	resp := do(t, "PUT", srv.URL+"/records/ada/name?shard=users", `"Ada"`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	conn := dial(t, srv, "/records/ada/watch?shard=users")

	var msg ivyhttp.FieldMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ivyhttp.FieldMessage{Key: "name", Value: "Ada"}, msg, "current fields replay first")

	resp = do(t, "PUT", srv.URL+"/records/ada/name?shard=users", `"Lovelace"`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ivyhttp.FieldMessage{Key: "name", Value: "Lovelace"}, msg)
}

func TestWatchSequence_Streams(t *testing.T) {
	_, srv := newServer(t)
	resp := do(t, "POST", srv.URL+"/sequences/todo?shard=lists", `{"value": "a"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	conn := dial(t, srv, "/sequences/todo/watch?shard=lists")

	var msg ivyhttp.EventMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ivyhttp.EventMessage{Kind: domain.EventInserted, Offset: 0, Value: "a"}, msg)

	resp = do(t, "DELETE", srv.URL+"/sequences/todo/0?shard=lists", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	var deleted ivyhttp.EventMessage
	require.NoError(t, conn.ReadJSON(&deleted))
	assert.Equal(t, ivyhttp.EventMessage{Kind: domain.EventDeleted, Offset: 0}, deleted)
}

type callerIs string

func (c callerIs) Authorize(_ context.Context, _ string, caller string) error {
	if caller == string(c) {
		return nil
	}
	return domain.ErrUnauthorized
}
