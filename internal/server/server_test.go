package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"vpc-visualizer/internal/cache"
	"vpc-visualizer/internal/codec"
	vverrors "vpc-visualizer/internal/errors"
	"vpc-visualizer/internal/metrics"
	"vpc-visualizer/internal/parser"
)

const fixture = "../parser/testdata/security_groups.json"

type fakeSource struct {
	groups []parser.SecurityGroup
	err    error
	calls  int
}

func (f *fakeSource) SecurityGroups(ctx context.Context) ([]parser.SecurityGroup, error) {
	f.calls++
	return f.groups, f.err
}

func (f *fakeSource) Region() string { return "eu-west-1" }

func (f *fakeSource) AccountIDs() []string { return []string{"111111111111"} }

func fixtureBody(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(fixture)
	require.NoError(t, err)
	return data
}

func fixtureSource(t *testing.T) *fakeSource {
	t.Helper()
	groups, err := parser.ParseFromData(fixtureBody(t))
	require.NoError(t, err)
	return &fakeSource{groups: groups}
}

func newTestServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return New(opts)
}

func do(s *Server, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func messages(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var resp messagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Messages
}

func TestHealth(t *testing.T) {
	rec := do(newTestServer(Options{}), http.MethodGet, "/healthz", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err, "a request id is assigned")
}

func TestRequestIDIsKept(t *testing.T) {
	id := uuid.NewString()
	rec := do(newTestServer(Options{}), http.MethodGet, "/healthz", nil, map[string]string{RequestIDHeader: id})
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))

	rec = do(newTestServer(Options{}), http.MethodGet, "/healthz", nil, map[string]string{RequestIDHeader: "<script>"})
	assert.NotEqual(t, "<script>", rec.Header().Get(RequestIDHeader))
}

func TestPostGraph(t *testing.T) {
	rec := do(newTestServer(Options{}), http.MethodPost, "/api/v1/graph", fixtureBody(t), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	g, err := codec.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 6)
	assert.Len(t, g.Edges, 5)
}

func TestPostGraphFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"invalid json", `{"SecurityGroups": [`, "failed to unmarshal security groups JSON"},
		{"missing target arrays", `[{"GroupId": "sg-1", "IpPermissions": [{"IpProtocol": "tcp"}], "IpPermissionsEgress": []}]`, "missing required fields"},
		{
			"rule without target",
			`[{"GroupId": "sg-1", "IpPermissions": [{"IpProtocol": "tcp", "IpRanges": [], "Ipv6Ranges": [], "UserIdGroupPairs": [], "PrefixListIds": []}], "IpPermissionsEgress": []}]`,
			"no traffic-target specified",
		},
		{
			"ambiguous rule",
			`[{"GroupId": "sg-1", "IpPermissions": [], "IpPermissionsEgress": [{"IpProtocol": "-1", "IpRanges": [{"CidrIp": "10.0.0.0/8"}], "Ipv6Ranges": [], "UserIdGroupPairs": [{"GroupId": "sg-2"}], "PrefixListIds": []}]}]`,
			"ambiguous traffic target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newTestServer(Options{}), http.MethodPost, "/api/v1/graph", []byte(tt.body), nil)
			require.Equal(t, http.StatusInternalServerError, rec.Code)

			msgs := messages(t, rec)
			require.Len(t, msgs, 1)
			assert.Contains(t, msgs[0], tt.message)
		})
	}
}

func TestPostGraphBodyLimit(t *testing.T) {
	s := newTestServer(Options{MaxBodyBytes: 16})
	rec := do(s, http.MethodPost, "/api/v1/graph", fixtureBody(t), nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, messages(t, rec)[0], "exceeds 16 bytes")
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(newTestServer(Options{}), http.MethodPut, "/api/v1/graph", nil, nil)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, []string{"method PUT is not allowed on /api/v1/graph"}, messages(t, rec))
}

func TestNotFound(t *testing.T) {
	rec := do(newTestServer(Options{}), http.MethodGet, "/api/v2/graph", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, messages(t, rec))
}

func TestPreflight(t *testing.T) {
	rec := do(newTestServer(Options{APIToken: "secret"}), http.MethodOptions, "/api/v1/graph", nil, map[string]string{
		"Origin":                        "https://example.com",
		"Access-Control-Request-Method": "POST",
	})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(Options{APIToken: "secret"})

	rec := do(s, http.MethodPost, "/api/v1/graph", fixtureBody(t), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, []string{"missing or invalid bearer token"}, messages(t, rec))
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = do(s, http.MethodPost, "/api/v1/graph", fixtureBody(t), map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(s, http.MethodPost, "/api/v1/graph", fixtureBody(t), map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(s, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health checks stay open")
}

func TestSecurityGroupsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCache(context.Background(), cache.RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr())})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	src := fixtureSource(t)
	reg := metrics.NewRegistry()
	s := newTestServer(Options{Source: src, Cache: c, Metrics: reg, CacheTTL: time.Minute})

	first := do(s, http.MethodGet, "/api/v1/security-groups", nil, nil)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := do(s, http.MethodGet, "/api/v1/security-groups", nil, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	assert.Equal(t, 1, src.calls, "the second request is served from the cache")

	key := cache.GraphKey("eu-west-1", []string{"111111111111"})
	assert.Equal(t, time.Minute, mr.TTL(key))

	g, err := codec.Decode(second.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 6)
}

func TestSecurityGroupsWithoutCache(t *testing.T) {
	src := fixtureSource(t)
	s := newTestServer(Options{Source: src})

	do(s, http.MethodGet, "/api/v1/security-groups", nil, nil)
	do(s, http.MethodGet, "/api/v1/security-groups", nil, nil)
	assert.Equal(t, 2, src.calls)
}

func TestSecurityGroupsFetchError(t *testing.T) {
	src := &fakeSource{err: vverrors.New(vverrors.KindFetch, "failed to describe security groups in account 111111111111")}
	rec := do(newTestServer(Options{Source: src}), http.MethodGet, "/api/v1/security-groups", nil, nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, []string{"failed to describe security groups in account 111111111111"}, messages(t, rec))
}

func TestSecurityGroupsWithoutSource(t *testing.T) {
	rec := do(newTestServer(Options{}), http.MethodGet, "/api/v1/security-groups", nil, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, []string{"live fetching is not configured"}, messages(t, rec))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(Options{})
	do(s, http.MethodPost, "/api/v1/graph", fixtureBody(t), nil)
	do(s, http.MethodGet, "/nowhere", nil, nil)

	rec := do(s, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `vpcviz_http_requests_total{method="POST",path="/api/v1/graph",status="200"} 1`)
	assert.Contains(t, body, `vpcviz_http_requests_total{method="GET",path="unmatched",status="404"} 1`)
	assert.Contains(t, body, `vpcviz_graph_builds_total{status="success"} 1`)
}

func TestSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	s := newTestServer(Options{Tracer: tp.Tracer("test")})
	do(s, http.MethodPost, "/api/v1/graph", fixtureBody(t), nil)
	do(s, http.MethodPost, "/api/v1/graph", []byte(`[`), nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "POST /api/v1/graph", spans[0].Name())
	attrs := map[string]int64{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInt64()
	}
	assert.Equal(t, int64(6), attrs["vpcviz.nodes"])
	assert.Equal(t, int64(5), attrs["vpcviz.edges"])

	assert.Equal(t, "DECODE_ERROR", spans[1].Status().Description)
	assert.NotEmpty(t, spans[1].Events(), "the error is recorded on the span")
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- newTestServer(Options{}).ListenAndServe(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenAndServeBadAddress(t *testing.T) {
	err := newTestServer(Options{}).ListenAndServe(context.Background(), "256.0.0.1:http")
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "shut down"))
}
