package itest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/movement-pass/public-api/internal/adapters/httpapi"
	memblob "github.com/movement-pass/public-api/internal/adapters/memory/blobstore"
	memclock "github.com/movement-pass/public-api/internal/adapters/memory/clock"
	memdocstore "github.com/movement-pass/public-api/internal/adapters/memory/docstore"
	memidempotency "github.com/movement-pass/public-api/internal/adapters/memory/idempotency"
	memparams "github.com/movement-pass/public-api/internal/adapters/memory/paramsource"
	"github.com/movement-pass/public-api/internal/app"
	"github.com/movement-pass/public-api/internal/app/identity"
	"github.com/movement-pass/public-api/internal/app/passes"
	"github.com/movement-pass/public-api/internal/app/uploads"
	"github.com/movement-pass/public-api/internal/platform/auth/tokenissuer"
	"github.com/movement-pass/public-api/internal/platform/configcache"
	"github.com/movement-pass/public-api/internal/ports/out/applicantrepo"
	idempotencyport "github.com/movement-pass/public-api/internal/ports/out/idempotency"
	"github.com/movement-pass/public-api/internal/ports/out/passrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

const root = "/movement-pass/v1"

// stores is the persistence wiring a backend provides to the harness.
type stores struct {
	applicants applicantrepo.Repository
	passes     passrepo.Repository
	idem       idempotencyport.Store
}

// openPostgres is set by the integration-tagged file; without the tag the postgres
// backend is skipped.
var openPostgres func(t *testing.T) stores

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2021, 4, 20, 9, 0, 0, 0, time.UTC))

	var st stores
	switch b {
	case backendPostgres:
		if openPostgres == nil {
			t.Skip("postgres backend requires -tags integration")
		}
		st = openPostgres(t)
	case backendMemory:
		docs := memdocstore.NewStore()
		st = stores{applicants: docs.Applicants(), passes: docs.Passes(), idem: memidempotency.NewStore()}
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	settings := configcache.New(memparams.NewUnderRoot(root, map[string]string{
		configcache.KeyApplicantsTable:       "applicants",
		configcache.KeyPassesTable:           "passes",
		configcache.KeyJWTSecret:             "itest-secret-itest-secret-itest!",
		configcache.KeyJWTExpire:             "43200",
		configcache.KeyJWTIssuer:             "movement-pass",
		configcache.KeyJWTAudience:           "public-api",
		configcache.KeyPhotoBucketName:       "itest-photos",
		configcache.KeyPhotoUploadExpiration: "300",
	}), root)
	tokens := tokenissuer.New(settings, clk)

	dispatcher := app.NewDispatcher(
		identity.NewService(st.applicants, tokens, clk),
		passes.NewService(st.passes, st.applicants, clk),
		uploads.NewService(settings, memblob.NewPresigner("")),
	)
	api := httpapi.NewServer(dispatcher, st.idem)
	api.Now = clk.Now

	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		Version:        "v1",
		AllowedOrigins: []string{"*"},
		AuthMiddleware: httpapi.NewAuthMiddleware(tokens, nil),
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method, path, token string, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Errors    []string `json:"errors"`
	RequestID string   `json:"requestId"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorMessage(t *testing.T, status int, body []byte, wantStatus int, wantMessage string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if len(got.Errors) != 1 || got.Errors[0] != wantMessage {
		t.Fatalf("errors=%q want=[%q] body=%s", got.Errors, wantMessage, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}

var mobileSeq atomic.Int64

// uniqueMobile returns a valid mobile number that will not collide in a shared database.
func uniqueMobile() string {
	n := (time.Now().UnixNano()/1000 + mobileSeq.Add(1)) % 100000000
	return fmt.Sprintf("017%08d", n)
}
