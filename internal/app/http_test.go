package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"threadview/api/internal/auth"
	"threadview/api/internal/thread"
)

func serve(t *testing.T, svc *Service, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	NewHTTPServer(svc, "*").Handler().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestMessageEndpoint(t *testing.T) {
	svc := newTestService(newFixture(), &fakeOracle{status: thread.NotInServer}, &fakeSearch{})
	rr := serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/m/m4", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id")
	}
	body := decode(t, rr)
	blocks := body["blocks"].([]any)
	if len(blocks) != 3 {
		t.Fatalf("blocks=%d, want 3", len(blocks))
	}
	placeholder := blocks[1].(map[string]any)
	if placeholder["hiddenCount"] != float64(2) || placeholder["content"] != "" {
		t.Fatalf("placeholder=%v", placeholder)
	}
	if body["solutionId"] != "m4" {
		t.Fatalf("solutionId=%v", body["solutionId"])
	}
	related := body["relatedPosts"].([]any)
	if len(related) != 1 {
		t.Fatalf("relatedPosts=%v", related)
	}
}

func TestMessageEndpointUsesViewerToken(t *testing.T) {
	oracle := &fakeOracle{status: thread.InServer}
	svc := newTestService(newFixture(), oracle, nil)
	token, err := auth.IssueToken([]byte(svc.cfg.ViewerSecret), auth.Claims{Sub: "42", Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/m/t1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := serve(t, svc, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if body["membership"] != "in_server" || oracle.calls != 1 {
		t.Fatalf("membership=%v calls=%d", body["membership"], oracle.calls)
	}
}

func TestMessageEndpointBadTokenIsAnonymous(t *testing.T) {
	oracle := &fakeOracle{status: thread.InServer}
	svc := newTestService(newFixture(), oracle, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/m/t1", nil)
	req.Header.Set("Authorization", "Bearer forged.token")
	rr := serve(t, svc, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if body := decode(t, rr); body["membership"] != "unknown" || oracle.calls != 0 {
		t.Fatalf("membership=%v calls=%d", body["membership"], oracle.calls)
	}
}

func TestMessageEndpointNotFound(t *testing.T) {
	svc := newTestService(newFixture(), nil, nil)
	rr := serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/m/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
	if body := decode(t, rr); body["code"] != "NOT_FOUND" {
		t.Fatalf("code=%v", body["code"])
	}
}

func TestMessageEndpointEmptyThread(t *testing.T) {
	fs := newFixture()
	fs.threadMessages["t1"] = nil
	svc := newTestService(fs, nil, nil)

	rr := serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/m/t1", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
	if body := decode(t, rr); body["code"] != "THREAD_EMPTY" {
		t.Fatalf("code=%v", body["code"])
	}
}

func TestMessageQAEndpoint(t *testing.T) {
	svc := newTestService(newFixture(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/m/t1/qa", nil)
	req.Host = "help.tenant.dev"
	rr := serve(t, svc, req)

	// t1 belongs to s1, not to the tenant serving this host.
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}

	rr = serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/m/t1/qa", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/ld+json" {
		t.Fatalf("content-type=%q", ct)
	}
	body := decode(t, rr)
	if body["@type"] != "QAPage" {
		t.Fatalf("@type=%v", body["@type"])
	}
}

func TestCommunityEndpoints(t *testing.T) {
	svc := newTestService(newFixture(), nil, nil)

	rr := serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/c/s1/c1?page=abc", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	pagination := body["pagination"].(map[string]any)
	if pagination["page"] != float64(0) {
		t.Fatalf("page=%v", pagination["page"])
	}

	rr = serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/c/s1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	channel := decode(t, rr)["channel"].(map[string]any)
	if channel["id"] != "c1" {
		t.Fatalf("default channel=%v", channel["id"])
	}

	req := httptest.NewRequest(http.MethodGet, "/api/c/c2", nil)
	req.Host = "help.tenant.dev"
	rr = serve(t, svc, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("tenant status=%d body=%s", rr.Code, rr.Body.String())
	}
	body = decode(t, rr)
	if body["server"].(map[string]any)["id"] != "s2" || body["adsEnabled"] != false {
		t.Fatalf("tenant payload=%v", body)
	}
	channels := body["channels"].([]any)
	if href := channels[0].(map[string]any)["href"]; href != "/c/c2" {
		t.Fatalf("tenant channel href=%v", href)
	}
}

func TestSearchEndpoint(t *testing.T) {
	fsearch := &fakeSearch{}
	svc := newTestService(newFixture(), nil, fsearch)

	rr := serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/search?q=deploy&serverId=s1&page=1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := decode(t, rr)
	if body["query"] != "deploy" || body["total"] != float64(100) {
		t.Fatalf("body=%v", body)
	}
	next := body["pagination"].(map[string]any)["next"].(map[string]any)
	if next["href"] != "/search?q=deploy&s=s1&page=2" {
		t.Fatalf("next=%v", next)
	}
}

func TestUnknownRoute(t *testing.T) {
	svc := newTestService(newFixture(), nil, nil)
	rr := serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}

	rr = serve(t, svc, httptest.NewRequest(http.MethodPost, "/api/m/t1", strings.NewReader("{}")))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	svc := newTestService(newFixture(), nil, nil)
	serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	rr := serve(t, svc, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "threadview_http_requests_total") {
		t.Fatal("request counter missing from exposition")
	}
}
