package web

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrCreosote/contigfilter/internal/assembly"
	"github.com/MrCreosote/contigfilter/internal/db"
	"github.com/MrCreosote/contigfilter/internal/gateway"
	"github.com/MrCreosote/contigfilter/internal/ops"
)

func setupTest(t *testing.T) (http.Handler, *gateway.LocalStore) {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	store := gateway.NewLocalStore(database, tmpDir)

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		t.Fatalf("static sub-FS: %v", err)
	}

	h := &Handlers{
		store:    store,
		build:    ops.BuildInfo{Version: "test", GitURL: "https://example.org/contigfilter", GitCommit: "abc"},
		renderer: NewRenderer(templateSub, "test", nil),
	}
	return h.routes(staticSub), store
}

// seedReport publishes a report and returns its reference.
func seedReport(t *testing.T, store *gateway.LocalStore, text string) gateway.ReportInfo {
	t.Helper()
	info, err := store.Publish(context.Background(), gateway.Identity{}, "ws", text,
		assembly.ObjectRef{Ref: "ws/ASSEMBLY/1", Description: "Filtered contigs"})
	if err != nil {
		t.Fatalf("seed report: %v", err)
	}
	return info
}

func get(t *testing.T, handler http.Handler, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRootRedirects(t *testing.T) {
	handler, _ := setupTest(t)
	w := get(t, handler, "/", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/reports" {
		t.Errorf("Location = %q, want /reports", loc)
	}
}

func TestHandleStatus(t *testing.T) {
	handler, _ := setupTest(t)
	w := get(t, handler, "/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["state"] != "OK" || got["git_commit_hash"] != "abc" || got["version"] != "test" {
		t.Errorf("unexpected status body: %v", got)
	}
}

func TestHandleReports_List(t *testing.T) {
	handler, store := setupTest(t)
	seedReport(t, store, "Filtered assembly to 3 contigs out of 5")
	seedReport(t, store, "Filtered assembly to 0 contigs out of 2")

	w := get(t, handler, "/reports", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Filtered assembly to 3 contigs out of 5", "Filtered assembly to 0 contigs out of 2", "2 reports"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHandleReports_Empty(t *testing.T) {
	handler, _ := setupTest(t)
	w := get(t, handler, "/reports", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "No reports yet") {
		t.Error("expected empty state message")
	}
}

func TestHandleReports_JSON(t *testing.T) {
	handler, store := setupTest(t)
	for i := 0; i < 3; i++ {
		seedReport(t, store, "text")
	}

	w := get(t, handler, "/reports?limit=2", map[string]string{"Accept": "application/json"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got ops.ListReportsOutput
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Items) != 2 || got.Pagination.Total != 3 || !got.Pagination.HasMore {
		t.Errorf("unexpected page: items=%d pagination=%+v", len(got.Items), got.Pagination)
	}
}

func TestHandleReports_InvalidLimitFallsBack(t *testing.T) {
	handler, _ := setupTest(t)
	w := get(t, handler, "/reports?limit=abc", map[string]string{"Accept": "application/json"})
	var got ops.ListReportsOutput
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Pagination.Limit != ops.DefaultListLimit {
		t.Errorf("Limit = %d, want %d", got.Pagination.Limit, ops.DefaultListLimit)
	}
}

func TestHandleReport_Found(t *testing.T) {
	handler, store := setupTest(t)
	info := seedReport(t, store, "Filtered assembly to 3 contigs out of 5")

	w := get(t, handler, "/reports/"+info.Ref, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, "<h1>"+info.Name+"</h1>") {
		t.Error("expected report name rendered as a markdown heading")
	}
	if !strings.Contains(body, "<table>") || !strings.Contains(body, "<code>ws/ASSEMBLY/1</code>") {
		t.Error("expected objects table with the created reference")
	}
	if !strings.Contains(body, "Filtered contigs") {
		t.Error("expected object description")
	}
}

func TestHandleReport_JSON(t *testing.T) {
	handler, store := setupTest(t)
	info := seedReport(t, store, "summary")

	w := get(t, handler, "/reports/"+info.Ref, map[string]string{"Accept": "application/json"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got assembly.Report
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Ref != info.Ref || got.TextMessage != "summary" || len(got.ObjectsCreated) != 1 {
		t.Errorf("unexpected report: %+v", got)
	}
}

func TestHandleReport_NotFound(t *testing.T) {
	handler, _ := setupTest(t)

	w := get(t, handler, "/reports/ws/01ARZ3NDEKTSV4RRFFQ69G5FAV/1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Error 404") {
		t.Error("expected error page")
	}
}

func TestHandleReport_NotFound_JSON(t *testing.T) {
	handler, _ := setupTest(t)

	w := get(t, handler, "/reports/not-a-ref", map[string]string{"Accept": "application/json"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var payload map[string]map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["error"]["code"] != "NOT_FOUND" {
		t.Errorf("code = %v, want NOT_FOUND", payload["error"]["code"])
	}
}

func TestReportMarkdownEscapesHTML(t *testing.T) {
	handler, store := setupTest(t)
	info := seedReport(t, store, `<script>alert("x")</script>`)

	w := get(t, handler, "/reports/"+info.Ref, nil)
	if strings.Contains(w.Body.String(), "<script>") {
		t.Error("raw HTML in the report text must not be rendered")
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler, _ := setupTest(t)
	w := get(t, handler, "/status", nil)
	for _, h := range []string{"Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options"} {
		if w.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

func TestStaticFiles(t *testing.T) {
	handler, _ := setupTest(t)
	w := get(t, handler, "/static/style.css", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=abc", 20},
		{"limit=-1", -1},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/reports?"+tt.query, nil)
		if got := parseIntParam(req, "limit", 20); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
