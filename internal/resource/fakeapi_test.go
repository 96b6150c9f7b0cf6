package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/jcolombo/paymo/internal/client"
	"github.com/jcolombo/paymo/internal/events"
	"github.com/jcolombo/paymo/internal/schema/schematest"
)

// fakeAPI is an in-memory stand-in for the REST API. Records are stored per
// collection path and returned under the path as envelope key.
type fakeAPI struct {
	mu      sync.Mutex
	records map[string]map[int64]map[string]any
	nextID  int64

	calls     []string
	lastQuery url.Values
	lastBody  map[string]any

	// failWith makes every request fail with this status and message.
	failStatus int
	failReason string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{records: map[string]map[int64]map[string]any{}, nextID: 100}
}

func (f *fakeAPI) seed(path string, rows ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records[path] == nil {
		f.records[path] = map[int64]map[string]any{}
	}
	for _, row := range rows {
		f.records[path][toInt64(row["id"])] = row
	}
}

func (f *fakeAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.calls = append(f.calls, req.Method+" "+req.URL.Path)
			f.lastQuery = req.URL.Query()
			f.lastBody = nil
			if req.Body != nil {
				_ = json.NewDecoder(req.Body).Decode(&f.lastBody)
			}
			status, reason := f.failStatus, f.failReason
			f.mu.Unlock()
			if status != 0 {
				writeJSON(w, status, map[string]any{"message": reason})
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/{path}", f.list)
	r.Get("/{path}/{id}", f.show)
	r.Post("/{path}", f.create)
	r.Put("/{path}/{id}", f.update)
	r.Delete("/{path}/{id}", f.remove)
	return r
}

func (f *fakeAPI) list(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.records[path]))
	for id := range f.records[path] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	rows := make([]map[string]any, len(ids))
	for i, id := range ids {
		rows[i] = f.records[path][id]
	}
	writeJSON(w, http.StatusOK, map[string]any{path: rows})
}

func (f *fakeAPI) show(w http.ResponseWriter, r *http.Request) {
	path, id := chi.URLParam(r, "path"), parseID(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.records[path][id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{path: []any{row}})
}

func (f *fakeAPI) create(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	row := map[string]any{"id": f.nextID}
	for k, v := range f.lastBody {
		row[k] = v
	}
	if f.records[path] == nil {
		f.records[path] = map[int64]map[string]any{}
	}
	f.records[path][f.nextID] = row
	writeJSON(w, http.StatusCreated, map[string]any{path: []any{row}})
}

func (f *fakeAPI) update(w http.ResponseWriter, r *http.Request) {
	path, id := chi.URLParam(r, "path"), parseID(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.records[path][id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not found"})
		return
	}
	for k, v := range f.lastBody {
		row[k] = v
	}
	writeJSON(w, http.StatusOK, map[string]any{path: []any{row}})
}

func (f *fakeAPI) remove(w http.ResponseWriter, r *http.Request) {
	path, id := chi.URLParam(r, "path"), parseID(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records[path], id)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{}`))
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	panic(fmt.Sprintf("fake api: unsupported id %T", v))
}

// newTestSession wires a session over the fixture registry and a fake API
// served through the real HTTP transport.
func newTestSession(t *testing.T, opts Options) (*Session, *fakeAPI, *events.Recorder) {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api.router())
	t.Cleanup(srv.Close)

	rec := &events.Recorder{}
	s := NewSession(schematest.New(t), client.NewHTTPClient(srv.URL, "test-key"),
		WithPublisher(rec), WithOptions(opts))
	return s, api, rec
}

// newOfflineSession wires a session whose transport fails the test if used.
func newOfflineSession(t *testing.T, opts Options) *Session {
	t.Helper()
	tr := client.TransportFunc(func(_ context.Context, req *client.Request) (*client.Response, error) {
		t.Fatalf("unexpected transport call: %s %s", req.Method, req.Path)
		return nil, nil
	})
	return NewSession(schematest.New(t), tr, WithOptions(opts))
}
