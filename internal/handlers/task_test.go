package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	dom "Tasklist/internal/domain"
	"Tasklist/internal/dto"
	"Tasklist/internal/service"
	"Tasklist/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenSlot struct{}

func (brokenSlot) Load(ctx context.Context) ([]dom.Task, error) { return []dom.Task{}, nil }
func (brokenSlot) Save(ctx context.Context, tasks []dom.Task) error {
	return errors.New("quota exceeded")
}

// failMarkedSlot fails any save whose newest task text starts with "fail".
type failMarkedSlot struct {
	*storage.MemorySlot
}

func (s failMarkedSlot) Save(ctx context.Context, tasks []dom.Task) error {
	if len(tasks) > 0 && strings.HasPrefix(tasks[0].Text, "fail") {
		return errors.New("rejected " + tasks[0].Text)
	}
	return s.MemorySlot.Save(ctx, tasks)
}

func mustCreate(t *testing.T, store *service.TaskStore, text, date string) dom.Task {
	t.Helper()
	m, err := store.Create(context.Background(), text, date)
	require.NoError(t, err)
	return m.Task
}

func setupRouter(t *testing.T, slot storage.Slot) (*gin.Engine, *service.TaskStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if slot == nil {
		slot = storage.NewMemorySlot()
	}
	store := service.NewTaskStore(context.Background(), slot, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := NewTaskHandler(store)

	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/tasks", h.List)
	api.POST("/tasks", h.Create)
	api.DELETE("/tasks", h.Clear)
	api.POST("/tasks/submit", h.Submit)
	api.GET("/tasks/:id", h.GetByID)
	api.PUT("/tasks/:id", h.Update)
	api.DELETE("/tasks/:id", h.Delete)
	api.POST("/tasks/:id/toggle", h.Toggle)
	api.POST("/tasks/:id/edit", h.BeginEdit)
	api.DELETE("/edit", h.CancelEdit)
	api.GET("/filter", h.GetFilter)
	api.PUT("/filter", h.SetFilter)
	api.GET("/counts", h.Counts)
	return r, store
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func taskPath(id dom.TaskID, suffix string) string {
	return "/api/v1/tasks/" + id.String() + suffix
}

func TestTaskHandler_CreateAndList(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := doJSON(t, r, http.MethodPost, "/api/v1/tasks", dto.TaskRequest{Text: "Buy milk", Date: "2024-01-10"})
	require.Equal(t, http.StatusCreated, w.Code)
	a := decode[dto.TaskResponse](t, w)
	assert.Equal(t, "Buy milk", a.Text)
	assert.False(t, a.Completed)
	assert.Empty(t, w.Header().Get(SaveErrorHeader))

	w = doJSON(t, r, http.MethodPost, "/api/v1/tasks", dto.TaskRequest{Text: "Pay bills", Date: "2024-01-05"})
	require.Equal(t, http.StatusCreated, w.Code)
	b := decode[dto.TaskResponse](t, w)

	w = doJSON(t, r, http.MethodGet, "/api/v1/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[dto.ListTasksResponse](t, w)
	assert.Equal(t, "all", list.Filter)
	assert.Nil(t, list.Editing)
	assert.Equal(t, dto.CountsResponse{Total: 2, Active: 2}, list.Counts)
	require.Len(t, list.Items, 2)
	assert.Equal(t, b.ID, list.Items[0].ID)
	assert.Equal(t, a.ID, list.Items[1].ID)
}

func TestTaskHandler_CreateValidation(t *testing.T) {
	r, store := setupRouter(t, nil)

	tests := []struct {
		name string
		body any
	}{
		{name: "empty text", body: dto.TaskRequest{Text: "  ", Date: "2024-01-10"}},
		{name: "empty date", body: dto.TaskRequest{Text: "Buy milk"}},
		{name: "bad date", body: dto.TaskRequest{Text: "Buy milk", Date: "2024/01/10"}},
		{name: "not json", body: "just a string"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/v1/tasks", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode[map[string]string](t, w), "error")
		})
	}
	assert.Zero(t, store.Counts().Total)
}

func TestTaskHandler_UpdateToggleDelete(t *testing.T) {
	r, store := setupRouter(t, nil)
	a := mustCreate(t, store, "Buy milk", "2024-01-10")

	w := doJSON(t, r, http.MethodPut, taskPath(a.ID, ""), dto.TaskRequest{Text: "Buy oat milk", Date: "2024-01-11"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[dto.TaskResponse](t, w)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "Buy oat milk", got.Text)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))

	w = doJSON(t, r, http.MethodPost, taskPath(a.ID, "/toggle"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dto.TaskResponse](t, w).Completed)

	w = doJSON(t, r, http.MethodGet, taskPath(a.ID, ""), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dto.TaskResponse](t, w).Completed)

	w = doJSON(t, r, http.MethodDelete, taskPath(a.ID, ""), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, store.Counts().Total)
}

func TestTaskHandler_NotFoundAndBadID(t *testing.T) {
	r, _ := setupRouter(t, nil)
	missing := dom.TaskID(999)

	tests := []struct {
		method string
		path   string
		body   any
		want   int
	}{
		{http.MethodGet, taskPath(missing, ""), nil, http.StatusNotFound},
		{http.MethodPut, taskPath(missing, ""), dto.TaskRequest{Text: "x", Date: "2024-01-10"}, http.StatusNotFound},
		{http.MethodPut, taskPath(missing, ""), dto.TaskRequest{Text: "", Date: "2024-01-10"}, http.StatusBadRequest},
		{http.MethodPost, taskPath(missing, "/toggle"), nil, http.StatusNotFound},
		{http.MethodDelete, taskPath(missing, ""), nil, http.StatusNotFound},
		{http.MethodPost, taskPath(missing, "/edit"), nil, http.StatusNotFound},
		{http.MethodGet, "/api/v1/tasks/abc", nil, http.StatusBadRequest},
		{http.MethodDelete, "/api/v1/tasks/-1", nil, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := doJSON(t, r, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestTaskHandler_EditFlow(t *testing.T) {
	r, store := setupRouter(t, nil)
	a := mustCreate(t, store, "Buy milk", "2024-01-10")
	b := mustCreate(t, store, "Pay bills", "2024-01-05")

	w := doJSON(t, r, http.MethodPost, taskPath(a.ID, "/edit"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dto.TaskResponse](t, w).Editing)

	w = doJSON(t, r, http.MethodGet, "/api/v1/tasks", nil)
	list := decode[dto.ListTasksResponse](t, w)
	require.NotNil(t, list.Editing)
	assert.Equal(t, a.ID, *list.Editing)
	assert.False(t, list.Items[0].Editing)
	assert.True(t, list.Items[1].Editing)

	w = doJSON(t, r, http.MethodPost, "/api/v1/tasks/submit", dto.TaskRequest{Text: "Buy oat milk", Date: "2024-01-11"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[dto.TaskResponse](t, w)
	assert.Equal(t, a.ID, got.ID)
	assert.False(t, got.Editing)
	assert.Equal(t, 2, store.Counts().Total)

	_, _ = store.BeginEdit(b.ID)
	w = doJSON(t, r, http.MethodDelete, "/api/v1/edit", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	_, editing := store.EditTarget()
	assert.False(t, editing)

	w = doJSON(t, r, http.MethodPost, "/api/v1/tasks/submit", dto.TaskRequest{Text: "Call mom", Date: "2024-01-12"})
	require.Equal(t, http.StatusCreated, w.Code, "submit without an edit target creates")
	assert.Equal(t, "Call mom", decode[dto.TaskResponse](t, w).Text)
	assert.Equal(t, 3, store.Counts().Total)
}

func TestTaskHandler_Filter(t *testing.T) {
	r, store := setupRouter(t, nil)
	a := mustCreate(t, store, "Buy milk", "2024-01-10")
	b := mustCreate(t, store, "Pay bills", "2024-01-05")
	_, _ = store.Toggle(context.Background(), a.ID)

	w := doJSON(t, r, http.MethodPut, "/api/v1/filter", dto.FilterRequest{Filter: "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode[dto.FilterResponse](t, w).Filter)

	w = doJSON(t, r, http.MethodGet, "/api/v1/tasks", nil)
	list := decode[dto.ListTasksResponse](t, w)
	require.Len(t, list.Items, 1)
	assert.Equal(t, a.ID, list.Items[0].ID)
	assert.Equal(t, dto.CountsResponse{Total: 2, Active: 1, Completed: 1}, list.Counts)

	w = doJSON(t, r, http.MethodGet, "/api/v1/tasks?filter=active", nil)
	list = decode[dto.ListTasksResponse](t, w)
	require.Len(t, list.Items, 1)
	assert.Equal(t, b.ID, list.Items[0].ID)
	assert.Equal(t, dom.FilterCompleted, store.Filter(), "query filter does not switch")

	w = doJSON(t, r, http.MethodGet, "/api/v1/tasks?filter=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/v1/filter", dto.FilterRequest{Filter: "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/v1/filter", nil)
	assert.Equal(t, "completed", decode[dto.FilterResponse](t, w).Filter)

	w = doJSON(t, r, http.MethodPut, "/api/v1/filter", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_ClearAndCounts(t *testing.T) {
	r, store := setupRouter(t, nil)

	w := doJSON(t, r, http.MethodDelete, "/api/v1/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[dto.ClearResponse](t, w).Removed)

	mustCreate(t, store, "a", "2024-01-01")
	mustCreate(t, store, "b", "2024-01-02")

	w = doJSON(t, r, http.MethodGet, "/api/v1/counts", nil)
	assert.Equal(t, dto.CountsResponse{Total: 2, Active: 2}, decode[dto.CountsResponse](t, w))

	w = doJSON(t, r, http.MethodDelete, "/api/v1/tasks", nil)
	assert.Equal(t, 2, decode[dto.ClearResponse](t, w).Removed)
	assert.Zero(t, store.Counts().Total)
}

func TestTaskHandler_SaveErrorHeader(t *testing.T) {
	r, store := setupRouter(t, brokenSlot{})

	w := doJSON(t, r, http.MethodPost, "/api/v1/tasks", dto.TaskRequest{Text: "Buy milk", Date: "2024-01-10"})
	require.Equal(t, http.StatusCreated, w.Code, "mutation stands even though saving failed")
	assert.Equal(t, "quota exceeded", w.Header().Get(SaveErrorHeader))
	assert.Equal(t, 1, store.Counts().Total)
}

func TestTaskHandler_SaveErrorHeaderIsPerRequest(t *testing.T) {
	r, store := setupRouter(t, failMarkedSlot{MemorySlot: storage.NewMemorySlot()})

	const n = 40
	type result struct {
		text   string
		header string
		code   int
	}
	results := make([]result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := "ok"
			if i%2 == 0 {
				text = "fail"
			}
			text += "-" + dom.TaskID(i+1).String()
			w := doJSON(t, r, http.MethodPost, "/api/v1/tasks", dto.TaskRequest{Text: text, Date: "2024-01-10"})
			results[i] = result{text: text, header: w.Header().Get(SaveErrorHeader), code: w.Code}
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		assert.Equal(t, http.StatusCreated, res.code)
		if strings.HasPrefix(res.text, "fail") {
			assert.Equal(t, "rejected "+res.text, res.header, "own failure is reported")
		} else {
			assert.Empty(t, res.header, "%s must not carry another request's failure", res.text)
		}
	}
	assert.Equal(t, n, store.Counts().Total)
}

func TestTaskHandler_TrimsPaddedInput(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := doJSON(t, r, http.MethodPost, "/api/v1/tasks", dto.TaskRequest{Text: "  Buy milk  ", Date: " 2024-01-10 "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decode[dto.TaskResponse](t, w)
	assert.Equal(t, "Buy milk", got.Text)
	assert.Equal(t, "2024-01-10", got.Date)

	long := strings.Repeat("x", 2000)
	w = doJSON(t, r, http.MethodPost, "/api/v1/tasks/submit", dto.TaskRequest{Text: long, Date: "2024-01-10"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, long, decode[dto.TaskResponse](t, w).Text)
}
