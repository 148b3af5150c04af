package suggestion_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/sprintly/internal/suggestion"
	"github.com/kazz187/sprintly/internal/task"
	"github.com/kazz187/sprintly/pkg/cerr"
)

type constClassifier task.Priority

func (c constClassifier) ClassifyPriority(context.Context, string, string) task.Priority {
	return task.Priority(c)
}

func newTestRouter(t *testing.T, s suggestion.Suggester) (*suggestion.Assistant, *task.Store, http.Handler) {
	t.Helper()
	a, st := newAssistant(t, s, nil)
	r := chi.NewRouter()
	r.Use(cerr.NewResponseReceiverMiddleware())
	suggestion.NewServer(a, constClassifier(task.PriorityHigh)).Routes(r)
	return a, st, r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestServer_SuggestionFlow(t *testing.T) {
	a, st, h := newTestRouter(t, &fakeSuggester{out: twoSuggestions})

	rec := do(h, http.MethodGet, "/suggestions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pending":false,"suggestions":[]}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/suggestions?wait=true", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var state suggestion.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, twoSuggestions, state.Suggestions)

	rec = do(h, http.MethodPost, "/suggestions/0/accept", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created task.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Add tests", created.Title)
	assert.Len(t, st.Tasks(), 1)

	rec = do(h, http.MethodDelete, "/suggestions/0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, a.State().Suggestions)

	rec = do(h, http.MethodDelete, "/suggestions/0", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(h, http.MethodPost, "/suggestions/first/accept", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RequestBusy(t *testing.T) {
	f := &fakeSuggester{release: make(chan struct{})}
	_, _, h := newTestRouter(t, f)

	rec := do(h, http.MethodPost, "/suggestions", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending":true`)

	rec = do(h, http.MethodPost, "/suggestions", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"aborted"`)

	close(f.release)
}

func TestServer_Classify(t *testing.T) {
	_, _, h := newTestRouter(t, &fakeSuggester{})

	rec := do(h, http.MethodPost, "/classify", `{"title":"Fix prod outage"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"priority":"HIGH"}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/classify", `{"title":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
