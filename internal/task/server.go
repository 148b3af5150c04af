package task

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/sprintly/pkg/cerr"
	"github.com/kazz187/sprintly/pkg/clog"
)

// Classifier picks a priority for a new task. It never fails; callers get
// DefaultPriority when the classification service is unavailable.
type Classifier interface {
	ClassifyPriority(ctx context.Context, title, description string) Priority
}

// Server exposes the task intents over HTTP.
type Server struct {
	store      *Store
	classifier Classifier
}

func NewServer(store *Store, classifier Classifier) *Server {
	return &Server{store: store, classifier: classifier}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/tasks", s.listTasks)
	r.Post("/tasks", s.createTask)
	r.Post("/tasks/{id}/toggle", s.toggleTask)
	r.Delete("/tasks/{id}", s.deleteTask)
	r.Get("/stats", s.stats)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	filter, err := ParsePriorityFilter(q.Get("priority"))
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, err.Error(), nil)
		return
	}
	cerr.SetJSONResponse(ctx, Compose(s.store.Tasks(), Query{Search: q.Get("q"), Priority: filter}))
}

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	// AutoPriority asks the classifier for the priority; Priority is ignored.
	AutoPriority bool `json:"autoPriority"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	in, err := ResolveAddInput(ctx, s.classifier, req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.store.Add(ctx, in)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	clog.AddAttribute(ctx, "task_id", t.ID)
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, t)
}

// ResolveAddInput turns an add intent into store input. An empty priority
// means DefaultPriority. The title is checked before any classification call.
func ResolveAddInput(ctx context.Context, classifier Classifier, req CreateTaskRequest) (AddInput, error) {
	in := AddInput{Title: req.Title, Description: req.Description, Priority: DefaultPriority}
	if strings.TrimSpace(req.Title) == "" {
		return AddInput{}, cerr.NewError(cerr.InvalidArgument, "title is required", nil)
	}
	switch {
	case req.AutoPriority:
		if classifier != nil {
			in.Priority = classifier.ClassifyPriority(ctx, req.Title, req.Description)
		}
	case req.Priority != "":
		p, err := ParsePriority(req.Priority)
		if err != nil {
			return AddInput{}, cerr.NewError(cerr.InvalidArgument, err.Error(), nil)
		}
		in.Priority = p
	}
	return in, nil
}

type ToggleTaskResponse struct {
	Task  *Task `json:"task,omitempty"`
	Found bool  `json:"found"`
}

func (s *Server) toggleTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	clog.AddAttribute(ctx, "task_id", id)
	t, found, err := s.store.ToggleComplete(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	resp := ToggleTaskResponse{Found: found}
	if found {
		resp.Task = &t
	}
	cerr.SetJSONResponse(ctx, resp)
}

type DeleteTaskResponse struct {
	Found bool `json:"found"`
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	clog.AddAttribute(ctx, "task_id", id)
	found, err := s.store.Delete(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, DeleteTaskResponse{Found: found})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), ComputeStats(s.store.Tasks()))
}
