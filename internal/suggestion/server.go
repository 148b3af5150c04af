package suggestion

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/sprintly/internal/task"
	"github.com/kazz187/sprintly/pkg/cerr"
	"github.com/kazz187/sprintly/pkg/clog"
)

type Server struct {
	assistant  *Assistant
	classifier task.Classifier
}

func NewServer(assistant *Assistant, classifier task.Classifier) *Server {
	return &Server{assistant: assistant, classifier: classifier}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/suggestions", s.getSuggestions)
	r.Post("/suggestions", s.requestSuggestions)
	r.Post("/suggestions/{index}/accept", s.acceptSuggestion)
	r.Delete("/suggestions/{index}", s.discardSuggestion)
	r.Post("/classify", s.classify)
}

func (s *Server) getSuggestions(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), s.assistant.State())
}

// requestSuggestions starts a request and answers 202 with the pending
// state. With ?wait=true it blocks until the result is in.
func (s *Server) requestSuggestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		st, err := s.assistant.Suggest(ctx)
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		cerr.SetJSONResponse(ctx, st)
		return
	}
	if _, err := s.assistant.Request(ctx); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusAccepted, s.assistant.State())
}

func indexParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid suggestion index %q", raw), err)
	}
	clog.AddAttribute(r.Context(), "suggestion_index", i)
	return i, nil
}

func (s *Server) acceptSuggestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	i, err := indexParam(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.assistant.Accept(ctx, i)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	clog.AddAttribute(ctx, "task_id", t.ID)
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, t)
}

func (s *Server) discardSuggestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	i, err := indexParam(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.assistant.Discard(i); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, s.assistant.State())
}

type ClassifyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ClassifyResponse struct {
	Priority task.Priority `json:"priority"`
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "title is required", nil)
		return
	}
	cerr.SetJSONResponse(ctx, ClassifyResponse{Priority: s.classifier.ClassifyPriority(ctx, req.Title, req.Description)})
}
