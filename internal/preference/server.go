package preference

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/sprintly/pkg/cerr"
)

type Server struct {
	service *Service
}

func NewServer(service *Service) *Server {
	return &Server{service: service}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/theme", s.getTheme)
	r.Put("/theme", s.setTheme)
	r.Post("/theme/toggle", s.toggleTheme)
}

type ThemeResponse struct {
	Theme Theme `json:"theme"`
}

func (s *Server) getTheme(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), ThemeResponse{Theme: s.service.Theme(r.Context())})
}

func (s *Server) setTheme(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ThemeResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	t, err := ParseTheme(string(req.Theme))
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, err.Error(), nil)
		return
	}
	if err := s.service.SetTheme(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, ThemeResponse{Theme: t})
}

func (s *Server) toggleTheme(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := s.service.ToggleTheme(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, ThemeResponse{Theme: t})
}
