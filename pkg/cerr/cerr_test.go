package cerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/sprintly/pkg/clog"
	"github.com/kazz187/sprintly/pkg/storage"
)

func TestNewError_StackOnlyForErrorLevel(t *testing.T) {
	assert.Empty(t, NewError(InvalidArgument, "title is required", nil).Stack)
	assert.NotEmpty(t, NewError(Internal, "server error", nil).Stack)
}

func TestError_Format(t *testing.T) {
	base := errors.New("disk full")
	err := NewError(Internal, "server error", base)
	assert.Equal(t, "[internal] server error: disk full", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "[not_found] task not found", NewError(NotFound, "task not found", nil).Error())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, OK, CodeOf(nil))
	assert.Equal(t, Aborted, CodeOf(fmt.Errorf("wrapped: %w", NewError(Aborted, "busy", nil))))
	assert.Equal(t, DeadlineExceeded, CodeOf(context.DeadlineExceeded))
	assert.Equal(t, Unknown, CodeOf(errors.New("x")))
	assert.True(t, IsCode(NewError(NotFound, "x", nil), NotFound))
	assert.False(t, IsCode(errors.New("x"), NotFound))
}

func TestWrapStorageErrors(t *testing.T) {
	notFound := fmt.Errorf("k: %w", storage.ErrNotFound)
	assert.True(t, IsCode(WrapStorageReadError("tasks", notFound), NotFound))
	assert.True(t, IsCode(WrapStorageReadError("tasks", errors.New("io")), Internal))
	assert.True(t, IsCode(WrapStorageDeleteError("tasks", notFound), NotFound))
	assert.True(t, IsCode(WrapStorageWriteError("tasks", errors.New("io")), Internal))
	assert.True(t, IsCode(WrapStorageDecodeError("tasks", errors.New("bad json")), DataLoss))
}

func TestResponseReceiverMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantBody   string
	}{
		{
			name: "json response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetJSONResponse(r.Context(), map[string]int{"total": 4})
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"total":4}` + "\n",
		},
		{
			name: "custom status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetJSONResponseWithStatus(r.Context(), http.StatusAccepted, map[string]bool{"pending": true})
			},
			wantStatus: http.StatusAccepted,
			wantBody:   `{"pending":true}` + "\n",
		},
		{
			name: "coded error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetNewJSONError(r.Context(), InvalidArgument, "title is required", nil)
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":"invalid_argument","message":"title is required"}` + "\n",
		},
		{
			name: "foreign error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetJSONError(r.Context(), errors.New("boom"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"code":"unknown","message":"unknown error"}` + "\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewResponseReceiverMiddleware()(tt.handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestResponseReceiverMiddleware_RecordsErrorOnLogContext(t *testing.T) {
	var ctx context.Context
	h := NewResponseReceiverMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
		SetNewJSONError(r.Context(), Internal, "server error", errors.New("disk full"))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(clog.ContextWithSlog(req.Context()))
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, ctx)
	assert.ErrorContains(t, clog.GetError(ctx), "disk full")
	assert.NotEmpty(t, clog.GetStack(ctx))
}

func TestResponseReceiverMiddleware_Written(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponseReceiverMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		MarkWritten(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
