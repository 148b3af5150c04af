package preference_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/sprintly/internal/eventbus"
	"github.com/kazz187/sprintly/internal/preference"
	"github.com/kazz187/sprintly/internal/preference/repositoryimpl"
	"github.com/kazz187/sprintly/pkg/cerr"
	"github.com/kazz187/sprintly/pkg/storage"
)

func TestService_Theme(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	bus := eventbus.New()
	_, events := bus.Subscribe(4)
	svc := preference.NewService(repositoryimpl.NewStorageRepository(s), bus, preference.ThemeDark)

	assert.Equal(t, preference.ThemeDark, svc.Theme(ctx), "default when absent")

	require.NoError(t, svc.SetTheme(ctx, preference.ThemeLight))
	raw, err := s.Read(ctx, preference.ThemeKey)
	require.NoError(t, err)
	assert.Equal(t, "light", string(raw))
	assert.Equal(t, preference.ThemeLight, svc.Theme(ctx))

	ev := <-events
	assert.Equal(t, eventbus.EventTypeThemeChanged, ev.Type)
	assert.Equal(t, "light", ev.ResourceID)

	got, err := svc.ToggleTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, preference.ThemeDark, got)
	got, err = svc.ToggleTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, preference.ThemeLight, got)

	err = svc.SetTheme(ctx, "sepia")
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

func TestService_MalformedFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	require.NoError(t, s.Write(ctx, preference.ThemeKey, []byte("purple")))
	svc := preference.NewService(repositoryimpl.NewStorageRepository(s), nil, preference.ThemeLight)
	assert.Equal(t, preference.ThemeLight, svc.Theme(ctx))

	got, err := svc.ToggleTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, preference.ThemeDark, got)
}

func TestParseTheme(t *testing.T) {
	got, err := preference.ParseTheme(" Dark ")
	require.NoError(t, err)
	assert.Equal(t, preference.ThemeDark, got)
	_, err = preference.ParseTheme("auto")
	assert.Error(t, err)
}

func TestServer(t *testing.T) {
	svc := preference.NewService(repositoryimpl.NewStorageRepository(storage.NewMemoryStorage()), nil, preference.ThemeLight)
	r := chi.NewRouter()
	r.Use(cerr.NewResponseReceiverMiddleware())
	preference.NewServer(svc).Routes(r)

	call := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	assert.JSONEq(t, `{"theme":"light"}`, call(http.MethodGet, "/theme", "").Body.String())
	assert.JSONEq(t, `{"theme":"dark"}`, call(http.MethodPut, "/theme", `{"theme":"DARK"}`).Body.String())
	assert.JSONEq(t, `{"theme":"light"}`, call(http.MethodPost, "/theme/toggle", "").Body.String())
	assert.Equal(t, http.StatusBadRequest, call(http.MethodPut, "/theme", `{"theme":"blue"}`).Code)
}
