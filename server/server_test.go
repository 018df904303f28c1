package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/postmottak/mailroom/config"
	"github.com/postmottak/mailroom/internal/logger"
	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/repository"
)

type fakeErrorRepo struct {
	errors   []*models.ProcessingError
	resolved map[string]string
}

func (f *fakeErrorRepo) Record(ctx context.Context, perr *models.ProcessingError) (string, error) {
	f.errors = append(f.errors, perr)
	return perr.ID, nil
}

func (f *fakeErrorRepo) GetByID(ctx context.Context, id string) (*models.ProcessingError, error) {
	for _, perr := range f.errors {
		if perr.ID == id {
			return perr, nil
		}
	}
	return nil, nil
}

func (f *fakeErrorRepo) ListUnresolved(ctx context.Context) ([]*models.ProcessingError, error) {
	var out []*models.ProcessingError
	for _, perr := range f.errors {
		if !perr.Resolved {
			out = append(out, perr)
		}
	}
	return out, nil
}

func (f *fakeErrorRepo) CountUnresolved(ctx context.Context) (int64, error) {
	unresolved, _ := f.ListUnresolved(ctx)
	return int64(len(unresolved)), nil
}

func (f *fakeErrorRepo) Resolve(ctx context.Context, id, threadID string, at time.Time) error {
	if f.resolved == nil {
		f.resolved = map[string]string{}
	}
	f.resolved[id] = threadID
	return nil
}

type fakeThreadRepo struct {
	threads []*models.Thread
}

func (f *fakeThreadRepo) Create(ctx context.Context, thread *models.Thread) (string, error) {
	return thread.ID, nil
}

func (f *fakeThreadRepo) GetByID(ctx context.Context, id string) (*models.Thread, error) {
	for _, t := range f.threads {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeThreadRepo) GetActiveThreads(ctx context.Context) ([]*models.Thread, error) {
	return f.threads, nil
}

func (f *fakeThreadRepo) GetAllThreads(ctx context.Context) ([]*models.Thread, error) {
	return f.threads, nil
}

func (f *fakeThreadRepo) Update(ctx context.Context, thread *models.Thread) error { return nil }
func (f *fakeThreadRepo) MarkArchived(ctx context.Context, id string) error       { return nil }

type fakeMappingRepo struct {
	created []*models.ThreadMapping
}

func (f *fakeMappingRepo) Create(ctx context.Context, mapping *models.ThreadMapping) (string, error) {
	f.created = append(f.created, mapping)
	return "map_1", nil
}

func (f *fakeMappingRepo) GetByAddress(ctx context.Context, emailAddress string) (*models.ThreadMapping, error) {
	return nil, nil
}

func (f *fakeMappingRepo) GetAllMappings(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	for _, m := range f.created {
		out[m.EmailAddress] = m.ThreadID
	}
	return out, nil
}

func newTestServer(errs *fakeErrorRepo, threads *fakeThreadRepo, mappings *fakeMappingRepo) *Server {
	gin.SetMode(gin.TestMode)
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	log.InitLogger()

	s := &Server{
		config: &config.Config{AppConfig: &config.AppConfig{APIKey: "hemmelig"}},
		log:    log,
		router: gin.New(),
		repositories: &repository.Repositories{
			ProcessingErrorRepository: errs,
			ThreadRepository:          threads,
			ThreadMappingRepository:   mappings,
		},
	}
	s.registerRoutes()
	return s
}

func resolveRequest(s *Server, id, body, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/errors/"+id+"/resolve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-KEY", apiKey)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestResolveError_CreatesMappingAndResolves(t *testing.T) {
	errs := &fakeErrorRepo{errors: []*models.ProcessingError{
		{ID: "perr_1", Folder: "INBOX", ImapUID: 5, Addresses: []string{"kari@example.com"}},
	}}
	threads := &fakeThreadRepo{threads: []*models.Thread{{ID: "thread_a", Title: "Sak 12-2021"}}}
	mappings := &fakeMappingRepo{}
	s := newTestServer(errs, threads, mappings)

	rec := resolveRequest(s, "perr_1",
		`{"threadId":"thread_a","emailAddress":"kari@example.com"}`, "hemmelig")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, mappings.created, 1)
	require.Equal(t, "thread_a", mappings.created[0].ThreadID)
	require.Equal(t, "kari@example.com", mappings.created[0].EmailAddress)
	require.Equal(t, "thread_a", errs.resolved["perr_1"])
}

func TestResolveError_UnknownErrorID(t *testing.T) {
	s := newTestServer(&fakeErrorRepo{}, &fakeThreadRepo{}, &fakeMappingRepo{})

	rec := resolveRequest(s, "perr_missing",
		`{"threadId":"thread_a","emailAddress":"kari@example.com"}`, "hemmelig")

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveError_AlreadyResolved(t *testing.T) {
	errs := &fakeErrorRepo{errors: []*models.ProcessingError{
		{ID: "perr_1", Resolved: true},
	}}
	s := newTestServer(errs, &fakeThreadRepo{}, &fakeMappingRepo{})

	rec := resolveRequest(s, "perr_1",
		`{"threadId":"thread_a","emailAddress":"kari@example.com"}`, "hemmelig")

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestResolveError_UnknownThread(t *testing.T) {
	errs := &fakeErrorRepo{errors: []*models.ProcessingError{{ID: "perr_1"}}}
	mappings := &fakeMappingRepo{}
	s := newTestServer(errs, &fakeThreadRepo{}, mappings)

	rec := resolveRequest(s, "perr_1",
		`{"threadId":"thread_x","emailAddress":"kari@example.com"}`, "hemmelig")

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, mappings.created)
}

func TestResolveError_MissingFields(t *testing.T) {
	errs := &fakeErrorRepo{errors: []*models.ProcessingError{{ID: "perr_1"}}}
	s := newTestServer(errs, &fakeThreadRepo{}, &fakeMappingRepo{})

	rec := resolveRequest(s, "perr_1", `{"threadId":"thread_a"}`, "hemmelig")

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveError_RequiresAPIKey(t *testing.T) {
	errs := &fakeErrorRepo{errors: []*models.ProcessingError{{ID: "perr_1"}}}
	mappings := &fakeMappingRepo{}
	s := newTestServer(errs, &fakeThreadRepo{}, mappings)

	rec := resolveRequest(s, "perr_1",
		`{"threadId":"thread_a","emailAddress":"kari@example.com"}`, "feil")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, mappings.created)
}

func TestListErrors_OnlyUnresolved(t *testing.T) {
	errs := &fakeErrorRepo{errors: []*models.ProcessingError{
		{ID: "perr_1"},
		{ID: "perr_2", Resolved: true},
	}}
	s := newTestServer(errs, &fakeThreadRepo{}, &fakeMappingRepo{})

	req := httptest.NewRequest(http.MethodGet, "/errors", nil)
	req.Header.Set("X-API-KEY", "hemmelig")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "perr_1")
	require.NotContains(t, rec.Body.String(), "perr_2")
}
