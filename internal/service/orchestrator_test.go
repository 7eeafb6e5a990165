package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "medsearch-service/internal/common/errors"
	"medsearch-service/internal/common/logger"
	"medsearch-service/internal/common/metrics"
	"medsearch-service/internal/history"
	"medsearch-service/internal/models"
	"medsearch-service/internal/search/websearch"
)

// ==========================
// Mocks
// ==========================

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) SearchCatalog(ctx context.Context, query string) []models.CatalogRecord {
	args := m.Called(ctx, query)
	return args.Get(0).([]models.CatalogRecord)
}

func (m *MockSearcher) SearchWeb(ctx context.Context, query string) []models.WebResult {
	args := m.Called(ctx, query)
	return args.Get(0).([]models.WebResult)
}

func (m *MockSearcher) UnifiedSearch(ctx context.Context, query string) models.UnifiedResult {
	args := m.Called(ctx, query)
	return args.Get(0).(models.UnifiedResult)
}

type stubSource struct{ available bool }

func (s stubSource) Available() bool { return s.available }

type stubWeb struct{ configured bool }

func (s stubWeb) Configured() bool { return s.configured }

func (s stubWeb) Info() websearch.Info {
	return websearch.Info{EngineID: "cse-1", Configured: s.configured, CoveredSites: []string{"tga.gov.au"}, ResultsPerSite: 5}
}

type downStore struct{ history.MemoryStore }

func (d *downStore) Ping(context.Context) error { return errors.New("connection refused") }

// ==========================
// Test Helpers
// ==========================

var fixedNow = time.Date(2024, 5, 2, 8, 30, 0, 0, time.FixedZone("AEST", 10*3600))

func newTestOrchestrator(t *testing.T, searcher Searcher, store history.Store) (*Orchestrator, *history.Ledger) {
	t.Helper()
	log := logger.NewTestLogger(t)
	ledger := history.NewLedger(store, time.Second, log)

	o := New(Deps{
		Searcher:      searcher,
		Ledger:        ledger,
		CatalogStatus: stubSource{available: true},
		Web:           stubWeb{configured: true},
		Logger:        log,
	})
	ids := 0
	o.newID = func() string {
		ids++
		return []string{"id-1", "id-2", "id-3", "id-4"}[ids-1]
	}
	o.now = func() time.Time { return fixedNow }
	return o, ledger
}

// ==========================
// Search Tests
// ==========================

func TestOrchestrator_SearchCatalogRecordsQuery(t *testing.T) {
	searcher := new(MockSearcher)
	records := []models.CatalogRecord{{Name: "Paracetamol"}}
	searcher.On("SearchCatalog", mock.Anything, "paracetamol").Return(records).Once()

	o, ledger := newTestOrchestrator(t, searcher, history.NewMemoryStore())
	before := testutil.ToFloat64(metrics.SearchRequests.WithLabelValues("catalog"))

	got, err := o.SearchCatalog(context.Background(), "paracetamol")
	require.NoError(t, err)
	assert.Equal(t, records, got)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SearchRequests.WithLabelValues("catalog")))

	recent, err := ledger.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "id-1", recent[0].ID)
	assert.Equal(t, "paracetamol", recent[0].Text)
	assert.Equal(t, models.CategoryCatalog, recent[0].Category)
	assert.Equal(t, time.UTC, recent[0].Timestamp.Location())
	assert.True(t, recent[0].Timestamp.Equal(fixedNow))
	searcher.AssertExpectations(t)
}

func TestOrchestrator_SearchDispatch(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("SearchCatalog", mock.Anything, "ibuprofen").Return([]models.CatalogRecord{}).Once()
	searcher.On("SearchWeb", mock.Anything, "ibuprofen").Return([]models.WebResult{{Title: "t"}}).Once()
	searcher.On("UnifiedSearch", mock.Anything, "ibuprofen").Return(models.UnifiedResult{QueryText: "ibuprofen"}).Once()

	o, ledger := newTestOrchestrator(t, searcher, history.NewMemoryStore())
	ctx := context.Background()

	res, err := o.Search(ctx, "ibuprofen", models.CategoryCatalog)
	require.NoError(t, err)
	assert.NotNil(t, res.Catalog)
	assert.Nil(t, res.Web)

	res, err = o.Search(ctx, "ibuprofen", models.CategoryWeb)
	require.NoError(t, err)
	assert.Len(t, res.Web, 1)

	res, err = o.Search(ctx, "ibuprofen", models.CategoryUnified)
	require.NoError(t, err)
	require.NotNil(t, res.Unified)
	assert.Equal(t, "ibuprofen", res.Unified.QueryText)

	recent, err := ledger.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	searcher.AssertExpectations(t)
}

func TestOrchestrator_SearchUnknownCategory(t *testing.T) {
	searcher := new(MockSearcher)
	o, ledger := newTestOrchestrator(t, searcher, history.NewMemoryStore())

	_, err := o.Search(context.Background(), "aspirin", models.Category("fax"))
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeInvalidSearchRequest, stdErr.Code)

	recent, _ := ledger.Recent(context.Background(), 0)
	assert.Empty(t, recent)
	searcher.AssertNotCalled(t, "SearchCatalog", mock.Anything, mock.Anything)
}

func TestOrchestrator_PanicBecomesSearchFailed(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("UnifiedSearch", mock.Anything, "x").Run(func(mock.Arguments) {
		panic("nil map write")
	}).Return(models.UnifiedResult{})

	o, _ := newTestOrchestrator(t, searcher, history.NewMemoryStore())

	_, err := o.SearchUnified(context.Background(), "x")
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeSearchFailed, stdErr.Code)
	assert.Equal(t, "Unified search failed", stdErr.Message)
	assert.Contains(t, stdErr.Unwrap().Error(), "nil map write")
}

func TestOrchestrator_HistoryWriteFailureDoesNotFailSearch(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("SearchWeb", mock.Anything, "aspirin").Return([]models.WebResult{}).Once()

	log := logger.NewTestLogger(t)
	ledger := history.NewLedger(&failingStore{}, 50*time.Millisecond, log)
	o := New(Deps{Searcher: searcher, Ledger: ledger, Web: stubWeb{}, Logger: log})

	got, err := o.SearchWeb(context.Background(), "aspirin")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

type failingStore struct{ history.MemoryStore }

func (f *failingStore) Insert(context.Context, models.Query) error {
	return errors.New("disk full")
}

// ==========================
// History / Info / Health Tests
// ==========================

func TestOrchestrator_HistoryNewestFirst(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("SearchCatalog", mock.Anything, mock.Anything).Return([]models.CatalogRecord{})

	o, _ := newTestOrchestrator(t, searcher, history.NewMemoryStore())
	tick := fixedNow
	o.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	for _, q := range []string{"first", "second", "third"} {
		_, err := o.SearchCatalog(context.Background(), q)
		require.NoError(t, err)
	}

	got, err := o.History(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "third", got[0].Text)
	assert.Equal(t, "first", got[2].Text)
}

func TestOrchestrator_WebInfo(t *testing.T) {
	o, _ := newTestOrchestrator(t, new(MockSearcher), history.NewMemoryStore())

	info := o.WebInfo()
	assert.Equal(t, "cse-1", info.EngineID)
	assert.True(t, info.Configured)
}

func TestOrchestrator_Health(t *testing.T) {
	tests := []struct {
		name       string
		store      history.Store
		catalog    bool
		web        bool
		wantStatus string
		wantSvc    map[string]string
	}{
		{
			name:       "all up",
			store:      history.NewMemoryStore(),
			catalog:    true,
			web:        true,
			wantStatus: "healthy",
			wantSvc:    map[string]string{"database": "connected", "pbs_api": "available", "google_search": "configured"},
		},
		{
			name:       "upstreams down stay healthy",
			store:      history.NewMemoryStore(),
			wantStatus: "healthy",
			wantSvc:    map[string]string{"database": "connected", "pbs_api": "degraded", "google_search": "not_configured"},
		},
		{
			name:       "database down",
			store:      &downStore{},
			catalog:    true,
			web:        true,
			wantStatus: "degraded",
			wantSvc:    map[string]string{"database": "disconnected", "pbs_api": "available", "google_search": "configured"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.NewTestLogger(t)
			o := New(Deps{
				Searcher:      new(MockSearcher),
				Ledger:        history.NewLedger(tt.store, time.Second, log),
				CatalogStatus: stubSource{available: tt.catalog},
				Web:           stubWeb{configured: tt.web},
				Logger:        log,
			})
			o.now = func() time.Time { return fixedNow }

			report := o.Health(context.Background())
			assert.Equal(t, tt.wantStatus, report.Status)
			assert.Equal(t, tt.wantSvc, report.Services)
			assert.Equal(t, time.UTC, report.Timestamp.Location())
		})
	}
}
