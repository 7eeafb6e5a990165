package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpclient "medsearch-service/internal/common/http"
	"medsearch-service/internal/common/logger"
	"medsearch-service/internal/models"
)

// ==========================
// Test Helpers
// ==========================

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) SourceDegraded(_ context.Context, source, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, source+":"+reason)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type fakePBS struct {
	schedules  string
	items      string
	status     int
	delay      time.Duration
	calls      atomic.Int32
	lastSearch atomic.Value
}

func (f *fakePBS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/schedules"):
		_, _ = w.Write([]byte(f.schedules))
	case strings.HasSuffix(r.URL.Path, "/amt-items"):
		f.lastSearch.Store(r.URL.Query().Encode())
		_, _ = w.Write([]byte(f.items))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) (*Client, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	c := NewClient(Config{BaseURL: baseURL, Timeout: timeout}, httpclient.NewClient(timeout), notifier, logger.NewTestLogger(t))
	return c, notifier
}

func item(name, generic string) string {
	return fmt.Sprintf(`{"pbs_code":"%s-code","medicine_name":%q,"generic_name":%q}`, name, name, generic)
}

// ==========================
// Live Path
// ==========================

func TestClient_Search_LiveResults(t *testing.T) {
	pbs := &fakePBS{
		schedules: `{"results":[{"schedule_code":"2024-06"}]}`,
		items: `{"results":[
			{"pbs_code":"2622B","medicine_name":"Paracetamol 500 mg tablet","generic_name":"paracetamol",
			 "active_ingredient":"paracetamol","manufacturer":"","atc_code":"N02BE01",
			 "form_and_strength":"500 mg","prescriber_type":"Medical Practitioners","ddd_amount":3,
			 "restrictions":["Unrestricted"]},
			{"pbs_code":"9999Z","medicine_name":"Ibuprofen 200 mg","generic_name":"ibuprofen"}
		]}`,
	}
	server := httptest.NewServer(pbs)
	defer server.Close()

	c, notifier := newTestClient(t, server.URL, time.Second)
	records := c.Search(context.Background(), "  PARACETAMOL ")

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "2622B", models.StringValue(rec.Code))
	assert.Equal(t, "Paracetamol 500 mg tablet", rec.Name)
	assert.Equal(t, "N02BE01", models.StringValue(rec.ClassificationCode))
	assert.Equal(t, "500 mg", models.StringValue(rec.StrengthForm))
	assert.Equal(t, "3", models.StringValue(rec.DDDAmount))
	assert.Equal(t, []string{"Unrestricted"}, rec.Restrictions)
	require.NotNil(t, rec.Manufacturer, "known-empty stays present")
	assert.Equal(t, "", *rec.Manufacturer)

	assert.Contains(t, pbs.lastSearch.Load().(string), "search=paracetamol")
	assert.Contains(t, pbs.lastSearch.Load().(string), "schedule_code=2024-06")
	assert.Contains(t, pbs.lastSearch.Load().(string), "limit=50")
	assert.Empty(t, notifier.Events())
}

func TestClient_Search_NumericScheduleCode(t *testing.T) {
	pbs := &fakePBS{
		schedules: `{"results":[{"schedule_code":3781}]}`,
		items:     `{"results":[` + item("Aspirin 100 mg", "aspirin") + `]}`,
	}
	server := httptest.NewServer(pbs)
	defer server.Close()

	c, _ := newTestClient(t, server.URL, time.Second)
	records := c.Search(context.Background(), "aspirin")

	require.Len(t, records, 1)
	assert.Equal(t, "Aspirin 100 mg", records[0].Name)
	assert.Contains(t, pbs.lastSearch.Load().(string), "schedule_code=3781")
}

type debugRecorder struct {
	mu     sync.Mutex
	fields []map[string]interface{}
}

func (r *debugRecorder) Debug(_ string, fields map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields = append(r.fields, fields)
}
func (r *debugRecorder) Info(string, map[string]interface{}) {}
func (r *debugRecorder) Warn(string, map[string]interface{}) {}

func TestClient_Search_LogsFirstCode(t *testing.T) {
	pbs := &fakePBS{
		schedules: `{"results":[{"schedule_code":"2024-06"}]}`,
		items:     `{"results":[` + item("Aspirin 100 mg", "aspirin") + `]}`,
	}
	server := httptest.NewServer(pbs)
	defer server.Close()

	rec := &debugRecorder{}
	c := NewClient(Config{BaseURL: server.URL, Timeout: time.Second}, httpclient.NewClient(time.Second), &recordingNotifier{}, rec)
	c.Search(context.Background(), "aspirin")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.fields, 1)
	assert.Equal(t, "Aspirin 100 mg-code", rec.fields[0]["first_code"])
	assert.Equal(t, 1, rec.fields[0]["results"])
}

func TestClient_Search_TruncatesToMaxResults(t *testing.T) {
	items := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		items = append(items, item(fmt.Sprintf("Insulin %d", i), "insulin"))
	}
	pbs := &fakePBS{
		schedules: `{"results":[{"schedule_code":"S1"}]}`,
		items:     `{"results":[` + strings.Join(items, ",") + `]}`,
	}
	server := httptest.NewServer(pbs)
	defer server.Close()

	c, _ := newTestClient(t, server.URL, time.Second)
	records := c.Search(context.Background(), "insulin")

	require.Len(t, records, 10)
	assert.Equal(t, "Insulin 0", records[0].Name)
	assert.Equal(t, "Insulin 9", records[9].Name)
}

func TestClient_Search_NameFallsBackToGenericName(t *testing.T) {
	pbs := &fakePBS{
		schedules: `{"results":[{"schedule_code":"S1"}]}`,
		items:     `{"results":[{"medicine_name":null,"generic_name":"Metformin","pbs_code":null}]}`,
	}
	server := httptest.NewServer(pbs)
	defer server.Close()

	c, _ := newTestClient(t, server.URL, time.Second)
	records := c.Search(context.Background(), "metformin")

	require.Len(t, records, 1)
	assert.Equal(t, "Metformin", records[0].Name)
	assert.Nil(t, records[0].Code, "null upstream field is absent")
	assert.Nil(t, records[0].ActiveIngredient, "missing upstream field is absent")
}

// ==========================
// Fallback Scenarios
// ==========================

func TestClient_Search_FallbackScenarios(t *testing.T) {
	tests := []struct {
		name       string
		pbs        *fakePBS
		query      string
		wantCode   string
		wantName   string
		wantNotify []string
		timeout    time.Duration
	}{
		{
			name:       "upstream down returns paracetamol seed",
			pbs:        &fakePBS{status: http.StatusServiceUnavailable},
			query:      "paracetamol",
			wantCode:   "1234A",
			wantName:   "Paracetamol 500mg Tablets",
			wantNotify: []string{"pbs:upstream_status"},
		},
		{
			name:       "zero schedules",
			pbs:        &fakePBS{schedules: `{"results":[]}`},
			query:      "aspirin",
			wantCode:   "5678B",
			wantName:   "Aspirin 100mg Tablets",
			wantNotify: []string{"pbs:no_schedule"},
		},
		{
			name:     "no matching items",
			pbs:      &fakePBS{schedules: `{"results":[{"schedule_code":"S1"}]}`, items: `{"results":[` + item("Ibuprofen", "ibuprofen") + `]}`},
			query:    "insulin glargine",
			wantCode: "9012C",
			wantName: "Insulin Human Injection",
		},
		{
			name:       "malformed payload",
			pbs:        &fakePBS{schedules: `{"results":`},
			query:      "zzz-unknown",
			wantCode:   "DEMO",
			wantName:   "zzz-unknown (Demo Result)",
			wantNotify: []string{"pbs:decode"},
		},
		{
			name:       "timeout",
			pbs:        &fakePBS{delay: 200 * time.Millisecond, schedules: `{"results":[{"schedule_code":"S1"}]}`},
			query:      "paracetamol",
			timeout:    30 * time.Millisecond,
			wantCode:   "1234A",
			wantName:   "Paracetamol 500mg Tablets",
			wantNotify: []string{"pbs:timeout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.pbs)
			defer server.Close()

			timeout := tt.timeout
			if timeout == 0 {
				timeout = time.Second
			}
			c, notifier := newTestClient(t, server.URL, timeout)
			records := c.Search(context.Background(), tt.query)

			require.Len(t, records, 1)
			assert.Equal(t, tt.wantCode, models.StringValue(records[0].Code))
			assert.Equal(t, tt.wantName, records[0].Name)
			assert.Equal(t, tt.wantNotify, nilIfEmpty(notifier.Events()))
		})
	}
}

func TestClient_Search_EmptyQuerySkipsUpstream(t *testing.T) {
	pbs := &fakePBS{schedules: `{"results":[{"schedule_code":"S1"}]}`}
	server := httptest.NewServer(pbs)
	defer server.Close()

	c, _ := newTestClient(t, server.URL, time.Second)
	records := c.Search(context.Background(), "")

	require.Len(t, records, 1)
	assert.Equal(t, "DEMO", models.StringValue(records[0].Code))
	assert.Equal(t, " (Demo Result)", records[0].Name)
	assert.Zero(t, pbs.calls.Load())
}

func TestClient_Search_DeterministicFallback(t *testing.T) {
	server := httptest.NewServer(&fakePBS{status: http.StatusBadGateway})
	defer server.Close()

	c, _ := newTestClient(t, server.URL, time.Second)
	first := c.Search(context.Background(), "warfarin")
	second := c.Search(context.Background(), "warfarin")

	assert.Equal(t, first, second)
}

func TestClient_Search_IgnoresCallerCancellation(t *testing.T) {
	pbs := &fakePBS{
		delay:     20 * time.Millisecond,
		schedules: `{"results":[{"schedule_code":"S1"}]}`,
		items:     `{"results":[` + item("Aspirin EC", "aspirin") + `]}`,
	}
	server := httptest.NewServer(pbs)
	defer server.Close()

	c, _ := newTestClient(t, server.URL, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := c.Search(ctx, "aspirin")
	require.Len(t, records, 1)
	assert.Equal(t, "Aspirin EC", records[0].Name)
}

func TestClient_Search_AlwaysNonEmptyNames(t *testing.T) {
	server := httptest.NewServer(&fakePBS{status: http.StatusInternalServerError})
	defer server.Close()

	c, _ := newTestClient(t, server.URL, time.Second)
	for _, q := range []string{"", " ", "paracetamol", "ASPIRIN", "ins", "unknown drug", "💊"} {
		records := c.Search(context.Background(), q)
		require.NotEmpty(t, records, q)
		for _, r := range records {
			assert.NotEmpty(t, r.Name, q)
		}
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
