package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"IEXCast/internal/domain/models"
	"IEXCast/internal/repository"
	"IEXCast/internal/services/ingest"
	"IEXCast/internal/services/prediction"
	"IEXCast/internal/usecase"
	"IEXCast/pkg/cache"
	xlogger "IEXCast/pkg/logger"
	"IEXCast/pkg/queue"
)

type nopMetrics struct{}

func (nopMetrics) RecordRun(string, int, float64, time.Duration) {}
func (nopMetrics) RecordCacheLookup(bool)                        {}
func (nopMetrics) RecordJob(string)                              {}
func (nopMetrics) RecordError(string)                            {}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	l := xlogger.Nop()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })

	runner := usecase.NewSimulationRunner(prediction.NewEngine(),
		repository.NewCacheResultStore(mc, time.Hour), repository.NewCacheLocker(mc), nil, nopMetrics{}, l)

	q := queue.NewLocalQueue(l, &queue.Config{Workers: 1})
	jobs := usecase.NewJobService(runner, repository.NewCacheJobStore(mc, time.Hour), repository.NewCacheLocker(mc), nil, q, nopMetrics{}, l)
	if err := q.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = q.Stop(ctx)
	})

	h := NewSimulationHandler(l, ingest.NewParser(0), runner, jobs,
		usecase.NewSourceService(nil, nil, runner, l), nil,
		Config{
			Defaults:       models.SimulationConfig{ForecastDays: 1, ConfidenceLevel: 95},
			MaxUploadBytes: 1 << 20,
			WatchInterval:  5 * time.Millisecond,
		})

	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func sampleCSV(days int) string {
	var b strings.Builder
	b.WriteString("Date,Time Block,Purchase Bid (MW),Sell Bid (MW),MCV (MW),MCP (Rs/MWh)\n")
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days*96; i++ {
		day := start.AddDate(0, 0, i/96)
		blk := i % 96
		fmt.Fprintf(&b, "%s,%02d:%02d - %02d:%02d,1000,900,800,%d\n",
			day.Format("02-01-2006"), blk/4, (blk%4)*15, (blk+1)/4, ((blk+1)%4)*15, 2500+(i%13)*100)
	}
	return b.String()
}

func uploadRequest(t *testing.T, target, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func serve(t *testing.T, e *echo.Echo, req *http.Request) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	if env.Status != rec.Code {
		t.Fatalf("envelope status %d differs from HTTP status %d", env.Status, rec.Code)
	}
	return rec.Code, env
}

func TestSimulateAndReport(t *testing.T) {
	e := newTestServer(t)

	code, env := serve(t, e, uploadRequest(t, "/api/simulations?forecast_days=2&confidence_level=90", "dam.csv", sampleCSV(2)))
	if code != http.StatusOK {
		t.Fatalf("simulate: %d %s", code, env.Data)
	}
	var sim simulationResponse
	if err := json.Unmarshal(env.Data, &sim); err != nil {
		t.Fatal(err)
	}
	if len(sim.Key) != 16 || sim.Cached {
		t.Fatalf("unexpected key/cached: %q %v", sim.Key, sim.Cached)
	}
	if len(sim.Leaderboard) != 6 || !sim.Leaderboard[0].Best {
		t.Fatalf("leaderboard = %+v", sim.Leaderboard)
	}
	if got := len(sim.Result.Forecasts); got != 2*96 {
		t.Fatalf("forecast_days from the query should apply, got %d blocks", got)
	}

	code, env = serve(t, e, httptest.NewRequest(http.MethodGet, "/api/simulations/"+sim.Key+"/report?days=1", nil))
	if code != http.StatusOK {
		t.Fatalf("report: %d %s", code, env.Data)
	}
	var dash struct {
		Leaderboard []json.RawMessage `json:"leaderboard"`
		Validation  []json.RawMessage `json:"validation"`
		Forecast    []json.RawMessage `json:"forecast"`
	}
	if err := json.Unmarshal(env.Data, &dash); err != nil {
		t.Fatal(err)
	}
	if len(dash.Leaderboard) != 6 || len(dash.Validation) != 96 || len(dash.Forecast) != 48 {
		t.Fatalf("dashboard sizes: %d %d %d", len(dash.Leaderboard), len(dash.Validation), len(dash.Forecast))
	}

	code, _ = serve(t, e, httptest.NewRequest(http.MethodGet, "/api/simulations/"+sim.Key, nil))
	if code != http.StatusOK {
		t.Fatalf("result lookup: %d", code)
	}
}

func TestSimulateErrors(t *testing.T) {
	e := newTestServer(t)

	cases := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"unsupported", uploadRequest(t, "/api/simulations", "dam.pdf", "x"), http.StatusBadRequest},
		{"no header", uploadRequest(t, "/api/simulations", "dam.csv", "a,b\n1,2\n"), http.StatusUnprocessableEntity},
		{"bad days", uploadRequest(t, "/api/simulations?forecast_days=90", "dam.csv", sampleCSV(1)), http.StatusBadRequest},
		{"no file", httptest.NewRequest(http.MethodPost, "/api/simulations", nil), http.StatusBadRequest},
		{"bad key", httptest.NewRequest(http.MethodGet, "/api/simulations/xyz/report", nil), http.StatusBadRequest},
		{"unknown key", httptest.NewRequest(http.MethodGet, "/api/simulations/0123456789abcdef/report", nil), http.StatusNotFound},
		{"bad job id", httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil), http.StatusBadRequest},
		{"unknown job", httptest.NewRequest(http.MethodGet, "/api/jobs/6f1c1d52-8f0e-4a8e-9b7e-2d5c7a1e0b11", nil), http.StatusNotFound},
	}
	for _, tc := range cases {
		if code, env := serve(t, e, tc.req); code != tc.want {
			t.Errorf("%s: status %d, want %d (%s)", tc.name, code, tc.want, env.Data)
		}
	}
}

func TestSourceDisabled(t *testing.T) {
	e := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/simulations/source",
		strings.NewReader(`{"from":"2024-04-01","to":"2024-04-02"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if code, _ := serve(t, e, req); code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", code)
	}

	bad := httptest.NewRequest(http.MethodPost, "/api/simulations/source", strings.NewReader(`{"from":"2024-04-01"}`))
	bad.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if code, _ := serve(t, e, bad); code != http.StatusBadRequest {
		t.Fatalf("missing to: status %d, want 400", code)
	}
}

func submitJob(t *testing.T, e *echo.Echo) *models.Job {
	t.Helper()
	code, env := serve(t, e, uploadRequest(t, "/api/jobs", "dam.csv", sampleCSV(1)))
	if code != http.StatusAccepted {
		t.Fatalf("submit: %d %s", code, env.Data)
	}
	var resp jobResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Job
}

func TestJobLifecycle(t *testing.T) {
	e := newTestServer(t)
	job := submitJob(t, e)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		code, env := serve(t, e, httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil))
		if code != http.StatusOK {
			t.Fatalf("get job: %d", code)
		}
		var resp jobResponse
		if err := json.Unmarshal(env.Data, &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Job.State == models.JobDone {
			if resp.Result == nil || resp.Result.DataCharacteristics.DataLength != 96 {
				t.Fatalf("done job should carry its result")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job did not finish")
}

func TestWatchJob(t *testing.T) {
	e := newTestServer(t)
	srv := httptest.NewServer(e)
	defer srv.Close()

	job := submitJob(t, e)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/jobs/" + job.ID + "/watch"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var last models.Job
	for {
		var j models.Job
		if err := conn.ReadJSON(&j); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("read: %v", err)
			}
			break
		}
		last = j
	}
	if last.ID != job.ID || last.State != models.JobDone {
		t.Fatalf("last update = %+v", last)
	}
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	if code, _ := serve(t, e, httptest.NewRequest(http.MethodGet, "/healthz", nil)); code != http.StatusOK {
		t.Fatalf("healthz status %d", code)
	}
}
