package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"waterguard/internal/models"
	"waterguard/internal/repository"
	"waterguard/internal/services"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

type fakeOracle struct {
	text string
	err  error
}

func (o *fakeOracle) GenerateText(_ context.Context, _ string) (string, error) {
	return o.text, o.err
}

type testServer struct {
	app        *fiber.App
	aggregator *services.StreamAggregator
	liveJob    *services.LivePredictionJob
}

func newTestServer(oracle services.DiseaseOracle) *testServer {
	store := repository.NewReadingRepository(repository.DefaultWindowSize)
	aggregator := services.NewStreamAggregator(models.StreamModeLive, store, 0)
	evaluator := services.NewRiskEvaluator()
	ingestion := services.NewIngestionService(aggregator, false)
	prediction := services.NewPredictionService(oracle, evaluator)
	liveJob := services.NewLivePredictionJob(aggregator, prediction)

	app := fiber.New()
	NewSensorHandler(ingestion, aggregator, evaluator).Register(app)
	NewRiskHandler(aggregator, evaluator).Register(app)
	NewPredictionHandler(prediction, liveJob).Register(app)

	return &testServer{app: app, aggregator: aggregator, liveJob: liveJob}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

type messageBody struct {
	Message string                `json:"message"`
	Data    *models.SensorReading `json:"data"`
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const fullReading = `{"ph":7.1,"turbidity":2,"tds":300,"temperature":25,"conductivity":500}`

// ============================================================================
// TEST SUITE 1: SENSOR ROUTES
// ============================================================================

func TestSubmitReading_Accepted(t *testing.T) {
	srv := newTestServer(nil)

	status, raw := srv.do(t, http.MethodPost, "/api/sensor", `{"tds":300,"temperature":25}`)

	require.Equal(t, http.StatusOK, status)
	var body messageBody
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "Data received", body.Message)
	require.NotNil(t, body.Data)
	assert.Equal(t, 300.0, body.Data.TDS)
	assert.Equal(t, models.SourceDevice, body.Data.Source)
}

func TestSubmitReading_MissingTemperature(t *testing.T) {
	srv := newTestServer(nil)

	status, raw := srv.do(t, http.MethodPost, "/api/sensor", `{"tds":300}`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"message":"TDS and Temperature required"}`, string(raw))
	assert.Empty(t, srv.aggregator.Snapshot())
}

func TestSubmitReading_EmptyBody(t *testing.T) {
	srv := newTestServer(nil)

	status, raw := srv.do(t, http.MethodPost, "/api/sensor", "")

	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"message":"TDS and Temperature required"}`, string(raw))
}

func TestSubmitReading_InvalidJSON(t *testing.T) {
	srv := newTestServer(nil)

	status, raw := srv.do(t, http.MethodPost, "/api/sensor", `{"tds":`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"message":"Invalid request body"}`, string(raw))
}

func TestGetReadings_OldestFirst(t *testing.T) {
	srv := newTestServer(nil)
	srv.do(t, http.MethodPost, "/api/sensor", `{"tds":100,"temperature":20}`)
	srv.do(t, http.MethodPost, "/api/sensor", `{"tds":200,"temperature":21}`)

	status, raw := srv.do(t, http.MethodGet, "/api/sensor", "")

	require.Equal(t, http.StatusOK, status)
	var readings []models.SensorReading
	require.NoError(t, json.Unmarshal(raw, &readings))
	require.Len(t, readings, 2)
	assert.Equal(t, 100.0, readings[0].TDS)
	assert.Equal(t, 200.0, readings[1].TDS)
}

func TestGetReadings_EmptyIsArray(t *testing.T) {
	srv := newTestServer(nil)

	status, raw := srv.do(t, http.MethodGet, "/api/sensor", "")

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestGetStream(t *testing.T) {
	srv := newTestServer(nil)
	srv.do(t, http.MethodPost, "/api/sensor", `{"ph":7,"turbidity":9,"tds":1200,"temperature":31,"conductivity":900}`)

	status, raw := srv.do(t, http.MethodGet, "/api/stream", "")

	require.Equal(t, http.StatusOK, status)
	var body envelope[models.StreamView]
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.True(t, body.Success)
	assert.Equal(t, models.StreamModeLive, body.Data.Mode)
	assert.Equal(t, repository.DefaultWindowSize, body.Data.Capacity)
	require.NotNil(t, body.Data.Latest)
	assert.Equal(t, models.RiskLevelCritical, body.Data.Risk.Level)
}

func TestStreamEvents_PushesAcceptedReading(t *testing.T) {
	srv := newTestServer(nil)

	type result struct {
		resp *http.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/api/stream/events?limit=1", nil)
		resp, err := srv.app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
		done <- result{resp, err}
	}()

	require.Eventually(t, func() bool { return srv.aggregator.SubscriberCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	srv.do(t, http.MethodPost, "/api/sensor", `{"ph":7,"turbidity":9,"tds":300,"temperature":25,"conductivity":500}`)

	res := <-done
	require.NoError(t, res.err)
	defer res.resp.Body.Close()
	assert.Equal(t, http.StatusOK, res.resp.StatusCode)
	assert.Contains(t, res.resp.Header.Get("Content-Type"), "text/event-stream")

	raw, err := io.ReadAll(res.resp.Body)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, "event: reading\n")

	var dataLine string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			dataLine = strings.TrimPrefix(line, "data: ")
		}
	}
	require.NotEmpty(t, dataLine)
	var event models.StreamEvent
	require.NoError(t, json.Unmarshal([]byte(dataLine), &event))
	assert.Equal(t, 9.0, event.Reading.Turbidity)
	assert.Equal(t, models.RiskLevelHigh, event.Risk.Level)

	assert.Eventually(t, func() bool { return srv.aggregator.SubscriberCount() == 0 }, 2*time.Second, 5*time.Millisecond,
		"closed stream unsubscribes")
}

func TestStreamEvents_InvalidLimit(t *testing.T) {
	srv := newTestServer(nil)

	status, _ := srv.do(t, http.MethodGet, "/api/stream/events?limit=-1", "")

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 0, srv.aggregator.SubscriberCount())
}

// ============================================================================
// TEST SUITE 2: RISK ROUTES
// ============================================================================

func TestGetLatestRisk_UnknownWhenEmpty(t *testing.T) {
	srv := newTestServer(nil)

	status, raw := srv.do(t, http.MethodGet, "/api/risk", "")

	require.Equal(t, http.StatusOK, status)
	var body envelope[models.RiskAssessment]
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, models.RiskLevelUnknown, body.Data.Level)
	assert.Nil(t, body.Data.Score)
}

func TestEvaluateRisk(t *testing.T) {
	srv := newTestServer(nil)

	status, raw := srv.do(t, http.MethodPost, "/api/risk/evaluate", fullReading)

	require.Equal(t, http.StatusOK, status)
	var body envelope[models.RiskAssessment]
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, models.RiskLevelLow, body.Data.Level)
	require.NotNil(t, body.Data.Score)
	assert.Equal(t, 0, *body.Data.Score)
}

func TestEvaluateRisk_IncompleteReading(t *testing.T) {
	srv := newTestServer(nil)

	status, _ := srv.do(t, http.MethodPost, "/api/risk/evaluate", `{"tds":300}`)

	assert.Equal(t, http.StatusBadRequest, status)
}

// ============================================================================
// TEST SUITE 3: PREDICTION ROUTES
// ============================================================================

func TestPredict_Success(t *testing.T) {
	srv := newTestServer(&fakeOracle{text: "Sensor Data: ok\n\nPossible Diseases:\n- Cholera: diarrhoea\n"})

	status, raw := srv.do(t, http.MethodPost, "/api/predict", fullReading)

	require.Equal(t, http.StatusOK, status)
	var body envelope[models.PredictionResult]
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Contains(t, body.Data.Text, "Cholera")
	assert.Equal(t, 7.1, body.Data.Reading.PH)
}

func TestPredict_OracleFailure(t *testing.T) {
	srv := newTestServer(&fakeOracle{err: errors.New("upstream 500")})

	status, raw := srv.do(t, http.MethodPost, "/api/predict", fullReading)

	assert.Equal(t, http.StatusBadGateway, status)
	var body envelope[any]
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.False(t, body.Success)
	assert.Equal(t, "PREDICTION_FAILED", body.Error.Code)
	assert.Equal(t, MsgPredictionFailed, body.Error.Message)
	assert.NotContains(t, string(raw), "upstream 500")
}

func TestPredict_FailureLeavesStoreAndRiskUntouched(t *testing.T) {
	srv := newTestServer(&fakeOracle{err: errors.New("upstream 500")})
	srv.do(t, http.MethodPost, "/api/sensor", `{"ph":7,"turbidity":6,"tds":300,"temperature":25,"conductivity":500}`)

	_, readingsBefore := srv.do(t, http.MethodGet, "/api/sensor", "")
	_, riskBefore := srv.do(t, http.MethodGet, "/api/risk", "")

	status, _ := srv.do(t, http.MethodPost, "/api/predict", fullReading)
	require.Equal(t, http.StatusBadGateway, status)

	_, readingsAfter := srv.do(t, http.MethodGet, "/api/sensor", "")
	_, riskAfter := srv.do(t, http.MethodGet, "/api/risk", "")

	assert.JSONEq(t, string(readingsBefore), string(readingsAfter))

	var before, after envelope[models.RiskAssessment]
	require.NoError(t, json.Unmarshal(riskBefore, &before))
	require.NoError(t, json.Unmarshal(riskAfter, &after))
	assert.Equal(t, before.Data, after.Data)
	assert.Equal(t, models.RiskLevelModerate, after.Data.Level)
}

func TestGetLivePrediction(t *testing.T) {
	srv := newTestServer(&fakeOracle{text: "live text"})

	status, _ := srv.do(t, http.MethodGet, "/api/predict/live", "")
	assert.Equal(t, http.StatusNotFound, status)

	srv.do(t, http.MethodPost, "/api/sensor", `{"tds":300,"temperature":25}`)
	require.NoError(t, srv.liveJob.Run(context.Background()))

	status, raw := srv.do(t, http.MethodGet, "/api/predict/live", "")
	require.Equal(t, http.StatusOK, status)
	var body envelope[models.PredictionResult]
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "live text", body.Data.Text)
}

func TestGetLivePrediction_LastCycleFailed(t *testing.T) {
	srv := newTestServer(&fakeOracle{err: errors.New("quota")})
	srv.do(t, http.MethodPost, "/api/sensor", `{"tds":300,"temperature":25}`)
	require.Error(t, srv.liveJob.Run(context.Background()))

	status, _ := srv.do(t, http.MethodGet, "/api/predict/live", "")

	assert.Equal(t, http.StatusBadGateway, status)
}
