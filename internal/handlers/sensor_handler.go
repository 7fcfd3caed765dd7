package handlers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"waterguard/internal/models"
	"waterguard/internal/services"
	"waterguard/internal/utils"

	"github.com/gofiber/fiber/v3"
)

const MsgInvalidRequestBody = "Invalid request body"

const (
	streamEventBuffer = 16
	keepAliveInterval = 15 * time.Second
)

type SensorHandler struct {
	ingestionService *services.IngestionService
	aggregator       *services.StreamAggregator
	evaluator        services.RiskEvaluator
}

func NewSensorHandler(ingestionService *services.IngestionService, aggregator *services.StreamAggregator, evaluator services.RiskEvaluator) *SensorHandler {
	return &SensorHandler{
		ingestionService: ingestionService,
		aggregator:       aggregator,
		evaluator:        evaluator,
	}
}

func (h *SensorHandler) Register(app *fiber.App) {
	api := app.Group("/api")

	api.Post("/sensor", h.SubmitReading) // POST /api/sensor - device ingestion
	api.Get("/sensor", h.GetReadings)    // GET  /api/sensor - rolling window, oldest first
	api.Get("/stream", h.GetStream)      // GET  /api/stream - chart view with latest risk

	api.Get("/stream/events", h.StreamEvents) // GET  /api/stream/events - server-sent reading events
}

// SubmitReading keeps the bare {message, data} bodies devices already parse.
func (h *SensorHandler) SubmitReading(c fiber.Ctx) error {
	var raw models.RawReading
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&raw); err != nil {
			slog.Warn("error parsing sensor payload", "error", err)
			return c.Status(http.StatusBadRequest).JSON(utils.CreateMessageResponse(MsgInvalidRequestBody, nil))
		}
	}

	reading, err := h.ingestionService.Submit(c.Context(), raw, models.SourceDevice)
	if err != nil {
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			return c.Status(http.StatusBadRequest).JSON(utils.CreateMessageResponse(vErr.Message, nil))
		}
		slog.Error("failed to ingest reading", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(utils.CreateMessageResponse("Failed to store reading", nil))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateMessageResponse("Data received", reading))
}

func (h *SensorHandler) GetReadings(c fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(h.ingestionService.Readings())
}

func (h *SensorHandler) GetStream(c fiber.Ctx) error {
	readings := h.aggregator.Snapshot()
	view := models.StreamView{
		Mode:     h.aggregator.Mode(),
		Capacity: h.aggregator.Capacity(),
		Readings: readings,
	}
	if n := len(readings); n > 0 {
		latest := readings[n-1]
		view.Latest = &latest
		view.Risk = h.evaluator.Evaluate(latest)
	} else {
		view.Risk = h.evaluator.EvaluateLatest(models.SensorReading{}, false)
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(view))
}

// StreamEvents pushes every accepted reading with its risk as server-sent
// events. The optional limit query closes the stream after that many events.
func (h *SensorHandler) StreamEvents(c fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.Status(http.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", "limit must be a non-negative integer"))
		}
		limit = n
	}

	readings, unsubscribe := h.aggregator.Subscribe(streamEventBuffer)
	slog.Info("Stream subscriber connected", "limit", limit)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()

		sent := 0
		for {
			select {
			case reading, ok := <-readings:
				if !ok {
					return
				}
				if err := h.writeEvent(w, reading); err != nil {
					slog.Info("Stream subscriber disconnected", "error", err)
					return
				}
				sent++
				if limit > 0 && sent >= limit {
					return
				}
			case <-keepAlive.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				if err := w.Flush(); err != nil {
					slog.Info("Stream subscriber disconnected", "error", err)
					return
				}
			}
		}
	})
}

func (h *SensorHandler) writeEvent(w *bufio.Writer, reading models.SensorReading) error {
	body, err := json.Marshal(models.StreamEvent{
		Reading: reading,
		Risk:    h.evaluator.Evaluate(reading),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal stream event: %w", err)
	}
	fmt.Fprintf(w, "id: %s\nevent: reading\ndata: %s\n\n", reading.ID, body)
	return w.Flush()
}
