package handlers

import (
	"log/slog"
	"net/http"

	"waterguard/internal/models"
	"waterguard/internal/services"
	"waterguard/internal/utils"

	"github.com/gofiber/fiber/v3"
)

type RiskHandler struct {
	readings  services.LatestReadingSource
	evaluator services.RiskEvaluator
}

func NewRiskHandler(readings services.LatestReadingSource, evaluator services.RiskEvaluator) *RiskHandler {
	return &RiskHandler{
		readings:  readings,
		evaluator: evaluator,
	}
}

func (h *RiskHandler) Register(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/risk", h.GetLatestRisk)      // GET  /api/risk - assessment of the newest reading
	api.Post("/risk/evaluate", h.Evaluate) // POST /api/risk/evaluate - assessment of a supplied reading
}

func (h *RiskHandler) GetLatestRisk(c fiber.Ctx) error {
	reading, ok := h.readings.Latest()
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(h.evaluator.EvaluateLatest(reading, ok)))
}

func (h *RiskHandler) Evaluate(c fiber.Ctx) error {
	reading, ok := bindCompleteReading(c)
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", "pH, Turbidity, TDS, Temperature and Conductivity required"))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(h.evaluator.Evaluate(reading)))
}

// bindCompleteReading decodes a five-field reading from the body.
func bindCompleteReading(c fiber.Ctx) (models.SensorReading, bool) {
	var raw models.RawReading
	if err := c.Bind().Body(&raw); err != nil {
		slog.Warn("error parsing reading", "error", err)
		return models.SensorReading{}, false
	}
	return raw.Complete()
}
