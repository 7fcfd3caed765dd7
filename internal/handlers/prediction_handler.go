package handlers

import (
	"errors"
	"net/http"

	"waterguard/internal/services"
	"waterguard/internal/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const MsgPredictionFailed = "Failed to fetch prediction"

type PredictionHandler struct {
	predictionService *services.PredictionService
	liveJob           *services.LivePredictionJob
}

func NewPredictionHandler(predictionService *services.PredictionService, liveJob *services.LivePredictionJob) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		liveJob:           liveJob,
	}
}

func (h *PredictionHandler) Register(app *fiber.App) {
	api := app.Group("/api")

	api.Post("/predict", h.Predict)               // POST /api/predict - manual prediction
	api.Get("/predict/live", h.GetLivePrediction) // GET  /api/predict/live - latest polled prediction
}

// Predict never returns partial text; the cause stays in the logs.
func (h *PredictionHandler) Predict(c fiber.Ctx) error {
	reading, ok := bindCompleteReading(c)
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", "pH, Turbidity, TDS, Temperature and Conductivity required"))
	}
	reading.ID = uuid.New()

	result, err := h.predictionService.Predict(c.Context(), reading)
	if err != nil {
		return c.Status(http.StatusBadGateway).JSON(utils.CreateErrorResponse("PREDICTION_FAILED", MsgPredictionFailed))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(result))
}

func (h *PredictionHandler) GetLivePrediction(c fiber.Ctx) error {
	result, err := h.liveJob.Current()
	switch {
	case errors.Is(err, services.ErrNoLivePrediction):
		return c.Status(http.StatusNotFound).JSON(utils.CreateErrorResponse("NOT_FOUND", "No prediction available yet"))
	case err != nil:
		return c.Status(http.StatusBadGateway).JSON(utils.CreateErrorResponse("PREDICTION_FAILED", MsgPredictionFailed))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(result))
}
