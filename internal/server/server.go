package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/iwvelando/mac-forecast/internal/config"
	"github.com/iwvelando/mac-forecast/internal/forecast"
	"github.com/iwvelando/mac-forecast/internal/mac"
	"github.com/iwvelando/mac-forecast/pkg/constants"
	"github.com/iwvelando/mac-forecast/pkg/marketplace"
	"github.com/iwvelando/mac-forecast/pkg/modeltime"
	"github.com/iwvelando/mac-forecast/pkg/optimization"
	"github.com/iwvelando/mac-forecast/pkg/output"
	"go.uber.org/zap"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	prices        *marketplace.Marketplace
}

// NewHandler constructs the HTTP handler that serves the forecast and MAC
// evaluation API.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string) http.Handler {
	return NewHandlerWithPrices(logger, maxUploadSize, version, nil)
}

// NewHandlerWithPrices is NewHandler with stored market prices that every
// forecast starts from. Prices in an uploaded configuration take precedence.
func NewHandlerWithPrices(logger *zap.Logger, maxUploadSize int64, version string, prices *marketplace.Marketplace) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion, prices: prices}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/forecast", h.handleForecast)
		r.Post("/mac/evaluate", h.handleEvaluate)
		r.Get("/version", h.handleVersion)
	})

	return r
}

type forecastResponse struct {
	Scenarios []scenarioResult `json:"scenarios"`
	CSV       string           `json:"csv"`
	Warnings  []string         `json:"warnings,omitempty"`
	Duration  string           `json:"duration"`
}

type scenarioResult struct {
	Name         string                 `json:"name"`
	Reductions   []mac.Breakdown        `json:"reductions"`
	ShareWeights []forecast.ShareWeight `json:"shareWeights,omitempty"`
	Targets      []optimization.Summary `json:"targets,omitempty"`
	Warnings     []string               `json:"warnings,omitempty"`
}

// evaluateRequest evaluates a single MAC curve against an explicit price set.
// Mac uses the same keys as a MAC entry of the configuration file.
type evaluateRequest struct {
	Mac       map[string]interface{} `json:"mac"`
	Prices    []marketplace.Quote    `json:"prices"`
	Region    string                 `json:"region"`
	Period    int                    `json:"period"`
	Modeltime *modeltime.Calendar    `json:"modeltime,omitempty"`
}

type evaluateResponse struct {
	mac.Breakdown
	Warnings []string `json:"warnings,omitempty"`
}

func (h *handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleForecast"
	start := time.Now()

	body, ok := h.readBody(w, r, op)
	if !ok {
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		h.respondError(w, http.StatusBadRequest, "missing configuration", op)
		return
	}

	cfg, err := config.LoadConfigurationFromBytes(body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	warnings := cfg.ValidateConfiguration()

	results, err := forecast.GetForecastWithPrices(h.logger, *cfg, h.prices)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to compute forecast: %v", err), op)
		return
	}

	var csv bytes.Buffer
	output.CsvFormat(&csv, results)

	response := forecastResponse{
		Scenarios: make([]scenarioResult, 0, len(results)),
		CSV:       csv.String(),
		Warnings:  warnings,
	}
	for _, result := range results {
		response.Scenarios = append(response.Scenarios, scenarioResult{
			Name:         result.Name,
			Reductions:   result.Reductions,
			ShareWeights: result.ShareWeights,
			Targets:      result.Targets,
			Warnings:     result.Warnings,
		})
	}

	elapsed := time.Since(start)
	response.Duration = elapsed.String()

	h.logger.Info("forecast computed",
		zap.String("op", op),
		zap.String("requestID", middleware.GetReqID(r.Context())),
		zap.Int("scenarios", len(response.Scenarios)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleEvaluate"

	body, ok := h.readBody(w, r, op)
	if !ok {
		return
	}

	var req evaluateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return
	}
	if req.Mac == nil {
		h.respondError(w, http.StatusBadRequest, "missing mac definition", op)
		return
	}

	cal := modeltime.Default()
	if req.Modeltime != nil {
		cal = req.Modeltime.WithDefaults()
	}
	if err := cal.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid modeltime: %v", err), op)
		return
	}
	// Reductions are only defined after the base period, as in a forecast run.
	if req.Period <= cal.BasePeriod || req.Period >= cal.Periods {
		h.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("period %d outside of modeltime (%d, %d)", req.Period, cal.BasePeriod, cal.Periods), op)
		return
	}

	model, warnings := mac.Parse(h.logger, cal, req.Mac)
	if err := model.InitCalc(); err != nil {
		warnings = append(warnings, err.Error())
	}

	prices := marketplace.New(h.logger)
	for _, q := range req.Prices {
		prices.SetPrice(q.Market, q.Region, q.Period, q.Price)
	}

	h.writeJSON(w, http.StatusOK, evaluateResponse{
		Breakdown: model.Explain(prices, req.Region, req.Period),
		Warnings:  warnings,
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) readBody(w http.ResponseWriter, r *http.Request, op string) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return nil, false
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to read request: %v", err), op)
		return nil, false
	}
	return body, true
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
