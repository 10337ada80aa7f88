// Package api serves statement analysis over HTTP.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/upi-statement-analyzer/internal/extractor"
	"github.com/insightdelivered/upi-statement-analyzer/internal/logger"
	"github.com/insightdelivered/upi-statement-analyzer/internal/metrics"
	"github.com/insightdelivered/upi-statement-analyzer/internal/models"
	"github.com/insightdelivered/upi-statement-analyzer/internal/pipeline"
	"github.com/insightdelivered/upi-statement-analyzer/internal/writer"
)

// Version is reported by the health endpoint.
const Version = "2.0.0"

// AnalyzeResponse is the JSON response from /api/analyze. Amounts encode
// as numbers once the binary sets decimal.MarshalJSONWithoutQuotes.
type AnalyzeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*models.Analysis
	CSV     string `json:"csv,omitempty"`
	Version string `json:"version,omitempty"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Analyzer *pipeline.Analyzer
	Log      zerolog.Logger
}

// NewApp builds the fiber app with every route registered. maxUploadMB
// bounds the request body.
func NewApp(h *Handler, maxUploadMB int) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             maxUploadMB << 20,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Post("/api/analyze", h.HandleAnalyze)
	app.Get("/api/health", HandleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
}

// HandleHealth reports liveness.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": Version,
	})
}

// HandleAnalyze accepts a multipart upload in field "file", with optional
// "bank" and "password" fields, and returns the analysis.
func (h *Handler) HandleAnalyze(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}

	src, err := models.ParseSource(c.FormValue("bank"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}

	f, err := fh.Open()
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "Failed to read uploaded file.")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "Failed to read uploaded file.")
	}

	log := h.Log.With().Str("file", fh.Filename).Int64("size", fh.Size).Logger()
	ctx := logger.WithContext(c.UserContext(), log)

	res, err := h.Analyzer.Analyze(ctx, data, pipeline.Options{
		Source:   src,
		Password: c.FormValue("password"),
		Debug:    c.FormValue("debug") == "true",
	})
	if err != nil {
		status, msg := classify(err)
		return writeError(c, status, msg)
	}

	analysis := h.Analyzer.Summarize(res)

	var csvBuf bytes.Buffer
	csvWriter := &writer.CSVWriter{}
	if err := csvWriter.Write(&csvBuf, res); err != nil {
		log.Warn().Err(err).Msg("CSV generation failed")
	}

	return c.JSON(AnalyzeResponse{
		Success:  true,
		Analysis: &analysis,
		CSV:      csvBuf.String(),
		Version:  Version,
	})
}

// classify maps pipeline errors to an HTTP status and a message for the
// client.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, extractor.ErrInvalidPassword):
		return fiber.StatusUnauthorized, "The password for this PDF is incorrect."
	case errors.Is(err, extractor.ErrEncryptedDocument):
		return fiber.StatusUnauthorized, "This PDF is password protected. Supply the 'password' field."
	case errors.Is(err, extractor.ErrSizeLimit):
		var sizeErr *extractor.SizeLimitError
		if errors.As(err, &sizeErr) {
			return fiber.StatusRequestEntityTooLarge,
				fmt.Sprintf("Statement has %d pages; the limit is %d.", sizeErr.Pages, sizeErr.Limit)
		}
		return fiber.StatusRequestEntityTooLarge, "Statement has too many pages."
	case errors.Is(err, extractor.ErrInput):
		return fiber.StatusBadRequest, "Only readable PDF files are supported."
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "Statement analysis timed out."
	default:
		return fiber.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err)
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	msg := err.Error()
	if status == fiber.StatusInternalServerError && !strings.HasPrefix(msg, "Internal") {
		msg = "Internal server error: " + msg
	}
	return writeError(c, status, msg)
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(AnalyzeResponse{
		Success: false,
		Error:   msg,
	})
}
