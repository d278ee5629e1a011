package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vofas/vofas-backend/domain"
	"github.com/vofas/vofas-backend/domain/repositories"
	"github.com/vofas/vofas-backend/internal/pipeline"
	"github.com/vofas/vofas-backend/internal/stream"
)

// maxUploadBytes caps a single feedback recording. Kiosk clips run well
// under a minute.
const maxUploadBytes = 10 << 20

func ingestFeedback(c echo.Context, pl *pipeline.Pipeline, logger *zap.Logger) error {
	token := c.FormValue("validationToken")
	if token == "" {
		return errorJSON(c, http.StatusBadRequest, "A validation token is required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "An audio file is required")
	}
	if fileHeader.Size > maxUploadBytes {
		return errorJSON(c, http.StatusRequestEntityTooLarge, "Audio file exceeds the upload limit")
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open uploaded file", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Failed to read uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		logger.Error("Failed to read uploaded file", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Failed to read uploaded file")
	}
	if len(data) > maxUploadBytes {
		return errorJSON(c, http.StatusRequestEntityTooLarge, "Audio file exceeds the upload limit")
	}

	id, err := pl.Ingest(c.Request().Context(), pipeline.Upload{
		Data:        data,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Token:       token,
	})
	if err != nil {
		var mediaErr *domain.UnsupportedMediaTypeError
		if errors.As(err, &mediaErr) {
			return errorJSON(c, http.StatusUnsupportedMediaType, mediaErr.Error())
		}
		var tokenErr *domain.TokenError
		if errors.As(err, &tokenErr) {
			return errorJSON(c, http.StatusForbidden, fmt.Sprintf("Validation token is %s", tokenErr.Failure))
		}
		logger.Error("Feedback ingest failed", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Failed to accept feedback")
	}

	return c.JSON(http.StatusAccepted, IngestResponse{
		FeedbackID: id,
		State:      "RECEIVED",
	})
}

func listFeedback(c echo.Context, repo repositories.FeedbackRepository, logger *zap.Logger) error {
	filter, page, err := parseListQuery(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	result, err := repo.Find(c.Request().Context(), filter, page)
	if err != nil {
		logger.Error("Feedback query failed", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Failed to query feedback")
	}

	items := make([]FeedbackResponse, 0, len(result.Items))
	for _, f := range result.Items {
		items = append(items, toFeedbackResponse(f))
	}

	totalPages := result.TotalItems / int64(result.Size)
	if result.TotalItems%int64(result.Size) != 0 {
		totalPages++
	}

	return c.JSON(http.StatusOK, PageResponse{
		Items:      items,
		PageNumber: result.Number,
		PageSize:   result.Size,
		TotalItems: result.TotalItems,
		TotalPages: totalPages,
	})
}

func getFeedback(c echo.Context, repo repositories.FeedbackRepository, logger *zap.Logger) error {
	id := c.Param("id")

	feedback, err := repo.GetByID(c.Request().Context(), id)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return errorJSON(c, http.StatusNotFound, notFound.Error())
		}
		logger.Error("Feedback fetch failed", zap.String("feedbackID", id), zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Failed to fetch feedback")
	}

	return c.JSON(http.StatusOK, toFeedbackResponse(feedback))
}

func processFeedback(c echo.Context, pl *pipeline.Pipeline, logger *zap.Logger) error {
	id := c.Param("id")

	if err := pl.Resume(c.Request().Context(), id); err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return errorJSON(c, http.StatusNotFound, notFound.Error())
		}
		logger.Warn("Feedback resume rejected", zap.String("feedbackID", id), zap.Error(err))
		return errorJSON(c, http.StatusConflict, err.Error())
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"feedback_id": id,
		"message":     "processing resumed",
	})
}

// streamFeedback serves the live completed-feedback stream over SSE. The
// optional replay parameter backfills recently completed feedback before
// live events start.
func streamFeedback(c echo.Context, broker *stream.Broker, logger *zap.Logger) error {
	replay := 0
	if raw := c.QueryParam("replay"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return errorJSON(c, http.StatusBadRequest, (&domain.InvalidFilterOptionError{Field: "replay", Value: raw}).Error())
		}
		replay = n
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return errorJSON(c, http.StatusInternalServerError, "Streaming is not supported")
	}

	sub := broker.Subscribe(replay)
	defer broker.Unsubscribe(sub)

	logger.Info("Feedback stream subscriber connected", zap.Int("replay", replay))

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case feedback, open := <-sub.Events():
			if !open {
				return nil
			}
			payload, err := json.Marshal(toFeedbackResponse(feedback))
			if err != nil {
				logger.Error("Failed to encode feedback event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(resp, "event: feedback_completed\ndata: %s\n\n", payload); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
