package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/anmicius0/euvat-checker/internal/config"
	"github.com/anmicius0/euvat-checker/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler bundles request-time dependencies for the API routes.
type Handler struct {
	cfg          *config.Config
	jobStore     *config.JobStore
	batchManager *BatchManager
}

// newHandler constructs a Handler with attached dependencies.
func newHandler(cfg *config.Config, jobStore *config.JobStore, batchManager *BatchManager) *Handler {
	return &Handler{
		cfg:          cfg,
		jobStore:     jobStore,
		batchManager: batchManager,
	}
}

func (h *Handler) health(c *gin.Context) {
	busy := h.batchManager != nil && h.batchManager.Busy()
	c.JSON(http.StatusOK, gin.H{"success": true, "status": StatusHealthy, "batchRunning": busy})
}

func (h *Handler) submitBatch(c *gin.Context) {
	batch, err := bindBatchRequest(c)
	if err != nil {
		utils.Logger.Error("Invalid request body",
			zap.Error(err))
		respBuilder := newResponseBuilder()
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeInvalidRequestBody,
			MessageInvalidRequestBody,
			err.Error(),
		))
		return
	}

	identifiers := batch.Identifiers()
	if len(identifiers) == 0 {
		respBuilder := newResponseBuilder()
		c.JSON(http.StatusUnprocessableEntity, respBuilder.BuildErrorResponse(
			ErrorCodeValidationFailed,
			MessageBatchEmpty,
			nil,
		))
		return
	}

	summary := summarize(identifiers)
	jobID, err := h.batchManager.ProcessBatchAsync(identifiers)
	if errors.Is(err, ErrBatchInProgress) {
		utils.Logger.Info("Rejected batch while another is running",
			zap.Int(utils.FieldTotal, len(identifiers)))
		respBuilder := newResponseBuilder()
		c.JSON(http.StatusConflict, respBuilder.BuildErrorResponse(
			ErrorCodeBatchInProgress,
			MessageBatchInProgress,
			nil,
		))
		return
	}

	respBuilder := newResponseBuilder()
	c.JSON(http.StatusAccepted, respBuilder.BuildAcceptedResponse(jobID, summary))
}

// bindBatchRequest accepts either the JSON payload or a plain-text list with one
// VAT number per line.
func bindBatchRequest(c *gin.Context) (config.BatchRequest, error) {
	if strings.HasPrefix(c.ContentType(), "text/plain") {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return config.BatchRequest{}, err
		}
		return config.ParseBatchText(string(body)), nil
	}

	var batch config.BatchRequest
	if err := c.ShouldBindJSON(&batch); err != nil {
		return config.BatchRequest{}, err
	}
	return batch, nil
}

func (h *Handler) getBatchStatus(c *gin.Context) {
	jobID := c.Param("id")
	job, exists := h.jobStore.GetJob(jobID)
	if !exists {
		utils.Logger.Debug("Job not found",
			zap.String(utils.FieldJobID, jobID))
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf(JobNotFoundMessageFmt, jobID)})
		return
	}

	respBuilder := newResponseBuilder()
	c.JSON(http.StatusOK, respBuilder.BuildJobResponse(job))
}

func authMiddleware(expectedToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		expectedAuth := fmt.Sprintf("Bearer %s", expectedToken)
		if authHeader != expectedAuth {
			utils.Logger.Warn("Unauthorized access attempt",
				zap.String(utils.FieldPath, c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": MessageInvalidToken})
			c.Abort()
			return
		}
		c.Next()
	}
}
