package possync

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/station_backend/models"
	"bitbucket.org/mmdatafocus/station_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		runs, err := models.RecentSyncRuns(c.Request.Context(), 1)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if len(runs) == 0 {
			c.JSON(http.StatusOK, gin.H{"lastRun": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"lastRun": toRunResponse(runs[0])})
	}
}

func TriggerSyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TriggerSyncRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
		}
		if err := validate.Struct(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		triggeredBy := req.TriggeredBy
		if triggeredBy == "" {
			triggeredBy = models.SyncTriggeredManual
		}

		ctx := c.Request.Context()
		run, err := models.CreateSyncRun(ctx, triggeredBy)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if err := PublishSyncRun(ctx, run.ID, triggeredBy, req.Site); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, toRunResponse(*run))
	}
}

func SyncHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		runs, err := models.RecentSyncRuns(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		resp := SyncHistoryResponse{Items: make([]SyncRunResponse, 0, len(runs))}
		for _, run := range runs {
			resp.Items = append(resp.Items, toRunResponse(run))
		}
		c.JSON(http.StatusOK, resp)
	}
}

func SyncRunDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		ctx := c.Request.Context()
		run, err := models.GetSyncRun(ctx, uint(id))
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		errs, err := models.SyncErrorsForRun(ctx, run.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		detail := SyncRunDetailResponse{
			SyncRunResponse: toRunResponse(*run),
			Stats:           run.StatsJSON,
		}
		for _, e := range errs {
			detail.Errors = append(detail.Errors, SyncErrorResponse{
				ID:      e.ID,
				Stage:   e.Stage,
				Gtin:    e.Gtin,
				Site:    e.Site,
				Message: e.Message,
			})
		}
		c.JSON(http.StatusOK, detail)
	}
}

func RetrySyncRunHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		ctx := c.Request.Context()
		if _, err := models.GetSyncRun(ctx, uint(id)); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		run, err := models.CreateSyncRun(ctx, models.SyncTriggeredRetry)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := PublishSyncRun(ctx, run.ID, models.SyncTriggeredRetry, ""); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, toRunResponse(*run))
	}
}

func toRunResponse(run models.CategorySyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:             run.ID,
		Status:         run.Status,
		TriggeredBy:    run.TriggeredBy,
		StartedAt:      formatTime(run.StartedAt),
		FinishedAt:     formatTime(run.FinishedAt),
		DurationMs:     run.DurationMs,
		RecordsChanged: run.RecordsChanged,
		ErrorCount:     run.ErrorCount,
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
