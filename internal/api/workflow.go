package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"

	"github.com/yourorg/motor-stats/internal/app"
	"github.com/yourorg/motor-stats/internal/datasets"
	"github.com/yourorg/motor-stats/internal/types"
)

// WorkflowClient is the part of client.Client the pipeline routes use.
type WorkflowClient interface {
	app.Starter
	DescribeWorkflowExecution(ctx context.Context, workflowID, runID string) (*workflowservice.DescribeWorkflowExecutionResponse, error)
	GetWorkflow(ctx context.Context, workflowID, runID string) client.WorkflowRun
}

type WorkflowHandler struct {
	temporalClient WorkflowClient
	taskQueue      string
}

func NewWorkflowHandler(c WorkflowClient, taskQueue string) *WorkflowHandler {
	return &WorkflowHandler{temporalClient: c, taskQueue: taskQueue}
}

type StartPipelineRequest struct {
	// Optional period hint, YYYY-MM.
	Month       string `json:"month" binding:"omitempty,len=7"`
	KeepScratch bool   `json:"keep_scratch"`
}

type StartPipelineResponse struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

// StartPipeline starts the pipeline of the dataset named in the path.
func (h *WorkflowHandler) StartPipeline(c *gin.Context) {
	dataset := c.Param("dataset")
	if _, err := datasets.Lookup(dataset); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var req StartPipelineRequest
	// An empty body means no hint.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := app.StartPipeline(c.Request.Context(), h.temporalClient, h.taskQueue, types.PipelineParams{
		Dataset:     dataset,
		Month:       req.Month,
		KeepScratch: req.KeepScratch,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start workflow: " + err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, StartPipelineResponse{WorkflowID: run.GetID(), RunID: run.GetRunID()})
}

// GetPipelineStatus reports a run's status and, once completed, its result.
func (h *WorkflowHandler) GetPipelineStatus(c *gin.Context) {
	workflowID := c.Param("id")
	ctx := c.Request.Context()
	describe, err := h.temporalClient.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Failed to describe workflow: " + err.Error()})
		return
	}
	info := describe.GetWorkflowExecutionInfo()
	body := gin.H{
		"workflow_id": workflowID,
		"status":      info.GetStatus().String(),
		"start_time":  info.GetStartTime().AsTime(),
	}
	if info.GetStatus() == enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED {
		var result types.PipelineResult
		if err := h.temporalClient.GetWorkflow(ctx, workflowID, "").Get(ctx, &result); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		body["result"] = result
	}
	c.JSON(http.StatusOK, body)
}
