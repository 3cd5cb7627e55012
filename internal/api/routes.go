package api

import "github.com/gin-gonic/gin"

// Routes mounts the operations API on r. wh may be nil when Temporal is
// unreachable; the pipeline routes are then left out.
func Routes(r gin.IRouter, h *Handler, wh *WorkflowHandler) {
	r.GET("/healthz", h.Health)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/datasets", h.GetDatasets)

		if wh != nil {
			apiV1.POST("/pipelines/:dataset", wh.StartPipeline)
			apiV1.GET("/pipelines/runs/:id", wh.GetPipelineStatus)
		}
	}
}
