package response

import "github.com/user/perfwatch/internal/entity"

// CollectResponse is returned by the collect endpoints with status 202.
type CollectResponse struct {
	JobsCount int `json:"jobs_count"`
	Total     int `json:"total"`
}

func NewCollectResponse(r *entity.DispatchReport) CollectResponse {
	return CollectResponse{JobsCount: r.Enqueued, Total: r.Total}
}

// QueueCountsResponse lists the number of jobs per state of one queue.
type QueueCountsResponse struct {
	Queue  entity.QueueName          `json:"queue"`
	Counts map[entity.JobState]int64 `json:"counts"`
}

// HealthResponse maps each dependency to "healthy" or "unhealthy".
type HealthResponse map[string]string

type ErrorResponse struct {
	Error string `json:"error"`
}
