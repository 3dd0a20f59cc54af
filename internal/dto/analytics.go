package dto

// StatusCounts breaks a task count down by status
type StatusCounts struct {
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
}

// TaskStats is the rollup served by GET /api/analytics/stats
type TaskStats struct {
	Total          int64        `json:"total"`
	ByStatus       StatusCounts `json:"byStatus"`
	Overdue        int64        `json:"overdue"`
	CompletionRate string       `json:"completionRate"`
}

// UserStats is the rollup served by GET /api/analytics/user
type UserStats struct {
	Created        int64  `json:"created"`
	Assigned       int64  `json:"assigned"`
	Completed      int64  `json:"completed"`
	Pending        int64  `json:"pending"`
	Overdue        int64  `json:"overdue"`
	CompletionRate string `json:"completionRate"`
}

// TeamStats is the rollup served by GET /api/analytics/team
type TeamStats struct {
	TeamID         uint64 `json:"teamId"`
	TeamSize       int    `json:"teamSize"`
	Total          int64  `json:"total"`
	Completed      int64  `json:"completed"`
	Pending        int64  `json:"pending"`
	Overdue        int64  `json:"overdue"`
	CompletionRate string `json:"completionRate"`
}
