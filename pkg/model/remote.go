package model

// HealthStatus is reported by the backend health endpoint.
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// QueryHistoryEntry is a query stored by the backend. Unlike
// InteractionRecord it outlives the client session.
type QueryHistoryEntry struct {
	ID             int64        `json:"id"`
	FunctionType   FunctionType `json:"function_type"`
	Style          Style        `json:"style"`
	Query          string       `json:"query"`
	Response       string       `json:"response"`
	ProcessingTime float64      `json:"processing_time"`
	CreatedAt      string       `json:"created_at"`
}

// QueryHistoryPage is one page of backend query history.
type QueryHistoryPage struct {
	Results     []QueryHistoryEntry `json:"results"`
	TotalCount  int                 `json:"total_count"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}
