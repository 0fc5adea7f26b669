package model

// PaginatedBatch is one emission of the discovery pipeline. Items are
// unique within a single search session; TotalCount is zero when the
// provider does not report one.
type PaginatedBatch struct {
	Items         []RepositorySummary `json:"items"`
	HasMore       bool                `json:"has_more"`
	NextPageIndex int                 `json:"next_page_index"`
	TotalCount    int                 `json:"total_count,omitempty"`
}
