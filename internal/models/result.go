package models

// AskResponse is the answer to an ask request. Success is false only when the
// request itself was invalid; backend failures are reported in Answer.
type AskResponse struct {
	Answer  string `json:"answer"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// IngestResponse reports the outcome of a document upload.
type IngestResponse struct {
	Document *Document `json:"document"`
	Stage    string    `json:"stage"`
	Chunks   int       `json:"chunks"`
	Issues   []string  `json:"issues,omitempty"`
	Message  string    `json:"message"`
}

// DocumentList is a page of document records.
type DocumentList struct {
	Documents []*Document `json:"documents"`
	Total     int64       `json:"total"`
}

// History is a page of chat entries, newest first.
type History struct {
	Entries []*ChatEntry `json:"entries"`
	Total   int64        `json:"total"`
}

// Status describes the running service.
type Status struct {
	Documents      int64  `json:"documents"`
	ChatEntries    int64  `json:"chat_entries"`
	Chunks         int    `json:"chunks"`
	Vectors        int    `json:"vectors"`
	Dimensions     int    `json:"dimensions"`
	IndexType      string `json:"index_type"`
	TopK           int    `json:"top_k"`
	EmbeddingReady bool   `json:"embedding_ready"`
	DiskUsageBytes int64  `json:"disk_usage_bytes"`
}
