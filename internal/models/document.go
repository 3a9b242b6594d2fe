// Package models defines document records, chat history entries and API payloads.
package models

import "time"

// Document sources.
const (
	SourceUpload = "upload"
	SourceWatch  = "watch"
	SourceCLI    = "cli"
)

// Document is the record of an ingested (or attempted) document. Its chunks live
// only in the in-memory retrieval engine.
type Document struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Path       string    `json:"path" db:"path"`
	Format     string    `json:"format" db:"format"`
	Size       int64     `json:"size" db:"size"`
	Source     string    `json:"source" db:"source"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
	Processed  bool      `json:"processed" db:"processed"`
	ChunkCount int       `json:"chunk_count" db:"chunk_count"`
	// Error holds the rejection reason when ingestion failed.
	Error string `json:"error,omitempty" db:"error"`
}

// ChatEntry is one answered question.
type ChatEntry struct {
	ID        int64     `json:"id" db:"id"`
	Question  string    `json:"question" db:"question"`
	Answer    string    `json:"answer" db:"answer"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
