package retrieval

// Stage is the point an ingestion reached. Stages only move forward, ending in
// StageIndexed or StageRejected.
type Stage int

const (
	StageReceived Stage = iota
	StageExtracted
	StageChunked
	StageEmbedded
	StageIndexed
	StageRejected
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageExtracted:
		return "extracted"
	case StageChunked:
		return "chunked"
	case StageEmbedded:
		return "embedded"
	case StageIndexed:
		return "indexed"
	case StageRejected:
		return "rejected"
	default:
		return "unknown"
	}
}
