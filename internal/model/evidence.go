package model

// MatchLabel 单条证据的匹配等级。
type MatchLabel string

const (
	MatchHigh   MatchLabel = "High"
	MatchMedium MatchLabel = "Medium"
	MatchLow    MatchLabel = "Low"
)

// Status returns the display form, e.g. "High Match".
func (l MatchLabel) Status() string {
	return string(l) + " Match"
}

// EvidenceItem is one ranked passage returned for a query.
type EvidenceItem struct {
	Rank int `json:"rank"`
	Chunk
	Score        float64    `json:"score"`
	MatchPercent float64    `json:"match_percent"`
	Label        MatchLabel `json:"label"`
	Status       string     `json:"status"`
}

// ConfidenceLabel 整体置信度等级。
type ConfidenceLabel string

const (
	ConfidenceHigh       ConfidenceLabel = "High"
	ConfidenceMedium     ConfidenceLabel = "Medium"
	ConfidenceLow        ConfidenceLabel = "Low"
	ConfidenceNoEvidence ConfidenceLabel = "No Evidence"
)

// Confidence is the aggregate similarity of the returned evidence as a
// percentage. When HasEvidence is false, Score carries no meaning.
type Confidence struct {
	Score       float64         `json:"score"`
	Label       ConfidenceLabel `json:"label"`
	HasEvidence bool            `json:"has_evidence"`
}

// AskResult is the answer to one question.
type AskResult struct {
	Question     string         `json:"question"`
	Answer       string         `json:"answer"`
	Evidence     []EvidenceItem `json:"evidence"`
	Confidence   Confidence     `json:"confidence"`
	Verification string         `json:"verification"`
	SessionID    string         `json:"session_id"`
}

// FileIssue explains why an uploaded file contributed no chunks.
type FileIssue struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// UploadResult 上传结果。
type UploadResult struct {
	Status         string      `json:"status"`
	SessionID      string      `json:"session_id"`
	ProcessedFiles []string    `json:"processed_files"`
	SkippedFiles   []FileIssue `json:"skipped_files,omitempty"`
	ChunksAdded    int         `json:"chunks_added"`
	TotalChunks    int         `json:"total_chunks"`
}

// ClearResult 清空结果。
type ClearResult struct {
	Status            string `json:"status"`
	PreviousSessionID string `json:"previous_session_id"`
	SessionID         string `json:"session_id"`
	InvalidatedCache  int    `json:"invalidated_cache"`
}

// CorpusStats describes the current corpus session.
type CorpusStats struct {
	SessionID    string `json:"session_id"`
	Files        int    `json:"files"`
	Chunks       int    `json:"chunks"`
	EmbeddingDim int    `json:"embedding_dim"`
}
