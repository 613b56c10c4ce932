package models

// ScanItem represents a stored scan as returned by the /scans endpoints
type ScanItem struct {
	ID           string     `json:"id"`
	Label        string     `json:"label"`
	Confidence   Confidence `json:"confidence"`
	ModelVersion string     `json:"modelVersion"`
	Notes        *string    `json:"notes,omitempty"`
	ImageURL     string     `json:"imageUrl,omitempty"`
	CreatedAt    string     `json:"createdAt"`
}

// Classification is the backend-neutral outcome of an upload
type Classification struct {
	Label      string
	Confidence Confidence
	CreatedAt  string // raw server timestamp, empty when absent
	ImagePath  string

	// Recommendation is set only when the backend returns guidance inline.
	Recommendation string
}

// ScanResult is a completed scan as held by the client
type ScanResult struct {
	DiseaseLabel       string
	Confidence         Confidence
	RecommendationText string
	CapturedAt         string
}

// DisplayResult is what gets shown to the user after a scan
type DisplayResult struct {
	Disease        string `json:"disease"`
	Confidence     string `json:"confidence"`
	Recommendation string `json:"recommendation"`
	Timestamp      string `json:"timestamp"`
}

// HistoryEntry represents a persisted record of a past scan.
// Timestamp doubles as the entry's key in the selection model.
type HistoryEntry struct {
	ID             string `json:"id,omitempty"` // only set by the /scans contract
	Timestamp      string `json:"timestamp"`
	Disease        string `json:"disease"`
	Confidence     string `json:"confidence"`
	Recommendation string `json:"recommendation"`
	ImagePath      string `json:"image_path,omitempty"`
}

// Recommendation is agronomic guidance for one disease key
type Recommendation struct {
	DiseaseKey string   `json:"diseaseKey"`
	Title      string   `json:"title"`
	Steps      []string `json:"steps"`
	Version    string   `json:"version"`
	UpdatedAt  string   `json:"updatedAt"`
}
