package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/franckalain/riceguard/internal/models"
)

// LegacyClient talks to the older /predict + /history backend. Its
// contract is incompatible with the /scans one and is kept separate.
type LegacyClient struct {
	baseURL string
	http    *http.Client
}

// NewLegacy creates a client for the legacy backend at baseURL (e.g. http://127.0.0.1:5000)
func NewLegacy(baseURL string, httpClient *http.Client) *LegacyClient {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	return &LegacyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BaseURL returns the backend root the client was built with
func (c *LegacyClient) BaseURL() string {
	return c.baseURL
}

// PredictResponse is the body of a /predict call
type PredictResponse struct {
	Prediction     string            `json:"prediction"`
	Confidence     models.Confidence `json:"confidence"`
	Recommendation string            `json:"recommendation"`
	Timestamp      string            `json:"timestamp"`
	Error          string            `json:"error,omitempty"`
}

type legacyHistoryItem struct {
	Timestamp      string            `json:"timestamp"`
	Disease        string            `json:"disease"`
	Confidence     models.Confidence `json:"confidence"`
	Recommendation string            `json:"recommendation"`
	ImagePath      string            `json:"image_path"`
}

func statusDetail(status int, _ []byte) string {
	return fmt.Sprintf("HTTP %d", status)
}

// Predict uploads an image and returns the classification. A 2xx reply
// without a prediction is treated as a failed upload.
func (c *LegacyClient) Predict(ctx context.Context, up UploadRequest) (*PredictResponse, error) {
	const generic = "Upload failed"
	body, ctype, err := multipartBody(up, nil)
	if err != nil {
		return nil, &Error{Kind: ErrUpload, Detail: generic, Err: err}
	}
	resp, err := do(ctx, c.http, call{
		kind:    ErrUpload,
		generic: generic,
		method:  http.MethodPost,
		url:     c.baseURL + "/predict",
		body:    body,
		ctype:   ctype,
		accept:  "application/json",
	}, statusDetail)
	if err != nil {
		return nil, err
	}
	var out PredictResponse
	if err := decode(resp, &out, ErrUpload, generic); err != nil {
		return nil, err
	}
	if out.Prediction == "" {
		detail := out.Error
		if detail == "" {
			detail = "Unknown error from server"
		}
		return nil, &Error{Kind: ErrUpload, Status: http.StatusOK, Detail: detail}
	}
	return &out, nil
}

// History returns every stored entry in the order the backend appended them
func (c *LegacyClient) History(ctx context.Context) ([]models.HistoryEntry, error) {
	resp, err := do(ctx, c.http, call{
		kind:    ErrHistory,
		generic: "Fetch history failed",
		method:  http.MethodGet,
		url:     c.baseURL + "/history",
	}, statusDetail)
	if err != nil {
		return nil, err
	}
	var out struct {
		History []legacyHistoryItem `json:"history"`
	}
	if err := decode(resp, &out, ErrHistory, "Fetch history failed"); err != nil {
		return nil, err
	}
	entries := make([]models.HistoryEntry, 0, len(out.History))
	for _, it := range out.History {
		entries = append(entries, models.HistoryEntry{
			Timestamp:      it.Timestamp,
			Disease:        it.Disease,
			Confidence:     it.Confidence.Display(),
			Recommendation: it.Recommendation,
			ImagePath:      BuildImageURL(c.baseURL, it.ImagePath),
		})
	}
	return entries, nil
}

// ClearHistory asks the backend to drop every entry
func (c *LegacyClient) ClearHistory(ctx context.Context) error {
	_, err := do(ctx, c.http, call{
		kind:    ErrHistory,
		generic: "Clear history failed",
		method:  http.MethodPost,
		url:     c.baseURL + "/history/clear",
	}, statusDetail)
	return err
}

// DeleteByTimestamps asks the backend to drop the entries with these timestamps
func (c *LegacyClient) DeleteByTimestamps(ctx context.Context, timestamps []string) error {
	const generic = "Delete history failed"
	if timestamps == nil {
		timestamps = []string{}
	}
	body, err := jsonBody(map[string][]string{"timestamps": timestamps})
	if err != nil {
		return &Error{Kind: ErrHistory, Detail: generic, Err: err}
	}
	_, err = do(ctx, c.http, call{
		kind:    ErrHistory,
		generic: generic,
		method:  http.MethodPost,
		url:     c.baseURL + "/history/delete",
		body:    body,
		ctype:   "application/json",
	}, statusDetail)
	return err
}
