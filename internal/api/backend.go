package api

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/franckalain/riceguard/internal/models"
)

// Backend contracts selectable from configuration
const (
	ContractScans  = "scans"
	ContractLegacy = "legacy"
)

// Backend is what the scan workflow and the history view need from a
// server, independent of which contract it speaks.
type Backend interface {
	// Classify uploads an image and returns the classifier's verdict
	Classify(ctx context.Context, up UploadRequest, token string) (*models.Classification, error)
	// Recommendation looks up guidance by canonical disease key
	Recommendation(ctx context.Context, key string) (*models.Recommendation, error)
	// History returns past scans, oldest first
	History(ctx context.Context, token string) ([]models.HistoryEntry, error)
	// DeleteEntries removes the given entries
	DeleteEntries(ctx context.Context, entries []models.HistoryEntry, token string) error
	// ClearHistory removes every entry; entries is the caller's current list
	ClearHistory(ctx context.Context, entries []models.HistoryEntry, token string) error
}

// NewBackend creates the adapter for the given contract
func NewBackend(contract, baseURL string, httpClient *http.Client, modelVersion string) (Backend, error) {
	switch contract {
	case ContractScans, "":
		return &ScansBackend{client: New(baseURL, httpClient), modelVersion: modelVersion}, nil
	case ContractLegacy:
		return &LegacyBackend{client: NewLegacy(baseURL, httpClient)}, nil
	default:
		return nil, fmt.Errorf("unsupported api contract: %s", contract)
	}
}

// ScansBackend adapts Client to Backend
type ScansBackend struct {
	client       *Client
	modelVersion string
}

// NewScansBackend wraps an existing client
func NewScansBackend(client *Client, modelVersion string) *ScansBackend {
	return &ScansBackend{client: client, modelVersion: modelVersion}
}

// Client returns the underlying /scans client
func (b *ScansBackend) Client() *Client {
	return b.client
}

// Classify uploads to /scans, filling in the configured model version
func (b *ScansBackend) Classify(ctx context.Context, up UploadRequest, token string) (*models.Classification, error) {
	if up.ModelVersion == "" {
		up.ModelVersion = b.modelVersion
	}
	item, err := b.client.UploadScan(ctx, up, token)
	if err != nil {
		return nil, err
	}
	return &models.Classification{
		Label:      item.Label,
		Confidence: item.Confidence,
		CreatedAt:  item.CreatedAt,
		ImagePath:  b.client.BuildImageURL(item.ImageURL),
	}, nil
}

// Recommendation fetches guidance for a canonical disease key
func (b *ScansBackend) Recommendation(ctx context.Context, key string) (*models.Recommendation, error) {
	return b.client.GetRecommendation(ctx, key)
}

// History lists scans and reverses them: the server sends newest first.
// Recommendations are not stored with /scans entries.
func (b *ScansBackend) History(ctx context.Context, token string) ([]models.HistoryEntry, error) {
	items, err := b.client.ListScans(ctx, token)
	if err != nil {
		return nil, err
	}
	entries := make([]models.HistoryEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, models.HistoryEntry{
			ID:         it.ID,
			Timestamp:  it.CreatedAt,
			Disease:    it.Label,
			Confidence: it.Confidence.Display(),
			ImagePath:  b.client.BuildImageURL(it.ImageURL),
		})
	}
	slices.Reverse(entries)
	return entries, nil
}

// DeleteEntries deletes one scan by id, or several through the bulk endpoint
func (b *ScansBackend) DeleteEntries(ctx context.Context, entries []models.HistoryEntry, token string) error {
	ids := entryIDs(entries)
	switch len(ids) {
	case 0:
		return nil
	case 1:
		_, err := b.client.DeleteScan(ctx, ids[0], token)
		return err
	default:
		_, err := b.client.BulkDeleteScans(ctx, ids, token)
		return err
	}
}

// ClearHistory has no dedicated endpoint on this contract; it bulk-deletes
// the entries the caller knows about.
func (b *ScansBackend) ClearHistory(ctx context.Context, entries []models.HistoryEntry, token string) error {
	ids := entryIDs(entries)
	if len(ids) == 0 {
		return nil
	}
	_, err := b.client.BulkDeleteScans(ctx, ids, token)
	return err
}

func entryIDs(entries []models.HistoryEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.ID != "" {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// LegacyBackend adapts LegacyClient to Backend. The legacy server does not
// authenticate, so tokens are ignored.
type LegacyBackend struct {
	client *LegacyClient
}

// NewLegacyBackend wraps an existing legacy client
func NewLegacyBackend(client *LegacyClient) *LegacyBackend {
	return &LegacyBackend{client: client}
}

// Classify posts the image to /predict; the reply may carry a recommendation
func (b *LegacyBackend) Classify(ctx context.Context, up UploadRequest, _ string) (*models.Classification, error) {
	resp, err := b.client.Predict(ctx, up)
	if err != nil {
		return nil, err
	}
	return &models.Classification{
		Label:          resp.Prediction,
		Confidence:     resp.Confidence,
		CreatedAt:      resp.Timestamp,
		Recommendation: resp.Recommendation,
	}, nil
}

// Recommendation always fails: the legacy server only returns guidance inline.
func (b *LegacyBackend) Recommendation(_ context.Context, key string) (*models.Recommendation, error) {
	return nil, &Error{Kind: ErrLookup, Status: http.StatusNotFound, Detail: "No recommendation endpoint for " + key}
}

// History returns the server's entries in the order it appended them
func (b *LegacyBackend) History(ctx context.Context, _ string) ([]models.HistoryEntry, error) {
	return b.client.History(ctx)
}

// DeleteEntries deletes by timestamp, the legacy history key
func (b *LegacyBackend) DeleteEntries(ctx context.Context, entries []models.HistoryEntry, _ string) error {
	if len(entries) == 0 {
		return nil
	}
	timestamps := make([]string, 0, len(entries))
	for _, e := range entries {
		timestamps = append(timestamps, e.Timestamp)
	}
	return b.client.DeleteByTimestamps(ctx, timestamps)
}

// ClearHistory drops every entry on the server
func (b *LegacyBackend) ClearHistory(ctx context.Context, _ []models.HistoryEntry, _ string) error {
	return b.client.ClearHistory(ctx)
}
