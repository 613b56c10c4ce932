package history

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckalain/riceguard/internal/api"
	"github.com/franckalain/riceguard/internal/models"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type fakeStore struct {
	entries   []models.HistoryEntry
	loadErr   error
	deleteErr error
	deleted   [][]models.HistoryEntry
	cleared   int
}

func (f *fakeStore) History(context.Context, string) ([]models.HistoryEntry, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]models.HistoryEntry(nil), f.entries...), nil
}

func (f *fakeStore) DeleteEntries(_ context.Context, entries []models.HistoryEntry, _ string) error {
	f.deleted = append(f.deleted, entries)
	return f.deleteErr
}

func (f *fakeStore) ClearHistory(context.Context, []models.HistoryEntry, string) error {
	f.cleared++
	return f.deleteErr
}

func sampleEntries() []models.HistoryEntry {
	return []models.HistoryEntry{
		{Timestamp: "2024-01-01 08:00", Disease: "Brown Spot", Recommendation: "Apply potassium."},
		{Timestamp: "2024-01-02 08:00", Disease: "Leaf Smut", Recommendation: "Rotate crops."},
		{Timestamp: "2024-01-03 08:00", Disease: "Healthy", Recommendation: "Keep monitoring."},
		{Timestamp: "2024-01-04 08:00", Disease: "Brown Spot", Recommendation: "Use Mancozeb."},
	}
}

func loadedView(t *testing.T, store *fakeStore) *View {
	t.Helper()
	v := New(store, staticToken("tok"))
	require.NoError(t, v.Load(context.Background()))
	return v
}

func timestamps(entries []models.HistoryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Timestamp)
	}
	return out
}

func TestVisibleIsNewestFirstAndFiltered(t *testing.T) {
	v := loadedView(t, &fakeStore{entries: sampleEntries()})

	assert.Equal(t, []string{"2024-01-04 08:00", "2024-01-03 08:00", "2024-01-02 08:00", "2024-01-01 08:00"}, timestamps(v.Visible()))

	v.SetQuery("  BROWN ")
	assert.Equal(t, []string{"2024-01-04 08:00", "2024-01-01 08:00"}, timestamps(v.Visible()))

	v.SetQuery("rotate")
	assert.Equal(t, []string{"2024-01-02 08:00"}, timestamps(v.Visible()))

	v.SetQuery("01-03")
	assert.Equal(t, []string{"2024-01-03 08:00"}, timestamps(v.Visible()))

	v.SetQuery("blast")
	assert.Empty(t, v.Visible())
	assert.False(t, v.AllVisibleSelected())
}

func TestLoadFailureLeavesEmptyList(t *testing.T) {
	v := New(&fakeStore{loadErr: errors.New("HTTP 500")}, nil)
	assert.Error(t, v.Load(context.Background()))
	assert.Empty(t, v.Entries())
	assert.Empty(t, v.Visible())
}

func TestToggleSelectAllVisible(t *testing.T) {
	v := loadedView(t, &fakeStore{entries: sampleEntries()})

	// a hidden selection and a partially selected visible subset
	v.ToggleSelect("2024-01-03 08:00")
	v.SetQuery("brown")
	v.ToggleSelect("2024-01-01 08:00")
	require.False(t, v.AllVisibleSelected())

	v.ToggleSelectAllVisible()
	assert.True(t, v.AllVisibleSelected())
	assert.Equal(t, []string{"2024-01-01 08:00", "2024-01-03 08:00", "2024-01-04 08:00"}, v.Selected())

	v.ToggleSelectAllVisible()
	assert.False(t, v.AllVisibleSelected())
	assert.Equal(t, []string{"2024-01-03 08:00"}, v.Selected())

	// two invocations from a fully deselected visible set restore it
	v.ToggleSelectAllVisible()
	v.ToggleSelectAllVisible()
	assert.Equal(t, []string{"2024-01-03 08:00"}, v.Selected())
}

func TestDeleteSelectedPrunesEvenWhenBackendFails(t *testing.T) {
	handler := memory.New()
	log.SetHandler(handler)

	store := &fakeStore{entries: sampleEntries(), deleteErr: errors.New("connection refused")}
	v := loadedView(t, store)
	v.ToggleSelect("2024-01-02 08:00")
	v.ToggleSelect("2024-01-04 08:00")

	n, err := v.DeleteSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"2024-01-01 08:00", "2024-01-03 08:00"}, timestamps(v.Entries()))
	assert.Empty(t, v.Selected())
	require.Len(t, store.deleted, 1)
	assert.Equal(t, []string{"2024-01-02 08:00", "2024-01-04 08:00"}, timestamps(store.deleted[0]))

	var warned bool
	for _, e := range handler.Entries {
		if e.Message == "history.delete.failed" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestDeleteSelectedRequiresSelection(t *testing.T) {
	store := &fakeStore{entries: sampleEntries()}
	v := loadedView(t, store)

	_, err := v.DeleteSelected(context.Background())
	assert.ErrorIs(t, err, ErrNothingSelected)
	assert.Empty(t, store.deleted)
	assert.Len(t, v.Entries(), 4)
}

func TestDuplicateTimestampsDeletedTogether(t *testing.T) {
	entries := append(sampleEntries(), models.HistoryEntry{Timestamp: "2024-01-02 08:00", Disease: "Healthy"})
	v := loadedView(t, &fakeStore{entries: entries})
	v.ToggleSelect("2024-01-02 08:00")

	n, err := v.DeleteSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, v.Entries(), 3)
}

func TestDeleteAll(t *testing.T) {
	store := &fakeStore{entries: sampleEntries(), deleteErr: errors.New("HTTP 404")}
	v := loadedView(t, store)
	v.ToggleSelect("2024-01-01 08:00")

	assert.Equal(t, 4, v.DeleteAll(context.Background()))
	assert.Equal(t, 1, store.cleared)
	assert.Empty(t, v.Entries())
	assert.Empty(t, v.Selected())
}

func TestCloseClearsSelection(t *testing.T) {
	v := loadedView(t, &fakeStore{entries: sampleEntries()})
	v.ToggleSelect("2024-01-01 08:00")
	v.Close()
	assert.False(t, v.IsSelected("2024-01-01 08:00"))
}

func TestViewOverScansBackendWithFailingDelete(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/scans", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"id":"b","label":"brown_spot","confidence":0.6,"createdAt":"2024-01-02T00:00:00Z"},
			{"id":"a","label":"healthy","confidence":0.9,"createdAt":"2024-01-01T00:00:00Z"}
		]}`))
	})
	r.Delete("/api/v1/scans/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	backend, err := api.NewBackend(api.ContractScans, srv.URL+"/api/v1", nil, "")
	require.NoError(t, err)
	v := New(backend, staticToken("tok"))
	require.NoError(t, v.Load(context.Background()))
	require.Equal(t, []string{"2024-01-02T00:00:00Z", "2024-01-01T00:00:00Z"}, timestamps(v.Visible()))

	v.ToggleSelect("2024-01-02T00:00:00Z")
	n, err := v.DeleteSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"2024-01-01T00:00:00Z"}, timestamps(v.Visible()))
}
