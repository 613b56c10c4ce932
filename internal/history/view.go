// Package history keeps the client-side copy of past scans: filtering,
// multi-selection and optimistic deletion.
package history

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/apex/log"

	"github.com/franckalain/riceguard/internal/models"
)

// ErrNothingSelected is returned when deleting with an empty selection
var ErrNothingSelected = errors.New("no entries selected")

// Store is the backend side of the history
type Store interface {
	History(ctx context.Context, token string) ([]models.HistoryEntry, error)
	DeleteEntries(ctx context.Context, entries []models.HistoryEntry, token string) error
	ClearHistory(ctx context.Context, entries []models.HistoryEntry, token string) error
}

// TokenSource provides the current session token
type TokenSource interface {
	Token() string
}

// View is the history screen's state. Entries are keyed by timestamp;
// entries sharing a timestamp are selected and deleted together.
type View struct {
	store  Store
	tokens TokenSource

	mu       sync.Mutex
	entries  []models.HistoryEntry // oldest first, as fetched
	query    string
	selected map[string]struct{}
}

// New creates an empty view over store
func New(store Store, tokens TokenSource) *View {
	return &View{store: store, tokens: tokens, selected: map[string]struct{}{}}
}

func (v *View) token() string {
	if v.tokens == nil {
		return ""
	}
	return v.tokens.Token()
}

// Load fetches the full history. On failure the list is left empty and the
// error is returned for display.
func (v *View) Load(ctx context.Context) error {
	entries, err := v.store.History(ctx, v.token())

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.entries = nil
		log.WithError(err).Error("history.load.failed")
		return err
	}
	v.entries = entries
	log.WithField("count", len(entries)).Info("history.load.done")
	return nil
}

// Entries returns every loaded entry, oldest first
func (v *View) Entries() []models.HistoryEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.entries)
}

// SetQuery sets the search filter
func (v *View) SetQuery(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = q
}

// Visible returns the entries matching the query, newest first
func (v *View) Visible() []models.HistoryEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible()
}

func (v *View) visible() []models.HistoryEntry {
	q := strings.ToLower(strings.TrimSpace(v.query))
	out := make([]models.HistoryEntry, 0, len(v.entries))
	for i := len(v.entries) - 1; i >= 0; i-- {
		e := v.entries[i]
		if q == "" || strings.Contains(strings.ToLower(e.Disease+" "+e.Recommendation+" "+e.Timestamp), q) {
			out = append(out, e)
		}
	}
	return out
}

// ToggleSelect flips the selection of the entry with timestamp ts
func (v *View) ToggleSelect(ts string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.selected[ts]; ok {
		delete(v.selected, ts)
		return
	}
	v.selected[ts] = struct{}{}
}

// IsSelected reports whether ts is selected
func (v *View) IsSelected(ts string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.selected[ts]
	return ok
}

// Selected returns the selected timestamps, sorted
func (v *View) Selected() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, 0, len(v.selected))
	for ts := range v.selected {
		out = append(out, ts)
	}
	slices.Sort(out)
	return out
}

// AllVisibleSelected is false when nothing is visible
func (v *View) AllVisibleSelected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.allVisibleSelected(v.visible())
}

func (v *View) allVisibleSelected(visible []models.HistoryEntry) bool {
	if len(visible) == 0 {
		return false
	}
	for _, e := range visible {
		if _, ok := v.selected[e.Timestamp]; !ok {
			return false
		}
	}
	return true
}

// ToggleSelectAllVisible deselects the visible entries if all of them are
// selected and selects them otherwise. Hidden selections are kept.
func (v *View) ToggleSelectAllVisible() {
	v.mu.Lock()
	defer v.mu.Unlock()
	visible := v.visible()
	if v.allVisibleSelected(visible) {
		for _, e := range visible {
			delete(v.selected, e.Timestamp)
		}
		return
	}
	for _, e := range visible {
		v.selected[e.Timestamp] = struct{}{}
	}
}

// DeleteSelected removes the selected entries, hidden ones included. The
// backend call is best effort: its failure is logged and the local list is
// pruned regardless. It returns how many entries were removed.
func (v *View) DeleteSelected(ctx context.Context) (int, error) {
	v.mu.Lock()
	if len(v.selected) == 0 {
		v.mu.Unlock()
		return 0, ErrNothingSelected
	}
	selected := make(map[string]struct{}, len(v.selected))
	var targets []models.HistoryEntry
	for ts := range v.selected {
		selected[ts] = struct{}{}
	}
	for _, e := range v.entries {
		if _, ok := selected[e.Timestamp]; ok {
			targets = append(targets, e)
		}
	}
	v.mu.Unlock()

	if len(targets) > 0 {
		if err := v.store.DeleteEntries(ctx, targets, v.token()); err != nil {
			log.WithError(err).WithField("count", len(targets)).Warn("history.delete.failed")
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	before := len(v.entries)
	v.entries = slices.DeleteFunc(v.entries, func(e models.HistoryEntry) bool {
		_, ok := selected[e.Timestamp]
		return ok
	})
	v.selected = map[string]struct{}{}
	removed := before - len(v.entries)
	log.WithField("count", removed).Info("history.delete.done")
	return removed, nil
}

// DeleteAll clears the history. Like DeleteSelected, the backend call is
// best effort and the local list is emptied regardless.
func (v *View) DeleteAll(ctx context.Context) int {
	v.mu.Lock()
	entries := slices.Clone(v.entries)
	v.mu.Unlock()

	if err := v.store.ClearHistory(ctx, entries, v.token()); err != nil {
		log.WithError(err).Warn("history.clear.failed")
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	removed := len(v.entries)
	v.entries = nil
	v.selected = map[string]struct{}{}
	log.WithField("count", removed).Info("history.clear.done")
	return removed
}

// Close drops the selection, as when leaving the screen
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = map[string]struct{}{}
}
