// Package scan drives a leaf photo from selection through classification
// to a displayed result with a recommendation.
package scan

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/apex/log"

	"github.com/franckalain/riceguard/internal/api"
	"github.com/franckalain/riceguard/internal/imaging"
	"github.com/franckalain/riceguard/internal/models"
)

// Messages shown when an upload gets no usable answer
const (
	ScansConnectivityMessage  = "Failed to connect to backend. Please check if FastAPI is running."
	LegacyConnectivityMessage = "Failed to connect to backend. Ensure the Flask server is reachable from your device."
)

var (
	ErrNoImage          = errors.New("no image selected")
	ErrNotAuthenticated = errors.New("not logged in")
)

// UploadFailedError is returned by Submit when classification failed.
// The selected image is kept so the user can retry.
type UploadFailedError struct {
	Message string
	Err     error
}

func (e *UploadFailedError) Error() string { return e.Message }

func (e *UploadFailedError) Unwrap() error { return e.Err }

// TokenSource provides the current session token, "" when signed out
type TokenSource interface {
	Token() string
}

// Options tune a Workflow
type Options struct {
	PreviewDimension    int // 0 uses imaging.DefaultPreviewDimension
	UploadMaxDimension  int // 0 uploads the original bytes
	ModelVersion        string
	ConnectivityMessage string
}

// Workflow holds the state of the scan screen
type Workflow struct {
	backend api.Backend
	tokens  TokenSource
	opts    Options

	mu        sync.Mutex
	state     State
	image     *imaging.Image
	preview   *imaging.Preview
	notes     *string
	result    *models.ScanResult
	inflight  int
	observers []func(from, to State)
}

// New creates a workflow in the Idle state
func New(backend api.Backend, tokens TokenSource, opts Options) *Workflow {
	if opts.ConnectivityMessage == "" {
		opts.ConnectivityMessage = ScansConnectivityMessage
	}
	return &Workflow{backend: backend, tokens: tokens, opts: opts}
}

// OnTransition registers fn to be called after every state change
func (w *Workflow) OnTransition(fn func(from, to State)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, fn)
}

func (w *Workflow) transition(to State) {
	w.mu.Lock()
	from := w.state
	w.state = to
	observers := append([]func(from, to State){}, w.observers...)
	w.mu.Unlock()

	log.WithFields(log.Fields{"from": from.String(), "to": to.String()}).Debug("scan.state")
	for _, fn := range observers {
		fn(from, to)
	}
}

// State returns the current state
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Busy reports whether an upload is in flight
func (w *Workflow) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inflight > 0
}

// Preview returns the thumbnail of the selected image, if one could be built
func (w *Workflow) Preview() *imaging.Preview {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.preview
}

// Result returns the last completed scan
func (w *Workflow) Result() (models.ScanResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.result == nil {
		return models.ScanResult{}, false
	}
	return *w.result, true
}

// SetNotes attaches free-text notes to the next upload; nil removes them
func (w *Workflow) SetNotes(notes *string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notes = notes
}

// SelectImage replaces the selected image. The previous preview is released
// and any shown result is cleared.
func (w *Workflow) SelectImage(img *imaging.Image) error {
	if img == nil {
		return ErrNoImage
	}
	preview, err := imaging.NewPreview(img, w.opts.PreviewDimension)
	if err != nil {
		// the backend may still accept formats we cannot thumbnail
		log.WithError(err).WithField("name", img.Name).Warn("scan.preview.unavailable")
	}

	w.mu.Lock()
	old := w.preview
	w.image = img
	w.preview = preview
	w.result = nil
	w.mu.Unlock()

	if err := old.Release(); err != nil {
		log.WithError(err).Warn("scan.preview.release_failed")
	}
	w.transition(ImageSelected)
	return nil
}

// Submit uploads the selected image and resolves a recommendation for the
// returned label. Calls inside one submission run in order; concurrent
// submissions are not coordinated and the last one to finish wins.
func (w *Workflow) Submit(ctx context.Context) (*models.DisplayResult, error) {
	w.mu.Lock()
	img, notes := w.image, w.notes
	if img == nil {
		w.mu.Unlock()
		return nil, ErrNoImage
	}
	token := ""
	if w.tokens != nil {
		token = w.tokens.Token()
	}
	if token == "" {
		w.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	w.inflight++
	w.result = nil
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.inflight--
		w.mu.Unlock()
	}()

	w.transition(Uploading)
	ctxLog := log.WithFields(log.Fields{"name": img.Name, "bytes": len(img.Data)})
	ctxLog.Info("scan.upload.start")

	upload, err := imaging.Compress(img, w.opts.UploadMaxDimension)
	if err != nil {
		ctxLog.WithError(err).Warn("scan.upload.compress_failed")
		upload = img
	}

	cls, err := w.backend.Classify(ctx, api.UploadRequest{
		FileName:     upload.Name,
		ContentType:  upload.ContentType,
		Data:         upload.Data,
		Notes:        notes,
		ModelVersion: w.opts.ModelVersion,
	}, token)
	if err != nil {
		ctxLog.WithError(err).Error("scan.upload.failed")
		w.transition(Error)
		w.transition(ImageSelected)
		return nil, &UploadFailedError{Message: w.failureMessage(err), Err: err}
	}
	w.transition(ClassificationReceived)
	ctxLog.WithFields(log.Fields{
		"label":      cls.Label,
		"confidence": cls.Confidence.String(),
	}).Info("scan.upload.classified")

	w.transition(RecommendationResolving)
	text := w.resolveRecommendation(ctx, cls)

	result := models.ScanResult{
		DiseaseLabel:       cls.Label,
		Confidence:         cls.Confidence,
		RecommendationText: text,
		CapturedAt:         cls.CreatedAt,
	}
	w.mu.Lock()
	w.result = &result
	w.mu.Unlock()
	w.transition(Complete)

	display := DisplayOf(result)
	return &display, nil
}

// failureMessage keeps an explanation the server sent with a 2xx reply and
// replaces everything else with the connectivity message.
func (w *Workflow) failureMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusOK && apiErr.Err == nil {
		return apiErr.Detail
	}
	return w.opts.ConnectivityMessage
}

func (w *Workflow) resolveRecommendation(ctx context.Context, cls *models.Classification) string {
	if cls.Recommendation != "" {
		return cls.Recommendation
	}
	key := RecommendationKey(cls.Label)
	rec, err := w.backend.Recommendation(ctx, key)
	if err == nil {
		return strings.Join(rec.Steps, " ")
	}

	log.WithError(err).WithField("key", key).Warn("scan.recommendation.fallback")
	w.transition(Error)
	return FallbackRecommendation(cls.Label)
}

// Close releases the preview and resets the workflow, as when leaving the screen
func (w *Workflow) Close() error {
	w.mu.Lock()
	preview := w.preview
	w.preview = nil
	w.image = nil
	w.notes = nil
	w.result = nil
	w.mu.Unlock()

	err := preview.Release()
	w.transition(Idle)
	return err
}
