package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// DefaultModelVersion is sent with uploads when none is configured
const DefaultModelVersion = "1.0"

// NewHTTPClient returns the client used for backend calls. A zero timeout
// leaves requests bounded only by the platform's own limits.
func NewHTTPClient(timeoutSeconds int) *http.Client {
	c := &http.Client{}
	if timeoutSeconds > 0 {
		c.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return c
}

// UploadRequest is one image submitted for classification
type UploadRequest struct {
	FileName     string
	ContentType  string
	Data         []byte
	Notes        *string
	ModelVersion string
}

// Client talks to the /scans backend contract. It keeps no state between
// calls and may be used from several goroutines.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API rooted at baseURL (e.g. http://127.0.0.1:8000/api/v1)
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BaseURL returns the API root the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BuildImageURL turns an image path stored by the backend into an absolute URL
func (c *Client) BuildImageURL(relPath string) string {
	return BuildImageURL(c.baseURL, relPath)
}

var (
	apiVersionSuffix = regexp.MustCompile(`(?i)/?api/?v\d+.*`)
	absoluteURL      = regexp.MustCompile(`(?i)^https?://`)
)

// BackendOrigin strips the versioned API path from baseURL
// ("http://host:8000/api/v1" -> "http://host:8000").
func BackendOrigin(baseURL string) string {
	return strings.TrimSuffix(apiVersionSuffix.ReplaceAllString(baseURL, ""), "/")
}

// BuildImageURL resolves relPath against the backend origin of baseURL.
// Absolute URLs are returned unchanged and an empty path yields "".
func BuildImageURL(baseURL, relPath string) string {
	if relPath == "" {
		return ""
	}
	if absoluteURL.MatchString(relPath) {
		return relPath
	}
	return BackendOrigin(baseURL) + "/" + strings.TrimLeft(relPath, "/")
}

// call is one request/response exchange with a backend
type call struct {
	kind    error
	generic string
	method  string
	url     string
	token   string
	body    io.Reader
	ctype   string
	accept  string
}

type detailBody struct {
	Detail any `json:"detail"`
}

// do sends the request and returns the body of a 2xx response. Any other
// outcome becomes an *Error carrying the call's kind.
func do(ctx context.Context, hc *http.Client, cl call, detailFn func(status int, body []byte) string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, cl.method, cl.url, cl.body)
	if err != nil {
		return nil, &Error{Kind: cl.kind, Detail: cl.generic, Err: fmt.Errorf("creating request: %w", err)}
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if cl.ctype != "" {
		req.Header.Set("Content-Type", cl.ctype)
	}
	if cl.accept != "" {
		req.Header.Set("Accept", cl.accept)
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	ctxLog := log.WithFields(log.Fields{
		"method":     cl.method,
		"url":        cl.url,
		"request_id": requestID,
	})
	start := time.Now()

	resp, err := hc.Do(req)
	if err != nil {
		ctxLog.WithError(err).Warn("api.request.unreachable")
		return nil, &Error{Kind: cl.kind, Detail: cl.generic, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: cl.kind, Detail: cl.generic, Err: fmt.Errorf("reading response: %w", err)}
	}

	ctxLog.WithFields(log.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("api.request.done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: cl.kind, Status: resp.StatusCode, Detail: detailFn(resp.StatusCode, body)}
	}
	return body, nil
}

// detailOrGeneric prefers the backend's "detail" string over a fallback message
func detailOrGeneric(generic string) func(int, []byte) string {
	return func(_ int, body []byte) string {
		var db detailBody
		if err := json.Unmarshal(body, &db); err == nil {
			if s, ok := db.Detail.(string); ok && s != "" {
				return s
			}
		}
		return generic
	}
}

func decode(body []byte, out any, kind error, generic string) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: kind, Status: http.StatusOK, Detail: generic, Err: fmt.Errorf("parsing response: %w", err)}
	}
	return nil
}

func jsonBody(payload any) (io.Reader, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody encodes an upload as a form with a "file" part and the
// given extra text fields, in order.
func multipartBody(up UploadRequest, fields [][2]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := up.FileName
	if name == "" {
		name = "photo.jpg"
	}
	ctype := up.ContentType
	if ctype == "" {
		ctype = "image/jpeg"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", ctype)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(up.Data); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
