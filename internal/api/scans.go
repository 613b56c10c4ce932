package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/franckalain/riceguard/internal/models"
)

// DeleteResult is the response of a single scan deletion
type DeleteResult struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Register creates an account
func (c *Client) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	const generic = "Register failed"
	body, err := jsonBody(map[string]string{"name": name, "email": email, "password": password})
	if err != nil {
		return nil, &Error{Kind: ErrRegistration, Detail: generic, Err: err}
	}
	resp, err := do(ctx, c.http, call{
		kind:    ErrRegistration,
		generic: generic,
		method:  http.MethodPost,
		url:     c.baseURL + "/auth/register",
		body:    body,
		ctype:   "application/json",
	}, detailOrGeneric(generic))
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := decode(resp, &user, ErrRegistration, generic); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for an access token
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	const generic = "Login failed"
	body, err := jsonBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, &Error{Kind: ErrAuth, Detail: generic, Err: err}
	}
	resp, err := do(ctx, c.http, call{
		kind:    ErrAuth,
		generic: generic,
		method:  http.MethodPost,
		url:     c.baseURL + "/auth/login",
		body:    body,
		ctype:   "application/json",
	}, detailOrGeneric(generic))
	if err != nil {
		return nil, err
	}
	var auth models.AuthResponse
	if err := decode(resp, &auth, ErrAuth, generic); err != nil {
		return nil, err
	}
	return &auth, nil
}

// UploadScan submits an image for classification. The backend stores the
// scan as part of the same request.
func (c *Client) UploadScan(ctx context.Context, up UploadRequest, token string) (*models.ScanItem, error) {
	const generic = "Upload failed"
	var fields [][2]string
	if up.Notes != nil {
		fields = append(fields, [2]string{"notes", *up.Notes})
	}
	version := up.ModelVersion
	if version == "" {
		version = DefaultModelVersion
	}
	fields = append(fields, [2]string{"modelVersion", version})

	body, ctype, err := multipartBody(up, fields)
	if err != nil {
		return nil, &Error{Kind: ErrUpload, Detail: generic, Err: err}
	}
	resp, err := do(ctx, c.http, call{
		kind:    ErrUpload,
		generic: generic,
		method:  http.MethodPost,
		url:     c.baseURL + "/scans",
		token:   token,
		body:    body,
		ctype:   ctype,
	}, detailOrGeneric(generic))
	if err != nil {
		return nil, err
	}
	var item models.ScanItem
	if err := decode(resp, &item, ErrUpload, generic); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListScans returns the signed-in user's scans, newest first
func (c *Client) ListScans(ctx context.Context, token string) ([]models.ScanItem, error) {
	const generic = "Fetch scans failed"
	resp, err := do(ctx, c.http, call{
		kind:    ErrFetchScans,
		generic: generic,
		method:  http.MethodGet,
		url:     c.baseURL + "/scans",
		token:   token,
	}, detailOrGeneric(generic))
	if err != nil {
		return nil, err
	}
	var out struct {
		Items []models.ScanItem `json:"items"`
	}
	if err := decode(resp, &out, ErrFetchScans, generic); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// DeleteScan removes one scan
func (c *Client) DeleteScan(ctx context.Context, id, token string) (*DeleteResult, error) {
	const generic = "Delete scan failed"
	resp, err := do(ctx, c.http, call{
		kind:    ErrDelete,
		generic: generic,
		method:  http.MethodDelete,
		url:     c.baseURL + "/scans/" + url.PathEscape(id),
		token:   token,
	}, detailOrGeneric(generic))
	if err != nil {
		return nil, err
	}
	var out DeleteResult
	if err := decode(resp, &out, ErrDelete, generic); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkDeleteScans removes several scans and returns how many were deleted
func (c *Client) BulkDeleteScans(ctx context.Context, ids []string, token string) (int, error) {
	const generic = "Bulk delete failed"
	if ids == nil {
		ids = []string{}
	}
	body, err := jsonBody(map[string][]string{"ids": ids})
	if err != nil {
		return 0, &Error{Kind: ErrBulkDelete, Detail: generic, Err: err}
	}
	resp, err := do(ctx, c.http, call{
		kind:    ErrBulkDelete,
		generic: generic,
		method:  http.MethodPost,
		url:     c.baseURL + "/scans/bulk-delete",
		token:   token,
		body:    body,
		ctype:   "application/json",
	}, detailOrGeneric(generic))
	if err != nil {
		return 0, err
	}
	var out struct {
		DeletedCount int `json:"deletedCount"`
	}
	if err := decode(resp, &out, ErrBulkDelete, generic); err != nil {
		return 0, err
	}
	return out.DeletedCount, nil
}

// GetRecommendation looks up guidance for a canonical disease key
func (c *Client) GetRecommendation(ctx context.Context, diseaseKey string) (*models.Recommendation, error) {
	const generic = "Fetch recommendation failed"
	resp, err := do(ctx, c.http, call{
		kind:    ErrLookup,
		generic: generic,
		method:  http.MethodGet,
		url:     c.baseURL + "/recommendations/" + url.PathEscape(diseaseKey),
	}, detailOrGeneric(generic))
	if err != nil {
		return nil, err
	}
	var rec models.Recommendation
	if err := decode(resp, &rec, ErrLookup, generic); err != nil {
		return nil, err
	}
	return &rec, nil
}
