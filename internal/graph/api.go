package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

const (
	defaultBaseURL = "https://graph.microsoft.com/v1.0"

	// TokenScope is the OAuth scope requested for all directory calls.
	TokenScope = "https://graph.microsoft.com/.default"
)

// API is the low-level transport for directory calls. The typed Client sits
// on top; tests substitute a fake.
type API interface {
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
	GetList(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
	Patch(ctx context.Context, path string, body any) error
}

// HTTPAPI talks to Microsoft Graph over REST using an Azure token credential.
// The credential handle is shared by all probes and the reconciler; HTTPAPI
// never mutates it after construction.
type HTTPAPI struct {
	credential azcore.TokenCredential
	httpClient *http.Client
	baseURL    string
	retryCfg   RetryConfig
}

// NewHTTPAPI wires a Graph transport for the given credential. Throttled
// responses are retried with backoff per DefaultRetryConfig.
func NewHTTPAPI(credential azcore.TokenCredential) *HTTPAPI {
	return &HTTPAPI{
		credential: credential,
		httpClient: http.DefaultClient,
		baseURL:    defaultBaseURL,
		retryCfg:   DefaultRetryConfig(),
	}
}

// SetRetryConfig overrides the throttling backoff behavior.
func (a *HTTPAPI) SetRetryConfig(cfg RetryConfig) {
	a.retryCfg = cfg
}

// SetBaseURL overrides the Graph endpoint (sovereign clouds, test servers).
func (a *HTTPAPI) SetBaseURL(base string) {
	a.baseURL = strings.TrimRight(base, "/")
}

// Get fetches a single resource.
func (a *HTTPAPI) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return a.do(ctx, http.MethodGet, a.urlFor(path, query), nil)
}

// GetList fetches a collection, following @odata.nextLink until exhausted.
func (a *HTTPAPI) GetList(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	next := a.urlFor(path, query)
	out := make([]json.RawMessage, 0)
	for next != "" {
		raw, err := a.do(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}
		var page struct {
			Value    []json.RawMessage `json:"value"`
			NextLink string            `json:"@odata.nextLink"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, NewError(KindUnknown, "decoding collection page for %s: %v", path, err)
		}
		out = append(out, page.Value...)
		next = page.NextLink
	}
	return out, nil
}

// Post creates a resource and returns the created representation.
func (a *HTTPAPI) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return a.do(ctx, http.MethodPost, a.urlFor(path, nil), body)
}

// Patch updates a resource in place.
func (a *HTTPAPI) Patch(ctx context.Context, path string, body any) error {
	_, err := a.do(ctx, http.MethodPatch, a.urlFor(path, nil), body)
	return err
}

func (a *HTTPAPI) urlFor(path string, query url.Values) string {
	u := a.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (a *HTTPAPI) do(ctx context.Context, method, rawURL string, body any) (json.RawMessage, error) {
	return retry(ctx, a.retryCfg, func() (json.RawMessage, error) {
		return a.doOnce(ctx, method, rawURL, body)
	})
}

func (a *HTTPAPI) doOnce(ctx context.Context, method, rawURL string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, NewError(KindValidation, "encoding request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, NewError(KindUnknown, "building request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := a.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{TokenScope}})
	if err != nil {
		return nil, NewError(KindPermissionDenied, "acquiring directory token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, NewError(KindUnknown, "%s %s: %v", method, rawURL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(KindUnknown, "reading response body: %v", err)
	}

	if resp.StatusCode >= 400 {
		return nil, FromStatus(resp.StatusCode, errorMessage(payload, resp.StatusCode))
	}
	return payload, nil
}

// errorMessage pulls the Graph error body's message when present.
func errorMessage(payload []byte, status int) string {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Error.Message != "" {
		if body.Error.Code != "" {
			return fmt.Sprintf("%s: %s", body.Error.Code, body.Error.Message)
		}
		return body.Error.Message
	}
	return http.StatusText(status)
}
