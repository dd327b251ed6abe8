package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticCredential satisfies azcore.TokenCredential without a network.
type staticCredential struct{}

func (staticCredential) GetToken(_ context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "test-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func newTestAPI(serverURL string) *HTTPAPI {
	api := NewHTTPAPI(staticCredential{})
	api.SetBaseURL(serverURL)
	api.SetRetryConfig(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	})
	return api
}

func TestHTTPAPI_GetListFollowsNextLink(t *testing.T) {
	var gotAuth string
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Query().Get("page") {
		case "2":
			fmt.Fprint(w, `{"value": [{"id": "b"}]}`)
		default:
			fmt.Fprintf(w, `{"value": [{"id": "a"}], "@odata.nextLink": %q}`, server.URL+"/things?page=2")
		}
	}))
	defer server.Close()

	items, err := newTestAPI(server.URL).GetList(context.Background(), "things", nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.JSONEq(t, `{"id": "a"}`, string(items[0]))
	assert.JSONEq(t, `{"id": "b"}`, string(items[1]))
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestHTTPAPI_RetriesThrottledThenSucceeds(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error": {"code": "TooManyRequests", "message": "slow down"}}`)
			return
		}
		fmt.Fprint(w, `{"id": "ok"}`)
	}))
	defer server.Close()

	raw, err := newTestAPI(server.URL).Get(context.Background(), "things/1", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "ok"}`, string(raw))
	assert.Equal(t, 3, attempts)
}

func TestHTTPAPI_ClassifiesGraphErrorBody(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": {"code": "Authorization_RequestDenied", "message": "Insufficient privileges"}}`)
	}))
	defer server.Close()

	_, err := newTestAPI(server.URL).Get(context.Background(), "things/1", nil)
	require.Error(t, err)
	assert.Equal(t, KindPermissionDenied, KindOf(err))
	assert.Contains(t, err.Error(), "Authorization_RequestDenied")
	assert.Contains(t, err.Error(), "Insufficient privileges")
	// Permission failures are not retried.
	assert.Equal(t, 1, attempts)
}

func TestHTTPAPI_PatchSendsJSONBody(t *testing.T) {
	var gotBody map[string]any
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := newTestAPI(server.URL).Patch(context.Background(), "users/u1", map[string]any{"accountEnabled": true})
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, map[string]any{"accountEnabled": true}, gotBody)
}
