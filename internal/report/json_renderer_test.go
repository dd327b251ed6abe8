package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entraguard/entraguard/internal/discovery"
	"github.com/entraguard/entraguard/internal/graph"
)

func TestRenderJSON_RoundTripsDocument(t *testing.T) {
	snapshot := healthySnapshot()
	snapshot.SecureScore = discovery.Failed[discovery.SecureScoreStatus](graph.FromStatus(403, "denied"))
	doc := Synthesize(snapshot)

	rendered, err := RenderJSON(doc)
	require.NoError(t, err)

	var parsed Document
	require.NoError(t, json.Unmarshal(rendered, &parsed))
	assert.Equal(t, doc.CapturedAt, parsed.CapturedAt)
	assert.Equal(t, doc.AccessPolicies, parsed.AccessPolicies)
	assert.Equal(t, doc.Unavailable, parsed.Unavailable)
	assert.Nil(t, parsed.SecureScore)
}

func TestRenderJSON_AgreesWithMarkdown(t *testing.T) {
	// Both renderings are views of the same document, so figures visible
	// in one must appear in the other.
	doc := Synthesize(healthySnapshot())

	rendered, err := RenderJSON(doc)
	require.NoError(t, err)
	md := RenderMarkdown(doc)

	assert.Contains(t, string(rendered), `"currentScore": 43`)
	assert.Contains(t, md, "43.00 / 100.00")
	assert.Contains(t, string(rendered), `"mfaCapablePercentage": 66.67`)
	assert.Contains(t, md, "66.67%")
}
