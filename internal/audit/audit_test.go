package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildEvent_InfersFieldsFromArgs(t *testing.T) {
	event := BuildEvent([]string{"entraguard", "harden", "--tenant-id", "a1b2c3", "--yes"}, "corr-1", "failure", 4, 1500*time.Millisecond)

	assert.Equal(t, "harden", event.Operation)
	assert.Equal(t, "a1b2c3", event.Tenant)
	assert.Equal(t, 4, event.ExitCode)
	assert.Equal(t, int64(1500), event.DurationMs)
	assert.Equal(t, "corr-1", event.CorrelationID)
}

func TestBuildEvent_NoSubcommand(t *testing.T) {
	event := BuildEvent([]string{"entraguard", "--version"}, "corr-2", "success", 0, 0)
	assert.Equal(t, "root", event.Operation)
	assert.Empty(t, event.Tenant)
}

func TestNewCorrelationID_Unique(t *testing.T) {
	assert.NotEqual(t, NewCorrelationID(), NewCorrelationID())
}
