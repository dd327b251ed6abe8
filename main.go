// entraguard assesses and hardens the identity security posture of a
// Microsoft Entra tenant via Microsoft Graph.
package main

import (
	"os"
	"time"

	"github.com/entraguard/entraguard/cmd"
	"github.com/entraguard/entraguard/internal/audit"
	"github.com/entraguard/entraguard/internal/exitcode"
	"github.com/entraguard/entraguard/internal/output"
	_ "github.com/entraguard/entraguard/schemas"
)

func main() {
	start := time.Now()
	correlationID := audit.NewCorrelationID()

	if err := cmd.Execute(); err != nil {
		code := exitcode.Of(err)
		event := audit.BuildEvent(os.Args, correlationID, "failure", code, time.Since(start))
		_ = audit.Write(event)
		output.PrintError(err)
		os.Exit(code)
	}

	event := audit.BuildEvent(os.Args, correlationID, "success", exitcode.OK, time.Since(start))
	_ = audit.Write(event)
}
