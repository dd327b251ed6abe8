// Package templates embeds the builtin baseline template set. The builtin
// set is what plan and harden use when no --templates directory is given.
package templates

import (
	"embed"

	"github.com/entraguard/entraguard/internal/template"
)

//go:embed builtin/*.yaml
var FS embed.FS

// Builtin returns a store over the embedded baseline templates.
func Builtin() *template.Store {
	return template.NewStore(FS, "builtin")
}
