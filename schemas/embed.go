// Package schemas embeds the JSON Schema files and registers them with the
// template package on import. CLI entry points should import this package
// with a blank identifier: import _ "github.com/entraguard/entraguard/schemas"
package schemas

import (
	"embed"

	"github.com/entraguard/entraguard/internal/template"
)

//go:embed template-v1.schema.json
var fs embed.FS

func init() {
	data, err := fs.ReadFile("template-v1.schema.json")
	if err != nil {
		panic("schemas: failed to read embedded template-v1.schema.json: " + err.Error())
	}
	template.SetSchema(data)
}
