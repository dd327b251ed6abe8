package report

import "encoding/json"

// RenderJSON renders the report document as indented JSON bytes.
func RenderJSON(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}
