package server

import (
	"bytes"
	"encoding/json"
)

// indent re-indents already encoded JSON, keeping key order.
func indent(dst *bytes.Buffer, src []byte) error {
	return json.Indent(dst, src, "", "  ")
}
