package surface

import (
	"encoding/json"
	"io"

	"github.com/bcaengine/bcaengine/pkg/bca"
)

// JSONRenderer marshals the run summary to indented JSON. Output tables are
// not included.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(w io.Writer, result *bca.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
