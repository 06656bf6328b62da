package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/danpilch/foldjson/pkg/output"
)

// OutputPath derives the output file for input inside dir, replacing the
// input's extensions with the format's. A ".gz" suffix is dropped first.
func OutputPath(input, dir string, format output.Format) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == StdStream {
		base = "stdin"
	}
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, base+format.Extension())
}
