package build

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoadPlanFile reads a Jailfile at path and parses it with whichever
// surface syntax its extension selects: ParseRecord for .yaml/.yml, the
// line-based ParseImperative otherwise.
func LoadPlanFile(path string) (*BuildPlan, error) {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open jailfile: %w", err)
		}
		defer f.Close()
		return ParseRecord(f)
	default:
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read jailfile: %w", err)
		}
		return ParseImperative(string(content))
	}
}
