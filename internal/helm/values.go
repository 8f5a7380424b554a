package helm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Values represents helm chart values as a map.
type Values map[string]any

// Merge combines multiple value maps, later maps taking precedence. Nested
// maps are merged recursively so an overlay can override a single leaf
// without clobbering its siblings.
func Merge(valueMaps ...Values) Values {
	result := make(Values)
	for _, m := range valueMaps {
		mergeInto(result, m)
	}
	return result
}

func mergeInto(dst Values, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		if !srcIsMap {
			dst[k] = v
			continue
		}
		dstMap, dstIsMap := dst[k].(map[string]any)
		if !dstIsMap {
			dstMap = make(map[string]any)
			dst[k] = dstMap
		}
		mergeInto(dstMap, srcMap)
	}
}

// FromYAML parses YAML bytes into Values.
func FromYAML(data []byte) (Values, error) {
	var values Values
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse YAML values: %w", err)
	}
	return values, nil
}

// LoadFiles reads an ordered list of value overlay files and merges them,
// later files taking precedence.
func LoadFiles(paths []string) (Values, error) {
	merged := make(Values)
	for _, path := range paths {
		// #nosec G304
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read values file %s: %w", path, err)
		}
		values, err := FromYAML(data)
		if err != nil {
			return nil, fmt.Errorf("values file %s: %w", path, err)
		}
		merged = Merge(merged, values)
	}
	return merged, nil
}
