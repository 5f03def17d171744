package primitives

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// ComputeVersion returns config.Version when set, else a content hash of the
// chart: "sha256:" followed by the first 8 bytes of the digest of its JSON
// form. The hash is stable for identical charts.
func ComputeVersion(config *ChartConfig) string {
	if config.Version != "" {
		return config.Version
	}

	data, err := json.Marshal(config)
	if err != nil {
		return "invalid"
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("sha256:%x", hash[:8])
}
