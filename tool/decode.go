package tool

import (
	"encoding/json"
	"fmt"
)

func decodeArgs[T any](args map[string]any) (T, error) {
	var out T

	data, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("encode arguments: %w", err)
	}

	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode arguments: %w", err)
	}

	return out, nil
}
