package resttp

import "fmt"

// ExtractData unwraps the task service's response envelope. Collection and
// entity endpoints respond with {"data": {<key>: ...}}; ExtractData returns
// the value stored under key. An explicit JSON null under key is a valid
// result and comes back as nil.
func ExtractData(payload map[string]any, key string) (any, error) {
	data, ok := payload["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("resttp: response has no data envelope")
	}
	v, ok := data[key]
	if !ok {
		return nil, fmt.Errorf("resttp: response envelope has no %q", key)
	}
	return v, nil
}
