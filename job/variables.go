package job

import (
	"encoding/json"
	"fmt"
)

// Variables are the JSON variables of a job, a process instance or a message.
type Variables map[string]any

// Encode encodes the variables as JSON document, as expected by the gateway.
func (v Variables) Encode() (string, error) {
	if len(v) == 0 {
		return "{}", nil
	}

	b, err := json.Marshal(map[string]any(v))
	if err != nil {
		return "", fmt.Errorf("encoding variables: %w", err)
	}

	return string(b), nil
}

// Merge copies all entries of other into v.
func (v Variables) Merge(other Variables) {
	for name, value := range other {
		v[name] = value
	}
}

// DecodeVariables decodes a JSON document received from the gateway. An empty document decodes to
// empty variables.
func DecodeVariables(document string) (Variables, error) {
	v := Variables{}
	if document == "" {
		return v, nil
	}

	if err := json.Unmarshal([]byte(document), &v); err != nil {
		return nil, fmt.Errorf("decoding variables: %w", err)
	}

	return v, nil
}

// DecodeHeaders decodes the custom headers JSON document of an activated job.
func DecodeHeaders(document string) (map[string]string, error) {
	h := map[string]string{}
	if document == "" {
		return h, nil
	}

	if err := json.Unmarshal([]byte(document), &h); err != nil {
		return nil, fmt.Errorf("decoding custom headers: %w", err)
	}

	return h, nil
}
