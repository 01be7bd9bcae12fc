package converter

import (
	"bytes"
	"encoding/json"
)

// JSON converts handler inputs and results to the compact JSON the gateway stores as variables.
// Characters such as < and & are kept as they are.
type JSON struct{}

func (JSON) To(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (JSON) From(data []byte, vptr any) error {
	return json.Unmarshal(data, vptr)
}
