package crypto

import "fmt"

// EncryptParams encrypts every string-valued entry of a capability's params
// map. Nested maps and non-string values pass through unchanged. A nil key
// disables encryption (returns params unchanged).
func EncryptParams(params map[string]any, key []byte) (map[string]any, error) {
	if key == nil || len(params) == 0 {
		return params, nil
	}

	out := make(map[string]any, len(params))
	for k, v := range params {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}

		enc, err := Encrypt(s, key)
		if err != nil {
			return nil, fmt.Errorf("encrypt param %q: %w", k, err)
		}
		out[k] = enc
	}

	return out, nil
}

// DecryptParams reverses EncryptParams. Values without the "enc:" prefix
// pass through unchanged, so plaintext rows written before encryption was
// enabled remain readable.
func DecryptParams(params map[string]any, key []byte) (map[string]any, error) {
	if len(params) == 0 {
		return params, nil
	}

	out := make(map[string]any, len(params))
	for k, v := range params {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}

		dec, err := Decrypt(s, key)
		if err != nil {
			return nil, fmt.Errorf("decrypt param %q: %w", k, err)
		}
		out[k] = dec
	}

	return out, nil
}
