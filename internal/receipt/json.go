package receipt

import "encoding/json"

// unmarshalReceipt decodes a receipt read back from disk. Reading
// tolerates unknown fields (forward-compatible); only writing enforces
// the strict JCS schema (spec §6).
func unmarshalReceipt(data []byte, r *Receipt) error {
	return json.Unmarshal(data, r)
}
