package transport

import "encoding/json"

// -----------------------------------------------------------------------------
// JSON wire codec
// -----------------------------------------------------------------------------

// CodecName as announced in the grpc content subtype.
const CodecName = "json"

// JSONCodec marshals plain structs onto the wire. The feed speaks JSON
// frames, so no generated message types are involved on either side.
type JSONCodec struct{}

func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) Name() string {
	return CodecName
}
