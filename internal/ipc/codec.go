// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// codecName is registered as the gRPC content-subtype; both client and
// server force it via grpc.ForceCodec/grpc.ForceServerCodec so Request and
// Response travel as gob-encoded bytes instead of protobuf.
const codecName = "gob"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec implements encoding.Codec (grpc's server/client codec-override
// extension point) directly over Go's gob encoding, avoiding a
// .proto/codegen step for a protocol whose messages are plain Go structs.
// Exported so internal/ipc/client can pass it to grpc.ForceCodec, which
// takes a codec value rather than a registered name.
type Codec struct{}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (Codec) Name() string {
	return codecName
}
