package group

import (
	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

const codecName = "cbor"

// encMode uses Core Deterministic Encoding so identical deliveries always
// produce identical bytes on the wire.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("group: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("group: CBOR decoder initialization failed: " + err.Error())
	}
	encoding.RegisterCodec(cborCodec{})
}

// cborCodec carries gather messages over gRPC without generated protobuf code.
type cborCodec struct{}

func (cborCodec) Name() string {
	return codecName
}

func (cborCodec) Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func (cborCodec) Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
