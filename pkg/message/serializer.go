package message

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/sessamekesh/universe-client/pkg/datastream"
	"github.com/sessamekesh/universe-client/pkg/errors"
)

const (
	frameFlag_Compressed uint8 = 0b1

	DefaultMaxPacketSize        = 64 * 1024 * 1024
	DefaultCompressionThreshold = 64
)

// PacketSerializer turns packets into frames and back. A frame is one type
// byte, one flags byte, then the body, lz4 compressed when the compressed flag
// is set.
//
// Compression is only ever produced when Compression is set; compressed
// frames are accepted either way so a peer that negotiated compression before
// the local side flipped its flag is still understood.
type PacketSerializer struct {
	Compression          bool
	CompressionThreshold int
	MaxPacketSize        int
}

func CreatePacketSerializer(compression bool) PacketSerializer {
	return PacketSerializer{
		Compression:          compression,
		CompressionThreshold: DefaultCompressionThreshold,
		MaxPacketSize:        DefaultMaxPacketSize,
	}
}

func (s PacketSerializer) maxSize() int {
	if s.MaxPacketSize <= 0 {
		return DefaultMaxPacketSize
	}
	return s.MaxPacketSize
}

func (s PacketSerializer) SerializePacket(packet Packet) ([]byte, error) {
	if packet == nil {
		return nil, &errors.MissingFieldError{
			MessageName: "Frame",
			FieldName:   "Packet",
		}
	}
	if packet.Type() >= PacketType_NONE {
		return nil, &errors.InvalidEnumValue{
			EnumName: "PacketType",
			IntValue: uint8(packet.Type()),
		}
	}

	w := datastream.NewWriter()
	packet.Write(w)
	body := w.Bytes()

	if len(body) > s.maxSize() {
		return nil, &errors.PacketTooLarge{
			PacketType: packet.Type().String(),
			Size:       len(body),
			Limit:      s.maxSize(),
		}
	}

	var flags uint8
	if s.Compression && len(body) >= s.CompressionThreshold {
		compressed, err := compress(body)
		if err != nil {
			return nil, err
		}
		// Incompressible bodies go out as-is.
		if len(compressed) < len(body) {
			body = compressed
			flags |= frameFlag_Compressed
		}
	}

	out := make([]byte, 0, len(body)+2)
	out = append(out, uint8(packet.Type()), flags)
	return append(out, body...), nil
}

func (s PacketSerializer) Parse(frame []byte) (Packet, error) {
	if len(frame) < 2 {
		return nil, &errors.Underflow{
			MessageName: "Frame",
			MsgSize:     len(frame),
			MinimumSize: 2,
		}
	}

	packet, err := newPacket(PacketType(frame[0]))
	if err != nil {
		return nil, err
	}

	body := frame[2:]
	if frame[1]&frameFlag_Compressed != 0 {
		body, err = decompress(body, s.maxSize())
		if err != nil {
			return nil, err
		}
	}
	if len(body) > s.maxSize() {
		return nil, &errors.PacketTooLarge{
			PacketType: packet.Type().String(),
			Size:       len(body),
			Limit:      s.maxSize(),
		}
	}

	if err := packet.Read(datastream.NewReader(body, packet.Type().String())); err != nil {
		return nil, err
	}
	return packet, nil
}

func compress(src []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := lz4.NewWriter(buf)
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(src []byte, limit int) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(src))
	out, err := io.ReadAll(io.LimitReader(zr, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if len(out) > limit {
		return nil, &errors.PacketTooLarge{
			PacketType: "decompressed frame",
			Size:       len(out),
			Limit:      limit,
		}
	}
	return out, nil
}
