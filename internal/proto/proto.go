// Package proto implements the length-prefixed binary framing used between
// the game server and its clients. Every packet is a fixed 16-byte header,
// with multi-byte fields in network byte order, followed by an optional
// payload of exactly Header.Size bytes.
package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// PacketType identifies the purpose of a packet. The numeric values are part
// of the wire protocol and must not be reordered.
type PacketType uint8

const (
	NoPkt PacketType = iota

	// Requests from client to server.
	LoginPkt
	UsersPkt
	InvitePkt
	RevokePkt
	AcceptPkt
	DeclinePkt
	MovePkt
	ResignPkt

	// Responses and notifications from server to client.
	AckPkt
	NackPkt
	InvitedPkt
	RevokedPkt
	AcceptedPkt
	DeclinedPkt
	MovedPkt
	ResignedPkt
	EndedPkt
)

var packetNames = map[PacketType]string{
	NoPkt:       "NONE",
	LoginPkt:    "LOGIN",
	UsersPkt:    "USERS",
	InvitePkt:   "INVITE",
	RevokePkt:   "REVOKE",
	AcceptPkt:   "ACCEPT",
	DeclinePkt:  "DECLINE",
	MovePkt:     "MOVE",
	ResignPkt:   "RESIGN",
	AckPkt:      "ACK",
	NackPkt:     "NACK",
	InvitedPkt:  "INVITED",
	RevokedPkt:  "REVOKED",
	AcceptedPkt: "ACCEPTED",
	DeclinedPkt: "DECLINED",
	MovedPkt:    "MOVED",
	ResignedPkt: "RESIGNED",
	EndedPkt:    "ENDED",
}

func (t PacketType) String() string {
	if name, ok := packetNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// HeaderSize is the encoded size of a packet header in bytes.
const HeaderSize = 16

// DefaultMaxPayload bounds payload sizes when the caller does not supply
// its own limit.
const DefaultMaxPayload = 4096

// ErrPayloadTooLarge is returned by ReadPacket when the header announces a
// payload larger than the configured maximum. It terminates the session.
var ErrPayloadTooLarge = errors.New("payload exceeds maximum size")

// Header is the fixed preamble of every packet.
type Header struct {
	Type          PacketType
	ID            uint8
	Role          uint8
	Size          uint16
	TimestampSec  uint32
	TimestampNsec uint32
}

func (h *Header) encode(buf *[HeaderSize]byte) {
	buf[0] = byte(h.Type)
	buf[1] = h.ID
	buf[2] = h.Role
	buf[3] = 0 // reserved
	binary.BigEndian.PutUint16(buf[4:6], h.Size)
	binary.BigEndian.PutUint32(buf[6:10], h.TimestampSec)
	binary.BigEndian.PutUint32(buf[10:14], h.TimestampNsec)
	// buf[14:16] pad the header to 16 bytes and are always zero.
}

func (h *Header) decode(buf *[HeaderSize]byte) {
	h.Type = PacketType(buf[0])
	h.ID = buf[1]
	h.Role = buf[2]
	h.Size = binary.BigEndian.Uint16(buf[4:6])
	h.TimestampSec = binary.BigEndian.Uint32(buf[6:10])
	h.TimestampNsec = binary.BigEndian.Uint32(buf[10:14])
}

// WritePacket encodes hdr and payload onto w. The send timestamp is stamped
// into the header here, and hdr.Size is forced to len(payload). Concurrent
// writers on the same connection must serialize externally; the server does
// so with the per-client lock.
func WritePacket(w io.Writer, hdr *Header, payload []byte) error {
	hdr.Size = uint16(len(payload))
	now := time.Now()
	hdr.TimestampSec = uint32(now.Unix())
	hdr.TimestampNsec = uint32(now.Nanosecond())

	var buf [HeaderSize]byte
	hdr.encode(&buf)
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	}
	return nil
}

// ReadPacket reads exactly one packet from r, blocking until one is
// available. A clean half-close before any header byte is reported as
// io.EOF; EOF in the middle of a packet is an io.ErrUnexpectedEOF transport
// error. maxPayload <= 0 selects DefaultMaxPayload.
func ReadPacket(r io.Reader, maxPayload int) (Header, []byte, error) {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}

	var hdr Header
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return hdr, nil, io.EOF
		}
		return hdr, nil, fmt.Errorf("read header: %w", err)
	}
	hdr.decode(&buf)

	if int(hdr.Size) > maxPayload {
		return hdr, nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, hdr.Size, maxPayload)
	}
	if hdr.Size == 0 {
		return hdr, nil, nil
	}

	payload := make([]byte, hdr.Size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return hdr, nil, fmt.Errorf("read payload: %w", err)
	}
	return hdr, payload, nil
}
