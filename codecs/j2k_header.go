package codecs

import "errors"

// j2kHeaderSize is the fixed size of the RTP/J2K payload header defined
// by RFC 5371 section 3.1, in bytes, before the codestream slice.
const j2kHeaderSize = 8

var errJ2KHeaderTooSmall = errors.New("j2k: payload shorter than the 8-byte RTP header")

// j2kHeader is the RFC 5371 payload header carried by every RTP/J2K
// packet:
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|tp |MHF|mh_id|T|     priority  |           tile number        |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|   reserved    |                fragment offset                |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type j2kHeader struct {
	tp         uint8 // progression type: 0 progressive (only value emitted; not checked on ingest)
	mhf        uint8 // main-header fragment flag
	mhID       uint8 // main-header identifier, 0..7
	t          uint8 // tile field invalid flag
	priority   uint8
	tile       uint16
	fragOffset uint32 // 24 bits on the wire
}

// Main-header fragment flag values.
const (
	mhfNone  = 0 // no header bytes in this packet
	mhfStart = 1 // first fragment of a main header
	mhfEnd   = 2 // last fragment of a main header
	mhfWhole = 3 // whole main header fits in this packet
)

func (h j2kHeader) marshalTo(buf []byte) {
	buf[0] = (h.tp << 6) | (h.mhf << 4) | (h.mhID << 1) | h.t
	buf[1] = h.priority
	buf[2] = byte(h.tile >> 8)
	buf[3] = byte(h.tile)
	buf[4] = 0
	buf[5] = byte(h.fragOffset >> 16)
	buf[6] = byte(h.fragOffset >> 8)
	buf[7] = byte(h.fragOffset)
}

func unmarshalJ2KHeader(buf []byte) (j2kHeader, error) {
	if len(buf) < j2kHeaderSize {
		return j2kHeader{}, errJ2KHeaderTooSmall
	}

	return j2kHeader{
		tp:         buf[0] >> 6,
		mhf:        (buf[0] >> 4) & 0x3,
		mhID:       (buf[0] >> 1) & 0x7,
		t:          buf[0] & 0x1,
		priority:   buf[1],
		tile:       uint16(buf[2])<<8 | uint16(buf[3]),
		fragOffset: uint32(buf[5])<<16 | uint32(buf[6])<<8 | uint32(buf[7]),
	}, nil
}
