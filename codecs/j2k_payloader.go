package codecs

import "encoding/binary"

// J2KPayloader fragments a single complete JPEG 2000 codestream into
// RTP/J2K payloads (RFC 5371/5372). It scans the codestream for
// packetization-unit boundaries (SOP in the bitstream, SOT/SOD/EOC in
// the header) and packs as many PUs as fit under the MTU into each
// packet, splitting any PU that alone exceeds it.
//
// A J2KPayloader holds no state between calls to Payload; the scanner
// state below lives only for the duration of a single frame.
type J2KPayloader struct{}

type j2kScanState struct {
	header      j2kHeader
	bitstream   bool
	nTiles      int
	nextSot     int
	forcePacket bool
}

// scanMarker advances offset past the next marker-prefix byte and the
// marker identifier following it, returning the identifier. Running out
// of data before finding one returns j2kMarkerEOC as a sentinel, the
// same value a genuine EOC carries.
func scanMarker(data []byte, size int, offset *int) uint8 {
	for {
		b := data[*offset]
		*offset++
		if b == j2kMarkerPrefix || *offset >= size {
			break
		}
	}
	if *offset >= size {
		return j2kMarkerEOC
	}
	marker := data[*offset]
	*offset++

	return marker
}

// findPUEnd scans the codestream starting at offset and returns the
// offset where the current packetization unit ends, updating state's
// header and scan-mode fields along the way.
func findPUEnd(data []byte, size, offset int, state *j2kScanState) int {
	cutSOP := false

	for offset < size {
		marker := scanMarker(data, size, &offset)

		if state.bitstream {
			switch marker {
			case j2kMarkerSOP:
				if cutSOP {
					return offset - 2
				}
				cutSOP = true
			case j2kMarkerEPH:
				// skip over EPH
			default:
				if offset >= state.nextSot {
					state.bitstream = false
					state.forcePacket = true
					if marker == j2kMarkerEOC && state.nextSot+2 <= size {
						// include EOC but never go past the max size
						return state.nextSot + 2
					}

					return state.nextSot
				}
			}

			continue
		}

		switch marker {
		case j2kMarkerSOC:
			state.header.mhf = mhfStart
		case j2kMarkerSOT:
			// we found SOT but also had a header first
			if state.header.mhf != 0 {
				state.forcePacket = true

				return offset - 2
			}

			segLen, ok := j2kMarkerLen16(data, offset)
			if !ok || segLen < 8 || offset+segLen >= size {
				return size
			}

			if state.nTiles == 0 {
				state.header.t = 0 // first tile, T is valid
			} else {
				state.header.t = 1 // more tiles, T becomes invalid
			}
			state.header.tile = binary.BigEndian.Uint16(data[offset+2 : offset+4])
			state.nTiles++

			psot := binary.BigEndian.Uint32(data[offset+4 : offset+8])
			if psot == 0 {
				state.nextSot = size
			} else {
				state.nextSot = offset - 2 + int(psot)
			}
			offset += segLen
		case j2kMarkerSOD:
			state.nTiles = 0 // can't have more tiles now
			state.bitstream = true
			cutSOP = true // cut at the next SOP or else include all data
			state.forcePacket = true // headers are recommended to be packed separately
		case j2kMarkerEOC:
			return offset
		default:
			segLen, ok := j2kMarkerLen16(data, offset)
			if !ok {
				return size
			}
			offset += segLen
		}
	}

	return size
}

// Payload implements rtp.Payloader. mtu bounds the total packet size
// including the 8-byte RTP/J2K header; payload is one complete
// codestream for a single frame.
func (p *J2KPayloader) Payload(mtu int, payload []byte) [][]byte {
	maxDataSize := mtu - j2kHeaderSize
	if len(payload) == 0 || maxDataSize <= 0 {
		return nil
	}

	size := len(payload)
	state := &j2kScanState{
		header: j2kHeader{t: 1, priority: 255},
	}

	var packets [][]byte

	offset, pos, end := 0, 0, 0
	for offset < size {
		var puSize int
		for {
			puSize = end - offset

			if state.forcePacket {
				state.forcePacket = false
				pos = end

				break
			}

			if puSize > maxDataSize {
				if pos != offset {
					// the packet became too large, use the previous scan position
					puSize = pos - offset
				} else {
					// the already-scanned data was already too big; start scanning
					// again from the last searched position
					pos = end
				}

				break
			}

			pos = end
			if pos == size {
				break
			}
			end = findPUEnd(payload, size, pos, state)
		}

		for puSize > 0 {
			dataSize := puSize
			if dataSize > maxDataSize {
				dataSize = maxDataSize
			}
			puSize -= dataSize

			if puSize == 0 && state.header.mhf != 0 {
				// reached the end of a packetization unit that carried header
				// bytes: record whether it all fit in one packet
				if offset == 0 {
					state.header.mhf = mhfWhole
				} else {
					state.header.mhf = mhfEnd
				}
			}

			pkt := make([]byte, j2kHeaderSize+dataSize)
			state.header.marshalTo(pkt[:j2kHeaderSize])
			copy(pkt[j2kHeaderSize:], payload[offset:offset+dataSize])
			packets = append(packets, pkt)

			state.header.mhf = mhfNone
			state.header.t = 1
			state.header.tile = 0

			offset += dataSize
			state.header.fragOffset = uint32(offset)
		}
		offset = pos
	}

	return packets
}
