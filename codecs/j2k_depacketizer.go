package codecs

import (
	"encoding/binary"

	"github.com/stweil/rtpj2k/pkg/adapter"
)

// mainHeaderSlots is the number of concurrent main-header variants the
// depacketizer can cache, one per 3-bit mh_id value.
const mainHeaderSlots = 8

// J2KDepacketizer reassembles a stream of RTP/J2K payloads (RFC
// 5371/5372) into codestream frames. It cascades three byte
// accumulators — a packetization-unit adapter, a tile adapter and a
// frame adapter — and caches up to 8 main headers keyed by mh_id so a
// later frame can be reassembled from a header it never received.
//
// A J2KDepacketizer is not safe for concurrent use; one instance serves
// one RTP session.
type J2KDepacketizer struct {
	puAdapter    adapter.List
	tileAdapter  adapter.List
	frameAdapter adapter.List

	mainHeaders [mainHeaderSlots]*adapter.Buffer

	// pendingFrames queues frames completed by a flush so that none is
	// lost when two flushes land inside a single Ingest call (e.g. a
	// one-packet-per-frame stream where a timestamp change and the
	// marker bit both trigger a flush). Ingest returns at most one
	// frame per call, oldest first.
	pendingFrames [][]byte

	lastRTPTime  uint32
	haveRTPTime  bool
	lastMhID     int // -1 means accept any
	lastTile     int // -1 means none
	puMHF        uint8
	nextFrag     uint32
	haveSync     bool
}

// NewJ2KDepacketizer returns a depacketizer ready to ingest the first
// packet of a stream.
func NewJ2KDepacketizer() *J2KDepacketizer {
	d := &J2KDepacketizer{}
	d.Reset()

	return d
}

// Reset clears all reassembly state, including cached main headers, as
// if the depacketizer had just been constructed. Useful after a seek.
func (d *J2KDepacketizer) Reset() {
	d.puAdapter.Clear()
	d.tileAdapter.Clear()
	d.frameAdapter.Clear()
	for i := range d.mainHeaders {
		d.mainHeaders[i] = nil
	}
	d.pendingFrames = nil
	d.haveRTPTime = false
	d.lastMhID = -1
	d.lastTile = -1
	d.puMHF = 0
	d.nextFrag = 0
	d.haveSync = false
}

// storeMainHeader caches buf under id, ignoring an id outside the valid
// 3-bit mh_id range. A negative id shows up when a packet carrying SOC
// and a whole main header arrives while the frame adapter still holds
// an unflushed frame with the same timestamp: the SOC branch in Ingest
// flushes that frame, which resets lastMhID to -1 before the header's
// own flushPU runs, so that header is not cached.
func (d *J2KDepacketizer) storeMainHeader(id int, buf *adapter.Buffer) {
	if id < 0 || id >= mainHeaderSlots {
		return
	}
	d.mainHeaders[id] = buf
}

// mainHeader looks up a cached header by id, treating an out-of-range
// id the same as one that was never stored.
func (d *J2KDepacketizer) mainHeader(id int) *adapter.Buffer {
	if id < 0 || id >= mainHeaderSlots {
		return nil
	}
	return d.mainHeaders[id]
}

func (d *J2KDepacketizer) clearPU() {
	d.puAdapter.Clear()
	d.haveSync = false
}

// flushPU moves the accumulated packetization unit into the tile
// adapter, or caches it as a main header if it carried one.
func (d *J2KDepacketizer) flushPU() {
	avail := d.puAdapter.Total()
	if avail == 0 {
		d.haveSync = false

		return
	}

	if d.puMHF == mhfNone {
		for _, buf := range d.puAdapter.TakeList(avail) {
			d.tileAdapter.Push(buf)
		}
	} else {
		mh := d.puAdapter.Take(avail)
		d.storeMainHeader(d.lastMhID, &mh)
	}

	d.haveSync = false
}

// flushTile moves the accumulated tile-part into the frame adapter,
// prefixing the frame with its main header the first time a tile
// arrives, and patching Psot to match the reassembled length.
func (d *J2KDepacketizer) flushTile() error {
	d.flushPU()

	avail := d.tileAdapter.Total()
	if avail == 0 {
		d.lastTile = -1

		return nil
	}

	if d.frameAdapter.Total() == 0 {
		mh := d.mainHeader(d.lastMhID)
		if mh == nil {
			d.tileAdapter.Clear()
			d.lastTile = -1

			return errMissingHeader
		}
		d.frameAdapter.Push(*mh)
	}

	var end [2]byte
	d.tileAdapter.Peek(avail-2, 2, end[:])
	nPsot := avail
	if end[0] == j2kMarkerPrefix && end[1] == j2kMarkerEOC {
		nPsot = avail - 2
	}

	bufs := d.tileAdapter.TakeList(avail)

	first := bufs[0]
	if first.Len() < 12 {
		d.lastTile = -1

		return errInvalidTile
	}
	fb := first.Bytes()
	if fb[0] == j2kMarkerPrefix && fb[1] == j2kMarkerSOT {
		psot := binary.BigEndian.Uint32(fb[6:10])
		if psot != uint32(nPsot) && psot != 0 {
			first = first.MakeWritable()
			first.PutUint32BE(6, uint32(nPsot))
			bufs[0] = first
		}
	} else {
		d.lastTile = -1

		return errInvalidTile
	}

	for _, buf := range bufs {
		d.frameAdapter.Push(buf)
	}

	d.lastTile = -1

	return nil
}

// flushFrame moves the accumulated frame out, appending an EOC marker
// if the stream didn't carry one, and queues it for delivery. If there
// was nothing to flush it only evicts the mh_id 0 header.
func (d *J2KDepacketizer) flushFrame() error {
	tileErr := d.flushTile()

	avail := d.frameAdapter.Total()
	if avail == 0 {
		// nothing accumulated yet: leave lastMhID/nextFrag/haveSync alone,
		// this call was just the speculative flush on a timestamp change or SOC
		d.storeMainHeader(0, nil)

		return tileErr
	}

	if avail > 2 {
		var end [2]byte
		d.frameAdapter.Peek(avail-2, 2, end[:])

		if end[0] != j2kMarkerPrefix || end[1] != j2kMarkerEOC {
			d.frameAdapter.Push(adapter.NewOwned([]byte{j2kMarkerPrefix, j2kMarkerEOC}))
			avail += 2
		}

		d.pendingFrames = append(d.pendingFrames, d.frameAdapter.Take(avail).Bytes())
	} else {
		d.frameAdapter.Clear()
	}

	// we accept any mh_id now
	d.lastMhID = -1
	d.nextFrag = 0
	d.haveSync = false
	// mh_id 0 is never retained across frames
	d.storeMainHeader(0, nil)

	return tileErr
}

// Ingest processes one received RTP/J2K payload. It returns the
// reassembled frame bytes once the packet that completes a frame (RTP
// marker set, or a new timestamp signaling the next frame) has been
// processed, and nil otherwise. A non-nil error describes a recovered,
// non-fatal defect in the stream; ingest always remains usable for the
// next packet regardless.
func (d *J2KDepacketizer) Ingest(payload []byte, timestamp uint32, marker bool) ([]byte, error) {
	if len(payload) < j2kHeaderSize {
		return nil, errEmptyPacket
	}

	if !d.haveRTPTime || d.lastRTPTime != timestamp {
		d.haveRTPTime = true
		d.lastRTPTime = timestamp
		d.flushFrame()
	}

	hdr, err := unmarshalJ2KHeader(payload)
	if err != nil {
		return d.takePendingFrame(), errEmptyPacket
	}

	mhID := int(hdr.mhID)
	if d.lastMhID == -1 {
		d.lastMhID = mhID
	} else if d.lastMhID != mhID {
		d.clearPU()
		return d.takePendingFrame(), errWrongMhID
	}

	body := payload[j2kHeaderSize:]
	j2klen := len(body)

	fragOffset := hdr.fragOffset
	gap := int64(fragOffset) - int64(d.nextFrag)
	d.nextFrag = fragOffset + uint32(j2klen)

	var ingestErr error
	if gap != 0 {
		d.clearPU()
		ingestErr = errFragmentGap
	}

	if j2klen > 2 && body[0] == j2kMarkerPrefix {
		switch body[1] {
		case j2kMarkerSOC:
			// timestamp change above should already have flushed the
			// previous frame, but SOC is authoritative
			d.flushFrame()
			d.haveSync = true
		case j2kMarkerSOT:
			if ferr := d.flushTile(); ferr != nil && ingestErr == nil {
				ingestErr = ferr
			}
			d.haveSync = true
			d.lastTile = int(hdr.tile)
		case j2kMarkerSOP:
			d.flushPU()
			if d.lastTile != int(hdr.tile) {
				if d.lastTile != -1 {
					if ferr := d.flushTile(); ferr != nil && ingestErr == nil {
						ingestErr = ferr
					}
				}
				d.lastTile = -1
				d.haveSync = false
			} else {
				d.haveSync = true
			}
		}
	}

	if d.haveSync {
		if d.puAdapter.Total() == 0 {
			d.puMHF = hdr.mhf
		}
		d.puAdapter.Push(adapter.NewShared(body))

		if hdr.mhf&mhfEnd != 0 {
			d.flushPU()
		}
	}

	if marker {
		if ferr := d.flushFrame(); ferr != nil && ingestErr == nil {
			ingestErr = ferr
		}
	}

	return d.takePendingFrame(), ingestErr
}

// takePendingFrame pops the oldest queued frame, if any.
func (d *J2KDepacketizer) takePendingFrame() []byte {
	if len(d.pendingFrames) == 0 {
		return nil
	}
	frame := d.pendingFrames[0]
	d.pendingFrames = d.pendingFrames[1:]

	return frame
}
