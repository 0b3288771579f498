package codecs

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeJ2KPacket(t *testing.T, mhf, mhID, tFlag uint8, tile uint16, fragOffset uint32, body []byte) []byte {
	t.Helper()

	h := j2kHeader{mhf: mhf, mhID: mhID, t: tFlag, priority: 255, tile: tile, fragOffset: fragOffset}
	buf := make([]byte, j2kHeaderSize+len(body))
	h.marshalTo(buf[:j2kHeaderSize])
	copy(buf[j2kHeaderSize:], body)

	return buf
}

// sotBody builds an SOT marker segment (12 bytes) with the given Psot.
func sotBody(isot uint16, psot uint32) []byte {
	buf := make([]byte, 12)
	buf[0], buf[1] = 0xFF, j2kMarkerSOT
	binary.BigEndian.PutUint16(buf[2:4], 10)
	binary.BigEndian.PutUint16(buf[4:6], isot)
	binary.BigEndian.PutUint32(buf[6:10], psot)
	buf[10], buf[11] = 0, 1

	return buf
}

func TestJ2KDepacketizerEmptyPacketRejected(t *testing.T) {
	d := NewJ2KDepacketizer()
	frame, err := d.Ingest([]byte{1, 2, 3}, 1, false)
	assert.Nil(t, frame)
	assert.ErrorIs(t, err, errEmptyPacket)
}

func TestJ2KDepacketizerWrongMhID(t *testing.T) {
	d := NewJ2KDepacketizer()

	soc := makeJ2KPacket(t, mhfWhole, 1, 1, 0, 0, []byte{0xFF, j2kMarkerSOC})
	_, err := d.Ingest(soc, 1, false)
	require.NoError(t, err)

	wrong := makeJ2KPacket(t, mhfNone, 2, 1, 0, 2, []byte{0x10, 0x20})
	_, err = d.Ingest(wrong, 1, false)
	assert.ErrorIs(t, err, errWrongMhID)
}

func TestJ2KDepacketizerFragmentGapDropsPU(t *testing.T) {
	d := NewJ2KDepacketizer()

	sop1 := makeJ2KPacket(t, mhfNone, 0, 0, 0, 0, []byte{0xFF, j2kMarkerSOP, 0xAA, 0xBB})
	_, err := d.Ingest(sop1, 1, false)
	require.NoError(t, err)

	// skip ahead: fragment offset should have been 4, use 10 instead
	sop2 := makeJ2KPacket(t, mhfNone, 0, 0, 0, 10, []byte{0xFF, j2kMarkerSOP, 0xCC, 0xDD})
	_, err = d.Ingest(sop2, 1, false)
	assert.ErrorIs(t, err, errFragmentGap)
}

// socHeaderBody is a stand-in whole main header: SOC plus two filler
// bytes so it is long enough (j2klen > 2) to be recognized as a sync
// marker by Ingest.
var socHeaderBody = []byte{0xFF, j2kMarkerSOC, 0xAA, 0xBB}

// Psot = 0 is the "extends to end of stream" sentinel and must be left
// untouched even if it disagrees with the reassembled length.
func TestJ2KDepacketizerPsotZeroSentinelUnchanged(t *testing.T) {
	d := NewJ2KDepacketizer()

	header := makeJ2KPacket(t, mhfWhole, 1, 1, 0, 0, socHeaderBody)
	_, err := d.Ingest(header, 1, false)
	require.NoError(t, err)

	body := append(sotBody(0, 0), []byte{0xFF, j2kMarkerSOD, 1, 2, 3, 4}...)
	tile := makeJ2KPacket(t, mhfNone, 1, 0, 0, uint32(len(socHeaderBody)), body)
	frame, err := d.Ingest(tile, 1, true)
	require.NoError(t, err)
	require.NotNil(t, frame)

	sotStart := len(socHeaderBody)
	psot := binary.BigEndian.Uint32(frame[sotStart+6 : sotStart+10])
	assert.Equal(t, uint32(0), psot)
}

// A Psot that disagrees with the reassembled tile-part length must be
// rewritten to match.
func TestJ2KDepacketizerPsotRewrite(t *testing.T) {
	d := NewJ2KDepacketizer()

	header := makeJ2KPacket(t, mhfWhole, 1, 1, 0, 0, socHeaderBody)
	_, err := d.Ingest(header, 1, false)
	require.NoError(t, err)

	sodAndBitstream := []byte{0xFF, j2kMarkerSOD, 1, 2, 3, 4, 5, 6}
	wrongPsot := uint32(500) // deliberately wrong
	body := append(sotBody(0, wrongPsot), sodAndBitstream...)
	tile := makeJ2KPacket(t, mhfNone, 1, 0, 0, uint32(len(socHeaderBody)), body)

	frame, err := d.Ingest(tile, 1, true)
	require.NoError(t, err)
	require.NotNil(t, frame)

	sotStart := len(socHeaderBody)
	actualTileLen := len(sotBody(0, wrongPsot)) + len(sodAndBitstream)
	psot := binary.BigEndian.Uint32(frame[sotStart+6 : sotStart+10])
	assert.Equal(t, uint32(actualTileLen), psot)
	assert.NotEqual(t, wrongPsot, psot)
}

func TestJ2KDepacketizerInvalidTileDropped(t *testing.T) {
	d := NewJ2KDepacketizer()

	header := makeJ2KPacket(t, mhfWhole, 1, 1, 0, 0, socHeaderBody)
	_, err := d.Ingest(header, 1, false)
	require.NoError(t, err)

	// SOT packet body lacking a real SOT segment (too short).
	badTile := makeJ2KPacket(t, mhfNone, 1, 0, 0, uint32(len(socHeaderBody)), []byte{0xFF, j2kMarkerSOT, 0, 1})
	_, err = d.Ingest(badTile, 1, true)
	assert.ErrorIs(t, err, errInvalidTile)
}

func TestJ2KDepacketizerMissingHeaderDropsTile(t *testing.T) {
	d := NewJ2KDepacketizer()

	body := append(sotBody(0, 0), []byte{0xFF, j2kMarkerSOD, 1, 2}...)
	tile := makeJ2KPacket(t, mhfNone, 3, 0, 0, 0, body)
	frame, err := d.Ingest(tile, 1, true)
	assert.ErrorIs(t, err, errMissingHeader)
	assert.Nil(t, frame)
}

// A stream that sent its mh_id=1 main header on frame A, then lost every
// header packet of frame B, must still reassemble frame B's tile using
// the cached header from frame A.
func TestJ2KDepacketizerMainHeaderReuseAcrossFrames(t *testing.T) {
	d := NewJ2KDepacketizer()

	headerA := makeJ2KPacket(t, mhfWhole, 1, 1, 0, 0, []byte{0xFF, j2kMarkerSOC, 0xAA, 0xBB})
	_, err := d.Ingest(headerA, 1, false)
	require.NoError(t, err)

	tileABody := append(sotBody(0, 0), []byte{0xFF, j2kMarkerSOD, 1, 2}...)
	tileA := makeJ2KPacket(t, mhfNone, 1, 0, 0, 4, tileABody)
	frameA, err := d.Ingest(tileA, 1, true)
	require.NoError(t, err)
	require.NotNil(t, frameA)

	// Frame B: only the tile arrives, header packets for mh_id=1 were lost.
	tileBBody := append(sotBody(0, 0), []byte{0xFF, j2kMarkerSOD, 9, 9, 9}...)
	tileB := makeJ2KPacket(t, mhfNone, 1, 0, 0, 0, tileBBody)
	frameB, err := d.Ingest(tileB, 2, true)
	require.NoError(t, err)
	require.NotNil(t, frameB)
	assert.Equal(t, []byte{0xFF, j2kMarkerSOC, 0xAA, 0xBB}, frameB[:4], "frame B must be prefixed with the cached mh_id=1 header")
}

// mh_id 0 is never retained across a frame boundary, even though it is
// usable within the frame that defined it.
func TestJ2KDepacketizerMhID0NotRetainedAcrossFrames(t *testing.T) {
	d := NewJ2KDepacketizer()

	headerA := makeJ2KPacket(t, mhfWhole, 0, 1, 0, 0, socHeaderBody)
	_, err := d.Ingest(headerA, 1, false)
	require.NoError(t, err)

	tileABody := append(sotBody(0, 0), []byte{0xFF, j2kMarkerSOD, 1, 2}...)
	tileA := makeJ2KPacket(t, mhfNone, 0, 0, 0, uint32(len(socHeaderBody)), tileABody)
	frameA, err := d.Ingest(tileA, 1, true)
	require.NoError(t, err)
	require.NotNil(t, frameA)

	// Frame B reuses mh_id=0 without resending the header: must be dropped.
	tileBBody := append(sotBody(0, 0), []byte{0xFF, j2kMarkerSOD, 9, 9}...)
	tileB := makeJ2KPacket(t, mhfNone, 0, 0, 0, 0, tileBBody)
	frameB, err := d.Ingest(tileB, 2, true)
	assert.ErrorIs(t, err, errMissingHeader)
	assert.Nil(t, frameB)
}

func TestJ2KDepacketizerReset(t *testing.T) {
	d := NewJ2KDepacketizer()

	header := makeJ2KPacket(t, mhfWhole, 1, 1, 0, 0, socHeaderBody)
	_, err := d.Ingest(header, 1, false)
	require.NoError(t, err)
	require.NotNil(t, d.mainHeaders[1], "header should have been cached before reset")

	d.Reset()
	assert.Equal(t, -1, d.lastMhID)
	assert.Equal(t, -1, d.lastTile)
	assert.Nil(t, d.mainHeaders[1])
}
