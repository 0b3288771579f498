package codecs

import "errors"

// Errors returned by J2KDepacketizer.Ingest. None of them are fatal: the
// depayloader always recovers locally by discarding whatever scope
// (PU, tile or frame) is corrupt and waiting for the next resync
// marker. Callers may log them but should keep calling Ingest with
// subsequent packets.
var (
	errEmptyPacket   = errors.New("j2k: payload shorter than the header size")
	errWrongMhID     = errors.New("j2k: mh_id disagrees with the frame in progress")
	errFragmentGap   = errors.New("j2k: fragment offset gap, packetization unit discarded")
	errMissingHeader = errors.New("j2k: tile flushed with no cached main header for its mh_id")
	errInvalidTile   = errors.New("j2k: tile does not start with a valid SOT segment")
)
