package rtp

// Payloader payloads a buffer for use as one or more RTP packet payloads.
type Payloader interface {
	Payload(mtu int, payload []byte) [][]byte
}
