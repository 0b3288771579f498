package rtp

// FramePacketizer packetizes one complete payload — a single JPEG 2000
// codestream frame — at an explicit presentation timestamp into an ordered
// list of RTP packets. Unlike a packetizer for a continuous media sample
// stream, Packetize takes the
// timestamp explicitly instead of advancing it by a sample count: each
// call represents one independent frame, not a tick of a running clock.
type FramePacketizer interface {
	// Packetize payloads frame and returns one RTP packet per payloader
	// output entry. The last packet has its marker bit set.
	Packetize(frame []byte, timestamp uint32) []*Packet
	// GetStats returns the cumulative packet and byte counts produced by
	// this packetizer.
	GetStats() (packets uint64, bytes uint64)
}

type framePacketizer struct {
	mtu         uint16
	payloadType uint8
	ssrc        uint32
	payloader   Payloader
	sequencer   Sequencer

	numberOfPackets uint64
	sizeBytes       uint64
}

// NewFramePacketizer returns a FramePacketizer that fragments frames with
// payloader and numbers the resulting packets with sequencer.
func NewFramePacketizer(mtu uint16, payloadType uint8, ssrc uint32, payloader Payloader, sequencer Sequencer) FramePacketizer {
	return &framePacketizer{
		mtu:         mtu,
		payloadType: payloadType,
		ssrc:        ssrc,
		payloader:   payloader,
		sequencer:   sequencer,
	}
}

func (p *framePacketizer) Packetize(frame []byte, timestamp uint32) []*Packet {
	if len(frame) == 0 {
		return nil
	}

	// mtu bounds the whole RTP packet, so leave room for the 12-byte fixed header
	payloads := p.payloader.Payload(int(p.mtu)-12, frame)
	packets := make([]*Packet, len(payloads))

	for i, pp := range payloads {
		packets[i] = &Packet{
			Header: Header{
				Version:        2,
				Marker:         i == len(payloads)-1,
				PayloadType:    p.payloadType,
				SequenceNumber: p.sequencer.NextSequenceNumber(),
				Timestamp:      timestamp,
				SSRC:           p.ssrc,
			},
			Payload: pp,
		}
		p.numberOfPackets++
		p.sizeBytes += uint64(12 + len(pp))
	}

	return packets
}

func (p *framePacketizer) GetStats() (uint64, uint64) {
	return p.numberOfPackets, p.sizeBytes
}
