// j2k-rtp-send reads a JPEG 2000 codestream file and streams it as RTP/J2K
// packets (RFC 5371/5372) to a UDP peer, one frame per invocation.
package main

import (
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/stweil/rtpj2k"
	"github.com/stweil/rtpj2k/codecs"
	"github.com/stweil/rtpj2k/internal/config"
)

var (
	configPath  string
	dialAddr    string
	mtu         int
	payloadType uint8
	clockRate   uint32
	ssrc        uint32
	codestream  string
	debug       bool
)

func init() {
	pflag.StringVarP(&configPath, "config", "c", "", "optional TOML config file")
	pflag.StringVarP(&dialAddr, "dial", "d", "", "peer address to send to, e.g. 127.0.0.1:5004")
	pflag.IntVarP(&mtu, "mtu", "m", 0, "maximum RTP packet size in bytes")
	pflag.Uint8Var(&payloadType, "payload-type", 0, "RTP dynamic payload type")
	pflag.Uint32Var(&clockRate, "clock-rate", 0, "RTP clock rate used to derive the frame timestamp")
	pflag.Uint32VarP(&ssrc, "ssrc", "s", 0x4A324B31, "RTP SSRC to send with")
	pflag.StringVarP(&codestream, "codestream", "f", "", "path to a raw JPEG 2000 codestream file (.j2k/.j2c) to send (required)")
	pflag.BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	pflag.Parse()

	logger := newLogger(debug)
	defer logger.Sync() //nolint:errcheck

	sessionID := uuid.New().String()
	logger = logger.With(zap.String("session", sessionID))

	if codestream == "" {
		logger.Fatal("missing required flag", zap.String("flag", "--codestream"))
	}

	cfg, err := config.Load(configPath, logger)
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}
	applyFlagOverrides(cfg)

	data, err := os.ReadFile(codestream)
	if err != nil {
		logger.Fatal("reading codestream", zap.String("path", codestream), zap.Error(err))
	}

	conn, err := net.Dial("udp", cfg.Network.DialAddr)
	if err != nil {
		logger.Fatal("dialing peer", zap.String("addr", cfg.Network.DialAddr), zap.Error(err))
	}
	defer conn.Close() //nolint:errcheck

	packetizer := rtp.NewFramePacketizer(
		uint16(cfg.Network.MTU), //nolint:gosec // G115, MTU fits uint16 in practice
		cfg.Session.PayloadType,
		ssrc,
		&codecs.J2KPayloader{},
		rtp.NewRandomSequencer(),
	)

	timestamp := uint32(time.Now().UnixNano() / int64(time.Second) * int64(cfg.Session.ClockRate)) //nolint:gosec // G115

	packets := packetizer.Packetize(data, timestamp)
	if len(packets) == 0 {
		logger.Fatal("payloader produced no packets", zap.Int("codestream_bytes", len(data)))
	}

	for _, pkt := range packets {
		raw, err := pkt.Marshal()
		if err != nil {
			logger.Fatal("marshaling packet", zap.Error(err))
		}
		if _, err := conn.Write(raw); err != nil {
			logger.Fatal("writing packet", zap.Error(err))
		}
	}

	packetCount, byteCount := packetizer.GetStats()
	logger.Info("sent frame",
		zap.String("peer", cfg.Network.DialAddr),
		zap.Int("codestream_bytes", len(data)),
		zap.Uint64("packets", packetCount),
		zap.Uint64("rtp_bytes", byteCount),
	)
}

func applyFlagOverrides(cfg *config.Config) {
	if dialAddr != "" {
		cfg.Network.DialAddr = dialAddr
	}
	if mtu != 0 {
		cfg.Network.MTU = mtu
	}
	if payloadType != 0 {
		cfg.Session.PayloadType = payloadType
	}
	if clockRate != 0 {
		cfg.Session.ClockRate = clockRate
	}
}

func newLogger(debug bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}

	return logger
}
