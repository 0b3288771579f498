// j2k-rtp-recv listens for RTP/J2K packets (RFC 5371/5372) on a UDP socket,
// reassembles them into JPEG 2000 codestreams, and writes each completed
// frame to a file or to stdout.
package main

import (
	"net"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/stweil/rtpj2k"
	"github.com/stweil/rtpj2k/codecs"
	"github.com/stweil/rtpj2k/internal/config"
)

var (
	configPath string
	listenAddr string
	outDir     string
	debug      bool
)

func init() {
	pflag.StringVarP(&configPath, "config", "c", "", "optional TOML config file")
	pflag.StringVarP(&listenAddr, "listen", "l", "", "address to listen on, e.g. 0.0.0.0:5004")
	pflag.StringVarP(&outDir, "out", "o", "", "directory to write reassembled .j2k frames to (stdout if empty)")
	pflag.BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	pflag.Parse()

	logger := newLogger(debug)
	defer logger.Sync() //nolint:errcheck

	sessionID := uuid.New().String()
	logger = logger.With(zap.String("session", sessionID))

	cfg, err := config.Load(configPath, logger)
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}
	if listenAddr != "" {
		cfg.Network.ListenAddr = listenAddr
	}

	addr, err := net.ResolveUDPAddr("udp", cfg.Network.ListenAddr)
	if err != nil {
		logger.Fatal("resolving listen address", zap.String("addr", cfg.Network.ListenAddr), zap.Error(err))
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		logger.Fatal("listening", zap.String("addr", cfg.Network.ListenAddr), zap.Error(err))
	}
	defer conn.Close() //nolint:errcheck

	logger.Info("listening for RTP/J2K packets", zap.String("addr", cfg.Network.ListenAddr))

	depacketizer := codecs.NewJ2KDepacketizer()
	buf := make([]byte, 65535)
	frameCount := 0

	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			logger.Error("reading from socket", zap.Error(err))
			return
		}

		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			logger.Warn("dropping malformed RTP packet", zap.Error(err))
			continue
		}

		frame, err := depacketizer.Ingest(pkt.Payload, pkt.Timestamp, pkt.Marker)
		if err != nil {
			logger.Warn("depacketizer error", zap.Uint32("timestamp", pkt.Timestamp), zap.Error(err))
		}
		if frame == nil {
			continue
		}

		frameCount++
		if err := writeFrame(outDir, frameCount, frame); err != nil {
			logger.Error("writing frame", zap.Int("frame", frameCount), zap.Error(err))
			continue
		}

		logger.Info("reassembled frame", zap.Int("frame", frameCount), zap.Int("bytes", len(frame)))
	}
}

func writeFrame(dir string, index int, frame []byte) error {
	if dir == "" {
		_, err := os.Stdout.Write(frame)
		return err
	}

	path := dir + "/" + strconv.Itoa(index) + ".j2k"

	return os.WriteFile(path, frame, 0o644)
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
