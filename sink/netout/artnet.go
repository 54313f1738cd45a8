package netout

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine"
	"github.com/daesuck/AI-Audio-Responsive-Production/logging"
)

// ArtNetPort is the standard Art-Net UDP port.
const ArtNetPort = 6454

const (
	artnetID      = "Art-Net\x00"
	artnetOpDmx   = 0x5000
	artnetProtVer = 14
	dmxUniverse   = 512
)

// ArtNet sends one DMX universe per lighting frame as ArtDmx packets,
// implementing engine.Sink. Pixel channel values map onto DMX channels,
// clipped to 512 and zero-padded. With DryRun set it logs instead.
type ArtNet struct {
	conn     *net.UDPConn
	universe uint16
	dryRun   bool
	logger   logging.Logger
}

// ArtNetOptions configures an ArtNet sender.
type ArtNetOptions struct {
	Addr     string // host or host:port; port defaults to ArtNetPort
	Universe uint16
	DryRun   bool
}

// NewArtNet creates a sender. In dry-run mode no socket is opened.
func NewArtNet(opts ArtNetOptions) (*ArtNet, error) {
	s := &ArtNet{
		universe: opts.Universe,
		dryRun:   opts.DryRun,
		logger:   logging.WithFields(logging.Fields{"component": "artnet", "addr": opts.Addr}),
	}

	if !opts.DryRun {
		addrStr := opts.Addr
		if _, _, err := net.SplitHostPort(addrStr); err != nil {
			addrStr = fmt.Sprintf("%s:%d", addrStr, ArtNetPort)
		}
		addr, err := net.ResolveUDPAddr("udp", addrStr)
		if err != nil {
			return nil, fmt.Errorf("artnet: resolve %q: %w", addrStr, err)
		}
		conn, err := net.DialUDP("udp", nil, addr)
		if err != nil {
			return nil, fmt.Errorf("artnet: dial %q: %w", addrStr, err)
		}
		s.conn = conn
	}

	return s, nil
}

// Accept implements engine.Sink.
func (s *ArtNet) Accept(frame *engine.LightingFrame) error {
	data := frame.Pixels
	if len(data) > dmxUniverse {
		data = data[:dmxUniverse]
	}

	packet := BuildArtDmxPacket(s.universe, data)

	if s.dryRun {
		s.logger.Debug("dry-run artdmx packet", logging.Fields{
			"seq":      frame.Seq,
			"universe": s.universe,
			"bytes":    len(packet),
		})
		return nil
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("artnet: set deadline: %w", err)
	}
	if _, err := s.conn.Write(packet); err != nil {
		return fmt.Errorf("artnet: send seq %d: %w", frame.Seq, err)
	}
	return nil
}

// Close implements engine.Sink.
func (s *ArtNet) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// BuildArtDmxPacket builds a minimal ArtDmx packet: ID, opcode (LE),
// protocol version (BE), sequence/physical zero, universe (LE), length (BE),
// then the DMX payload zero-padded to a full universe.
func BuildArtDmxPacket(universe uint16, data []byte) []byte {
	packet := make([]byte, len(artnetID)+2+2+2+2+2+dmxUniverse)
	off := copy(packet, artnetID)

	binary.LittleEndian.PutUint16(packet[off:], artnetOpDmx)
	off += 2
	binary.BigEndian.PutUint16(packet[off:], artnetProtVer)
	off += 2
	// Sequence and physical stay zero.
	off += 2
	binary.LittleEndian.PutUint16(packet[off:], universe)
	off += 2
	binary.BigEndian.PutUint16(packet[off:], dmxUniverse)
	off += 2

	copy(packet[off:], data)
	return packet
}
