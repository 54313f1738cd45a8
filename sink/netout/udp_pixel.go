// Package netout sends lighting frames over the network: a chunked UDP pixel
// protocol for LED controllers and a minimal Art-Net sender for DMX gear.
// Both support a dry-run mode that logs instead of transmitting, which is the
// default while the transmission layer is simulator-only.
package netout

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine"
	"github.com/daesuck/AI-Audio-Responsive-Production/logging"
)

// Pixel frame header, big-endian:
// output_id(u16) pixel_count(u16) frame_index(u32) chunk_index(u16) total_chunks(u16)
const pixelHeaderSize = 12

// DefaultMTU is a conservative payload budget per datagram.
const DefaultMTU = 1400

// writeTimeout bounds a single datagram send so a wedged socket cannot
// stall the tick loop.
const writeTimeout = 5 * time.Millisecond

// UDPPixel sends chunked pixel frames to a UDP destination, implementing
// engine.Sink. With DryRun set it logs the packets it would send.
type UDPPixel struct {
	conn     *net.UDPConn
	outputID uint16
	mtu      int
	dryRun   bool
	logger   logging.Logger
}

// UDPPixelOptions configures a UDPPixel sender.
type UDPPixelOptions struct {
	Addr     string // host:port destination
	OutputID uint16
	MTU      int  // 0 means DefaultMTU
	DryRun   bool // log instead of sending
}

// NewUDPPixel creates a sender. In dry-run mode no socket is opened.
func NewUDPPixel(opts UDPPixelOptions) (*UDPPixel, error) {
	if opts.MTU <= pixelHeaderSize {
		opts.MTU = DefaultMTU
	}

	s := &UDPPixel{
		outputID: opts.OutputID,
		mtu:      opts.MTU,
		dryRun:   opts.DryRun,
		logger:   logging.WithFields(logging.Fields{"component": "udp_pixel", "addr": opts.Addr}),
	}

	if !opts.DryRun {
		addr, err := net.ResolveUDPAddr("udp", opts.Addr)
		if err != nil {
			return nil, fmt.Errorf("udp pixel: resolve %q: %w", opts.Addr, err)
		}
		conn, err := net.DialUDP("udp", nil, addr)
		if err != nil {
			return nil, fmt.Errorf("udp pixel: dial %q: %w", opts.Addr, err)
		}
		s.conn = conn
	}

	return s, nil
}

// Accept implements engine.Sink: the frame is split into MTU-sized chunks
// and sent fire-and-forget. A send failure is returned for the engine to
// log-and-continue; it never blocks beyond the write timeout.
func (s *UDPPixel) Accept(frame *engine.LightingFrame) error {
	payload := frame.Pixels
	pixelCount := len(payload) / 3

	maxChunk := s.mtu - pixelHeaderSize
	totalChunks := (len(payload) + maxChunk - 1) / maxChunk
	if totalChunks == 0 {
		totalChunks = 1
	}

	for chunkIndex := 0; chunkIndex < totalChunks; chunkIndex++ {
		offset := chunkIndex * maxChunk
		end := min(offset+maxChunk, len(payload))

		packet := BuildPixelPacket(s.outputID, uint16(pixelCount), uint32(frame.Seq),
			uint16(chunkIndex), uint16(totalChunks), payload[offset:end])

		if s.dryRun {
			s.logger.Debug("dry-run pixel packet", logging.Fields{
				"seq":   frame.Seq,
				"chunk": fmt.Sprintf("%d/%d", chunkIndex+1, totalChunks),
				"bytes": len(packet),
			})
			continue
		}

		if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return fmt.Errorf("udp pixel: set deadline: %w", err)
		}
		if _, err := s.conn.Write(packet); err != nil {
			return fmt.Errorf("udp pixel: send seq %d chunk %d: %w", frame.Seq, chunkIndex, err)
		}
	}

	return nil
}

// Close implements engine.Sink.
func (s *UDPPixel) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// BuildPixelPacket builds one chunk packet. Exported for tests that verify
// the wire layout.
func BuildPixelPacket(outputID, pixelCount uint16, frameIndex uint32, chunkIndex, totalChunks uint16, chunk []byte) []byte {
	packet := make([]byte, pixelHeaderSize+len(chunk))
	binary.BigEndian.PutUint16(packet[0:2], outputID)
	binary.BigEndian.PutUint16(packet[2:4], pixelCount)
	binary.BigEndian.PutUint32(packet[4:8], frameIndex)
	binary.BigEndian.PutUint16(packet[8:10], chunkIndex)
	binary.BigEndian.PutUint16(packet[10:12], totalChunks)
	copy(packet[pixelHeaderSize:], chunk)
	return packet
}
