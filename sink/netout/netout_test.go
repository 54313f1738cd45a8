package netout

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine"
)

func TestBuildPixelPacketLayout(t *testing.T) {
	chunk := []byte{10, 20, 30, 40, 50, 60}
	packet := BuildPixelPacket(7, 2, 0xDEADBEEF, 1, 3, chunk)

	if len(packet) != pixelHeaderSize+len(chunk) {
		t.Fatalf("packet length = %d, want %d", len(packet), pixelHeaderSize+len(chunk))
	}
	if got := binary.BigEndian.Uint16(packet[0:2]); got != 7 {
		t.Errorf("output_id = %d, want 7", got)
	}
	if got := binary.BigEndian.Uint16(packet[2:4]); got != 2 {
		t.Errorf("pixel_count = %d, want 2", got)
	}
	if got := binary.BigEndian.Uint32(packet[4:8]); got != 0xDEADBEEF {
		t.Errorf("frame_index = %#x, want 0xDEADBEEF", got)
	}
	if got := binary.BigEndian.Uint16(packet[8:10]); got != 1 {
		t.Errorf("chunk_index = %d, want 1", got)
	}
	if got := binary.BigEndian.Uint16(packet[10:12]); got != 3 {
		t.Errorf("total_chunks = %d, want 3", got)
	}
	if !bytes.Equal(packet[pixelHeaderSize:], chunk) {
		t.Error("payload corrupted")
	}
}

func TestUDPPixelChunking(t *testing.T) {
	// 300 pixels at a tiny MTU forces multiple chunks; receive them on a
	// loopback socket and reassemble.
	recv, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer recv.Close()

	s, err := NewUDPPixel(UDPPixelOptions{
		Addr:     recv.LocalAddr().String(),
		OutputID: 1,
		MTU:      pixelHeaderSize + 256,
	})
	if err != nil {
		t.Fatalf("NewUDPPixel: %v", err)
	}
	defer s.Close()

	pixels := make([]byte, 300*3)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	frame := &engine.LightingFrame{Seq: 42, Pixels: pixels}
	if err := s.Accept(frame); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	wantChunks := (len(pixels) + 255) / 256
	assembled := make([]byte, len(pixels))
	buf := make([]byte, 2048)
	for i := 0; i < wantChunks; i++ {
		recv.SetReadDeadline(time.Now().Add(time.Second))
		n, _, err := recv.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("read chunk %d: %v", i, err)
		}
		if n <= pixelHeaderSize {
			t.Fatalf("chunk %d too short: %d bytes", i, n)
		}
		if got := binary.BigEndian.Uint32(buf[4:8]); got != 42 {
			t.Fatalf("chunk %d frame_index = %d, want 42", i, got)
		}
		if got := binary.BigEndian.Uint16(buf[10:12]); int(got) != wantChunks {
			t.Fatalf("chunk %d total_chunks = %d, want %d", i, got, wantChunks)
		}
		chunkIndex := int(binary.BigEndian.Uint16(buf[8:10]))
		copy(assembled[chunkIndex*256:], buf[pixelHeaderSize:n])
	}

	if !bytes.Equal(assembled, pixels) {
		t.Fatal("reassembled payload differs from the frame")
	}
}

func TestUDPPixelDryRun(t *testing.T) {
	s, err := NewUDPPixel(UDPPixelOptions{Addr: "203.0.113.1:9", DryRun: true})
	if err != nil {
		t.Fatalf("NewUDPPixel dry-run: %v", err)
	}
	defer s.Close()

	frame := &engine.LightingFrame{Seq: 1, Pixels: make([]byte, 64*3)}
	if err := s.Accept(frame); err != nil {
		t.Fatalf("dry-run Accept: %v", err)
	}
}

func TestBuildArtDmxPacket(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	packet := BuildArtDmxPacket(0x0102, data)

	if len(packet) != 18+dmxUniverse {
		t.Fatalf("packet length = %d, want %d", len(packet), 18+dmxUniverse)
	}
	if !bytes.Equal(packet[:8], []byte("Art-Net\x00")) {
		t.Errorf("ID = %q", packet[:8])
	}
	if got := binary.LittleEndian.Uint16(packet[8:10]); got != artnetOpDmx {
		t.Errorf("opcode = %#x, want %#x", got, artnetOpDmx)
	}
	if got := binary.BigEndian.Uint16(packet[10:12]); got != artnetProtVer {
		t.Errorf("protocol version = %d, want %d", got, artnetProtVer)
	}
	if packet[12] != 0 || packet[13] != 0 {
		t.Error("sequence/physical not zero")
	}
	if got := binary.LittleEndian.Uint16(packet[14:16]); got != 0x0102 {
		t.Errorf("universe = %#x, want 0x0102", got)
	}
	if got := binary.BigEndian.Uint16(packet[16:18]); got != dmxUniverse {
		t.Errorf("length = %d, want %d", got, dmxUniverse)
	}
	if !bytes.Equal(packet[18:22], data) {
		t.Error("DMX payload corrupted")
	}
	for i := 18 + len(data); i < len(packet); i++ {
		if packet[i] != 0 {
			t.Fatalf("padding byte %d = %d, want 0", i, packet[i])
		}
	}
}

func TestArtNetClipsOversizedFrames(t *testing.T) {
	recv, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer recv.Close()

	s, err := NewArtNet(ArtNetOptions{Addr: recv.LocalAddr().String()})
	if err != nil {
		t.Fatalf("NewArtNet: %v", err)
	}
	defer s.Close()

	// 400 pixels is 1200 channels, more than one universe.
	frame := &engine.LightingFrame{Seq: 1, Pixels: make([]byte, 400*3)}
	if err := s.Accept(frame); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	buf := make([]byte, 2048)
	recv.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := recv.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 18+dmxUniverse {
		t.Fatalf("packet length = %d, want exactly one universe (%d)", n, 18+dmxUniverse)
	}
}
