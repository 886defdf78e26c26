package camera

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"gocv.io/x/gocv"

	"github.com/mtdev/go-dogtrack/internal/log"
)

// maxFrameBytes rejects corrupt length headers before allocating.
const maxFrameBytes = 8 << 20

// ErrBadFrame marks a frame that arrived but failed JPEG decoding. The
// stream stays usable; callers skip the frame and read again.
var ErrBadFrame = errors.New("camera: undecodable frame")

// Stream reads the dog's video socket: each frame is a little-endian
// length header followed by a JPEG. Older firmware sends a 4-byte header,
// newer a padded 8-byte one; both are handled.
type Stream struct {
	conn net.Conn
	br   *bufio.Reader
}

// DialStream connects to the dog's video port (host:port).
func DialStream(addr string) (*Stream, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial video %s: %w", addr, err)
	}
	log.Info("connected to video stream", "addr", addr)
	return NewStream(conn), nil
}

// NewStream wraps an existing connection; tests feed it a net.Pipe.
func NewStream(conn net.Conn) *Stream {
	return &Stream{conn: conn, br: bufio.NewReaderSize(conn, 64<<10)}
}

// Read receives and decodes the next frame into dst.
func (s *Stream) Read(dst *gocv.Mat) error {
	n, err := s.readLen()
	if err != nil {
		return err
	}
	jpg := make([]byte, n)
	if _, err := io.ReadFull(s.br, jpg); err != nil {
		return fmt.Errorf("read frame body: %w", err)
	}
	img, err := gocv.IMDecode(jpg, gocv.IMReadColor)
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return ErrBadFrame
	}
	img.CopyTo(dst)
	return nil
}

// readLen reads the frame length: 4-byte little-endian first, falling
// back to 8-byte when the short header is implausible.
func (s *Stream) readLen() (int, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(s.br, hdr[:4]); err != nil {
		return 0, fmt.Errorf("read frame header: %w", err)
	}
	n32 := binary.LittleEndian.Uint32(hdr[:4])
	if n32 > 0 && n32 <= maxFrameBytes {
		return int(n32), nil
	}
	if _, err := io.ReadFull(s.br, hdr[4:]); err != nil {
		return 0, fmt.Errorf("read frame header: %w", err)
	}
	n64 := binary.LittleEndian.Uint64(hdr[:])
	if n64 > 0 && n64 <= maxFrameBytes {
		return int(n64), nil
	}
	return 0, fmt.Errorf("invalid frame length (32=%d 64=%d)", n32, n64)
}

// Close shuts the video connection down.
func (s *Stream) Close() error {
	return s.conn.Close()
}
