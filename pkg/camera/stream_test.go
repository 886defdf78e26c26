package camera

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func testStream(t *testing.T) (*Stream, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	s := NewStream(clientSide)
	t.Cleanup(func() {
		s.Close()
		serverSide.Close()
	})
	return s, serverSide
}

func TestStreamReadsLengthPrefixedFrame(t *testing.T) {
	s, server := testStream(t)
	jpg := testJPEG(t)

	go func() {
		var hdr [4]byte
		binary.LittleEndian.PutUint32(hdr[:], uint32(len(jpg)))
		server.Write(hdr[:])
		server.Write(jpg)
	}()

	frame := gocv.NewMat()
	defer frame.Close()
	require.NoError(t, s.Read(&frame))
	assert.Equal(t, 32, frame.Cols())
	assert.Equal(t, 24, frame.Rows())
}

func TestStreamRejectsInvalidLength(t *testing.T) {
	s, server := testStream(t)

	go func() {
		// Neither a plausible 32-bit nor 64-bit length.
		server.Write(make([]byte, 8))
	}()

	frame := gocv.NewMat()
	defer frame.Close()
	err := s.Read(&frame)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid frame length")
}

func TestStreamUndecodableBody(t *testing.T) {
	s, server := testStream(t)

	go func() {
		var hdr [4]byte
		binary.LittleEndian.PutUint32(hdr[:], 16)
		server.Write(hdr[:])
		server.Write(bytes.Repeat([]byte{0x7f}, 16))
	}()

	frame := gocv.NewMat()
	defer frame.Close()
	assert.Error(t, s.Read(&frame))
}

func TestStreamSequentialFrames(t *testing.T) {
	s, server := testStream(t)
	jpg := testJPEG(t)

	go func() {
		for i := 0; i < 3; i++ {
			var hdr [4]byte
			binary.LittleEndian.PutUint32(hdr[:], uint32(len(jpg)))
			server.Write(hdr[:])
			server.Write(jpg)
		}
	}()

	frame := gocv.NewMat()
	defer frame.Close()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Read(&frame), "frame %d", i)
	}
}
