package renderer

import (
	"bytes"
	"fmt"
	"net"
	"os"
)

// PreviewSink receives the accumulated frame after every iteration
type PreviewSink interface {
	Update(frame *FrameBuffer, iteration int) error
	Close() error
}

// FilePreview rewrites an image file after every iteration, so external
// viewers can watch the render converge
type FilePreview struct {
	path string
}

// NewFilePreview creates a preview that writes to the given path; the format
// follows the file extension
func NewFilePreview(path string) *FilePreview {
	return &FilePreview{path: path}
}

// Update implements PreviewSink
func (p *FilePreview) Update(frame *FrameBuffer, iteration int) error {
	tmp := p.path + ".tmp"
	if err := frame.WriteToFile(tmp); err != nil {
		return err
	}
	return os.Rename(tmp, p.path)
}

// Close implements PreviewSink
func (p *FilePreview) Close() error { return nil }

// TCPPreview streams the accumulated frame to a viewer over a TCP
// connection. Every update sends a single header line
//
//	FRAME <iteration> <width> <height> <payloadBytes>\n
//
// followed by the frame encoded as binary PFM.
type TCPPreview struct {
	conn net.Conn
}

// NewTCPPreview connects to a preview viewer at the given address
func NewTCPPreview(addr string) (*TCPPreview, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting preview sink: %w", err)
	}
	return &TCPPreview{conn: conn}, nil
}

// Update implements PreviewSink
func (p *TCPPreview) Update(frame *FrameBuffer, iteration int) error {
	var payload bytes.Buffer
	if err := frame.EncodePFM(&payload); err != nil {
		return err
	}
	header := fmt.Sprintf("FRAME %d %d %d %d\n", iteration, frame.Width(), frame.Height(), payload.Len())
	if _, err := p.conn.Write([]byte(header)); err != nil {
		return fmt.Errorf("sending preview header: %w", err)
	}
	if _, err := p.conn.Write(payload.Bytes()); err != nil {
		return fmt.Errorf("sending preview frame: %w", err)
	}
	return nil
}

// Close implements PreviewSink
func (p *TCPPreview) Close() error {
	return p.conn.Close()
}
