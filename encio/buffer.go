package encio

import (
	"fmt"
	"io"
	"sync"
)

// Buffer is an in-memory, random access cursor. It operates similar to bytes.Buffer,
// but can also Seek back over what it has already read.
// The zero value is an empty Buffer ready to use.
type Buffer struct {
	buff []byte
	off  int
}

// NewBuffer returns a Buffer reading from buff.
func NewBuffer(buff []byte) *Buffer {
	return &Buffer{buff: buff}
}

// Read implements io.Reader
func (b *Buffer) Read(buff []byte) (int, error) {
	if len(buff) > 0 && b.Len() == 0 {
		return 0, io.EOF
	}
	n := copy(buff, b.buff[b.off:])
	b.off += n
	return n, nil
}

// ReadByte implements io.ByteReader
func (b *Buffer) ReadByte() (byte, error) {
	if b.Len() == 0 {
		return 0, io.EOF
	}
	by := b.buff[b.off]
	b.off++
	return by, nil
}

// Write implements io.Writer
func (b *Buffer) Write(buff []byte) (int, error) {
	b.buff = append(b.buff, buff...)
	return len(buff), nil
}

// WriteByte implements io.ByteWriter
func (b *Buffer) WriteByte(by byte) error {
	b.buff = append(b.buff, by)
	return nil
}

// Len returns the length of the unread portion of the buffer
func (b *Buffer) Len() int {
	return len(b.buff) - b.off
}

// Bytes returns the unread portion of the buffer.
// It is only valid until the next call to Write.
func (b *Buffer) Bytes() []byte {
	return b.buff[b.off:]
}

// Reset empties the buffer, keeping the allocation.
func (b *Buffer) Reset() {
	b.buff = b.buff[:0]
	b.off = 0
}

// Seek implements io.Seeker. Offsets are relative to the start of everything written.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.off) + offset
	case io.SeekEnd:
		abs = int64(len(b.buff)) + offset
	default:
		return 0, NewIOError(ErrBadType, fmt.Sprintf("invalid whence %v", whence))
	}

	if abs < 0 || abs > int64(len(b.buff)) {
		return 0, NewIOError(ErrInvalidLength, fmt.Sprintf("cannot seek to %v in a buffer of %v bytes", abs, len(b.buff)))
	}

	b.off = int(abs)
	return abs, nil
}

// ForwardOnly wraps rw, hiding any ability to seek or report its length.
// It looks like a network stream to its users; Seek and Len always return ErrUnsupported.
// rw may be an io.Reader, an io.Writer or both.
func ForwardOnly(rw interface{}) *Stream {
	s := &Stream{}
	s.r, _ = rw.(io.Reader)
	s.w, _ = rw.(io.Writer)
	if s.r == nil && s.w == nil {
		panic(NewError(ErrBadType, fmt.Sprintf("%T is neither an io.Reader nor an io.Writer", rw)))
	}
	return s
}

// Stream is a forward-only reader and writer; see ForwardOnly.
type Stream struct {
	r io.Reader
	w io.Writer
}

// Read implements io.Reader.
func (s *Stream) Read(buff []byte) (int, error) {
	if s.r == nil {
		return 0, NewIOError(ErrUnsupported, "stream is write only")
	}
	return s.r.Read(buff)
}

// Write implements io.Writer.
func (s *Stream) Write(buff []byte) (int, error) {
	if s.w == nil {
		return 0, NewIOError(ErrUnsupported, "stream is read only")
	}
	return s.w.Write(buff)
}

// Seek always returns ErrUnsupported.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	return 0, NewIOError(ErrUnsupported, "cannot seek a forward-only stream")
}

// Len always returns ErrUnsupported.
func (s *Stream) Len() (int, error) {
	return 0, NewIOError(ErrUnsupported, "cannot take the length of a forward-only stream")
}

// NewPipe creates a new Pipe
func NewPipe() *Pipe {
	return &Pipe{
		cond: sync.NewCond(new(sync.Mutex)),
	}
}

// Pipe is a buffered pipe. It operates like Buffer, but read calls will block until a call to write if the buffer is empty.
// It is forward-only; it can neither seek nor report its length.
type Pipe struct {
	cond   *sync.Cond
	buff   []byte
	closed bool
}

// Read implements io.Reader.
// Once the pipe is closed, reads drain what is left before returning io.EOF.
func (p *Pipe) Read(buff []byte) (int, error) {
	p.cond.L.Lock()
	defer p.cond.L.Unlock()

	for len(p.buff) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.buff) == 0 {
		return 0, io.EOF
	}

	n := copy(buff, p.buff)
	p.buff = p.buff[n:]
	return n, nil
}

// Write implements io.Writer
func (p *Pipe) Write(buff []byte) (int, error) {
	p.cond.L.Lock()
	defer p.cond.L.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}

	p.buff = append(p.buff, buff...)
	p.cond.Broadcast()
	return len(buff), nil
}

// Close implements io.Closer
// Read calls will return io.EOF once the buffer is empty, and write calls will return io.ErrClosedPipe.
func (p *Pipe) Close() error {
	p.cond.L.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.cond.L.Unlock()
	return nil
}
