package encio

import (
	"fmt"
	"io"
)

// NewReader returns a Reader reading from r.
// If r is already a *Reader, it is returned as is.
func NewReader(r io.Reader) *Reader {
	if cr, ok := r.(*Reader); ok {
		return cr
	}
	return &Reader{
		r:     r,
		limit: -1,
	}
}

// Reader is a forward-only reading cursor.
// It counts the bytes read through it, can look ahead a single byte to tell whether anything remains,
// and can hand out child Readers bounded to a number of bytes.
//
// Reader never seeks, and never asks the underlying reader for its length; Seek and Len are
// only passed through when the underlying reader happens to provide them.
//
// A Reader and its children must not be used concurrently.
type Reader struct {
	r      io.Reader
	parent *Reader
	n      int64

	// limit is the number of bytes left to a bounded Reader, or -1.
	limit   int64
	overrun bool

	peeked bool
	peek   byte
	buff   [1]byte
}

// Read implements io.Reader.
// A bounded Reader returns io.EOF once its bound has been read.
func (r *Reader) Read(buff []byte) (int, error) {
	if len(buff) == 0 {
		return 0, nil
	}

	if r.limit >= 0 {
		if r.limit == 0 {
			r.overrun = true
			return 0, io.EOF
		}
		if int64(len(buff)) > r.limit {
			buff = buff[:r.limit]
		}
	}

	var n int
	if r.peeked {
		buff[0] = r.peek
		r.peeked = false
		n = 1
		buff = buff[1:]
	}

	var err error
	if len(buff) > 0 {
		var m int
		m, err = r.r.Read(buff)
		n += m
		if n > 0 && err == io.EOF {
			// report the bytes first; the next call sees EOF.
			err = nil
		}
	}

	r.n += int64(n)
	if r.limit >= 0 {
		r.limit -= int64(n)
	}
	return n, err
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	if err := Read(r.buff[:], r); err != nil {
		return 0, err
	}
	return r.buff[0], nil
}

// N returns the number of bytes read through r.
func (r *Reader) N() int64 {
	return r.n
}

// Offset returns the number of bytes read through r's root Reader.
func (r *Reader) Offset() int64 {
	for r.parent != nil {
		r = r.parent
	}
	return r.n
}

// Bounded returns true if r was created by Limit.
func (r *Reader) Bounded() bool {
	return r.parent != nil
}

// Remaining returns the number of bytes left in a bounded Reader, or -1 if r is unbounded.
func (r *Reader) Remaining() int64 {
	return r.limit
}

// More returns true if at least one more byte can be read from r.
// Bounded Readers answer from their remaining count, and unbounded Readers read a single byte ahead.
// A byte read ahead is returned by the next call to Read.
func (r *Reader) More() (bool, error) {
	if r.limit >= 0 {
		return r.limit > 0, nil
	}
	if r.peeked {
		return true, nil
	}

	n, err := r.r.Read(r.buff[:])
	if n == 1 {
		r.peek = r.buff[0]
		r.peeked = true
		return true, nil
	}
	if err == nil || err == io.EOF {
		// a zero byte read means the source is exhausted.
		return false, nil
	}
	return false, NewIOError(err, "looking ahead")
}

// Limit returns a child Reader reading at most n bytes from r.
// Once the child has been used, Drain must be called on it to discard what its user didn't read.
func (r *Reader) Limit(n int64) *Reader {
	return &Reader{
		r:      r,
		parent: r,
		limit:  n,
	}
}

// Drain reads and discards the remainder of a bounded Reader.
// It never seeks; the source may only be able to move forward.
func (r *Reader) Drain() error {
	if r.limit <= 0 {
		return nil
	}

	var buff [512]byte
	for r.limit > 0 {
		l := int64(len(buff))
		if l > r.limit {
			l = r.limit
		}
		if err := Read(buff[:l], r); err != nil {
			return err
		}
	}
	return nil
}

// Overrun returns true if something tried to read past the bound of r.
func (r *Reader) Overrun() bool {
	return r.overrun
}

// Seek implements io.Seeker when the underlying reader does.
// It returns ErrUnsupported otherwise, and always on bounded Readers.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if r.parent != nil {
		return 0, NewIOError(ErrUnsupported, "cannot seek a bounded reader")
	}

	seeker, ok := r.r.(io.Seeker)
	if !ok {
		return 0, NewIOError(ErrUnsupported, fmt.Sprintf("%T cannot seek", r.r))
	}

	if r.peeked && whence == io.SeekCurrent {
		// the underlying reader is a byte ahead of us.
		offset--
	}
	r.peeked = false
	return seeker.Seek(offset, whence)
}

// Len returns the number of unread bytes when the underlying reader can tell, or ErrUnsupported.
// Bounded readers always know their length.
func (r *Reader) Len() (int, error) {
	if r.limit >= 0 {
		return int(r.limit), nil
	}

	l, ok := r.r.(interface{ Len() int })
	if !ok {
		return 0, NewIOError(ErrUnsupported, fmt.Sprintf("%T cannot report its length", r.r))
	}

	n := l.Len()
	if r.peeked {
		n++
	}
	return n, nil
}

// NewWriter returns a Writer writing to w.
// If w is already a *Writer, it is returned as is.
func NewWriter(w io.Writer) *Writer {
	if cw, ok := w.(*Writer); ok {
		return cw
	}
	return &Writer{w: w}
}

// Writer is a forward-only writing cursor counting the bytes written through it.
type Writer struct {
	w    io.Writer
	n    int64
	base int64
}

// Write implements io.Writer.
func (w *Writer) Write(buff []byte) (int, error) {
	n, err := w.w.Write(buff)
	w.n += int64(n)
	return n, err
}

// WriteByte implements io.ByteWriter.
func (w *Writer) WriteByte(b byte) error {
	return Write([]byte{b}, w)
}

// N returns the number of bytes written through w.
func (w *Writer) N() int64 {
	return w.n
}

// Offset returns the position of w in the stream it writes to.
// Writers from Scratch count on from where their parent stood when they were made.
func (w *Writer) Offset() int64 {
	return w.base + w.n
}

// Scratch returns a Writer collecting into a new Buffer, for bytes that must be measured or padded
// before they are written through w.
func (w *Writer) Scratch() (*Writer, *Buffer) {
	buff := new(Buffer)
	return &Writer{w: buff, base: w.Offset()}, buff
}

// Seek implements io.Seeker when the underlying writer does, and returns ErrUnsupported otherwise.
func (w *Writer) Seek(offset int64, whence int) (int64, error) {
	seeker, ok := w.w.(io.Seeker)
	if !ok {
		return 0, NewIOError(ErrUnsupported, fmt.Sprintf("%T cannot seek", w.w))
	}
	return seeker.Seek(offset, whence)
}

// Len returns the length of the underlying writer when it can tell, or ErrUnsupported.
func (w *Writer) Len() (int, error) {
	l, ok := w.w.(interface{ Len() int })
	if !ok {
		return 0, NewIOError(ErrUnsupported, fmt.Sprintf("%T cannot report its length", w.w))
	}
	return l.Len(), nil
}
