// Package encio provides the byte cursors binser reads from and writes to, as well as error types.
//
// Nothing in this package seeks or asks a stream for its length; every cursor works over
// a plain io.Reader or io.Writer that can only move forward.
package encio

import (
	"errors"
	"fmt"
	"io"
)

var (
	// TooBig is a byte count used for simple sanity checking before allocation with numbers decoded from readers.
	// ErrInvalidLength is returned if a length exceeds this.
	//
	// By default it is 32MB on 32bit machines, and 128MB on 64bit machines.
	// Feel free to change it.
	TooBig = int64(1 << (25 + ((^uint(0) >> 32) & 2)))
)

// Read reads from r, completely filling the buffer. It provides error handling with as little overhead as possible.
// In an ideal read, only a single int equality check is performed. If the read reports the whole buffer is read, returned errors are ignored.
//
// Partial reads are retried. A read returning zero bytes is taken as exhaustion,
// and running out before buff is full returns ErrUnexpectedEOF.
func Read(buff []byte, r io.Reader) error {
	n, err := r.Read(buff)
	if n == len(buff) {
		return nil
	}

	end := n
	for end < len(buff) && err == nil && n > 0 {
		n, err = r.Read(buff[end:])
		end += n
	}
	if n == 0 && err == nil {
		// a read that returns nothing means the source is exhausted.
		err = io.EOF
	}

	if end != len(buff) {
		switch {
		case end > len(buff):
			return NewIOError(
				errors.New("bad io.Reader implementation"),
				fmt.Sprintf("%T reported %v bytes read, but buffer is only %v bytes", r, end, len(buff)),
			)
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return NewIOError(
				ErrUnexpectedEOF,
				fmt.Sprintf("want %v bytes but only got %v", len(buff), end),
			)
		default:
			return NewIOError(
				err,
				fmt.Sprintf("want %v bytes but only got %v", len(buff), end),
			)
		}
	}
	return nil
}

// Write writes to w from buff, handling errors of io.Writer with as little overhead as possible.
// In an ideal write, only a single int equality check is performed. It returns any error from Write().
func Write(buff []byte, w io.Writer) error {
	n, err := w.Write(buff)
	if n == len(buff) {
		if err != nil {
			return NewIOError(err, "")
		}
		return nil
	}

	end := n
	for end < len(buff) && err == nil && n > 0 {
		Warnf("%T is a bad io.Writer implementation. It wrote short (given %v bytes but reported only %v written) yet returned no error. Will call it again...", w, len(buff)-(end-n), n)
		n, err = w.Write(buff[end:])
		end += n
	}

	if end != len(buff) {
		switch {
		case end > len(buff):
			return NewIOError(
				errors.New("bad io.Writer implementation"),
				fmt.Sprintf("Write() reported %v bytes written, but was only given %v bytes", end, len(buff)),
			)
		case err == nil:
			return NewIOError(
				io.ErrShortWrite,
				fmt.Sprintf("want %v bytes but only wrote %v bytes", len(buff), end),
			)
		default:
			return NewIOError(
				err,
				fmt.Sprintf("want %v bytes but wrote %v bytes", len(buff), end),
			)
		}
	}
	return nil
}
