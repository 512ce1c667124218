package netLayer

import (
	"io"

	"github.com/knockware/knocker/utils"
)

// Relay loops reading from src into a pooled utils.StandardBytesLength
// buffer and writing to dst, until an error occurs. onForward, if not nil,
// is called after every non-empty chunk has been written out.
//
// A clean EOF (zero-length read, peer closed) ends the relay with a nil
// error. Any other read or write error is returned as-is; Relay never
// retries.
func Relay(dst io.Writer, src io.Reader, onForward func(n int)) (allnum int64, err error) {
	buf := utils.GetBytes()
	defer utils.PutBytes(buf)

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			wn, writeErr := dst.Write(buf[:n])
			allnum += int64(wn)
			if writeErr != nil {
				return allnum, writeErr
			}
			if wn < n {
				return allnum, io.ErrShortWrite
			}
			if onForward != nil {
				onForward(wn)
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return allnum, nil
			}
			return allnum, readErr
		}
	}
}
