package reader

import (
	"bufio"
	"io"
	"log"
	"os"
	"strings"
)

// Reader yields raw card UIDs from a physical scanner. Poll returns the
// empty string when no card is present; the hardware handshake behind it is
// opaque to this package.
type Reader interface {
	Poll() (string, error)
	Close() error
}

// LineReader adapts any newline-delimited UID stream (a FIFO fed by the NFC
// driver, or stdin in simulation mode) into a non-blocking Reader. Reads run
// on a background goroutine feeding a buffered channel so Poll never blocks
// the scan loop.
type LineReader struct {
	src   io.ReadCloser
	uids  chan string
	errch chan error
}

// NewLineReader starts reading UIDs from src.
func NewLineReader(src io.ReadCloser) *LineReader {
	r := &LineReader{
		src:   src,
		uids:  make(chan string, 16),
		errch: make(chan error, 1),
	}
	go r.read()
	return r
}

// OpenDevice opens the configured UID device path as a LineReader.
func OpenDevice(path string) (*LineReader, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	log.Printf("Reader device %s opened", path)
	return NewLineReader(f), nil
}

func (r *LineReader) read() {
	scanner := bufio.NewScanner(r.src)
	for scanner.Scan() {
		uid := strings.TrimSpace(scanner.Text())
		if uid == "" {
			continue
		}
		select {
		case r.uids <- uid:
		default:
			// Reader outpacing the scan loop; drop rather than block.
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case r.errch <- err:
		default:
		}
	}
	close(r.uids)
}

// Poll returns the next buffered UID, or "" when none has arrived since the
// last call. Buffered readings drain before a stream failure is reported, so
// scans seen before the fault are not lost.
func (r *LineReader) Poll() (string, error) {
	select {
	case uid, ok := <-r.uids:
		if !ok {
			select {
			case err := <-r.errch:
				return "", err
			default:
			}
			return "", io.EOF
		}
		return uid, nil
	default:
		return "", nil
	}
}

// Close stops the underlying stream.
func (r *LineReader) Close() error {
	return r.src.Close()
}
