package command

import "fmt"

// tailBuffer implements io.Writer and keeps the last bufLimit bytes written
// to it. Lines longer than lineLimit are truncated and carriage returns are
// dropped. Writes always succeed.
type tailBuffer struct {
	buf        []byte
	bufLimit   int
	lineLimit  int
	lineLength int
}

func newTailBuffer(bufLimit, lineLimit int) (*tailBuffer, error) {
	if bufLimit <= 0 || lineLimit <= 0 {
		return nil, fmt.Errorf("invalid limit")
	}

	return &tailBuffer{
		buf:       make([]byte, 0, lineLimit),
		bufLimit:  bufLimit,
		lineLimit: lineLimit,
	}, nil
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	for _, c := range p {
		switch {
		case c == '\r':
		case c == '\n':
			b.buf = append(b.buf, c)
			b.lineLength = 0
		case b.lineLength < b.lineLimit:
			b.buf = append(b.buf, c)
			b.lineLength++
		}
	}

	if overflow := len(b.buf) - b.bufLimit; overflow > 0 {
		n := copy(b.buf, b.buf[overflow:])
		b.buf = b.buf[:n]
	}

	return len(p), nil
}

func (b *tailBuffer) Len() int {
	return len(b.buf)
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}
