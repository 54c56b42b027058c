// SPDX-License-Identifier: MIT

package client

import (
	"bufio"
	"bytes"
	"io"
)

// frame is one server-sent event as read off the wire.
type frame struct {
	eventType string
	data      []byte
}

// frameReader parses the SSE wire format: "event:" and "data:" lines
// terminated by a blank line. Comment lines (leading ':') carry the
// server's keepalive and are dropped; unknown fields are ignored.
type frameReader struct {
	r *bufio.Reader
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: bufio.NewReader(r)}
}

// next returns the next complete frame. io.EOF means the server closed
// the stream; a partial frame at EOF is discarded.
func (fr *frameReader) next() (frame, error) {
	var f frame
	var sawField bool
	for {
		line, err := fr.r.ReadBytes('\n')
		if err != nil {
			return frame{}, err
		}
		line = bytes.TrimRight(line, "\r\n")

		switch {
		case len(line) == 0:
			if sawField {
				return f, nil
			}
		case line[0] == ':':
			// keepalive comment
		case bytes.HasPrefix(line, []byte("event:")):
			f.eventType = string(bytes.TrimSpace(line[len("event:"):]))
			sawField = true
		case bytes.HasPrefix(line, []byte("data:")):
			if len(f.data) > 0 {
				f.data = append(f.data, '\n')
			}
			f.data = append(f.data, bytes.TrimSpace(line[len("data:"):])...)
			sawField = true
		}
	}
}
