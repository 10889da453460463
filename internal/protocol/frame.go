package protocol

import (
	"errors"
	"strings"
)

// ErrMalformedFrame is returned for a line that carries a verb but no
// request id.
var ErrMalformedFrame = errors.New("malformed frame: expected VERB REQUEST_ID [ARG...]")

// Frame is one request line split into its tokens.
type Frame struct {
	Verb      Verb
	RequestID string
	Args      []string
}

// ParseFrame splits a request line on single spaces. Arguments cannot
// contain spaces; consecutive spaces produce empty arguments, which Decode
// rejects. The caller skips blank lines.
func ParseFrame(line string) (Frame, error) {
	line = strings.TrimRight(line, "\r\n")
	tokens := strings.Split(line, " ")
	if len(tokens) < 2 || tokens[0] == "" || tokens[1] == "" {
		return Frame{}, ErrMalformedFrame
	}
	return Frame{
		Verb:      Verb(tokens[0]),
		RequestID: tokens[1],
		Args:      tokens[2:],
	}, nil
}

// String renders the frame back into its wire form.
func (f Frame) String() string {
	parts := make([]string, 0, 2+len(f.Args))
	parts = append(parts, string(f.Verb), f.RequestID)
	parts = append(parts, f.Args...)
	return strings.Join(parts, " ")
}
