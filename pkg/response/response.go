package response

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"cybermarket/pkg/apierror"
)

// PayloadSeparator separates the status line from the JSON payload on the
// wire. Status messages never contain tabs.
const PayloadSeparator = "\t"

// Reply is one answer to one request.
type Reply struct {
	RequestID string
	Status    int
	Message   string
	Payload   interface{}
}

// Line renders the status line: REQUEST_ID STATUS PHRASE[: message].
func (r Reply) Line() string {
	var b strings.Builder
	b.WriteString(r.RequestID)
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(r.Status))
	b.WriteByte(' ')
	b.WriteString(apierror.StatusText(r.Status))
	if r.Message != "" {
		b.WriteString(": ")
		b.WriteString(r.Message)
	}
	return b.String()
}

// Encode renders the full reply without the trailing newline.
func (r Reply) Encode() ([]byte, error) {
	line := r.Line()
	if r.Payload == nil {
		return []byte(line), nil
	}

	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(line)+1+len(payload))
	out = append(out, line...)
	out = append(out, PayloadSeparator...)
	out = append(out, payload...)
	return out, nil
}

// OK builds a 200 reply.
func OK(requestID, message string, payload interface{}) Reply {
	return Reply{
		RequestID: requestID,
		Status:    apierror.StatusOK,
		Message:   message,
		Payload:   payload,
	}
}

// Created builds a 201 reply.
func Created(requestID string) Reply {
	return Reply{
		RequestID: requestID,
		Status:    apierror.StatusCreated,
	}
}

// FromError converts an error into a reply. Anything that is not an
// *apierror.Error becomes a 500.
func FromError(requestID string, err error) Reply {
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierror.InternalError("")
	}
	return Reply{
		RequestID: requestID,
		Status:    apiErr.StatusCode,
		Message:   apiErr.Message,
	}
}

// Decoded is a reply as seen by a client reading the wire.
type Decoded struct {
	RequestID string
	Status    int
	Message   string
	Payload   json.RawMessage
}

// Decode parses one reply line produced by Encode.
func Decode(line string) (Decoded, error) {
	var d Decoded

	statusLine, payload, hasPayload := strings.Cut(line, PayloadSeparator)
	if hasPayload {
		d.Payload = json.RawMessage(payload)
	}

	parts := strings.SplitN(statusLine, " ", 3)
	if len(parts) < 2 {
		return d, errors.New("malformed reply line")
	}
	d.RequestID = parts[0]

	status, err := strconv.Atoi(parts[1])
	if err != nil {
		return d, errors.New("malformed reply status")
	}
	d.Status = status

	if len(parts) == 3 {
		if _, msg, ok := strings.Cut(parts[2], ": "); ok {
			d.Message = msg
		}
	}
	return d, nil
}
