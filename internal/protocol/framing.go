/*
Package protocol implements the line-oriented wire protocol spoken between the
chat server and its clients.

Requests and responses are streams of KEY:value lines terminated by a sentinel
line. This file owns the framing layer: sentinel constants, the line
accumulator that extracts one message body from a stream, and the generic
field table parser shared by the request and response decoders.
*/
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

const (
	// RequestSentinel terminates every encoded request.
	RequestSentinel = "END_OF_REQUEST"

	// ResponseSentinel terminates every encoded response.
	ResponseSentinel = "END_OF_RESPONSE"

	// MaxMessageLines caps the number of accumulated lines per message to bound
	// memory against a misbehaving peer.
	MaxMessageLines = 10000
)

var (
	// ErrFraming indicates the stream ended before the message sentinel was seen.
	ErrFraming = errors.New("stream ended before message sentinel")

	// ErrEmptyPayload indicates a message whose collected body is blank.
	ErrEmptyPayload = errors.New("empty message payload")

	// ErrMessageTooLarge indicates a message exceeding MaxMessageLines.
	ErrMessageTooLarge = errors.New("message exceeds maximum line count")

	// ErrInvalidIntent indicates a request whose INTENT field is not a known verb.
	ErrInvalidIntent = errors.New("invalid request intent")

	// ErrInvalidStatus indicates a response whose STATUS field is not a known status.
	ErrInvalidStatus = errors.New("invalid response status")

	// ErrInvalidDataType indicates a response whose DATA_TYPE field is not TEXT or JSON.
	ErrInvalidDataType = errors.New("invalid response data type")
)

// readBody consumes lines from r until the sentinel line is reached and returns
// the accumulated body. It fails with ErrFraming when the stream ends first,
// ErrMessageTooLarge past the line cap, and ErrEmptyPayload on a blank body.
func readBody(r *bufio.Reader, sentinel string) (string, error) {
	var sb strings.Builder
	lineCount := 0

	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")

		if line == sentinel {
			break
		}

		if err != nil {
			return "", fmt.Errorf("%w (wanted %s)", ErrFraming, sentinel)
		}

		sb.WriteString(line)
		sb.WriteByte('\n')

		lineCount++
		if lineCount > MaxMessageLines {
			return "", ErrMessageTooLarge
		}
	}

	body := sb.String()
	if strings.TrimSpace(body) == "" {
		return "", ErrEmptyPayload
	}

	return body, nil
}

// parseFields splits a message body into a key/value table. Recognized keys are
// pre-seeded with empty strings so a partial message yields empty fields rather
// than missing ones. Keys are upper-cased; unknown keys and lines without a
// value separator are ignored. Values split on the first ':' only.
func parseFields(body string, keys []string) map[string]string {
	fields := make(map[string]string, len(keys))
	for _, key := range keys {
		fields[key] = ""
	}

	for _, line := range strings.Split(body, "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.ToUpper(parts[0])
		if _, known := fields[key]; !known {
			continue
		}

		fields[key] = parts[1]
	}

	return fields
}
