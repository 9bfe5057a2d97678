/*
Package protocol implements the line-oriented wire protocol spoken between the
chat server and its clients.

This file defines the request side of the codec: the Request envelope, its
encoder, and the decoder used by the server's per-connection loop.
*/
package protocol

import (
	"bufio"
	"strings"
)

// Field keys of the request wire format.
const (
	keyIntent      = "INTENT"
	keyCredentials = "CREDENTIALS"
	keyGroup       = "GROUP"
	keyData        = "DATA"
)

var requestKeys = []string{keyIntent, keyCredentials, keyGroup, keyData}

// Credentials carries a username/password pair in transit. It is never stored
// beyond the directory's hashed form.
type Credentials struct {
	Username string
	Password string
}

// Request is the structured form of one client request.
type Request struct {
	Intent      Intent
	Credentials *Credentials
	Group       string
	Data        string
}

// Encode renders the request in wire form. Unset optional fields are omitted
// entirely; the sentinel line terminates the message.
func (r *Request) Encode() string {
	var sb strings.Builder

	sb.WriteString(keyIntent + ":")
	sb.WriteString(string(r.Intent))
	sb.WriteByte('\n')

	if r.Credentials != nil {
		sb.WriteString(keyCredentials + ":")
		sb.WriteString(r.Credentials.Username)
		sb.WriteByte(':')
		sb.WriteString(r.Credentials.Password)
		sb.WriteByte('\n')
	}

	if r.Group != "" {
		sb.WriteString(keyGroup + ":")
		sb.WriteString(r.Group)
		sb.WriteByte('\n')
	}

	if r.Data != "" {
		sb.WriteString(keyData + ":")
		sb.WriteString(r.Data)
		sb.WriteByte('\n')
	}

	sb.WriteString(RequestSentinel)
	sb.WriteByte('\n')

	return sb.String()
}

// ParseRequest decodes one request body (the lines between the start of the
// message and its sentinel). The INTENT field must name a known verb; the
// CREDENTIALS value splits on its first ':' only, so passwords may themselves
// contain colons.
func ParseRequest(body string) (*Request, error) {
	fields := parseFields(body, requestKeys)

	intent, err := ParseIntent(fields[keyIntent])
	if err != nil {
		return nil, err
	}

	req := &Request{
		Intent: intent,
		Group:  fields[keyGroup],
		Data:   fields[keyData],
	}

	if cred := fields[keyCredentials]; cred != "" {
		parts := strings.SplitN(cred, ":", 2)
		if len(parts) == 2 {
			req.Credentials = &Credentials{
				Username: parts[0],
				Password: parts[1],
			}
		}
	}

	return req, nil
}

// ReadRequest extracts and decodes the next request from the stream. Framing
// failures (ErrFraming, ErrEmptyPayload, ErrMessageTooLarge) are fatal to the
// connection that produced them.
func ReadRequest(r *bufio.Reader) (*Request, error) {
	body, err := readBody(r, RequestSentinel)
	if err != nil {
		return nil, err
	}
	return ParseRequest(body)
}
