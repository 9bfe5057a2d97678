/*
Package protocol implements the line-oriented wire protocol spoken between the
chat server and its clients.

This file defines the response side of the codec: the Response envelope, its
encoder, the decoder used by the client's receiver loop, and the helpers the
dispatcher uses to build the common response shapes.
*/
package protocol

import (
	"bufio"
	"strings"
)

// Field keys of the response wire format.
const (
	keyStatus   = "STATUS"
	keyResource = "RESOURCE"
	keyDataType = "DATA_TYPE"
)

var responseKeys = []string{keyStatus, keyResource, keyDataType, keyGroup, keyData}

// Response is the structured form of one server response.
type Response struct {
	Status   Status
	Resource Resource
	DataType DataType
	Group    string
	Data     string
}

// Encode renders the response in wire form. Every key is always emitted, empty
// when unset, so decoders never have to distinguish absent from empty fields.
func (r *Response) Encode() string {
	var sb strings.Builder

	sb.WriteString(keyStatus + ":")
	sb.WriteString(string(r.Status))
	sb.WriteByte('\n')

	sb.WriteString(keyResource + ":")
	sb.WriteString(string(r.Resource))
	sb.WriteByte('\n')

	sb.WriteString(keyDataType + ":")
	sb.WriteString(string(r.DataType))
	sb.WriteByte('\n')

	sb.WriteString(keyGroup + ":")
	sb.WriteString(r.Group)
	sb.WriteByte('\n')

	sb.WriteString(keyData + ":")
	sb.WriteString(r.Data)
	sb.WriteByte('\n')

	sb.WriteString(ResponseSentinel)
	sb.WriteByte('\n')

	return sb.String()
}

// IsOK reports whether the response carries StatusOK.
func (r *Response) IsOK() bool { return r.Status == StatusOK }

// IsJSON reports whether the DATA field holds a JSON document.
func (r *Response) IsJSON() bool { return r.DataType == DataTypeJSON }

// ParseResponse decodes one response body. STATUS and DATA_TYPE must parse into
// their enumerations; an unknown RESOURCE tag decodes to empty rather than
// failing, since routing tags may grow independently of deployed clients.
func ParseResponse(body string) (*Response, error) {
	fields := parseFields(body, responseKeys)

	status, err := ParseStatus(fields[keyStatus])
	if err != nil {
		return nil, err
	}

	dataType, err := ParseDataType(fields[keyDataType])
	if err != nil {
		return nil, err
	}

	return &Response{
		Status:   status,
		Resource: ParseResource(fields[keyResource]),
		DataType: dataType,
		Group:    fields[keyGroup],
		Data:     fields[keyData],
	}, nil
}

// ReadResponse extracts and decodes the next response from the stream.
func ReadResponse(r *bufio.Reader) (*Response, error) {
	body, err := readBody(r, ResponseSentinel)
	if err != nil {
		return nil, err
	}
	return ParseResponse(body)
}

// OK builds a plain-text success response.
func OK(data string) *Response {
	return &Response{Status: StatusOK, DataType: DataTypeText, Data: data}
}

// Forbidden builds a plain-text FORBIDDEN response.
func Forbidden(data string) *Response {
	return &Response{Status: StatusForbidden, DataType: DataTypeText, Data: data}
}

// Failure builds a plain-text ERROR response.
func Failure(data string) *Response {
	return &Response{Status: StatusError, DataType: DataTypeText, Data: data}
}
