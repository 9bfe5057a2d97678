/*
Package protocol implements the line-oriented wire protocol spoken between the
chat server and its clients.

This file defines the closed enumerations of the protocol: request intents,
response statuses, data types, and the resource tags used by clients to route
responses to subscribers.
*/
package protocol

import (
	"fmt"
	"strings"
)

// Intent is the verb of a request.
type Intent string

const (
	IntentSend      Intent = "SEND"
	IntentCreate    Intent = "CREATE"
	IntentGet       Intent = "GET"
	IntentGetGroups Intent = "GET_GROUPS"
	IntentGetUsers  Intent = "GET_USERS"
	IntentAuth      Intent = "AUTH"
	IntentSignup    Intent = "SIGNUP"
	IntentAdd       Intent = "ADD"
)

var intents = map[Intent]struct{}{
	IntentSend:      {},
	IntentCreate:    {},
	IntentGet:       {},
	IntentGetGroups: {},
	IntentGetUsers:  {},
	IntentAuth:      {},
	IntentSignup:    {},
	IntentAdd:       {},
}

// ParseIntent maps a wire string onto an Intent. Unrecognized values fail with
// ErrInvalidIntent, which is fatal for the request that carried them.
func ParseIntent(s string) (Intent, error) {
	intent := Intent(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := intents[intent]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidIntent, s)
	}
	return intent, nil
}

// Status is the outcome classification of a response.
type Status string

const (
	StatusOK        Status = "OK"
	StatusForbidden Status = "FORBIDDEN"
	StatusError     Status = "ERROR"
)

// ParseStatus maps a wire string onto a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusOK:
		return StatusOK, nil
	case StatusForbidden:
		return StatusForbidden, nil
	case StatusError:
		return StatusError, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// DataType describes how the DATA field of a response should be interpreted.
type DataType string

const (
	DataTypeText DataType = "TEXT"
	DataTypeJSON DataType = "JSON"
)

// ParseDataType maps a wire string onto a DataType.
func ParseDataType(s string) (DataType, error) {
	switch DataType(strings.ToUpper(strings.TrimSpace(s))) {
	case DataTypeText:
		return DataTypeText, nil
	case DataTypeJSON:
		return DataTypeJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDataType, s)
	}
}

// Resource is a label on a response used purely for client-side routing to
// subscribers. It plays no part in request authorization.
type Resource string

const (
	ResourceGroups      Resource = "GROUPS"
	ResourceUsers       Resource = "USERS"
	ResourceMessages    Resource = "MESSAGES"
	ResourceAuthSuccess Resource = "AUTH_SUCCESS"
	ResourceAuthFailure Resource = "AUTH_FAILURE"
)

var resources = map[Resource]struct{}{
	ResourceGroups:      {},
	ResourceUsers:       {},
	ResourceMessages:    {},
	ResourceAuthSuccess: {},
	ResourceAuthFailure: {},
}

// ParseResource maps a wire string onto a Resource. An empty or unrecognized
// tag decodes to the empty Resource: untagged responses are legal, they just
// cannot be routed by the client bus.
func ParseResource(s string) Resource {
	resource := Resource(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := resources[resource]; !ok {
		return ""
	}
	return resource
}
