/*
Package protocol implements the line-oriented wire protocol spoken between the
chat server and its clients.

This file defines the JSON payload carried in the DATA field of broadcast
responses (RESOURCE=MESSAGES, DATA_TYPE=JSON).
*/
package protocol

import "encoding/json"

// MessagePayload is the wire-format record of one chat message.
type MessagePayload struct {
	Group      string `json:"group"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`

	// Timestamp is the server-assigned send time, ISO-8601.
	Timestamp string `json:"timestamp"`
}

// MarshalString renders the payload as a compact JSON string for the DATA field.
func (p *MessagePayload) MarshalString() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseMessagePayload decodes the DATA field of a MESSAGES response.
func ParseMessagePayload(data string) (*MessagePayload, error) {
	var p MessagePayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
