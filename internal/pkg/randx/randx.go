/*
Package randx provides functions for generating unique identifiers.

It is used for session identifiers on the server side and for subscription
handles on the client-side response bus.
*/
package randx

import "github.com/google/uuid"

// SessionID generates a UUID v4 string identifying one live connection.
func SessionID() string {
	return uuid.New().String()
}

// SubscriptionID generates a UUID v4 string identifying one bus subscription.
func SubscriptionID() string {
	return uuid.New().String()
}
