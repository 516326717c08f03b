// Package domain contains core concepts of the chat panel.
// This file defines Message rows and the rules a message must satisfy.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"
)

// MaxContentLength bounds a message, counted in characters (runes).
const MaxContentLength = 500

// Message is one row of the shared messages table.
// ID is generated by the client at insert time and never changes afterwards.
type Message struct {
	ID        string
	UserID    string
	Content   string
	CreatedAt time.Time
}

// OwnedBy reports whether identity is allowed to edit or delete the message.
func (m Message) OwnedBy(identity Identity) bool {
	return identity.ID != "" && m.UserID == identity.ID
}

// Entry is a message as views see it: the row plus everything resolved for display.
type Entry struct {
	Message
	DisplayName string
	Color       string
	Owned       bool
}

// ShortIDLength is how much of a message id is shown and accepted by /edit and /delete.
const ShortIDLength = 8

// ShortID is the prefix of id displayed next to owned messages.
func ShortID(id string) string {
	if len(id) <= ShortIDLength {
		return id
	}
	return id[:ShortIDLength]
}
