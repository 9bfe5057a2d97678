/*
Package directory contains the in-memory registries of users, groups, and
messages, together with the uniqueness and membership invariants the rest of
the server relies on.

This file defines the entity types. All mutation and concurrent access goes
through the Store, which owns the lock.
*/
package directory

// User represents a durable chat identity. The username is unique and
// immutable; only the password hash may change after signup.
type User struct {
	Username     string
	PasswordHash string
}

// ID returns the user's unique identifier, derived from the username.
func (u *User) ID() string {
	return u.Username
}

// Group represents a named chat group. The admin is always a member and cannot
// be removed. Membership is an ordered set, unique by user ID.
type Group struct {
	Name string

	admin   *User
	members []*User
}

func (g *Group) isMember(user *User) bool {
	for _, m := range g.members {
		if m.ID() == user.ID() {
			return true
		}
	}
	return false
}

func (g *Group) isAdmin(user *User) bool {
	return g.admin.ID() == user.ID()
}

// Message is one append-only chat message. The timestamp is the
// server-assigned send time in ISO-8601 form.
type Message struct {
	Sender    *User
	Group     string
	Content   string
	Timestamp string
}
