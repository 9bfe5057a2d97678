/*
Package directory contains the in-memory registries of users, groups, and
messages, together with the uniqueness and membership invariants the rest of
the server relies on.

This file defines the Store, the concurrency-safe facade over those
registries. Every per-connection dispatcher shares one Store instance; all
operations take the Store's lock internally, so callers never synchronize.
*/
package directory

import (
	"sync"

	"github.com/rs/zerolog"

	"rasel/internal/pkg/errs"
	"rasel/internal/pkg/logx"
	"rasel/internal/pkg/passwd"
)

// Store is the in-memory directory of users, groups, and messages.
// Atomicity is per operation; no cross-operation transactions are offered.
type Store struct {
	mu sync.RWMutex

	// users maps username to the durable identity. userOrder preserves signup
	// order for listings.
	users     map[string]*User
	userOrder []string

	// groups maps group name to the group. groupOrder preserves creation order.
	groups     map[string]*Group
	groupOrder []string

	// messages is the append-only message log, chronological by insertion.
	messages []*Message

	hasher passwd.Hasher

	logger zerolog.Logger
}

// NewStore constructs an empty Store using the given password hasher.
func NewStore(hasher passwd.Hasher) *Store {
	return &Store{
		users:  make(map[string]*User),
		groups: make(map[string]*Group),
		hasher: hasher,
		logger: logx.Logger().With().Str("component", "directory").Logger(),
	}
}

// CreateUser registers a new user. The username must be unique.
func (s *Store) CreateUser(username, password string) (*User, *errs.CustomError) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("Password hashing failed.")
		return nil, errs.NewError(errs.ErrUnknown, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return nil, errs.NewError(errs.ErrUserExists)
	}

	user := &User{Username: username, PasswordHash: hash}
	s.users[username] = user
	s.userOrder = append(s.userOrder, username)

	s.logger.Info().Str("username", username).Msg("User created.")
	return user, nil
}

// GetUser returns the user with the given username, if registered.
func (s *Store) GetUser(username string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	return user, ok
}

// FindByUsername is an alias of GetUser.
func (s *Store) FindByUsername(username string) (*User, bool) {
	return s.GetUser(username)
}

// VerifyPassword checks the candidate password against the stored hash and
// returns the user on success.
func (s *Store) VerifyPassword(username, password string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, false
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, false
	}
	return user, true
}

// SetPassword replaces the stored password hash for an existing user.
// Identity stays immutable; only the credential changes.
func (s *Store) SetPassword(username, password string) *errs.CustomError {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return errs.NewError(errs.ErrUnknown, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return errs.NewError(errs.ErrUserNotFound)
	}
	user.PasswordHash = hash
	return nil
}

// AllUsernames returns every registered username in signup order.
func (s *Store) AllUsernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.userOrder))
	copy(out, s.userOrder)
	return out
}

// UserCount returns the number of registered users.
func (s *Store) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// CreateGroup registers a new group with the given admin. The admin joins the
// member list immediately; the group name must be unique.
func (s *Store) CreateGroup(name string, admin *User) (*Group, *errs.CustomError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groups[name]; exists {
		return nil, errs.NewError(errs.ErrGroupExists)
	}

	group := &Group{
		Name:    name,
		admin:   admin,
		members: []*User{admin},
	}
	s.groups[name] = group
	s.groupOrder = append(s.groupOrder, name)

	s.logger.Info().Str("group", name).Str("admin", admin.Username).Msg("Group created.")
	return group, nil
}

// GroupExists reports whether a group with the given name is registered.
func (s *Store) GroupExists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.groups[name]
	return ok
}

// AddMember adds a user to the group's member set.
func (s *Store) AddMember(groupName string, user *User) *errs.CustomError {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[groupName]
	if !ok {
		return errs.NewError(errs.ErrGroupNotFound)
	}
	if group.isMember(user) {
		return errs.NewError(errs.ErrAlreadyMember)
	}

	group.members = append(group.members, user)
	s.logger.Info().Str("group", groupName).Str("username", user.Username).Msg("Member added.")
	return nil
}

// RemoveMember removes a user from the group's member set. The admin is
// protected and can never be removed.
func (s *Store) RemoveMember(groupName string, user *User) *errs.CustomError {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[groupName]
	if !ok {
		return errs.NewError(errs.ErrGroupNotFound)
	}
	if !group.isMember(user) {
		return errs.NewError(errs.ErrNotMember)
	}
	if group.isAdmin(user) {
		return errs.NewError(errs.ErrAdminProtected)
	}

	for idx, m := range group.members {
		if m.ID() == user.ID() {
			group.members = append(group.members[:idx], group.members[idx+1:]...)
			break
		}
	}
	s.logger.Info().Str("group", groupName).Str("username", user.Username).Msg("Member removed.")
	return nil
}

// TransferAdmin hands group administration to another current member.
func (s *Store) TransferAdmin(groupName string, newAdmin *User) *errs.CustomError {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[groupName]
	if !ok {
		return errs.NewError(errs.ErrGroupNotFound)
	}
	if !group.isMember(newAdmin) {
		return errs.NewError(errs.ErrNewAdminNotMember)
	}

	group.admin = newAdmin
	s.logger.Info().Str("group", groupName).Str("username", newAdmin.Username).Msg("Admin transferred.")
	return nil
}

// IsMember reports whether the user belongs to the group. The second return
// value reports whether the group exists at all.
func (s *Store) IsMember(groupName string, user *User) (member bool, exists bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, ok := s.groups[groupName]
	if !ok {
		return false, false
	}
	return group.isMember(user), true
}

// IsAdmin reports whether the user administers the group.
func (s *Store) IsAdmin(groupName string, user *User) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, ok := s.groups[groupName]
	if !ok {
		return false
	}
	return group.isAdmin(user)
}

// GroupMembers returns a snapshot of the group's member list in join order.
// Broadcast works from this snapshot; members added concurrently may or may
// not be included, which is acceptable per the consistency contract.
func (s *Store) GroupMembers(groupName string) ([]*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, ok := s.groups[groupName]
	if !ok {
		return nil, false
	}

	out := make([]*User, len(group.members))
	copy(out, group.members)
	return out, true
}

// MemberUsernames returns the usernames of the group's members in join order.
func (s *Store) MemberUsernames(groupName string) ([]string, bool) {
	members, ok := s.GroupMembers(groupName)
	if !ok {
		return nil, false
	}

	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Username
	}
	return names, true
}

// GroupNames returns every group name in creation order.
func (s *Store) GroupNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.groupOrder))
	copy(out, s.groupOrder)
	return out
}

// GroupCount returns the number of registered groups.
func (s *Store) GroupCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groups)
}

// GroupsForUser returns the names of the groups the user belongs to, in group
// creation order.
func (s *Store) GroupsForUser(user *User) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, name := range s.groupOrder {
		if s.groups[name].isMember(user) {
			out = append(out, name)
		}
	}
	return out
}

// AppendMessage appends one message to the log. Messages are retained for the
// group's lifetime; there is no edit or delete.
func (s *Store) AppendMessage(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
}

// MessagesForGroup returns the group's messages in insertion (chronological)
// order.
func (s *Store) MessagesForGroup(groupName string) []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Message
	for _, msg := range s.messages {
		if msg.Group == groupName {
			out = append(out, msg)
		}
	}
	return out
}
