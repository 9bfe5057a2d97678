/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system failures both internally
within the server and in the responses sent back to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that a required request field is missing or malformed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that the connection rate from one address exceeded the limit.
	ErrRateLimitExceeded = 1002
)

// 2xxx: Group and Message Business Logic Errors
const (
	// ErrGroupExists indicates that the group name chosen at creation is already taken.
	ErrGroupExists = 2101

	// ErrGroupNotFound indicates that the named group does not exist.
	ErrGroupNotFound = 2102

	// ErrNotMember indicates that the acting user is not a member of the target group.
	ErrNotMember = 2103

	// ErrAlreadyMember indicates that the target user is already a member of the group.
	ErrAlreadyMember = 2104

	// ErrAdminProtected indicates an attempt to remove the group admin from the member list.
	ErrAdminProtected = 2105

	// ErrNotAdmin indicates that an admin-only operation was attempted by a regular member.
	ErrNotAdmin = 2106

	// ErrNewAdminNotMember indicates an admin transfer to a user outside the group.
	ErrNewAdminNotMember = 2107
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrCredentialsRequired indicates that AUTH or SIGNUP arrived without a CREDENTIALS field.
	ErrCredentialsRequired = 3001

	// ErrInvalidCredentials indicates an unknown username or a wrong password.
	ErrInvalidCredentials = 3002

	// ErrUserExists indicates that the username chosen at signup is already taken.
	ErrUserExists = 3003

	// ErrUserNotFound indicates that the named user does not exist.
	ErrUserNotFound = 3004

	// ErrUnauthenticated indicates a request that requires authentication on an
	// unauthenticated session.
	ErrUnauthenticated = 3005
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
