/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to
standardize protocol responses and internal error handling.
*/
package errs

import "rasel/internal/protocol"

// errorMap stores the detailed CustomError struct corresponding to every application
// error code. The key is the error code (int); entries without an explicit Status
// default to protocol.StatusError when materialized by NewError.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Missing required field: %s"},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many connections. Please try again later."},

	// 2xxx: Group and Message Business Logic Errors
	ErrGroupExists:       {Code: ErrGroupExists, Message: "Group already exists"},
	ErrGroupNotFound:     {Code: ErrGroupNotFound, Message: "Group not found"},
	ErrNotMember:         {Code: ErrNotMember, Message: "You are not a member of this group", Status: protocol.StatusForbidden},
	ErrAlreadyMember:     {Code: ErrAlreadyMember, Message: "User is already a member"},
	ErrAdminProtected:    {Code: ErrAdminProtected, Message: "Admin cannot be removed", Status: protocol.StatusForbidden},
	ErrNotAdmin:          {Code: ErrNotAdmin, Message: "Only group admin can add members", Status: protocol.StatusForbidden},
	ErrNewAdminNotMember: {Code: ErrNewAdminNotMember, Message: "New admin must be a current member"},

	// 3xxx: User, Session, and Security Errors
	ErrCredentialsRequired: {Code: ErrCredentialsRequired, Message: "Credentials must be provided"},
	ErrInvalidCredentials:  {Code: ErrInvalidCredentials, Message: "Invalid credentials"},
	ErrUserExists:          {Code: ErrUserExists, Message: "User already exists"},
	ErrUserNotFound:        {Code: ErrUserNotFound, Message: "User not found"},
	ErrUnauthenticated:     {Code: ErrUnauthenticated, Message: "You should be authenticated first", Status: protocol.StatusForbidden},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again."},
}
