// Package geerrors is the single tagged-union error type used at every
// component boundary in groundeffect, modeled on the Rust source's
// error.rs enum (one variant per failure kind, each carrying just enough
// context to render a JSON-RPC machine code and an action hint).
package geerrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies which boundary an Error crossed.
type Kind int

const (
	KindDatabase Kind = iota
	KindNetwork
	KindAuthExpired
	KindAuthRefreshFailed
	KindRateLimited
	KindAccountNotFound
	KindAccountAlreadyExists
	KindEmailNotFound
	KindEventNotFound
	KindThreadNotFound
	KindResourceNotFound
	KindInvalidRequest
	KindToolNotFound
	KindSync
	KindConfig
	KindInternal
)

// Error is groundeffect's error type. It implements error and Unwrap, and
// carries enough structure to render the fixed JSON-RPC machine code set
// from spec.md §6.4.
type Error struct {
	Kind       Kind
	Message    string
	Account    string        // populated for auth/sync errors
	RetryAfter time.Duration // populated for KindRateLimited
	Err        error         // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Account != "" {
		return fmt.Sprintf("%s (account=%s): %s", kindLabel(e.Kind), e.Account, e.Message)
	}
	return fmt.Sprintf("%s: %s", kindLabel(e.Kind), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func kindLabel(k Kind) string {
	switch k {
	case KindDatabase:
		return "database error"
	case KindNetwork:
		return "network error"
	case KindAuthExpired:
		return "token expired"
	case KindAuthRefreshFailed:
		return "token refresh failed"
	case KindRateLimited:
		return "rate limited"
	case KindAccountNotFound:
		return "account not found"
	case KindAccountAlreadyExists:
		return "account already exists"
	case KindEmailNotFound:
		return "email not found"
	case KindEventNotFound:
		return "event not found"
	case KindThreadNotFound:
		return "thread not found"
	case KindResourceNotFound:
		return "resource not found"
	case KindInvalidRequest:
		return "invalid request"
	case KindToolNotFound:
		return "tool not found"
	case KindSync:
		return "sync error"
	case KindConfig:
		return "configuration error"
	default:
		return "internal error"
	}
}

// MCPCode returns the machine error code from the fixed set named in
// spec.md §6.4.
func (e *Error) MCPCode() string {
	switch e.Kind {
	case KindAuthExpired, KindAuthRefreshFailed:
		return "AUTH_EXPIRED"
	case KindAccountNotFound:
		return "ACCOUNT_NOT_FOUND"
	case KindEmailNotFound:
		return "EMAIL_NOT_FOUND"
	case KindEventNotFound:
		return "EVENT_NOT_FOUND"
	case KindInvalidRequest:
		return "INVALID_REQUEST"
	case KindToolNotFound:
		return "TOOL_NOT_FOUND"
	case KindResourceNotFound:
		return "RESOURCE_NOT_FOUND"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindDatabase:
		return "DATABASE_ERROR"
	case KindNetwork, KindSync:
		return "SYNC_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// ActionHint returns a user-facing recovery hint for recoverable errors.
func (e *Error) ActionHint() (string, bool) {
	switch e.Kind {
	case KindAuthExpired, KindAuthRefreshFailed:
		return "Please re-authenticate in groundeffect preferences", true
	case KindRateLimited:
		return "Please wait and try again", true
	case KindNetwork:
		return "Check your network connection", true
	default:
		return "", false
	}
}

// RequiresReauth reports whether this error means the account needs to be
// re-authenticated.
func (e *Error) RequiresReauth() bool {
	return e.Kind == KindAuthExpired || e.Kind == KindAuthRefreshFailed
}

// --- Constructors, one per boundary, mirroring the Rust enum's variants ---

func Database(cause error) *Error {
	return &Error{Kind: KindDatabase, Message: causeMsg(cause), Err: cause}
}

func Network(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: causeMsg(cause), Err: cause}
}

func TokenExpired(account string) *Error {
	return &Error{Kind: KindAuthExpired, Message: fmt.Sprintf("token expired for account %s", account), Account: account}
}

func TokenRefreshFailed(account, reason string) *Error {
	return &Error{Kind: KindAuthRefreshFailed, Message: reason, Account: account}
}

func RateLimited(retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Message: fmt.Sprintf("retry after %s", retryAfter), RetryAfter: retryAfter}
}

func AccountNotFound(id string) *Error {
	return &Error{Kind: KindAccountNotFound, Message: id, Account: id}
}

func AccountAlreadyExists(id string) *Error {
	return &Error{Kind: KindAccountAlreadyExists, Message: id, Account: id}
}

func EmailNotFound(id string) *Error {
	return &Error{Kind: KindEmailNotFound, Message: id}
}

func EventNotFound(id string) *Error {
	return &Error{Kind: KindEventNotFound, Message: id}
}

func ResourceNotFound(uri string) *Error {
	return &Error{Kind: KindResourceNotFound, Message: uri}
}

func InvalidRequest(msg string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: msg}
}

func ToolNotFound(name string) *Error {
	return &Error{Kind: KindToolNotFound, Message: name}
}

func Imap(msg string) *Error {
	return &Error{Kind: KindSync, Message: "imap: " + msg}
}

func Sync(account, msg string) *Error {
	return &Error{Kind: KindSync, Message: msg, Account: account}
}

func Config(msg string) *Error {
	return &Error{Kind: KindConfig, Message: msg}
}

func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: causeMsg(cause), Err: cause}
}

func causeMsg(cause error) string {
	if cause == nil {
		return ""
	}
	return cause.Error()
}

// As is a thin re-export of errors.As for convenience at call sites that
// only import geerrors.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}
