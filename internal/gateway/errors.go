package gateway

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/fieldops/fieldops/internal/dto"
)

// UnknownErrorMessage is shown for failures that carry no server message.
const UnknownErrorMessage = "Unknown error occurred"

// Kind classifies a failed call.
type Kind int

const (
	// KindRejected is a server error response carrying its own message.
	KindRejected Kind = iota + 1
	// KindSessionExpired means the caller must log in again.
	KindSessionExpired
	// KindNetwork covers transport failures and unreadable responses.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindSessionExpired:
		return "session_expired"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is returned for every failed call.
type Error struct {
	Status  int
	Code    string
	Message string
	Kind    Kind
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsSessionExpired reports whether err is a session expiry error.
func IsSessionExpired(err error) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Kind == KindSessionExpired
}

// Message returns the text to show for err: the server message for gateway
// errors and UnknownErrorMessage otherwise.
func Message(err error) string {
	var gerr *Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	return UnknownErrorMessage
}

var legacyExpiryMessages = map[string]struct{}{
	dto.MessageLoginRequired:  {},
	dto.MessageSessionExpired: {},
	dto.MessageReauthRequired: {},
}

func (c *Client) decodeError(status int, raw []byte) *Error {
	var body dto.Error
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	e := &Error{Status: status, Code: body.Code, Message: body.Message, Kind: KindRejected}
	if e.Message == "" {
		e.Message = UnknownErrorMessage
	}
	if dto.IsSessionCode(body.Code) {
		e.Kind = KindSessionExpired
	} else if c.legacy && body.Code == "" {
		if _, ok := legacyExpiryMessages[strings.TrimSpace(body.Message)]; ok {
			e.Kind = KindSessionExpired
		}
	}
	return e
}
