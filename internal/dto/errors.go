package dto

// Error codes carried in Error.Code.
const (
	CodeLoginRequired  = "login_required"
	CodeSessionExpired = "session_expired"
	CodeReauthRequired = "reauth_required"
	CodeValidation     = "validation_failed"
	CodeNotFound       = "not_found"
	CodeForbidden      = "forbidden"
	CodeConflict       = "conflict"
	CodeRateLimited    = "rate_limited"
	CodeInternal       = "internal"
)

// Messages the API sends with the session codes. Older backends send only
// the message, so clients may still need to recognise them.
const (
	MessageLoginRequired  = "please login to access this resource"
	MessageSessionExpired = "login again ! session expired"
	MessageReauthRequired = "login again"
)

// IsSessionCode reports whether code means the caller has to log in again.
func IsSessionCode(code string) bool {
	switch code {
	case CodeLoginRequired, CodeSessionExpired, CodeReauthRequired:
		return true
	}
	return false
}
