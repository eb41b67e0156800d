// Package httperr defines the stable machine-readable error codes this
// service returns, so clients can distinguish "needs re-login" from
// "logged in but not permitted" from "bad input".
package httperr

import "github.com/labstack/echo/v4"

const (
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeTokenNotFound       = "TOKEN_NOT_FOUND"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeOrgNotFound         = "ORG_NOT_FOUND"
	CodeOrgInactive         = "ORG_INACTIVE"
	CodeNotAMember          = "NOT_A_MEMBER"
	CodeInsufficientRole    = "INSUFFICIENT_ROLE"
	CodeLastAdminProtected  = "LAST_ADMIN_PROTECTED"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeConflict            = "CONFLICT"
	CodeNotFound            = "NOT_FOUND"
	CodeInviteEmailMismatch = "INVITE_EMAIL_MISMATCH"
	CodeInviteInvalid       = "INVITE_INVALID"
	CodeInternal            = "INTERNAL"
)

// JSON writes a structured error response with a stable code and a
// human-readable message.
func JSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, echo.Map{"error": message, "code": code})
}
