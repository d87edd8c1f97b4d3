package errors

import "net/http"

// ToHTTPStatus maps an error code to an HTTP status code.
func ToHTTPStatus(code string) int {
	switch code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodePrecondition, CodeAlreadyExtended:
		return http.StatusConflict
	case CodeSignature:
		return http.StatusBadRequest
	case CodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// StatusOf maps an error to the HTTP status for its code.
func StatusOf(err error) int {
	return ToHTTPStatus(CodeOf(err))
}
