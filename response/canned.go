package response

import "net/http"

// Messages used by the canned replies.
const (
	MessageValidationError = "validation_error"
	MessageEmptyRequest    = "empty_request"
	MessageNotFound        = "not_found"
	MessageDeleted         = "deleted"
	MessageForbidden       = "forbidden"
	MessageConstrained     = "constrained"
	MessageBadRequest      = "bad_request"
	MessageServerError     = "server_error"
	MessageTooManyRequests = "too_many_requests"
)

// ValidationFailure replies 400 with one message per failing field.
func ValidationFailure(fields map[string]string) Reply {
	return fail(http.StatusBadRequest, MessageValidationError).Array(fields)
}

// EmptyRequest replies 400 when the request carried no data.
func EmptyRequest() Reply {
	return fail(http.StatusBadRequest, MessageEmptyRequest).Send()
}

// NotFound replies 404 echoing the requested id.
func NotFound(id string) Reply {
	return fail(http.StatusNotFound, MessageNotFound).Array(map[string]string{"id": id})
}

// Deleted replies 200 after a successful delete.
func Deleted() Reply {
	return New().SetMessage(MessageDeleted).Send()
}

// Forbidden replies 403 when the policy rejects the action.
func Forbidden() Reply {
	return fail(http.StatusForbidden, MessageForbidden).Send()
}

// Constrained replies 409 when a foreign key blocks the write. code is the
// vendor error code.
func Constrained(code string) Reply {
	return fail(http.StatusConflict, MessageConstrained).Array(map[string]string{"code": code})
}

// BadRequest replies 400 for input that could not be decoded.
func BadRequest() Reply {
	return fail(http.StatusBadRequest, MessageBadRequest).Send()
}

// ServerError replies 500. Details are logged, never sent.
func ServerError() Reply {
	return fail(http.StatusInternalServerError, MessageServerError).Send()
}

// TooManyRequests replies 429 when the rate limit is exceeded.
func TooManyRequests() Reply {
	return fail(http.StatusTooManyRequests, MessageTooManyRequests).Send()
}

func fail(code int, message string) *Responder {
	return New().SetStatus(false).SetStatusCode(code).SetMessage(message)
}
