package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-rest-scaffold/query"
)

// Envelope is the body of every response. Pagination is only set for
// paginated reads.
type Envelope struct {
	Status     bool              `json:"status"`
	Data       any               `json:"data"`
	Message    string            `json:"message"`
	Pagination *query.Pagination `json:"pagination,omitempty"`
}

// Reply is an envelope together with its HTTP status code.
type Reply struct {
	Code     int
	Envelope Envelope
}

// Write sends the reply as JSON.
func (r Reply) Write(c *gin.Context) {
	c.JSON(r.Code, r.Envelope)
}

// Responder carries the status flag, message and HTTP code of the next
// reply. The zero value is not usable; call New.
type Responder struct {
	status  bool
	message string
	code    int
}

// New returns a Responder with status true, an empty message and code 200.
func New() *Responder {
	return &Responder{status: true, code: http.StatusOK}
}

// SetStatus sets the envelope status flag.
func (r *Responder) SetStatus(status bool) *Responder {
	r.status = status
	return r
}

// SetMessage sets the envelope message.
func (r *Responder) SetMessage(message string) *Responder {
	r.message = message
	return r
}

// SetStatusCode sets the HTTP status code.
func (r *Responder) SetStatusCode(code int) *Responder {
	r.code = code
	return r
}

// StatusCode returns the HTTP status code of the next reply.
func (r *Responder) StatusCode() int {
	return r.code
}

// Send replies with an empty data array.
func (r *Responder) Send() Reply {
	return r.reply(emptyData(), nil)
}

// Array replies with data as given. Used for counts, status lists and
// field error maps.
func (r *Responder) Array(data any) Reply {
	return r.reply(data, nil)
}

func (r *Responder) reply(data any, pagination *query.Pagination) Reply {
	return Reply{
		Code: r.code,
		Envelope: Envelope{
			Status:     r.status,
			Data:       data,
			Message:    r.message,
			Pagination: pagination,
		},
	}
}

// Object replies with a single transformed record.
func Object[T any](r *Responder, item T, t Transformer[T]) Reply {
	return r.reply(transformOne(item, t), nil)
}

// Collection replies with transformed records and no pagination.
func Collection[T any](r *Responder, items []T, t Transformer[T]) Reply {
	return r.reply(transformMany(items, t), nil)
}

// Page replies with transformed records and their pagination metadata.
func Page[T any](r *Responder, items []T, pagination query.Pagination, t Transformer[T]) Reply {
	return r.reply(transformMany(items, t), &pagination)
}

func emptyData() []any {
	return []any{}
}
