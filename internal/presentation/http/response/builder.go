package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/printcore/pkg/errorbank"
)

// Envelope is the JSON body of every operator response.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorBody     `json:"error,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// ErrorBody describes a failed request. Retryable tells the operator UI that
// the same request may succeed once the printer recovers.
type ErrorBody struct {
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// NewErrorBody converts any error into its wire form.
func NewErrorBody(err error) *ErrorBody {
	appErr := errorbank.From(err)
	return &ErrorBody{
		Kind:      string(appErr.Kind()),
		Message:   appErr.Message(),
		Retryable: appErr.Retryable(),
		Details:   appErr.Details(),
	}
}

// Builder accumulates a response and writes it once.
type Builder struct {
	ctx    echo.Context
	status int
	data   any
	err    error
	meta   map[string]any
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx}
}

// WithStatus overrides the response status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a success payload.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithError records an error to be rendered. Its kind decides the status
// unless WithStatus set an error status explicitly.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithMeta appends auxiliary metadata to the response.
func (b *Builder) WithMeta(key string, value any) *Builder {
	if key == "" {
		return b
	}
	if b.meta == nil {
		b.meta = make(map[string]any)
	}
	b.meta[key] = value
	return b
}

// Build writes the envelope.
func (b *Builder) Build() error {
	env := Envelope{Success: b.err == nil, Meta: b.meta}
	status := b.status

	if b.err != nil {
		env.Error = NewErrorBody(b.err)
		if status < http.StatusBadRequest {
			status = errorbank.From(b.err).StatusCode()
		}
	} else {
		env.Data = b.data
		if status == 0 {
			status = http.StatusOK
		}
	}
	return b.ctx.JSON(status, env)
}
