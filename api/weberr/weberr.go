package weberr

import "errors"

type Opt func(error) error

func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

func WithResponse(body interface{}, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

// WithFields attaches log fields to err. Fields already carried by err are
// kept unless overwritten.
func WithFields(fields map[string]interface{}) Opt {
	return func(err error) error {
		merged := make(map[string]interface{}, len(fields))
		if prev, ok := Fields(err); ok {
			for k, v := range prev {
				merged[k] = v
			}
		}
		for k, v := range fields {
			merged[k] = v
		}
		return &fieldsError{error: err, fields: merged}
	}
}

type fielder interface {
	Fields() map[string]interface{}
}

func Fields(err error) (fields map[string]interface{}, ok bool) {
	var fe fielder
	if errors.As(err, &fe) {
		return fe.Fields(), true
	}
	return nil, false
}

type fieldsError struct {
	error
	fields map[string]interface{}
}

func (e *fieldsError) Fields() map[string]interface{} { return e.fields }

func (e *fieldsError) Unwrap() error { return e.error }

type responder interface {
	Response() (body interface{}, status int)
}

func Response(err error) (body interface{}, status int, ok bool) {
	var re responder
	if errors.As(err, &re) {
		body, code := re.Response()
		return body, code, true
	}
	return nil, 0, false
}

// Status returns the HTTP status bound to err, 500 when there is none.
func Status(err error) int {
	if _, status, ok := Response(err); ok {
		return status
	}
	return 500
}

type responseError struct {
	error
	body   interface{}
	status int
}

func (e *responseError) Response() (interface{}, int) {
	return e.body, e.status
}

func (e *responseError) Unwrap() error {
	return e.error
}
