// Package cerr builds errors that carry structured fields alongside
// cockroachdb stack traces, so a failure can be logged with the same
// context it was created with.
package cerr

import (
	"fmt"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

type F map[string]any

type Context struct {
	fields F
	err    error
}

func Field(key string, value any) Context {
	return Context{}.Field(key, value)
}

func Fields(fields F) Context {
	ctx := Context{}
	for key, value := range fields {
		ctx = ctx.Field(key, value)
	}

	return ctx
}

func Wrap(err error) Context {
	return Context{}.Wrap(err)
}

func Error(msg string) error {
	return Context{}.Error(msg)
}

func (c Context) Field(key string, value any) Context {
	fields := make(F, len(c.fields)+1)
	for k, v := range c.fields {
		fields[k] = v
	}
	fields[key] = value

	return Context{
		fields: fields,
		err:    c.err,
	}
}

func (c Context) Wrap(err error) Context {
	return Context{
		fields: c.fields,
		err:    err,
	}
}

func (c Context) Error(msg string) error {
	var base error
	if c.err != nil {
		base = errors.WrapWithDepth(1, c.err, msg)
	} else {
		base = errors.NewWithDepth(1, msg)
	}

	if len(c.fields) == 0 {
		return base
	}

	return &fieldsError{
		cause:  base,
		fields: c.fields,
	}
}

// FieldsOf collects every field attached along the error chain.
// Fields closer to the top of the chain win over deeper ones.
func FieldsOf(err error) F {
	chain := []F{}
	for current := err; current != nil; current = errors.UnwrapOnce(current) {
		if fe, ok := current.(*fieldsError); ok {
			chain = append(chain, fe.fields)
		}
	}

	fields := F{}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i] {
			fields[k] = v
		}
	}

	return fields
}

func Log(err error) {
	if err == nil {
		return
	}

	logFields := log.Fields{}
	for k, v := range FieldsOf(err) {
		logFields[k] = v
	}

	entry := log.WithFields(logFields).WithError(err)
	entry.Error("Error occurred")
	entry.Debug(fmt.Sprintf("%+v", err))
}

type fieldsError struct {
	cause  error
	fields F
}

var _ errors.Formatter = &fieldsError{}

func (f *fieldsError) Error() string {
	return f.cause.Error()
}

func (f *fieldsError) Unwrap() error {
	return f.cause
}

func (f *fieldsError) Format(s fmt.State, verb rune) {
	errors.FormatError(f, s, verb)
}

func (f *fieldsError) FormatError(p errors.Printer) error {
	if p.Detail() {
		p.Printf("fields: %v", map[string]any(f.fields))
	}

	return f.cause
}
