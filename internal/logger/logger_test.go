package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type rejection struct{}

func (rejection) Error() string  { return "rejected" }
func (rejection) Expected() bool { return true }

func TestFromContext_RequestID(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New(&buf, "debug", "json"))

	ctx := WithRequestID(context.Background(), "req-1")
	InfoContext(ctx, "hello")

	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestExitMethod_Levels(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New(&buf, "debug", "text"))
	ctx := context.Background()

	ExitMethod(ctx, "CreateLoan", nil)
	assert.Contains(t, buf.String(), "level=DEBUG")

	buf.Reset()
	ExitMethod(ctx, "CreateLoan", rejection{})
	assert.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	ExitMethod(ctx, "CreateLoan", errors.New("boom"))
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestIsExpected_Wrapped(t *testing.T) {
	assert.True(t, isExpected(wrap{rejection{}}))
	assert.False(t, isExpected(errors.New("x")))
}

type wrap struct{ err error }

func (w wrap) Error() string { return w.err.Error() }
func (w wrap) Unwrap() error { return w.err }
