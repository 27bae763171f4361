package infra

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

var initPC = caller()

func caller() Frame {
	var PCs [3]uintptr
	n := runtime.Callers(2, PCs[:])
	frames := runtime.CallersFrames(PCs[:n])
	frame, _ := frames.Next()
	return Frame(frame.PC)
}

func TestFrameFormat(t *testing.T) {
	testcases := []struct {
		Frame
		format   string
		contains string
	}{
		{initPC, "%s", "err_stack_test.go"},
		{initPC, "%n", "init"},
		{initPC, "%v", "err_stack_test.go:"},
		{initPC, "%+s", "xpal/lib/infra.init\n\t"},
		{Frame(0), "%s", "unknownFile"},
		{Frame(0), "%n", "unknownFunc"},
		{Frame(0), "%d", "0"},
	}

	for _, tc := range testcases {
		require.Contains(t, fmt.Sprintf(tc.format, tc.Frame), tc.contains)
	}
}

func TestFrameMarshalText(t *testing.T) {
	text, err := initPC.MarshalText()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(text), "github.com/benz9527/xpal/lib/infra.init "))

	text, err = Frame(0).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "unknownFrame", string(text))
}

func TestErrorStack(t *testing.T) {
	errBase := errors.New("base")

	err := WrapErrorStack(errBase)
	require.ErrorIs(t, err, errBase)
	var es ErrorStack
	require.ErrorAs(t, err, &es)
	require.NotEmpty(t, es.Frames())
	require.Contains(t, fmt.Sprintf("%+v", err), "err_stack_test.go")

	// Wrapping again keeps the original frames.
	require.Equal(t, err, WrapErrorStack(err))

	werr := WrapErrorStackWithMessage(err, "outer")
	require.Equal(t, "outer: base", werr.Error())
	require.ErrorIs(t, werr, errBase)
	var wes ErrorStack
	require.ErrorAs(t, werr, &wes)
	require.Equal(t, es.Frames(), wes.Frames())

	require.NoError(t, WrapErrorStack(nil))
	require.NoError(t, WrapErrorStackWithMessage(nil, "nothing"))

	nerr := NewErrorStack("plain")
	require.Equal(t, "plain", nerr.Error())
}

func TestErrorStackMarshalLogObject(t *testing.T) {
	err := NewErrorStack("marshal")
	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, err.(ErrorStack).MarshalLogObject(enc))
	require.Equal(t, "marshal", enc.Fields["error"])
	frames, ok := enc.Fields["errorStack"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, frames)
}
