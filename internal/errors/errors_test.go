package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func recoverPanic(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(r, 2)
		}
	}()

	f()

	return nil
}

func Test_NewPanicError(t *testing.T) {
	err := recoverPanic(func() {
		panic("something went wrong")
	})

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "panic: something went wrong", pe.Error())
	require.NotEmpty(t, pe.Stacktrace())
	require.NoError(t, errors.Unwrap(pe))
}

func Test_NewPanicError_UnwrapsError(t *testing.T) {
	cause := errors.New("cause")
	err := recoverPanic(func() {
		panic(cause)
	})

	require.ErrorIs(t, err, cause)
}
