package pkg

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

var errDiskFull = errors.New("disk full")

type faultyWriter struct{}

func (fw *faultyWriter) Write(p []byte) (n int, err error) {
	return 0, errDiskFull
}

type shortWriter struct{}

func (sw *shortWriter) Write(p []byte) (n int, err error) {
	return len(p) / 2, nil
}

func TestCombinedWriter_Write(t *testing.T) {
	sb1 := &strings.Builder{}
	initMessage := "already-here"
	sb1.WriteString(initMessage)
	sb2 := &strings.Builder{}

	cw := NewCombinedWriter(sb1, nil, sb2)
	require.NotNil(t, cw)
	assert.Equal(t, 2, cw.Len())

	msg1 := "a message"
	msg2 := "another message here"
	n, err := cw.Write([]byte(msg1))
	require.NoError(t, err)
	assert.Equal(t, len(msg1), n)
	n, err = cw.Write([]byte(msg2))
	require.NoError(t, err)
	assert.Equal(t, len(msg2), n)

	assert.Equal(t, initMessage+msg1+msg2, sb1.String())
	assert.Equal(t, msg1+msg2, sb2.String())
}

func TestCombinedWriter_Write_WithError(t *testing.T) {
	sb := &strings.Builder{}
	cw := NewCombinedWriter(&faultyWriter{}, sb, &shortWriter{})

	msg := "a message"
	n, err := cw.Write([]byte(msg))
	require.Error(t, err)
	// the builder took all of it
	assert.Equal(t, len(msg), n)
	assert.Equal(t, msg, sb.String())

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], errDiskFull)
	assert.Contains(t, errs[0].Error(), "writer 0")
	assert.ErrorIs(t, errs[1], io.ErrShortWrite)
	assert.Contains(t, errs[1].Error(), "writer 2")
}

func TestCombinedWriter_Write_AllFailing(t *testing.T) {
	cw := NewCombinedWriter(&faultyWriter{}, &faultyWriter{})
	n, err := cw.Write([]byte("lost"))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Len(t, multierr.Errors(err), 2)

	// no writers behaves like io.Discard
	n, err = NewCombinedWriter().Write([]byte("nowhere"))
	assert.Equal(t, len("nowhere"), n)
	assert.NoError(t, err)
}
