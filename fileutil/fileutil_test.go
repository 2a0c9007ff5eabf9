package fileutil

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReader(t *testing.T) {
	t.Parallel()

	var calls []int64

	pr := &ProgressReader{
		Reader: strings.NewReader("hello world"),
		Total:  11,
		Fn: func(current, _ int64) {
			calls = append(calls, current)
		},
	}

	content, err := io.ReadAll(pr)
	require.NoError(t, err)

	assert.Equal(t, "hello world", string(content))
	require.NotEmpty(t, calls)
	assert.Equal(t, int64(11), calls[len(calls)-1])
}

func TestProgressReader_NilCallback(t *testing.T) {
	t.Parallel()

	pr := &ProgressReader{Reader: strings.NewReader("data")}

	content, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
}

func TestContextReader_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cr := &ContextReader{Ctx: ctx, Reader: strings.NewReader("never read")}

	_, err := io.ReadAll(cr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestContextReader_PassesThrough(t *testing.T) {
	t.Parallel()

	cr := &ContextReader{Ctx: context.Background(), Reader: strings.NewReader("content")}

	content, err := io.ReadAll(cr)
	require.NoError(t, err)
	assert.Equal(t, "content", string(content))
}
