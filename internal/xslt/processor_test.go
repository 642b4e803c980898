package xslt

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yanizio/oairepo/internal/config"
	"github.com/yanizio/oairepo/internal/model"
)

type fakeSheets struct {
	calls atomic.Int32
}

func (f *fakeSheets) Get(ctx context.Context, id int64) (model.Stylesheet, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return model.Stylesheet{}, err
	}
	if id == 404 {
		return model.Stylesheet{}, model.ErrNotFound
	}
	return model.Stylesheet{ID: id, Name: "to-dc", Content: "<xsl:stylesheet/>"}, nil
}

func newProcessor(t *testing.T, sheets Stylesheets) *Processor {
	t.Helper()
	p, err := New(config.XSLT{
		Binary:    "xsltproc",
		WorkDir:   t.TempDir(),
		CacheSize: 4,
		CacheTTL:  time.Minute,
		Timeout:   time.Second,
	}, sheets, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return p
}

func TestTransform_RunsWithCachedStylesheet(t *testing.T) {
	sheets := &fakeSheets{}
	var gotArgs []string
	p := newProcessor(t, sheets).WithRunner(func(ctx context.Context, bin string, args []string, stdin []byte) ([]byte, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		assert.Equal(t, "xsltproc", bin)
		gotArgs = args
		content, err := os.ReadFile(args[1])
		require.NoError(t, err)
		assert.Equal(t, "<xsl:stylesheet/>", string(content))
		return append([]byte("out:"), stdin...), nil
	})

	for i := 0; i < 3; i++ {
		out, err := p.Transform(context.Background(), []byte("<doc/>"), 7)
		require.NoError(t, err)
		assert.Equal(t, "out:<doc/>", string(out))
	}
	assert.EqualValues(t, 1, sheets.calls.Load())
	assert.Equal(t, "--nonet", gotArgs[0])
	assert.Equal(t, "-", gotArgs[2])
}

func TestTransform_InvalidateRemovesFile(t *testing.T) {
	sheets := &fakeSheets{}
	var path string
	p := newProcessor(t, sheets).WithRunner(func(_ context.Context, _ string, args []string, _ []byte) ([]byte, error) {
		path = args[1]
		return nil, nil
	})

	_, err := p.Transform(context.Background(), nil, 7)
	require.NoError(t, err)
	p.Invalidate(7)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	_, err = p.Transform(context.Background(), nil, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 2, sheets.calls.Load())
}

func TestTransform_StylesheetLoadIgnoresCallerCancellation(t *testing.T) {
	sheets := &fakeSheets{}
	p := newProcessor(t, sheets).WithRunner(func(_ context.Context, _ string, _ []string, stdin []byte) ([]byte, error) {
		return stdin, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := p.Transform(ctx, []byte("<doc/>"), 7)
	require.NoError(t, err)
	assert.Equal(t, "<doc/>", string(out))

	// The cached file now serves later callers.
	_, err = p.Transform(context.Background(), nil, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 1, sheets.calls.Load())
}

func TestTransform_Errors(t *testing.T) {
	p := newProcessor(t, &fakeSheets{}).WithRunner(func(context.Context, string, []string, []byte) ([]byte, error) {
		return nil, errors.New("exit status 5")
	})

	_, err := p.Transform(context.Background(), nil, 404)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = p.Transform(context.Background(), nil, 1)
	assert.ErrorContains(t, err, "exit status 5")
}
