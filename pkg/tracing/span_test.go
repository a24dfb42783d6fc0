package tracing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildSpansShareTrace(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "run", "")
	require.NotEmpty(t, root.TraceID)

	_, child := StartChildSpan(ctx, "tfidf")
	child.SetAttr("documents", 3)
	child.End(errors.New("failed"))
	root.End(nil)

	assert.Equal(t, root.TraceID, child.TraceID)
	require.Len(t, root.Children, 1)

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, nil)))
	assert.Contains(t, buf.String(), "span=tfidf")
	assert.Contains(t, buf.String(), "documents=3")
	assert.Contains(t, buf.String(), "error=failed")
}
