package golden

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaptmpl/pkg/stream"
)

func TestRender(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		render func() stream.Stream[string]
		want   string
	}{
		{"literal then value", func() stream.Stream[string] { return Hello(ctx, "hi") }, "hello worldhi"},
		{"escaped value", func() stream.Stream[string] { return Hello(ctx, `<b a="1">`) }, "hello world&lt;b a=&#34;1&#34;&gt;"},
		{"condition true", func() stream.Stream[string] { return Conditional(ctx, true, "hi") }, "truehi"},
		{"condition false", func() stream.Stream[string] { return Conditional(ctx, false, "hi") }, ""},
		{"loop", func() stream.Stream[string] { return Rows(ctx, []string{"abc", "def", "ghi"}) }, "trueabctruedeftrueghi"},
		{"empty loop", func() stream.Stream[string] { return Rows(ctx, nil) }, ""},
		{"element with attribute", func() stream.Stream[string] { return Label(ctx) }, `<label for="test"></label>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stream.String(tt.render())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_ChunksInOrder(t *testing.T) {
	items, err := stream.Collect(Rows(context.Background(), []string{"abc", "def"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"true", "abc", "true", "def"}, items)
}
