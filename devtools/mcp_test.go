package devtools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/spetersoncode/unistore/store"
)

func startClient(t *testing.T, b *Bridge) *client.Client {
	t.Helper()
	c, err := client.NewInProcessClient(NewMCPServer(b, WithName("test-server"), WithVersion("1.0.0")))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { c.Close() })

	_, err = c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "test-client",
				Version: "1.0.0",
			},
		},
	})
	require.NoError(t, err)
	return c
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) (gjson.Result, bool) {
	t.Helper()
	result, err := c.CallTool(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return gjson.Parse(text.Text), result.IsError
}

func TestMCPServer(t *testing.T) {
	t.Run("lists tools", func(t *testing.T) {
		c := startClient(t, New(store.New(nil)))

		result, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
		require.NoError(t, err)

		names := make([]string, len(result.Tools))
		for i, tool := range result.Tools {
			names[i] = tool.Name
		}
		assert.ElementsMatch(t, []string{"get_state", "set_state", "history", "jump"}, names)
	})

	t.Run("get and set state", func(t *testing.T) {
		s := store.New(store.State{"user": map[string]any{"name": "ada"}})
		c := startClient(t, New(s))

		out, isErr := callTool(t, c, "get_state", map[string]any{"path": "user.name"})
		assert.False(t, isErr)
		assert.Equal(t, "ada", out.String())

		out, isErr = callTool(t, c, "set_state", map[string]any{
			"state":  map[string]any{"count": 3},
			"action": "remote",
		})
		assert.False(t, isErr)
		assert.Equal(t, int64(3), out.Get("count").Int())
		assert.EqualValues(t, 3, s.Get()["count"])

		out, _ = callTool(t, c, "get_state", map[string]any{})
		assert.Equal(t, "ada", out.Get("user.name").String())

		_, isErr = callTool(t, c, "set_state", map[string]any{})
		assert.True(t, isErr)
	})

	t.Run("history and jump", func(t *testing.T) {
		s := store.New(store.State{"count": 0})
		c := startClient(t, New(s))
		s.Set(store.State{"count": 1})
		s.Set(store.State{"count": 2}, store.WithAction("inc"))

		out, isErr := callTool(t, c, "history", map[string]any{"limit": 2})
		assert.False(t, isErr)
		require.Len(t, out.Array(), 2)
		assert.Equal(t, "set", out.Get("0.action").String())
		assert.Equal(t, "inc", out.Get("1.action").String())

		out, isErr = callTool(t, c, "jump", map[string]any{"index": 0})
		assert.False(t, isErr)
		assert.Equal(t, int64(0), out.Get("count").Int())
		assert.EqualValues(t, 0, s.Get()["count"])

		_, isErr = callTool(t, c, "jump", map[string]any{"index": 99})
		assert.True(t, isErr)
		_, isErr = callTool(t, c, "jump", map[string]any{})
		assert.True(t, isErr)
	})
}
