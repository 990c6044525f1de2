package wsh

import (
	"time"

	"github.com/xtaci/wsh/proto"
)

// DefaultToolTimeout bounds DiscoverTools and CallTool.
const DefaultToolTimeout = 30 * time.Second

// DiscoverTools sends MCP_DISCOVER and returns the tool list from the
// matching MCP_TOOLS reply. A zero timeout falls back to DefaultToolTimeout.
func (c *Client) DiscoverTools(timeout time.Duration) ([]proto.ToolSpec, error) {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	if err := c.requireAuthenticated(); err != nil {
		return nil, err
	}
	if err := c.sendControl(proto.NewMcpDiscover()); err != nil {
		return nil, &TransportError{Cause: err}
	}
	rec, err := c.waitFor("mcp-discover", timeout, proto.MCP_TOOLS)
	if err != nil {
		return nil, err
	}
	tools, _ := rec.(*proto.McpTools)
	return tools.Tools, nil
}

// CallTool invokes a remote tool by name with args and returns its result.
// A zero timeout falls back to DefaultToolTimeout. Only one CallTool may be
// in flight at a time per Client: the waiter table dispatches MCP_RESULT by
// opcode alone, so a second concurrent call would race the first for the
// same reply.
func (c *Client) CallTool(name string, args map[string]interface{}, timeout time.Duration) (interface{}, error) {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	if err := c.requireAuthenticated(); err != nil {
		return nil, err
	}
	correlator := c.nextCorrelator()
	if err := c.sendControl(proto.NewMcpCall(correlator, name, args)); err != nil {
		return nil, &TransportError{Cause: err}
	}

	rec, err := c.waitFor("mcp-call:"+name, timeout, proto.MCP_RESULT)
	if err != nil {
		return nil, err
	}
	result, _ := rec.(*proto.McpResult)
	if result.IsError {
		return nil, &OpenFailed{Reason: "tool call failed"}
	}
	return result.Result, nil
}
