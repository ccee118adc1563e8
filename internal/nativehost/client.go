package nativehost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/iamzifei/bookmark-is-learned/internal/llm"
)

// ErrHelperFailed wraps a helper reply with success=false.
var ErrHelperFailed = errors.New("helper request failed")

const defaultTimeout = 2 * time.Minute

// Client talks to the helper binary the way a browser does: one process per
// message, request on stdin, reply on stdout.
type Client struct {
	Path    string
	Args    []string
	Env     []string
	Timeout time.Duration
}

func NewClient(path string) *Client {
	return &Client{Path: path, Timeout: defaultTimeout}
}

// Send runs the helper for one request.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("%w: helper not installed", ErrHelperFailed)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdin, stdout bytes.Buffer
	if err := WriteMessage(&stdin, req); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if c.Env != nil {
		cmd.Env = c.Env
	}
	cmd.Stdin = &stdin
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running helper: %w", err)
	}

	var resp Response
	if err := ReadMessage(&stdout, &resp); err != nil {
		return nil, fmt.Errorf("reading helper reply: %w", err)
	}
	return &resp, nil
}

func (c *Client) call(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s: %s", ErrHelperFailed, req.Action, resp.Error)
	}
	return resp, nil
}

// Ping returns the helper version.
func (c *Client) Ping(ctx context.Context) (string, error) {
	resp, err := c.call(ctx, Request{Action: ActionPing})
	if err != nil {
		return "", err
	}
	return resp.Version, nil
}

// WriteFile asks the helper to write content and returns the path it chose.
func (c *Client) WriteFile(ctx context.Context, path, content string) (string, error) {
	resp, err := c.call(ctx, Request{Action: ActionWriteFile, Path: path, Content: content})
	if err != nil {
		return "", err
	}
	if resp.Path == "" {
		return "", fmt.Errorf("%w: write_file acknowledged without a path", ErrHelperFailed)
	}
	return resp.Path, nil
}

func (c *Client) CallLocalModel(ctx context.Context, prompt llm.Prompt, model string) (string, error) {
	resp, err := c.call(ctx, Request{
		Action:    ActionCallLocalModel,
		System:    prompt.System,
		User:      prompt.User,
		Model:     model,
		MaxTokens: prompt.MaxOutputTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

var _ llm.LocalModel = (*Client)(nil)
