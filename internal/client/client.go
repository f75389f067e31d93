package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapview/internal/protocol"
)

// Client drives a Mirror from one end of a view channel.
type Client struct {
	conn   protocol.Conn
	mirror *Mirror
	logger *slog.Logger
}

// New returns a client reading host messages from conn.
func New(conn protocol.Conn, pageSize int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{conn: conn, mirror: NewMirror(pageSize), logger: logger}
}

// Mirror returns the client's mirror state.
func (c *Client) Mirror() *Mirror { return c.mirror }

// Send emits cmd upstream. A nil command is ignored so that callers can
// pass the result of Mirror navigation helpers directly.
func (c *Client) Send(cmd protocol.Command) error {
	if cmd == nil {
		return nil
	}
	// The host drops invalid commands without replying.
	if err := protocol.ValidateCommand(cmd); err != nil {
		return err
	}
	if err := protocol.SendCommand(c.conn, cmd); err != nil {
		return fmt.Errorf("failed to send %s: %w", cmd.Name(), err)
	}
	return nil
}

// Next waits for one host message and applies it to the mirror. Messages
// that fail to decode are logged and skipped.
func (c *Client) Next(ctx context.Context) (protocol.Message, error) {
	for {
		data, err := c.conn.Recv(ctx)
		if err != nil {
			return nil, err
		}
		msg, err := protocol.DecodeMessage(data)
		if err != nil {
			c.logger.Warn("dropping host message", "error", err)
			continue
		}
		c.mirror.Apply(msg)
		return msg, nil
	}
}

// Await applies host messages until one of the given kind arrives or an
// error message is received. It returns the last message applied.
func (c *Client) Await(ctx context.Context, name string) (protocol.Message, error) {
	for {
		msg, err := c.Next(ctx)
		if err != nil {
			return nil, err
		}
		if msg.Name() == name || msg.Name() == protocol.MsgError {
			return msg, nil
		}
	}
}

// Close closes the channel.
func (c *Client) Close() error {
	return c.conn.Close()
}
