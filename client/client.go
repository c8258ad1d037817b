// Package client implements the agency side of the lottery protocol.
package client

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/lotwire/lotwire/msg"
)

// Client submits an agency's bets to a lottery server and fetches its
// winners. Not safe for concurrent use; the protocol is strictly
// request-response on one connection.
//
// Use NewClient() to get a new object and modify its Client.Options.
type Client struct {
	zerolog.Logger

	Options Options // client options; modify before Dial()

	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer

	req  msg.Msg // request frame, reused
	resp msg.Msg // response frame, reused
	buf  []byte  // request body scratch
}

// NewClient returns a new client, which can be configured through its
// Options. Call Dial() next.
func NewClient() *Client {
	c := &Client{}
	c.Options = DefaultOptions
	return c
}

// Dial connects to the server. Must be called before any request.
func (c *Client) Dial(ctx context.Context) error {
	opts := &c.Options
	c.Logger = opts.Logger.With().Int("agency", opts.Agency).Logger()

	d := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", opts.Addr)
	if err != nil {
		return err
	}

	c.conn = conn
	c.br = bufio.NewReader(conn)
	c.bw = bufio.NewWriter(conn)
	c.Debug().Str("addr", opts.Addr).Msg("connected")
	return nil
}

// Close half-closes the write side first, letting the server drain, then
// closes the connection. Safe to call more than once.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	if tcp, ok := c.conn.(*net.TCPConn); ok {
		tcp.CloseWrite()
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// SubmitBets sends bets in BET batches, capped by both Options.BatchMax
// and the frame ceiling, requiring a success ack per batch.
func (c *Client) SubmitBets(bets []msg.Bet) error {
	var batch msg.Batch
	var size int

	flush := func() error {
		if len(batch.Bets) == 0 {
			return nil
		}
		if err := c.sendBatch(&batch); err != nil {
			return err
		}
		batch.Reset()
		size = 0
		return nil
	}

	for i := range bets {
		l := msg.BATCH_HEADLEN + len(bets[i].AppendText(c.buf[:0]))
		if l > msg.MSG_MAXLEN {
			return ErrBetSize
		}

		if size+l > msg.MSG_MAXLEN || len(batch.Bets) >= c.Options.BatchMax {
			if err := flush(); err != nil {
				return err
			}
		}
		batch.Bets = append(batch.Bets, bets[i])
		size += l
	}
	return flush()
}

// sendBatch uploads one batch and requires a success ack
func (c *Client) sendBatch(batch *msg.Batch) error {
	raw, err := batch.Marshal(c.buf[:0])
	if err != nil {
		return err
	}
	c.buf = raw

	ok, err := c.ack(msg.BET, raw)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRejected
	}
	c.Debug().Int("bets", len(batch.Bets)).Msg("batch accepted")
	return nil
}

// Finish tells the server this agency is done sending bets
func (c *Client) Finish() error {
	c.buf = msg.AppendAgencyId(c.buf[:0], c.Options.Agency)
	ok, err := c.ack(msg.FINISHED, c.buf)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRejected
	}
	c.Info().Msg("finished sending")
	return nil
}

// Winners polls the server for this agency's winning documents until the
// lottery is drawn, waiting Options.PollPeriod between polls, or until
// ctx is done.
func (c *Client) Winners(ctx context.Context) ([]string, error) {
	for {
		c.buf = msg.AppendAgencyId(c.buf[:0], c.Options.Agency)
		resp, err := c.call(msg.WINNERS_REQ, c.buf)
		if err != nil {
			return nil, err
		}

		switch resp.Type {
		case msg.WINNERS:
			return msg.ParseWinners(resp.Data)
		case msg.NOT_READY:
			c.Debug().Msg("lottery not drawn yet")
		default:
			return nil, ErrResponse
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.Options.PollPeriod):
		}
	}
}

// call writes one request frame and reads its response frame
func (c *Client) call(typ msg.Type, body []byte) (*msg.Msg, error) {
	if c.conn == nil {
		return nil, ErrClosed
	}

	c.req.Reset()
	c.req.Set(typ, body)
	if _, err := c.req.WriteTo(c.bw); err != nil {
		return nil, err
	}
	if err := c.bw.Flush(); err != nil {
		return nil, err
	}

	c.resp.Reset()
	if _, err := c.resp.ReadFrom(c.br); err != nil {
		return nil, err
	}
	return &c.resp, nil
}

// ack performs a call whose response must be an ack of the request type
func (c *Client) ack(typ msg.Type, body []byte) (bool, error) {
	resp, err := c.call(typ, body)
	if err != nil {
		return false, err
	}
	if resp.Type != typ {
		return false, ErrResponse
	}
	return msg.ParseAck(resp.Data)
}
