// SPDX-License-Identifier: GPL-3.0-or-later

package extlink

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rbmk-project/common/errclass"
)

// addrString safely stringifies a possibly-nil [net.Addr].
func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

// WrapConn wraps a [net.Conn] such that its I/O operations emit
// structured logs using the given logger. When the logger is nil,
// WrapConn returns the original connection.
func WrapConn(ctx context.Context, logger *slog.Logger, conn net.Conn) net.Conn {
	if logger == nil || conn == nil {
		return conn
	}
	return &loggingConn{
		Conn:   conn,
		ctx:    ctx,
		logger: logger,
		laddr:  addrString(conn.LocalAddr()),
		raddr:  addrString(conn.RemoteAddr()),
	}
}

// loggingConn is the [net.Conn] returned by [WrapConn].
type loggingConn struct {
	net.Conn
	closeonce sync.Once
	ctx       context.Context // only used for logging
	laddr     string
	logger    *slog.Logger
	raddr     string
}

// start emits the event marking the beginning of an operation.
func (c *loggingConn) start(event string, attrs ...slog.Attr) time.Time {
	t0 := time.Now()
	attrs = append(attrs,
		slog.String("localAddr", c.laddr),
		slog.String("remoteAddr", c.raddr),
		slog.Time("t", t0),
	)
	c.logger.LogAttrs(c.ctx, slog.LevelDebug, event, attrs...)
	return t0
}

// done emits the event marking the end of an operation.
func (c *loggingConn) done(event string, t0 time.Time, err error, attrs ...slog.Attr) {
	attrs = append(attrs,
		slog.Any("err", err),
		slog.String("errClass", errclass.New(err)),
		slog.String("localAddr", c.laddr),
		slog.String("remoteAddr", c.raddr),
		slog.Time("t0", t0),
		slog.Time("t", time.Now()),
	)
	c.logger.LogAttrs(c.ctx, slog.LevelDebug, event, attrs...)
}

// Read implements [net.Conn].
func (c *loggingConn) Read(buf []byte) (int, error) {
	t0 := c.start("readStart", slog.Int("ioBufferSize", len(buf)))
	count, err := c.Conn.Read(buf)
	c.done("readDone", t0, err, slog.Int("ioBytesCount", count))
	return count, err
}

// Write implements [net.Conn].
func (c *loggingConn) Write(data []byte) (int, error) {
	t0 := c.start("writeStart", slog.Int("ioBufferSize", len(data)))
	count, err := c.Conn.Write(data)
	c.done("writeDone", t0, err, slog.Int("ioBytesCount", count))
	return count, err
}

// Close implements [net.Conn].
func (c *loggingConn) Close() (err error) {
	c.closeonce.Do(func() {
		t0 := c.start("closeStart")
		err = c.Conn.Close()
		c.done("closeDone", t0, err)
	})
	return
}
