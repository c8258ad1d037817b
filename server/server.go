// Package server accepts agency connections and runs their sessions.
package server

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/lotwire/lotwire/draw"
	"github.com/lotwire/lotwire/session"
)

// Server owns the TCP listener and spawns one session worker per accepted
// connection. Workers share the bet store (behind the server's RWMutex) and
// the draw; nothing else.
//
// Use NewServer() to get a new object and modify its Server.Options.
// Then call Server.Run() to serve until Stop().
type Server struct {
	zerolog.Logger

	Options Options // server options; modify before Run()

	Draw *draw.Draw // draw readiness state, shared with sessions

	ctx    context.Context
	cancel context.CancelCauseFunc

	started atomic.Bool // true iff Run() called
	stopped atomic.Bool // true iff Stop() called

	mu       sync.Mutex // guards listener bind/close
	listener *net.TCPListener

	storemu sync.RWMutex   // Lock around Append, RLock around Scan
	sesswg  sync.WaitGroup // live session workers

	sessid   atomic.Uint64 // last assigned session id
	sessions *xsync.MapOf[uint64, *session.Session]
}

// NewServer returns a new server, which can be configured through its
// Options. To start serving, call Run(); to shut down, Stop().
func NewServer(ctx context.Context) *Server {
	srv := &Server{}
	srv.ctx, srv.cancel = context.WithCancelCause(ctx)
	srv.Options = DefaultOptions
	srv.sessions = xsync.NewMapOf[uint64, *session.Session]()
	return srv
}

// Listen binds the TCP listener. Run() calls it if needed; call it first
// to learn the bound address before serving. Idempotent.
func (srv *Server) Listen() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.listener != nil {
		return nil
	}
	if srv.stopped.Load() {
		return ErrStopped
	}

	addr, err := net.ResolveTCPAddr("tcp", srv.Options.Addr)
	if err != nil {
		return err
	}
	srv.listener, err = net.ListenTCP("tcp", addr)
	return err
}

// Run binds the listener (if Listen() was not called yet) and serves
// until Stop() or a fatal listener error. Must not be called more than once.
func (srv *Server) Run() error {
	if srv.started.Swap(true) {
		return ErrStarted
	}
	opts := &srv.Options
	srv.Logger = opts.Logger

	if opts.Store == nil {
		return ErrNoStore
	}
	srv.Draw = draw.New(opts.Agencies)

	// stop on parent context cancel
	context.AfterFunc(srv.ctx, func() { srv.Stop() })

	if err := srv.Listen(); err != nil {
		return err
	}

	srv.Info().
		Stringer("addr", srv.Addr()).
		Int("backlog", opts.Backlog).
		Int("agencies", opts.Agencies).
		Msg("listening")

	err := srv.acceptLoop()
	srv.reap()
	return err
}

// acceptLoop accepts connections until shutdown, re-arming the listener
// deadline each round so the stop flag is observed without a signal wakeup.
func (srv *Server) acceptLoop() error {
	opts := &srv.Options

	for !srv.stopped.Load() {
		if opts.AcceptTimeout > 0 {
			srv.listener.SetDeadline(time.Now().Add(opts.AcceptTimeout))
		}

		conn, err := srv.listener.AcceptTCP()
		switch {
		case err == nil:
			srv.spawn(conn)
		case srv.stopped.Load() || errors.Is(err, net.ErrClosed):
			return nil // shutting down
		case errors.Is(err, os.ErrDeadlineExceeded):
			continue // just re-check the stop flag
		default:
			srv.Warn().Err(err).Msg("accept failed")
		}
	}
	return nil
}

// spawn registers and starts a session worker for conn
func (srv *Server) spawn(conn *net.TCPConn) {
	sopts := session.DefaultOptions
	sopts.Logger = srv.Logger
	sopts.Store = srv.Options.Store
	sopts.StoreMu = &srv.storemu
	sopts.Draw = srv.Draw

	sess := session.NewSession(conn, sopts)
	id := srv.sessid.Add(1)
	srv.sessions.Store(id, sess)

	srv.Debug().Uint64("session", id).
		Stringer("peer", conn.RemoteAddr()).Msg("session accepted")

	srv.sesswg.Add(1)
	go func() {
		defer srv.sesswg.Done()
		defer srv.sessions.Delete(id)
		sess.Run()
	}()
}

// reap waits for live sessions up to JoinTimeout, then force-closes the
// stragglers and waits for them to exit.
func (srv *Server) reap() {
	done := make(chan struct{})
	go func() {
		srv.sesswg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(srv.Options.JoinTimeout):
	}

	killed := 0
	srv.sessions.Range(func(id uint64, sess *session.Session) bool {
		sess.Kill()
		killed++
		return true
	})
	srv.Warn().Int("sessions", killed).Msg("join deadline passed, sessions killed")
	<-done
}

// Stop shuts the server down: the listener closes, no further connections
// are accepted, and Run() returns once live sessions are reaped.
// Safe to call concurrently with Run(), more than once.
func (srv *Server) Stop() {
	if srv.stopped.Swap(true) {
		return
	}
	srv.cancel(ErrStopped)

	srv.mu.Lock()
	if srv.listener != nil {
		srv.listener.Close()
	}
	srv.mu.Unlock()
}

// Addr returns the bound listener address, nil before Listen()
func (srv *Server) Addr() net.Addr {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.listener == nil {
		return nil
	}
	return srv.listener.Addr()
}
