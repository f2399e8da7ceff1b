package tlsutil

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// recordTypeHandshake is the first byte of every TLS ClientHello
	recordTypeHandshake = 0x16

	sniffTimeout   = 5 * time.Second
	maxAcceptDelay = time.Second
	queueSize      = 128
)

// Mux splits one listener into a plain HTTP and a TLS listener by looking at
// the first byte each client sends
type Mux struct {
	inner     net.Listener
	tlsConfig *tls.Config
	logger    *zap.Logger

	plain  chan net.Conn
	secure chan net.Conn

	closeOnce sync.Once
	closed    chan struct{}
}

// NewMux starts accepting on inner. Close stops it.
func NewMux(inner net.Listener, tlsConfig *tls.Config, logger *zap.Logger) *Mux {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mux{
		inner:     inner,
		tlsConfig: tlsConfig,
		logger:    logger,
		plain:     make(chan net.Conn, queueSize),
		secure:    make(chan net.Conn, queueSize),
		closed:    make(chan struct{}),
	}

	go m.acceptLoop()

	return m
}

// acceptLoop backs off on accept errors until the mux is closed
func (m *Mux) acceptLoop() {
	var delay time.Duration
	for {
		conn, err := m.inner.Accept()
		if err != nil {
			select {
			case <-m.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				m.Close()
				return
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else if delay *= 2; delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			m.logger.Warn("accept failed", zap.Error(err), zap.Duration("retryIn", delay))
			time.Sleep(delay)
			continue
		}
		delay = 0

		go m.route(conn)
	}
}

// route sniffs the first byte and hands the connection to the matching listener
func (m *Mux) route(conn net.Conn) {
	br := bufio.NewReader(conn)

	_ = conn.SetReadDeadline(time.Now().Add(sniffTimeout))
	first, err := br.Peek(1)
	_ = conn.SetReadDeadline(time.Time{})

	if err != nil {
		m.logger.Debug("dropped connection before first byte", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
		conn.Close()
		return
	}

	var routed net.Conn = &bufferedConn{Conn: conn, r: br}
	queue := m.plain
	if first[0] == recordTypeHandshake {
		routed = tls.Server(routed, m.tlsConfig)
		queue = m.secure
	}

	select {
	case queue <- routed:
	case <-m.closed:
		routed.Close()
	}
}

// Plain returns the listener yielding non-TLS connections
func (m *Mux) Plain() net.Listener {
	return &queueListener{conns: m.plain, mux: m}
}

// Secure returns the listener yielding TLS connections
func (m *Mux) Secure() net.Listener {
	return &queueListener{conns: m.secure, mux: m}
}

// Serve runs srv on both listeners until ctx is done or either fails
func (m *Mux) Serve(ctx context.Context, srv *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)

	serve := func(l net.Listener) func() error {
		return func() error {
			if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
				return err
			}
			return nil
		}
	}
	g.Go(serve(m.Plain()))
	g.Go(serve(m.Secure()))
	g.Go(func() error {
		<-ctx.Done()
		return m.Close()
	})

	return g.Wait()
}

// Close stops accepting and unblocks both listeners
func (m *Mux) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.closed)
		err = m.inner.Close()
	})
	return err
}

// Addr returns the shared address
func (m *Mux) Addr() net.Addr {
	return m.inner.Addr()
}

// bufferedConn reads through the reader that holds the sniffed byte
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(b []byte) (int, error) {
	return c.r.Read(b)
}

// queueListener is a net.Listener fed by the mux
type queueListener struct {
	conns chan net.Conn
	mux   *Mux
}

func (l *queueListener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.mux.closed:
		return nil, net.ErrClosed
	}
}

// Close closes the whole mux so http.Server.Shutdown can finish
func (l *queueListener) Close() error {
	return l.mux.Close()
}

func (l *queueListener) Addr() net.Addr {
	return l.mux.Addr()
}
