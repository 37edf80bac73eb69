package server

import (
	"context"
	"sync"
	"time"

	"github.com/678uhb/this-space/sock"
	"go.uber.org/zap"
)

// 每轮最多接受的连接数，避免 accept 洪峰饿死已有连接
const acceptBatch = 64

type Server struct {
	cfg Config
	h   Handler
	log *zap.Logger
	ln  *sock.Listener

	// loop 协程独占
	conns map[*sock.Socket]*Conn

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Start binds cfg.Address and serves it on a background goroutine. Bind and
// listen failures are returned here.
func Start(cfg Config, h Handler) (*Server, error) {
	cfg.normalize()
	ln, err := sock.ListenConfig{
		Address:   cfg.Address,
		Backlog:   cfg.Backlog,
		ReusePort: cfg.ReusePort,
	}.Listen()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:   cfg,
		h:     h,
		log:   cfg.Logger.Named("server"),
		ln:    ln,
		conns: make(map[*sock.Socket]*Conn),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	s.log.Info("listening", zap.String("address", cfg.Address), zap.Uint16("port", ln.Port()))
	go s.loop()
	return s, nil
}

func (s *Server) Port() uint16 { return s.ln.Port() }

// Stop ends the loop, closes every connection with ErrServerClosed and
// releases the listener. The loop notices within one PollInterval.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) loop() {
	defer close(s.done)
	defer s.shutdown()

	d := sock.NewDetector()
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		d.Add(s.ln, sock.Read)
		for so, c := range s.conns {
			d.Add(so, c.interest())
		}
		ready, err := d.Wait(s.cfg.PollInterval)
		if err != nil {
			s.log.Warn("wait failed", zap.Error(err))
			time.Sleep(s.cfg.PollInterval)
			continue
		}

		for _, ev := range ready.Read {
			if ev.IsListener() {
				s.acceptAll()
				continue
			}
			c, ok := s.conns[ev.Socket()]
			if !ok {
				continue
			}
			if alive, err := c.onReadable(); !alive {
				s.closeConn(c, err)
			}
		}
		for _, ev := range ready.Write {
			if c, ok := s.conns[ev.Socket()]; ok {
				c.flush()
			}
		}
		s.reap()
	}
}

func (s *Server) acceptAll() {
	for i := 0; i < acceptBatch; i++ {
		so := s.ln.Accept(0)
		if so == nil {
			return
		}
		c := newConn(s, so)
		s.conns[so] = c
		s.log.Debug("accepted", zap.Stringer("conn", c.ID), zap.String("remote", c.RemoteAddr()))
		s.h.OnOpen(c)
	}
}

// reap closes connections whose Close was requested and whose tx drained.
func (s *Server) reap() {
	for _, c := range s.conns {
		if c.drained() {
			s.closeConn(c, nil)
		}
	}
}

func (s *Server) closeConn(c *Conn, err error) {
	delete(s.conns, c.so)
	c.markClosed()
	c.so.Close()
	s.log.Debug("closed", zap.Stringer("conn", c.ID), zap.Error(err))
	s.h.OnClose(c, err)
}

func (s *Server) shutdown() {
	for _, c := range s.conns {
		s.closeConn(c, ErrServerClosed)
	}
	s.ln.Close()
	s.log.Info("stopped")
}
