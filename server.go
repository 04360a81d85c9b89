package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/raphi011/timeline/internal/model"
	"github.com/raphi011/timeline/internal/verify"
	"github.com/robfig/cron/v3"
)

// ClientProvider resolves the data source of a recording. It returns an error
// wrapping model.NotFoundError for unknown recordings.
type ClientProvider func(ctx context.Context, recordingID string) (Client, error)

// lazyClient resolves the data source of a recording on first use, so inputs
// that never read annotations or network requests don't require a source.
type lazyClient struct {
	recordingID string
	clients     ClientProvider

	once   sync.Once
	client Client
	err    error
}

func (c *lazyClient) resolve(ctx context.Context) (Client, error) {
	c.once.Do(func() {
		c.client, c.err = c.clients(ctx, c.recordingID)
	})

	return c.client, c.err
}

func (c *lazyClient) Annotations(ctx context.Context) ([]model.Annotation, error) {
	client, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}

	return client.Annotations(ctx)
}

func (c *lazyClient) NetworkRequests(ctx context.Context) (model.NetworkRequests, error) {
	client, err := c.resolve(ctx)
	if err != nil {
		return model.NetworkRequests{}, err
	}

	return client.NetworkRequests(ctx)
}

// Server exposes a Normalizer over HTTP.
type Server struct {
	host string
	port int
	log  *slog.Logger

	normalizer *Normalizer
	clients    ClientProvider

	verifier     *verify.Verifier
	verification *ScheduledVerification
	hooks        []VerificationHook
	cron         *cron.Cron

	mu       sync.Mutex
	listener net.Listener

	started     chan struct{}
	startedOnce sync.Once
	startErr    error
}

// VerificationHook is notified after every scheduled verification.
type VerificationHook interface {
	VerificationFinished(ctx context.Context, fixtureDir string, summary verify.Summary)
}

type ServerOption func(s *Server)

func NewServer(n *Normalizer, clients ClientProvider, opts ...ServerOption) *Server {
	s := &Server{
		host:       "localhost",
		port:       1337,
		log:        slog.Default(),
		normalizer: n,
		clients:    clients,
		started:    make(chan struct{}),
	}

	for _, o := range opts {
		o(s)
	}

	s.verifier = verify.New(n.verifyFunc(), s.log)

	return s
}

// WithAddress sets the address the server listens on. Port 0 picks a random free port.
func WithAddress(host string, port int) ServerOption {
	return func(s *Server) {
		s.host = host
		s.port = port
	}
}

func WithServerLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithScheduledVerification regularly verifies the fixtures in dir.
// Schedule is a cron spec with seconds, an empty schedule only enables
// verification via http.
func WithScheduledVerification(sv ScheduledVerification) ServerOption {
	return func(s *Server) {
		s.verification = &sv
	}
}

func WithVerificationHook(h VerificationHook) ServerOption {
	return func(s *Server) {
		s.hooks = append(s.hooks, h)
	}
}

// Run serves http requests until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		err = fmt.Errorf("listen: %w", err)
		s.markStarted(err)
		return err
	}

	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	if err := s.startSchedules(); err != nil {
		l.Close()
		s.markStarted(err)
		return err
	}
	defer s.stopSchedules()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// cancelled when Serve returns so the shutdown goroutine never outlives Run
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownErr := make(chan error, 1)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("starting server", "address", l.Addr().String())

	s.markStarted(nil)

	if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-shutdownErr
		return err
	}

	return <-shutdownErr
}

func (s *Server) markStarted(err error) {
	s.startedOnce.Do(func() {
		s.startErr = err
		close(s.started)
	})
}

// WaitForStartup blocks until the server accepts requests or failed to start.
func (s *Server) WaitForStartup() error {
	<-s.started

	return s.startErr
}

// ServerPort returns the port the server listens on, it is only valid after startup.
func (s *Server) ServerPort() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return 0
	}

	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *Server) startSchedules() error {
	if s.verification == nil || s.verification.Schedule == "" {
		return nil
	}

	s.cron = cron.New(cron.WithSeconds())

	sv := s.verification

	entryID, err := s.cron.AddFunc(sv.Schedule, func() {
		s.log.Info("running scheduled verification", "fixture-dir", sv.FixtureDir)

		ctx := context.Background()

		summary, err := s.verifier.Run(ctx, sv.FixtureDir)
		if err != nil {
			s.log.Error("scheduled verification failed", "fixture-dir", sv.FixtureDir, "error", err)
			return
		}

		for _, h := range s.hooks {
			h.VerificationFinished(ctx, sv.FixtureDir, summary)
		}
	})
	if err != nil {
		return fmt.Errorf("adding scheduled verification %q: %w", sv.Schedule, err)
	}

	sv.EntryID = entryID

	s.cron.Start()

	return nil
}

func (s *Server) stopSchedules() {
	if s.cron == nil {
		return
	}

	// wait for running verifications
	<-s.cron.Stop().Done()
}

// verifyFunc adapts NormalizeJSON to the verifier.
func (n *Normalizer) verifyFunc() verify.NormalizeFunc {
	return func(ctx context.Context, data []byte, c verify.Client) ([]byte, error) {
		return n.NormalizeJSON(ctx, data, c)
	}
}
