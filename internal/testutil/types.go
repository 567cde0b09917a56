package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/junioryono/ioc"
)

// Common test errors
var (
	ErrTest            = errors.New("test error")
	ErrIntentional     = errors.New("intentional error")
	ErrFactory         = errors.New("factory error")
	ErrDisposal        = errors.New("disposal error")
	ErrAlreadyDisposed = errors.New("already disposed")
	ErrAlreadyClosed   = errors.New("already closed")
)

// TestService is a basic test service
type TestService struct {
	ID        string
	CreatedAt time.Time
	Data      string
}

// NewTestService creates a new test service
func NewTestService() *TestService {
	return &TestService{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Data:      "test",
	}
}

// TestLogger is a test logger interface
type TestLogger interface {
	Log(msg string)
	GetLogs() []string
}

// TestLoggerImpl implements TestLogger
type TestLoggerImpl struct {
	logs []string
	mu   sync.Mutex
}

func NewTestLogger() TestLogger {
	return &TestLoggerImpl{}
}

func (l *TestLoggerImpl) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *TestLoggerImpl) GetLogs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]string, len(l.logs))
	copy(result, l.logs)
	return result
}

// TestDatabase is a test database interface
type TestDatabase interface {
	Query(sql string) string
	Close() error
}

// TestDatabaseImpl implements TestDatabase
type TestDatabaseImpl struct {
	name    string
	closed  bool
	closeMu sync.Mutex
}

func NewTestDatabase() TestDatabase {
	return &TestDatabaseImpl{name: "testdb"}
}

func (d *TestDatabaseImpl) Query(sql string) string {
	return fmt.Sprintf("%s: %s", d.name, sql)
}

func (d *TestDatabaseImpl) Close() error {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()

	if d.closed {
		return ErrAlreadyClosed
	}
	d.closed = true
	return nil
}

// Repository and Service form the two-level graph used across tests:
// Service wraps the shared Repository.
type Repository struct {
	ID   string
	Data string
}

func NewRepository(data string) *Repository {
	return &Repository{ID: uuid.NewString(), Data: data}
}

func (r *Repository) Query() string {
	return r.Data
}

type Service struct {
	Repo *Repository
}

func (s *Service) Query() string {
	return s.Repo.Query()
}

// BindRepositoryAndService binds Repository to a factory returning data and
// Service to a factory wrapping the resolved Repository.
func BindRepositoryAndService(c *ioc.Container, data string) {
	ioc.Bind(c, func(r ioc.Resolver) (*Repository, error) {
		return NewRepository(data), nil
	})
	ioc.Bind(c, func(r ioc.Resolver) (*Service, error) {
		repo, err := ioc.Resolve[*Repository](r)
		if err != nil {
			return nil, err
		}
		return &Service{Repo: repo}, nil
	})
}

// InjectableService constructs itself from the container.
type InjectableService struct {
	ID     string
	Logger TestLogger
}

func (*InjectableService) Inject(r ioc.Resolver) (any, error) {
	logger, err := ioc.Resolve[TestLogger](r)
	if err != nil {
		return nil, err
	}
	return &InjectableService{ID: uuid.NewString(), Logger: logger}, nil
}

// SelfRegisteringService seeds its own singleton.
type SelfRegisteringService struct {
	Name string
}

func (*SelfRegisteringService) RegisterSelf(c *ioc.Container) {
	ioc.Singleton(c, &SelfRegisteringService{Name: "self"})
}

// NoopSelfRegistrar registers nothing, so its fallback fails.
type NoopSelfRegistrar struct{}

func (*NoopSelfRegistrar) RegisterSelf(*ioc.Container) {}

// TestDisposable is a test type that implements Disposable
type TestDisposable struct {
	ID           string
	disposed     bool
	disposeError error
	onClose      func(id string)
	mu           sync.Mutex
}

func NewTestDisposable() *TestDisposable {
	return &TestDisposable{
		ID: uuid.NewString(),
	}
}

func NewTestDisposableWithError(err error) *TestDisposable {
	return &TestDisposable{
		ID:           uuid.NewString(),
		disposeError: err,
	}
}

// NewRecordingDisposable reports its ID to onClose when closed.
func NewRecordingDisposable(id string, onClose func(id string)) *TestDisposable {
	return &TestDisposable{ID: id, onClose: onClose}
}

func (s *TestDisposable) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrAlreadyDisposed
	}

	s.disposed = true
	if s.onClose != nil {
		s.onClose(s.ID)
	}
	return s.disposeError
}

func (s *TestDisposable) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// TestContextDisposable implements DisposableWithContext
type TestContextDisposable struct {
	ID       string
	disposed bool
	ctx      context.Context
	mu       sync.Mutex
}

func NewTestContextDisposable() *TestContextDisposable {
	return &TestContextDisposable{
		ID: uuid.NewString(),
	}
}

func (s *TestContextDisposable) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrAlreadyDisposed
	}

	s.ctx = ctx
	s.disposed = true
	return nil
}

func (s *TestContextDisposable) WasDisposedWithContext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx != nil
}

func (s *TestContextDisposable) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// CircularServiceA and CircularServiceB depend on each other.
type CircularServiceA struct {
	B *CircularServiceB
}

type CircularServiceB struct {
	A *CircularServiceA
}

// BindCircular binds A and B to factories that resolve each other.
func BindCircular(c *ioc.Container) {
	ioc.Bind(c, func(r ioc.Resolver) (*CircularServiceA, error) {
		b, err := ioc.Resolve[*CircularServiceB](r)
		if err != nil {
			return nil, err
		}
		return &CircularServiceA{B: b}, nil
	})
	ioc.Bind(c, func(r ioc.Resolver) (*CircularServiceB, error) {
		a, err := ioc.Resolve[*CircularServiceA](r)
		if err != nil {
			return nil, err
		}
		return &CircularServiceB{A: a}, nil
	})
}

// CloserFunc is a helper type to wrap a function as a Disposable
type CloserFunc func() error

func (f CloserFunc) Close() error {
	return f()
}
