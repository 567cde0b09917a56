package testutil

import (
	"fmt"
	"sync"

	"github.com/junioryono/ioc"
)

// ServiceFixture binds one service into a container
type ServiceFixture struct {
	Name string
	Bind func(c *ioc.Container)
}

// CommonFixtures provides common service configurations for testing
var CommonFixtures = struct {
	Logger   ServiceFixture
	Database ServiceFixture
	Service  ServiceFixture
}{
	Logger: ServiceFixture{
		Name: "Logger",
		Bind: func(c *ioc.Container) {
			ioc.Bind(c, func(ioc.Resolver) (TestLogger, error) {
				return NewTestLogger(), nil
			})
		},
	},
	Database: ServiceFixture{
		Name: "Database",
		Bind: func(c *ioc.Container) {
			ioc.Bind(c, func(ioc.Resolver) (TestDatabase, error) {
				return NewTestDatabase(), nil
			})
		},
	},
	Service: ServiceFixture{
		Name: "Service",
		Bind: func(c *ioc.Container) {
			ioc.Bind(c, func(ioc.Resolver) (*TestService, error) {
				return NewTestService(), nil
			})
		},
	},
}

// SetupBasicServices binds the logger, database and service fixtures
func SetupBasicServices(c *ioc.Container) {
	CommonFixtures.Logger.Bind(c)
	CommonFixtures.Database.Bind(c)
	CommonFixtures.Service.Bind(c)
}

// EventLog records provider callbacks in the order they run.
type EventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *EventLog) Add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *EventLog) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

// RecordingProvider appends "<name>.register" and "<name>.boot" to Log and
// runs the optional OnRegister and OnBoot hooks.
type RecordingProvider struct {
	Name       string
	Log        *EventLog
	OnRegister func(c *ioc.Container)
	OnBoot     func(c *ioc.Container)
}

func NewRecordingProvider(name string, log *EventLog) *RecordingProvider {
	return &RecordingProvider{Name: name, Log: log}
}

func (p *RecordingProvider) Register(c *ioc.Container) {
	p.Log.Add(fmt.Sprintf("%s.register", p.Name))
	if p.OnRegister != nil {
		p.OnRegister(c)
	}
}

func (p *RecordingProvider) Boot(c *ioc.Container) {
	p.Log.Add(fmt.Sprintf("%s.boot", p.Name))
	if p.OnBoot != nil {
		p.OnBoot(c)
	}
}

// RecordingDeferredProvider is a RecordingProvider that provides Keys.
type RecordingDeferredProvider struct {
	RecordingProvider
	Keys []ioc.Key
}

func (p *RecordingDeferredProvider) Provides() []ioc.Key {
	return p.Keys
}
