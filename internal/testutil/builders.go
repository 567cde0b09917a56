package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
)

// ContainerBuilder provides a fluent interface for building test containers
type ContainerBuilder struct {
	t         *testing.T
	opts      []ioc.Option
	fixtures  []ServiceFixture
	providers []ioc.ServiceProvider
	boot      bool
}

// NewContainerBuilder creates a new ContainerBuilder
func NewContainerBuilder(t *testing.T) *ContainerBuilder {
	return &ContainerBuilder{t: t}
}

// WithOptions adds container options
func (b *ContainerBuilder) WithOptions(opts ...ioc.Option) *ContainerBuilder {
	b.opts = append(b.opts, opts...)
	return b
}

// WithFixture binds a fixture when the container is built
func (b *ContainerBuilder) WithFixture(fixture ServiceFixture) *ContainerBuilder {
	b.fixtures = append(b.fixtures, fixture)
	return b
}

// WithProvider adds a service provider
func (b *ContainerBuilder) WithProvider(p ioc.ServiceProvider) *ContainerBuilder {
	b.providers = append(b.providers, p)
	return b
}

// Booted boots the container after building it
func (b *ContainerBuilder) Booted() *ContainerBuilder {
	b.boot = true
	return b
}

// Build creates the container and closes it when the test ends
func (b *ContainerBuilder) Build() *ioc.Container {
	b.t.Helper()

	c := ioc.New(b.opts...)
	for _, f := range b.fixtures {
		f.Bind(c)
	}
	c.AddProviders(b.providers...)
	if b.boot {
		c.Boot()
	}

	b.t.Cleanup(func() {
		if !c.IsClosed() {
			require.NoError(b.t, c.Close())
		}
	})

	return c
}

// CreateContainerWithBasicServices creates a container with basic test services
func CreateContainerWithBasicServices(t *testing.T, opts ...ioc.Option) *ioc.Container {
	t.Helper()

	return NewContainerBuilder(t).
		WithOptions(opts...).
		WithFixture(CommonFixtures.Logger).
		WithFixture(CommonFixtures.Database).
		WithFixture(CommonFixtures.Service).
		Build()
}
