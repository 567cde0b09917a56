package ioc_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/testutil"
)

func TestDependencies(t *testing.T) {
	t.Parallel()

	c := ioc.New()
	testutil.CommonFixtures.Logger.Bind(c)
	testutil.BindRepositoryAndService(c, "data")

	repoKey := ioc.KeyOf[*testutil.Repository]()
	svcKey := ioc.KeyOf[*testutil.Service]()

	assert.Empty(t, c.Dependencies(svcKey), "nothing is known before resolution")

	_ = ioc.MustResolve[*testutil.Service](c)
	_ = ioc.MustResolve[*testutil.InjectableService](c)

	assert.Equal(t, []ioc.Key{repoKey}, c.Dependencies(svcKey))
	assert.Equal(t, []ioc.Key{svcKey}, c.Dependents(repoKey))
	assert.Empty(t, c.Dependencies(repoKey))
	assert.Equal(t, []ioc.Key{ioc.KeyOf[testutil.TestLogger]()},
		c.Dependencies(ioc.KeyOf[*testutil.InjectableService]()))

	order, err := c.BuildOrder()
	require.NoError(t, err)
	assert.Less(t, indexOf(order, repoKey), indexOf(order, svcKey))
	assert.Less(t, indexOf(order, ioc.KeyOf[testutil.TestLogger]()),
		indexOf(order, ioc.KeyOf[*testutil.InjectableService]()))
}

func TestWriteGraph(t *testing.T) {
	t.Parallel()

	c := ioc.New()
	testutil.BindRepositoryAndService(c, "data")
	_ = ioc.MustResolve[*testutil.Service](c)

	var b strings.Builder
	require.NoError(t, c.WriteGraph(&b))

	dot := b.String()
	assert.True(t, strings.HasPrefix(dot, "digraph dependencies {\n"))
	assert.Contains(t, dot, `n0 [label="*Repository"];`)
	assert.Contains(t, dot, `n1 [label="*Service"];`)
	assert.Contains(t, dot, "n1 -> n0;")
}

func TestTransitiveDependencies(t *testing.T) {
	t.Parallel()

	c := ioc.New()
	testutil.BindRepositoryAndService(c, "data")
	ioc.Bind(c, func(r ioc.Resolver) (*testutil.TestService, error) {
		svc, err := ioc.Resolve[*testutil.Service](r)
		if err != nil {
			return nil, err
		}
		return &testutil.TestService{Data: svc.Query()}, nil
	})
	_ = ioc.MustResolve[*testutil.TestService](c)

	assert.Equal(t, []ioc.Key{
		ioc.KeyOf[*testutil.Service](),
		ioc.KeyOf[*testutil.Repository](),
	}, c.TransitiveDependencies(ioc.KeyOf[*testutil.TestService]()))
	assert.Empty(t, c.TransitiveDependencies(ioc.KeyOf[*testutil.Repository]()))
}

func TestWriteDependencyList(t *testing.T) {
	t.Parallel()

	c := ioc.New()
	testutil.BindRepositoryAndService(c, "data")
	_ = ioc.MustResolve[*testutil.Service](c)

	var b strings.Builder
	require.NoError(t, c.WriteDependencyList(&b))

	assert.Equal(t,
		"*testutil.Service -> [*testutil.Repository]\n*testutil.Repository -> []\n",
		b.String())
}

func TestDependencies_ClearedOnClose(t *testing.T) {
	t.Parallel()

	c := ioc.New()
	testutil.BindRepositoryAndService(c, "data")
	_ = ioc.MustResolve[*testutil.Service](c)
	require.NoError(t, c.Close())

	assert.Empty(t, c.Dependencies(ioc.KeyOf[*testutil.Service]()))
}

func indexOf(keys []ioc.Key, key ioc.Key) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}
