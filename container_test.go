package ioc_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/testutil"
)

func TestContainer_New(t *testing.T) {
	t.Parallel()

	c1 := ioc.New()
	c2 := ioc.New()

	assert.NotEmpty(t, c1.ID())
	assert.NotEqual(t, c1.ID(), c2.ID())
	assert.NotNil(t, c1.Logger())
	assert.Same(t, c1, c1.Container())
	assert.Empty(t, c1.Keys())
}

func TestContainer_SharedInstance(t *testing.T) {
	t.Parallel()

	c := testutil.CreateContainerWithBasicServices(t)

	first := testutil.AssertServiceResolvable[*testutil.TestService](t, c)
	second := testutil.AssertServiceResolvable[*testutil.TestService](t, c)

	testutil.AssertSameInstance(t, first, second)
	assert.True(t, c.IsResolved(ioc.KeyOf[*testutil.TestService]()))
}

func TestContainer_FactoryInvokedOnce(t *testing.T) {
	t.Parallel()

	c := ioc.New()
	var calls atomic.Int32
	ioc.Bind(c, func(ioc.Resolver) (*testutil.TestService, error) {
		calls.Add(1)
		return testutil.NewTestService(), nil
	})

	for range 5 {
		_, err := ioc.Resolve[*testutil.TestService](c)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), calls.Load())
}

func TestContainer_SingletonWinsOverFactory(t *testing.T) {
	t.Parallel()

	t.Run("seed before bind", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		seeded := testutil.NewTestService()
		ioc.Singleton(c, seeded)

		called := false
		ioc.Bind(c, func(ioc.Resolver) (*testutil.TestService, error) {
			called = true
			return testutil.NewTestService(), nil
		})

		got := testutil.AssertServiceResolvable[*testutil.TestService](t, c)
		assert.Same(t, seeded, got)
		assert.False(t, called, "factory must not run when a singleton is seeded")
	})

	t.Run("seed after bind", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		ioc.Bind(c, func(ioc.Resolver) (*testutil.TestService, error) {
			return nil, testutil.ErrFactory
		})
		seeded := testutil.NewTestService()
		ioc.Singleton(c, seeded)

		got := testutil.AssertServiceResolvable[*testutil.TestService](t, c)
		assert.Same(t, seeded, got)
	})

	t.Run("first seed wins", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		first := testutil.NewTestService()
		ioc.Singleton(c, first)
		ioc.Singleton(c, testutil.NewTestService())

		got := testutil.AssertServiceResolvable[*testutil.TestService](t, c)
		assert.Same(t, first, got)
	})
}

func TestContainer_RebindBeforeResolve(t *testing.T) {
	t.Parallel()

	c := ioc.New()
	ioc.Bind(c, func(ioc.Resolver) (*testutil.Repository, error) {
		return testutil.NewRepository("first"), nil
	})
	ioc.Bind(c, func(ioc.Resolver) (*testutil.Repository, error) {
		return testutil.NewRepository("second"), nil
	})

	repo := testutil.AssertServiceResolvable[*testutil.Repository](t, c)
	assert.Equal(t, "second", repo.Query())
}

func TestContainer_InterfaceKey(t *testing.T) {
	t.Parallel()

	c := ioc.New()
	testutil.CommonFixtures.Logger.Bind(c)

	logger := testutil.AssertServiceResolvable[testutil.TestLogger](t, c)
	logger.Log("hello")

	again := testutil.AssertServiceResolvable[testutil.TestLogger](t, c)
	assert.Equal(t, []string{"hello"}, again.GetLogs())
}

func TestContainer_RepositoryServiceScenario(t *testing.T) {
	t.Parallel()

	c := ioc.New()
	testutil.BindRepositoryAndService(c, "repository data")

	svc := testutil.AssertServiceResolvable[*testutil.Service](t, c)
	assert.Equal(t, "repository data", svc.Query())

	repo := testutil.AssertServiceResolvable[*testutil.Repository](t, c)
	assert.Same(t, svc.Repo, repo)
}

func TestContainer_SingletonFactory(t *testing.T) {
	t.Parallel()

	t.Run("invokes immediately", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		called := false
		err := ioc.SingletonFactory(c, func(ioc.Resolver) (*testutil.TestService, error) {
			called = true
			return testutil.NewTestService(), nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.True(t, c.IsResolved(ioc.KeyOf[*testutil.TestService]()))
	})

	t.Run("resolves dependencies", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		ioc.Singleton(c, testutil.NewRepository("seeded"))

		err := ioc.SingletonFactory(c, func(r ioc.Resolver) (*testutil.Service, error) {
			repo, err := ioc.Resolve[*testutil.Repository](r)
			if err != nil {
				return nil, err
			}
			return &testutil.Service{Repo: repo}, nil
		})
		require.NoError(t, err)

		svc := testutil.AssertServiceResolvable[*testutil.Service](t, c)
		assert.Equal(t, "seeded", svc.Query())
	})

	t.Run("propagates error", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		err := ioc.SingletonFactory(c, func(ioc.Resolver) (*testutil.TestService, error) {
			return nil, testutil.ErrFactory
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, testutil.ErrFactory)
		testutil.AssertErrorType[ioc.FactoryError](t, err)
		assert.False(t, c.Bound(ioc.KeyOf[*testutil.TestService]()))
	})

	t.Run("nil factory", func(t *testing.T) {
		t.Parallel()

		err := ioc.SingletonFactory[*testutil.TestService](ioc.New(), nil)
		assert.ErrorIs(t, err, ioc.ErrNilFactory)
	})
}

func TestContainer_RegistrationMisuse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		fn   func(c *ioc.Container)
	}{
		{
			name: "nil typed factory",
			err:  ioc.ErrNilFactory,
			fn: func(c *ioc.Container) {
				ioc.Bind[*testutil.TestService](c, nil)
			},
		},
		{
			name: "nil key factory",
			err:  ioc.ErrNilFactory,
			fn: func(c *ioc.Container) {
				c.BindKey(ioc.KeyOf[*testutil.TestService](), nil)
			},
		},
		{
			name: "zero key",
			err:  ioc.ErrInvalidKey,
			fn: func(c *ioc.Container) {
				c.BindKey(ioc.Key{}, func(ioc.Resolver) (any, error) { return 1, nil })
			},
		},
		{
			name: "nil singleton",
			err:  ioc.ErrNilInstance,
			fn: func(c *ioc.Container) {
				c.SingletonKey(ioc.KeyOf[*testutil.TestService](), nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertPanicsWithError(t, tt.err, func() {
				tt.fn(ioc.New())
			})
		})
	}

	t.Run("mismatched singleton", func(t *testing.T) {
		t.Parallel()

		defer func() {
			r := recover()
			require.NotNil(t, r)
			err, ok := r.(error)
			require.True(t, ok)
			testutil.AssertErrorType[ioc.RegistrationError](t, err)
			testutil.AssertErrorType[ioc.TypeMismatchError](t, err)
		}()
		ioc.New().SingletonKey(ioc.KeyOf[*testutil.TestService](), "not a service")
	})
}

func TestContainer_Introspection(t *testing.T) {
	t.Parallel()

	c := ioc.New()
	testutil.BindRepositoryAndService(c, "data")
	ioc.Singleton(c, testutil.NewTestService())

	assert.True(t, ioc.Has[*testutil.Repository](c))
	assert.True(t, ioc.Has[*testutil.TestService](c))
	assert.False(t, ioc.Has[*testutil.TestDisposable](c))

	assert.False(t, c.IsResolved(ioc.KeyOf[*testutil.Repository]()))
	assert.True(t, c.IsResolved(ioc.KeyOf[*testutil.TestService]()))

	keys := c.Keys()
	assert.Len(t, keys, 3)
	for i := 1; i < len(keys); i++ {
		assert.Negative(t, keys[i-1].Compare(keys[i]), "keys must be sorted")
	}
}

func TestContainer_Close(t *testing.T) {
	t.Parallel()

	t.Run("disposes in reverse order", func(t *testing.T) {
		t.Parallel()

		var closed []string
		record := func(id string) { closed = append(closed, id) }

		type first struct{ *testutil.TestDisposable }
		type second struct{ *testutil.TestDisposable }

		c := ioc.New()
		ioc.Bind(c, func(ioc.Resolver) (*testutil.TestDisposable, error) {
			return testutil.NewRecordingDisposable("leaf", record), nil
		})
		ioc.Bind(c, func(r ioc.Resolver) (first, error) {
			_, err := ioc.Resolve[*testutil.TestDisposable](r)
			return first{testutil.NewRecordingDisposable("middle", record)}, err
		})
		ioc.Bind(c, func(r ioc.Resolver) (second, error) {
			_, err := ioc.Resolve[first](r)
			return second{testutil.NewRecordingDisposable("root", record)}, err
		})

		_, err := ioc.Resolve[second](c)
		require.NoError(t, err)

		require.NoError(t, c.Close())
		assert.Equal(t, []string{"root", "middle", "leaf"}, closed)
	})

	t.Run("context disposable", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		d := testutil.NewTestContextDisposable()
		ioc.Singleton(c, d)

		require.NoError(t, c.CloseContext(context.Background()))
		assert.True(t, d.IsDisposed())
		assert.True(t, d.WasDisposedWithContext())
	})

	t.Run("aggregates errors", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		ioc.Singleton(c, testutil.NewTestDisposableWithError(testutil.ErrDisposal))
		ioc.Singleton(c, testutil.CloserFunc(func() error { return testutil.ErrTest }))

		err := c.Close()
		require.Error(t, err)

		disposalErr := testutil.AssertErrorType[ioc.DisposalError](t, err)
		assert.Len(t, disposalErr.Errors, 2)
		assert.ErrorIs(t, err, testutil.ErrDisposal)
		assert.ErrorIs(t, err, testutil.ErrTest)
	})

	t.Run("idempotent and final", func(t *testing.T) {
		t.Parallel()

		c := ioc.New()
		d := testutil.NewTestDisposable()
		ioc.Singleton(c, d)

		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
		assert.True(t, d.IsDisposed())

		testutil.AssertContainerClosed(t, c)

		_, err := ioc.ResolveTransient[*testutil.TestDisposable](c)
		assert.True(t, errors.Is(err, ioc.ErrContainerClosed))
	})
}

func TestContainer_Builder(t *testing.T) {
	t.Parallel()

	log := &testutil.EventLog{}
	c := testutil.NewContainerBuilder(t).
		WithOptions(ioc.WithMaxDepth(10)).
		WithFixture(testutil.CommonFixtures.Service).
		WithProvider(testutil.NewRecordingProvider("P1", log)).
		Booted().
		Build()

	assert.True(t, c.Booted())
	assert.Equal(t, []string{"P1.register", "P1.boot"}, log.Events())
	assert.True(t, ioc.Has[*testutil.TestService](c))
}

func TestContainer_CloseDisposesInterfaceKeys(t *testing.T) {
	t.Parallel()

	c := ioc.New()
	testutil.SetupBasicServices(c)

	db := testutil.AssertServiceResolvable[testutil.TestDatabase](t, c)
	assert.Equal(t, "testdb: SELECT 1", db.Query("SELECT 1"))

	require.NoError(t, c.Close())
	assert.ErrorIs(t, db.Close(), testutil.ErrAlreadyClosed, "Close must dispose the database")
}

func TestContainer_CloseDuringBuild(t *testing.T) {
	t.Parallel()

	c := ioc.New()
	built := testutil.NewTestDisposable()
	started := make(chan struct{})
	release := make(chan struct{})
	ioc.Bind(c, func(ioc.Resolver) (*testutil.TestDisposable, error) {
		close(started)
		<-release
		return built, nil
	})

	result := make(chan error, 1)
	go func() {
		_, err := ioc.Resolve[*testutil.TestDisposable](c)
		result <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("factory did not start")
	}

	require.NoError(t, c.Close())
	close(release)

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ioc.ErrContainerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("resolution did not finish")
	}

	assert.False(t, c.IsResolved(ioc.KeyOf[*testutil.TestDisposable]()))
	assert.True(t, built.IsDisposed(), "an instance finished after Close must be disposed")
}
