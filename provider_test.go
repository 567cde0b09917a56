package ioc_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/lifecycle"
	"github.com/junioryono/ioc/internal/testutil"
)

func TestBoot_RegisterBeforeBoot(t *testing.T) {
	t.Parallel()

	log := &testutil.EventLog{}
	c := ioc.New().
		AddProvider(testutil.NewRecordingProvider("P1", log)).
		AddProvider(testutil.NewRecordingProvider("P2", log))

	assert.Equal(t, lifecycle.Idle, c.State())
	assert.Same(t, c, c.Boot())
	assert.True(t, c.Booted())

	assert.Equal(t, []string{"P1.register", "P2.register", "P1.boot", "P2.boot"}, log.Events())
}

func TestBoot_CrossProviderBindings(t *testing.T) {
	t.Parallel()

	log := &testutil.EventLog{}

	// The consumer comes first but its Boot still sees the later binding.
	consumer := testutil.NewRecordingProvider("consumer", log)
	var booted *testutil.Service
	consumer.OnRegister = func(c *ioc.Container) {
		ioc.Bind(c, func(r ioc.Resolver) (*testutil.Service, error) {
			repo, err := ioc.Resolve[*testutil.Repository](r)
			if err != nil {
				return nil, err
			}
			return &testutil.Service{Repo: repo}, nil
		})
	}
	consumer.OnBoot = func(c *ioc.Container) {
		booted = ioc.MustResolve[*testutil.Service](c)
	}

	producer := testutil.NewRecordingProvider("producer", log)
	producer.OnRegister = func(c *ioc.Container) {
		ioc.Bind(c, func(ioc.Resolver) (*testutil.Repository, error) {
			return testutil.NewRepository("from producer"), nil
		})
	}

	c := ioc.New().AddProviders(consumer, producer).Boot()

	require.NotNil(t, booted)
	assert.Equal(t, "from producer", booted.Query())
	assert.Same(t, booted, ioc.MustResolve[*testutil.Service](c))
}

func TestBoot_Idempotent(t *testing.T) {
	t.Parallel()

	log := &testutil.EventLog{}
	c := ioc.New().WithProvider(testutil.NewRecordingProvider("P1", log))

	c.Boot()
	c.Boot()

	assert.Equal(t, []string{"P1.register", "P1.boot"}, log.Events())
}

func TestBoot_ReentrantBootIsNoop(t *testing.T) {
	t.Parallel()

	log := &testutil.EventLog{}
	p := testutil.NewRecordingProvider("P1", log)
	p.OnBoot = func(c *ioc.Container) {
		c.Boot()
	}

	c := ioc.New().AddProvider(p).Boot()

	assert.True(t, c.Booted())
	assert.Equal(t, []string{"P1.register", "P1.boot"}, log.Events())
}

func TestBoot_ConcurrentBootRunsOnce(t *testing.T) {
	t.Parallel()

	log := &testutil.EventLog{}
	c := ioc.New().AddProvider(testutil.NewRecordingProvider("P1", log))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Boot()
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"P1.register", "P1.boot"}, log.Events())
}

func TestAddProvider_AfterBoot(t *testing.T) {
	t.Parallel()

	log := &testutil.EventLog{}
	c := ioc.New().AddProvider(testutil.NewRecordingProvider("P1", log)).Boot()

	c.AddProvider(testutil.NewRecordingProvider("late", log))

	assert.Equal(t, []string{"P1.register", "P1.boot", "late.register", "late.boot"}, log.Events())
	assert.Len(t, c.Providers(), 2)
}

func TestAddProvider_DuringBoot(t *testing.T) {
	t.Parallel()

	t.Run("added during register", func(t *testing.T) {
		t.Parallel()

		log := &testutil.EventLog{}
		p1 := testutil.NewRecordingProvider("P1", log)
		p1.OnRegister = func(c *ioc.Container) {
			c.AddProvider(testutil.NewRecordingProvider("nested", log))
		}

		ioc.New().AddProviders(p1, testutil.NewRecordingProvider("P2", log)).Boot()

		assert.Equal(t, []string{
			"P1.register", "P2.register", "nested.register",
			"P1.boot", "P2.boot", "nested.boot",
		}, log.Events())
	})

	t.Run("added during boot", func(t *testing.T) {
		t.Parallel()

		log := &testutil.EventLog{}
		p1 := testutil.NewRecordingProvider("P1", log)
		p1.OnBoot = func(c *ioc.Container) {
			c.AddProvider(testutil.NewRecordingProvider("nested", log))
		}

		ioc.New().AddProviders(p1, testutil.NewRecordingProvider("P2", log)).Boot()

		assert.Equal(t, []string{
			"P1.register", "P2.register",
			"P1.boot", "P2.boot", "nested.register", "nested.boot",
		}, log.Events())
	})
}

func TestAddProvider_NilAndConditional(t *testing.T) {
	t.Parallel()

	log := &testutil.EventLog{}
	c := ioc.New().
		AddProvider(nil).
		AddProviderIf(false, testutil.NewRecordingProvider("skipped", log)).
		AddProviderIf(true, testutil.NewRecordingProvider("kept", log)).
		Boot()

	assert.Len(t, c.Providers(), 1)
	assert.Equal(t, []string{"kept.register", "kept.boot"}, log.Events())
}

func TestBoot_ProviderPanic(t *testing.T) {
	t.Parallel()

	log := &testutil.EventLog{}
	bad := testutil.NewRecordingProvider("bad", log)
	bad.OnRegister = func(*ioc.Container) {
		panic("register failed")
	}

	c := ioc.New().AddProviders(bad, testutil.NewRecordingProvider("P2", log))

	assert.PanicsWithValue(t, "register failed", func() {
		c.Boot()
	})
	assert.Equal(t, lifecycle.Failed, c.State())
	assert.False(t, c.Booted())

	// A failed lifecycle does not run again.
	c.Boot()
	assert.Equal(t, []string{"bad.register"}, log.Events())
}

func TestBoot_ClosedContainer(t *testing.T) {
	t.Parallel()

	log := &testutil.EventLog{}
	c := ioc.New().AddProvider(testutil.NewRecordingProvider("P1", log))
	require.NoError(t, c.Close())

	c.Boot()
	assert.Empty(t, log.Events())
	assert.Equal(t, lifecycle.Idle, c.State())
}

func TestProviderFuncs(t *testing.T) {
	t.Parallel()

	var order []string
	c := ioc.New().AddProvider(ioc.ProviderFuncs{
		RegisterFunc: func(c *ioc.Container) {
			order = append(order, "register")
			testutil.CommonFixtures.Service.Bind(c)
		},
		BootFunc: func(c *ioc.Container) {
			order = append(order, "boot")
			ioc.MustResolve[*testutil.TestService](c)
		},
	}).AddProvider(ioc.ProviderFuncs{}).Boot()

	assert.Equal(t, []string{"register", "boot"}, order)
	assert.True(t, c.IsResolved(ioc.KeyOf[*testutil.TestService]()))
}

type repositoryProvider struct {
	ioc.BaseProvider
}

func (repositoryProvider) Register(c *ioc.Container) {
	ioc.Bind(c, func(ioc.Resolver) (*testutil.Repository, error) {
		return testutil.NewRepository("base"), nil
	})
}

func TestBaseProvider(t *testing.T) {
	t.Parallel()

	c := ioc.New().AddProvider(repositoryProvider{}).Boot()

	repo := testutil.AssertServiceResolvable[*testutil.Repository](t, c)
	assert.Equal(t, "base", repo.Query())
}

func TestDeferredProvider(t *testing.T) {
	t.Parallel()

	newDeferred := func(log *testutil.EventLog) *testutil.RecordingDeferredProvider {
		p := &testutil.RecordingDeferredProvider{
			RecordingProvider: *testutil.NewRecordingProvider("deferred", log),
			Keys:              []ioc.Key{ioc.KeyOf[*testutil.Repository](), ioc.KeyOf[*testutil.Service]()},
		}
		p.OnRegister = func(c *ioc.Container) {
			testutil.BindRepositoryAndService(c, "lazy")
		}
		return p
	}

	t.Run("loads on first resolution", func(t *testing.T) {
		t.Parallel()

		log := &testutil.EventLog{}
		c := ioc.New().AddProvider(newDeferred(log)).Boot()

		assert.Empty(t, log.Events(), "deferred provider must not run at boot")
		assert.Empty(t, c.Providers())

		svc := testutil.AssertServiceResolvable[*testutil.Service](t, c)
		assert.Equal(t, "lazy", svc.Query())
		assert.Equal(t, []string{"deferred.register", "deferred.boot"}, log.Events())

		// The second declared key does not load the provider again.
		testutil.AssertServiceResolvable[*testutil.Repository](t, c)
		assert.Len(t, log.Events(), 2)
		assert.Len(t, c.Providers(), 1)
	})

	t.Run("loaded before boot", func(t *testing.T) {
		t.Parallel()

		log := &testutil.EventLog{}
		c := ioc.New().AddProvider(newDeferred(log))

		testutil.AssertServiceResolvable[*testutil.Repository](t, c)
		assert.Equal(t, []string{"deferred.register"}, log.Events())

		c.Boot()
		assert.Equal(t, []string{"deferred.register", "deferred.boot"}, log.Events())
	})

	t.Run("transient resolution loads it too", func(t *testing.T) {
		t.Parallel()

		log := &testutil.EventLog{}
		c := ioc.New().AddProvider(newDeferred(log)).Boot()

		repo, err := ioc.ResolveTransient[*testutil.Repository](c)
		require.NoError(t, err)
		assert.Equal(t, "lazy", repo.Query())
	})

	t.Run("concurrent first resolution", func(t *testing.T) {
		t.Parallel()

		log := &testutil.EventLog{}
		c := ioc.New().AddProvider(newDeferred(log)).Boot()

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := ioc.Resolve[*testutil.Service](c)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, []string{"deferred.register", "deferred.boot"}, log.Events())
	})

	t.Run("without keys it is eager", func(t *testing.T) {
		t.Parallel()

		log := &testutil.EventLog{}
		p := &testutil.RecordingDeferredProvider{
			RecordingProvider: *testutil.NewRecordingProvider("eager", log),
		}
		ioc.New().AddProvider(p).Boot()

		assert.Equal(t, []string{"eager.register", "eager.boot"}, log.Events())
	})
}
