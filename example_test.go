package ioc_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/junioryono/ioc"
)

// Example demonstrates binding factories and resolving a service graph.
func Example() {
	c := ioc.New()
	defer c.Close()

	// Factories resolve their dependencies through the resolver they receive
	ioc.Bind(c, func(ioc.Resolver) (*ExampleLogger, error) {
		return &ExampleLogger{prefix: "[APP] "}, nil
	})
	ioc.Bind(c, func(ioc.Resolver) (*ExampleDatabase, error) {
		return &ExampleDatabase{users: map[int]string{1: "John Doe"}}, nil
	})
	ioc.Bind(c, func(r ioc.Resolver) (*ExampleUserService, error) {
		db, err := ioc.Resolve[*ExampleDatabase](r)
		if err != nil {
			return nil, err
		}
		logger, err := ioc.Resolve[*ExampleLogger](r)
		if err != nil {
			return nil, err
		}
		return &ExampleUserService{db: db, logger: logger}, nil
	})

	users, err := ioc.Resolve[*ExampleUserService](c)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(users.GetUser(1))
	// Output: John Doe
}

// ExampleBind demonstrates that a bound factory runs once per container.
func ExampleBind() {
	c := ioc.New()
	defer c.Close()

	calls := 0
	ioc.Bind(c, func(ioc.Resolver) (*ExampleLogger, error) {
		calls++
		return &ExampleLogger{}, nil
	})

	logger1 := ioc.MustResolve[*ExampleLogger](c)
	logger2 := ioc.MustResolve[*ExampleLogger](c)

	fmt.Println(logger1 == logger2, calls)
	// Output: true 1
}

// ExampleSingleton demonstrates seeding a ready-made instance.
func ExampleSingleton() {
	c := ioc.New()
	defer c.Close()

	ioc.Singleton(c, &ExampleLogger{prefix: "[seeded] "})

	logger := ioc.MustResolve[*ExampleLogger](c)
	fmt.Println(logger.prefix)
	// Output: [seeded]
}

// ExampleResolveTransient demonstrates building a fresh instance.
func ExampleResolveTransient() {
	c := ioc.New()
	defer c.Close()

	ioc.Bind(c, func(ioc.Resolver) (*ExampleLogger, error) {
		return &ExampleLogger{}, nil
	})

	shared := ioc.MustResolve[*ExampleLogger](c)
	fresh := ioc.MustResolveTransient[*ExampleLogger](c)

	fmt.Println(shared == fresh)
	fmt.Println(shared == ioc.MustResolve[*ExampleLogger](c))
	// Output:
	// false
	// true
}

// ExampleContainer_Boot demonstrates the two provider phases.
func ExampleContainer_Boot() {
	c := ioc.New()
	defer c.Close()

	c.AddProvider(ioc.ProviderFuncs{
		RegisterFunc: func(c *ioc.Container) {
			fmt.Println("register: users")
			ioc.Bind(c, func(r ioc.Resolver) (*ExampleUserService, error) {
				db, err := ioc.Resolve[*ExampleDatabase](r)
				if err != nil {
					return nil, err
				}
				return &ExampleUserService{db: db}, nil
			})
		},
		BootFunc: func(c *ioc.Container) {
			// Every provider has registered by now
			users := ioc.MustResolve[*ExampleUserService](c)
			fmt.Println("boot: users ->", users.GetUser(1))
		},
	})
	c.AddProvider(ioc.ProviderFuncs{
		RegisterFunc: func(c *ioc.Container) {
			fmt.Println("register: database")
			ioc.Bind(c, func(ioc.Resolver) (*ExampleDatabase, error) {
				return &ExampleDatabase{users: map[int]string{1: "Jane Doe"}}, nil
			})
		},
	})

	c.Boot()
	fmt.Println(c.Booted())
	// Output:
	// register: users
	// register: database
	// boot: users -> Jane Doe
	// true
}

// exampleMailProvider binds the mailer only when something asks for it.
type exampleMailProvider struct {
	ioc.BaseProvider
}

func (exampleMailProvider) Register(c *ioc.Container) {
	fmt.Println("mail provider loaded")
	ioc.Bind(c, func(ioc.Resolver) (*ExampleMailer, error) {
		return &ExampleMailer{from: "noreply@example.com"}, nil
	})
}

func (exampleMailProvider) Provides() []ioc.Key {
	return []ioc.Key{ioc.KeyOf[*ExampleMailer]()}
}

// Example_deferredProvider demonstrates a provider that loads on first use.
func Example_deferredProvider() {
	c := ioc.New().AddProvider(exampleMailProvider{}).Boot()
	defer c.Close()

	fmt.Println("booted")
	mailer := ioc.MustResolve[*ExampleMailer](c)
	fmt.Println(mailer.from)
	// Output:
	// booted
	// mail provider loaded
	// noreply@example.com
}

// ExampleGreeter builds itself from the container.
type ExampleGreeter struct {
	logger *ExampleLogger
}

func (*ExampleGreeter) Inject(r ioc.Resolver) (any, error) {
	logger, err := ioc.Resolve[*ExampleLogger](r)
	if err != nil {
		return nil, err
	}
	return &ExampleGreeter{logger: logger}, nil
}

// Example_injectable demonstrates resolving a type without a binding.
func Example_injectable() {
	c := ioc.New()
	defer c.Close()

	ioc.Singleton(c, &ExampleLogger{prefix: "[greeter] "})

	greeter := ioc.MustResolve[*ExampleGreeter](c)
	fmt.Println(greeter.logger.prefix + "hello")
	fmt.Println(ioc.Has[*ExampleGreeter](c))
	// Output:
	// [greeter] hello
	// true
}

// Example_circular demonstrates cycle detection.
func Example_circular() {
	c := ioc.New()
	defer c.Close()

	ioc.Bind(c, func(r ioc.Resolver) (*ExampleChicken, error) {
		_, err := ioc.Resolve[*ExampleEgg](r)
		return &ExampleChicken{}, err
	})
	ioc.Bind(c, func(r ioc.Resolver) (*ExampleEgg, error) {
		_, err := ioc.Resolve[*ExampleChicken](r)
		return &ExampleEgg{}, err
	})

	_, err := ioc.Resolve[*ExampleChicken](c)
	fmt.Println(ioc.IsCircular(err))
	// Output: true
}

// ExampleFromContext demonstrates carrying a container in a context.
func ExampleFromContext() {
	c := ioc.New()
	defer c.Close()

	ioc.Singleton(c, &ExampleLogger{prefix: "[ctx] "})

	ctx := ioc.WithContainer(context.Background(), c)

	found, err := ioc.FromContext(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(ioc.MustResolve[*ExampleLogger](found).prefix)
	// Output: [ctx]
}

// ExampleContainer_WriteGraph demonstrates rendering the observed graph.
func ExampleContainer_WriteGraph() {
	c := ioc.New()
	defer c.Close()

	ioc.Bind(c, func(ioc.Resolver) (*ExampleDatabase, error) {
		return &ExampleDatabase{}, nil
	})
	ioc.Bind(c, func(r ioc.Resolver) (*ExampleUserService, error) {
		db, err := ioc.Resolve[*ExampleDatabase](r)
		return &ExampleUserService{db: db}, err
	})
	ioc.MustResolve[*ExampleUserService](c)

	if err := c.WriteGraph(os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type ExampleLogger struct {
	prefix string
}

type ExampleDatabase struct {
	users map[int]string
}

type ExampleUserService struct {
	db     *ExampleDatabase
	logger *ExampleLogger
}

func (s *ExampleUserService) GetUser(id int) string {
	return s.db.users[id]
}

type ExampleMailer struct {
	from string
}

type ExampleChicken struct{}

type ExampleEgg struct{}
