package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
)

// AssertServiceResolvable checks if a service can be resolved
func AssertServiceResolvable[T any](t *testing.T, r ioc.Resolver) T {
	t.Helper()
	service, err := ioc.Resolve[T](r)
	require.NoError(t, err, "failed to resolve service of type %s", ioc.KeyOf[T]())
	require.NotNil(t, service, "resolved service is nil")
	return service
}

// AssertServiceNotFound checks if a service resolution fails with not found error
func AssertServiceNotFound[T any](t *testing.T, r ioc.Resolver) {
	t.Helper()
	_, err := ioc.Resolve[T](r)
	assert.Error(t, err)
	assert.True(t, ioc.IsNotFound(err), "expected service not found error, got: %v", err)
}

// AssertPanicsWithError checks if a function panics with specific error
func AssertPanicsWithError(t *testing.T, expectedError error, f func(), msgAndArgs ...any) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			assert.Fail(t, "function did not panic", msgAndArgs...)
			return
		}

		err, ok := r.(error)
		if !ok {
			assert.Fail(t, "panic value is not an error", "got %v", r)
			return
		}

		assert.ErrorIs(t, err, expectedError, msgAndArgs...)
	}()
	f()
}

// AssertSameInstance verifies two services are the same instance
func AssertSameInstance(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	assert.Same(t, expected, actual, msgAndArgs...)
}

// AssertDifferentInstances verifies two services are different instances
func AssertDifferentInstances(t *testing.T, first, second any, msgAndArgs ...any) {
	t.Helper()
	assert.NotSame(t, first, second, msgAndArgs...)
}

// AssertErrorType checks if an error is of a specific type
func AssertErrorType[T error](t *testing.T, err error, msgAndArgs ...any) T {
	t.Helper()
	var target T
	assert.ErrorAs(t, err, &target, msgAndArgs...)
	return target
}

// AssertCircularDependency checks if an error is a circular dependency error
func AssertCircularDependency(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err)
	assert.True(t, ioc.IsCircular(err), "expected circular dependency error, got: %v", err)
}

// AssertContainerClosed checks that a closed container rejects work
func AssertContainerClosed(t *testing.T, c *ioc.Container) {
	t.Helper()
	assert.True(t, c.IsClosed(), "container should be closed")

	_, err := c.Get(ioc.KeyOf[*TestService]())
	assert.ErrorIs(t, err, ioc.ErrContainerClosed)

	AssertPanicsWithError(t, ioc.ErrContainerClosed, func() {
		ioc.Singleton(c, NewTestService())
	})
}
