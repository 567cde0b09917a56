package ioc

import (
	"context"
	"fmt"
)

// Disposable is implemented by cached services that hold resources.
// The container closes them when it is closed.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// DisposableWithContext allows disposal with context for graceful shutdown.
//
// Example:
//
//	func (dc *DatabaseConnection) Close(ctx context.Context) error {
//	    done := make(chan error, 1)
//	    go func() {
//	        done <- dc.conn.Close()
//	    }()
//
//	    select {
//	    case err := <-done:
//	        return err
//	    case <-ctx.Done():
//	        return ctx.Err()
//	    }
//	}
type DisposableWithContext interface {
	Close(ctx context.Context) error
}

// dispose closes instance if it is disposable.
func dispose(ctx context.Context, instance any) error {
	var err error
	switch d := instance.(type) {
	case DisposableWithContext:
		err = d.Close(ctx)
	case Disposable:
		err = d.Close()
	default:
		return nil
	}

	if err != nil {
		return fmt.Errorf("close %T: %w", instance, err)
	}
	return nil
}
