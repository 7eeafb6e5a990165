// internal/common/database/database.go
package database

import (
	"context"
	"fmt"
	"time"
)

// ConnectTimeout bounds the verification ping every constructor performs.
var ConnectTimeout = 5 * time.Second

// verify pings a freshly built client and releases it when the ping fails,
// so callers retrying a constructor never leak pools.
func verify(ctx context.Context, name string, ping func(context.Context) error, release func() error) error {
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	if err := ping(ctx); err != nil {
		_ = release()
		return fmt.Errorf("%s unreachable: %w", name, err)
	}
	return nil
}
