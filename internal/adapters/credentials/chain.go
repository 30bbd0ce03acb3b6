package credentials

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/bnema/mycelium-pulse/internal/ports"
)

var ErrNotFound = errors.New("credential not found")

// Chain tries each backend in order and stops at the first success.
// Context cancellation is returned immediately.
type Chain struct {
	backends []ports.CredentialStore
}

var _ ports.CredentialStore = (*Chain)(nil)

func NewChain(backends ...ports.CredentialStore) (*Chain, error) {
	if len(backends) == 0 {
		return nil, errors.New("credential chain needs at least one backend")
	}
	for i, b := range backends {
		if b == nil {
			return nil, fmt.Errorf("credential backend %d is nil", i)
		}
	}
	return &Chain{backends: backends}, nil
}

// NewDefaultChain prefers pass and falls back to files under dir/credentials.
func NewDefaultChain(dir string) *Chain {
	return &Chain{backends: []ports.CredentialStore{
		NewPassStore("mycelium"),
		NewFileStore(filepath.Join(dir, "credentials")),
	}}
}

func (c *Chain) Put(ctx context.Context, key string, value string) error {
	return c.each(ctx, "put", func(b ports.CredentialStore) error {
		return b.Put(ctx, key, value)
	})
}

func (c *Chain) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := c.each(ctx, "get", func(b ports.CredentialStore) error {
		v, err := b.Get(ctx, key)
		if err == nil {
			value = v
		}
		return err
	})
	return value, err
}

func (c *Chain) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, b := range c.backends {
		if err := b.Delete(ctx, key); err != nil {
			if stopChain(err) {
				return err
			}
			errs = append(errs, err)
		}
	}
	if len(errs) == len(c.backends) {
		return fmt.Errorf("delete credential: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Chain) each(ctx context.Context, op string, fn func(ports.CredentialStore) error) error {
	var errs []error
	for _, b := range c.backends {
		err := fn(b)
		if err == nil {
			return nil
		}
		if stopChain(err) {
			return err
		}
		errs = append(errs, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%s credential: %w", op, errors.Join(errs...))
}

func stopChain(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
