package ports

import "context"

// CredentialStore holds broker credentials such as the NATS token, keyed by
// a reference like "nats/token".
type CredentialStore interface {
	Put(ctx context.Context, key string, value string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
