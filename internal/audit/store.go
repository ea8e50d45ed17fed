package audit

import "context"

// Store is an append-only audit log keyed by pseudonymized subject.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListBySubject(ctx context.Context, subject string) ([]Entry, error)
	ListAll(ctx context.Context) ([]Entry, error)
}
