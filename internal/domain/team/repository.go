package team

import "context"

// Repository is the storage collaborator boundary for imported team records.
type Repository interface {
	Upsert(ctx context.Context, userID string, record Record) error
	GetLatestByUser(ctx context.Context, userID string) (Record, bool, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}
