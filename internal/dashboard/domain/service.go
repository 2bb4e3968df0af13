package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	EmployeeView(ctx context.Context, userID snowflake.ID) (*EmployeeView, error)
	LeaderView(ctx context.Context, userID snowflake.ID) (*LeaderView, error)
	HRView(ctx context.Context, userID snowflake.ID) (*HRView, error)
	AdminView(ctx context.Context, userID snowflake.ID) (*AdminView, error)
}

// Scope errors are distinguishable from upstream failures so the boundary
// can map them to a client status instead of a retryable 5xx.
var (
	ErrProfileNotFound = errors.New("profile_not_found")
	ErrNotAssigned     = errors.New("not_assigned")
)
