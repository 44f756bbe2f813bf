package sync

import (
	"context"
	"time"

	"github.com/goliatone/go-dirsync/core"
	"github.com/goliatone/go-dirsync/retry"
)

// RetryingTargetClient wraps a TargetClient so every remote call runs under
// the run's retry policy. When the policy is exhausted the wrapped call's
// result is nil and the last error is returned; callers downgrade that to a
// per-entity warning.
type RetryingTargetClient struct {
	inner  core.TargetClient
	policy retry.Policy
}

func NewRetryingTargetClient(inner core.TargetClient, policy retry.Policy) *RetryingTargetClient {
	return &RetryingTargetClient{inner: inner, policy: policy}
}

func (c *RetryingTargetClient) GetFieldsPage(ctx context.Context, appID int, pageNumber int) (core.FieldsPage, error) {
	return retry.Do(ctx, c.policy, func(ctx context.Context) (core.FieldsPage, error) {
		return c.inner.GetFieldsPage(ctx, appID, pageNumber)
	})
}

func (c *RetryingTargetClient) FindRecordByValue(ctx context.Context, appID int, fieldID int, value string) (*core.TargetRecord, error) {
	return retry.Do(ctx, c.policy, func(ctx context.Context) (*core.TargetRecord, error) {
		return c.inner.FindRecordByValue(ctx, appID, fieldID, value)
	})
}

func (c *RetryingTargetClient) SaveRecord(ctx context.Context, record core.TargetRecord) (*core.SaveRecordResult, error) {
	return retry.Do(ctx, c.policy, func(ctx context.Context) (*core.SaveRecordResult, error) {
		return c.inner.SaveRecord(ctx, record)
	})
}

func (c *RetryingTargetClient) AddListValue(ctx context.Context, listID string, name string) (*core.ListValueResult, error) {
	return retry.Do(ctx, c.policy, func(ctx context.Context) (*core.ListValueResult, error) {
		return c.inner.AddListValue(ctx, listID, name)
	})
}

func (c *RetryingTargetClient) Ping(ctx context.Context) error {
	_, err := retry.Do(ctx, c.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.inner.Ping(ctx)
	})
	return err
}

var _ core.TargetClient = (*RetryingTargetClient)(nil)

// PolicyFromConfig builds the run retry policy from configuration, falling
// back to the package defaults for unset values.
func PolicyFromConfig(cfg core.RetryConfig) retry.Policy {
	policy := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BackoffStepMS > 0 {
		policy.Backoff = retry.LinearBackoff(time.Duration(cfg.BackoffStepMS) * time.Millisecond)
	}
	return policy
}
