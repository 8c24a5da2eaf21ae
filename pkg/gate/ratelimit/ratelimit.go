// Package ratelimit decides whether a submission fits under its quota.
//
// Two fixed policies share one mechanism: comments are limited per
// (video, origin) pair, uploads per origin alone, both over a rolling
// 24-hour window. Rolling (rather than calendar-bucketed) accounting closes
// the burst-at-boundary hole where a client spends a full quota just before
// midnight and again just after.
package ratelimit

import (
	"context"
	"time"

	"github.com/clipshare/be/pkg/gate/identity"
	"github.com/clipshare/be/pkg/repositories/usage"
)

// Policy is a fixed (limit, window) pair. Read-only after construction.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// DefaultCommentPolicy admits one comment per video per origin per day.
func DefaultCommentPolicy() Policy {
	return Policy{Name: "comment", Limit: 1, Window: 24 * time.Hour}
}

// DefaultUploadPolicy admits five uploads per origin per day.
func DefaultUploadPolicy() Policy {
	return Policy{Name: "upload", Limit: 5, Window: 24 * time.Hour}
}

// CommentKey builds the usage key for a comment on target from origin.
func CommentKey(target identity.Key, origin string) string {
	return "comment:" + target.String() + ":" + origin
}

// UploadKey builds the usage key for an upload from origin.
func UploadKey(origin string) string {
	return "upload:" + origin
}

// Limiter applies one Policy against a shared usage store.
type Limiter struct {
	store  usage.Store
	policy Policy
}

func New(store usage.Store, policy Policy) *Limiter {
	return &Limiter{store: store, policy: policy}
}

func (l *Limiter) Policy() Policy { return l.policy }

// Check reports whether key currently fits under the policy without
// consuming quota.
func (l *Limiter) Check(ctx context.Context, key string) (usage.Decision, error) {
	return l.store.Check(ctx, key, l.policy.Limit, l.policy.Window)
}

// Record consumes one unit of quota for key. It must run only after the
// guarded action has durably succeeded, so a failed downstream step never
// burns quota. The append is conditional and atomic at the store, so the
// window can never hold more than the policy limit.
func (l *Limiter) Record(ctx context.Context, key string) (usage.Decision, error) {
	return l.store.Acquire(ctx, key, l.policy.Limit, l.policy.Window)
}
