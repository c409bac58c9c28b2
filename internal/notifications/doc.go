// Package notifications pushes run milestones to an ntfy topic.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never need to check whether notifications are enabled. Delivery
// failures are returned but are never fatal to a run.
package notifications
