// Package notifications sends push notifications for workflow events via
// ntfy. When no topic is configured a no-op service is returned, so
// callers never need to branch on notification availability.
package notifications
