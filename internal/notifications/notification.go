// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

// Package notifications manages per-user notification delivery and read state.
package notifications

import (
	"context"
	"time"
)

// Notification is a single message addressed to one user.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"-"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	IsRead    bool       `json:"isRead"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Repository defines the storage contract for notifications.
type Repository interface {
	// Create persists a new notification.
	Create(ctx context.Context, notification *Notification) error

	// ListForUser returns the user's notifications, newest first.
	ListForUser(ctx context.Context, userID string, limit int) ([]*Notification, error)

	// MarkRead flags one notification as read. Marking an already-read or
	// foreign notification is a no-op.
	MarkRead(ctx context.Context, userID, notificationID string) error

	// CountUnread returns the number of unread notifications for the user.
	CountUnread(ctx context.Context, userID string) (int64, error)
}
