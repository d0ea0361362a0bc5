// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Create persists a new notification into the app.notification table.

Parameters:
  - context: context.Context
  - notification: *Notification

Returns:
  - error: Storage failures
*/
func (repository *PostgresRepository) Create(context context.Context, notification *Notification) error {
	const query = `
		INSERT INTO app.notification (id, userid, type, title, body, isread, createdat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		notification.ID,
		notification.UserID,
		notification.Type,
		notification.Title,
		notification.Body,
		notification.IsRead,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_notification_repo_create_failed: %w", err)
	}

	return nil
}

/*
ListForUser returns the user's notifications, newest first.

Parameters:
  - context: context.Context
  - userID: string
  - limit: int (maximum rows returned)

Returns:
  - []*Notification: Hydrated notifications
  - error: Execution errors
*/
func (repository *PostgresRepository) ListForUser(context context.Context, userID string, limit int) ([]*Notification, error) {
	const query = `
		SELECT id, userid, type, title, body, isread, readat, createdat
		FROM app.notification
		WHERE userid = $1
		ORDER BY createdat DESC
		LIMIT $2`

	rows, err := repository.pool.Query(context, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres_notification_repo_list_failed: %w", err)
	}
	defer rows.Close()

	notifications := []*Notification{}
	for rows.Next() {
		notification := &Notification{}
		if err := rows.Scan(
			&notification.ID,
			&notification.UserID,
			&notification.Type,
			&notification.Title,
			&notification.Body,
			&notification.IsRead,
			&notification.ReadAt,
			&notification.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_notification_repo_scan_failed: %w", err)
		}
		notifications = append(notifications, notification)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_notification_repo_list_failed: %w", err)
	}

	return notifications, nil
}

/*
MarkRead flags one notification as read.

Description: Scoped to the owning user, so a caller can never mark another
user's notification. Idempotent on already-read rows.

Parameters:
  - context: context.Context
  - userID: string
  - notificationID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresRepository) MarkRead(context context.Context, userID, notificationID string) error {
	const query = `
		UPDATE app.notification
		SET isread = TRUE, readat = $3
		WHERE userid = $1 AND id = $2 AND isread = FALSE`

	_, err := repository.pool.Exec(context, query, userID, notificationID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_notification_repo_mark_read_failed: %w", err)
	}

	return nil
}

/*
CountUnread returns the number of unread notifications for the user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - int64: Unread count
  - error: Execution errors
*/
func (repository *PostgresRepository) CountUnread(context context.Context, userID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM app.notification WHERE userid = $1 AND isread = FALSE`

	var count int64
	err := repository.pool.QueryRow(context, query, userID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("postgres_notification_repo_count_failed: %w", err)
	}

	return count, nil
}
