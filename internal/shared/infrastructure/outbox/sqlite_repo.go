package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sharedPersistence "github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// sqliteQuerier abstracts *sql.DB and *sql.Tx for shared query execution.
type sqliteQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const sqliteTimeLayout = time.RFC3339

// SQLiteRepository implements Repository using SQLite, raw database/sql
// rather than a generated query layer.
type SQLiteRepository struct {
	dbConn *sql.DB
}

// NewSQLiteRepository creates a new SQLite outbox repository.
func NewSQLiteRepository(dbConn *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{dbConn: dbConn}
}

func (r *SQLiteRepository) querier(ctx context.Context) sqliteQuerier {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// Save stores a new outbox message.
func (r *SQLiteRepository) Save(ctx context.Context, msg *Message) error {
	return r.insert(ctx, r.querier(ctx), msg)
}

// SaveBatch stores multiple outbox messages atomically.
func (r *SQLiteRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}

	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		for _, msg := range msgs {
			if err := r.insert(ctx, info.Tx, msg); err != nil {
				return err
			}
		}
		return nil
	}

	tx, err := r.dbConn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, msg := range msgs {
		if err := r.insert(ctx, tx, msg); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) insert(ctx context.Context, q sqliteQuerier, msg *Message) error {
	result, err := q.ExecContext(ctx, `
		INSERT INTO outbox (
			event_id, aggregate_type, aggregate_id, event_type, routing_key,
			payload, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		msg.EventID.String(), msg.AggregateType, msg.AggregateID.String(), msg.EventType, msg.RoutingKey,
		string(msg.Payload), nullableString(string(msg.Metadata)), msg.CreatedAt.Format(sqliteTimeLayout),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	msg.ID = id
	return nil
}

// GetUnpublished retrieves unpublished messages ordered by creation time.
func (r *SQLiteRepository) GetUnpublished(ctx context.Context, limit int) ([]*Message, error) {
	rows, err := r.querier(ctx).QueryContext(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, routing_key,
		       payload, metadata, created_at, published_at, next_retry_at, retry_count,
		       last_error, dead_lettered_at, dead_letter_reason
		FROM outbox
		WHERE published_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at
		LIMIT ?
	`, time.Now().Format(sqliteTimeLayout), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMessages(rows)
}

// MarkPublished marks a message as successfully published.
func (r *SQLiteRepository) MarkPublished(ctx context.Context, id int64) error {
	_, err := r.querier(ctx).ExecContext(ctx,
		"UPDATE outbox SET published_at = ?, dead_lettered_at = NULL WHERE id = ?",
		time.Now().Format(sqliteTimeLayout), id,
	)
	return err
}

// MarkFailed records a publish failure with error message.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	_, err := r.querier(ctx).ExecContext(ctx, `
		UPDATE outbox SET retry_count = retry_count + 1, last_error = ?, next_retry_at = ? WHERE id = ?
	`, errMsg, nextRetryAt.Format(sqliteTimeLayout), id)
	return err
}

// MarkDead marks a message as dead-lettered.
func (r *SQLiteRepository) MarkDead(ctx context.Context, id int64, reason string) error {
	_, err := r.querier(ctx).ExecContext(ctx, `
		UPDATE outbox SET dead_lettered_at = ?, dead_letter_reason = ? WHERE id = ?
	`, time.Now().Format(sqliteTimeLayout), reason, id)
	return err
}

// GetFailed retrieves failed messages eligible for retry.
func (r *SQLiteRepository) GetFailed(ctx context.Context, maxRetries, limit int) ([]*Message, error) {
	rows, err := r.querier(ctx).QueryContext(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, routing_key,
		       payload, metadata, created_at, published_at, next_retry_at, retry_count,
		       last_error, dead_lettered_at, dead_letter_reason
		FROM outbox
		WHERE published_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND retry_count > 0
		  AND retry_count < ?
		  AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at
		LIMIT ?
	`, maxRetries, time.Now().Format(sqliteTimeLayout), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMessages(rows)
}

// DeleteOld removes successfully published messages older than the retention period.
func (r *SQLiteRepository) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays).Format(sqliteTimeLayout)
	result, err := r.querier(ctx).ExecContext(ctx, `
		DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *SQLiteRepository) scanMessages(rows *sql.Rows) ([]*Message, error) {
	var messages []*Message
	for rows.Next() {
		var (
			id                                                         int64
			eventIDRaw, aggregateIDRaw, aggregateType, eventType       string
			routingKey, createdAtRaw                                   string
			payloadRaw, metadataRaw                                    []byte
			publishedAtRaw, nextRetryAtRaw, lastError                  sql.NullString
			retryCount                                                 int
			deadLetteredAtRaw, deadLetterReason                        sql.NullString
		)
		if err := rows.Scan(
			&id, &eventIDRaw, &aggregateType, &aggregateIDRaw, &eventType, &routingKey,
			&payloadRaw, &metadataRaw, &createdAtRaw, &publishedAtRaw, &nextRetryAtRaw, &retryCount,
			&lastError, &deadLetteredAtRaw, &deadLetterReason,
		); err != nil {
			return nil, err
		}

		eventID, _ := uuid.Parse(eventIDRaw)
		aggregateID, _ := uuid.Parse(aggregateIDRaw)
		createdAt, err := time.Parse(sqliteTimeLayout, createdAtRaw)
		if err != nil {
			return nil, err
		}

		msg := &Message{
			ID:            id,
			EventID:       eventID,
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			EventType:     eventType,
			RoutingKey:    routingKey,
			Payload:       json.RawMessage(payloadRaw),
			CreatedAt:     createdAt,
			RetryCount:    retryCount,
		}
		if len(metadataRaw) > 0 {
			msg.Metadata = json.RawMessage(metadataRaw)
		}
		if publishedAtRaw.Valid {
			t, err := time.Parse(sqliteTimeLayout, publishedAtRaw.String)
			if err != nil {
				return nil, err
			}
			msg.PublishedAt = &t
		}
		if nextRetryAtRaw.Valid {
			t, err := time.Parse(sqliteTimeLayout, nextRetryAtRaw.String)
			if err != nil {
				return nil, err
			}
			msg.NextRetryAt = &t
		}
		if lastError.Valid {
			msg.LastError = &lastError.String
		}
		if deadLetteredAtRaw.Valid {
			t, err := time.Parse(sqliteTimeLayout, deadLetteredAtRaw.String)
			if err != nil {
				return nil, err
			}
			msg.DeadLetteredAt = &t
		}
		if deadLetterReason.Valid {
			msg.DeadLetterReason = &deadLetterReason.String
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
