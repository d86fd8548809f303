package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
)

// InsertUploadSession stores a freshly initiated session.
func (d *Database) InsertUploadSession(ctx context.Context, s *mediatypes.UploadSession) error {
	if err := s.Validate(); err != nil {
		return err
	}

	start := time.Now()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO upload_sessions
			(id, asset_id, collection_id, file_name, mime, storage_key,
			 total_size, chunk_size, num_parts, state, provider_upload_id,
			 created_at, last_activity_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.AssetID, s.CollectionID, s.FileName, s.Mime, s.StorageKey,
		s.TotalSize, s.ChunkSize, s.NumParts, string(s.State), s.ProviderUploadID,
		s.CreatedAt.Unix(), s.LastActivityAt.Unix(),
	)
	recordQuery("insert_session", start, err)
	if err != nil {
		return fmt.Errorf("insert upload session %s: %w", s.ID, err)
	}
	return nil
}

// GetUploadSession loads a session and its acknowledged parts.
// Returns ErrSessionNotFound for unknown ids.
func (d *Database) GetUploadSession(ctx context.Context, id string) (*mediatypes.UploadSession, error) {
	start := time.Now()

	var (
		s                    mediatypes.UploadSession
		state                string
		created, lastContact int64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT id, asset_id, collection_id, file_name, mime, storage_key,
		       total_size, chunk_size, num_parts, state, provider_upload_id,
		       created_at, last_activity_at
		FROM upload_sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.AssetID, &s.CollectionID, &s.FileName, &s.Mime, &s.StorageKey,
		&s.TotalSize, &s.ChunkSize, &s.NumParts, &state, &s.ProviderUploadID,
		&created, &lastContact)
	if err != nil {
		recordQuery("get_session", start, err)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get upload session %s: %w", id, err)
	}

	s.State = mediatypes.SessionState(state)
	s.CreatedAt = time.Unix(created, 0).UTC()
	s.LastActivityAt = time.Unix(lastContact, 0).UTC()

	rows, err := d.db.QueryContext(ctx, `
		SELECT part_number, integrity_token
		FROM upload_parts WHERE session_id = ?
		ORDER BY part_number`, id)
	recordQuery("get_session", start, err)
	if err != nil {
		return nil, fmt.Errorf("get upload session %s parts: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p mediatypes.PartToken
		if err := rows.Scan(&p.PartNumber, &p.IntegrityToken); err != nil {
			return nil, fmt.Errorf("scan part for session %s: %w", id, err)
		}
		s.Parts = append(s.Parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parts for session %s: %w", id, err)
	}

	return &s, nil
}

// TransitionSessionState moves a session from one of the allowed states
// to next. The write is conditional: if no allowed state matches the
// stored row, the transition is lost and the caller gets ErrStateConflict
// (or ErrSessionNotFound if the row is gone). This is the single
// concurrency control point for the session lifecycle.
func (d *Database) TransitionSessionState(ctx context.Context, id string, allowed []mediatypes.SessionState, next mediatypes.SessionState) error {
	if len(allowed) == 0 {
		return fmt.Errorf("transition session %s: no allowed states given", id)
	}
	for _, from := range allowed {
		if !from.CanTransitionTo(next) {
			return fmt.Errorf("transition session %s: %s -> %s is not a legal transition", id, from, next)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(allowed)), ",")
	args := make([]interface{}, 0, len(allowed)+2)
	args = append(args, string(next), id)
	for _, st := range allowed {
		args = append(args, string(st))
	}

	start := time.Now()
	res, err := d.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE upload_sessions
		SET state = ?, last_activity_at = strftime('%%s', 'now')
		WHERE id = ? AND state IN (%s)`, placeholders), args...)
	recordQuery("transition_session", start, err)
	if err != nil {
		return fmt.Errorf("transition session %s to %s: %w", id, next, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition session %s to %s: rows affected: %w", id, next, err)
	}
	if n > 0 {
		return nil
	}

	// Nothing matched: either the session is gone or another writer won.
	var current string
	err = d.db.QueryRowContext(ctx, `SELECT state FROM upload_sessions WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("transition session %s: read current state: %w", id, err)
	}
	return fmt.Errorf("%w: session %s is %s, wanted one of %v", ErrStateConflict, id, current, allowed)
}

// RecordUploadPart stores an acknowledged part token and refreshes the
// session's activity timestamp. Re-acknowledging a part replaces its
// token, matching provider semantics for re-uploaded parts.
func (d *Database) RecordUploadPart(ctx context.Context, sessionID string, part mediatypes.PartToken) error {
	start := time.Now()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO upload_parts (session_id, part_number, integrity_token)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id, part_number)
		DO UPDATE SET integrity_token = excluded.integrity_token`,
		sessionID, part.PartNumber, part.IntegrityToken)
	recordQuery("record_part", start, err)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return ErrSessionNotFound
		}
		return fmt.Errorf("record part %d for session %s: %w", part.PartNumber, sessionID, err)
	}

	_, err = d.db.ExecContext(ctx, `
		UPDATE upload_sessions SET last_activity_at = strftime('%s', 'now') WHERE id = ?`,
		sessionID)
	if err != nil {
		return fmt.Errorf("touch session %s: %w", sessionID, err)
	}
	return nil
}

// DeleteUploadSession removes a session and, via cascade, its parts.
// Deleting an unknown session is not an error: completion and abort both
// end with a delete, and the loser of that race has nothing left to do.
func (d *Database) DeleteUploadSession(ctx context.Context, id string) error {
	start := time.Now()
	_, err := d.db.ExecContext(ctx, `DELETE FROM upload_sessions WHERE id = ?`, id)
	recordQuery("delete_session", start, err)
	if err != nil {
		return fmt.Errorf("delete upload session %s: %w", id, err)
	}
	return nil
}

// ListStaleSessions returns sessions with no activity since the cutoff
// that are still in a non-final state, oldest first.
func (d *Database) ListStaleSessions(ctx context.Context, idleSince time.Time, limit int) ([]*mediatypes.UploadSession, error) {
	if limit <= 0 {
		limit = 100
	}

	start := time.Now()
	rows, err := d.db.QueryContext(ctx, `
		SELECT id FROM upload_sessions
		WHERE last_activity_at < ? AND state NOT IN (?, ?)
		ORDER BY last_activity_at ASC
		LIMIT ?`,
		idleSince.Unix(),
		string(mediatypes.SessionCompleted), string(mediatypes.SessionAborted),
		limit)
	recordQuery("list_stale_sessions", start, err)
	if err != nil {
		return nil, fmt.Errorf("list stale sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale sessions: %w", err)
	}

	sessions := make([]*mediatypes.UploadSession, 0, len(ids))
	for _, id := range ids {
		s, err := d.GetUploadSession(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}
