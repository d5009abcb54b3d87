package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"office-action-orchestrator/internal/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return err
}

func scanJSON(row *sql.Row, target any) error {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, email, token, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sess.ID, sess.UserID, sess.Email, sess.Token, sess.CreatedAt)
	return err
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	var sess domain.Session
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, email, token, COALESCE(active_application_id, ''), COALESCE(active_docket_id, ''), created_at
		FROM sessions
		WHERE id = $1
	`, sessionID)
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.Email, &sess.Token, &sess.ActiveApplicationID, &sess.ActiveDocketID, &sess.CreatedAt); err != nil {
		return domain.Session{}, notFound(err)
	}
	return sess, nil
}

func (s *PostgresStore) SetActive(ctx context.Context, sessionID, applicationID, docketID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET active_application_id = NULLIF($2, ''), active_docket_id = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1
	`, sessionID, applicationID, docketID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	return nil
}

// PurgeUser removes every session and all cached workflow state of a user.
func (s *PostgresStore) PurgeUser(ctx context.Context, userID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"sessions", "applications", "document_states", "rejection_states", "finalization_status"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = $1`, userID); err != nil {
				return fmt.Errorf("purge %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) SaveApplications(ctx context.Context, userID string, apps []domain.Application) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, app := range apps {
			if err := upsertApplication(ctx, tx, userID, app); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertApplication(ctx context.Context, tx *sql.Tx, userID string, app domain.Application) error {
	payload, err := json.Marshal(app)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO applications (user_id, id, payload)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (user_id, id) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = NOW()
	`, userID, app.ID, string(payload))
	return err
}

func (s *PostgresStore) GetApplication(ctx context.Context, scope domain.Scope) (domain.Application, error) {
	var app domain.Application
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM applications WHERE user_id = $1 AND id = $2`, scope.UserID, scope.ApplicationID)
	if err := scanJSON(row, &app); err != nil {
		return domain.Application{}, notFound(err)
	}
	return app, nil
}

// UpdateApplication applies fn to the cached application under a row lock.
// It fails with domain.ErrNotFound when the application is not cached.
func (s *PostgresStore) UpdateApplication(ctx context.Context, scope domain.Scope, fn func(*domain.Application) error) (domain.Application, error) {
	var app domain.Application
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if app, err = lockApplication(ctx, tx, scope); err != nil {
			return err
		}
		if err := fn(&app); err != nil {
			return err
		}
		app.ID = scope.ApplicationID
		return upsertApplication(ctx, tx, scope.UserID, app)
	})
	if err != nil {
		return domain.Application{}, err
	}
	return app, nil
}

func lockApplication(ctx context.Context, tx *sql.Tx, scope domain.Scope) (domain.Application, error) {
	var app domain.Application
	row := tx.QueryRowContext(ctx, `SELECT payload FROM applications WHERE user_id = $1 AND id = $2 FOR UPDATE`, scope.UserID, scope.ApplicationID)
	if err := scanJSON(row, &app); err != nil {
		return domain.Application{}, notFound(err)
	}
	return app, nil
}

// PruneApplications drops cached applications, and their state, that are
// not in known.
func (s *PostgresStore) PruneApplications(ctx context.Context, userID string, known []string) error {
	if known == nil {
		known = []string{}
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM applications WHERE user_id = $1 AND NOT (id = ANY($2))`, userID, pq.Array(known)); err != nil {
			return err
		}
		for _, table := range []string{"document_states", "rejection_states", "finalization_status"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = $1 AND NOT (application_id = ANY($2))`, userID, pq.Array(known)); err != nil {
				return fmt.Errorf("prune %s: %w", table, err)
			}
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE sessions
			SET active_application_id = NULL, active_docket_id = NULL, updated_at = NOW()
			WHERE user_id = $1 AND active_application_id IS NOT NULL AND NOT (active_application_id = ANY($2))
		`, userID, pq.Array(known))
		return err
	})
}

func (s *PostgresStore) GetDocumentState(ctx context.Context, scope domain.Scope) (domain.ApplicationDocumentState, error) {
	state := domain.NewApplicationDocumentState(scope.ApplicationID)
	row := s.db.QueryRowContext(ctx, `SELECT state FROM document_states WHERE user_id = $1 AND application_id = $2`, scope.UserID, scope.ApplicationID)
	if err := scanJSON(row, &state); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.ApplicationDocumentState{}, err
	}
	return state, nil
}

// UpdateDocumentState creates the default record when absent, then applies
// fn under a row lock so concurrent artifact updates serialize.
func (s *PostgresStore) UpdateDocumentState(ctx context.Context, scope domain.Scope, fn func(*domain.ApplicationDocumentState) error) (domain.ApplicationDocumentState, error) {
	var state domain.ApplicationDocumentState
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if state, err = lockDocumentState(ctx, tx, scope); err != nil {
			return err
		}
		if err := fn(&state); err != nil {
			return err
		}
		return writeDocumentState(ctx, tx, scope, state)
	})
	if err != nil {
		return domain.ApplicationDocumentState{}, err
	}
	return state, nil
}

// SettleDocuments locks the application row before the document state, the
// same order PurgeUser and PruneApplications delete in, so a settlement
// either lands before a purge or finds nothing to update.
func (s *PostgresStore) SettleDocuments(ctx context.Context, scope domain.Scope, fn func(*domain.Application, *domain.ApplicationDocumentState) error) (domain.ApplicationDocumentState, error) {
	var state domain.ApplicationDocumentState
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		app, err := lockApplication(ctx, tx, scope)
		if err != nil {
			return err
		}
		if state, err = lockDocumentState(ctx, tx, scope); err != nil {
			return err
		}
		if err := fn(&app, &state); err != nil {
			return err
		}
		app.ID = scope.ApplicationID
		if err := upsertApplication(ctx, tx, scope.UserID, app); err != nil {
			return err
		}
		return writeDocumentState(ctx, tx, scope, state)
	})
	if err != nil {
		return domain.ApplicationDocumentState{}, err
	}
	return state, nil
}

func lockDocumentState(ctx context.Context, tx *sql.Tx, scope domain.Scope) (domain.ApplicationDocumentState, error) {
	initial, err := json.Marshal(domain.NewApplicationDocumentState(scope.ApplicationID))
	if err != nil {
		return domain.ApplicationDocumentState{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO document_states (user_id, application_id, state)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (user_id, application_id) DO NOTHING
	`, scope.UserID, scope.ApplicationID, string(initial)); err != nil {
		return domain.ApplicationDocumentState{}, err
	}

	var state domain.ApplicationDocumentState
	row := tx.QueryRowContext(ctx, `SELECT state FROM document_states WHERE user_id = $1 AND application_id = $2 FOR UPDATE`, scope.UserID, scope.ApplicationID)
	if err := scanJSON(row, &state); err != nil {
		return domain.ApplicationDocumentState{}, err
	}
	return state, nil
}

func writeDocumentState(ctx context.Context, tx *sql.Tx, scope domain.Scope, state domain.ApplicationDocumentState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE document_states SET state = $3::jsonb, updated_at = NOW()
		WHERE user_id = $1 AND application_id = $2
	`, scope.UserID, scope.ApplicationID, string(payload))
	return err
}


func (s *PostgresStore) GetRejectionState(ctx context.Context, scope domain.Scope, docketID string) (domain.RejectionAnalysisState, error) {
	state := domain.NewRejectionAnalysisState(scope.ApplicationID, docketID)
	row := s.db.QueryRowContext(ctx, `SELECT state FROM rejection_states WHERE user_id = $1 AND docket_id = $2`, scope.UserID, docketID)
	if err := scanJSON(row, &state); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.RejectionAnalysisState{}, err
	}
	return state, nil
}

func (s *PostgresStore) UpdateRejectionState(ctx context.Context, scope domain.Scope, docketID string, fn func(*domain.RejectionAnalysisState) error) (domain.RejectionAnalysisState, error) {
	var state domain.RejectionAnalysisState
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		state, err = lockRejectionState(ctx, tx, scope, docketID)
		if err != nil {
			return err
		}
		if err := fn(&state); err != nil {
			return err
		}
		return writeRejectionState(ctx, tx, scope, state)
	})
	if err != nil {
		return domain.RejectionAnalysisState{}, err
	}
	return state, nil
}

// ApplyFinalization finalizes strategy on the docket's analysis state and
// records it as the docket's finalized type in one transaction.
func (s *PostgresStore) ApplyFinalization(ctx context.Context, scope domain.Scope, docketID string, strategy domain.Strategy) (domain.RejectionAnalysisState, error) {
	var state domain.RejectionAnalysisState
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		state, err = lockRejectionState(ctx, tx, scope, docketID)
		if err != nil {
			return err
		}
		if err := state.Finalize(strategy); err != nil {
			return err
		}
		if err := writeRejectionState(ctx, tx, scope, state); err != nil {
			return err
		}

		var app domain.Application
		row := tx.QueryRowContext(ctx, `SELECT payload FROM applications WHERE user_id = $1 AND id = $2 FOR UPDATE`, scope.UserID, scope.ApplicationID)
		if err := scanJSON(row, &app); err != nil {
			return notFound(err)
		}
		docket, _ := app.Docket(docketID)
		if docket == nil {
			return fmt.Errorf("%w: docket %s", domain.ErrNotFound, docketID)
		}
		docket.FinalizedType = strategy
		return upsertApplication(ctx, tx, scope.UserID, app)
	})
	if err != nil {
		return domain.RejectionAnalysisState{}, err
	}
	return state, nil
}

func lockRejectionState(ctx context.Context, tx *sql.Tx, scope domain.Scope, docketID string) (domain.RejectionAnalysisState, error) {
	initial, err := json.Marshal(domain.NewRejectionAnalysisState(scope.ApplicationID, docketID))
	if err != nil {
		return domain.RejectionAnalysisState{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rejection_states (user_id, application_id, docket_id, state)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (user_id, docket_id) DO NOTHING
	`, scope.UserID, scope.ApplicationID, docketID, string(initial)); err != nil {
		return domain.RejectionAnalysisState{}, err
	}

	var state domain.RejectionAnalysisState
	row := tx.QueryRowContext(ctx, `SELECT state FROM rejection_states WHERE user_id = $1 AND docket_id = $2 FOR UPDATE`, scope.UserID, docketID)
	if err := scanJSON(row, &state); err != nil {
		return domain.RejectionAnalysisState{}, err
	}
	return state, nil
}

func writeRejectionState(ctx context.Context, tx *sql.Tx, scope domain.Scope, state domain.RejectionAnalysisState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE rejection_states SET state = $3::jsonb, updated_at = NOW()
		WHERE user_id = $1 AND docket_id = $2
	`, scope.UserID, state.DocketID, string(payload))
	return err
}

// SaveFinalizationStatus only replaces a status whose check started no later
// than this one, so a slow check cannot overwrite a newer answer.
func (s *PostgresStore) SaveFinalizationStatus(ctx context.Context, userID string, status domain.FinalizationStatus) (domain.FinalizationStatus, error) {
	payload, err := json.Marshal(status)
	if err != nil {
		return domain.FinalizationStatus{}, err
	}
	var stored domain.FinalizationStatus
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO finalization_status (user_id, application_id, status, started_at)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (user_id, application_id) DO UPDATE SET
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			updated_at = NOW()
		WHERE finalization_status.started_at <= EXCLUDED.started_at
		RETURNING status
	`, userID, status.ApplicationID, string(payload), status.StartedAt.UTC())
	err = scanJSON(row, &stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return s.GetFinalizationStatus(ctx, domain.Scope{UserID: userID, ApplicationID: status.ApplicationID})
	case err != nil:
		return domain.FinalizationStatus{}, err
	}
	return stored, nil
}

func (s *PostgresStore) GetFinalizationStatus(ctx context.Context, scope domain.Scope) (domain.FinalizationStatus, error) {
	status := domain.FinalizationStatus{ApplicationID: scope.ApplicationID, Rejections: map[string]domain.RejectionFinalization{}}
	row := s.db.QueryRowContext(ctx, `SELECT status FROM finalization_status WHERE user_id = $1 AND application_id = $2`, scope.UserID, scope.ApplicationID)
	if err := scanJSON(row, &status); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.FinalizationStatus{}, err
	}
	return status, nil
}

func (s *PostgresStore) CreateUpload(ctx context.Context, rec domain.UploadRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uploads (id, session_id, user_id, application_id, artifact, filename, object_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.SessionID, rec.UserID, rec.ApplicationID, rec.Artifact, rec.Filename, rec.ObjectKey, rec.Status)
	return err
}

func (s *PostgresStore) GetUpload(ctx context.Context, uploadID string) (domain.UploadRecord, error) {
	var rec domain.UploadRecord
	var reason sql.NullString
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, user_id, application_id, artifact, filename, object_key, status, failure_reason
		FROM uploads
		WHERE id = $1
	`, uploadID)
	if err := row.Scan(&rec.ID, &rec.SessionID, &rec.UserID, &rec.ApplicationID, &rec.Artifact, &rec.Filename, &rec.ObjectKey, &rec.Status, &reason); err != nil {
		return domain.UploadRecord{}, notFound(err)
	}
	if reason.Valid {
		rec.FailureReason = &reason.String
	}
	return rec, nil
}

func (s *PostgresStore) SetUploadStatus(ctx context.Context, uploadID string, status domain.UploadStatus, reason *string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE uploads
		SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1
	`, uploadID, status, reason)
	return err
}

func (s *PostgresStore) RecordDraft(ctx context.Context, rec domain.DraftRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, user_id, application_id, object_key, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.UserID, rec.ApplicationID, rec.ObjectKey, rec.SizeBytes, rec.CreatedAt)
	return err
}

func (s *PostgresStore) ListDrafts(ctx context.Context, scope domain.Scope) ([]domain.DraftRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, application_id, object_key, size_bytes, created_at
		FROM drafts
		WHERE user_id = $1 AND application_id = $2
		ORDER BY created_at DESC
	`, scope.UserID, scope.ApplicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.DraftRecord, 0)
	for rows.Next() {
		var rec domain.DraftRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ApplicationID, &rec.ObjectKey, &rec.SizeBytes, &rec.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *PostgresStore) InsertAudit(ctx context.Context, scope domain.Scope, state domain.AuditState, detail any) error {
	var payload []byte
	switch v := detail.(type) {
	case nil:
		payload = []byte("{}")
	case []byte:
		payload = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		payload = b
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (user_id, application_id, state, detail)
		VALUES ($1, $2, $3, $4::jsonb)
	`, scope.UserID, scope.ApplicationID, state, string(payload))
	return err
}
