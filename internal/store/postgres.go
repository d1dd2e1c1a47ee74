// Package store provides Postgres-backed persistence for AttendanceRecords,
// CourtCards, and the supporting verification-code and audit-log tables.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proofmeet/attendance-engine/pkg/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("[Store] Connected to PostgreSQL for attendance persistence")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file.
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/store/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("[Store] Attendance schema initialized")
	return nil
}

// UpsertRecord writes the full state of an AttendanceRecord. Called by the
// attendance manager inside the same per-record lock that mutates the
// in-memory copy, so a crash mid-write never leaves the two views
// inconsistent for longer than one request.
func (s *PostgresStore) UpsertRecord(ctx context.Context, r *models.AttendanceRecord) error {
	timeline, err := json.Marshal(r.ActivityTimeline)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	const sql = `
		INSERT INTO attendance_records
			(id, participant_id, court_rep_id, meeting_id, meeting_name, meeting_program,
			 meeting_date, join_time, leave_time, total_duration_min, active_duration_min,
			 idle_duration_min, attendance_percent, status, is_valid, verification_method,
			 card_id, timeline, metadata, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19, NOW())
		ON CONFLICT (id) DO UPDATE SET
			leave_time = EXCLUDED.leave_time,
			total_duration_min = EXCLUDED.total_duration_min,
			active_duration_min = EXCLUDED.active_duration_min,
			idle_duration_min = EXCLUDED.idle_duration_min,
			attendance_percent = EXCLUDED.attendance_percent,
			status = EXCLUDED.status,
			is_valid = EXCLUDED.is_valid,
			verification_method = EXCLUDED.verification_method,
			card_id = EXCLUDED.card_id,
			timeline = EXCLUDED.timeline,
			metadata = EXCLUDED.metadata,
			updated_at = NOW();
	`
	_, err = s.pool.Exec(ctx, sql,
		r.ID, r.ParticipantID, r.CourtRepID, r.MeetingID, r.MeetingName, r.MeetingProgram,
		r.MeetingDate, r.JoinTime, nullableTime(r.LeaveTime), r.TotalDurationMin, r.ActiveDurationMin,
		r.IdleDurationMin, r.AttendancePercent, r.Status, r.IsValid, r.VerificationMethod,
		nullableString(r.CardID), timeline, metadata,
	)
	return err
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// SaveCard persists a freshly minted Court Card.
func (s *PostgresStore) SaveCard(ctx context.Context, c *models.CourtCard) error {
	violations, err := json.Marshal(c.Violations)
	if err != nil {
		return fmt.Errorf("marshal violations: %w", err)
	}
	signatures, err := json.Marshal(c.Signatures)
	if err != nil {
		return fmt.Errorf("marshal signatures: %w", err)
	}

	const sql = `
		INSERT INTO court_cards
			(id, attendance_record_id, card_number, card_hash, verification_url,
			 qr_code_data, validation_status, violations, confidence_level, signatures, generated_at,
			 participant_id, meeting_id, join_time, leave_time,
			 total_duration_min, active_duration_min, idle_duration_min, attendance_percent)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`
	_, err = s.pool.Exec(ctx, sql,
		c.ID, c.AttendanceRecordID, c.CardNumber, c.CardHash, c.VerificationURL,
		c.QRCodeData, c.ValidationStatus, violations, c.ConfidenceLevel, signatures, c.GeneratedAt,
		c.ParticipantID, c.MeetingID, c.JoinTime, c.LeaveTime,
		c.TotalDurationMin, c.ActiveDurationMin, c.IdleDurationMin, c.AttendancePercent,
	)
	return err
}

// GetCard reads a Court Card by ID.
func (s *PostgresStore) GetCard(ctx context.Context, cardID string) (*models.CourtCard, error) {
	const sql = `
		SELECT id, attendance_record_id, card_number, card_hash, verification_url,
		       qr_code_data, validation_status, violations, confidence_level, signatures, generated_at,
		       participant_id, meeting_id, join_time, leave_time,
		       total_duration_min, active_duration_min, idle_duration_min, attendance_percent
		FROM court_cards WHERE id = $1
	`
	row := s.pool.QueryRow(ctx, sql, cardID)
	var c models.CourtCard
	var violations, signatures []byte
	if err := row.Scan(&c.ID, &c.AttendanceRecordID, &c.CardNumber, &c.CardHash, &c.VerificationURL,
		&c.QRCodeData, &c.ValidationStatus, &violations, &c.ConfidenceLevel, &signatures, &c.GeneratedAt,
		&c.ParticipantID, &c.MeetingID, &c.JoinTime, &c.LeaveTime,
		&c.TotalDurationMin, &c.ActiveDurationMin, &c.IdleDurationMin, &c.AttendancePercent); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(violations, &c.Violations); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(signatures, &c.Signatures); err != nil {
		return nil, err
	}
	return &c, nil
}

// AppendSignature appends a signature to an already-minted card. Card-level
// fields are never touched, so cardHash is not recomputed.
func (s *PostgresStore) AppendSignature(ctx context.Context, cardID string, sig models.Signature) error {
	card, err := s.GetCard(ctx, cardID)
	if err != nil {
		return err
	}
	card.Signatures = append(card.Signatures, sig)
	signatures, err := json.Marshal(card.Signatures)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `UPDATE court_cards SET signatures = $1 WHERE id = $2`, signatures, cardID)
	return err
}

// NextCardSequence returns the next per-year sequence number for card
// numbering, atomically incrementing the counter row.
func (s *PostgresStore) NextCardSequence(ctx context.Context, year int) (int, error) {
	const sql = `
		INSERT INTO card_sequences (year, counter) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET counter = card_sequences.counter + 1
		RETURNING counter;
	`
	var n int
	err := s.pool.QueryRow(ctx, sql, year).Scan(&n)
	return n, err
}

// SaveHostSignatureRequest persists a newly minted one-use verification code.
func (s *PostgresStore) SaveHostSignatureRequest(ctx context.Context, req models.HostSignatureRequest) error {
	const sql = `
		INSERT INTO host_signature_requests (verification_code, attendance_record_id, host_email, created_at, used)
		VALUES ($1,$2,$3,$4,$5)
	`
	_, err := s.pool.Exec(ctx, sql, req.VerificationCode, req.AttendanceRecordID, nullableString(req.HostEmail), req.CreatedAt, req.Used)
	return err
}

// ConsumeHostSignatureRequest atomically marks a code used and returns the
// bound record ID, or models.ErrCodeInvalidOrUsed if the code is unknown or
// already consumed.
func (s *PostgresStore) ConsumeHostSignatureRequest(ctx context.Context, code string) (string, error) {
	const sql = `
		UPDATE host_signature_requests SET used = true
		WHERE verification_code = $1 AND used = false
		RETURNING attendance_record_id;
	`
	var recordID string
	err := s.pool.QueryRow(ctx, sql, code).Scan(&recordID)
	if err != nil {
		return "", models.ErrCodeInvalidOrUsed
	}
	return recordID, nil
}

// LogVerificationAccess records an access-audit entry for a public
// verification read — the only side effect that endpoint is permitted.
func (s *PostgresStore) LogVerificationAccess(ctx context.Context, cardID string, hashMatch bool, remoteAddr string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO verification_access_log (card_id, hash_match, remote_addr) VALUES ($1,$2,$3)`,
		cardID, hashMatch, remoteAddr)
	return err
}

// GetPool exposes the connection pool for components that need raw queries.
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
