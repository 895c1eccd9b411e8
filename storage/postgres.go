package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amirsamani13/househunt-hq-sub000/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// =============================================================================
// Listings (properties table)
// =============================================================================

const listingColumns = `id, external_id, source, title, description, price, bedrooms, bathrooms,
	surface_m2, address, city, postal_code, property_type, furnished, url,
	image_urls, features, first_seen_at, last_updated_at, is_active`

func scanListing(row pgx.Row) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(
		&l.ID, &l.ExternalID, &l.Source, &l.Title, &l.Description, &l.Price, &l.Bedrooms, &l.Bathrooms,
		&l.SurfaceM2, &l.Address, &l.City, &l.PostalCode, &l.PropertyType, &l.Furnished, &l.URL,
		&l.ImageURLs, &l.Features, &l.FirstSeenAt, &l.LastUpdatedAt, &l.IsActive,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// InsertListing stores a validated listing. First-seen data wins: a
// conflicting external_id leaves the existing row untouched and returns
// false, which the caller counts as a duplicate.
func (s *PostgresStore) InsertListing(ctx context.Context, l *models.Listing) (bool, error) {
	query := `
		INSERT INTO properties (
			id, external_id, source, title, description, price, bedrooms, bathrooms,
			surface_m2, address, city, postal_code, property_type, furnished, url,
			image_urls, features, first_seen_at, last_updated_at, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		l.ID, l.ExternalID, l.Source, l.Title, l.Description, l.Price, l.Bedrooms, l.Bathrooms,
		l.SurfaceM2, l.Address, l.City, l.PostalCode, l.PropertyType, l.Furnished, l.URL,
		l.ImageURLs, l.Features, l.FirstSeenAt, l.LastUpdatedAt, l.IsActive,
	).Scan(&l.ID)

	if err == pgx.ErrNoRows {
		return false, nil // duplicate external_id
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) GetListingByExternalID(ctx context.Context, externalID string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM properties WHERE external_id = $1`
	return scanListing(s.pool.QueryRow(ctx, query, externalID))
}

func (s *PostgresStore) GetListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM properties WHERE id = $1`
	return scanListing(s.pool.QueryRow(ctx, query, id))
}

// GetRecentActiveListings returns active listings first seen after the
// cutoff, newest first. This is the dispatcher's sweep window.
func (s *PostgresStore) GetRecentActiveListings(ctx context.Context, since time.Time) ([]models.Listing, error) {
	query := `SELECT ` + listingColumns + `
		FROM properties
		WHERE is_active = true AND first_seen_at >= $1
		ORDER BY first_seen_at DESC`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func (s *PostgresStore) DeactivateListing(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE properties SET is_active = false, last_updated_at = NOW() WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id)
	return err
}

func (s *PostgresStore) TouchListing(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE properties SET last_updated_at = NOW() WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id)
	return err
}

func (s *PostgresStore) DeleteListing(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	return err
}

// DeleteListingsBySource removes every listing for a source. Used by the
// QA agent to clean up synthetic data.
func (s *PostgresStore) DeleteListingsBySource(ctx context.Context, source string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM properties WHERE source = $1`, source)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// =============================================================================
// Alerts
// =============================================================================

const alertColumns = `id, user_id, name, min_price, max_price, min_bedrooms, max_bedrooms,
	min_surface_m2, cities, property_types, furnished, sources, postal_codes,
	keywords, is_active, created_at`

func scanAlert(row pgx.Row) (*models.Alert, error) {
	var a models.Alert
	err := row.Scan(
		&a.ID, &a.UserID, &a.Name, &a.MinPrice, &a.MaxPrice, &a.MinBedrooms, &a.MaxBedrooms,
		&a.MinSurfaceM2, &a.Cities, &a.PropertyTypes, &a.Furnished, &a.Sources, &a.PostalCodes,
		&a.Keywords, &a.IsActive, &a.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) GetActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM user_alerts WHERE is_active = true ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// InsertAlert exists for the QA agent's synthetic scenarios; real alerts
// are created by the web app.
func (s *PostgresStore) InsertAlert(ctx context.Context, a *models.Alert) error {
	query := `
		INSERT INTO user_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.UserID, a.Name, a.MinPrice, a.MaxPrice, a.MinBedrooms, a.MaxBedrooms,
		a.MinSurfaceM2, a.Cities, a.PropertyTypes, a.Furnished, a.Sources, a.PostalCodes,
		a.Keywords, a.IsActive, a.CreatedAt,
	)
	return err
}

func (s *PostgresStore) DeleteAlertsForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_alerts WHERE user_id = $1`, userID)
	return err
}

// =============================================================================
// Profiles (read-mostly collaborator; writes only for QA synthetic users)
// =============================================================================

func (s *PostgresStore) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	query := `SELECT user_id, email, phone, notifications_paused FROM profiles WHERE user_id = $1`

	var p models.Profile
	err := s.pool.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.Email, &p.Phone, &p.NotificationsPaused)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) InsertProfile(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, email, phone, notifications_paused)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			notifications_paused = EXCLUDED.notifications_paused`

	_, err := s.pool.Exec(ctx, query, p.UserID, p.Email, p.Phone, p.NotificationsPaused)
	return err
}

func (s *PostgresStore) DeleteProfile(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	return err
}

// =============================================================================
// Notifications
// =============================================================================

// ClaimNotification atomically reserves the (user, listing) pair. The
// unique constraint on (user_id, property_id) makes concurrent dispatch
// cycles race-safe: exactly one caller gets true and may send.
func (s *PostgresStore) ClaimNotification(ctx context.Context, n *models.NotificationRecord) (bool, error) {
	query := `
		INSERT INTO notifications (id, user_id, property_id, alert_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, property_id) DO NOTHING
		RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		n.ID, n.UserID, n.ListingID, n.AlertID, n.Status, n.CreatedAt,
	).Scan(&n.ID)

	if err == pgx.ErrNoRows {
		return false, nil // pair already claimed
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateNotificationResult records the single post-send update. The
// claim row is never deleted: a failed send stays failed.
func (s *PostgresStore) UpdateNotificationResult(ctx context.Context, n *models.NotificationRecord) error {
	query := `
		UPDATE notifications SET
			status = $2, delivery_error = $3, quality_score = $4, quality_issues = $5, sent_at = $6
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query,
		n.ID, n.Status, n.DeliveryError, n.QualityScore, n.QualityIssues, n.SentAt,
	)
	return err
}

func (s *PostgresStore) GetNotificationByPair(ctx context.Context, userID, listingID uuid.UUID) (*models.NotificationRecord, error) {
	query := `
		SELECT id, user_id, property_id, alert_id, status, delivery_error, quality_score, quality_issues, created_at, sent_at
		FROM notifications WHERE user_id = $1 AND property_id = $2`

	var n models.NotificationRecord
	err := s.pool.QueryRow(ctx, query, userID, listingID).Scan(
		&n.ID, &n.UserID, &n.ListingID, &n.AlertID, &n.Status, &n.DeliveryError,
		&n.QualityScore, &n.QualityIssues, &n.CreatedAt, &n.SentAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *PostgresStore) DeleteNotificationsForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	return err
}

// =============================================================================
// Scraper health
// =============================================================================

const healthColumns = `source, current_url, backup_urls, current_selectors, backup_selectors,
	header_profile, consecutive_failures, consecutive_zero_runs, is_in_repair_mode,
	repair_attempts, last_successful_run_at, last_failed_run_at, last_qa_check_at,
	status, updated_at`

func scanHealth(row pgx.Row) (*models.ScraperHealth, error) {
	var h models.ScraperHealth
	err := row.Scan(
		&h.Source, &h.CurrentURL, &h.BackupURLs, &h.CurrentSelectors, &h.BackupSelectors,
		&h.HeaderProfile, &h.ConsecutiveFailures, &h.ConsecutiveZeroRuns, &h.IsInRepairMode,
		&h.RepairAttempts, &h.LastSuccessfulRunAt, &h.LastFailedRunAt, &h.LastQACheckAt,
		&h.Status, &h.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *PostgresStore) GetScraperHealth(ctx context.Context, source string) (*models.ScraperHealth, error) {
	query := `SELECT ` + healthColumns + ` FROM scraper_health WHERE source = $1`
	return scanHealth(s.pool.QueryRow(ctx, query, source))
}

func (s *PostgresStore) ListScraperHealth(ctx context.Context) ([]models.ScraperHealth, error) {
	query := `SELECT ` + healthColumns + ` FROM scraper_health ORDER BY source`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []models.ScraperHealth
	for rows.Next() {
		h, err := scanHealth(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *h)
	}
	return states, rows.Err()
}

func (s *PostgresStore) UpsertScraperHealth(ctx context.Context, h *models.ScraperHealth) error {
	query := `
		INSERT INTO scraper_health (` + healthColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (source) DO UPDATE SET
			current_url = EXCLUDED.current_url,
			backup_urls = EXCLUDED.backup_urls,
			current_selectors = EXCLUDED.current_selectors,
			backup_selectors = EXCLUDED.backup_selectors,
			header_profile = EXCLUDED.header_profile,
			consecutive_failures = EXCLUDED.consecutive_failures,
			consecutive_zero_runs = EXCLUDED.consecutive_zero_runs,
			is_in_repair_mode = EXCLUDED.is_in_repair_mode,
			repair_attempts = EXCLUDED.repair_attempts,
			last_successful_run_at = EXCLUDED.last_successful_run_at,
			last_failed_run_at = EXCLUDED.last_failed_run_at,
			last_qa_check_at = EXCLUDED.last_qa_check_at,
			status = EXCLUDED.status,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		h.Source, h.CurrentURL, h.BackupURLs, h.CurrentSelectors, h.BackupSelectors,
		h.HeaderProfile, h.ConsecutiveFailures, h.ConsecutiveZeroRuns, h.IsInRepairMode,
		h.RepairAttempts, h.LastSuccessfulRunAt, h.LastFailedRunAt, h.LastQACheckAt,
		h.Status, h.UpdatedAt,
	)
	return err
}

// =============================================================================
// Circuit breaker (persisted singleton, id = 1)
// =============================================================================

func (s *PostgresStore) GetCircuitBreaker(ctx context.Context) (*models.CircuitBreakerState, error) {
	query := `
		SELECT id, consecutive_failures, last_failure_at, paused_until, max_failures, pause_minutes, updated_at
		FROM circuit_breaker_state WHERE id = 1`

	var cb models.CircuitBreakerState
	err := s.pool.QueryRow(ctx, query).Scan(
		&cb.ID, &cb.ConsecutiveFailures, &cb.LastFailureAt, &cb.PausedUntil,
		&cb.MaxFailures, &cb.PauseMinutes, &cb.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cb, nil
}

func (s *PostgresStore) UpsertCircuitBreaker(ctx context.Context, cb *models.CircuitBreakerState) error {
	query := `
		INSERT INTO circuit_breaker_state (id, consecutive_failures, last_failure_at, paused_until, max_failures, pause_minutes, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			consecutive_failures = EXCLUDED.consecutive_failures,
			last_failure_at = EXCLUDED.last_failure_at,
			paused_until = EXCLUDED.paused_until,
			max_failures = EXCLUDED.max_failures,
			pause_minutes = EXCLUDED.pause_minutes,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		cb.ConsecutiveFailures, cb.LastFailureAt, cb.PausedUntil, cb.MaxFailures, cb.PauseMinutes,
	)
	return err
}

// =============================================================================
// QA test runs and results
// =============================================================================

func (s *PostgresStore) CreateTestRun(ctx context.Context, run *models.TestRun) error {
	query := `
		INSERT INTO qa_test_runs (id, started_at, status, issues_found)
		VALUES ($1, $2, $3, $4)`

	_, err := s.pool.Exec(ctx, query, run.ID, run.StartedAt, run.Status, run.IssuesFound)
	return err
}

func (s *PostgresStore) UpdateTestRun(ctx context.Context, run *models.TestRun) error {
	query := `
		UPDATE qa_test_runs SET completed_at = $2, status = $3, issues_found = $4
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, run.ID, run.CompletedAt, run.Status, run.IssuesFound)
	return err
}

func (s *PostgresStore) InsertTestResult(ctx context.Context, r *models.TestResult) error {
	query := `
		INSERT INTO qa_test_results (run_id, test_name, passed, score, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		r.RunID, r.TestName, r.Passed, r.Score, r.Details, r.CreatedAt,
	).Scan(&r.ID)
}

// DeleteTestRunsBefore is the QA retention sweep.
func (s *PostgresStore) DeleteTestRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM qa_test_results WHERE run_id IN (SELECT id FROM qa_test_runs WHERE started_at < $1)`,
		cutoff); err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM qa_test_runs WHERE started_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// =============================================================================
// Admin alerts
// =============================================================================

func (s *PostgresStore) InsertAdminAlert(ctx context.Context, a *models.AdminAlert) error {
	query := `
		INSERT INTO qa_admin_alerts (id, alert_type, severity, message, details, sent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.AlertType, a.Severity, a.Message, a.Details, a.Sent, a.CreatedAt,
	)
	return err
}

// GetRecentAdminAlertByType returns the newest alert of a type created
// after the cutoff; used for 24h dedup.
func (s *PostgresStore) GetRecentAdminAlertByType(ctx context.Context, alertType string, since time.Time) (*models.AdminAlert, error) {
	query := `
		SELECT id, alert_type, severity, message, details, sent, created_at
		FROM qa_admin_alerts
		WHERE alert_type = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1`

	var a models.AdminAlert
	err := s.pool.QueryRow(ctx, query, alertType, since).Scan(
		&a.ID, &a.AlertType, &a.Severity, &a.Message, &a.Details, &a.Sent, &a.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) GetAdminAlertByID(ctx context.Context, id uuid.UUID) (*models.AdminAlert, error) {
	query := `
		SELECT id, alert_type, severity, message, details, sent, created_at
		FROM qa_admin_alerts WHERE id = $1`

	var a models.AdminAlert
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.AlertType, &a.Severity, &a.Message, &a.Details, &a.Sent, &a.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetLatestAdminAlert returns the most recently raised alert, sent or
// not.
func (s *PostgresStore) GetLatestAdminAlert(ctx context.Context) (*models.AdminAlert, error) {
	query := `
		SELECT id, alert_type, severity, message, details, sent, created_at
		FROM qa_admin_alerts
		ORDER BY created_at DESC
		LIMIT 1`

	var a models.AdminAlert
	err := s.pool.QueryRow(ctx, query).Scan(
		&a.ID, &a.AlertType, &a.Severity, &a.Message, &a.Details, &a.Sent, &a.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) GetUnsentAdminAlerts(ctx context.Context, limit int) ([]models.AdminAlert, error) {
	query := `
		SELECT id, alert_type, severity, message, details, sent, created_at
		FROM qa_admin_alerts
		WHERE sent = false
		ORDER BY created_at
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.AdminAlert
	for rows.Next() {
		var a models.AdminAlert
		if err := rows.Scan(&a.ID, &a.AlertType, &a.Severity, &a.Message, &a.Details, &a.Sent, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *PostgresStore) MarkAdminAlertSent(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE qa_admin_alerts SET sent = true WHERE id = $1`, id)
	return err
}
