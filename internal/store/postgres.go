package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Error Groups ---

const groupColumns = `id, fingerprint, name, message, status, first_seen_at, last_seen_at, count, metadata, created_at, updated_at`

func (s *PostgresStore) UpsertErrorGroup(ctx context.Context, group *models.ErrorGroup, reopenResolved bool) (*models.ErrorGroup, bool, error) {
	// Single conditional upsert: two concurrent events for the same
	// fingerprint serialize on the unique index, never racing a
	// read-then-write. (xmax = 0) distinguishes insert from update.
	var result models.ErrorGroup
	var created bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO error_groups (id, fingerprint, name, message, status, first_seen_at, last_seen_at, count, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 'open', $5, $6, 1, $7, NOW(), NOW())
		 ON CONFLICT (fingerprint) DO UPDATE SET
		   count = error_groups.count + 1,
		   first_seen_at = LEAST(error_groups.first_seen_at, EXCLUDED.first_seen_at),
		   last_seen_at = GREATEST(error_groups.last_seen_at, EXCLUDED.last_seen_at),
		   status = CASE
		     WHEN $8::boolean AND error_groups.status = 'resolved' THEN 'open'
		     ELSE error_groups.status
		   END,
		   updated_at = NOW()
		 RETURNING `+groupColumns+`, (xmax = 0)`,
		group.ID, group.Fingerprint, group.Name, group.Message,
		group.FirstSeenAt, group.LastSeenAt, group.Metadata, reopenResolved,
	).Scan(&result.ID, &result.Fingerprint, &result.Name, &result.Message, &result.Status,
		&result.FirstSeenAt, &result.LastSeenAt, &result.Count, &result.Metadata,
		&result.CreatedAt, &result.UpdatedAt, &created)
	if err != nil {
		return nil, false, fmt.Errorf("upsert error group: %w", err)
	}
	return &result, created, nil
}

func (s *PostgresStore) GetErrorGroup(ctx context.Context, id uuid.UUID) (*models.ErrorGroup, error) {
	var g models.ErrorGroup
	err := s.pool.QueryRow(ctx,
		`SELECT `+groupColumns+` FROM error_groups WHERE id = $1`, id,
	).Scan(&g.ID, &g.Fingerprint, &g.Name, &g.Message, &g.Status,
		&g.FirstSeenAt, &g.LastSeenAt, &g.Count, &g.Metadata, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get error group: %w", err)
	}
	return &g, nil
}

func (s *PostgresStore) ListErrorGroups(ctx context.Context, filter GroupFilter) ([]*models.ErrorGroup, int, error) {
	// Build WHERE clause dynamically
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("last_seen_at >= $%d", argIdx))
		args = append(args, filter.Since)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM error_groups WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count error groups: %w", err)
	}

	// Normalize pagination
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT `+groupColumns+` FROM error_groups WHERE %s ORDER BY last_seen_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list error groups: %w", err)
	}
	defer rows.Close()

	groups, err := scanGroups(rows)
	if err != nil {
		return nil, 0, err
	}
	return groups, total, rows.Err()
}

// ListOpenGroups returns every open group, for rule evaluation snapshots.
func (s *PostgresStore) ListOpenGroups(ctx context.Context) ([]*models.ErrorGroup, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+groupColumns+` FROM error_groups WHERE status = 'open' ORDER BY last_seen_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list open groups: %w", err)
	}
	defer rows.Close()

	groups, err := scanGroups(rows)
	if err != nil {
		return nil, err
	}
	return groups, rows.Err()
}

func (s *PostgresStore) UpdateErrorGroupStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE error_groups SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update error group status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanGroups(rows pgx.Rows) ([]*models.ErrorGroup, error) {
	var groups []*models.ErrorGroup
	for rows.Next() {
		var g models.ErrorGroup
		if err := rows.Scan(&g.ID, &g.Fingerprint, &g.Name, &g.Message, &g.Status,
			&g.FirstSeenAt, &g.LastSeenAt, &g.Count, &g.Metadata, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan error group: %w", err)
		}
		groups = append(groups, &g)
	}
	return groups, nil
}

// --- Error Events ---

func (s *PostgresStore) CreateErrorEvent(ctx context.Context, event *models.ErrorEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO error_events (id, group_id, message, stack, severity, context, url, user_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, event.GroupID, event.Message, event.Stack, event.Severity,
		event.Context, event.URL, event.UserRef, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("create error event: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountGroupEvents(ctx context.Context, groupID uuid.UUID, severity string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM error_events WHERE group_id = $1 AND created_at >= $2`
	args := []any{groupID, since}
	if severity != "" {
		query += ` AND severity = $3`
		args = append(args, severity)
	}

	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count group events: %w", err)
	}
	return count, nil
}

// --- Alert Rules ---

const ruleColumns = `id, name, condition_type, threshold_count, time_window_minutes, channel, channel_webhook_url, active, created_at, updated_at`

func (s *PostgresStore) CreateAlertRule(ctx context.Context, rule *models.AlertRule) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO alert_rules (id, name, condition_type, threshold_count, time_window_minutes, channel, channel_webhook_url, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rule.ID, rule.Name, rule.ConditionType, rule.ThresholdCount, rule.TimeWindowMinutes,
		rule.Channel, rule.ChannelWebhookURL, rule.Active, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create alert rule: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAlertRule(ctx context.Context, id uuid.UUID) (*models.AlertRule, error) {
	var r models.AlertRule
	err := s.pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM alert_rules WHERE id = $1`, id,
	).Scan(&r.ID, &r.Name, &r.ConditionType, &r.ThresholdCount, &r.TimeWindowMinutes,
		&r.Channel, &r.ChannelWebhookURL, &r.Active, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert rule: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) ListAlertRules(ctx context.Context, activeOnly bool) ([]*models.AlertRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM alert_rules`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list alert rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.AlertRule
	for rows.Next() {
		var r models.AlertRule
		if err := rows.Scan(&r.ID, &r.Name, &r.ConditionType, &r.ThresholdCount, &r.TimeWindowMinutes,
			&r.Channel, &r.ChannelWebhookURL, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan alert rule: %w", err)
		}
		rules = append(rules, &r)
	}
	return rules, rows.Err()
}

func (s *PostgresStore) UpdateAlertRule(ctx context.Context, rule *models.AlertRule) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE alert_rules SET name = $2, condition_type = $3, threshold_count = $4,
		   time_window_minutes = $5, channel = $6, channel_webhook_url = $7, active = $8, updated_at = NOW()
		 WHERE id = $1`,
		rule.ID, rule.Name, rule.ConditionType, rule.ThresholdCount, rule.TimeWindowMinutes,
		rule.Channel, rule.ChannelWebhookURL, rule.Active)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update alert rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeactivateAlertRule(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE alert_rules SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate alert rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Alerts ---

func (s *PostgresStore) CreateAlert(ctx context.Context, alert *models.Alert) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO alerts (id, rule_id, group_id, created_at, notified, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		alert.ID, alert.RuleID, alert.GroupID, alert.CreatedAt, alert.Notified, alert.ErrorMessage)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasRecentAlert(ctx context.Context, ruleID, groupID uuid.UUID, since time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM alerts WHERE rule_id = $1 AND group_id = $2 AND created_at > $3
		 )`, ruleID, groupID, since,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recent alert: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]*models.Alert, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.RuleID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("rule_id = $%d", argIdx))
		args = append(args, filter.RuleID)
		argIdx++
	}
	if filter.GroupID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", argIdx))
		args = append(args, filter.GroupID)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM alerts WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT id, rule_id, group_id, created_at, notified, error_message
		 FROM alerts WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.RuleID, &a.GroupID, &a.CreatedAt, &a.Notified, &a.ErrorMessage); err != nil {
			return nil, 0, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, &a)
	}
	return alerts, total, rows.Err()
}

// --- Rule Marks ---

func (s *PostgresStore) ListUnseenGroups(ctx context.Context, ruleID uuid.UUID) ([]*models.ErrorGroup, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT g.id, g.fingerprint, g.name, g.message, g.status, g.first_seen_at, g.last_seen_at, g.count, g.metadata, g.created_at, g.updated_at
		 FROM error_groups g
		 LEFT JOIN rule_marks m ON m.group_id = g.id AND m.rule_id = $1
		 WHERE m.rule_id IS NULL
		 ORDER BY g.first_seen_at ASC`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("list unseen groups: %w", err)
	}
	defer rows.Close()

	groups, err := scanGroups(rows)
	if err != nil {
		return nil, err
	}
	return groups, rows.Err()
}

func (s *PostgresStore) MarkGroupSeen(ctx context.Context, ruleID, groupID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO rule_marks (rule_id, group_id, marked_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (rule_id, group_id) DO NOTHING`, ruleID, groupID)
	if err != nil {
		return false, fmt.Errorf("mark group seen: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
