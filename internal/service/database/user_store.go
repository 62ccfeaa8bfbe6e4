package database

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/pkg/errors"
)

const (
	defaultSettingsTemp        = 0.7
	defaultSettingsTrendSource = 1
)

// UserStore persists users, encrypted keys, settings and analytics events.
type UserStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewUserStore(postgres *PostgresService, logger *zap.Logger) *UserStore {
	return NewUserStoreWithDB(postgres.GetDB(), logger)
}

func NewUserStoreWithDB(db *sql.DB, logger *zap.Logger) *UserStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserStore{db: db, logger: logger}
}

// UpsertUser records a login.
func (s *UserStore) UpsertUser(ctx context.Context, user domain.User) error {
	query := `
		INSERT INTO users (id, handle, avatar_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET handle = EXCLUDED.handle,
		    avatar_url = EXCLUDED.avatar_url,
		    updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, user.ID, user.Handle, nullString(user.AvatarURL)); err != nil {
		return wrap("upsert user", err)
	}
	return nil
}

// SaveEncryptedKey stores one provider key, replacing any previous value.
func (s *UserStore) SaveEncryptedKey(ctx context.Context, userID string, provider domain.KeyProvider, encrypted string) error {
	query := `
		INSERT INTO keys (user_id, provider, enc_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, provider) DO UPDATE
		SET enc_key = EXCLUDED.enc_key,
		    updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, userID, string(provider), encrypted); err != nil {
		return wrap("save key", err)
	}
	return nil
}

// UpdateSettings upserts settings with defaults for omitted fields.
func (s *UserStore) UpdateSettings(ctx context.Context, userID string, settings domain.Settings) error {
	row := ResolveSettings(settings)
	query := `
		INSERT INTO settings (user_id, model, temp, want_trends, trend_sources_max, want_analytics)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET model = EXCLUDED.model,
		    temp = EXCLUDED.temp,
		    want_trends = EXCLUDED.want_trends,
		    trend_sources_max = EXCLUDED.trend_sources_max,
		    want_analytics = EXCLUDED.want_analytics,
		    updated_at = NOW()
	`
	_, err := s.db.ExecContext(ctx, query,
		userID, string(row.Model), row.Temperature, row.WantTrends, row.TrendSourcesMax, row.WantAnalytics)
	if err != nil {
		return wrap("update settings", err)
	}
	return nil
}

// GetAnalyticsOptIn returns false when the user has no settings row.
func (s *UserStore) GetAnalyticsOptIn(ctx context.Context, userID string) (bool, error) {
	var enabled bool
	err := s.db.QueryRowContext(ctx, `SELECT want_analytics FROM settings WHERE user_id = $1`, userID).Scan(&enabled)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrap("get analytics opt-in", err)
	}
	return enabled, nil
}

// InsertEvent appends an analytics event. A missing ID or timestamp is filled in.
func (s *UserStore) InsertEvent(ctx context.Context, event domain.AnalyticsEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	query := `
		INSERT INTO events (id, user_id, event, feature, duration_ms, trends_used, sources_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
	`
	var createdAt any
	if !event.CreatedAt.IsZero() {
		createdAt = event.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.UserID, string(event.Event), nullString(string(event.Feature)),
		event.DurationMS, event.TrendsUsed, event.SourcesUsed, createdAt)
	if err != nil {
		return wrap("insert event", err)
	}
	return nil
}

// SettingsRow is a settings record with defaults applied.
type SettingsRow struct {
	Model           domain.ProviderChoice
	Temperature     float64
	WantTrends      bool
	TrendSourcesMax int
	WantAnalytics   bool
}

// ResolveSettings applies the stored defaults to omitted settings fields.
func ResolveSettings(settings domain.Settings) SettingsRow {
	row := SettingsRow{
		Model:           settings.Model,
		Temperature:     defaultSettingsTemp,
		TrendSourcesMax: defaultSettingsTrendSource,
	}
	if row.Model == "" {
		row.Model = domain.ProviderOpenAI
	}
	if settings.Temperature != nil {
		row.Temperature = *settings.Temperature
	}
	if settings.WantTrends != nil {
		row.WantTrends = *settings.WantTrends
	}
	if settings.TrendSourcesMax != nil {
		row.TrendSourcesMax = *settings.TrendSourcesMax
	}
	if settings.WantAnalytics != nil {
		row.WantAnalytics = *settings.WantAnalytics
	}
	return row
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// wrap converts driver errors into ServiceErrors, naming the postgres error
// code when lib/pq reports one.
func wrap(operation string, err error) error {
	message := "database " + operation + " failed"
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		message += " (" + string(pqErr.Code) + " " + pqErr.Code.Name() + ")"
	}
	return errors.NewServiceError(message, "postgres", operation, err)
}
