package database

import (
	"errors"
	"strings"
	"testing"

	"github.com/lib/pq"

	"github.com/kapu/pulse-kit-go/internal/domain"
	apperrors "github.com/kapu/pulse-kit-go/pkg/errors"
)

func TestResolveSettingsDefaults(t *testing.T) {
	row := ResolveSettings(domain.Settings{})
	if row.Model != domain.ProviderOpenAI || row.Temperature != 0.7 || row.TrendSourcesMax != 1 {
		t.Fatalf("unexpected defaults %+v", row)
	}
	if row.WantTrends || row.WantAnalytics {
		t.Fatalf("booleans should default to false")
	}

	temp := 0.3
	trends := true
	sources := 2
	analytics := true
	row = ResolveSettings(domain.Settings{
		Model:           domain.ProviderXAI,
		Temperature:     &temp,
		WantTrends:      &trends,
		TrendSourcesMax: &sources,
		WantAnalytics:   &analytics,
	})
	if row.Model != domain.ProviderXAI || row.Temperature != 0.3 || !row.WantTrends || row.TrendSourcesMax != 2 || !row.WantAnalytics {
		t.Fatalf("explicit values not kept: %+v", row)
	}
}

func TestPostgresDSNEscapesCredentials(t *testing.T) {
	dsn := PostgresConfig{Host: "db", Port: 5432, User: "pulse", Password: "p@ss word", Database: "pulse"}.DSN()
	if !strings.HasPrefix(dsn, "postgres://pulse:p%40ss%20word@db:5432/pulse?") {
		t.Fatalf("unexpected dsn %s", dsn)
	}
	if !strings.Contains(dsn, "sslmode=disable") {
		t.Fatalf("expected default sslmode, got %s", dsn)
	}
}

func TestWrapNamesPostgresCode(t *testing.T) {
	err := wrap("insert event", &pq.Error{Code: "42P01", Message: "relation does not exist"})
	var serviceErr *apperrors.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected service error, got %v", err)
	}
	if !strings.Contains(err.Error(), "undefined_table") {
		t.Fatalf("expected pq code name in %q", err.Error())
	}
}
