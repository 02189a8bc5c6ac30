//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimal = `
database:
  url: postgres://db
redis:
  url: localhost:6379
auth:
  jwt_secret: s3cret
payment:
  phonepe:
    merchant_id: MID
    salt_key: salt
    redirect_url: https://app/return
    callback_url: https://api/callback
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimal), false)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("unexpected http/log defaults: %+v %+v", cfg.HTTP, cfg.Log)
	}
	if cfg.Billing.MinAdvance != 500 || cfg.Payment.PendingExpiry != 24*time.Hour {
		t.Errorf("unexpected billing defaults: %+v pending=%v", cfg.Billing, cfg.Payment.PendingExpiry)
	}
	pp := cfg.Payment.PhonePe
	if pp.Timeout != 20*time.Second || pp.MaxRetries != 2 || pp.SaltIndex != "1" {
		t.Errorf("unexpected phonepe defaults: %+v", pp)
	}
	if cfg.Location().String() != "Asia/Kolkata" {
		t.Errorf("unexpected timezone %s", cfg.Location())
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://from-env")
	t.Setenv("PHONEPE_SALT_KEY", "env-salt")
	t.Setenv("BILLING_MIN_ADVANCE", "750")

	cfg, err := LoadConfig(writeConfig(t, minimal), false)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Database.URL != "postgres://from-env" || cfg.Payment.PhonePe.SaltKey != "env-salt" {
		t.Errorf("env did not override: %q %q", cfg.Database.URL, cfg.Payment.PhonePe.SaltKey)
	}
	if cfg.Billing.MinAdvance != 750 {
		t.Errorf("expected min advance 750, got %d", cfg.Billing.MinAdvance)
	}

	t.Setenv("BILLING_MIN_ADVANCE", "lots")
	if _, err := LoadConfig(writeConfig(t, minimal), false); err == nil {
		t.Error("expected an error for a non-numeric override")
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		dev     bool
		wantErr string
	}{
		{"missing database", strings.Replace(minimal, "postgres://db", "", 1), false, "database.url"},
		{"missing secret", strings.Replace(minimal, "s3cret", "", 1), false, "jwt_secret"},
		{"noop outside dev", minimal + "  provider: noop\n", false, "dev mode"},
		{"noop in dev", minimal + "  provider: noop\n", true, ""},
		{"unknown provider", minimal + "  provider: paypal\n", false, "unknown payment.provider"},
		{"bad timezone", minimal + "billing:\n  timezone: Mars/Olympus\n", false, "billing.timezone"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body), tc.dev)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
