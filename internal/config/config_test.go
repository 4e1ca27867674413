package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("DB_SSLMODE", "disable")
	t.Setenv("REDIS_URL", "")
	t.Setenv("CLINIC_TIMEZONE", "UTC")
	t.Setenv("BILLING_TAX_RATE", "16")
	t.Setenv("SCHEDULE_LOCK_TTL", "10s")
	t.Setenv("MINIO_MAX_UPLOAD_BYTES", "1048576")
}

func TestLoadDevelopment(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PUBLIC_BASE_URL", "https://vet.example.com/api/v1/")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")
	t.Setenv("REMINDER_LEAD", "2h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Server.Address(); !strings.HasSuffix(got, ":9090") {
		t.Errorf("address = %q", got)
	}
	if cfg.Public.BaseURL != "https://vet.example.com/api/v1" {
		t.Errorf("base url = %q", cfg.Public.BaseURL)
	}
	if got := cfg.CORS.AllowedOrigins; len(got) != 2 || got[0] != "https://a.example.com" || got[1] != "https://b.example.com" {
		t.Errorf("origins = %v", got)
	}
	if cfg.Scheduling.ReminderLead != 2*time.Hour {
		t.Errorf("reminder lead = %s", cfg.Scheduling.ReminderLead)
	}
	if cfg.Redis.Enabled() {
		t.Error("redis enabled without a URL")
	}
	if cfg.Storage.MaxUploadBytes != 1<<20 {
		t.Errorf("max upload = %d", cfg.Storage.MaxUploadBytes)
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("SCHEDULE_LOCK_WAIT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Scheduling.LockWait != 3*time.Second {
		t.Errorf("lock wait = %s", cfg.Scheduling.LockWait)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want []string
	}{
		{
			name: "missing secret",
			env:  map[string]string{"JWT_SECRET": ""},
			want: []string{"JWT_SECRET is required"},
		},
		{
			name: "production hardening",
			env:  map[string]string{"APP_ENV": "production", "DB_PASSWORD": "pw"},
			want: []string{"at least 32 characters", "DB_SSLMODE=disable"},
		},
		{
			name: "staging needs a db password",
			env:  map[string]string{"APP_ENV": "staging"},
			want: []string{"DB_PASSWORD is required"},
		},
		{
			name: "bad tax rate and zone",
			env:  map[string]string{"BILLING_TAX_RATE": "120", "CLINIC_TIMEZONE": "Mars/Olympus"},
			want: []string{"BILLING_TAX_RATE", "CLINIC_TIMEZONE"},
		},
		{
			name: "non-positive limits",
			env:  map[string]string{"SCHEDULE_LOCK_TTL": "0s", "MINIO_MAX_UPLOAD_BYTES": "0"},
			want: []string{"SCHEDULE_LOCK_TTL", "MINIO_MAX_UPLOAD_BYTES"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected an error")
			}
			for _, w := range tc.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q does not mention %q", err, w)
				}
			}
		})
	}
}

func TestRedisAndMailEnabled(t *testing.T) {
	if !(RedisConfig{URL: "redis://cache:6379/0"}).Enabled() {
		t.Error("redis url not detected")
	}
	if (RedisConfig{URL: "   "}).Enabled() {
		t.Error("blank redis url treated as enabled")
	}
	if (MailConfig{Host: "smtp.example.com"}).Enabled() {
		t.Error("mail enabled without a sender address")
	}
	if (StorageConfig{Endpoint: "minio:9000", AccessKey: "k"}).Enabled() {
		t.Error("storage enabled without a secret")
	}
}
