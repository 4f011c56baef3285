package core

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseOwnerIDs(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want []int64
	}{
		{"", nil},
		{"123", []int64{123}},
		{"1, 2,3", []int64{1, 2, 3}},
		{"1,abc,3", []int64{1, 3}},
		{",,", nil},
		{" 42 ", []int64{42}},
	}
	for _, tc := range cases {
		if got := ParseOwnerIDs(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseOwnerIDs(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	m := NewConfigManager(filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Path != "./relaybot.db" {
		t.Errorf("storage path = %q", cfg.Storage.Path)
	}
	if cfg.Telegram.PollTimeout != "10s" {
		t.Errorf("poll timeout = %q", cfg.Telegram.PollTimeout)
	}
	if !cfg.Maintenance.Enabled {
		t.Error("maintenance disabled by default")
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv(EnvBotToken, "tok-from-env")
	t.Setenv(EnvOwnerIDs, "7, 9")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "telegram:\n  token: tok-from-file\n  owner_user_ids: [1]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := NewConfigManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "tok-from-env" {
		t.Errorf("token = %q, want env override", cfg.Telegram.Token)
	}
	if !reflect.DeepEqual(cfg.Telegram.OwnerUserIDs, []int64{7, 9}) {
		t.Errorf("owners = %v, want [7 9]", cfg.Telegram.OwnerUserIDs)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("telegrm:\n  token: x\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := NewConfigManager(path).Load(); err == nil {
		t.Fatal("misspelled section accepted")
	}
}

func TestNewAppRequiresToken(t *testing.T) {
	t.Setenv(EnvBotToken, "")
	if _, err := NewApp(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("NewApp without a token succeeded")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := defaultConfig()
	bad.Telegram.PollTimeout = "not-a-duration"
	if err := bad.Validate(); err == nil {
		t.Error("bad poll_timeout accepted")
	}

	bad = defaultConfig()
	bad.Storage.Path = "  "
	if err := bad.Validate(); err == nil {
		t.Error("blank storage path accepted")
	}

	bad = defaultConfig()
	bad.Broadcast.RatePerSec = -1
	if err := bad.Validate(); err == nil {
		t.Error("negative rate accepted")
	}
}
