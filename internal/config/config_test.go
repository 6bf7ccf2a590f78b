package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// resetForTest points the config at a temp dir and drops the cached instance
func resetForTest(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	instance = nil
	once = sync.Once{}
	return tmpDir
}

func mustProfile(t *testing.T, name string, scopes ...string) Profile {
	t.Helper()
	p, err := NewProfile(name, "https://example.awsapps.com/start", "us-east-1", scopes)
	if err != nil {
		t.Fatalf("Failed to create profile: %v", err)
	}
	return p
}

func TestConfigLoadSave(t *testing.T) {
	tmpDir := resetForTest(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}

	if cfg.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", cfg.Version)
	}

	if err := cfg.AddProfile(mustProfile(t, "work")); err != nil {
		t.Fatalf("Failed to add profile: %v", err)
	}

	if cfg.GetCurrentProfile() != "work" {
		t.Errorf("Expected first profile to become current, got %q", cfg.GetCurrentProfile())
	}

	configPath := filepath.Join(tmpDir, "ftl-sso", "config.json")
	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected config mode 0600, got %v", info.Mode().Perm())
	}

	// Reload to verify persistence
	instance = nil
	once = sync.Once{}

	cfg2, err := Load()
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}

	p, ok := cfg2.GetProfile("work")
	if !ok {
		t.Fatal("Profile not persisted")
	}
	if p.ConnectionID == "" {
		t.Error("Expected a connection ID")
	}
}

func TestNewProfile(t *testing.T) {
	tests := []struct {
		name     string
		profile  string
		startURL string
		region   string
		wantErr  bool
	}{
		{"valid", "work", "https://example.awsapps.com/start", "us-east-1", false},
		{"missing name", " ", "https://example.awsapps.com/start", "us-east-1", true},
		{"http URL", "work", "http://example.awsapps.com/start", "us-east-1", true},
		{"relative URL", "work", "example.awsapps.com/start", "us-east-1", true},
		{"missing region", "work", "https://example.awsapps.com/start", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProfile(tt.profile, tt.startURL, tt.region, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewProfile() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProfileScopes(t *testing.T) {
	p := mustProfile(t, "scoped", "sso:account:access, codewhisperer:completions", "")
	if len(p.Scopes) != 2 {
		t.Fatalf("Expected 2 scopes, got %v", p.Scopes)
	}

	s := p.Settings()
	if s.ConnectionID != p.ConnectionID || s.StartURL != p.StartURL || len(s.Scopes) != 2 {
		t.Errorf("Settings do not match profile: %+v", s)
	}

	legacy := mustProfile(t, "legacy")
	if legacy.Scopes != nil {
		t.Errorf("Expected no scopes, got %v", legacy.Scopes)
	}
}

func TestProfileManagement(t *testing.T) {
	resetForTest(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	work := mustProfile(t, "work")
	if err := cfg.AddProfile(work); err != nil {
		t.Fatalf("Failed to add profile: %v", err)
	}
	if err := cfg.AddProfile(mustProfile(t, "alpha")); err != nil {
		t.Fatalf("Failed to add profile: %v", err)
	}

	profiles := cfg.ListProfiles()
	if len(profiles) != 2 || profiles[0].Name != "alpha" {
		t.Errorf("Expected sorted profiles [alpha work], got %v", profiles)
	}

	// Replacing keeps the connection ID
	replacement := mustProfile(t, "work")
	replacement.Region = "eu-west-1"
	if err := cfg.AddProfile(replacement); err != nil {
		t.Fatalf("Failed to replace profile: %v", err)
	}
	got, _ := cfg.GetProfile("work")
	if got.ConnectionID != work.ConnectionID || got.Region != "eu-west-1" {
		t.Errorf("Unexpected replacement result: %+v", got)
	}

	if err := cfg.SetCurrentProfile("missing"); err == nil {
		t.Error("Expected error selecting a missing profile")
	}
	if err := cfg.SetCurrentProfile("alpha"); err != nil {
		t.Fatalf("Failed to select profile: %v", err)
	}

	resolved, err := cfg.ResolveProfile("")
	if err != nil || resolved.Name != "alpha" {
		t.Errorf("Expected current profile alpha, got %v (%v)", resolved.Name, err)
	}
	resolved, err = cfg.ResolveProfile("work")
	if err != nil || resolved.Name != "work" {
		t.Errorf("Expected named profile work, got %v (%v)", resolved.Name, err)
	}

	if err := cfg.RemoveProfile("alpha"); err != nil {
		t.Fatalf("Failed to remove profile: %v", err)
	}
	if cfg.GetCurrentProfile() != "" {
		t.Errorf("Expected current profile to be cleared, got %q", cfg.GetCurrentProfile())
	}
	if _, err := cfg.ResolveProfile(""); err == nil {
		t.Error("Expected error with no current profile")
	}
	if err := cfg.RemoveProfile("alpha"); err == nil {
		t.Error("Expected error removing a missing profile")
	}
}

func TestLoadAssignsMissingConnectionIDs(t *testing.T) {
	tmpDir := resetForTest(t)

	path := filepath.Join(tmpDir, "ftl-sso", "config.json")
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatal(err)
	}
	data := `{"version":"1.0","current_profile":"hand","profiles":{"hand":{"name":"hand","start_url":"https://x.awsapps.com/start","region":"us-east-1"}}}`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	p, _ := cfg.GetProfile("hand")
	if p.ConnectionID == "" {
		t.Error("Expected a generated connection ID")
	}
}

func TestReset(t *testing.T) {
	resetForTest(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.AddProfile(mustProfile(t, "work")); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Reset(); err != nil {
		t.Fatalf("Failed to reset: %v", err)
	}
	if len(cfg.ListProfiles()) != 0 {
		t.Error("Expected no profiles after reset")
	}
}

func TestConcurrency(t *testing.T) {
	resetForTest(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	done := make(chan bool, 10)

	for i := 0; i < 5; i++ {
		go func(id int) {
			p, _ := NewProfile(fmt.Sprintf("p%d", id), "https://example.awsapps.com/start", "us-east-1", nil)
			_ = cfg.AddProfile(p)
			done <- true
		}(i)
	}

	for i := 0; i < 5; i++ {
		go func() {
			_ = cfg.GetCurrentProfile()
			_ = cfg.ListProfiles()
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	if profiles := cfg.ListProfiles(); len(profiles) != 5 {
		t.Errorf("Expected 5 profiles after concurrent adds, got %d", len(profiles))
	}
}
