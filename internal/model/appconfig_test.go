package model

import "testing"

func TestDefaultAppConfigMatchesDefaultSettings(t *testing.T) {
	cfg := DefaultAppConfig()
	defaults := DefaultSettings()

	if cfg.DefaultKerfWidth != defaults.KerfWidth {
		t.Errorf("KerfWidth mismatch: config=%f settings=%f", cfg.DefaultKerfWidth, defaults.KerfWidth)
	}
	if cfg.DefaultEndTrim != defaults.EndTrim {
		t.Errorf("EndTrim mismatch: config=%f settings=%f", cfg.DefaultEndTrim, defaults.EndTrim)
	}
	if cfg.DefaultMinOffcut != defaults.MinOffcut {
		t.Errorf("MinOffcut mismatch: config=%f settings=%f", cfg.DefaultMinOffcut, defaults.MinOffcut)
	}
	if cfg.DefaultNoFitPolicy != defaults.NoFitPolicy {
		t.Errorf("NoFitPolicy mismatch: config=%s settings=%s", cfg.DefaultNoFitPolicy, defaults.NoFitPolicy)
	}
	if cfg.RecentFiles == nil {
		t.Error("RecentFiles should not be nil")
	}
}

func TestApplyToSettings(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.DefaultKerfWidth = 5.0
	cfg.DefaultMaxPoolSize = 40
	cfg.DefaultNoFitPolicy = NoFitAbandon

	s := DefaultSettings()
	cfg.ApplyToSettings(&s)

	if s.KerfWidth != 5.0 {
		t.Errorf("expected KerfWidth=5.0, got %f", s.KerfWidth)
	}
	if s.MaxPoolSize != 40 {
		t.Errorf("expected MaxPoolSize=40, got %d", s.MaxPoolSize)
	}
	if s.NoFitPolicy != NoFitAbandon {
		t.Errorf("expected NoFitPolicy=abandon, got %s", s.NoFitPolicy)
	}
}

func TestApplyToSettingsKeepsPolicyWhenUnset(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.DefaultNoFitPolicy = ""

	s := DefaultSettings()
	s.NoFitPolicy = NoFitAbandon
	cfg.ApplyToSettings(&s)

	if s.NoFitPolicy != NoFitAbandon {
		t.Errorf("expected policy to stay abandon, got %s", s.NoFitPolicy)
	}
}

func TestAddRecentFile(t *testing.T) {
	cfg := DefaultAppConfig()
	for i := 0; i < 12; i++ {
		cfg.AddRecentFile(string(rune('a' + i)))
	}
	cfg.AddRecentFile("c")

	if len(cfg.RecentFiles) != 10 {
		t.Fatalf("expected 10 recent files, got %d", len(cfg.RecentFiles))
	}
	if cfg.RecentFiles[0] != "c" || cfg.RecentFiles[1] != "l" {
		t.Errorf("unexpected order: %v", cfg.RecentFiles)
	}
	for _, f := range cfg.RecentFiles[1:] {
		if f == "c" {
			t.Error("duplicate entry for c")
		}
	}
}
