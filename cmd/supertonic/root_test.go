package main

import (
	"testing"

	"github.com/example/supertonic-tts/internal/config"
)

func TestRequireConfig_NotLoaded(t *testing.T) {
	orig := activeCfg
	activeCfg = config.Config{}
	t.Cleanup(func() { activeCfg = orig })

	_, err := requireConfig()
	if err == nil {
		t.Fatal("requireConfig() before PersistentPreRunE runs should error")
	}
}

func TestRequireConfig_Loaded(t *testing.T) {
	orig := activeCfg
	activeCfg = config.Config{AssetRoot: "/tmp/assets"}
	t.Cleanup(func() { activeCfg = orig })

	cfg, err := requireConfig()
	if err != nil {
		t.Fatalf("requireConfig() error = %v", err)
	}
	if cfg.AssetRoot != "/tmp/assets" {
		t.Errorf("AssetRoot = %q; want /tmp/assets", cfg.AssetRoot)
	}
}

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	want := []string{"synth", "model", "serve", "health", "doctor"}
	for _, name := range want {
		found := false
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command is missing subcommand %q", name)
		}
	}
}

func TestSetupLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	// Must not panic on an unrecognized level string.
	setupLogger("not-a-level")
}
