package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindSoldefTomlWalksUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	manifest := filepath.Join(root, "soldef.toml")
	if err := os.WriteFile(manifest, []byte("[artifact]\npath = \"out/build.json\"\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	found, ok, err := findSoldefToml(nested)
	if err != nil {
		t.Fatalf("findSoldefToml: %v", err)
	}
	if !ok || found != manifest {
		t.Fatalf("found %q, %v; want %q", found, ok, manifest)
	}
}

func TestLoadProjectConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "soldef.toml")
	content := `
[artifact]
path = "out/build.json"

[cache]
disabled = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := loadProjectConfig(path)
	if err != nil {
		t.Fatalf("loadProjectConfig: %v", err)
	}
	if cfg.Artifact.Path != "out/build.json" {
		t.Errorf("artifact path = %q", cfg.Artifact.Path)
	}
	if !cfg.Cache.Disabled {
		t.Error("cache.disabled not honored")
	}
}

func TestLoadProjectConfigMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "soldef.toml")
	if err := os.WriteFile(path, []byte("[cache]\ndisabled = true\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadProjectConfig(path); err == nil {
		t.Fatal("expected error for missing [artifact]")
	}

	if err := os.WriteFile(path, []byte("[artifact]\npath = \"\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadProjectConfig(path); err == nil {
		t.Fatal("expected error for empty [artifact].path")
	}
}
