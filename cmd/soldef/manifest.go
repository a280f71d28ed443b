package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"soldef/internal/driver"
)

const noSoldefTomlMessage = "no artifact given and no soldef.toml found\nplease specify the artifact explicitly, e.g.:\n  soldef lsp out/build-info/artifact.json"

type projectManifest struct {
	Path   string
	Root   string
	Config projectConfig
}

type projectConfig struct {
	Artifact artifactConfig `toml:"artifact"`
	Cache    cacheConfig    `toml:"cache"`
}

type artifactConfig struct {
	Path string `toml:"path"`
}

type cacheConfig struct {
	Disabled bool   `toml:"disabled"`
	Dir      string `toml:"dir"`
}

func findSoldefToml(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "soldef.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadProjectManifest(startDir string) (*projectManifest, bool, error) {
	manifestPath, ok, err := findSoldefToml(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadProjectConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &projectManifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

func loadProjectConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("artifact") {
		return projectConfig{}, fmt.Errorf("%s: missing [artifact]", path)
	}
	if !meta.IsDefined("artifact", "path") || strings.TrimSpace(cfg.Artifact.Path) == "" {
		return projectConfig{}, fmt.Errorf("%s: missing [artifact].path", path)
	}
	return cfg, nil
}

// resolveArtifactPath picks the artifact: positional argument first, then
// the --artifact flag, then the nearest soldef.toml.
func resolveArtifactPath(cmd *cobra.Command, args []string) (string, *projectManifest, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil, nil
	}
	if flagPath, err := cmd.Flags().GetString("artifact"); err == nil && flagPath != "" {
		return flagPath, nil, nil
	}
	manifest, ok, err := loadProjectManifest("")
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, errors.New(noSoldefTomlMessage)
	}
	artifactPath := filepath.FromSlash(manifest.Config.Artifact.Path)
	if !filepath.IsAbs(artifactPath) {
		artifactPath = filepath.Join(manifest.Root, artifactPath)
	}
	return artifactPath, manifest, nil
}

// openCache honors --no-cache and the manifest's [cache] section. A nil
// cache means every build walks the artifact from scratch.
func openCache(cmd *cobra.Command, manifest *projectManifest) *driver.DiskCache {
	if noCache, err := cmd.Flags().GetBool("no-cache"); err == nil && noCache {
		return nil
	}
	if manifest != nil && manifest.Config.Cache.Disabled {
		return nil
	}
	var (
		cache *driver.DiskCache
		err   error
	)
	if manifest != nil && manifest.Config.Cache.Dir != "" {
		cache, err = driver.OpenDiskCacheAt(manifest.Config.Cache.Dir)
	} else {
		cache, err = driver.OpenDiskCache("soldef")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "soldef: index cache unavailable: %v\n", err)
		return nil
	}
	return cache
}
