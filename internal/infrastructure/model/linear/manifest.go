package linear

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest names the model version, its class order and the four artifact
// files. Artifact paths are relative to the manifest's directory.
type Manifest struct {
	Version    string   `yaml:"version"`
	Categories []string `yaml:"categories"`
	Artifacts  struct {
		TFIDF      string `yaml:"tfidf"`
		Chi2       string `yaml:"chi2"`
		SVD        string `yaml:"svd"`
		Classifier string `yaml:"classifier"`
	} `yaml:"artifacts"`
}

func ReadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse model manifest: %w", err)
	}
	if strings.TrimSpace(m.Version) == "" {
		return nil, fmt.Errorf("model manifest %s: version is required", path)
	}
	for name, file := range map[string]string{
		"tfidf":      m.Artifacts.TFIDF,
		"chi2":       m.Artifacts.Chi2,
		"svd":        m.Artifacts.SVD,
		"classifier": m.Artifacts.Classifier,
	} {
		if strings.TrimSpace(file) == "" {
			return nil, fmt.Errorf("model manifest %s: artifact %q is required", path, name)
		}
	}
	return &m, nil
}

// Load reads the manifest and its artifacts and returns a ready pipeline.
func Load(manifestPath string) (*Pipeline, error) {
	m, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(manifestPath)
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	var (
		vec  Vectorizer
		sel  Selection
		proj Projection
		clf  LinearModel
	)
	if err := readArtifact(resolve(m.Artifacts.TFIDF), &vec); err != nil {
		return nil, fmt.Errorf("load tfidf: %w", err)
	}
	if err := readArtifact(resolve(m.Artifacts.Chi2), &sel); err != nil {
		return nil, fmt.Errorf("load chi2: %w", err)
	}
	if err := readArtifact(resolve(m.Artifacts.SVD), &proj); err != nil {
		return nil, fmt.Errorf("load svd: %w", err)
	}
	if err := readArtifact(resolve(m.Artifacts.Classifier), &clf); err != nil {
		return nil, fmt.Errorf("load classifier: %w", err)
	}

	return New(m.Version, m.Categories, vec, sel, proj, clf)
}
