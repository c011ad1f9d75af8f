// Package lineartest writes a tiny but complete model for tests of packages
// that load a manifest from disk.
package lineartest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/khmer-text-classifier/internal/infrastructure/model/linear"
)

// Version is the manifest version WriteModel uses.
const Version = "v-fixture"

// WriteModel lays out model.yaml plus artifacts in dir and returns the
// manifest path. The vocabulary is English so assertions stay readable:
// "ball"/"goal" score Sport, "market"/"price" Economic, "phone" Technology.
func WriteModel(tb testing.TB, dir string) string {
	tb.Helper()

	artifacts := map[string]any{
		"tfidf.json": linear.Vectorizer{
			Analyzer:  "word",
			Lowercase: true,
			Norm:      "l2",
			Vocabulary: map[string]int{
				"ball": 0, "goal": 1, "market": 2, "price": 3, "phone": 4,
			},
			IDF: []float64{1, 1, 1, 1, 1},
		},
		"chi2.json": linear.Selection{Selected: []int{0, 1, 2, 3, 4}, NFeaturesIn: 5},
		"svd.json": linear.Projection{Components: [][]float64{
			{1, 1, 0, 0, 0},
			{0, 0, 1, 1, 0},
			{0, 0, 0, 0, 1},
		}},
		"classifier.json": linear.LinearModel{
			Coef: [][]float64{
				{0, 2, 0},
				{0.1, 0, 0},
				{0, 0.5, 0},
				{0, 0, 0},
				{3, 0, 0},
				{0, 0, 2.5},
			},
			Intercept: []float64{0, 0, 0, 0, 0, 0},
		},
	}
	for name, v := range artifacts {
		raw, err := json.Marshal(v)
		if err != nil {
			tb.Fatalf("marshal %s: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
			tb.Fatalf("write %s: %v", name, err)
		}
	}

	manifest := "version: " + Version + `
categories: [Economic, Entertainment, Politic, Life, Sport, Technology]
artifacts:
  tfidf: tfidf.json
  chi2: chi2.json
  svd: svd.json
  classifier: classifier.json
`
	path := filepath.Join(dir, "model.yaml")
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		tb.Fatalf("write manifest: %v", err)
	}
	return path
}
