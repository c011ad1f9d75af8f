package linear

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Vectorizer is the fitted TF-IDF stage.
type Vectorizer struct {
	Analyzer      string         `json:"analyzer"`
	Lowercase     bool           `json:"lowercase"`
	NgramRange    [2]int         `json:"ngram_range"`
	MinTokenRunes int            `json:"min_token_runes"`
	SublinearTF   bool           `json:"sublinear_tf"`
	Norm          string         `json:"norm"`
	Vocabulary    map[string]int `json:"vocabulary"`
	IDF           []float64      `json:"idf"`
}

// Selection is the fitted chi-squared mask, as ascending feature indices.
type Selection struct {
	Selected    []int `json:"selected"`
	NFeaturesIn int   `json:"n_features_in"`
}

// Projection is the fitted truncated SVD, one row per output dimension.
type Projection struct {
	Components [][]float64 `json:"components"`
}

// LinearModel is the one-vs-rest decision function.
type LinearModel struct {
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
	Classes   []int       `json:"classes,omitempty"`
}

func readArtifact(path string, dst any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip artifact %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return nil
}
