// Package linear implements the pretrained text classification pipeline:
// TF-IDF, chi-squared feature selection, truncated SVD and a linear decision
// function. A Pipeline is immutable after construction and safe for
// concurrent use.
package linear

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

type Pipeline struct {
	version string
	names   []string

	vec       Vectorizer
	minN      int
	maxN      int
	position  []int
	selected  int
	proj      [][]float64
	coef      [][]float64
	intercept []float64
	classIDs  []int
}

type feature struct {
	index int
	value float64
}

// New validates artifact shapes and assembles a pipeline. categories gives
// the class order used at training time and must match the fixed category
// enumeration.
func New(version string, categories []string, vec Vectorizer, sel Selection, proj Projection, clf LinearModel) (*Pipeline, error) {
	if err := checkCategories(categories); err != nil {
		return nil, err
	}

	nFeatures := len(vec.IDF)
	if nFeatures == 0 {
		return nil, errors.New("tfidf: idf is empty")
	}
	for term, idx := range vec.Vocabulary {
		if idx < 0 || idx >= nFeatures {
			return nil, fmt.Errorf("tfidf: term %q index %d outside [0,%d)", term, idx, nFeatures)
		}
	}
	switch vec.Analyzer {
	case "", analyzerWord:
		vec.Analyzer = analyzerWord
	case analyzerCharWB:
	default:
		return nil, fmt.Errorf("tfidf: unsupported analyzer %q", vec.Analyzer)
	}
	switch vec.Norm {
	case "", "l2", "none":
	default:
		return nil, fmt.Errorf("tfidf: unsupported norm %q", vec.Norm)
	}
	minN, maxN := vec.NgramRange[0], vec.NgramRange[1]
	if minN == 0 && maxN == 0 {
		minN, maxN = 1, 1
	}
	if minN < 1 || maxN < minN {
		return nil, fmt.Errorf("tfidf: invalid ngram range [%d,%d]", minN, maxN)
	}
	if vec.MinTokenRunes == 0 {
		vec.MinTokenRunes = 2
	}

	if sel.NFeaturesIn != 0 && sel.NFeaturesIn != nFeatures {
		return nil, fmt.Errorf("chi2: expects %d input features, tfidf produces %d", sel.NFeaturesIn, nFeatures)
	}
	if len(sel.Selected) == 0 {
		return nil, errors.New("chi2: no selected features")
	}
	position := make([]int, nFeatures)
	for i := range position {
		position[i] = -1
	}
	for pos, idx := range sel.Selected {
		if idx < 0 || idx >= nFeatures {
			return nil, fmt.Errorf("chi2: selected index %d outside [0,%d)", idx, nFeatures)
		}
		if pos > 0 && idx <= sel.Selected[pos-1] {
			return nil, fmt.Errorf("chi2: selected indices must be strictly ascending at %d", pos)
		}
		position[idx] = pos
	}

	k := len(proj.Components)
	if k == 0 {
		return nil, errors.New("svd: no components")
	}
	for i, row := range proj.Components {
		if len(row) != len(sel.Selected) {
			return nil, fmt.Errorf("svd: component %d has %d columns, want %d", i, len(row), len(sel.Selected))
		}
	}

	classes := domain.CategoryCount()
	if len(clf.Coef) != classes {
		return nil, fmt.Errorf("classifier: %d coefficient rows, want %d", len(clf.Coef), classes)
	}
	if len(clf.Intercept) != classes {
		return nil, fmt.Errorf("classifier: %d intercepts, want %d", len(clf.Intercept), classes)
	}
	for i, row := range clf.Coef {
		if len(row) != k {
			return nil, fmt.Errorf("classifier: coefficient row %d has %d columns, want %d", i, len(row), k)
		}
	}
	classIDs, err := resolveClassIDs(clf.Classes, classes)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		version:   version,
		names:     slices.Clone(categories),
		vec:       vec,
		minN:      minN,
		maxN:      maxN,
		position:  position,
		selected:  len(sel.Selected),
		proj:      proj.Components,
		coef:      clf.Coef,
		intercept: clf.Intercept,
		classIDs:  classIDs,
	}, nil
}

func checkCategories(names []string) error {
	if len(names) != domain.CategoryCount() {
		return fmt.Errorf("model categories: got %d, want %d", len(names), domain.CategoryCount())
	}
	for i, name := range names {
		if want := domain.CategoryName(i + 1); name != want {
			return fmt.Errorf("model categories: position %d is %q, want %q", i, name, want)
		}
	}
	return nil
}

func resolveClassIDs(classes []int, n int) ([]int, error) {
	out := make([]int, n)
	if len(classes) == 0 {
		for i := range out {
			out[i] = i + 1
		}
		return out, nil
	}
	if len(classes) != n {
		return nil, fmt.Errorf("classifier: %d class labels, want %d", len(classes), n)
	}
	seen := make(map[int]bool, n)
	for i, id := range classes {
		if !domain.ValidCategoryID(id) || seen[id] {
			return nil, fmt.Errorf("classifier: invalid or duplicate class label %d", id)
		}
		seen[id] = true
		out[i] = id
	}
	return out, nil
}

func (p *Pipeline) Version() string {
	return p.version
}

// Predict returns the top three categories by decision score, highest
// first. Equal scores keep ascending category order.
func (p *Pipeline) Predict(text string) ([]domain.Prediction, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "predict", errors.New("text is empty"))
	}

	scores := p.DecisionFunction(text)

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		default:
			return p.classIDs[a] - p.classIDs[b]
		}
	})

	top := min(domain.TopK, len(order))
	out := make([]domain.Prediction, 0, top)
	for _, idx := range order[:top] {
		id := p.classIDs[idx]
		out = append(out, domain.Prediction{
			CategoryID:   id,
			CategoryName: domain.CategoryName(id),
			Score:        scores[idx],
		})
	}
	return out, nil
}

// DecisionFunction returns one score per class in training order.
func (p *Pipeline) DecisionFunction(text string) []float64 {
	z := p.project(p.selectFeatures(p.transform(text)))
	scores := make([]float64, len(p.coef))
	for c, row := range p.coef {
		s := p.intercept[c]
		for j, w := range row {
			s += w * z[j]
		}
		scores[c] = s
	}
	return scores
}

func (p *Pipeline) analyze(text string) []string {
	text = normalizeText(text, p.vec.Lowercase)
	if p.vec.Analyzer == analyzerCharWB {
		return charWBNgrams(text, p.minN, p.maxN)
	}
	return wordNgrams(tokenizeWords(text, p.vec.MinTokenRunes), p.minN, p.maxN)
}

func (p *Pipeline) transform(text string) []feature {
	counts := make(map[int]float64, 64)
	for _, term := range p.analyze(text) {
		if idx, ok := p.vec.Vocabulary[term]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	out := make([]feature, 0, len(counts))
	for idx, tf := range counts {
		if p.vec.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		out = append(out, feature{index: idx, value: tf * p.vec.IDF[idx]})
	}
	// Summed in index order so the norm is bitwise stable across calls.
	slices.SortFunc(out, func(a, b feature) int { return a.index - b.index })
	if p.vec.Norm == "none" {
		return out
	}
	var sumSq float64
	for _, f := range out {
		sumSq += f.value * f.value
	}
	if sumSq > 0 {
		n := math.Sqrt(sumSq)
		for i := range out {
			out[i].value /= n
		}
	}
	return out
}

func (p *Pipeline) selectFeatures(x []feature) []feature {
	out := x[:0:0]
	for _, f := range x {
		if pos := p.position[f.index]; pos >= 0 {
			out = append(out, feature{index: pos, value: f.value})
		}
	}
	return out
}

func (p *Pipeline) project(x []feature) []float64 {
	z := make([]float64, len(p.proj))
	for k, row := range p.proj {
		var s float64
		for _, f := range x {
			s += row[f.index] * f.value
		}
		z[k] = s
	}
	return z
}
