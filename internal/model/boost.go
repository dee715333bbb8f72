package model

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
)

// NameGradientBoosted is the registry name of the gradient-boosted tree
// classifier.
const NameGradientBoosted = "xgb"

// BoostConfig configures second-order gradient boosting of regression trees
// on the logistic loss.
type BoostConfig struct {
	Rounds       int
	MaxDepth     int
	LearningRate float64
	// Subsample is the fraction of rows drawn for each tree.
	Subsample float64
	// ColSample is the fraction of features considered by each tree.
	ColSample float64
	// Lambda is the L2 penalty on leaf weights.
	Lambda float64
	// MinChildWeight is the minimum hessian sum on either side of a split.
	MinChildWeight float64
	Seed           uint64
}

// DefaultBoostConfig returns 300 rounds of depth-4 trees at learning rate
// 0.05 with 0.8 row and column sampling.
func DefaultBoostConfig() BoostConfig {
	return BoostConfig{
		Rounds:         300,
		MaxDepth:       4,
		LearningRate:   0.05,
		Subsample:      0.8,
		ColSample:      0.8,
		Lambda:         1,
		MinChildWeight: 1,
		Seed:           42,
	}
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) eval(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] < n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// GradientBoosted is an ensemble of regression trees fitted to the gradient
// and hessian of the logistic loss. Fitting is deterministic for a fixed Seed.
type GradientBoosted struct {
	cfg BoostConfig

	base      float64
	trees     []*treeNode
	nFeatures int
}

var _ Classifier = (*GradientBoosted)(nil)

// NewGradientBoosted creates an unfitted ensemble. Out-of-range settings fall
// back to DefaultBoostConfig values.
func NewGradientBoosted(cfg BoostConfig) *GradientBoosted {
	def := DefaultBoostConfig()
	if cfg.Rounds <= 0 {
		cfg.Rounds = def.Rounds
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.Subsample <= 0 || cfg.Subsample > 1 {
		cfg.Subsample = 1
	}
	if cfg.ColSample <= 0 || cfg.ColSample > 1 {
		cfg.ColSample = 1
	}
	if cfg.Lambda < 0 {
		cfg.Lambda = def.Lambda
	}
	if cfg.MinChildWeight < 0 {
		cfg.MinChildWeight = 0
	}
	return &GradientBoosted{cfg: cfg}
}

// Name returns "xgb".
func (m *GradientBoosted) Name() string { return NameGradientBoosted }

// Trees returns the number of fitted trees.
func (m *GradientBoosted) Trees() int { return len(m.trees) }

// Fit trains the ensemble, checking ctx between rounds.
func (m *GradientBoosted) Fit(ctx context.Context, x [][]float64, y []int) error {
	d, err := validate(x, y)
	if err != nil {
		return err
	}
	n := len(x)
	rng := rand.New(rand.NewPCG(m.cfg.Seed, m.cfg.Seed^0x9e3779b97f4a7c15))

	var pos float64
	for _, v := range y {
		pos += float64(v)
	}
	prior := pos / float64(n)
	base := math.Log(prior / (1 - prior))

	// Rows ordered by each feature, computed once and filtered per node.
	order := make([][]int, d)
	for j := 0; j < d; j++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]][j] < x[idx[b]][j] })
		order[j] = idx
	}

	margin := make([]float64, n)
	for i := range margin {
		margin[i] = base
	}
	grad := make([]float64, n)
	hess := make([]float64, n)
	member := make([]bool, n)

	trees := make([]*treeNode, 0, m.cfg.Rounds)
	b := &treeBuilder{cfg: m.cfg, x: x, order: order, grad: grad, hess: hess}

	for round := 0; round < m.cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range margin {
			p := sigmoid(margin[i])
			grad[i] = p - float64(y[i])
			hess[i] = p * (1 - p)
		}

		rows := sampleRows(rng, n, m.cfg.Subsample)
		b.features = sampleFeatures(rng, d, m.cfg.ColSample)
		for i := range member {
			member[i] = false
		}
		for _, i := range rows {
			member[i] = true
		}

		tree := b.grow(rows, member, 0)
		trees = append(trees, tree)
		for i, row := range x {
			margin[i] += tree.eval(row)
		}
	}

	m.base = base
	m.trees = trees
	m.nFeatures = d
	return nil
}

// PredictProba returns P(y=1) for every row of x.
func (m *GradientBoosted) PredictProba(x [][]float64) ([]float64, error) {
	if m.trees == nil {
		return nil, ErrNotFitted
	}
	if err := checkWidth(x, m.nFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, row := range x {
		z := m.base
		for _, t := range m.trees {
			z += t.eval(row)
		}
		out[i] = sigmoid(z)
	}
	return out, nil
}

// Predict returns 1 where PredictProba is at least 0.5.
func (m *GradientBoosted) Predict(x [][]float64) ([]int, error) {
	p, err := m.PredictProba(x)
	if err != nil {
		return nil, err
	}
	return threshold(p), nil
}

type treeBuilder struct {
	cfg      BoostConfig
	x        [][]float64
	order    [][]int
	grad     []float64
	hess     []float64
	features []int
}

// grow builds the subtree over rows; member marks the same rows for the
// presorted scans.
func (b *treeBuilder) grow(rows []int, member []bool, depth int) *treeNode {
	var g, h float64
	for _, i := range rows {
		g += b.grad[i]
		h += b.hess[i]
	}
	leaf := &treeNode{leaf: true, value: -b.cfg.LearningRate * g / (h + b.cfg.Lambda)}
	if depth >= b.cfg.MaxDepth || len(rows) < 2 {
		return leaf
	}

	feature, thr, ok := b.bestSplit(member, g, h)
	if !ok {
		return leaf
	}

	var left, right []int
	for _, i := range rows {
		if b.x[i][feature] < thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	for _, i := range right {
		member[i] = false
	}
	l := b.grow(left, member, depth+1)
	for _, i := range left {
		member[i] = false
	}
	for _, i := range right {
		member[i] = true
	}
	r := b.grow(right, member, depth+1)
	for _, i := range left {
		member[i] = true
	}

	return &treeNode{feature: feature, threshold: thr, left: l, right: r}
}

// bestSplit scans every sampled feature for the threshold with the largest
// positive loss reduction.
func (b *treeBuilder) bestSplit(member []bool, g, h float64) (feature int, thr float64, ok bool) {
	lambda := b.cfg.Lambda
	parent := g * g / (h + lambda)
	best := 0.0

	for _, j := range b.features {
		var gl, hl float64
		prev := -1
		for _, i := range b.order[j] {
			if !member[i] {
				continue
			}
			if prev >= 0 && b.x[i][j] > b.x[prev][j] {
				gr, hr := g-gl, h-hl
				if hl >= b.cfg.MinChildWeight && hr >= b.cfg.MinChildWeight {
					gain := gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - parent
					if gain > best {
						best = gain
						feature = j
						thr = (b.x[prev][j] + b.x[i][j]) / 2
						ok = true
					}
				}
			}
			gl += b.grad[i]
			hl += b.hess[i]
			prev = i
		}
	}
	return feature, thr, ok
}

// sampleRows draws each row with probability frac, keeping at least one.
func sampleRows(rng *rand.Rand, n int, frac float64) []int {
	rows := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if frac >= 1 || rng.Float64() < frac {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, rng.IntN(n))
	}
	return rows
}

// sampleFeatures returns ceil(d*frac) distinct feature indices in ascending
// order.
func sampleFeatures(rng *rand.Rand, d int, frac float64) []int {
	k := int(math.Ceil(float64(d) * frac))
	k = max(1, min(k, d))
	perm := rng.Perm(d)[:k]
	sort.Ints(perm)
	return perm
}
