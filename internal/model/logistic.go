package model

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// NameLogistic is the registry name of the logistic regression classifier.
const NameLogistic = "logistic"

// LogisticConfig configures L2-regularised logistic regression.
type LogisticConfig struct {
	// C is the inverse regularisation strength.
	C       float64
	MaxIter int
	// Tol stops Newton iterations once every coefficient step is below it.
	Tol float64
	// Balanced weights each class by n / (2 * n_class).
	Balanced bool
}

// DefaultLogisticConfig returns C=1, 1000 iterations, and balanced class
// weights.
func DefaultLogisticConfig() LogisticConfig {
	return LogisticConfig{C: 1, MaxIter: 1000, Tol: 1e-6, Balanced: true}
}

// Logistic is a logistic regression classifier fitted by Newton's method on
// standardised features.
type Logistic struct {
	cfg LogisticConfig

	mean  []float64
	scale []float64
	// coef[0] is the intercept.
	coef []float64
}

var _ Classifier = (*Logistic)(nil)

// NewLogistic creates an unfitted logistic regression.
func NewLogistic(cfg LogisticConfig) *Logistic {
	if cfg.C <= 0 {
		cfg.C = 1
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 1000
	}
	if cfg.Tol <= 0 {
		cfg.Tol = 1e-6
	}
	return &Logistic{cfg: cfg}
}

// Name returns "logistic".
func (m *Logistic) Name() string { return NameLogistic }

// Coefficients returns the intercept followed by one weight per standardised
// feature, or nil before Fit.
func (m *Logistic) Coefficients() []float64 {
	if m.coef == nil {
		return nil
	}
	out := make([]float64, len(m.coef))
	copy(out, m.coef)
	return out
}

// Fit trains the model. It returns an error if the Newton system becomes
// singular or ctx is cancelled; a failed Fit leaves the previous fit intact.
func (m *Logistic) Fit(ctx context.Context, x [][]float64, y []int) error {
	d, err := validate(x, y)
	if err != nil {
		return err
	}
	n := len(x)

	mean, scale := standardiser(x, d)
	z := design(x, mean, scale)

	w := sampleWeights(y, m.cfg.Balanced)
	lambda := 1 / m.cfg.C
	p := d + 1
	beta := make([]float64, p)

	grad := make([]float64, p)
	hess := mat.NewSymDense(p, nil)
	var chol mat.Cholesky
	var step mat.VecDense

	for iter := 0; iter < m.cfg.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for j := range grad {
			grad[j] = 0
		}
		hess.Zero()
		for i := 0; i < n; i++ {
			row := z[i]
			pi := sigmoid(floats.Dot(row, beta))
			gi := w[i] * (pi - float64(y[i]))
			hi := w[i] * pi * (1 - pi)
			for j := 0; j < p; j++ {
				grad[j] += gi * row[j]
				for k := j; k < p; k++ {
					hess.SetSym(j, k, hess.At(j, k)+hi*row[j]*row[k])
				}
			}
		}
		// The intercept is not penalised; a tiny ridge keeps it solvable.
		hess.SetSym(0, 0, hess.At(0, 0)+1e-10)
		for j := 1; j < p; j++ {
			grad[j] += lambda * beta[j]
			hess.SetSym(j, j, hess.At(j, j)+lambda)
		}

		if ok := chol.Factorize(hess); !ok {
			return fmt.Errorf("logistic: hessian is not positive definite at iteration %d", iter)
		}
		if err := chol.SolveVecTo(&step, mat.NewVecDense(p, grad)); err != nil {
			return fmt.Errorf("logistic: solving newton step: %w", err)
		}

		maxStep := 0.0
		for j := 0; j < p; j++ {
			s := step.AtVec(j)
			beta[j] -= s
			maxStep = math.Max(maxStep, math.Abs(s))
		}
		if maxStep < m.cfg.Tol {
			break
		}
	}

	m.mean, m.scale, m.coef = mean, scale, beta
	return nil
}

// PredictProba returns P(y=1) for every row of x.
func (m *Logistic) PredictProba(x [][]float64) ([]float64, error) {
	if m.coef == nil {
		return nil, ErrNotFitted
	}
	if err := checkWidth(x, len(m.mean)); err != nil {
		return nil, err
	}
	z := design(x, m.mean, m.scale)
	out := make([]float64, len(z))
	for i, row := range z {
		out[i] = sigmoid(floats.Dot(row, m.coef))
	}
	return out, nil
}

// Predict returns 1 where PredictProba is at least 0.5.
func (m *Logistic) Predict(x [][]float64) ([]int, error) {
	p, err := m.PredictProba(x)
	if err != nil {
		return nil, err
	}
	return threshold(p), nil
}

// design standardises x and prepends an intercept column.
func design(x [][]float64, mean, scale []float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		z := make([]float64, len(row)+1)
		z[0] = 1
		for j, v := range row {
			z[j+1] = (v - mean[j]) / scale[j]
		}
		out[i] = z
	}
	return out
}

// standardiser returns per-column means and standard deviations; constant
// columns get a scale of 1.
func standardiser(x [][]float64, d int) (mean, scale []float64) {
	mean = make([]float64, d)
	scale = make([]float64, d)
	col := make([]float64, len(x))
	for j := 0; j < d; j++ {
		for i, row := range x {
			col[i] = row[j]
		}
		mu, sd := stat.PopMeanStdDev(col, nil)
		mean[j] = mu
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		scale[j] = sd
	}
	return mean, scale
}

// sampleWeights returns per-row weights, n/(2*n_class) when balanced.
func sampleWeights(y []int, balanced bool) []float64 {
	w := make([]float64, len(y))
	var counts [2]float64
	for _, v := range y {
		counts[v]++
	}
	for i, v := range y {
		w[i] = 1
		if balanced {
			w[i] = float64(len(y)) / (2 * counts[v])
		}
	}
	return w
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
