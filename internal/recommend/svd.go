package recommend

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/brimstore/recsys/internal/config"
)

// LatentFactors is one immutable decomposition of the interaction matrix:
// user and product factor matrices truncated to rank k, plus the singular
// values. The index tables are captured from the matrix the model was
// trained on, so a swapped-in model is always internally consistent.
type LatentFactors struct {
	userIdx  map[int64]int
	prodIdx  map[int64]int
	users    *mat.Dense // users x k
	products *mat.Dense // products x k
	singular []float64
	rank     int

	TrainedAt time.Time
}

// Rank is the effective number of latent dimensions.
func (f *LatentFactors) Rank() int { return f.rank }

// MatrixFactorizationEngine predicts affinity as the dot product of latent
// user and product vectors. Training is a full recomputation triggered by
// the external scheduler; the active model is hot-swapped atomically so
// concurrent readers see either the whole old model or the whole new one.
type MatrixFactorizationEngine struct {
	factors atomic.Pointer[LatentFactors]
	logger  *logrus.Logger
}

func NewMatrixFactorizationEngine(logger *logrus.Logger) *MatrixFactorizationEngine {
	return &MatrixFactorizationEngine{logger: logger}
}

// Train computes a rank-k truncated SVD of the interaction matrix.
//
// Imputation policy: missing entries are filled with 0.0 before
// factorization, without mean-centering. With non-negative implicit
// strengths this biases predictions toward 0 for unobserved pairs, which is
// the conservative choice for ranking; absence from the training matrix
// entirely is still reported as "no prediction" by Predict, never as 0.
// Regularization damps each singular value s to s*s/(s+reg), shrinking
// small noisy components harder than dominant ones.
//
// Train only computes; the result becomes visible to readers when the
// caller passes it to Swap.
func (e *MatrixFactorizationEngine) Train(ctx context.Context, m *InteractionMatrix, cfg *config.SVDConfig) (*LatentFactors, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nu, np := m.Dims()
	if nu == 0 || np == 0 {
		return nil, fmt.Errorf("train: empty interaction matrix")
	}

	k := cfg.Factors
	if k <= 0 {
		k = 50
	}
	if maxRank := min(nu, np); k > maxRank {
		k = maxRank
	}

	start := time.Now()

	var svd mat.SVD
	if ok := svd.Factorize(m.Dense(), mat.SVDThin); !ok {
		return nil, fmt.Errorf("train: factorization did not converge")
	}

	// The SVD itself is not interruptible; honor cancellation before the
	// factor matrices are assembled.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	damped := make([]float64, k)
	for j := 0; j < k; j++ {
		s := values[j]
		damped[j] = s * s / (s + cfg.Regularization)
	}

	users := mat.NewDense(nu, k, nil)
	products := mat.NewDense(np, k, nil)
	for j := 0; j < k; j++ {
		scale := math.Sqrt(damped[j])
		for i := 0; i < nu; i++ {
			users.Set(i, j, u.At(i, j)*scale)
		}
		for i := 0; i < np; i++ {
			products.Set(i, j, v.At(i, j)*scale)
		}
	}

	factors := &LatentFactors{
		userIdx:   make(map[int64]int, nu),
		prodIdx:   make(map[int64]int, np),
		users:     users,
		products:  products,
		singular:  values[:k],
		rank:      k,
		TrainedAt: time.Now(),
	}
	for i, userID := range m.Users() {
		factors.userIdx[userID] = i
	}
	for i, productID := range m.Products() {
		factors.prodIdx[productID] = i
	}

	e.logger.WithFields(logrus.Fields{
		"users":    nu,
		"products": np,
		"rank":     k,
		"duration": time.Since(start),
	}).Info("Latent factor model trained")

	return factors, nil
}

// Swap atomically publishes a trained model. Readers in flight keep the
// model they already loaded; new reads see the new one.
func (e *MatrixFactorizationEngine) Swap(factors *LatentFactors) {
	e.factors.Store(factors)
}

// Factors returns the active model, or nil before the first swap.
func (e *MatrixFactorizationEngine) Factors() *LatentFactors {
	return e.factors.Load()
}

// Predict is the latent dot product, clipped below at 0 since implicit
// strengths are non-negative. The second return is false when the user or
// product was absent from the training matrix: true cold start, distinct
// from a zero-imputed missing value.
func (e *MatrixFactorizationEngine) Predict(userID, productID int64) (float64, bool) {
	f := e.factors.Load()
	if f == nil {
		return 0, false
	}
	ui, ok := f.userIdx[userID]
	if !ok {
		return 0, false
	}
	pi, ok := f.prodIdx[productID]
	if !ok {
		return 0, false
	}
	score := mat.Dot(f.users.RowView(ui), f.products.RowView(pi))
	if score < 0 {
		score = 0
	}
	return score, true
}

// ScoreCandidates predicts for every trained product the user has not
// interacted with. A nil map is the engine's cold-start "no prediction".
func (e *MatrixFactorizationEngine) ScoreCandidates(userID int64, seen map[int64]float64) map[int64]float64 {
	f := e.factors.Load()
	if f == nil {
		return nil
	}
	ui, ok := f.userIdx[userID]
	if !ok {
		return nil
	}

	userVec := f.users.RowView(ui)
	scores := make(map[int64]float64, len(f.prodIdx))
	for productID, pi := range f.prodIdx {
		if _, interacted := seen[productID]; interacted {
			continue
		}
		score := mat.Dot(userVec, f.products.RowView(pi))
		if score < 0 {
			score = 0
		}
		scores[productID] = score
	}
	return scores
}
