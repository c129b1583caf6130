package recommend

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/brimstore/recsys/pkg/models"
)

// InteractionMatrix is a sparse user-by-product view of aggregated
// interaction strengths. Rows and columns are indexed by external
// identifiers; index tables are assigned at build time and never reused
// across rebuilds, so a rebuilt matrix is always swapped in as a whole.
type InteractionMatrix struct {
	users    []int64
	products []int64
	userIdx  map[int64]int
	prodIdx  map[int64]int

	rows map[int64]map[int64]float64
	cols map[int64]map[int64]float64
}

// BuildInteractionMatrix aggregates raw interaction records into the sparse
// matrix. Multiple records for one (user, product) pair sum into a single
// strength. Index order is sorted by identifier so builds are deterministic.
func BuildInteractionMatrix(interactions []models.Interaction) *InteractionMatrix {
	m := &InteractionMatrix{
		userIdx: make(map[int64]int),
		prodIdx: make(map[int64]int),
		rows:    make(map[int64]map[int64]float64),
		cols:    make(map[int64]map[int64]float64),
	}

	for _, in := range interactions {
		if in.Strength <= 0 {
			continue
		}
		row := m.rows[in.UserID]
		if row == nil {
			row = make(map[int64]float64)
			m.rows[in.UserID] = row
		}
		row[in.ProductID] += in.Strength

		col := m.cols[in.ProductID]
		if col == nil {
			col = make(map[int64]float64)
			m.cols[in.ProductID] = col
		}
		col[in.UserID] += in.Strength
	}

	m.users = make([]int64, 0, len(m.rows))
	for userID := range m.rows {
		m.users = append(m.users, userID)
	}
	sort.Slice(m.users, func(i, j int) bool { return m.users[i] < m.users[j] })
	for i, userID := range m.users {
		m.userIdx[userID] = i
	}

	m.products = make([]int64, 0, len(m.cols))
	for productID := range m.cols {
		m.products = append(m.products, productID)
	}
	sort.Slice(m.products, func(i, j int) bool { return m.products[i] < m.products[j] })
	for i, productID := range m.products {
		m.prodIdx[productID] = i
	}

	return m
}

// Row returns the user's interaction strengths keyed by product. An unknown
// user yields an empty view, not an error; that emptiness is the cold-start
// signal. The returned map is shared and must not be mutated.
func (m *InteractionMatrix) Row(userID int64) map[int64]float64 {
	return m.rows[userID]
}

// Column returns the product's interaction strengths keyed by user, with
// the same empty-view semantics as Row.
func (m *InteractionMatrix) Column(productID int64) map[int64]float64 {
	return m.cols[productID]
}

// Users returns all user identifiers in index order.
func (m *InteractionMatrix) Users() []int64 { return m.users }

// Products returns all product identifiers in index order.
func (m *InteractionMatrix) Products() []int64 { return m.products }

// InteractionCount is the number of distinct products the user touched.
func (m *InteractionMatrix) InteractionCount(userID int64) int {
	return len(m.rows[userID])
}

// Dims returns (users, products).
func (m *InteractionMatrix) Dims() (int, int) {
	return len(m.users), len(m.products)
}

// Dense materializes the matrix for factorization. Missing entries are
// imputed as 0.0; see MatrixFactorizationEngine for why that policy is
// acceptable here.
func (m *InteractionMatrix) Dense() *mat.Dense {
	nu, np := m.Dims()
	if nu == 0 || np == 0 {
		return nil
	}
	dense := mat.NewDense(nu, np, nil)
	for userID, row := range m.rows {
		i := m.userIdx[userID]
		for productID, strength := range row {
			dense.Set(i, m.prodIdx[productID], strength)
		}
	}
	return dense
}

// UserIndex reports the dense row index of a user.
func (m *InteractionMatrix) UserIndex(userID int64) (int, bool) {
	i, ok := m.userIdx[userID]
	return i, ok
}

// ProductIndex reports the dense column index of a product.
func (m *InteractionMatrix) ProductIndex(productID int64) (int, bool) {
	i, ok := m.prodIdx[productID]
	return i, ok
}
