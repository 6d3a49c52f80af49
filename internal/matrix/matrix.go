// Package matrix computes dense all-pairs shortest paths for the solver's
// distance oracle.
package matrix

import "math"

// Link seeds one directed distance into the matrix. Undirected edges are
// passed as two links.
type Link struct {
	From, To int
	Cost     float64
}

// Matrix holds shortest-path distances over 1-based vertex ids. It is
// immutable after New and safe to share across concurrent pipelines.
type Matrix struct {
	n int
	d [][]float64
}

// New builds the matrix for vertices 1..n from the direct links and closes
// it with Floyd-Warshall. Unreachable pairs stay at +Inf; the diagonal is
// zero. Later links overwrite earlier ones for the same pair.
func New(n int, links []Link) *Matrix {
	d := make([][]float64, n+1)
	for i := range d {
		d[i] = make([]float64, n+1)
		for j := range d[i] {
			d[i][j] = math.Inf(1)
		}
		d[i][i] = 0
	}
	for _, l := range links {
		d[l.From][l.To] = l.Cost
	}
	for k := 1; k <= n; k++ {
		for i := 1; i <= n; i++ {
			if math.IsInf(d[i][k], 1) {
				continue
			}
			for j := 1; j <= n; j++ {
				if via := d[i][k] + d[k][j]; via < d[i][j] {
					d[i][j] = via
				}
			}
		}
	}
	return &Matrix{n: n, d: d}
}

// Dist returns the shortest-path cost from u to v. Both must be in 1..N.
func (m *Matrix) Dist(u, v int) float64 { return m.d[u][v] }

// N is the number of vertices covered by the matrix.
func (m *Matrix) N() int { return m.n }
