// Package align implements global sequence-to-graph alignment over a
// partial order alignment graph. The algorithm generalizes affine-gap
// Needleman-Wunsch to DAGs: where the classic recurrence looks at the
// previous row, the graph recurrence looks at every predecessor of the
// current node in topological order.
//
// Three score matrices are filled per (node, query position) cell:
//
//	M: the residue sits on the node (match or substitution)
//	Y: the node is skipped by the sequence (deletion, a gap in the query)
//	X: the residue has no node (insertion, a gap in the graph)
//
// Ties are broken deterministically: matrix M over Y over X, then the
// predecessor with the lowest node identifier. Backpointers recorded
// during the sweep drive the traceback, so the reported pairs always
// reproduce the reported score.
package align

import (
	"math"
	"slices"

	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/poa"
)

// Alignment is the result of aligning one sequence against the graph: the
// optimal global score and one pair per alignment column, ordered by query
// position.
type Alignment struct {
	Pairs []poa.AlignedPair
	Score int
}

type matrixState uint8

const (
	stateM matrixState = iota // residue aligned to a node
	stateY                    // graph node skipped by the sequence
	stateX                    // residue inserted, no graph node
)

// negInf marks unreachable cells. Scores are kept in plain ints, so
// MinInt32 leaves ample room below any reachable score without risking
// overflow when penalties are subtracted from it during comparison.
const negInf = math.MinInt32

type backref struct {
	state matrixState
	rank  int32
}

// Align computes a maximum-score global alignment of the sequence against
// the graph: the alignment spans the start to the end sentinel and
// consumes every residue. The sequence is normalized with
// poa.NormalizeResidues first, and the returned pairs refer to positions
// in the normalized sequence.
//
// Time is O(len(sequence) x nodes x mean in-degree) and space is
// O(len(sequence) x nodes). The sweep is exact: no banding or pruning.
func Align(g *poa.Graph, sequence string, sc Scoring) (Alignment, error) {
	if err := sc.Validate(); err != nil {
		return Alignment{}, err
	}
	query, err := poa.NormalizeResidues(sequence)
	if err != nil {
		return Alignment{}, err
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return Alignment{}, err
	}

	s := newSolver(g, order, query, sc)
	s.sweep()
	return s.traceback()
}

// solver carries the dynamic programming state for one alignment. Matrices
// are flat slices indexed by rank*w + j, where rank is the node's position
// in the topological order and w is len(query)+1.
type solver struct {
	g     *poa.Graph
	sc    Scoring
	query string
	order []poa.NodeID
	w     int

	// rank of each node in order, indexed by NodeID
	rank []int32
	// predecessor ranks per rank, sorted by ascending node identifier so
	// equal-score candidates resolve to the lowest identifier
	preds [][]int32
	// node symbol per rank, 0 for the sentinels
	symbol []byte

	m, y, x  []int
	bpM, bpY []backref
	bpX      []matrixState
}

func newSolver(g *poa.Graph, order []poa.NodeID, query string, sc Scoring) *solver {
	n := len(order)
	w := len(query) + 1
	s := &solver{
		g:      g,
		sc:     sc,
		query:  query,
		order:  order,
		w:      w,
		rank:   make([]int32, g.NodeCount()),
		preds:  make([][]int32, n),
		symbol: make([]byte, n),
		m:      make([]int, n*w),
		y:      make([]int, n*w),
		x:      make([]int, n*w),
		bpM:    make([]backref, n*w),
		bpY:    make([]backref, n*w),
		bpX:    make([]matrixState, n*w),
	}
	for i, id := range order {
		s.rank[id] = int32(i)
	}
	for i, id := range order {
		node, _ := g.Node(id)
		s.symbol[i] = node.Symbol
		ids := slices.Clone(g.Predecessors(id))
		slices.Sort(ids)
		ranks := make([]int32, len(ids))
		for k, p := range ids {
			ranks[k] = s.rank[p]
		}
		s.preds[i] = ranks
	}
	for i := range s.m {
		s.m[i] = negInf
		s.y[i] = negInf
		s.x[i] = negInf
	}
	return s
}

func (s *solver) sweep() {
	m := len(s.query)

	// Rank 0 is always the start sentinel: an empty query prefix aligned
	// to it scores zero, and residues placed before the first graph node
	// accumulate as insertions along the start row.
	s.m[0] = 0
	for j := 1; j <= m; j++ {
		if v := s.m[j-1]; v != negInf {
			s.x[j] = v - s.sc.GapOpen
			s.bpX[j] = stateM
		}
		if v := s.x[j-1]; v != negInf && v-s.sc.GapExtend > s.x[j] {
			s.x[j] = v - s.sc.GapExtend
			s.bpX[j] = stateX
		}
	}

	end := s.g.End()
	for i := 1; i < len(s.order); i++ {
		if s.order[i] == end {
			continue
		}
		s.fill(i)
	}
}

// fill computes one node's row across all query positions. Predecessor
// rows are complete because nodes are visited in topological order, and
// within the row earlier query positions are complete because j ascends.
func (s *solver) fill(i int) {
	m := len(s.query)
	row := i * s.w
	sym := s.symbol[i]
	preds := s.preds[i]

	for j := 0; j <= m; j++ {
		cell := row + j

		// M: consume residue j on this node, arriving from any matrix at
		// any predecessor one query position back.
		if j >= 1 {
			sub := s.sc.substitution(s.query[j-1], sym)
			best := negInf
			var ref backref
			for _, ur := range preds {
				if v := s.m[int(ur)*s.w+j-1]; v != negInf && v > best {
					best, ref = v, backref{stateM, ur}
				}
			}
			for _, ur := range preds {
				if v := s.y[int(ur)*s.w+j-1]; v != negInf && v > best {
					best, ref = v, backref{stateY, ur}
				}
			}
			for _, ur := range preds {
				if v := s.x[int(ur)*s.w+j-1]; v != negInf && v > best {
					best, ref = v, backref{stateX, ur}
				}
			}
			if best != negInf {
				s.m[cell] = best + sub
				s.bpM[cell] = ref
			}
		}

		// Y: skip this node without consuming a residue, opening a fresh
		// deletion from M or extending one from Y at a predecessor.
		{
			best := negInf
			var ref backref
			for _, ur := range preds {
				if v := s.m[int(ur)*s.w+j]; v != negInf && v-s.sc.GapOpen > best {
					best, ref = v-s.sc.GapOpen, backref{stateM, ur}
				}
			}
			for _, ur := range preds {
				if v := s.y[int(ur)*s.w+j]; v != negInf && v-s.sc.GapExtend > best {
					best, ref = v-s.sc.GapExtend, backref{stateY, ur}
				}
			}
			if best != negInf {
				s.y[cell] = best
				s.bpY[cell] = ref
			}
		}

		// X: consume residue j with no node, opening a fresh insertion
		// from M or extending one from X on this same node.
		if j >= 1 {
			if v := s.m[cell-1]; v != negInf {
				s.x[cell] = v - s.sc.GapOpen
				s.bpX[cell] = stateM
			}
			if v := s.x[cell-1]; v != negInf && v-s.sc.GapExtend > s.x[cell] {
				s.x[cell] = v - s.sc.GapExtend
				s.bpX[cell] = stateX
			}
		}
	}
}

// traceback selects the best final cell among the end sentinel's
// predecessors at the last query position, then walks the backpointers to
// the origin, emitting one pair per alignment column.
func (s *solver) traceback() (Alignment, error) {
	m := len(s.query)
	endPreds := s.preds[s.rank[s.g.End()]]

	best := negInf
	var state matrixState
	var ri int32

	if len(endPreds) == 0 {
		// The graph holds no residue nodes yet, so the whole query
		// inserts into the implicit gap between the sentinels.
		best, state, ri = s.x[m], stateX, 0
	} else {
		for _, ur := range endPreds {
			if v := s.m[int(ur)*s.w+m]; v != negInf && v > best {
				best, state, ri = v, stateM, ur
			}
		}
		for _, ur := range endPreds {
			if v := s.y[int(ur)*s.w+m]; v != negInf && v > best {
				best, state, ri = v, stateY, ur
			}
		}
		for _, ur := range endPreds {
			if v := s.x[int(ur)*s.w+m]; v != negInf && v > best {
				best, state, ri = v, stateX, ur
			}
		}
	}
	if best == negInf {
		return Alignment{}, pkgerrors.New(pkgerrors.ErrCodeGraphCorrupted, "no global alignment path reaches the end sentinel")
	}

	pairs := make([]poa.AlignedPair, 0, m)
	j := m
	for !(state == stateM && ri == 0) {
		cell := int(ri)*s.w + j
		switch state {
		case stateM:
			pairs = append(pairs, poa.AlignedPair{Node: s.order[ri], Pos: j - 1})
			ref := s.bpM[cell]
			state, ri, j = ref.state, ref.rank, j-1
		case stateY:
			pairs = append(pairs, poa.AlignedPair{Node: s.order[ri], Pos: -1})
			ref := s.bpY[cell]
			state, ri = ref.state, ref.rank
		case stateX:
			pairs = append(pairs, poa.AlignedPair{Node: poa.InvalidNode, Pos: j - 1})
			state = s.bpX[cell]
			j--
		}
	}
	slices.Reverse(pairs)

	return Alignment{Pairs: pairs, Score: best}, nil
}
