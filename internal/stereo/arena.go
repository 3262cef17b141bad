package stereo

import "fmt"

// Direction tags record which transition produced the minimum at each
// cost-matrix cell. They are the only state the backward traversal reads.
type Direction uint8

const (
	// DirNone marks cells the forward pass never filled (row 0 and
	// column 0). The traversal stops before reaching them.
	DirNone Direction = iota
	// DirMatch: left pixel i and right pixel j matched; both advance.
	DirMatch
	// DirSkipLeft: left pixel i is occluded; only i advances.
	DirSkipLeft
	// DirSkipRight: right pixel j is occluded; only j advances.
	DirSkipRight
)

func (d Direction) String() string {
	switch d {
	case DirNone:
		return "none"
	case DirMatch:
		return "match"
	case DirSkipLeft:
		return "skip-left"
	case DirSkipRight:
		return "skip-right"
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// InvariantError reports an internal consistency failure in the matcher:
// either the forward pass computed a minimum that matches none of its
// three candidates, or the backward traversal read a direction tag
// outside the valid set. Both indicate a numeric or logic defect, never
// bad input, so the whole computation aborts rather than emitting a
// partial map.
type InvariantError struct {
	Row  int // image row being processed
	I, J int // offending cell in the (N+1)x(N+1) matrices

	// Candidate costs at the cell, populated when the forward pass fails.
	Match, SkipLeft, SkipRight float64

	// Tag found at the cell, populated when the traversal fails.
	Tag Direction

	Reason string
}

func (e *InvariantError) Error() string {
	if e.Reason == "direction" {
		return fmt.Sprintf("stereo: invalid direction tag %s at row %d cell (%d,%d)", e.Tag, e.Row, e.I, e.J)
	}
	return fmt.Sprintf("stereo: no transition matched minimum at row %d cell (%d,%d): match=%g skipLeft=%g skipRight=%g",
		e.Row, e.I, e.J, e.Match, e.SkipLeft, e.SkipRight)
}

// rowArena holds the cost and direction matrices for one scanline. Both
// are flat (N+1)x(N+1) buffers indexed i*(N+1)+j and are reused across
// rows by the worker that owns the arena, so a full image pass allocates
// per worker, not per row.
type rowArena struct {
	n    int // row length the buffers are currently sized for
	cost []float64
	dirs []Direction

	// lastMatched counts the pairs emitted by the most recent trace;
	// maintained by the estimator's emit callback.
	lastMatched int64
}

func newRowArena(n int) *rowArena {
	a := &rowArena{}
	a.resize(n)
	return a
}

// resize grows the buffers for rows of length n and clears the direction
// matrix. The forward pass overwrites every cost cell it reads, so only
// the tags need explicit clearing.
func (a *rowArena) resize(n int) {
	a.n = n
	size := (n + 1) * (n + 1)
	if cap(a.cost) < size {
		a.cost = make([]float64, size)
		a.dirs = make([]Direction, size)
		return
	}
	a.cost = a.cost[:size]
	a.dirs = a.dirs[:size]
	for i := range a.dirs {
		a.dirs[i] = DirNone
	}
}

func (a *rowArena) idx(i, j int) int { return i*(a.n+1) + j }

// build fills the cost and direction matrices for one left/right row
// pair. cost[i][j] ends up as the minimum total cost of aligning the
// first i left pixels against the first j right pixels.
//
// On exact ties the transition is chosen in the fixed priority order
// skip-right, match, skip-left. The order is arbitrary but load-bearing:
// changing it changes which of several equal-cost paths the traversal
// reconstructs, and therefore the output maps.
func (a *rowArena) build(row int, left, right []uint8, p Params) error {
	n := len(left)
	if a.n != n {
		a.resize(n)
	}
	w := n + 1

	// Boundary: aligning a prefix against nothing costs one occlusion
	// penalty per skipped pixel.
	for i := 0; i <= n; i++ {
		a.cost[i*w] = float64(i) * p.OcclusionCost
		a.cost[i] = float64(i) * p.OcclusionCost
	}

	for i := 1; i <= n; i++ {
		z1 := float64(left[i-1])
		base := i * w
		prev := base - w
		for j := 1; j <= n; j++ {
			z2 := float64(right[j-1])
			d := z1 - z2
			matchCost := d * d / p.Variance

			match := a.cost[prev+j-1] + matchCost
			skipLeft := a.cost[prev+j] + p.OcclusionCost
			skipRight := a.cost[base+j-1] + p.OcclusionCost

			min := match
			if skipLeft < min {
				min = skipLeft
			}
			if skipRight < min {
				min = skipRight
			}
			a.cost[base+j] = min

			switch {
			case min == skipRight:
				a.dirs[base+j] = DirSkipRight
			case min == match:
				a.dirs[base+j] = DirMatch
			case min == skipLeft:
				a.dirs[base+j] = DirSkipLeft
			default:
				// Unreachable with exact arithmetic; a NaN leaking in
				// would land here.
				return &InvariantError{
					Row: row, I: i, J: j,
					Match: match, SkipLeft: skipLeft, SkipRight: skipRight,
					Reason: "minimum",
				}
			}
		}
	}
	return nil
}

// pathCost returns the total cost of the optimal alignment, cost[N][N].
// Valid only after build.
func (a *rowArena) pathCost() float64 {
	return a.cost[a.idx(a.n, a.n)]
}

// trace walks the direction matrix backward from (N,N), calling emit for
// every matched pair. Pairs arrive in strictly decreasing order of both
// coordinates. The walk stops as soon as either index reaches zero: any
// remaining prefix on the other side is implicitly occluded and receives
// no disparity write, so those pixels keep the zero background value.
func (a *rowArena) trace(row int, emit func(i, j int)) error {
	i, j := a.n, a.n
	for i != 0 && j != 0 {
		switch a.dirs[a.idx(i, j)] {
		case DirMatch:
			emit(i, j)
			i--
			j--
		case DirSkipLeft:
			i--
		case DirSkipRight:
			j--
		default:
			return &InvariantError{
				Row: row, I: i, J: j,
				Tag:    a.dirs[a.idx(i, j)],
				Reason: "direction",
			}
		}
	}
	return nil
}
