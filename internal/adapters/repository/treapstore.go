package repository

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/orbitwatch/internal/domain/anomaly"
	"github.com/okian/orbitwatch/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: risk DESC, then NORAD id ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the board from
// most to least anomalous. Node sizes make Rank O(log n).

// riskScale controls fixed-point scaling from float64 so equal risks
// compare equal regardless of float noise below 1e-9.
const riskScale = 1_000_000_000

type riskFP int64

func toFixedPoint(x float64) riskFP {
	return riskFP(math.Round(x * riskScale))
}

type node struct {
	id    int
	risk  riskFP
	prio  int64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aRisk, aID) should appear before (bRisk, bID).
func less(aRisk riskFP, aID int, bRisk riskFP, bID int) bool {
	if aRisk != bRisk {
		return aRisk > bRisk
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n, nn *node) *node {
	if n == nil {
		return nn
	}
	if less(nn.risk, nn.id, n.risk, n.id) {
		n.left = insert(n.left, nn)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, nn)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id int, risk riskFP) *node {
	if n == nil {
		return nil
	}
	switch {
	case risk == n.risk && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, risk)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, risk)
		}
	case less(risk, id, n.risk, n.id):
		n.left = deleteNode(n.left, id, risk)
	default:
		n.right = deleteNode(n.right, id, risk)
	}
	fix(n)
	return n
}

// position returns the 1-based in-order index of (risk, id).
func position(n *node, id int, risk riskFP) int {
	pos := 0
	for n != nil {
		switch {
		case risk == n.risk && id == n.id:
			return pos + nsize(n.left) + 1
		case less(risk, id, n.risk, n.id):
			n = n.left
		default:
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// collectTopN appends up to limit ids in rank order.
func collectTopN(n *node, limit int, out *[]int) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.id)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapStore is the default Store.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[int]anomaly.Score
	fp   map[int]riskFP
	seed int64
	rng  *rand.Rand

	// version is the model every boarded score must come from; empty
	// accepts any model.
	version string
}

// NewTreapStore constructs an empty board with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		seed: time.Now().UnixNano(),
		byID: make(map[int]anomaly.Score),
		fp:   make(map[int]riskFP),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewSource(s.seed)) //nolint:gosec // treap priorities
	return s
}

// Upsert implements Store.Upsert in O(log n) expected time.
func (s *TreapStore) Upsert(ctx context.Context, sc anomaly.Score) error {
	if math.IsNaN(sc.RiskScore) || math.IsInf(sc.RiskScore, 0) {
		return fmt.Errorf("norad %d: %w", sc.NoradID, ErrInvalidScore)
	}
	risk := toFixedPoint(sc.RiskScore)

	s.mu.Lock()
	if s.version != "" && sc.ModelVersion != s.version {
		s.mu.Unlock()
		return fmt.Errorf("norad %d scored by %q, board holds %q: %w", sc.NoradID, sc.ModelVersion, s.version, ErrStaleScore)
	}
	if old, ok := s.fp[sc.NoradID]; ok {
		s.root = deleteNode(s.root, sc.NoradID, old)
	}
	s.byID[sc.NoradID] = sc
	s.fp[sc.NoradID] = risk
	s.root = insert(s.root, &node{id: sc.NoradID, risk: risk, prio: s.rng.Int63(), size: 1})
	count := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateBoardSize(count)
	return nil
}

// Rank returns the current rank of a satellite in O(log n).
func (s *TreapStore) Rank(ctx context.Context, noradID int) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	risk, ok := s.fp[noradID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Rank: position(s.root, noradID, risk), Score: s.byID[noradID]}, nil
}

// TopN returns the top N entries ordered by risk desc.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, &ids)

	out := make([]Entry, len(ids))
	for i, id := range ids {
		out[i] = Entry{Rank: i + 1, Score: s.byID[id]}
	}
	return out, nil
}

// Count returns the number of satellites on the board.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Reset empties the board and from then on accepts only scores produced by
// modelVersion.
func (s *TreapStore) Reset(ctx context.Context, modelVersion string) {
	s.mu.Lock()
	s.version = modelVersion
	s.root = nil
	s.byID = make(map[int]anomaly.Score)
	s.fp = make(map[int]riskFP)
	s.mu.Unlock()

	metrics.UpdateBoardSize(0)
}
