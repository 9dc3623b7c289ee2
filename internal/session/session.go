// Package session holds the state of one interactive analysis: the chosen
// product, method and amount, the solved LCA, and the last traversal with
// its scope attribution.
package session

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"lukechampine.com/blake3"

	"wiser/scope/internal/catalog"
	"wiser/scope/internal/ctxlog"
	"wiser/scope/internal/db"
	"wiser/scope/internal/lca"
	"wiser/scope/internal/scope"
)

var (
	// ErrPrerequisiteMissing is returned when a step runs before the step it
	// depends on (e.g. attribution before a successful solve).
	ErrPrerequisiteMissing = errors.New("prerequisite step missing")
	// ErrInvalidCutoff is returned for a cutoff outside (0, 1].
	ErrInvalidCutoff = errors.New("cutoff must be in (0, 1]")
)

// Engine solves and traverses. *lca.Engine satisfies it.
type Engine interface {
	Solve(ctx context.Context, demand lca.Demand, method string) (*lca.Result, error)
	Traverse(ctx context.Context, res *lca.Result, cutoff float64, maxCalc int) (*lca.Graph, error)
}

// Store is the persistent side of a session. *db.DB satisfies it.
type Store interface {
	scope.NameResolver
	GetActivity(id int64) (*db.Activity, error)
	Revision() (int64, error)
	GetTraversal(digest string) ([]byte, bool, error)
	PutTraversal(digest string, cutoff float64, payload []byte) error
	InsertRun(r db.Run) (string, error)
}

// Options configure a session.
type Options struct {
	Method  string         // defaults to catalog.DefaultCode
	Amount  float64        // defaults to 1
	MaxCalc int            // traversal expansion limit, defaults to 10000
	Scope2  scope.ScopeSet // activities counted as Scope 2
	NoCache bool           // skip the persistent traversal cache
	Catalog *catalog.Catalog
}

// Session is the state of one analysis. It is not safe for concurrent use.
type Session struct {
	store  Store
	engine Engine
	opts   Options

	activity *db.Activity
	method   catalog.Method
	amount   float64

	result      *lca.Result
	graph       *lca.Graph
	cutoff      float64
	base        scope.NodeTable // as built from the traversal
	table       scope.NodeTable // base with overrides applied
	overrides   []scope.Override
	attribution *scope.Attribution
	overridden  bool
}

// New creates a session. The method from opts must exist in the catalog.
func New(store Store, engine Engine, opts Options) (*Session, error) {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Builtin()
	}
	if opts.Method == "" {
		opts.Method = catalog.DefaultCode
	}
	if opts.Amount == 0 {
		opts.Amount = 1
	}
	if opts.MaxCalc <= 0 {
		opts.MaxCalc = 10000
	}
	s := &Session{store: store, engine: engine, opts: opts}
	if err := s.SelectMethod(opts.Method); err != nil {
		return nil, err
	}
	if err := s.SetAmount(opts.Amount); err != nil {
		return nil, err
	}
	return s, nil
}

// invalidate drops everything derived from the selection.
func (s *Session) invalidate() {
	s.result = nil
	s.graph = nil
	s.cutoff = 0
	s.base = scope.NodeTable{}
	s.table = scope.NodeTable{}
	s.overrides = nil
	s.attribution = nil
	s.overridden = false
}

// SelectProduct chooses the reference product by activity ID.
func (s *Session) SelectProduct(id int64) error {
	a, err := s.store.GetActivity(id)
	if err != nil {
		return fmt.Errorf("selecting product: %w", err)
	}
	s.activity = a
	s.invalidate()
	return nil
}

// SelectMethod chooses the impact method by catalog code.
func (s *Session) SelectMethod(code string) error {
	m, err := s.opts.Catalog.Lookup(code)
	if err != nil {
		return err
	}
	s.method = m
	s.invalidate()
	return nil
}

// SetAmount sets the demanded amount of the reference product.
func (s *Session) SetAmount(amount float64) error {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("invalid amount %v", amount)
	}
	s.amount = amount
	s.invalidate()
	return nil
}

func (s *Session) Activity() *db.Activity { return s.activity }
func (s *Session) Method() catalog.Method { return s.method }
func (s *Session) Amount() float64        { return s.amount }
func (s *Session) Graph() *lca.Graph      { return s.graph }
func (s *Session) Table() scope.NodeTable { return s.table }
func (s *Session) Cutoff() float64        { return s.cutoff }
func (s *Session) Overridden() bool       { return s.overridden }
func (s *Session) MaxCalc() int           { return s.opts.MaxCalc }
func (s *Session) Scope2() scope.ScopeSet { return s.opts.Scope2 }

// Score returns the solved score and whether a solve has succeeded.
func (s *Session) Score() (float64, bool) {
	if s.result == nil {
		return 0, false
	}
	return s.result.Score, true
}

// Solve computes the LCA score of the current selection. Any previous
// traversal and attribution are discarded.
func (s *Session) Solve(ctx context.Context) (float64, error) {
	if s.activity == nil {
		return 0, fmt.Errorf("%w: no product selected", ErrPrerequisiteMissing)
	}
	s.invalidate()

	log := ctxlog.FromContext(ctx)
	res, err := s.engine.Solve(ctx, lca.Demand{s.activity.ID: s.amount}, s.method.Code)
	if err != nil {
		return 0, fmt.Errorf("solving %s: %w", s.activity.Name, err)
	}
	s.result = res
	log.Info("lca solved", "activity", s.activity.ID, "method", s.method.Code, "amount", s.amount, "score", res.Score)
	return res.Score, nil
}

// Traverse expands the solved supply chain at the given cutoff and rebuilds
// the analysis table. When the cutoff equals the last one and a result
// exists nothing is recomputed and false is returned.
func (s *Session) Traverse(ctx context.Context, cutoff float64) (bool, error) {
	if !(cutoff > 0 && cutoff <= 1) {
		return false, fmt.Errorf("%w: got %v", ErrInvalidCutoff, cutoff)
	}
	if s.result == nil {
		return false, fmt.Errorf("%w: traversal needs a solved LCA", ErrPrerequisiteMissing)
	}
	log := ctxlog.FromContext(ctx)
	if s.graph != nil && cutoff == s.cutoff {
		log.Debug("cutoff unchanged, reusing traversal", "cutoff", cutoff)
		return false, nil
	}

	graph, err := s.traverse(ctx, cutoff)
	if err != nil {
		return false, err
	}

	nodes, err := scope.NodesToTable(graph.Nodes, s.store, s.opts.Scope2)
	if err != nil {
		return false, err
	}
	branches, err := scope.AddBranches(scope.EdgesToTable(graph.Edges))
	if err != nil {
		return false, err
	}
	table := scope.JoinBranches(nodes, branches)
	log.Debug("analysis table built", "rows", len(table.Rows), "branched", table.Branched)

	s.graph = graph
	s.cutoff = cutoff
	s.base = table
	s.table = table
	s.overrides = nil
	s.attribution = nil
	s.overridden = false
	return true, nil
}

// traverse runs the engine traversal, going through the persistent cache
// unless disabled.
func (s *Session) traverse(ctx context.Context, cutoff float64) (*lca.Graph, error) {
	log := ctxlog.FromContext(ctx)

	var key string
	if !s.opts.NoCache {
		rev, err := s.store.Revision()
		if err != nil {
			return nil, fmt.Errorf("reading inventory revision: %w", err)
		}
		key = s.cacheKey(cutoff, rev)
		payload, ok, err := s.store.GetTraversal(key)
		if err != nil {
			return nil, fmt.Errorf("reading traversal cache: %w", err)
		}
		if ok {
			var g lca.Graph
			if err := json.Unmarshal(payload, &g); err == nil {
				log.Debug("traversal cache hit", "digest", key[:12])
				return &g, nil
			}
			log.Warn("discarding unreadable cache entry", "digest", key[:12])
		}
	}

	graph, err := s.engine.Traverse(ctx, s.result, cutoff, s.opts.MaxCalc)
	if err != nil {
		return nil, fmt.Errorf("traversing at cutoff %v: %w", cutoff, err)
	}
	log.Info("graph traversed", "cutoff", cutoff, "nodes", len(graph.Nodes)-1, "calculations", graph.Calculations)
	if graph.Truncated {
		log.Warn("traversal stopped at calculation limit", "maxCalc", s.opts.MaxCalc)
	}

	if key != "" {
		payload, err := json.Marshal(graph)
		if err != nil {
			return nil, fmt.Errorf("encoding traversal: %w", err)
		}
		if err := s.store.PutTraversal(key, cutoff, payload); err != nil {
			log.Warn("caching traversal failed", "error", err)
		}
	}
	return graph, nil
}

// cacheKey identifies a traversal by everything its result depends on.
func (s *Session) cacheKey(cutoff float64, revision int64) string {
	id := fmt.Sprintf("activity=%d|method=%s|amount=%g|cutoff=%g|maxcalc=%d|revision=%d",
		s.activity.ID, s.method.Code, s.amount, cutoff, s.opts.MaxCalc, revision)
	sum := blake3.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// Attribute returns the scope split of the current analysis table. It needs
// a successful Solve and Traverse.
func (s *Session) Attribute(ctx context.Context) (scope.Attribution, error) {
	if s.result == nil {
		return scope.Attribution{}, fmt.Errorf("%w: attribution needs a solved LCA", ErrPrerequisiteMissing)
	}
	if s.graph == nil {
		return scope.Attribution{}, fmt.Errorf("%w: attribution needs a traversal", ErrPrerequisiteMissing)
	}
	if s.attribution != nil {
		return *s.attribution, nil
	}
	a := scope.AttributeScopes(s.table, s.result.Score, s.opts.Scope2)
	s.attribution = &a
	ctxlog.FromContext(ctx).Info("scopes attributed",
		"scope1", a.Scope1, "scope2", a.Scope2, "scope3", a.Scope3)
	return a, nil
}

// ApplyOverrides applies user values to the table built by the last
// traversal, replacing any overrides applied before, and returns the
// attribution recomputed from the table's scope column. No overrides
// restores the traversal table and its attribution.
func (s *Session) ApplyOverrides(ctx context.Context, overrides []scope.Override) (scope.Attribution, error) {
	if s.graph == nil {
		return scope.Attribution{}, fmt.Errorf("%w: overrides need a traversal", ErrPrerequisiteMissing)
	}
	if len(overrides) == 0 {
		s.table = s.base
		s.overrides = nil
		s.attribution = nil
		s.overridden = false
		return s.Attribute(ctx)
	}
	table, err := scope.ApplyOverrides(s.base, overrides)
	if err != nil {
		return scope.Attribution{}, err
	}
	a := scope.AttributeByScopeColumn(table)
	s.table = table
	s.overrides = append([]scope.Override(nil), overrides...)
	s.attribution = &a
	s.overridden = true
	ctxlog.FromContext(ctx).Info("overrides applied", "count", len(overrides), "total", a.Total())
	return a, nil
}

// Record stores the current attribution in the run log and returns the run ID.
func (s *Session) Record(ctx context.Context) (string, error) {
	a, err := s.Attribute(ctx)
	if err != nil {
		return "", err
	}
	var overrides json.RawMessage
	if len(s.overrides) > 0 {
		if overrides, err = json.Marshal(s.overrides); err != nil {
			return "", fmt.Errorf("encoding overrides: %w", err)
		}
	}
	id, err := s.store.InsertRun(db.Run{
		ActivityID:   s.activity.ID,
		ActivityName: s.activity.Name,
		Method:       s.method.Code,
		Amount:       s.amount,
		Cutoff:       s.cutoff,
		MaxCalc:      s.opts.MaxCalc,
		Scope2Refs:   s.opts.Scope2.Refs(),
		Overrides:    overrides,
		Score:        a.Total(),
		Scope1:       a.Scope1,
		Scope2:       a.Scope2,
		Scope3:       a.Scope3,
	})
	if err != nil {
		return "", err
	}
	ctxlog.FromContext(ctx).Debug("run recorded", "id", id)
	return id, nil
}
