// Package symtab implements the codegen-time Environment described in spec
// §3 "Symbol"/"Environment": a stack of scope frames, lexical capture
// discovery for closures (spec §4.3), and the custom-type/type-alias
// registries consulted by the type resolver. Scope frames are backed by
// github.com/dolthub/swiss, the same SwissTable map the teacher uses for
// its own machine-level Map value.
package symtab

import (
	"fmt"
	"sort"

	"github.com/dolthub/swiss"
	"github.com/samber/lo"

	"github.com/ash-lang/ash/internal/token"
	"github.com/ash-lang/ash/internal/types"
)

// Kind discriminates the role a Symbol plays in its scope.
type Kind uint8

const (
	KindFunction Kind = iota
	KindGenericFunction
	KindVariable
	KindConstructor
	KindParameter
	KindCaptured
)

// Symbol is a named, typed binding (spec §3 "Symbol").
type Symbol struct {
	ID    string // monomorphisation name for Function symbols, bare name otherwise
	Ttype types.Type
	Pos   token.Position
	Kind  Kind

	// LocalIndex/GlobalIndex record the activation-window or global-frame
	// slot assigned by codegen; -1 until assigned.
	LocalIndex  int
	GlobalIndex int
}

// scope is one frame of the Environment's scope stack.
type scope struct {
	values   *swiss.Map[string, Symbol]
	captured map[string]Symbol // free variables discovered in this scope (spec §4.3)
}

func newScope() *scope {
	return &scope{
		values:   swiss.NewMap[string, Symbol](8),
		captured: make(map[string]Symbol),
	}
}

// Environment is the codegen-time symbol table: a stack of scope frames plus
// the module-wide custom-type, type-alias and no-override registries (spec
// §3 "Environment").
type Environment struct {
	scopes []*scope

	CustomTypes map[string][]FieldType    // name -> ordered (field, type) pairs
	TypeAlias   map[string]types.Type     // alias -> underlying type
	NoOverride  map[string]struct{}       // names that cannot be redefined in any inner scope
	captureSeq  map[string][]string       // per-scope-depth insertion order of captured names, for deterministic enumeration
}

// FieldType names one field of a custom (struct) type.
type FieldType struct {
	Name  string
	Ttype types.Type
}

// New returns an Environment with a single, empty top-level scope.
func New() *Environment {
	e := &Environment{
		CustomTypes: make(map[string][]FieldType),
		TypeAlias:   make(map[string]types.Type),
		NoOverride:  make(map[string]struct{}),
		captureSeq:  make(map[string][]string),
	}
	e.scopes = []*scope{newScope()}
	return e
}

// Push enters a new lexical scope (e.g. a function body or block).
func (e *Environment) Push() { e.scopes = append(e.scopes, newScope()) }

// Pop leaves the current lexical scope.
func (e *Environment) Pop() { e.scopes = e.scopes[:len(e.scopes)-1] }

// Depth returns the number of active scope frames.
func (e *Environment) Depth() int { return len(e.scopes) }

// Declare inserts a new symbol into the current scope. Function symbols are
// keyed by their monomorphisation name (spec §4.1 "mangle"); all other kinds
// are keyed by their bare identifier.
func (e *Environment) Declare(id string, t types.Type, pos token.Position, kind Kind) (Symbol, error) {
	if _, noOverride := e.NoOverride[id]; noOverride {
		return Symbol{}, fmt.Errorf("%s: cannot redefine %q", pos, id)
	}

	key := id
	if kind == KindFunction {
		if t.Kind != types.KindFunction {
			return Symbol{}, fmt.Errorf("%s: symbol %q declared Function but has type %s", pos, id, t)
		}
		key = types.Mangle(id, t.Params)
	}

	cur := e.top()
	if _, exists := cur.values.Get(key); exists {
		return Symbol{}, fmt.Errorf("%s: %q is already defined in this scope", pos, key)
	}

	sym := Symbol{ID: key, Ttype: t, Pos: pos, Kind: kind, LocalIndex: -1, GlobalIndex: -1}
	cur.values.Put(key, sym)
	return sym, nil
}

func (e *Environment) top() *scope { return e.scopes[len(e.scopes)-1] }

// Lookup resolves id in the current scope, then outer scopes, the way spec
// §4.1 call resolution step 4 describes: a hit below the innermost closure
// boundary is recorded as a capture in every closure scope between the hit
// and the use site. scopeIsClosureBoundary reports, for each scope depth,
// whether crossing it constitutes entering a new closure (vs. a plain
// nested block, which does not capture).
//
// Lookup returns the symbol found and a boolean reporting whether this
// particular call induced a *new* capture (spec §9, "lookup_and_maybe_capture").
func (e *Environment) Lookup(id string, closureBoundary []bool) (Symbol, bool, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if sym, ok := e.scopes[i].values.Get(id); ok {
			newCapture := false
			// Any closure boundary strictly between i and the top of the stack
			// means this use captures the symbol into each such closure's free
			// variable list, outermost first.
			for j := i + 1; j < len(e.scopes); j++ {
				if j-1 < len(closureBoundary) && closureBoundary[j-1] {
					if _, already := e.scopes[j].captured[sym.ID]; !already {
						e.scopes[j].captured[sym.ID] = sym
						e.captureSeq[scopeKey(j)] = append(e.captureSeq[scopeKey(j)], sym.ID)
						newCapture = true
					}
				}
			}
			return sym, true, newCapture
		}
	}
	return Symbol{}, false, false
}

// LookupMangled resolves a call to name with the given argument types: first
// under the monomorphised key, then the bare name (spec §4.1, call
// resolution steps 2-3).
func (e *Environment) LookupMangled(name string, argTypes []types.Type, closureBoundary []bool) (Symbol, bool, bool) {
	mangled := types.Mangle(name, argTypes)
	if sym, ok, captured := e.Lookup(mangled, closureBoundary); ok {
		return sym, true, captured
	}
	return e.Lookup(name, closureBoundary)
}

// Captured returns the free variables captured into the scope at the given
// depth, in deterministic (first-used) order (spec §4.3).
func (e *Environment) Captured(depth int) []Symbol {
	names := e.captureSeq[scopeKey(depth)]
	out := make([]Symbol, 0, len(names))
	for _, n := range names {
		out = append(out, e.scopes[depth].captured[n])
	}
	return out
}

func scopeKey(depth int) string { return fmt.Sprintf("scope#%d", depth) }

// Suggestions returns the closest-matching known identifiers to name across
// all active scopes, for the spellcheck-style error described in spec
// §4.1 step 5. Results are sorted by edit distance, then lexicographically.
func (e *Environment) Suggestions(name string, max int) []string {
	type cand struct {
		name string
		dist int
	}
	var cands []cand
	seen := make(map[string]struct{})
	for _, s := range e.scopes {
		s.values.Iter(func(k string, _ Symbol) bool {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cands = append(cands, cand{k, levenshtein(name, k)})
			}
			return false
		})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].name < cands[j].name
	})
	names := lo.Map(cands, func(c cand, _ int) string { return c.name })
	if len(names) > max {
		names = names[:max]
	}
	return names
}

func levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	dp := make([][]int, la+1)
	for i := range dp {
		dp[i] = make([]int, lb+1)
		dp[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		dp[0][j] = j
	}
	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			dp[i][j] = min3(dp[i-1][j]+1, dp[i][j-1]+1, dp[i-1][j-1]+cost)
		}
	}
	return dp[la][lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
