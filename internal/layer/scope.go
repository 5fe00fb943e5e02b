package layer

import "cmp"

// Priority orders scopes from lowest to highest precedence. Values are spaced
// by ten so new scopes can slot in between.
type Priority int

const (
	PriorityGlobal  Priority = 10
	PriorityProject Priority = 20
	PriorityEnv     Priority = 30
	PriorityLocal   Priority = 40
)

// ScopeKind is the closed set of places a layer can live.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeProject
	ScopeEnv
	ScopeLocal
)

// Scope identifies a layer's precedence class. Env scopes also carry the
// environment name.
type Scope struct {
	kind ScopeKind
	env  string
}

// Global is the per-user scope.
func Global() Scope { return Scope{kind: ScopeGlobal} }

// Project is the scope of a mise.toml found in the directory chain.
func Project() Scope { return Scope{kind: ScopeProject} }

// Env is the scope of the overlay for the named environment.
func Env(name string) Scope { return Scope{kind: ScopeEnv, env: name} }

// Local is the uncommitted per-directory override scope.
func Local() Scope { return Scope{kind: ScopeLocal} }

// Kind returns the scope kind.
func (s Scope) Kind() ScopeKind { return s.kind }

// EnvName returns the environment name for env scopes and "" otherwise.
func (s Scope) EnvName() string { return s.env }

// Rank returns the scope's precedence.
func (s Scope) Rank() Priority {
	switch s.kind {
	case ScopeGlobal:
		return PriorityGlobal
	case ScopeProject:
		return PriorityProject
	case ScopeEnv:
		return PriorityEnv
	case ScopeLocal:
		return PriorityLocal
	default:
		return 0
	}
}

// CompareRank orders scopes by precedence, lowest first. Scopes of the same
// kind compare equal, so a stable sort keeps their relative order.
func CompareRank(a, b Scope) int {
	return cmp.Compare(a.Rank(), b.Rank())
}

// String renders the scope as shown to users ("global", "env:ci", ...).
func (s Scope) String() string {
	switch s.kind {
	case ScopeGlobal:
		return "global"
	case ScopeProject:
		return "project"
	case ScopeEnv:
		return "env:" + s.env
	case ScopeLocal:
		return "local"
	default:
		return "unknown"
	}
}
