package formula

import "math"

// Scope provides variable lookup for evaluation and resolution.
type Scope interface {
	// Lookup returns the value bound to name.
	Lookup(name string) (float64, bool)
}

// Env is a flat name→value binding environment.
type Env map[string]float64

// Lookup implements Scope.
func (e Env) Lookup(name string) (float64, bool) {
	v, ok := e[name]
	return v, ok
}

// Chain layers scopes; the first scope that binds a name wins. Chain(step,
// branch) lets step variables shadow branch constants.
func Chain(scopes ...Scope) Scope {
	return chain(scopes)
}

type chain []Scope

func (c chain) Lookup(name string) (float64, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(name); ok {
			return v, true
		}
	}
	return 0, false
}

// namedConstants are always available unless a scope binds the same name.
var namedConstants = map[string]float64{
	"pi": math.Pi,
	"PI": math.Pi,
	"e":  math.E,
	"E":  math.E,
}

// NamedConstant returns the value of a built-in constant.
func NamedConstant(name string) (float64, bool) {
	v, ok := namedConstants[name]
	return v, ok
}
