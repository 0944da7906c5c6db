package formula

import "sort"

// Class is the resolution of an identifier against a scope.
type Class int

const (
	ClassUnknown  Class = iota // no binding and no named constant
	ClassBound                 // value supplied by the scope
	ClassConstant              // built-in named constant
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassBound:
		return "bound"
	case ClassConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// Identifiers returns the distinct identifiers in node, in order of first
// appearance. Function names of calls are not identifiers.
func Identifiers(node Node) []string {
	var names []string
	seen := make(map[string]bool)
	walk(node, func(n Node) {
		if v, ok := n.(*VariableNode); ok && !seen[v.Name] {
			seen[v.Name] = true
			names = append(names, v.Name)
		}
	})
	return names
}

// Classify resolves every identifier in node. Bindings take precedence
// over named constants.
func Classify(node Node, scope Scope) map[string]Class {
	if scope == nil {
		scope = Env(nil)
	}
	classes := make(map[string]Class)
	for _, name := range Identifiers(node) {
		switch {
		case lookupOK(scope, name):
			classes[name] = ClassBound
		case isNamedConstant(name):
			classes[name] = ClassConstant
		default:
			classes[name] = ClassUnknown
		}
	}
	return classes
}

// Unknowns returns the sorted identifiers of node that neither scope nor
// the named constants define.
func Unknowns(node Node, scope Scope) []string {
	var out []string
	for name, c := range Classify(node, scope) {
		if c == ClassUnknown {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Occurrences counts how many times the variable name appears in node.
func Occurrences(node Node, name string) int {
	count := 0
	walk(node, func(n Node) {
		if v, ok := n.(*VariableNode); ok && v.Name == name {
			count++
		}
	})
	return count
}

func lookupOK(scope Scope, name string) bool {
	_, ok := scope.Lookup(name)
	return ok
}

func isNamedConstant(name string) bool {
	_, ok := NamedConstant(name)
	return ok
}

// walk visits node and its descendants in pre-order.
func walk(node Node, visit func(Node)) {
	if node == nil {
		return
	}
	visit(node)
	switch n := node.(type) {
	case *BinaryNode:
		walk(n.Left, visit)
		walk(n.Right, visit)
	case *UnaryNode:
		walk(n.Operand, visit)
	case *CallNode:
		walk(n.Arg, visit)
	}
}
