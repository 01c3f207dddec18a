package kiln

import "github.com/xraph/go-utils/di"

// DependencyGraph tracks which registered names reference which.
type DependencyGraph struct {
	nodes map[string]*node
	order []string // Preserve registration order
}

type node struct {
	name         string
	dependencies []string
	deps         []di.Dep
}

// NewDependencyGraph creates a new dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*node),
		order: make([]string, 0),
	}
}

// AddNode adds a node with eager dependencies. Adding an existing name
// replaces its dependencies and keeps its original position.
func (g *DependencyGraph) AddNode(name string, dependencies []string) {
	g.AddNodeWithDeps(name, di.DepsFromNames(dependencies))
}

// AddNodeWithDeps adds a node with full Dep specs, recording whether each
// reference was resolved at registration (eager) or on build (lazy).
func (g *DependencyGraph) AddNodeWithDeps(name string, deps []di.Dep) {
	if _, exists := g.nodes[name]; !exists {
		g.order = append(g.order, name)
	}

	g.nodes[name] = &node{
		name:         name,
		dependencies: di.DepNames(deps),
		deps:         deps,
	}
}

// GetDependencies returns the dependency names for a node.
func (g *DependencyGraph) GetDependencies(name string) []string {
	if node, ok := g.nodes[name]; ok {
		return node.dependencies
	}

	return nil
}

// GetDeps returns the full Dep specs for a node.
func (g *DependencyGraph) GetDeps(name string) []di.Dep {
	if node, ok := g.nodes[name]; ok {
		return node.deps
	}

	return nil
}

// HasNode checks if a node exists in the graph.
func (g *DependencyGraph) HasNode(name string) bool {
	_, ok := g.nodes[name]

	return ok
}

// Nodes returns the node names in registration order.
func (g *DependencyGraph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)

	return out
}

// Clone returns an independent copy of g.
func (g *DependencyGraph) Clone() *DependencyGraph {
	out := NewDependencyGraph()
	for _, name := range g.order {
		deps := g.nodes[name].deps
		out.AddNodeWithDeps(name, append([]di.Dep(nil), deps...))
	}

	return out
}

// TopologicalSort returns nodes in dependency order.
// Nodes without dependencies maintain their registration order (FIFO).
// Returns error if circular dependency detected.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	result := make([]string, 0, len(g.nodes))

	for _, name := range g.order {
		if err := g.visit(name, visited, visiting, nil, &result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// visit performs DFS traversal.
func (g *DependencyGraph) visit(name string, visited, visiting map[string]bool, path []string, result *[]string) error {
	if visited[name] {
		return nil
	}

	if visiting[name] {
		return ErrCircularDependency(append(cycleFrom(path, name), name))
	}

	node := g.nodes[name]
	if node == nil {
		// Not registered here; the container resolves it lazily or fails then
		return nil
	}

	visiting[name] = true
	path = append(path, name)

	for _, dep := range node.dependencies {
		if err := g.visit(dep, visited, visiting, path, result); err != nil {
			return err
		}
	}

	visiting[name] = false
	visited[name] = true
	*result = append(*result, name)

	return nil
}

// cycleFrom returns the tail of path starting at name.
func cycleFrom(path []string, name string) []string {
	for i, n := range path {
		if n == name {
			return append([]string(nil), path[i:]...)
		}
	}

	return []string{}
}
