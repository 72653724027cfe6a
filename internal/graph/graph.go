// Package graph derives the relationship structure between agents from
// name mentions in their instruction text. Relationships are weak
// references: an edge never implies delegation or execution, only that one
// agent's text talks about another.
package graph

import (
	"iter"
	"regexp"
	"sort"
	"strings"

	"github.com/agentsync/agentsync/internal/logging"
	"github.com/agentsync/agentsync/internal/model"
)

// MaxDepth caps the reported hierarchy depth. Anything at the cap is a
// leaf specialist regardless of how deep its real chain goes.
const MaxDepth = 3

// Node is one agent's position in the relationship graph.
type Node struct {
	Name     string
	Depth    int
	Parents  []string
	Children []string
	Siblings []string
}

// Analyzer holds the computed graph for one canonical set.
type Analyzer struct {
	nodes map[string]*Node
	order []string
}

// New builds the graph for the given agents. An edge A -> B exists when
// A's description or body mentions B's name at a word boundary,
// case-insensitively, in any of its kebab, snake, or spaced spellings.
func New(agents []model.Agent) *Analyzer {
	a := &Analyzer{nodes: map[string]*Node{}}

	for _, agent := range agents {
		a.nodes[agent.Name] = &Node{Name: agent.Name}
		a.order = append(a.order, agent.Name)
	}
	sort.Strings(a.order)

	patterns := make(map[string]*regexp.Regexp, len(agents))
	for _, agent := range agents {
		patterns[agent.Name] = mentionPattern(agent.Name)
	}

	for _, agent := range agents {
		text := agent.Description + "\n" + agent.Body
		for _, other := range a.order {
			if other == agent.Name {
				continue
			}
			if patterns[other].MatchString(text) {
				a.addEdge(agent.Name, other)
			}
		}
	}

	a.computeDepths()
	a.computeSiblings()

	logging.Debug("relationship graph built", logging.Count(len(a.nodes)))
	return a
}

// addEdge records parent -> child once.
func (a *Analyzer) addEdge(parent, child string) {
	p := a.nodes[parent]
	for _, existing := range p.Children {
		if existing == child {
			return
		}
	}
	p.Children = append(p.Children, child)
	a.nodes[child].Parents = append(a.nodes[child].Parents, parent)
}

// mentionPattern matches the agent name at word boundaries, accepting the
// kebab-case canonical spelling plus underscore and space variants.
func mentionPattern(name string) *regexp.Regexp {
	parts := strings.Split(strings.ToLower(name), "-")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	joined := strings.Join(parts, `[-_ ]`)
	return regexp.MustCompile(`(?i)\b` + joined + `\b`)
}

// computeDepths assigns each node the longest path length from any
// in-degree-zero root, capped at MaxDepth. A cycle member keeps the depth
// at which the walk first entered the cycle, so the computation always
// terminates.
func (a *Analyzer) computeDepths() {
	var roots []string
	for _, name := range a.order {
		if len(a.nodes[name].Parents) == 0 {
			roots = append(roots, name)
		}
	}

	// A graph that is one big cycle has no roots; treat every node as a
	// root so each still gets a finite depth.
	if len(roots) == 0 {
		roots = a.order
	}

	for _, root := range roots {
		a.walk(root, 0, map[string]bool{})
	}
}

// walk pushes depth down the children, taking the max over all paths.
// Depth saturates at MaxDepth; nodes below the cap still receive it.
func (a *Analyzer) walk(name string, depth int, visiting map[string]bool) {
	if visiting[name] {
		return
	}
	node := a.nodes[name]
	if depth > node.Depth {
		node.Depth = depth
	}

	next := depth + 1
	if next > MaxDepth {
		next = MaxDepth
	}

	visiting[name] = true
	for _, child := range node.Children {
		a.walk(child, next, visiting)
	}
	delete(visiting, name)
}

// computeSiblings links nodes that share at least one direct parent.
func (a *Analyzer) computeSiblings() {
	for _, name := range a.order {
		node := a.nodes[name]
		seen := map[string]bool{name: true}
		for _, parent := range node.Parents {
			for _, sibling := range a.nodes[parent].Children {
				if seen[sibling] {
					continue
				}
				seen[sibling] = true
				node.Siblings = append(node.Siblings, sibling)
			}
		}
		sort.Strings(node.Siblings)
	}
}

// Node returns the named node, or nil when the agent is unknown.
func (a *Analyzer) Node(name string) *Node {
	return a.nodes[name]
}

// Len returns the number of nodes.
func (a *Analyzer) Len() int { return len(a.nodes) }

// All returns a lazy traversal of every node in identifier order. The
// sequence is restartable: each range starts from the beginning.
func (a *Analyzer) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, name := range a.order {
			if !yield(a.nodes[name]) {
				return
			}
		}
	}
}

// Roots returns a lazy traversal of the in-degree-zero nodes.
func (a *Analyzer) Roots() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, name := range a.order {
			if node := a.nodes[name]; len(node.Parents) == 0 {
				if !yield(node) {
					return
				}
			}
		}
	}
}

// Descendants returns a lazy depth-first traversal below the named node.
// Cycles are visited once.
func (a *Analyzer) Descendants(name string) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		seen := map[string]bool{name: true}
		var visit func(string) bool
		visit = func(current string) bool {
			node, ok := a.nodes[current]
			if !ok {
				return true
			}
			for _, child := range node.Children {
				if seen[child] {
					continue
				}
				seen[child] = true
				if !yield(a.nodes[child]) {
					return false
				}
				if !visit(child) {
					return false
				}
			}
			return true
		}
		visit(name)
	}
}
