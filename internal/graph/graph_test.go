package graph

import (
	"reflect"
	"testing"

	"github.com/agentsync/agentsync/internal/model"
)

func agent(name, body string) model.Agent {
	return model.Agent{Name: name, Body: body, Access: model.Unrestricted()}
}

func TestMentionEdges(t *testing.T) {
	a := New([]model.Agent{
		agent("orchestrator", "Delegate API work to api-designer and reviews to code-reviewer."),
		agent("api-designer", "Design APIs."),
		agent("code-reviewer", "Review code."),
	})

	node := a.Node("orchestrator")
	want := []string{"api-designer", "code-reviewer"}
	if !reflect.DeepEqual(node.Children, want) {
		t.Errorf("children = %v, want %v", node.Children, want)
	}
	if len(node.Parents) != 0 {
		t.Errorf("orchestrator should be a root, parents = %v", node.Parents)
	}
	if got := a.Node("api-designer").Parents; !reflect.DeepEqual(got, []string{"orchestrator"}) {
		t.Errorf("api-designer parents = %v", got)
	}
}

func TestMentionVariants(t *testing.T) {
	tests := map[string]struct {
		text string
		want bool
	}{
		"kebab":            {"hand off to api-designer please", true},
		"underscore":       {"hand off to api_designer please", true},
		"spaced":           {"hand off to the Api Designer agent", true},
		"case insensitive": {"API-DESIGNER does it", true},
		"substring only":   {"the apidesigner tool", false},
		"partial word":     {"an api-designers meetup", false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			a := New([]model.Agent{
				agent("caller", tt.text),
				agent("api-designer", "Design APIs."),
			})
			got := len(a.Node("caller").Children) == 1
			if got != tt.want {
				t.Errorf("mention in %q = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestDepthCapped(t *testing.T) {
	// a -> b -> c -> d -> e: a chain deeper than the cap.
	a := New([]model.Agent{
		agent("alpha", "Uses beta."),
		agent("beta", "Uses gamma."),
		agent("gamma", "Uses delta."),
		agent("delta", "Uses epsilon."),
		agent("epsilon", "Leaf."),
	})

	depths := map[string]int{}
	for node := range a.All() {
		depths[node.Name] = node.Depth
	}

	want := map[string]int{"alpha": 0, "beta": 1, "gamma": 2, "delta": 3, "epsilon": 3}
	if !reflect.DeepEqual(depths, want) {
		t.Errorf("depths = %v, want %v", depths, want)
	}
}

func TestCycleTerminates(t *testing.T) {
	// ping <-> pong plus an entry point. Must terminate with finite depths.
	a := New([]model.Agent{
		agent("entry", "Start with ping."),
		agent("ping", "Bounce to pong."),
		agent("pong", "Bounce to ping."),
	})

	if got := a.Node("entry").Depth; got != 0 {
		t.Errorf("entry depth = %d", got)
	}
	if got := a.Node("ping").Depth; got < 1 || got > MaxDepth {
		t.Errorf("ping depth = %d, want within [1, %d]", got, MaxDepth)
	}
	if got := a.Node("pong").Depth; got < 1 || got > MaxDepth {
		t.Errorf("pong depth = %d, want within [1, %d]", got, MaxDepth)
	}
}

func TestPureCycleTerminates(t *testing.T) {
	a := New([]model.Agent{
		agent("ping", "Bounce to pong."),
		agent("pong", "Bounce to ping."),
	})
	for node := range a.All() {
		if node.Depth < 0 || node.Depth > MaxDepth {
			t.Errorf("%s depth = %d out of range", node.Name, node.Depth)
		}
	}
}

func TestSiblings(t *testing.T) {
	a := New([]model.Agent{
		agent("lead", "Split between frontend-dev and backend-dev."),
		agent("frontend-dev", "Build UIs."),
		agent("backend-dev", "Build services."),
		agent("loner", "Works alone."),
	})

	if got := a.Node("frontend-dev").Siblings; !reflect.DeepEqual(got, []string{"backend-dev"}) {
		t.Errorf("frontend-dev siblings = %v", got)
	}
	if got := a.Node("loner").Siblings; len(got) != 0 {
		t.Errorf("loner siblings = %v", got)
	}
}

func TestTraversalRestartable(t *testing.T) {
	a := New([]model.Agent{
		agent("alpha", "Uses beta."),
		agent("beta", "Leaf."),
	})

	seq := a.All()
	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first != 2 || second != 2 {
		t.Errorf("traversal counts = %d, %d; want 2, 2", first, second)
	}

	// Early break works too.
	for node := range seq {
		_ = node
		break
	}
}

func TestDescendants(t *testing.T) {
	a := New([]model.Agent{
		agent("root-agent", "Uses mid-agent."),
		agent("mid-agent", "Uses leaf-agent."),
		agent("leaf-agent", "Leaf."),
	})

	var names []string
	for node := range a.Descendants("root-agent") {
		names = append(names, node.Name)
	}
	if !reflect.DeepEqual(names, []string{"mid-agent", "leaf-agent"}) {
		t.Errorf("descendants = %v", names)
	}
}
