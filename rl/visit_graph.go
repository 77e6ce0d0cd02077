package rl

import (
	"encoding/json"
	"fmt"
	"path"
	"strconv"

	"github.com/zeu5/tabular-rl/types"
	"github.com/zeu5/tabular-rl/util"
)

// VisitGraph records the transitions observed by a learner: which states were
// left, how often, and where each action led
type VisitGraph struct {
	Nodes map[string]*Node `json:"nodes"`
}

func NewVisitGraph() *VisitGraph {
	return &VisitGraph{
		Nodes: make(map[string]*Node),
	}
}

// Update adds the transition, returns true if from was never left before
func (v *VisitGraph) Update(from types.State, action types.Action, to types.State) bool {
	fromKey := from.Hash()
	toKey := to.Hash()
	if _, ok := v.Nodes[fromKey]; !ok {
		v.Nodes[fromKey] = NewNode(fromKey)
	}
	if _, ok := v.Nodes[toKey]; !ok {
		v.Nodes[toKey] = NewNode(toKey)
	}
	new := v.Nodes[fromKey].Visits == 0
	v.Nodes[fromKey].Visits += 1
	v.Nodes[fromKey].AddNext(action.Hash(), toKey)
	v.Nodes[toKey].AddPrev(action.Hash(), fromKey)
	return new
}

// GetVisits is the number of times each state was left
func (v *VisitGraph) GetVisits() map[string]int {
	results := make(map[string]int)
	for k, n := range v.Nodes {
		results[k] = n.Visits
	}
	return results
}

func (v *VisitGraph) Record(filePath string) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return util.WriteToFile(filePath, string(bs))
}

type Node struct {
	Key    string `json:"key"`
	Visits int    `json:"visits"`
	// Next, Prev: Each action can lead to many states
	Next map[string]map[string]bool `json:"next"`
	Prev map[string]map[string]bool `json:"prev"`
}

func NewNode(key string) *Node {
	return &Node{
		Key:    key,
		Visits: 0,
		Next:   make(map[string]map[string]bool),
		Prev:   make(map[string]map[string]bool),
	}
}

func (n *Node) AddPrev(a, prev string) {
	if _, ok := n.Prev[a]; !ok {
		n.Prev[a] = make(map[string]bool)
	}
	n.Prev[a][prev] = true
}

func (n *Node) AddNext(a, next string) {
	if _, ok := n.Next[a]; !ok {
		n.Next[a] = make(map[string]bool)
	}
	n.Next[a][next] = true
}

// GraphAnalyzer builds the visit graph of all the episodes of an experiment
type GraphAnalyzer struct {
	graph *VisitGraph
}

var _ Analyzer = &GraphAnalyzer{}

func NewGraphAnalyzer() *GraphAnalyzer {
	return &GraphAnalyzer{graph: NewVisitGraph()}
}

func (g *GraphAnalyzer) Analyze(_, _ int, _ string, trace *types.Trace) {
	for i := 0; i < trace.Len(); i++ {
		s, a, next, _, _ := trace.Get(i)
		g.graph.Update(s, a, next)
	}
}

// DataSet is the *VisitGraph
func (g *GraphAnalyzer) DataSet() DataSet {
	return g.graph
}

func (g *GraphAnalyzer) Reset() {
	g.graph = NewVisitGraph()
}

// GraphRecordComparator records the visit graph of every experiment as JSON
func GraphRecordComparator(savePath string) Comparator {
	return func(run int, names []string, datasets []DataSet) error {
		for i, name := range names {
			graph, ok := datasets[i].(*VisitGraph)
			if !ok {
				return fmt.Errorf("experiment %s: expected a visit graph, got %T", name, datasets[i])
			}
			if err := graph.Record(path.Join(savePath, strconv.Itoa(run)+"_"+name+"_graph.json")); err != nil {
				return err
			}
		}
		return nil
	}
}
