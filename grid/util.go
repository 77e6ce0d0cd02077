package grid

import (
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/zeu5/tabular-rl/policies"
	"github.com/zeu5/tabular-rl/rl"
	"github.com/zeu5/tabular-rl/types"
	"github.com/zeu5/tabular-rl/util"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// GridDataSet counts the visits of every cell, row 0 is drawn at the top
type GridDataSet struct {
	Visits map[int]map[int]int `json:"visits"`
	Height int                 `json:"height"`
	Width  int                 `json:"width"`
}

var _ plotter.GridXYZ = &GridDataSet{}

func NewGridDataSet(height, width int) *GridDataSet {
	return &GridDataSet{
		Visits: make(map[int]map[int]int),
		Height: height,
		Width:  width,
	}
}

func (g *GridDataSet) Dims() (int, int) {
	return g.Width, g.Height
}

func (g *GridDataSet) Z(c, r int) float64 {
	return float64(g.Visits[g.Height-1-r][c])
}

func (g *GridDataSet) X(c int) float64 {
	return float64(c)
}

func (g *GridDataSet) Y(r int) float64 {
	return float64(r)
}

func (g *GridDataSet) Min() float64 {
	return 0.0
}

func (g *GridDataSet) Max() float64 {
	max := 0
	for _, vals := range g.Visits {
		for _, count := range vals {
			if count > max {
				max = count
			}
		}
	}
	return float64(max)
}

func (g *GridDataSet) visit(p Position) {
	if p.I < 0 || p.I >= g.Height || p.J < 0 || p.J >= g.Width {
		return
	}
	if _, ok := g.Visits[p.I]; !ok {
		g.Visits[p.I] = make(map[int]int)
	}
	g.Visits[p.I][p.J] += 1
}

// Count of the visits of the position
func (g *GridDataSet) Count(p Position) int {
	return g.Visits[p.I][p.J]
}

// GridAnalyzer counts the cells visited by the episodes, including the final one
type GridAnalyzer struct {
	height  int
	width   int
	dataSet *GridDataSet
}

var _ rl.Analyzer = &GridAnalyzer{}

func NewGridAnalyzer(height, width int) *GridAnalyzer {
	return &GridAnalyzer{
		height:  height,
		width:   width,
		dataSet: NewGridDataSet(height, width),
	}
}

func (a *GridAnalyzer) Analyze(_, _ int, _ string, trace *types.Trace) {
	for i := 0; i < trace.Len(); i++ {
		state, _, _, _, _ := trace.Get(i)
		if p, ok := state.(Position); ok {
			a.dataSet.visit(p)
		}
	}
	if _, _, last, _, ok := trace.Last(); ok {
		if p, ok := last.(Position); ok {
			a.dataSet.visit(p)
		}
	}
}

func (a *GridAnalyzer) DataSet() rl.DataSet {
	return a.dataSet
}

func (a *GridAnalyzer) Reset() {
	a.dataSet = NewGridDataSet(a.height, a.width)
}

// GridPlotComparator records the visits of every experiment as JSON and as a heat map
func GridPlotComparator(figPath string) rl.Comparator {
	return func(run int, names []string, ds []rl.DataSet) error {
		for i := 0; i < len(names); i++ {
			name := names[i]
			dataSet, ok := ds[i].(*GridDataSet)
			if !ok {
				return fmt.Errorf("experiment %s: expected visits, got %T", name, ds[i])
			}
			prefix := path.Join(figPath, strconv.Itoa(run)+"_"+name+"_visits")

			bs, err := json.Marshal(dataSet)
			if err != nil {
				return err
			}
			if err := util.WriteToFile(prefix+".json", string(bs)); err != nil {
				return err
			}

			p := plot.New()
			p.Title.Text = name
			p.Add(plotter.NewHeatMap(dataSet, palette.Heat(20, 1)))
			if err := p.Save(6*vg.Inch, 3*vg.Inch, prefix+".png"); err != nil {
				return err
			}
		}
		return nil
	}
}

var arrows = map[string]string{
	MovementUp.Hash():    "^",
	MovementDown.Hash():  "v",
	MovementLeft.Hash():  "<",
	MovementRight.Hash(): ">",
	Exit.Hash():          "E",
}

func render(height, width int, cell func(Position) string) string {
	var b strings.Builder
	for i := 0; i < height; i++ {
		row := make([]string, width)
		for j := 0; j < width; j++ {
			row[j] = cell(Position{I: i, J: j})
		}
		b.WriteString(strings.Join(row, " "))
		b.WriteString("\n")
	}
	return b.String()
}

func arrow(policy *policies.PolicyTable, p Position) string {
	a := policy.Action(p)
	if a == nil {
		return "."
	}
	if s, ok := arrows[a.Hash()]; ok {
		return s
	}
	return "?"
}

// RenderPolicy draws the policy as arrows, one row of the grid per line.
// Blocked cells are drawn as #.
func (g *GridWorld) RenderPolicy(policy *policies.PolicyTable) string {
	return render(g.config.Height, g.config.Width, func(p Position) string {
		if g.blocked[p] {
			return "#"
		}
		return arrow(policy, p)
	})
}

// RenderPolicy draws the policy as arrows, the cliff as C and the goal as G
func (c *Cliff) RenderPolicy(policy *policies.PolicyTable) string {
	return render(c.height, c.width, func(p Position) string {
		switch {
		case c.IsCliff(p):
			return "C"
		case p.Eq(c.goal):
			return "G"
		}
		return arrow(policy, p)
	})
}

// RenderPath marks the cells of the path with *
func (c *Cliff) RenderPath(path []types.State) string {
	visited := make(map[Position]bool)
	for _, s := range path {
		if p, ok := s.(Position); ok {
			visited[p] = true
		}
	}
	return render(c.height, c.width, func(p Position) string {
		switch {
		case visited[p]:
			return "*"
		case c.IsCliff(p):
			return "C"
		}
		return "."
	})
}
