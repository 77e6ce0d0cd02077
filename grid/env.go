package grid

import (
	"fmt"

	"github.com/zeu5/tabular-rl/types"
)

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Position in the grid, row I from the top and column J from the left
type Position struct {
	I int
	J int
}

var _ types.State = Position{}

// TerminalState is the absorbing state entered by exiting a goal cell
var TerminalState = Position{I: -1, J: -1}

func (p Position) Hash() string {
	if p == TerminalState {
		return "terminal"
	}
	return fmt.Sprintf("(%d, %d)", p.I, p.J)
}

func (p Position) Eq(other Position) bool {
	return p.I == other.I && p.J == other.J
}

func (p Position) move(m *Movement) Position {
	return Position{I: p.I + m.DI, J: p.J + m.DJ}
}

type Movement struct {
	Direction string
	DI        int
	DJ        int
}

var _ types.Action = &Movement{}

func (m *Movement) Hash() string {
	return m.Direction
}

var (
	MovementUp    = &Movement{"Up", -1, 0}
	MovementDown  = &Movement{"Down", 1, 0}
	MovementLeft  = &Movement{"Left", 0, -1}
	MovementRight = &Movement{"Right", 0, 1}
	// Exit is the only action of a goal cell
	Exit = &Movement{"Exit", 0, 0}

	AllMovements = []types.Action{
		MovementUp,
		MovementDown,
		MovementLeft,
		MovementRight,
	}
)

// perpendicular movements an agent can slip into
func slips(m *Movement) (*Movement, *Movement) {
	if m.DI != 0 {
		return MovementLeft, MovementRight
	}
	return MovementUp, MovementDown
}

// GridConfig describes a grid world
type GridConfig struct {
	Height int
	Width  int
	// Blocked cells cannot be entered
	Blocked []Position
	// Terminals are the goal cells with the reward collected when exiting them
	Terminals map[Position]float64
	// StepReward of every other cell
	StepReward float64
	// Noise is the probability of slipping, split between the two perpendicular moves
	Noise    float64
	Discount float64
	Start    Position
}

// GridWorld is a grid model with state rewards: every cell yields its reward when
// it is left. Goal cells only allow Exit, which moves to TerminalState with
// probability 1 and pays the goal reward. Only TerminalState ends an episode.
type GridWorld struct {
	config  GridConfig
	blocked map[Position]bool
}

var _ types.Model = &GridWorld{}
var _ types.StateRewarder = &GridWorld{}

func NewGridWorld(config GridConfig) (*GridWorld, error) {
	if config.Height <= 0 || config.Width <= 0 {
		return nil, fmt.Errorf("invalid grid size %dx%d", config.Height, config.Width)
	}
	if config.Noise < 0 || config.Noise > 1 {
		return nil, fmt.Errorf("noise must be in [0, 1], got %g", config.Noise)
	}
	g := &GridWorld{
		config:  config,
		blocked: make(map[Position]bool),
	}
	for _, b := range config.Blocked {
		g.blocked[b] = true
	}
	if !g.inside(config.Start) {
		return nil, fmt.Errorf("start %s is not a free cell", config.Start.Hash())
	}
	for t := range config.Terminals {
		if !g.inside(t) {
			return nil, fmt.Errorf("terminal %s is not a free cell", t.Hash())
		}
	}
	return g, nil
}

// RussellNorvig is the 3x4 grid with a blocked cell at (1, 1), +1 at (0, 3),
// -1 at (1, 3), step reward -0.04 and noise 0.2
func RussellNorvig(discount float64) *GridWorld {
	g, _ := NewGridWorld(GridConfig{
		Height:  3,
		Width:   4,
		Blocked: []Position{{I: 1, J: 1}},
		Terminals: map[Position]float64{
			{I: 0, J: 3}: 1,
			{I: 1, J: 3}: -1,
		},
		StepReward: -0.04,
		Noise:      0.2,
		Discount:   discount,
		Start:      Position{I: 2, J: 0},
	})
	return g
}

func (g *GridWorld) Config() GridConfig {
	return g.config
}

func (g *GridWorld) inside(p Position) bool {
	if p.I < 0 || p.I >= g.config.Height || p.J < 0 || p.J >= g.config.Width {
		return false
	}
	return !g.blocked[p]
}

func (g *GridWorld) IsBlocked(p Position) bool {
	return g.blocked[p]
}

func (g *GridWorld) States() []types.State {
	states := make([]types.State, 0, g.config.Height*g.config.Width)
	for i := 0; i < g.config.Height; i++ {
		for j := 0; j < g.config.Width; j++ {
			p := Position{I: i, J: j}
			if !g.blocked[p] {
				states = append(states, p)
			}
		}
	}
	return append(states, TerminalState)
}

// IsGoal is true for the cells that are exited for a terminal reward
func (g *GridWorld) IsGoal(p Position) bool {
	_, ok := g.config.Terminals[p]
	return ok
}

func (g *GridWorld) IsTerminal(s types.State) bool {
	return s.(Position) == TerminalState
}

func (g *GridWorld) Actions(s types.State) []types.Action {
	p := s.(Position)
	if p == TerminalState {
		return []types.Action{}
	}
	if g.IsGoal(p) {
		return []types.Action{Exit}
	}
	actions := make([]types.Action, len(AllMovements))
	copy(actions, AllMovements)
	return actions
}

// target cell of the movement, staying in place when hitting a wall or a blocked cell
func (g *GridWorld) target(p Position, m *Movement) Position {
	next := p.move(m)
	if !g.inside(next) {
		return p
	}
	return next
}

func (g *GridWorld) Transitions(s types.State, a types.Action) []types.Transition {
	p := s.(Position)
	m, ok := a.(*Movement)
	if !ok {
		return nil
	}
	if p == TerminalState {
		return nil
	}
	if g.IsGoal(p) {
		if m != Exit {
			return nil
		}
		return []types.Transition{{Next: TerminalState, Probability: 1}}
	}
	if m == Exit {
		return nil
	}
	left, right := slips(m)
	outcomes := []types.Transition{
		{Next: g.target(p, m), Probability: 1 - g.config.Noise},
		{Next: g.target(p, left), Probability: g.config.Noise / 2},
		{Next: g.target(p, right), Probability: g.config.Noise / 2},
	}
	// merge duplicate outcomes keeping the first occurrence order
	merged := make([]types.Transition, 0, len(outcomes))
	index := make(map[Position]int)
	for _, o := range outcomes {
		if o.Probability == 0 {
			continue
		}
		next := o.Next.(Position)
		if i, ok := index[next]; ok {
			merged[i].Probability += o.Probability
			continue
		}
		index[next] = len(merged)
		merged = append(merged, o)
	}
	return merged
}

func (g *GridWorld) StateReward(s types.State) float64 {
	p := s.(Position)
	if p == TerminalState {
		return 0
	}
	if r, ok := g.config.Terminals[p]; ok {
		return r
	}
	return g.config.StepReward
}

func (g *GridWorld) Reward(s types.State, _ types.Action, _ types.State) float64 {
	return g.StateReward(s)
}

func (g *GridWorld) InitialState() types.State {
	return g.config.Start
}

func (g *GridWorld) DiscountFactor() float64 {
	return g.config.Discount
}
