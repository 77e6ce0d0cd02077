package grid

import (
	"fmt"

	"github.com/zeu5/tabular-rl/types"
)

const (
	CliffStepReward = -1.0
	CliffFallReward = -100.0
)

// CliffActions in the order the learners see them
var CliffActions = []types.Action{
	MovementUp,
	MovementRight,
	MovementDown,
	MovementLeft,
}

// Cliff is the cliff walking problem. The agent starts in the bottom left corner
// and has to reach the bottom right one. Every step costs 1, stepping on the cliff
// between them costs 100 and sends the agent back to the start.
// Moves are deterministic, so the cliff is both an environment and a model.
type Cliff struct {
	height   int
	width    int
	discount float64
	start    Position
	goal     Position
}

var _ types.Environment = &Cliff{}
var _ types.Model = &Cliff{}

func NewCliff(height, width int, discount float64) (*Cliff, error) {
	if height < 2 || width < 2 {
		return nil, fmt.Errorf("cliff needs at least a 2x2 grid, got %dx%d", height, width)
	}
	return &Cliff{
		height:   height,
		width:    width,
		discount: discount,
		start:    Position{I: height - 1, J: 0},
		goal:     Position{I: height - 1, J: width - 1},
	}, nil
}

func (c *Cliff) Height() int {
	return c.height
}

func (c *Cliff) Width() int {
	return c.width
}

func (c *Cliff) Start() Position {
	return c.start
}

func (c *Cliff) Goal() Position {
	return c.goal
}

// IsCliff is true for the cells of the bottom row between start and goal
func (c *Cliff) IsCliff(p Position) bool {
	return p.I == c.height-1 && p.J > 0 && p.J < c.width-1
}

func (c *Cliff) InitialState() types.State {
	return c.start
}

func (c *Cliff) IsTerminal(s types.State) bool {
	return s.(Position).Eq(c.goal)
}

func (c *Cliff) Actions(s types.State) []types.Action {
	if c.IsTerminal(s) {
		return []types.Action{}
	}
	actions := make([]types.Action, len(CliffActions))
	copy(actions, CliffActions)
	return actions
}

func (c *Cliff) DiscountFactor() float64 {
	return c.discount
}

// move clamps the movement to the grid and resolves falls
func (c *Cliff) move(p Position, m *Movement) (Position, float64) {
	next := Position{
		I: max(0, min(c.height-1, p.I+m.DI)),
		J: max(0, min(c.width-1, p.J+m.DJ)),
	}
	if c.IsCliff(next) {
		return c.start, CliffFallReward
	}
	return next, CliffStepReward
}

func (c *Cliff) Step(s types.State, a types.Action) (types.State, float64, error) {
	p := s.(Position)
	m, ok := a.(*Movement)
	if !ok || !types.ContainsAction(c.Actions(s), a) {
		return nil, 0, fmt.Errorf("action %v is not legal in state %s", a, p.Hash())
	}
	next, reward := c.move(p, m)
	return next, reward, nil
}

// States excludes the cliff cells, they are never occupied
func (c *Cliff) States() []types.State {
	states := make([]types.State, 0, c.height*c.width)
	for i := 0; i < c.height; i++ {
		for j := 0; j < c.width; j++ {
			p := Position{I: i, J: j}
			if !c.IsCliff(p) {
				states = append(states, p)
			}
		}
	}
	return states
}

func (c *Cliff) Transitions(s types.State, a types.Action) []types.Transition {
	m, ok := a.(*Movement)
	if !ok {
		return nil
	}
	next, _ := c.move(s.(Position), m)
	return []types.Transition{{Next: next, Probability: 1}}
}

func (c *Cliff) Reward(s types.State, a types.Action, _ types.State) float64 {
	m, ok := a.(*Movement)
	if !ok {
		return 0
	}
	_, reward := c.move(s.(Position), m)
	return reward
}
