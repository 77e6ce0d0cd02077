package policies

import (
	"math"

	"github.com/zeu5/tabular-rl/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Softmax draws actions from the Boltzmann distribution exp(Q(s,a)/τ) / Σ exp(Q(s,a')/τ)
type Softmax struct {
	temperature float64
	rand        rand.Source
}

var _ Bandit = &Softmax{}

func NewSoftmax(temperature float64, src rand.Source) (*Softmax, error) {
	if temperature <= 0 {
		return nil, ErrInvalidTemperature
	}
	return &Softmax{
		temperature: temperature,
		rand:        src,
	}, nil
}

func (s *Softmax) Temperature() float64 {
	return s.temperature
}

// Probabilities of selecting each of the actions in the state
func (s *Softmax) Probabilities(state types.State, actions []types.Action, q QFunction) ([]float64, error) {
	if len(actions) == 0 {
		return nil, types.ErrNoActions
	}
	if s.temperature <= 0 {
		return nil, ErrInvalidTemperature
	}
	vals := make([]float64, len(actions))
	for i, action := range actions {
		vals[i] = q.Get(state, action) / s.temperature
	}
	// shifting by the max keeps exp from overflowing
	maxVal := floats.Max(vals)
	for i, val := range vals {
		vals[i] = math.Exp(val - maxVal)
	}
	floats.Scale(1/floats.Sum(vals), vals)
	return vals, nil
}

func (s *Softmax) Select(state types.State, actions []types.Action, q QFunction) (types.Action, error) {
	weights, err := s.Probabilities(state, actions, q)
	if err != nil {
		return nil, err
	}
	i, ok := sampleuv.NewWeighted(weights, s.rand).Take()
	if !ok {
		return nil, types.ErrNoActions
	}
	return actions[i], nil
}

func (s *Softmax) Reset() {}
