// ABOUTME: Ordered list of effect stages applied to every block
// ABOUTME: Resets a stage's state whenever it is switched on or off
package effects

// Stage is one block processor in the chain
type Stage interface {
	Name() string
	Enabled(p *Params) bool
	Process(block [][]float32, p *Params)
	Reset()
}

// Chain runs its stages in order, skipping disabled ones
type Chain struct {
	stages  []Stage
	enabled []bool
}

// NewChain creates a chain from stages in processing order
func NewChain(stages ...Stage) *Chain {
	return &Chain{
		stages:  stages,
		enabled: make([]bool, len(stages)),
	}
}

// NewDefaultChain builds the engine's chain: midpass, then bitcrush
func NewDefaultChain(sampleRate, channels int) *Chain {
	return NewChain(
		NewMidpass(sampleRate, channels),
		NewBitcrush(channels),
	)
}

// Stages returns the stages in processing order
func (c *Chain) Stages() []Stage {
	return c.stages
}

// Process applies every enabled stage to the block in place
func (c *Chain) Process(block [][]float32, p *Params) {
	for i, stage := range c.stages {
		on := stage.Enabled(p)
		if on != c.enabled[i] {
			stage.Reset()
			c.enabled[i] = on
		}
		if on {
			stage.Process(block, p)
		}
	}
}

// Reset clears the state of every stage
func (c *Chain) Reset() {
	for i, stage := range c.stages {
		stage.Reset()
		c.enabled[i] = false
	}
}
