package research

import "github.com/akolanti/ResearchAPI/pkg/result"

type Step string

const (
	StepOutline   Step = "outline"
	StepSearch    Step = "search"
	StepSynthesis Step = "synthesis"
)

type Action int

const (
	Abort Action = iota
	Degrade
)

func (a Action) String() string {
	if a == Degrade {
		return "degrade"
	}
	return "abort"
}

type rule struct {
	byKind   map[result.Kind]Action
	fallback Action
}

// decisions maps a failed step and its error kind to what the run does next.
// Outline failures end the run; section failures degrade only that section.
var decisions = map[Step]rule{
	StepOutline:   {fallback: Abort},
	StepSearch:    {fallback: Degrade},
	StepSynthesis: {fallback: Degrade},
}

// Decide looks up the action for a failure. Cancellation always aborts.
func Decide(step Step, kind result.Kind) Action {
	if kind == result.KindCanceled {
		return Abort
	}
	r, ok := decisions[step]
	if !ok {
		return Abort
	}
	if a, ok := r.byKind[kind]; ok {
		return a
	}
	return r.fallback
}
