package domain

// FrameStatus is the derived execution state of a frame.
type FrameStatus string

const (
	FrameIdle      FrameStatus = "idle"      // Empty plan, waiting for a trigger
	FrameRunning   FrameStatus = "running"   // Plan has steps to execute
	FrameSuspended FrameStatus = "suspended" // Front step awaits the next turn
)

// ResumeMarker records that the front step of a frame's plan is suspended.
type ResumeMarker struct {
	Kind StepKind `json:"kind"`

	// Attempts counts how many times a prompt has been presented.
	Attempts int `json:"attempts,omitempty"`
}

// Frame is one activation record of a dialog.
type Frame struct {
	Dialog string         `json:"dialog"`
	Locals map[string]any `json:"locals,omitempty"`
	Plan   []Step         `json:"plan,omitempty"`

	// Started is set once the beginDialog event has been evaluated.
	Started bool `json:"started,omitempty"`

	// Resume is non-nil while the front step of Plan is suspended.
	Resume *ResumeMarker `json:"resume,omitempty"`

	// ResultProperty is where the caller wants this frame's EndDialog value.
	ResultProperty string `json:"result_property,omitempty"`
}

// NewFrame creates a fresh frame for dialog.
func NewFrame(dialog string) *Frame {
	return &Frame{
		Dialog: dialog,
		Locals: make(map[string]any),
	}
}

// Status derives the frame's state from its plan and resume marker.
func (f *Frame) Status() FrameStatus {
	switch {
	case f.Resume != nil:
		return FrameSuspended
	case len(f.Plan) == 0:
		return FrameIdle
	default:
		return FrameRunning
	}
}

// ReplacePlan installs steps as the whole plan and drops any resume marker.
func (f *Frame) ReplacePlan(steps []Step) {
	f.Plan = CloneSteps(steps)
	f.Resume = nil
}

// AppendPlan adds steps after the pending ones.
func (f *Frame) AppendPlan(steps []Step) {
	f.Plan = append(f.Plan, CloneSteps(steps)...)
}

// PrependPlan splices steps before the pending ones.
func (f *Frame) PrependPlan(steps []Step) {
	if len(steps) == 0 {
		return
	}
	next := make([]Step, 0, len(steps)+len(f.Plan))
	next = append(next, CloneSteps(steps)...)
	next = append(next, f.Plan...)
	f.Plan = next
}

// Front returns the next step to execute.
func (f *Frame) Front() (Step, bool) {
	if len(f.Plan) == 0 {
		return Step{}, false
	}
	return f.Plan[0], true
}

// PopFront consumes the front step.
func (f *Frame) PopFront() {
	if len(f.Plan) == 0 {
		return
	}
	f.Plan = f.Plan[1:]
	if len(f.Plan) == 0 {
		f.Plan = nil
	}
	f.Resume = nil
}

// Stack is the dialog call stack, outermost frame first.
type Stack struct {
	Frames []*Frame `json:"frames"`
}

// Depth returns the number of frames.
func (s *Stack) Depth() int {
	return len(s.Frames)
}

// Empty reports whether no dialog is active.
func (s *Stack) Empty() bool {
	return len(s.Frames) == 0
}

// Active returns the innermost frame, or nil.
func (s *Stack) Active() *Frame {
	if len(s.Frames) == 0 {
		return nil
	}
	return s.Frames[len(s.Frames)-1]
}

// Parent returns the frame beneath the active one, or nil.
func (s *Stack) Parent() *Frame {
	if len(s.Frames) < 2 {
		return nil
	}
	return s.Frames[len(s.Frames)-2]
}

// Push adds f as the new active frame.
func (s *Stack) Push(f *Frame) {
	s.Frames = append(s.Frames, f)
}

// Pop removes and returns the active frame.
func (s *Stack) Pop() *Frame {
	if len(s.Frames) == 0 {
		return nil
	}
	f := s.Frames[len(s.Frames)-1]
	s.Frames[len(s.Frames)-1] = nil
	s.Frames = s.Frames[:len(s.Frames)-1]
	return f
}

// Replace swaps the active frame for f at the same depth.
func (s *Stack) Replace(f *Frame) {
	if len(s.Frames) == 0 {
		s.Frames = append(s.Frames, f)
		return
	}
	s.Frames[len(s.Frames)-1] = f
}

// Dialogs lists the dialog identities from outermost to innermost.
func (s *Stack) Dialogs() []string {
	out := make([]string, 0, len(s.Frames))
	for _, f := range s.Frames {
		out = append(out, f.Dialog)
	}
	return out
}
