package recognize

import (
	"github.com/dekarrin/genrec/internal/genrec/lextarget"
	"github.com/dekarrin/genrec/internal/util"
)

// InputState is spec.md §3's "input-state snapshot": an opaque capture of
// the target lexer's cursor, the current lookahead token, and the last
// matched token text, as used by the `$push`/`$pop` control actions.
type InputState struct {
	lexSnap lextarget.Snapshot
	tok     lextarget.Token
	lastStr string
}

// stateStackDepth is the minimum bound spec.md §4.2 requires for the
// `$push`/`$pop` stack.
const stateStackDepth = 16

// stateStack is the bounded LIFO stack backing `$push`/`$pop`, grounded on
// internal/util.Stack with an explicit capacity check layered on top (the
// generic Stack itself is unbounded; genrec.c's INPUT_STACK_SIZE bound is
// enforced here instead).
type stateStack struct {
	of util.Stack[InputState]
}

func (s *stateStack) push(st InputState) error {
	if s.of.Len() >= stateStackDepth {
		return errStackOverflow
	}
	s.of.Push(st)
	return nil
}

func (s *stateStack) pop() (InputState, error) {
	if s.of.Empty() {
		return InputState{}, errStackUnderflow
	}
	return s.of.Pop(), nil
}
