package selection

import "maps"

// Thread is one posted item awaiting a decision. Ref is provider specific:
// a Slack message timestamp or a reply file path.
type Thread struct {
	Index     int
	Ref       string
	HookCount int
}

// Result is the decision recorded for one item. Numbers are 1-based.
type Result struct {
	Index    int
	Excluded bool
	Numbers  []int
}

// State tracks decisions across polls.
type State struct {
	Threads []Thread
	Results map[int]Result
}

// NewState starts with every thread pending.
func NewState(threads []Thread) State {
	return State{Threads: append([]Thread(nil), threads...), Results: map[int]Result{}}
}

// Pending returns the threads without a decision, in posting order.
func (s State) Pending() []Thread {
	out := make([]Thread, 0, len(s.Threads))
	for _, t := range s.Threads {
		if _, ok := s.Results[t.Index]; !ok {
			out = append(out, t)
		}
	}
	return out
}

// Done reports whether every thread has a decision.
func (s State) Done() bool {
	return len(s.Pending()) == 0
}

// Counts returns how many items were selected and how many excluded.
func (s State) Counts() (selected, excluded int) {
	for _, r := range s.Results {
		if r.Excluded {
			excluded++
		} else {
			selected++
		}
	}
	return selected, excluded
}

// Step applies the replies seen for pending threads, keyed by item index.
// Within a thread the first decisive reply wins; replies that parse but name
// hooks out of range are ignored. The input state is not modified.
func Step(state State, replies map[int][]string) (State, bool) {
	next := State{Threads: state.Threads, Results: maps.Clone(state.Results)}
	if next.Results == nil {
		next.Results = map[int]Result{}
	}
	for _, thread := range state.Threads {
		if _, decided := next.Results[thread.Index]; decided {
			continue
		}
		for _, text := range replies[thread.Index] {
			reply, ok := ParseReply(text)
			if !ok || !reply.Valid(thread.HookCount) {
				continue
			}
			next.Results[thread.Index] = Result{
				Index:    thread.Index,
				Excluded: reply.Skip,
				Numbers:  reply.Numbers,
			}
			break
		}
	}
	return next, next.Done()
}
