// Package state tracks the single decision a conversation may be waiting on.
package state

type Status string

const (
	StatusIdle           Status = "IDLE"
	StatusAwaitingChoice Status = "AWAITING_CHOICE"
)

type Action string

const (
	ActionAddToCart Action = "ADD_TO_CART"
	ActionSeeMore   Action = "SEE_MORE"
)

type ChoiceType string

// ChoiceProductNextStep follows an answer about a single product.
const ChoiceProductNextStep ChoiceType = "PRODUCT_NEXT_STEP"

// PendingChoice maps short reply tokens ("1", "2") to actions.
type PendingChoice struct {
	Type    ChoiceType        `json:"type"`
	Options map[string]Action `json:"options"`
	Payload any               `json:"payload,omitempty"`
}

func productNextStepOptions() map[string]Action {
	return map[string]Action{
		"1": ActionAddToCart,
		"2": ActionSeeMore,
	}
}

// ConversationState holds at most one PendingChoice. It is owned by a single
// session and is not safe for concurrent use on its own.
type ConversationState struct {
	pending *PendingChoice
}

func New() *ConversationState {
	return &ConversationState{}
}

func (s *ConversationState) Status() Status {
	if s.pending == nil {
		return StatusIdle
	}
	return StatusAwaitingChoice
}

func (s *ConversationState) Awaiting() bool {
	return s.pending != nil
}

// Pending returns a copy of the outstanding choice, or nil.
func (s *ConversationState) Pending() *PendingChoice {
	if s.pending == nil {
		return nil
	}
	cp := *s.pending
	cp.Options = make(map[string]Action, len(s.pending.Options))
	for k, v := range s.pending.Options {
		cp.Options[k] = v
	}
	return &cp
}

// SetPendingChoice replaces any outstanding choice.
func (s *ConversationState) SetPendingChoice(t ChoiceType, payload any) {
	s.pending = &PendingChoice{
		Type:    t,
		Options: productNextStepOptions(),
		Payload: payload,
	}
}

func (s *ConversationState) Clear() {
	s.pending = nil
}

// Lookup reports the action bound to token without touching the state.
func (s *ConversationState) Lookup(token string) (Action, bool) {
	return s.pending.Lookup(token)
}

// Resolve consumes the pending choice when token is one of its options.
// An unknown token, or no pending choice at all, returns false and leaves
// the state as it was.
func (s *ConversationState) Resolve(token string) (Action, bool) {
	action, ok := s.Lookup(token)
	if !ok {
		return "", false
	}
	s.pending = nil
	return action, true
}

func (p *PendingChoice) Lookup(token string) (Action, bool) {
	if p == nil {
		return "", false
	}
	action, ok := p.Options[token]
	return action, ok
}
