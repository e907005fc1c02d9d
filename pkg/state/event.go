package state

// EventType tags a log entry.
type EventType string

const (
	EventSeer    EventType = "seer"
	EventGuard   EventType = "guard"
	EventAttack  EventType = "attack"
	EventExecute EventType = "execute"
)

// Event results and alignments.
const (
	ResultWerewolf    = "werewolf"
	ResultNotWerewolf = "not_werewolf"
	ResultKilled      = "killed"
	ResultGuarded     = "guarded"

	AlignmentWerewolf = "werewolf"
	AlignmentHuman    = "human"
)

// Event is one entry of the append-only game log. Fields not used by a given
// Type are left empty so the JSON form matches game_state.json.
//
//	seer:    actor, target, result (werewolf | not_werewolf)
//	guard:   actor, target
//	attack:  target, result (killed | guarded)
//	execute: target, alignment (werewolf | human), tally, votes
type Event struct {
	Day       int               `json:"day"`
	Phase     Phase             `json:"phase"`
	Type      EventType         `json:"type"`
	Actor     string            `json:"actor,omitempty"`
	Target    string            `json:"target"`
	Result    string            `json:"result,omitempty"`
	Alignment string            `json:"alignment,omitempty"`
	Tally     map[string]int    `json:"tally,omitempty"`
	Votes     map[string]string `json:"votes,omitempty"`
}

// SeerEvent builds a seer log entry.
func SeerEvent(day int, actor, target, result string) Event {
	return Event{Day: day, Phase: PhaseNight, Type: EventSeer, Actor: actor, Target: target, Result: result}
}

// GuardEvent builds a guard log entry.
func GuardEvent(day int, actor, target string) Event {
	return Event{Day: day, Phase: PhaseNight, Type: EventGuard, Actor: actor, Target: target}
}

// AttackEvent builds an attack log entry.
func AttackEvent(day int, target, result string) Event {
	return Event{Day: day, Phase: PhaseNight, Type: EventAttack, Target: target, Result: result}
}

// ExecuteEvent builds an execute log entry.
func ExecuteEvent(day int, target, alignment string, tally map[string]int, votes map[string]string) Event {
	return Event{
		Day:       day,
		Phase:     PhaseDayVote,
		Type:      EventExecute,
		Target:    target,
		Alignment: alignment,
		Tally:     tally,
		Votes:     votes,
	}
}
