package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jwebster45206/werewolf-engine/internal/gm"
	"github.com/jwebster45206/werewolf-engine/pkg/engine"
	"github.com/jwebster45206/werewolf-engine/pkg/policy"
)

// parseNightArgs reads "seer=X guard=Y attack=Z" into night actions.
func parseNightArgs(args []string) (engine.NightActions, error) {
	var out engine.NightActions
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || value == "" {
			return out, fmt.Errorf("expected key=name, got %q", arg)
		}
		switch strings.ToLower(key) {
		case "seer":
			out.Seer = value
		case "guard":
			out.Guard = value
		case "attack":
			out.Attack = value
		default:
			return out, fmt.Errorf("unknown night action %q", key)
		}
	}
	return out, nil
}

func formatNight(out *gm.NightOutcome) string {
	if out.Need.Any() {
		var keys []string
		if out.Need.Seer {
			keys = append(keys, "seer=<name>")
		}
		if out.Need.Guard {
			keys = append(keys, "guard=<name>")
		}
		if out.Need.Attack {
			keys = append(keys, "attack=<name>")
		}
		return "The night needs your choice: /night " + strings.Join(keys, " ")
	}

	var b strings.Builder
	switch {
	case out.Result.Victim != "":
		fmt.Fprintf(&b, "%s was found dead in the morning.", out.Result.Victim)
	case out.Result.Guarded:
		b.WriteString("The attack was guarded. Nobody died.")
	default:
		b.WriteString("Nobody died.")
	}
	writeWin(&b, out.Result.Win)
	return b.String()
}

func formatVote(out *gm.VoteOutcome) string {
	voters := make([]string, 0, len(out.Ballots))
	for v := range out.Ballots {
		voters = append(voters, v)
	}
	sort.Strings(voters)

	var b strings.Builder
	b.WriteString("Ballots:\n")
	for _, v := range voters {
		fmt.Fprintf(&b, "• %s → %s\n", v, out.Ballots[v])
	}
	if len(out.Result.Tied) > 0 {
		fmt.Fprintf(&b, "Tie between %s, decided by lot.\n", strings.Join(out.Result.Tied, ", "))
	}
	fmt.Fprintf(&b, "%s was executed.", out.Result.Executed)
	writeWin(&b, out.Result.Win)
	return b.String()
}

func formatBrief(br policy.Briefing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Wolves alive: %d, village alive: %d, rope margin: %d\n", br.WolvesAlive, br.VillageAlive, br.RopeMargin)
	if len(br.ConfirmedWhite) > 0 {
		fmt.Fprintf(&b, "Confirmed white: %s\n", strings.Join(br.ConfirmedWhite, ", "))
	}
	if len(br.ConfirmedBlack) > 0 {
		fmt.Fprintf(&b, "Confirmed black: %s\n", strings.Join(br.ConfirmedBlack, ", "))
	}
	for _, s := range br.Suspicion {
		fmt.Fprintf(&b, "• %s: %d\n", s.Name, s.Score)
	}
	if br.VotePlan != policy.VotePlanNone && br.VotePlan != "" {
		fmt.Fprintf(&b, "Vote plan: %s\n", br.VotePlan)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeWin(b *strings.Builder, win engine.WinStatus) {
	switch win {
	case engine.WinVillage:
		b.WriteString("\nThe village wins.")
	case engine.WinWerewolf:
		b.WriteString("\nThe werewolves win.")
	}
}
