package gm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/werewolf-engine/internal/agents"
	"github.com/jwebster45206/werewolf-engine/internal/archive"
	"github.com/jwebster45206/werewolf-engine/internal/config"
	"github.com/jwebster45206/werewolf-engine/internal/services"
	"github.com/jwebster45206/werewolf-engine/pkg/chat"
	"github.com/jwebster45206/werewolf-engine/pkg/engine"
	"github.com/jwebster45206/werewolf-engine/pkg/policy"
	"github.com/jwebster45206/werewolf-engine/pkg/prompts"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/jwebster45206/werewolf-engine/pkg/storage"
	"github.com/jwebster45206/werewolf-engine/pkg/validator"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// village is a day-1 discussion with the human seated as a villager.
func village() *state.GameState {
	return &state.GameState{
		ID:     uuid.New(),
		Day:    1,
		Phase:  state.PhaseDayDiscussion,
		Player: "パメラ",
		Players: []state.Player{
			{Name: "パメラ", Role: state.RoleVillager, Alive: true},
			{Name: "ヤコブ", Role: state.RoleSeer, Alive: true},
			{Name: "シモン", Role: state.RoleWerewolf, Alive: true},
			{Name: "ディータ", Role: state.RoleWerewolf, Alive: true},
			{Name: "オットー", Role: state.RoleMadman, Alive: true},
			{Name: "リーザ", Role: state.RoleMedium, Alive: true},
			{Name: "ニコラス", Role: state.RoleBodyguard, Alive: true},
			{Name: "カタリナ", Role: state.RoleVillager, Alive: true},
			{Name: "ヨアヒム", Role: state.RoleVillager, Alive: true},
		},
	}
}

type fixture struct {
	master *Master
	store  *storage.MockStorage
	gen    *services.MockGenerator
	gs     *state.GameState
}

// newFixture loads gs into a master that never bluffs.
func newFixture(t *testing.T, gs *state.GameState, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMockStorage()
	gen := services.NewMockGenerator()

	require.NoError(t, store.SaveGameState(ctx, gs.ID, gs))
	opts = append([]Option{
		WithRand(rand.New(rand.NewPCG(7, 11))),
		WithClaimProbabilities(policy.ClaimProbabilities{Nobody: 1}),
	}, opts...)
	m, err := New(ctx, store, gen, discard(), opts...)
	require.NoError(t, err)
	require.NoError(t, m.Load(ctx, gs.ID))
	return &fixture{master: m, store: store, gen: gen, gs: gs}
}

var npcName = regexp.MustCompile(`あなたは(\S+?)として人狼ゲームに参加しています`)

func isClaimPrompt(req *chat.GenerateRequest) bool {
	return strings.Contains(req.Prompt(), `"co_claims"`)
}

func TestMaster_NoGame(t *testing.T) {
	m, err := New(context.Background(), storage.NewMockStorage(), services.NewMockGenerator(), discard())
	require.NoError(t, err)

	_, err = m.State()
	assert.ErrorIs(t, err, ErrNoGame)
	_, err = m.ResolveVote(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoGame)
	assert.ErrorIs(t, m.Load(context.Background(), uuid.New()), ErrNoGame)
}

func TestMaster_Setup(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMockStorage()
	m, err := New(ctx, store, services.NewMockGenerator(), discard(), WithRand(rand.New(rand.NewPCG(1, 2))))
	require.NoError(t, err)

	gs, err := m.Setup(ctx, "パメラ")
	require.NoError(t, err)
	assert.Equal(t, "パメラ", gs.Player)
	assert.Len(t, gs.Players, len(state.RoleSet))

	saved, err := store.LoadGameState(ctx, gs.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	notes, err := store.LoadNotes(ctx, gs.ID)
	require.NoError(t, err)
	assert.NotNil(t, notes)

	_, err = m.Setup(ctx, "名無し")
	assert.Error(t, err)
}

func TestMaster_ResolveNight(t *testing.T) {
	ctx := context.Background()

	t.Run("human seer must choose", func(t *testing.T) {
		gs := village()
		gs.Phase = state.PhaseNight
		gs.Players[0].Role, gs.Players[1].Role = state.RoleSeer, state.RoleVillager
		f := newFixture(t, gs)

		out, err := f.master.ResolveNight(ctx, engine.NightActions{})
		require.NoError(t, err)
		assert.True(t, out.Need.Seer)
		assert.Nil(t, out.Result)

		snap, _ := f.master.State()
		assert.Equal(t, 1, snap.Day, "Expected night not to be applied")
		assert.Equal(t, state.PhaseNight, snap.Phase)
	})

	t.Run("npc night is applied", func(t *testing.T) {
		gs := village()
		gs.Phase = state.PhaseNight
		f := newFixture(t, gs)

		out, err := f.master.ResolveNight(ctx, engine.NightActions{})
		require.NoError(t, err)
		require.NotNil(t, out.Result)
		assert.False(t, out.Need.Any())
		assert.NotEmpty(t, out.Actions.Attack)

		snap, _ := f.master.State()
		assert.Equal(t, 2, snap.Day)
		assert.Equal(t, state.PhaseDayDiscussion, snap.Phase)

		saved, _ := f.store.LoadGameState(ctx, gs.ID)
		assert.Equal(t, 2, saved.Day, "Expected night to be persisted")
	})

	t.Run("claimed medium reveals yesterday's execution", func(t *testing.T) {
		gs := village()
		gs.Phase = state.PhaseNight
		gs.Players[2].Alive = false
		gs.Log = append(gs.Log, state.ExecuteEvent(1, "シモン", state.AlignmentWerewolf, map[string]int{"シモン": 5}, nil))
		f := newFixture(t, gs)
		f.master.notes.RecordClaim("リーザ", state.RoleMedium, 1)

		out, err := f.master.ResolveNight(ctx, engine.NightActions{})
		require.NoError(t, err)

		notes, _ := f.master.Notes()
		if out.Result.Victim == "リーザ" {
			assert.Empty(t, notes.PublicMediumResults)
			return
		}
		require.Len(t, notes.PublicMediumResults, 1)
		assert.Equal(t, state.MediumResult{Day: 1, Actor: "リーザ", Target: "シモン", Result: state.ResultWerewolf}, notes.PublicMediumResults[0])
	})
}

func TestMaster_ResolveVote(t *testing.T) {
	ctx := context.Background()

	t.Run("advances from discussion and counts the human", func(t *testing.T) {
		f := newFixture(t, village())
		out, err := f.master.ResolveVote(ctx, "シモン")
		require.NoError(t, err)
		assert.Equal(t, "シモン", out.Ballots["パメラ"])
		assert.Len(t, out.Ballots, 9)
		require.NotNil(t, out.Result)

		snap, _ := f.master.State()
		assert.Equal(t, state.PhaseNight, snap.Phase)
		assert.False(t, snap.IsAlive(out.Result.Executed))
	})

	t.Run("dead human ballot is dropped", func(t *testing.T) {
		gs := village()
		gs.Phase = state.PhaseDayVote
		gs.Players[0].Alive = false
		f := newFixture(t, gs)

		out, err := f.master.ResolveVote(ctx, "シモン")
		require.NoError(t, err)
		_, ok := out.Ballots["パメラ"]
		assert.False(t, ok)
	})

	t.Run("invalid human vote leaves the phase alone", func(t *testing.T) {
		f := newFixture(t, village())
		_, err := f.master.ResolveVote(ctx, "名無し")
		assert.Error(t, err)
		snap, _ := f.master.State()
		assert.Equal(t, state.PhaseDayDiscussion, snap.Phase)
	})

	t.Run("decided ballots are the ones cast", func(t *testing.T) {
		f := newFixture(t, village())
		ballots, err := f.master.Ballots(ctx)
		require.NoError(t, err)
		require.Len(t, ballots, 8)

		out, err := f.master.ResolveVote(ctx, "")
		require.NoError(t, err)
		for voter, b := range ballots {
			assert.Equal(t, b.Target, out.Ballots[voter], "Expected %s to vote as acted out", voter)
		}
		notes, _ := f.master.Notes()
		assert.Empty(t, notes.PendingVotes)
	})
}

func TestMaster_Brief(t *testing.T) {
	gs := village()
	gs.Log = append(gs.Log, state.SeerEvent(0, "ヤコブ", "シモン", state.ResultWerewolf))
	f := newFixture(t, gs, WithClaimProbabilities(policy.ClaimProbabilities{Madman: 1}))
	f.master.notes.RecordClaim("ヤコブ", state.RoleSeer, 1)

	b, err := f.master.Brief(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "シモン", b.VotePlan)
	assert.Contains(t, b.CounterClaims, "オットー")

	saved, _ := f.store.LoadNotes(context.Background(), gs.ID)
	assert.Equal(t, "シモン", saved.VillageVoteTarget)
	assert.True(t, saved.HasCounterClaimed("オットー"))
}

func TestMaster_Discussion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, village())
	f.gen.GenerateFunc = func(ctx context.Context, req *chat.GenerateRequest) (string, error) {
		if isClaimPrompt(req) {
			return "```json\n{\"co_claims\": [{\"name\": \"ヤコブ\", \"role\": \"seer\"}, {\"name\": \"名無し\", \"role\": \"seer\"}, {\"name\": \"シモン\", \"role\": \"werewolf\"}]}\n```", nil
		}
		name := npcName.FindStringSubmatch(req.Prompt())[1]
		if name == "ヤコブ" {
			return `{"thought": "名乗る", "message": "ヤコブ「俺が占い師だべ」"}`, nil
		}
		return `{"thought": "様子見", "message": "` + name + `「なるほど」"}`, nil
	}

	progress := make(chan agents.Progress, 64)
	out, err := f.master.Discussion(ctx, "おはよう", progress)
	require.NoError(t, err)

	assert.Equal(t, "day1_disc1", out.Key)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 1, out.Claims)
	assert.True(t, strings.HasPrefix(out.Text, "パメラ「おはよう」\n\nヤコブ「俺が占い師だべ」"), "Expected player line then the announcing seer, got %s", out.Text)

	stored, _ := f.store.LoadScene(ctx, f.gs.ID, "day1_disc1")
	assert.Equal(t, out.Text, stored)
	assert.Equal(t, "名乗る", f.store.Thoughts(f.gs.ID, "day1_disc1")["ヤコブ"])

	notes, _ := f.master.Notes()
	role, ok := notes.ClaimedRole("ヤコブ")
	assert.True(t, ok)
	assert.Equal(t, state.RoleSeer, role)
	assert.False(t, notes.HasClaimed("シモン"))

	// The second round numbers itself and carries the first as context.
	var sawPrior bool
	f.gen.GenerateFunc = func(ctx context.Context, req *chat.GenerateRequest) (string, error) {
		if isClaimPrompt(req) {
			return `{"co_claims": []}`, nil
		}
		if strings.Contains(req.Prompt(), "=== disc1 ===") {
			sawPrior = true
		}
		name := npcName.FindStringSubmatch(req.Prompt())[1]
		return `{"thought": "", "message": "` + name + `「続けよう」"}`, nil
	}
	out, err = f.master.Discussion(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "day1_disc2", out.Key)
	assert.True(t, sawPrior, "Expected disc1 to be passed as prior context")
}

func TestMaster_DiscussionCounterClaims(t *testing.T) {
	ctx := context.Background()

	t.Run("claimant decided by a briefing is hinted at disc1", func(t *testing.T) {
		f := newFixture(t, village(), WithClaimProbabilities(policy.ClaimProbabilities{Madman: 1}))
		b, err := f.master.Brief(ctx)
		require.NoError(t, err)
		require.Contains(t, b.CounterClaims, "オットー")

		var mu sync.Mutex
		var hinted bool
		f.gen.GenerateFunc = func(ctx context.Context, req *chat.GenerateRequest) (string, error) {
			if isClaimPrompt(req) {
				return `{"co_claims": []}`, nil
			}
			name := npcName.FindStringSubmatch(req.Prompt())[1]
			if name == "オットー" && strings.Contains(req.Prompt(), agents.BluffClaimHint) {
				mu.Lock()
				hinted = true
				mu.Unlock()
			}
			return `{"thought": "", "message": "` + name + `「うん」"}`, nil
		}

		_, err = f.master.Discussion(ctx, "", nil)
		require.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		assert.True(t, hinted, "Expected the decided madman to be told to claim")
	})

	t.Run("later discussions decide no new claimants", func(t *testing.T) {
		f := newFixture(t, village())
		_, err := f.master.Discussion(ctx, "", nil)
		require.NoError(t, err)

		f.master.claimProbs = policy.ClaimProbabilities{Madman: 1}
		out, err := f.master.Discussion(ctx, "", nil)
		require.NoError(t, err)
		assert.Equal(t, "day1_disc2", out.Key)

		notes, _ := f.master.Notes()
		assert.Empty(t, notes.CounterClaimActors, "Expected no claimant that could never be hinted")
	})
}

func TestMaster_DiscussionRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, village())
	f.gen.GenerateFunc = func(ctx context.Context, req *chat.GenerateRequest) (string, error) {
		if isClaimPrompt(req) {
			return `{"co_claims": []}`, nil
		}
		prompt := req.Prompt()
		name := npcName.FindStringSubmatch(prompt)[1]
		if name == "カタリナ" && !strings.Contains(prompt, prompts.RetryFeedbackHeader) {
			return `{"thought": "", "message": "カタリナ「シモン(人狼)が怪しいよね」"}`, nil
		}
		return `{"thought": "", "message": "` + name + `「うん」"}`, nil
	}

	out, err := f.master.Discussion(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Attempts)
	require.NotEmpty(t, out.Rejected)
	assert.Equal(t, "シモン", out.Rejected[0].Name)
	assert.NotContains(t, out.Text, "(人狼)")
}

func TestMaster_DiscussionDeadSpeakerRetry(t *testing.T) {
	ctx := context.Background()
	gs := village()
	gs.Players[2].Alive = false
	f := newFixture(t, gs)

	var (
		mu       sync.Mutex
		retried  []string
		attempts = map[string]int{}
	)
	f.gen.GenerateFunc = func(ctx context.Context, req *chat.GenerateRequest) (string, error) {
		if isClaimPrompt(req) {
			return `{"co_claims": []}`, nil
		}
		prompt := req.Prompt()
		name := npcName.FindStringSubmatch(prompt)[1]

		mu.Lock()
		attempts[name]++
		first := attempts[name] == 1
		if strings.Contains(prompt, prompts.RetryFeedbackHeader) {
			retried = append(retried, prompt)
		}
		mu.Unlock()

		if name == "カタリナ" && first {
			return `{"thought": "", "message": "シモン「まだ生きてるぞ」"}`, nil
		}
		return `{"thought": "", "message": "` + name + `「うん」"}`, nil
	}

	out, err := f.master.Discussion(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Attempts)
	require.Len(t, out.Rejected, 1)
	assert.Equal(t, validator.KindDeadSpeaker, out.Rejected[0].Kind)
	assert.Equal(t, "シモン", out.Rejected[0].Name)
	assert.NotContains(t, out.Text, "シモン「")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, retried, len(attempts), "Expected every speaker to be regenerated with feedback")
	for _, p := range retried {
		assert.Contains(t, p, out.Rejected[0].Message)
	}
}

func TestMaster_DiscussionDeadPlayerLine(t *testing.T) {
	gs := village()
	gs.Players[0].Alive = false
	f := newFixture(t, gs)

	_, err := f.master.Discussion(context.Background(), "まだいるよ", nil)
	assert.ErrorIs(t, err, ErrPlayerDead)
	assert.Empty(t, f.gen.Calls(), "Expected no generation for a dead player's line")

	out, err := f.master.Discussion(context.Background(), "", nil)
	require.NoError(t, err)
	assert.NotContains(t, out.Text, "パメラ「")
}

func TestMaster_ClaimExtractionReleasesLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, village())

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.gen.GenerateFunc = func(ctx context.Context, req *chat.GenerateRequest) (string, error) {
		if isClaimPrompt(req) {
			once.Do(func() { close(started) })
			<-release
			return `{"co_claims": [{"name": "ヤコブ", "role": "seer"}]}`, nil
		}
		name := npcName.FindStringSubmatch(req.Prompt())[1]
		return `{"thought": "", "message": "` + name + `「うん」"}`, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.master.Discussion(ctx, "", nil)
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected claim extraction to start")
	}

	checked := make(chan error, 1)
	go func() {
		_, err := f.master.CheckWin()
		checked <- err
	}()
	select {
	case err := <-checked:
		assert.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Error("Expected CheckWin to run while claims are being extracted")
	}

	close(release)
	require.NoError(t, <-done)
	notes, _ := f.master.Notes()
	role, ok := notes.ClaimedRole("ヤコブ")
	assert.True(t, ok)
	assert.Equal(t, state.RoleSeer, role)
}

func TestMaster_DiscussionRetriesExhausted(t *testing.T) {
	ctx := context.Background()
	gs := village()
	f := newFixture(t, gs, WithMaxRetries(2))
	f.gen.GenerateFunc = func(ctx context.Context, req *chat.GenerateRequest) (string, error) {
		name := npcName.FindStringSubmatch(req.Prompt())[1]
		return `{"thought": "", "message": "` + name + `「シモン(人狼)だ」"}`, nil
	}

	_, err := f.master.Discussion(ctx, "", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetriesExhausted))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 2, verr.Attempts)

	keys, _ := f.store.ListScenes(ctx, gs.ID)
	assert.Empty(t, keys, "Expected nothing to be stored")
}

func TestMaster_DiscussionWrongPhase(t *testing.T) {
	gs := village()
	gs.Phase = state.PhaseNight
	f := newFixture(t, gs)
	_, err := f.master.Discussion(context.Background(), "", nil)
	assert.Error(t, err)
}

func TestMaster_Scene(t *testing.T) {
	ctx := context.Background()

	t.Run("morning is stored and archived", func(t *testing.T) {
		a, err := archive.Open(filepath.Join(t.TempDir(), "archive.db"))
		require.NoError(t, err)
		defer a.Close()

		f := newFixture(t, village(), WithArchive(a))
		f.gen.Push("朝が来た。\nヤコブ「おはよう」")

		progress := make(chan agents.Progress, 8)
		out, err := f.master.Scene(ctx, prompts.SceneMorning, progress)
		require.NoError(t, err)
		assert.Equal(t, "day1_morning", out.Key)
		assert.Equal(t, "朝が来た。\nヤコブ「おはよう」\n", out.Text)

		close(progress)
		var kinds []agents.ProgressKind
		for p := range progress {
			kinds = append(kinds, p.Kind)
		}
		assert.Equal(t, []agents.ProgressKind{agents.ProgressTyping, agents.ProgressLine, agents.ProgressDone}, kinds)

		scenes, err := a.Scenes(ctx, f.gs.ID)
		require.NoError(t, err)
		require.Len(t, scenes, 1)
		assert.Equal(t, "day1_morning", scenes[0].Key)
	})

	t.Run("dead speaker is retried with feedback", func(t *testing.T) {
		gs := village()
		gs.Players[2].Alive = false
		f := newFixture(t, gs)
		f.gen.Push("シモン「まだ生きてる」", "ヤコブ「静かだ」")

		out, err := f.master.Scene(ctx, prompts.SceneMorning, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, out.Attempts)

		calls := f.gen.Calls()
		require.Len(t, calls, 2)
		assert.Contains(t, calls[1].Prompt(), prompts.RetryFeedbackHeader)
		assert.Contains(t, calls[1].Prompt(), "dead_speaker")
	})

	t.Run("executed player may give last words", func(t *testing.T) {
		f := newFixture(t, village())
		res, err := f.master.ResolveVote(ctx, "シモン")
		require.NoError(t, err)
		executed := res.Result.Executed

		f.gen.Push(executed + "「無念だ」")
		out, err := f.master.Scene(ctx, prompts.SceneExecution, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, out.Attempts)
		assert.Equal(t, "day1_execution", out.Key)
	})

	t.Run("execution without an execution fails", func(t *testing.T) {
		f := newFixture(t, village())
		_, err := f.master.Scene(ctx, prompts.SceneExecution, nil)
		assert.Error(t, err)
	})

	t.Run("epilogue may reveal roles", func(t *testing.T) {
		f := newFixture(t, village())
		f.gen.Push("シモン(人狼)「ばれたか」")
		out, err := f.master.Scene(ctx, prompts.SceneEpilogue, nil)
		require.NoError(t, err)
		assert.Equal(t, "epilogue", out.Key)
	})

	t.Run("vote scene keeps ballots pending", func(t *testing.T) {
		f := newFixture(t, village())
		_, err := f.master.Scene(ctx, prompts.SceneVote, nil)
		require.NoError(t, err)

		notes, _ := f.master.Notes()
		assert.Len(t, notes.PendingVotes, 8)
		assert.Contains(t, f.gen.Calls()[0].Prompt(), "演技指示")
	})

	t.Run("backend failure is returned", func(t *testing.T) {
		f := newFixture(t, village())
		f.gen.SetGenerateError(&services.BackendError{Kind: services.Permanent, StatusCode: 400})
		_, err := f.master.Scene(ctx, prompts.SceneMorning, nil)
		var be *services.BackendError
		assert.ErrorAs(t, err, &be)
	})
}

func TestMaster_ExtractClaims(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, village())

	f.gen.Push("not json")
	n, err := f.master.ExtractClaims(ctx, "ヤコブ「占い師だ」")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.gen.Push(`{"co_claims": [{"name": "リーザ", "role": "medium"}, {"name": "リーザ", "role": "seer"}]}`)
	n, err = f.master.ExtractClaims(ctx, "リーザ「霊媒師なの」")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	notes, _ := f.store.LoadNotes(ctx, f.gs.ID)
	role, _ := notes.ClaimedRole("リーザ")
	assert.Equal(t, state.RoleMedium, role)
}

func TestMaster_View(t *testing.T) {
	f := newFixture(t, village())
	v, err := f.master.View("シモン")
	require.NoError(t, err)
	assert.Equal(t, []string{"ディータ"}, v.WolfTeammates)

	_, err = f.master.View("名無し")
	assert.Error(t, err)
}

func TestConfigOptions(t *testing.T) {
	cfg := &config.Config{MaxRetries: 5, MaxWorkers: 2, ContextLines: 3, ClaimProbMadman: 1}
	m, err := New(context.Background(), storage.NewMockStorage(), services.NewMockGenerator(), discard(), ConfigOptions(cfg)...)
	require.NoError(t, err)
	assert.Equal(t, 5, m.maxRetries)
	assert.Equal(t, policy.ClaimProbabilities{Madman: 1}, m.claimProbs)
	assert.NotNil(t, m.agents)
}
