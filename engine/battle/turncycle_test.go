package battle

import (
	"context"
	"testing"

	"github.com/nathoo/evolisk/types"
	"github.com/rs/zerolog"
)

func runBattle(t *testing.T, h *harness) bool {
	t.Helper()
	won, err := h.session.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return won
}

// inOrder fails unless every want message appears, in order.
func inOrder(t *testing.T, p *recordingPresenter, want ...string) {
	t.Helper()
	last := -1
	for _, w := range want {
		i := -1
		for j := last + 1; j < len(p.messages); j++ {
			if p.messages[j] == w {
				i = j
				break
			}
		}
		if i < 0 {
			t.Fatalf("missing %q after position %d in %v", w, last, p.messages)
		}
		last = i
	}
}

// sequence submits the given actions in turn order, repeating the last one.
func sequence(h *harness, ids ...string) func(SubmissionRequest) *Submission {
	return func(req SubmissionRequest) *Submission {
		n := len(h.chooser.requests) - 1
		if n >= len(ids) {
			n = len(ids) - 1
		}
		return useAction(ids[n])(req)
	}
}

func TestBattle_OneShotWin(t *testing.T) {
	h, _, _ := duel(t)
	h.chooser.submit = useAction("slam")

	if !runBattle(t, h) {
		t.Fatal("expected the player to win")
	}

	inOrder(t, h.presenter,
		"Wild creature wants to fight!",
		"Luxigon uses Slam!",
		"Umbraik has fainted!",
		"Gained 20 XP!",
		"Winner!",
	)
	if !h.presenter.begun {
		t.Error("presenter was never begun")
	}
	if got := h.store.creatures["p1"]; got.XP != 20 || got.HP != 50 || got.Level != 1 {
		t.Errorf("write-back = %+v", got)
	}
	if len(h.results) != 1 || !h.results[0] {
		t.Errorf("OnComplete results = %v, want [true]", h.results)
	}
	if h.session.Phase() != PhaseWinnerDeclared {
		t.Errorf("phase = %s", h.session.Phase())
	}
	if h.world.teleports != 0 {
		t.Error("winner should not be teleported")
	}
}

func TestBattle_CatchEndsBattle(t *testing.T) {
	store := newStore(types.Creature{ID: "p1", SpeciesID: "lux", HP: 50, MaxHP: 50})
	store.items = []types.Item{{ActionID: "disc", InstanceID: "d1"}, {ActionID: "disc", InstanceID: "d2"}}
	h := newHarness(t, wildEnemy("umb", 5), true, store)
	h.rnd.floats = []float64{0.5}
	h.chooser.submit = func(req SubmissionRequest) *Submission { return req.UseItem(req.Items[0]) }

	if !runBattle(t, h) {
		t.Fatal("expected the catch to count as a win")
	}

	inOrder(t, h.presenter, "You throw a Capture Disc!", "You captured Umbraik!")
	if h.presenter.saw("Winner!") {
		t.Error("a catch should not announce a winner")
	}
	if len(h.store.added) != 1 || h.store.added[0] != "umb" {
		t.Errorf("added = %v", h.store.added)
	}
	if len(h.store.pruned) != 1 || h.store.pruned[0] != "d1" {
		t.Errorf("pruned = %v, want [d1]", h.store.pruned)
	}
	if len(h.ai.requests) != 0 {
		t.Error("enemy should not act after a catch")
	}
	if len(h.results) != 1 || !h.results[0] {
		t.Errorf("OnComplete results = %v", h.results)
	}
}

func TestBattle_FailedCatchContinues(t *testing.T) {
	store := newStore(types.Creature{ID: "p1", SpeciesID: "lux", HP: 50, MaxHP: 50})
	store.items = []types.Item{{ActionID: "disc", InstanceID: "d1"}}
	h := newHarness(t, wildEnemy("umb", 50), true, store)
	h.chooser.submit = func(req SubmissionRequest) *Submission {
		if len(req.Items) > 0 {
			return req.UseItem(req.Items[0])
		}
		return useAction("slam")(req)
	}

	if !runBattle(t, h) {
		t.Fatal("expected the player to win")
	}
	inOrder(t, h.presenter, "Oh no! Umbraik escaped!", "Umbraik uses Tackle!", "Winner!")
	if len(h.chooser.requests[1].Items) != 0 {
		t.Error("spent disc still offered")
	}
	if len(h.store.pruned) != 1 || h.store.pruned[0] != "d1" {
		t.Errorf("pruned = %v", h.store.pruned)
	}
}

func TestBattle_TrainerReplacesFaintedMember(t *testing.T) {
	store := newStore(types.Creature{ID: "p1", SpeciesID: "lux", HP: 50, MaxHP: 50})
	store.items = []types.Item{{ActionID: "disc", InstanceID: "d1"}}
	h := newHarness(t, testCatalog().Enemies["froggert"], false, store)
	h.chooser.submit = useAction("slam")

	if !runBattle(t, h) {
		t.Fatal("expected the player to win")
	}

	inOrder(t, h.presenter,
		"Froggert wants to fight!",
		"Umbraik has fainted!",
		"Gained 20 XP!",
		"Lumivyre appears!",
		"Lumivyre uses Tackle!",
		"Lumivyre has fainted!",
		"Winner!",
	)
	if h.ai.replaces != 1 {
		t.Errorf("enemy replacements = %d, want 1", h.ai.replaces)
	}
	if got := len(h.ai.requests[0].Actions); got != 1 {
		t.Errorf("unknown action not filtered: %d actions", got)
	}
	if len(h.chooser.requests[0].Items) != 0 {
		t.Error("catch item offered in a trainer battle")
	}
	if got := h.store.creatures["p1"]; got.HP != 40 || got.XP != 40 {
		t.Errorf("write-back = %+v", got)
	}
}

func TestBattle_PlayerWipeout(t *testing.T) {
	store := newStore(types.Creature{ID: "p1", SpeciesID: "lux", HP: 5, MaxHP: 50})
	h := newHarness(t, wildEnemy("umb", 50), true, store)
	h.chooser.submit = useAction("tackle")

	if runBattle(t, h) {
		t.Fatal("expected the enemy to win")
	}

	inOrder(t, h.presenter, "Luxigon has fainted!", "Winner!")
	if h.presenter.saw("Gained 20 XP!") {
		t.Error("player faint should not pay xp")
	}
	if h.world.teleports != 1 {
		t.Errorf("teleports = %d, want 1", h.world.teleports)
	}
	if got := h.store.creatures["p1"]; got.HP != 5 {
		t.Errorf("loss should not write back, hp = %d", got.HP)
	}
	if len(h.results) != 1 || h.results[0] {
		t.Errorf("OnComplete results = %v, want [false]", h.results)
	}
}

func TestBattle_PlayerReplacesFainted(t *testing.T) {
	store := newStore(
		types.Creature{ID: "p1", SpeciesID: "lux", HP: 5, MaxHP: 50},
		types.Creature{ID: "p2", SpeciesID: "umb", HP: 50, MaxHP: 50},
	)
	h := newHarness(t, wildEnemy("umb", 20), true, store)
	h.chooser.submit = useAction("tackle")

	if !runBattle(t, h) {
		t.Fatal("expected the player to win")
	}

	inOrder(t, h.presenter, "Luxigon has fainted!", "Umbraik appears!", "Winner!")
	if h.chooser.replaces != 1 {
		t.Errorf("player replacements = %d", h.chooser.replaces)
	}
	if got := h.store.creatures["p1"]; got.HP != 0 {
		t.Errorf("fainted creature should be stored at 0 hp: %+v", got)
	}
	if got := h.store.creatures["p2"]; got.HP != 50 || got.XP != 20 {
		t.Errorf("survivor write-back = %+v", got)
	}
	if h.world.teleports != 0 {
		t.Error("unexpected teleport")
	}
}

func TestBattle_SwapUsesTurn(t *testing.T) {
	store := newStore(
		types.Creature{ID: "p1", SpeciesID: "lux", HP: 50, MaxHP: 50},
		types.Creature{ID: "p2", SpeciesID: "umb", HP: 50, MaxHP: 50},
	)
	h := newHarness(t, wildEnemy("umb", 10), true, store)
	h.chooser.submit = func(req SubmissionRequest) *Submission {
		if len(h.chooser.requests) == 1 {
			return req.Swap(req.Replacements[0])
		}
		return useAction("tackle")(req)
	}

	if !runBattle(t, h) {
		t.Fatal("expected the player to win")
	}

	inOrder(t, h.presenter, "Go get 'em, Umbraik!", "Umbraik uses Tackle!", "Winner!")
	if r := h.chooser.requests[0].Replacements; len(r) != 1 || r[0].ID != "p2" {
		t.Errorf("replacement menu = %v", r)
	}
	if got := h.store.creatures["p2"]; got.HP != 40 || got.XP != 20 {
		t.Errorf("p2 write-back = %+v", got)
	}
	if got := h.store.creatures["p1"]; got.HP != 50 || got.XP != 0 {
		t.Errorf("p1 write-back = %+v", got)
	}
}

func TestBattle_DazedEnemyLosesTurn(t *testing.T) {
	h, _, _ := duel(t)
	h.rnd.ints = []int{0}
	h.chooser.submit = sequence(h, "daze", "slam")

	if !runBattle(t, h) {
		t.Fatal("expected the player to win")
	}

	inOrder(t, h.presenter, "Umbraik is dazed!", "Winner!")
	if h.presenter.saw("Umbraik uses Tackle!") {
		t.Error("dazed enemy still acted")
	}
	if got := h.store.creatures["p1"]; got.HP != 50 {
		t.Errorf("hp = %d, want 50", got.HP)
	}
}

func TestBattle_EvadeDodgesNextHit(t *testing.T) {
	h, _, _ := duel(t)
	h.chooser.submit = sequence(h, "shroud", "slam")

	if !runBattle(t, h) {
		t.Fatal("expected the player to win")
	}

	inOrder(t, h.presenter, "Umbraik uses Tackle!", "Luxigon dodged the attack!", "Winner!")
	if got := h.store.creatures["p1"]; got.HP != 50 {
		t.Errorf("hp = %d, want 50", got.HP)
	}
}

func TestBattle_RecoverTicksAfterTurn(t *testing.T) {
	store := newStore(types.Creature{
		ID: "p1", SpeciesID: "lux", HP: 20, MaxHP: 50,
		Status: &types.Status{Type: types.StatusRecover, ExpiresIn: 2},
	})
	h := newHarness(t, wildEnemy("umb", 50), true, store)
	h.chooser.submit = sequence(h, "tackle", "slam")

	if !runBattle(t, h) {
		t.Fatal("expected the player to win")
	}

	count := 0
	for _, m := range h.presenter.messages {
		if m == "Luxigon recovered some health!" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("recover ticks = %d, want 1 (win ends the turn early)", count)
	}
	// 20 +10 tick -10 tackle
	if got := h.store.creatures["p1"]; got.HP != 20 {
		t.Errorf("hp = %d, want 20", got.HP)
	}
}

func TestBattle_EnemyEvadeDodges(t *testing.T) {
	h, _, b := duel(t)
	b.SetStatus(&types.Status{Type: types.StatusEvade, ExpiresIn: 1})
	h.chooser.submit = useAction("slam")

	if !runBattle(t, h) {
		t.Fatal("expected the player to win")
	}
	inOrder(t, h.presenter, "Umbraik dodged the attack!", "Umbraik uses Tackle!", "Winner!")
}

func TestBattle_StatusWearsOff(t *testing.T) {
	store := newStore(types.Creature{
		ID: "p1", SpeciesID: "lux", HP: 50, MaxHP: 50,
		Status: &types.Status{Type: types.StatusDazed, ExpiresIn: 1},
	})
	h := newHarness(t, wildEnemy("umb", 20), true, store)
	h.chooser.submit = useAction("tackle")

	if !runBattle(t, h) {
		t.Fatal("expected the player to win")
	}
	inOrder(t, h.presenter, "Luxigon uses Tackle!", "Luxigon's dazed wore off!", "Umbraik uses Tackle!", "Winner!")
	if h.session.Active(types.TeamPlayer).Status != nil {
		t.Error("status outlived its duration")
	}
}

func TestBattle_EnemyWithoutActionsPasses(t *testing.T) {
	store := newStore(types.Creature{ID: "p1", SpeciesID: "lux", HP: 50, MaxHP: 50})
	h := newHarness(t, wildEnemy("mute", 20), true, store)
	h.session.opts.AI = NewAI(h.rnd, zerolog.Nop())
	h.chooser.submit = useAction("tackle")

	if !runBattle(t, h) {
		t.Fatal("expected the player to win")
	}
	if len(h.chooser.requests) != 2 {
		t.Errorf("player turns = %d, want 2", len(h.chooser.requests))
	}
	if got := h.store.creatures["p1"]; got.HP != 50 {
		t.Errorf("hp = %d, want 50", got.HP)
	}
}

func TestBattle_CancelledContext(t *testing.T) {
	h, _, _ := duel(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.session.Run(ctx); err == nil {
		t.Fatal("expected an error from a cancelled battle")
	}
	if len(h.results) != 0 {
		t.Errorf("OnComplete called on cancellation: %v", h.results)
	}
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseAwaitingSubmission, "awaiting_submission"},
		{PhaseExecutingEvents, "executing_events"},
		{PhaseCheckingFaint, "checking_faint"},
		{PhaseCheckingWin, "checking_win"},
		{PhaseAwaitingReplacement, "awaiting_replacement"},
		{PhasePostEffects, "post_effects"},
		{PhaseWinnerDeclared, "winner_declared"},
		{Phase(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
