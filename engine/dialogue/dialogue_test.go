package dialogue

import (
	"testing"

	"github.com/nathoo/evolisk/engine/state"
	"github.com/nathoo/evolisk/types"
)

func flag(typ, name string) types.Condition {
	return types.Condition{Type: typ, Params: map[string]any{"flag": name}}
}

func testDefs() *state.Defs {
	return &state.Defs{
		Game: types.GameDef{Start: "lab"},
		Maps: map[string]types.MapDef{
			"lab": {ID: "lab", Name: "Lab"},
		},
		NPCs: map[string]types.NPCDef{
			"professor": {
				ID:   "professor",
				Name: "Professor Elm",
				Map:  "lab",
				Scenarios: []types.Scenario{
					{
						Requires: []types.Condition{flag("flag_not", "has_starter")},
						Events: []types.SceneEvent{
							{Type: "text", Text: "Pick a partner!"},
							{Type: "choose_creature", Species: []string{"ee001", "ee002", "ee003"}},
							{Type: "set_flag", Flag: "has_starter"},
						},
					},
					{
						Requires: []types.Condition{flag("flag_set", "has_starter"), flag("flag_not", "beat_rival")},
						Events:   []types.SceneEvent{{Type: "text", Text: "Go beat your rival."}},
					},
					{
						Events: []types.SceneEvent{{Type: "text", Text: "Well done."}},
					},
				},
			},
			"statue": {ID: "statue", Name: "Statue", Map: "lab"},
		},
	}
}

func firstText(sc *types.Scenario) string {
	if sc == nil || len(sc.Events) == 0 {
		return ""
	}
	return sc.Events[0].Text
}

func TestSelect_FirstEligibleWins(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]bool
		want  string
	}{
		{"fresh game", nil, "Pick a partner!"},
		{"has starter", map[string]bool{"has_starter": true}, "Go beat your rival."},
		{"story done", map[string]bool{"has_starter": true, "beat_rival": true}, "Well done."},
	}
	defs := testDefs()
	for _, tt := range tests {
		s := &types.State{Player: types.PlayerState{StoryFlags: tt.flags}}
		if got := firstText(Select("professor", s, defs)); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSelect_NoScenarios(t *testing.T) {
	defs := testDefs()
	s := &types.State{}
	if sc := Select("statue", s, defs); sc != nil {
		t.Errorf("expected nil for NPC without scenarios, got %+v", sc)
	}
	if sc := Select("nobody", s, defs); sc != nil {
		t.Errorf("expected nil for unknown NPC, got %+v", sc)
	}
}

func TestSelect_ReturnsDefinitionScenario(t *testing.T) {
	defs := testDefs()
	sc := Select("professor", &types.State{}, defs)
	if sc == nil || len(sc.Events) != 3 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if sc.Events[1].Type != "choose_creature" || len(sc.Events[1].Species) != 3 {
		t.Errorf("starter event = %+v", sc.Events[1])
	}
}

func TestAvailable(t *testing.T) {
	defs := testDefs()
	s := &types.State{Player: types.PlayerState{StoryFlags: map[string]bool{"has_starter": true}}}
	if got := Available("professor", s, defs); got != 2 {
		t.Errorf("Available = %d, want 2", got)
	}
	if got := Available("nobody", s, defs); got != 0 {
		t.Errorf("Available(unknown) = %d", got)
	}
}
