package parser

import (
	"testing"

	"github.com/nathoo/evolisk/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.Intent
	}{
		// Empty / whitespace
		{
			name:  "empty string",
			input: "",
			want:  types.Intent{},
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  types.Intent{},
		},

		// Basic verbs (no object)
		{
			name:  "look",
			input: "look",
			want:  types.Intent{Verb: "look"},
		},
		{
			name:  "explore",
			input: "explore",
			want:  types.Intent{Verb: "explore"},
		},
		{
			name:  "party",
			input: "party",
			want:  types.Intent{Verb: "party"},
		},

		// Verb aliases
		{
			name:  "l → look",
			input: "l",
			want:  types.Intent{Verb: "look"},
		},
		{
			name:  "i → bag",
			input: "i",
			want:  types.Intent{Verb: "bag"},
		},
		{
			name:  "inventory → bag",
			input: "inventory",
			want:  types.Intent{Verb: "bag"},
		},
		{
			name:  "team → party",
			input: "team",
			want:  types.Intent{Verb: "party"},
		},
		{
			name:  "search → explore",
			input: "search",
			want:  types.Intent{Verb: "explore"},
		},
		{
			name:  "z → wait",
			input: "z",
			want:  types.Intent{Verb: "wait"},
		},
		{
			name:  "x sage → examine sage",
			input: "x sage",
			want:  types.Intent{Verb: "examine", Object: "sage"},
		},

		// Directions
		{
			name:  "bare n",
			input: "n",
			want:  types.Intent{Verb: "go", Object: "north"},
		},
		{
			name:  "bare south",
			input: "south",
			want:  types.Intent{Verb: "go", Object: "south"},
		},
		{
			name:  "go e expands",
			input: "go e",
			want:  types.Intent{Verb: "go", Object: "east"},
		},
		{
			name:  "walk west",
			input: "walk west",
			want:  types.Intent{Verb: "go", Object: "west"},
		},
		{
			name:  "named exit",
			input: "go Shadow Grove",
			want:  types.Intent{Verb: "go", Object: "shadow grove"},
		},

		// Multi-word verbs
		{
			name:  "look at → examine",
			input: "look at the professor",
			want:  types.Intent{Verb: "examine", Object: "professor"},
		},
		{
			name:  "look around → look",
			input: "look around",
			want:  types.Intent{Verb: "look"},
		},
		{
			name:  "look for creatures → explore",
			input: "look for creatures",
			want:  types.Intent{Verb: "explore"},
		},
		{
			name:  "talk to",
			input: "talk to old sage",
			want:  types.Intent{Verb: "talk", Object: "old sage"},
		},
		{
			name:  "speak with",
			input: "speak with the rival",
			want:  types.Intent{Verb: "talk", Object: "rival"},
		},
		{
			name:  "go exploring",
			input: "go exploring",
			want:  types.Intent{Verb: "explore"},
		},
		{
			name:  "send out → lead",
			input: "send out luxigon",
			want:  types.Intent{Verb: "lead", Object: "luxigon"},
		},

		// Roster commands with a target
		{
			name:  "lead",
			input: "lead Umbraik",
			want:  types.Intent{Verb: "lead", Object: "umbraik"},
		},
		{
			name:  "swap with",
			input: "swap luxigon with umbraik",
			want:  types.Intent{Verb: "swap", Object: "luxigon", Target: "umbraik"},
		},
		{
			name:  "switch for",
			input: "switch the luxigon for an umbraik",
			want:  types.Intent{Verb: "swap", Object: "luxigon", Target: "umbraik"},
		},

		// Case and spacing
		{
			name:  "mixed case",
			input: "  TALK  To   Sage ",
			want:  types.Intent{Verb: "talk", Object: "sage"},
		},
		{
			name:  "unknown verb passes through",
			input: "dance wildly",
			want:  types.Intent{Verb: "dance", Object: "wildly"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripArticles(t *testing.T) {
	got := stripArticles([]string{"the", "old", "a", "sage", "an"})
	if len(got) != 2 || got[0] != "old" || got[1] != "sage" {
		t.Errorf("stripArticles = %v", got)
	}
}

func TestSplitOnPreposition(t *testing.T) {
	tests := []struct {
		words          []string
		object, target string
	}{
		{[]string{"luxigon"}, "luxigon", ""},
		{[]string{"luxigon", "with", "umbraik"}, "luxigon", "umbraik"},
		{[]string{"with", "umbraik"}, "", "umbraik"},
		{nil, "", ""},
	}
	for _, tt := range tests {
		o, tg := splitOnPreposition(tt.words)
		if o != tt.object || tg != tt.target {
			t.Errorf("splitOnPreposition(%v) = %q, %q; want %q, %q", tt.words, o, tg, tt.object, tt.target)
		}
	}
}
