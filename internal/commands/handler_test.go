package commands

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
	"github.com/pixil98/mudcore/internal/game"
	"github.com/pixil98/mudcore/internal/gmcp"
)

func TestHandler_Lookup(t *testing.T) {
	f := newFixture(t)

	tests := map[string]struct {
		word string
		exp  string
	}{
		"full name":         {word: "north", exp: "north"},
		"alias":             {word: "n", exp: "north"},
		"upper case":        {word: "NORTH", exp: "north"},
		"abbreviation":      {word: "nor", exp: "north"},
		"alias beats abbr":  {word: "s", exp: "south"},
		"priority wins":     {word: "sa", exp: "say"},
		"name order on tie": {word: "wh", exp: "where"},
		"look alias":        {word: "l", exp: "look"},
		"punctuation alias": {word: "'", exp: "say"},
		"exact typed fully": {word: "quit", exp: "quit"},
		"exact abbreviated": {word: "qui", exp: ""},
		"unknown":           {word: "dance", exp: ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := f.h.lookup(tt.word)
			got := ""
			if c != nil {
				got = c.name
			}
			testutil.AssertEqual(t, "command", got, tt.exp)
		})
	}
}

func TestHandler_Messages(t *testing.T) {
	tests := map[string]struct {
		line     string
		expFrodo string
		expSam   string
	}{
		"say": {
			line:     "say hello there",
			expFrodo: "You say, 'hello there'\n",
			expSam:   "Frodo says, 'hello there'\n",
		},
		"say shorthand": {
			line:     "'second breakfast?",
			expFrodo: "You say, 'second breakfast?'\n",
			expSam:   "Frodo says, 'second breakfast?'\n",
		},
		"emote": {
			line:     ":smiles.",
			expFrodo: "Frodo smiles.\n",
			expSam:   "Frodo smiles.\n",
		},
		"shout": {
			line:     "shout fly you fools",
			expFrodo: "You shout, 'FLY YOU FOOLS'\n",
			expSam:   "Frodo shouts, 'FLY YOU FOOLS'\n",
		},
		"input is not a template": {
			line:     "say {{ .Actor.Name }}",
			expFrodo: "You say, '{{ .Actor.Name }}'\n",
			expSam:   "Frodo says, '{{ .Actor.Name }}'\n",
		},
		"missing text uses usage": {
			line:     "say",
			expFrodo: "Yes, but WHAT do you want to say?\n",
		},
		"unknown command": {
			line:     "dance",
			expFrodo: "Huh?!\n",
		},
		"too many arguments": {
			line:     "look east west",
			expFrodo: "Expected at most 1 argument(s), got 2\n",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			res := f.run(f.frodo, tt.line)
			testutil.AssertEqual(t, "err", res.Err, nil)
			testutil.AssertEqual(t, "frodo", f.pub.text(f.frodo.Id()), tt.expFrodo)
			testutil.AssertEqual(t, "sam", f.pub.text(f.sam.Id()), tt.expSam)
		})
	}
}

func TestHandler_Score(t *testing.T) {
	f := newFixture(t)
	f.run(f.frodo, "score")
	testutil.AssertEqual(t, "untitled", f.pub.text(f.frodo.Id()),
		"You are Frodo, level 1.\nYou have 20(20) hit and 100(100) movement points.\n")

	f.pub.reset()
	f.frodo.Title = "of the Shire"
	f.run(f.frodo, "score")
	if !strings.HasPrefix(f.pub.text(f.frodo.Id()), "You are Frodo of the Shire, level 1.") {
		t.Errorf("unexpected score: %q", f.pub.text(f.frodo.Id()))
	}
}

func TestHandler_Prompt(t *testing.T) {
	f := newFixture(t)
	f.run(f.frodo, "")

	out := f.pub.out[f.frodo.Id()]
	if len(out) != 1 {
		t.Fatalf("expected one output, got %d", len(out))
	}
	testutil.AssertEqual(t, "prompt", out[0].Prompt, true)
	testutil.AssertEqual(t, "text", out[0].Text, "\n[20/20HP 100/100MV] > ")
}

func TestHandler_Move(t *testing.T) {
	f := newFixture(t)
	res := f.run(f.frodo, "e")
	testutil.AssertEqual(t, "err", res.Err, nil)
	testutil.AssertEqual(t, "room", f.frodo.Room(), game.EntityId(2))
	testutil.AssertEqual(t, "sam sees", f.pub.text(f.sam.Id()), "Frodo leaves east.\n")

	frodo := f.pub.text(f.frodo.Id())
	if !strings.HasPrefix(frodo, "Hobbiton Road\n") {
		t.Errorf("expected room description, got %q", frodo)
	}
	testutil.AssertEqual(t, "exits", strings.Contains(frodo, "[ Exits: w (d) ]"), true)
	testutil.AssertEqual(t, "room info", slices.Contains(f.pub.modules(f.frodo.Id()), gmcp.ModuleRoomInfo), true)

	f.pub.reset()
	f.run(f.sam, "go east")
	testutil.AssertEqual(t, "sam moved", f.sam.Room(), game.EntityId(2))
	testutil.AssertEqual(t, "frodo sees", f.pub.text(f.frodo.Id()), "Sam has arrived.\n")
}

func TestHandler_MoveFailures(t *testing.T) {
	tests := map[string]struct {
		room game.EntityId
		line string
		exp  string
	}{
		"no exit": {
			room: 1,
			line: "west",
			exp:  "Alas, you cannot go that way...\n",
		},
		"closed door": {
			room: 2,
			line: "down",
			exp:  "The trapdoor seems to be closed.\n",
		},
		"bad direction": {
			room: 1,
			line: "go sideways",
			exp:  "That's not a direction.\n",
		},
		"go without direction": {
			room: 1,
			line: "go",
			exp:  "Go where?\n",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.w.Place(f.frodo.Id(), tt.room)
			f.pub.reset()

			res := f.run(f.frodo, tt.line)
			testutil.AssertEqual(t, "err", res.Err, nil)
			testutil.AssertEqual(t, "text", f.pub.text(f.frodo.Id()), tt.exp)
			testutil.AssertEqual(t, "room", f.frodo.Room(), tt.room)
		})
	}
}

func TestHandler_Info(t *testing.T) {
	tests := map[string]struct {
		room     game.EntityId
		line     string
		expParts []string
	}{
		"look": {
			room:     1,
			line:     "look",
			expParts: []string{"Bag End\n", "A comfortable hobbit hole.\n", "[ Exits: e ]\n", "Sam is here.\n"},
		},
		"look at exit": {
			room:     1,
			line:     "l east",
			expParts: []string{"The road winds away.\n"},
		},
		"look at door": {
			room:     2,
			line:     "look down",
			expParts: []string{"You see nothing special.\n", "The trapdoor is closed.\n"},
		},
		"look nowhere": {
			room:     1,
			line:     "look north",
			expParts: []string{"Nothing special there...\n"},
		},
		"exits": {
			room:     2,
			line:     "exits",
			expParts: []string{"Obvious exits:\n", "West      - Bag End\n", "Down      - A closed door\n"},
		},
		"who": {
			room:     1,
			line:     "who",
			expParts: []string{"[  1] Frodo\n", "[  1] Sam\n", "2 characters displayed.\n"},
		},
		"where": {
			room:     2,
			line:     "where",
			expParts: []string{"You are in Hobbiton Road [2], in The Shire [40].\n", "Sam", "- Bag End\n"},
		},
		"path by name": {
			room:     1,
			line:     "path hobbiton",
			expParts: []string{"The way to Hobbiton Road is: e\n"},
		},
		"path here": {
			room:     1,
			line:     "path 1",
			expParts: []string{"You are already there.\n"},
		},
		"path blocked": {
			room:     1,
			line:     "path cellar",
			expParts: []string{"You can't find a way to Cellar.\n"},
		},
		"path unknown": {
			room:     1,
			line:     "path mordor",
			expParts: []string{"There is no such place.\n"},
		},
		"help": {
			room:     1,
			line:     "help",
			expParts: []string{"The following commands are available:\n", "north", "say", "quit"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.w.Place(f.frodo.Id(), tt.room)
			f.pub.reset()

			res := f.run(f.frodo, tt.line)
			testutil.AssertEqual(t, "err", res.Err, nil)
			got := f.pub.text(f.frodo.Id())
			for _, part := range tt.expParts {
				if !strings.Contains(got, part) {
					t.Errorf("expected %q in %q", part, got)
				}
			}
		})
	}
}

func TestHandler_Title(t *testing.T) {
	f := newFixture(t)
	f.run(f.frodo, "title the Ring-bearer")
	testutil.AssertEqual(t, "title", f.frodo.Title, "the Ring-bearer")
	testutil.AssertEqual(t, "text", f.pub.text(f.frodo.Id()), "Okay, you're now Frodo the Ring-bearer.\n")

	f.pub.reset()
	f.run(f.frodo, "title "+strings.Repeat("x", MaxTitleLength+1))
	testutil.AssertEqual(t, "unchanged", f.frodo.Title, "the Ring-bearer")
	testutil.AssertEqual(t, "too long", f.pub.text(f.frodo.Id()), "Titles can't be longer than 40 characters.\n")
}

func TestHandler_Save(t *testing.T) {
	f := newFixture(t)
	f.run(f.frodo, "save")
	testutil.AssertEqual(t, "saved", slices.Equal(f.saver.saved, []string{"Frodo"}), true)
	testutil.AssertEqual(t, "text", f.pub.text(f.frodo.Id()), "Saving Frodo.\n")
}

func TestHandler_Quit(t *testing.T) {
	f := newFixture(t)

	res := f.run(f.frodo, "qui")
	testutil.AssertEqual(t, "abbreviation refused", res.Quit, false)

	res = f.run(f.frodo, "quit")
	testutil.AssertEqual(t, "quit", res.Quit, true)
	testutil.AssertEqual(t, "err", res.Err, nil)
	testutil.AssertEqual(t, "departed", slices.Equal(f.departer.departed, []game.EntityId{f.frodo.Id()}), true)
	testutil.AssertEqual(t, "removed", f.w.Actor(f.frodo.Id()) == nil, true)
}

func TestHandler_NotAPlayer(t *testing.T) {
	f := newFixture(t)
	res := f.h.Execute(context.Background(), f.w, nil, "north")
	testutil.AssertEqual(t, "quit", res.Quit, false)
	testutil.AssertEqual(t, "err", res.Err, nil)
}

func TestHandler_Store(t *testing.T) {
	store := mapStore{
		"say": {
			Handler: "message",
			Inputs:  []InputSpec{{Name: "text", Type: InputTypeString, Rest: true}},
			Config:  map[string]any{"actor_message": "You whisper."},
		},
		"roll": {
			Handler: "message",
			Inputs:  []InputSpec{{Name: "n", Type: InputTypeNumber, Required: true}},
			Config:  map[string]any{"actor_message": "You rolled {{ .Inputs.n }}."},
		},
	}
	f := newFixture(t, WithStore(store))

	tests := map[string]struct {
		line string
		exp  string
	}{
		"override":   {line: "say hi", exp: "You whisper.\n"},
		"number":     {line: "roll 5", exp: "You rolled 5.\n"},
		"not number": {line: "roll five", exp: "\"five\" is not a valid number\n"},
		"default":    {line: "emote waves", exp: "Frodo waves\n"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f.pub.reset()
			f.run(f.frodo, tt.line)
			testutil.AssertEqual(t, "text", f.pub.text(f.frodo.Id()), tt.exp)
		})
	}
}

func TestNewHandler_Errors(t *testing.T) {
	tests := map[string]struct {
		cmd    *Command
		expErr string
	}{
		"unknown handler": {
			cmd:    &Command{Handler: "dance"},
			expErr: "unknown handler",
		},
		"missing handler": {
			cmd:    &Command{},
			expErr: "command handler not set",
		},
		"bad config": {
			cmd:    &Command{Handler: "move"},
			expErr: "direction is required",
		},
		"bad template": {
			cmd:    &Command{Handler: "message", Config: map[string]any{"actor_message": "{{ .Text"}},
			expErr: "actor_message",
		},
		"rest not last": {
			cmd: &Command{Handler: "who", Inputs: []InputSpec{
				{Name: "a", Type: InputTypeString, Rest: true},
				{Name: "b", Type: InputTypeString},
			}},
			expErr: "only the last input",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewHandler(WithStore(mapStore{"broken": tt.cmd}))
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}

func TestDefaultCommands(t *testing.T) {
	defs, err := DefaultCommands()
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	for id, cmd := range defs {
		if err := cmd.Validate(); err != nil {
			t.Errorf("%s: %v", id, err)
		}
	}
	testutil.AssertEqual(t, "quit exact", defs["quit"].Exact, true)
}
