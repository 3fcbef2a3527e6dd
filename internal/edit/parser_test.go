package edit

import (
	"testing"
)

func TestParser_Parse(t *testing.T) {
	p := NewParser(nil)

	t.Run("sentinel means no edits", func(t *testing.T) {
		cmds := p.Parse("NO_EDITS_NEEDED")
		if cmds != nil {
			t.Errorf("expected nil, got %v", cmds)
		}
	})

	t.Run("sentinel with surrounding chatter", func(t *testing.T) {
		cmds := p.Parse("  The chapters look clean. NO_EDITS_NEEDED\n")
		if cmds != nil {
			t.Errorf("expected nil, got %v", cmds)
		}
	})

	t.Run("single replace", func(t *testing.T) {
		cmds := p.Parse("R∆5∆teh⟹the")
		if len(cmds) != 1 {
			t.Fatalf("expected 1 command, got %d", len(cmds))
		}
		r, ok := cmds[0].(Replace)
		if !ok {
			t.Fatalf("expected Replace, got %T", cmds[0])
		}
		if r.Line != 5 || r.Pattern != "teh" || r.Replacement != "the" {
			t.Errorf("unexpected command: %+v", r)
		}
	})

	t.Run("all command kinds", func(t *testing.T) {
		raw := "R∆5∆teh⟹the◊D∆12◊I∆7∆She paused.◊M∆30-32∆The storm raged all night."
		cmds := p.Parse(raw)
		if len(cmds) != 4 {
			t.Fatalf("expected 4 commands, got %d", len(cmds))
		}

		if _, ok := cmds[0].(Replace); !ok {
			t.Errorf("command 0: expected Replace, got %T", cmds[0])
		}
		d, ok := cmds[1].(Delete)
		if !ok || d.Line != 12 {
			t.Errorf("command 1: expected Delete(12), got %v", cmds[1])
		}
		i, ok := cmds[2].(Insert)
		if !ok || i.Line != 7 || i.Text != "She paused." {
			t.Errorf("command 2: expected Insert(7), got %v", cmds[2])
		}
		m, ok := cmds[3].(Merge)
		if !ok || m.StartLine != 30 || m.EndLine != 32 {
			t.Errorf("command 3: expected Merge(30-32), got %v", cmds[3])
		}
		if m.Text != "The storm raged all night." {
			t.Errorf("unexpected merge text: %q", m.Text)
		}
	})

	t.Run("malformed segments are dropped", func(t *testing.T) {
		raw := "R∆5∆teh⟹the◊garbage◊R∆∆broken◊D∆8"
		cmds := p.Parse(raw)
		if len(cmds) != 2 {
			t.Fatalf("expected 2 commands, got %d: %v", len(cmds), cmds)
		}
		if _, ok := cmds[0].(Replace); !ok {
			t.Errorf("expected Replace, got %T", cmds[0])
		}
		if _, ok := cmds[1].(Delete); !ok {
			t.Errorf("expected Delete, got %T", cmds[1])
		}
	})

	t.Run("multiline field values", func(t *testing.T) {
		cmds := p.Parse("I∆3∆First line.\nSecond line.")
		if len(cmds) != 1 {
			t.Fatalf("expected 1 command, got %d", len(cmds))
		}
		i := cmds[0].(Insert)
		if i.Text != "First line.\nSecond line." {
			t.Errorf("unexpected text: %q", i.Text)
		}
	})

	t.Run("replacement containing arrow splits at first arrow", func(t *testing.T) {
		cmds := p.Parse("R∆2∆a⟹b⟹c")
		if len(cmds) != 1 {
			t.Fatalf("expected 1 command, got %d", len(cmds))
		}
		r := cmds[0].(Replace)
		if r.Pattern != "a" || r.Replacement != "b⟹c" {
			t.Errorf("unexpected split: pattern=%q replacement=%q", r.Pattern, r.Replacement)
		}
	})

	t.Run("empty response", func(t *testing.T) {
		if cmds := p.Parse(""); cmds != nil {
			t.Errorf("expected nil, got %v", cmds)
		}
	})

	t.Run("whitespace around commands", func(t *testing.T) {
		cmds := p.Parse(" R∆1∆x⟹y ◊ D∆2 ")
		if len(cmds) != 2 {
			t.Fatalf("expected 2 commands, got %d", len(cmds))
		}
	})
}
