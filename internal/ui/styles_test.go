package ui

import (
	"strings"
	"testing"
)

func TestRender_NoColor(t *testing.T) {
	SetColor(false)

	for name, fn := range map[string]func(string) string{
		"accent": RenderAccent,
		"pass":   RenderPass,
		"warn":   RenderWarn,
		"fail":   RenderFail,
		"muted":  RenderMuted,
	} {
		if got := fn("synced"); got != "synced" {
			t.Errorf("%s: Render(%q) = %q, want plain text", name, "synced", got)
		}
	}
}

func TestTable(t *testing.T) {
	SetColor(false)

	got := Table(
		[]string{"ID", "NAME", "CATEGORY"},
		[][]string{
			{"1", "Weekly shop", "General"},
			{"12", "Party", "Events"},
		},
	)

	want := strings.Join([]string{
		"ID  NAME         CATEGORY",
		"1   Weekly shop  General",
		"12  Party        Events",
		"",
	}, "\n")
	if got != want {
		t.Errorf("Table() =\n%s\nwant\n%s", got, want)
	}
}

func TestCount(t *testing.T) {
	if got := Count(1, "list"); got != "1 list" {
		t.Errorf("Count(1) = %q", got)
	}
	if got := Count(0, "list"); got != "0 lists" {
		t.Errorf("Count(0) = %q", got)
	}
}
