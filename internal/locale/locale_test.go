package locale

import (
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestMatchFallsBackToEnglish(t *testing.T) {
	if got := Match(""); got != language.English {
		t.Fatalf("empty tag: %v", got)
	}
	if got := Match("zz-ZZ"); got != language.English {
		t.Fatalf("garbage tag: %v", got)
	}
	if got := Match("fr-CA"); got != language.French {
		t.Fatalf("fr-CA should match fr: %v", got)
	}
}

func TestTranslate(t *testing.T) {
	en := T(language.English, "notice.name_changed", "Rowan")
	if !strings.Contains(en, "Rowan") {
		t.Fatalf("missing arg: %q", en)
	}
	fr := T(language.French, "notice.respawn")
	if fr == "" || fr == "notice.respawn" {
		t.Fatalf("french catalog missing respawn: %q", fr)
	}
	if got := T(language.English, "no.such.code"); got != "no.such.code" {
		t.Fatalf("unknown code should echo: %q", got)
	}
}
