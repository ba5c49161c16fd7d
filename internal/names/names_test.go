package names

import "testing"

func TestMangling(t *testing.T) {
	if got := Method("Player", "__init__"); got != "Player____init__" {
		t.Errorf("Method = %q, want %q", got, "Player____init__")
	}
	if got := Method("Mage", "cast"); got != "Mage__cast" {
		t.Errorf("Method = %q, want %q", got, "Mage__cast")
	}
	if got := Static("Player", "species"); got != "Player_species" {
		t.Errorf("Static = %q, want %q", got, "Player_species")
	}
	if got := Temp("list", 2); got != "__tmp_list_2" {
		t.Errorf("Temp = %q, want %q", got, "__tmp_list_2")
	}
}

func TestIdentAvoidsCKeywords(t *testing.T) {
	for _, kw := range []string{"register", "switch", "union", "printf"} {
		if got := Ident(kw); got != kw+"_" {
			t.Errorf("Ident(%q) = %q, want %q", kw, got, kw+"_")
		}
	}
	if got := Ident("counter"); got != "counter" {
		t.Errorf("Ident(counter) = %q", got)
	}
}
