package smscconn

import "testing"

func TestAllowsDeniedSMSCIDAlwaysRejects(t *testing.T) {
	f, err := NewFilters(FilterConfig{
		DeniedSMSCID: "bad-smsc",
		AllowedPrefix: "358",
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.Allows("bad-smsc", "358401234567") {
		t.Fatal("expected rejection regardless of matching prefix filter")
	}
	if !f.Allows("good-smsc", "358401234567") {
		t.Fatal("expected allowed prefix to pass for a non-denied smsc")
	}
}

func TestAllowsAllowedSMSCIDMustAppear(t *testing.T) {
	f, err := NewFilters(FilterConfig{AllowedSMSCID: "a;b"})
	if err != nil {
		t.Fatal(err)
	}
	if !f.Allows("a", "123") {
		t.Fatal("expected a to be allowed")
	}
	if f.Allows("c", "123") {
		t.Fatal("expected c to be rejected")
	}
}

func TestAllowsPrefixBothSetRejectsOnlyWhenAllowMissesAndDenyHits(t *testing.T) {
	f, err := NewFilters(FilterConfig{
		AllowedPrefix: "46",
		DeniedPrefix:  "3584012",
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.Allows("x", "3584012345") {
		t.Fatal("expected reject: allow misses and deny matches")
	}
	if !f.Allows("x", "358999999") {
		t.Fatal("expected allow: neither allow nor deny matches")
	}
	if !f.Allows("x", "46701234567") {
		t.Fatal("expected allow: allow matches")
	}
}

func TestPreferredSMSCID(t *testing.T) {
	f, err := NewFilters(FilterConfig{PreferredSMSCID: "fast"})
	if err != nil {
		t.Fatal(err)
	}
	if !f.Preferred("fast", "anything") {
		t.Fatal("expected preferred match")
	}
	if f.Preferred("slow", "anything") {
		t.Fatal("expected no preferred match")
	}
}

func TestNormalizeReceiverRewritesEquivalentPrefix(t *testing.T) {
	f, err := NewFilters(FilterConfig{UnifiedPrefix: "358,0040,00358;46,0046"})
	if err != nil {
		t.Fatal(err)
	}
	got := f.NormalizeReceiver("0040401234567")
	if got != "358401234567" {
		t.Fatalf("got %q, want 358401234567", got)
	}
	got2 := f.NormalizeReceiver("46701234567")
	if got2 != "46701234567" {
		t.Fatalf("got %q, want unchanged (already canonical)", got2)
	}
}

func TestRegexFilterTakesPrecedenceOverList(t *testing.T) {
	f, err := NewFilters(FilterConfig{
		AllowedSMSCID:      "ignored",
		AllowedSMSCIDRegex: "^smsc-[0-9]+$",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !f.AllowedSMSCID.match("smsc-42") {
		t.Fatal("expected regex match")
	}
	if f.AllowedSMSCID.match("ignored") {
		t.Fatal("expected list value to be ignored once regex is set")
	}
}
