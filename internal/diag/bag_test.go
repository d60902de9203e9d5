package diag

import "testing"

func TestBagLimitCountsDropped(t *testing.T) {
	bag := NewBag(2)
	r := BagReporter{Bag: bag}
	Warnf(r, LogUnknownTag, Span{Line: 3}, "unknown tag %q", "[foo]")
	Warnf(r, LogUnknownTag, Span{Line: 4}, "unknown tag %q", "[bar]")
	Errorf(r, LogBadKey, Span{Line: 5}, "bad key")

	if bag.Len() != 2 {
		t.Fatalf("Len = %d, want 2", bag.Len())
	}
	if bag.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", bag.Dropped())
	}
	if bag.HasErrors() {
		t.Fatalf("error was over the limit and must not be stored")
	}
	if !bag.HasWarnings() {
		t.Fatalf("expected warnings")
	}
}

func TestBagSortAndDedup(t *testing.T) {
	bag := NewBag(10)
	bag.Add(Diagnostic{Severity: SevWarning, Code: LogBadNumber, Primary: Span{Line: 9}, Message: "x"})
	bag.Add(Diagnostic{Severity: SevWarning, Code: LogBadKey, Primary: Span{Line: 2}, Message: "y"})
	bag.Add(Diagnostic{Severity: SevError, Code: LogBadTermID, Primary: Span{Line: 2}, Message: "z"})
	bag.Add(Diagnostic{Severity: SevWarning, Code: LogBadNumber, Primary: Span{Line: 9}, Message: "x"})

	bag.Dedup()
	if bag.Len() != 3 {
		t.Fatalf("Len after dedup = %d, want 3", bag.Len())
	}
	bag.Sort()
	items := bag.Items()
	if items[0].Code != LogBadTermID || items[1].Code != LogBadKey || items[2].Code != LogBadNumber {
		t.Fatalf("unexpected order: %v", items)
	}
}

func TestCodeID(t *testing.T) {
	cases := []struct {
		code Code
		want string
	}{
		{LogMalformedLine, "LOG1001"},
		{AnaBlameConflict, "ANA2001"},
		{Code(9999), "E0000"},
	}
	for _, tc := range cases {
		if got := tc.code.ID(); got != tc.want {
			t.Fatalf("%d.ID() = %q, want %q", tc.code, got, tc.want)
		}
	}
	if LogOrphanEnode.Title() == UnknownCode.Title() {
		t.Fatalf("LogOrphanEnode must have a title")
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Severity: SevWarning, Code: LogUnknownTag, Primary: Span{Line: 12}, Message: "unknown tag"}
	if got, want := d.String(), "line 12: WARNING LOG1002: unknown tag"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
