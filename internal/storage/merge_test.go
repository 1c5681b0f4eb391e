package storage

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"datenbriefd/internal/recipient"
	logx "datenbriefd/pkg/logx"
)

func mustRegistry(t *testing.T, now time.Time, names ...string) *recipient.Registry {
	t.Helper()
	recs := make([]recipient.Recipient, 0, len(names))
	for _, n := range names {
		recs = append(recs, recipient.New(n, 0, now))
	}
	reg, err := recipient.NewRegistry(recs...)
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}
	return reg
}

func mustSnapshot(t *testing.T, doc string) Snapshot {
	t.Helper()
	snap, err := decodeDocument("test", []byte(doc))
	if err != nil {
		t.Fatalf("decodeDocument error: %v", err)
	}
	return snap
}

func TestMergeAppliesEntry(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := mustRegistry(t, now, "test")
	snap := mustSnapshot(t, `{"test":{"next":"2019-09-29T11:13:56.692549889+00:00","reminder":20}}`)

	rep := Merge(reg, snap, logx.Nop())

	r, _ := reg.Lookup("test")
	want := time.Date(2019, 9, 29, 11, 13, 56, 692549889, time.UTC)
	if !r.NextDue.Equal(want) {
		t.Fatalf("NextDue = %v, want %v", r.NextDue, want)
	}
	if r.Reminder != 20 {
		t.Fatalf("Reminder = %d, want 20", r.Reminder)
	}
	if strings.Join(rep.Merged, ",") != "test" || len(rep.Errors) != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestMergeToleratesUnknownEntries(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := mustRegistry(t, now, "acme")
	snap := mustSnapshot(t, `{"gone":{"next":"2020-01-01T00:00:00+00:00","reminder":1}}`)

	rep := Merge(reg, snap, logx.Nop())

	r, _ := reg.Lookup("acme")
	if !r.NextDue.Equal(now) || r.Reminder != 0 {
		t.Fatalf("acme must keep defaults, got %+v", r)
	}
	if strings.Join(rep.Unknown, ",") != "gone" || strings.Join(rep.Missing, ",") != "acme" {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if _, ok := SnapshotOf(reg)["gone"]; ok {
		t.Fatal("unknown entries must not be carried into the next save")
	}
}

func TestMergeToleratesMalformedFields(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := mustRegistry(t, now, "a", "b", "c", "d", "e")
	snap := mustSnapshot(t, `{
		"a": {"next": "not-a-date", "reminder": 4},
		"b": {"next": "2021-05-05T10:00:00+02:00", "reminder": 2},
		"c": "oops",
		"d": {"next": 12, "reminder": -3},
		"e": {"next": "2021-05-05T10:00:00Z", "reminder": 1.5}
	}`)

	var buf strings.Builder
	rep := Merge(reg, snap, logx.NewWriter(&buf, "debug"))

	a, _ := reg.Lookup("a")
	if !a.NextDue.Equal(now) || a.Reminder != 4 {
		t.Fatalf("a: bad timestamp must keep default next but apply reminder, got %+v", a)
	}
	b, _ := reg.Lookup("b")
	if !b.NextDue.Equal(time.Date(2021, 5, 5, 8, 0, 0, 0, time.UTC)) || b.NextDue.Location() != time.UTC {
		t.Fatalf("b: NextDue = %v, want 08:00 UTC", b.NextDue)
	}
	d, _ := reg.Lookup("d")
	if !d.NextDue.Equal(now) || d.Reminder != 0 {
		t.Fatalf("d must keep defaults, got %+v", d)
	}
	e, _ := reg.Lookup("e")
	if e.Reminder != 0 || e.NextDue.Equal(now) {
		t.Fatalf("e: want next applied and fractional reminder ignored, got %+v", e)
	}

	if got := strings.Join(rep.Merged, ","); got != "a,b,e" {
		t.Fatalf("Merged = %q, want a,b,e", got)
	}
	fields := make([]string, 0, len(rep.Errors))
	for _, fe := range rep.Errors {
		fields = append(fields, fe.Name+"."+fe.Field)
	}
	if got := strings.Join(fields, ","); got != "a.next,c.entry,d.next,d.reminder,e.reminder" {
		t.Fatalf("Errors = %q", got)
	}

	// Timestamp problems are logged at error level and name the recipient.
	var sawError bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("log line is not JSON: %q", line)
		}
		if m["level"] == "error" && m["recipient"] == "a" && m["field"] == "next" {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("missing error log for recipient a:\n%s", buf.String())
	}
}

func TestSnapshotOf(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := mustRegistry(t, now, "a", "b")
	b, _ := reg.Lookup("b")
	b.Reminder = 9

	snap := SnapshotOf(reg)
	if len(snap) != 2 || snap["b"].Reminder != 9 || !snap["a"].Next.Equal(now) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
