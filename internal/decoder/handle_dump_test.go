package decoder

import (
	"strings"
	"testing"
)

const dumpEventJSON = `{
  "sca": {
    "elements_sent": 42,
    "policy_id": "cis_debian10",
    "scan_id": 55
  }
}`

// S6: the stored results hash and the stored scan-info hash disagree ->
// a non-first-scan dump is requested. Unlike handleSummary,
// handleDump compares the full response tail, not just its first token.
func TestHandleDump_HashesDisagreeDumps(t *testing.T) {
	rec := &queryRecorder{}
	storeClient := fakeStore(t, rec, verbResponder(map[string]string{
		"delete_check_distinct": "ok found 1",
		"query_results":         "ok found abc123 extra",
		"query_scan":            "ok found abc999 extra",
	}))
	fwd, fwdRec := fakeForwarder(t)

	doc := newDoc(t, dumpEventJSON)
	ctx := newCtx(doc, "001", storeClient, fwd)

	if err := handleDump(ctx); err != nil {
		t.Fatalf("handleDump: %v", err)
	}

	msgs := fwdRec.all()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly 1 dump request, got %d: %v", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], "001:sca-dump:cis_debian10:0") {
		t.Errorf("dump message = %q, want firstScan=0", msgs[0])
	}
}

func TestHandleDump_HashesAgreeNoDump(t *testing.T) {
	rec := &queryRecorder{}
	storeClient := fakeStore(t, rec, verbResponder(map[string]string{
		"delete_check_distinct": "ok found 1",
		"query_results":         "ok found abc123 extra",
		"query_scan":            "ok found abc123 extra",
	}))
	fwd, fwdRec := fakeForwarder(t)

	doc := newDoc(t, dumpEventJSON)
	ctx := newCtx(doc, "001", storeClient, fwd)

	if err := handleDump(ctx); err != nil {
		t.Fatalf("handleDump: %v", err)
	}
	if len(fwdRec.all()) != 0 {
		t.Errorf("expected no dump requests when hashes agree, got %v", fwdRec.all())
	}
	_ = rec
}

func TestHandleDump_ResultsMissingSkipsDump(t *testing.T) {
	rec := &queryRecorder{}
	storeClient := fakeStore(t, rec, verbResponder(map[string]string{
		"delete_check_distinct": "ok found 1",
		"query_results":         "ok not found",
	}))
	fwd, fwdRec := fakeForwarder(t)

	doc := newDoc(t, dumpEventJSON)
	ctx := newCtx(doc, "001", storeClient, fwd)

	if err := handleDump(ctx); err != nil {
		t.Fatalf("handleDump: %v", err)
	}
	if len(fwdRec.all()) != 0 {
		t.Errorf("expected no dump requests when results are missing, got %v", fwdRec.all())
	}
}
