package decoder

import (
	"strings"
	"testing"
)

const checkEventJSON = `{
  "sca": {
    "id": 1,
    "policy": "cis_debian",
    "policy_id": "cis_debian10",
    "check": {
      "id": 100,
      "title": "Ensure root login is restricted",
      "result": "passed",
      "file": "/etc/ssh/sshd_config,/etc/ssh/sshd_config.d"
    }
  }
}`

// S1: new check, not previously stored -> insert + compliance/rules,
// and always normalizes since prev is empty.
func TestHandleCheck_NewCheckInserts(t *testing.T) {
	rec := &queryRecorder{}
	storeClient := fakeStore(t, rec, verbResponder(map[string]string{
		"query":  "ok not found",
		"insert": "ok found 1",
	}))
	fwd, _ := fakeForwarder(t)

	doc := newDoc(t, checkEventJSON)
	ctx := newCtx(doc, "001", storeClient, fwd)

	if err := handleCheck(ctx); err != nil {
		t.Fatalf("handleCheck: %v", err)
	}

	queries := rec.all()
	if len(queries) == 0 || !strings.Contains(queries[0], " sca query 100") {
		t.Fatalf("expected first query for check 100, got %v", queries)
	}
	foundInsert := false
	for _, q := range queries {
		if strings.Contains(q, " sca insert ") {
			foundInsert = true
		}
	}
	if !foundInsert {
		t.Errorf("expected an insert query, got %v", queries)
	}

	result, ok := doc.GetString("/sca/check/result")
	if !ok || result != "passed" {
		t.Errorf("normalized check/result = %q, %v, want passed", result, ok)
	}
	if typ, _ := doc.GetString("/sca/type"); typ != TypeCheck {
		t.Errorf("/sca/type = %q, want %q", typ, TypeCheck)
	}
	files, ok := doc.GetArray("/sca/check/file")
	if !ok || len(files) != 2 {
		t.Errorf("/sca/check/file = %v, want 2-element array", files)
	}
}

// S2: check previously stored with a different result -> update + normalize.
func TestHandleCheck_ExistingChangedResultNormalizes(t *testing.T) {
	rec := &queryRecorder{}
	storeClient := fakeStore(t, rec, verbResponder(map[string]string{
		"query":  "ok found failed",
		"update": "ok found 1",
	}))
	fwd, _ := fakeForwarder(t)

	doc := newDoc(t, checkEventJSON)
	ctx := newCtx(doc, "001", storeClient, fwd)

	if err := handleCheck(ctx); err != nil {
		t.Fatalf("handleCheck: %v", err)
	}

	prev, ok := doc.GetString("/sca/check/previous_result")
	if !ok || prev != "failed" {
		t.Errorf("previous_result = %q, %v, want failed", prev, ok)
	}
	if !doc.Exists("/sca/check/result") {
		t.Errorf("expected normalized result to be written")
	}

	for _, q := range rec.all() {
		if strings.Contains(q, " sca insert_compliance ") || strings.Contains(q, " sca insert_rules ") {
			t.Errorf("unexpected compliance/rules insert on an existing check: %v", rec.all())
		}
	}
}

// S3: check previously stored with the same result -> update, no normalize.
func TestHandleCheck_ExistingUnchangedResultSkipsNormalize(t *testing.T) {
	rec := &queryRecorder{}
	storeClient := fakeStore(t, rec, verbResponder(map[string]string{
		"query":  "ok found passed",
		"update": "ok found 1",
	}))
	fwd, _ := fakeForwarder(t)

	doc := newDoc(t, checkEventJSON)
	ctx := newCtx(doc, "001", storeClient, fwd)

	if err := handleCheck(ctx); err != nil {
		t.Fatalf("handleCheck: %v", err)
	}

	if doc.Exists("/sca/type") {
		t.Errorf("expected no normalization write when result is unchanged")
	}
}

// isValidCheckEvent keys the result-or-(status,reason) rule on presence,
// not on the result string being non-empty.
func TestIsValidCheckEvent_EmptyResultStillCountsAsPresent(t *testing.T) {
	doc := newDoc(t, strings.Replace(checkEventJSON, `"passed"`, `""`, 1))
	ctx := newCtx(doc, "001", nil, nil)

	if !isValidCheckEvent(ctx) {
		t.Errorf("expected a present-but-empty check/result to satisfy the cross-field rule")
	}
}

func TestHandleCheck_InvalidEventFails(t *testing.T) {
	rec := &queryRecorder{}
	storeClient := fakeStore(t, rec, verbResponder(nil))
	fwd, _ := fakeForwarder(t)

	doc := newDoc(t, `{"sca":{"policy":"cis_debian"}}`)
	ctx := newCtx(doc, "001", storeClient, fwd)

	if err := handleCheck(ctx); err == nil {
		t.Errorf("expected an error for an incomplete check event")
	}
	if len(rec.all()) != 0 {
		t.Errorf("expected no store queries for an invalid event, got %v", rec.all())
	}
}
