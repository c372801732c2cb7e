package decoder

import (
	"strconv"
	"strings"

	"github.com/invisible-tech/sca-event-decoder/internal/field"
	"github.com/invisible-tech/sca-event-decoder/internal/metrics"
	"github.com/invisible-tech/sca-event-decoder/internal/store"
)

// copyIfExist copies f from its source path to its destination path if
// the source value is present.
func copyIfExist(ctx *DecodeContext, f field.Name) {
	src := ctx.SourcePath(f)
	if ctx.Doc.Exists(src) {
		ctx.Doc.Set(ctx.DestPath(f), src)
	}
}

// csvStr2ArrayIfExist transforms a comma-separated source string into a
// JSON array at the destination path, if the source field is present.
func csvStr2ArrayIfExist(ctx *DecodeContext, f field.Name) {
	csv, ok := ctx.Doc.GetString(ctx.SourcePath(f))
	if !ok {
		return
	}
	dst := ctx.DestPath(f)
	ctx.Doc.SetArray(dst)
	for _, item := range strings.Split(csv, ",") {
		ctx.Doc.AppendString(item, dst)
	}
}

// insertCompliance writes one insert_compliance query per string-valued
// entry in the source's CHECK_COMPLIANCE object. Non-string values are
// skipped with a warning.
func insertCompliance(ctx *DecodeContext, checkID int64) {
	obj, ok := ctx.Doc.GetObject(ctx.SourcePath(field.CheckCompliance))
	if !ok {
		return
	}
	for key, val := range obj {
		s, isStr := val.(string)
		if !isStr {
			ctx.Log.WithField("key", key).Warn("sca decoder: skipping non-string compliance value")
			continue
		}
		q := store.BuildQuery(ctx.AgentID, "insert_compliance", strconv.FormatInt(checkID, 10), key, s)
		if err := ctx.Store.Write(q); err != nil {
			metrics.StoreErrorsTotal.WithLabelValues("insert_compliance").Inc()
			ctx.Log.WithError(err).Warn("sca decoder: insert_compliance failed")
		}
	}
}

// insertRules writes one insert_rules query per recognized entry in the
// source's CHECK_RULES array. Entries whose leading character does not
// map to a known rule type are skipped with a warning.
func insertRules(ctx *DecodeContext, checkID int64) {
	arr, ok := ctx.Doc.GetArray(ctx.SourcePath(field.CheckRules))
	if !ok {
		return
	}
	for _, item := range arr {
		s, isStr := item.(string)
		if !isStr || len(s) == 0 {
			ctx.Log.Warn("sca decoder: skipping non-string rule entry")
			continue
		}
		ruleType, known := field.RuleTypeForTag(s[0])
		if !known {
			ctx.Log.WithField("rule", s).Warn("sca decoder: unknown rule type tag")
			continue
		}
		q := store.BuildQuery(ctx.AgentID, "insert_rules", strconv.FormatInt(checkID, 10), ruleType, s)
		if err := ctx.Store.Write(q); err != nil {
			metrics.StoreErrorsTotal.WithLabelValues("insert_rules").Inc()
			ctx.Log.WithError(err).Warn("sca decoder: insert_rules failed")
		}
	}
}

// deletePolicyAndCheck deletes the policy and its checks. The
// check-delete failure is non-fatal: the primary deletion already
// succeeded, so this still returns true.
func deletePolicyAndCheck(ctx *DecodeContext, policyID string) bool {
	q := store.BuildQuery(ctx.AgentID, "delete_policy", policyID)
	if err := ctx.Store.Write(q); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("delete_policy").Inc()
		ctx.Log.WithError(err).Warn("sca decoder: delete_policy failed")
		return false
	}
	q2 := store.BuildQuery(ctx.AgentID, "delete_check", policyID)
	if err := ctx.Store.Write(q2); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("delete_check").Inc()
		ctx.Log.WithError(err).Warn("sca decoder: delete_check failed after delete_policy succeeded")
	}
	return true
}

// pushDumpRequest records the trigger reason and asks the forwarder to
// send a dump request, independent of whether the send ultimately
// succeeds.
func pushDumpRequest(ctx *DecodeContext, policyID string, firstScan bool, reason string) {
	metrics.DumpRequestsTotal.WithLabelValues(reason).Inc()
	ctx.Forwarder.PushDumpRequest(ctx.AgentID, policyID, firstScan)
	metrics.ForwarderConnected.Set(boolToFloat(ctx.Forwarder.IsConnected()))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// firstToken returns the portion of s before the first space, or s
// itself if there is none, or "" if s is empty -- mirroring the
// source's payload.split(' ')[0] extraction.
func firstToken(s string) string {
	if s == "" {
		return ""
	}
	if idx := strings.IndexByte(s, ' '); idx >= 0 {
		return s[:idx]
	}
	return s
}

// orNull substitutes the literal "NULL" for an absent or empty string,
// matching the store write convention for optional text fields.
func orNull(s string, ok bool) string {
	if !ok || s == "" {
		return "NULL"
	}
	return s
}
