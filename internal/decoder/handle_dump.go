package decoder

import (
	"fmt"

	"github.com/invisible-tech/sca-event-decoder/internal/field"
	"github.com/invisible-tech/sca-event-decoder/internal/metrics"
	"github.com/invisible-tech/sca-event-decoder/internal/store"
	"github.com/invisible-tech/sca-event-decoder/internal/validate"
)

var dumpConditions = []field.Condition{
	{Field: field.ElementsSent, Type: field.TypeInt, Mandatory: true},
	{Field: field.PolicyID, Type: field.TypeString, Mandatory: true},
	{Field: field.ScanID, Type: field.TypeInt, Mandatory: true},
}

func isValidDumpEvent(ctx *DecodeContext) bool {
	return validate.IsValidEvent(ctx.Doc, ctx.SourcePath, dumpConditions)
}

// handleDump closes out a dump cycle: the distinct-check rows for this
// scan are pruned, then the stored results hash is compared against the
// stored scan-info hash (the full tail, unlike handleSummary's
// first-token extraction) and a non-first-scan dump is requested on any
// mismatch.
func handleDump(ctx *DecodeContext) error {
	if !isValidDumpEvent(ctx) {
		return fmt.Errorf("invalid dump_end event: %w", ErrValidation)
	}

	policyID, _ := ctx.Doc.GetString(ctx.SourcePath(field.PolicyID))
	scanID, _ := ctx.Doc.GetInt(ctx.SourcePath(field.ScanID))

	deleteQ := store.BuildQuery(ctx.AgentID, "delete_check_distinct", policyID, itoa(scanID))
	if err := ctx.Store.Write(deleteQ); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("delete_check_distinct").Inc()
		ctx.Log.WithError(err).Warn("sca decoder: delete_check_distinct failed, continuing")
	}

	resultsOutcome, hashCheckResults := ctx.Store.SearchAndParse(
		store.BuildQuery(ctx.AgentID, "query_results", policyID), true)
	if resultsOutcome == store.Err {
		metrics.StoreErrorsTotal.WithLabelValues("query_results").Inc()
		ctx.Log.Warn("sca decoder: query_results failed")
		return nil
	}
	if resultsOutcome != store.Found {
		return nil
	}

	scanOutcome, hashScanInfo := ctx.Store.SearchAndParse(
		store.BuildQuery(ctx.AgentID, "query_scan", policyID), true)
	if scanOutcome == store.Err {
		metrics.StoreErrorsTotal.WithLabelValues("query_scan").Inc()
		ctx.Log.Warn("sca decoder: query_scan failed")
		return nil
	}
	if scanOutcome != store.Found {
		return nil
	}

	if hashCheckResults != hashScanInfo {
		pushDumpRequest(ctx, policyID, false, metrics.ReasonScanMismatch)
	}

	return nil
}
