package decoder

import (
	"fmt"
	"strconv"

	"github.com/invisible-tech/sca-event-decoder/internal/field"
	"github.com/invisible-tech/sca-event-decoder/internal/metrics"
	"github.com/invisible-tech/sca-event-decoder/internal/store"
	"github.com/invisible-tech/sca-event-decoder/internal/validate"
)

var summaryConditions = []field.Condition{
	{Field: field.PolicyID, Type: field.TypeString, Mandatory: true},
	{Field: field.ScanID, Type: field.TypeInt, Mandatory: true},
	{Field: field.StartTime, Type: field.TypeInt, Mandatory: true},
	{Field: field.EndTime, Type: field.TypeInt, Mandatory: true},
	{Field: field.Passed, Type: field.TypeInt, Mandatory: true},
	{Field: field.Failed, Type: field.TypeInt, Mandatory: true},
	{Field: field.Invalid, Type: field.TypeInt, Mandatory: true},
	{Field: field.TotalChecks, Type: field.TypeInt, Mandatory: true},
	{Field: field.Score, Type: field.TypeInt, Mandatory: true},
	{Field: field.Hash, Type: field.TypeString, Mandatory: true},
	{Field: field.HashFile, Type: field.TypeString, Mandatory: true},
	{Field: field.File, Type: field.TypeString, Mandatory: true},
	{Field: field.PolicyName, Type: field.TypeString, Mandatory: true},
	{Field: field.Description, Type: field.TypeString, Mandatory: false},
	{Field: field.References, Type: field.TypeString, Mandatory: false},
}

func isValidScanInfoEvent(ctx *DecodeContext) bool {
	return validate.IsValidEvent(ctx.Doc, ctx.SourcePath, summaryConditions)
}

func handleSummary(ctx *DecodeContext) error {
	if !isValidScanInfoEvent(ctx) {
		return fmt.Errorf("fail on isValidScanInfoEvent: %w", ErrValidation)
	}

	policyID, _ := ctx.Doc.GetString(ctx.SourcePath(field.PolicyID))
	eventHash, _ := ctx.Doc.GetString(ctx.SourcePath(field.Hash))
	eventHashFile, _ := ctx.Doc.GetString(ctx.SourcePath(field.HashFile))
	isFirstScan := ctx.Doc.Exists(ctx.SourcePath(field.FirstScan))
	forceAlert := ctx.Doc.Exists(ctx.SourcePath(field.ForceAlert))

	queryScan := store.BuildQuery(ctx.AgentID, "query_scan", policyID)
	scanOutcome, scanPayload := ctx.Store.SearchAndParse(queryScan, true)

	var scanInfoUpdate, normalize bool
	switch scanOutcome {
	case store.Found:
		storedHash := firstToken(scanPayload)
		scanInfoUpdate = true
		normalize = (storedHash != eventHash && !isFirstScan) || forceAlert
	case store.NotFound:
		scanInfoUpdate = false
		normalize = true
	case store.Err:
		metrics.StoreErrorsTotal.WithLabelValues("query_scan").Inc()
		ctx.Log.Warn("sca decoder: query_scan failed, skipping scan-info save")
	}

	if scanOutcome != store.Err {
		if err := saveScanInfo(ctx, scanInfoUpdate, policyID); err != nil {
			ctx.Log.WithError(err).Warn("sca decoder: saveScanInfo failed")
		} else {
			if normalize {
				fillScanInfo(ctx)
			}
			if !scanInfoUpdate && isFirstScan {
				pushDumpRequest(ctx, policyID, true, metrics.ReasonFirstScan)
			}
		}
	}

	queryPolicy := store.BuildQuery(ctx.AgentID, "query_policy", policyID)
	policyOutcome, _ := ctx.Store.SearchAndParse(queryPolicy, false)
	switch policyOutcome {
	case store.Found:
		updatePolicyInfo(ctx, policyID, eventHashFile)
	case store.NotFound:
		insertPolicyInfo(ctx, policyID)
	case store.Err:
		metrics.StoreErrorsTotal.WithLabelValues("query_policy").Inc()
		ctx.Log.Warn("sca decoder: query_policy failed")
	}

	checkResultsAndDump(ctx, policyID, isFirstScan, eventHash)

	return nil
}

// saveScanInfo issues insert_scan_info or update_scan_info_start
// depending on whether the policy's scan-info row already exists,
// using the bit-for-bit field orderings of the two verbs.
func saveScanInfo(ctx *DecodeContext, update bool, policyID string) error {
	startTime, _ := ctx.Doc.GetInt(ctx.SourcePath(field.StartTime))
	endTime, _ := ctx.Doc.GetInt(ctx.SourcePath(field.EndTime))
	scanID, _ := ctx.Doc.GetInt(ctx.SourcePath(field.ScanID))
	passed, _ := ctx.Doc.GetInt(ctx.SourcePath(field.Passed))
	failed, _ := ctx.Doc.GetInt(ctx.SourcePath(field.Failed))
	invalid, _ := ctx.Doc.GetInt(ctx.SourcePath(field.Invalid))
	total, _ := ctx.Doc.GetInt(ctx.SourcePath(field.TotalChecks))
	score, _ := ctx.Doc.GetInt(ctx.SourcePath(field.Score))
	hash, _ := ctx.Doc.GetString(ctx.SourcePath(field.Hash))

	verb := "insert_scan_info"
	var q string
	if update {
		verb = "update_scan_info_start"
		q = store.BuildQuery(ctx.AgentID, verb,
			policyID, itoa(startTime), itoa(endTime), itoa(scanID),
			itoa(passed), itoa(failed), itoa(invalid), itoa(total), itoa(score), hash)
	} else {
		q = store.BuildQuery(ctx.AgentID, verb,
			itoa(startTime), itoa(endTime), itoa(scanID), policyID,
			itoa(passed), itoa(failed), itoa(invalid), itoa(total), itoa(score), hash)
	}

	if err := ctx.Store.Write(q); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues(verb).Inc()
		return err
	}
	return nil
}

// fillScanInfo materializes the normalized summary under /sca.
func fillScanInfo(ctx *DecodeContext) {
	ctx.Doc.SetString(ctx.DestPath(field.Type), TypeSummary)
	name, _ := ctx.Doc.GetString(ctx.SourcePath(field.PolicyName))
	ctx.Doc.SetString(ctx.DestPath(field.Policy), name)

	copyIfExist(ctx, field.ScanID)
	copyIfExist(ctx, field.Description)
	copyIfExist(ctx, field.PolicyID)
	copyIfExist(ctx, field.Passed)
	copyIfExist(ctx, field.Failed)
	copyIfExist(ctx, field.Invalid)
	copyIfExist(ctx, field.TotalChecks)
	copyIfExist(ctx, field.Score)
	copyIfExist(ctx, field.File)
}

// insertPolicyInfo writes a new policy row, substituting "NULL" for
// absent optional strings.
func insertPolicyInfo(ctx *DecodeContext, policyID string) {
	name, okName := ctx.Doc.GetString(ctx.SourcePath(field.PolicyName))
	file, okFile := ctx.Doc.GetString(ctx.SourcePath(field.File))
	desc, okDesc := ctx.Doc.GetString(ctx.SourcePath(field.Description))
	refs, okRefs := ctx.Doc.GetString(ctx.SourcePath(field.References))
	hashFile, okHashFile := ctx.Doc.GetString(ctx.SourcePath(field.HashFile))

	q := store.BuildQuery(ctx.AgentID, "insert_policy",
		orNull(name, okName), orNull(file, okFile), policyID,
		orNull(desc, okDesc), orNull(refs, okRefs), orNull(hashFile, okHashFile))
	if err := ctx.Store.Write(q); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("insert_policy").Inc()
		ctx.Log.WithError(err).Warn("sca decoder: insert_policy failed")
	}
}

// updatePolicyInfo deletes and re-dumps the policy when the stored
// policy-file hash disagrees with the event's.
func updatePolicyInfo(ctx *DecodeContext, policyID, eventHashFile string) {
	q := store.BuildQuery(ctx.AgentID, "query_policy_sha256", policyID)
	outcome, oldHashFile := ctx.Store.SearchAndParse(q, true)
	switch outcome {
	case store.Found:
		if oldHashFile != eventHashFile {
			deletePolicyAndCheck(ctx, policyID)
			pushDumpRequest(ctx, policyID, true, metrics.ReasonPolicyHashMismatch)
		}
	case store.Err:
		metrics.StoreErrorsTotal.WithLabelValues("query_policy_sha256").Inc()
		ctx.Log.Warn("sca decoder: query_policy_sha256 failed")
	}
}

// checkResultsAndDump compares the stored check-results hash against
// the event's and dumps on mismatch or absence.
func checkResultsAndDump(ctx *DecodeContext, policyID string, isFirstScan bool, eventHash string) {
	q := store.BuildQuery(ctx.AgentID, "query_results", policyID)
	outcome, storedHash := ctx.Store.SearchAndParse(q, true)
	switch outcome {
	case store.Found:
		if storedHash != eventHash {
			pushDumpRequest(ctx, policyID, isFirstScan, metrics.ReasonResultsMismatch)
		}
	case store.NotFound:
		pushDumpRequest(ctx, policyID, isFirstScan, metrics.ReasonResultsMissing)
	case store.Err:
		metrics.StoreErrorsTotal.WithLabelValues("query_results").Inc()
		ctx.Log.Warn("sca decoder: query_results failed")
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
