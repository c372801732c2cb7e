package decoder

import (
	"fmt"
	"strconv"

	"github.com/invisible-tech/sca-event-decoder/internal/field"
	"github.com/invisible-tech/sca-event-decoder/internal/metrics"
	"github.com/invisible-tech/sca-event-decoder/internal/store"
	"github.com/invisible-tech/sca-event-decoder/internal/validate"
)

var checkConditions = []field.Condition{
	{Field: field.Check, Type: field.TypeObject, Mandatory: true},
	{Field: field.CheckID, Type: field.TypeInt, Mandatory: true},
	{Field: field.CheckTitle, Type: field.TypeString, Mandatory: true},
	{Field: field.ID, Type: field.TypeInt, Mandatory: true},
	{Field: field.Policy, Type: field.TypeString, Mandatory: true},
	{Field: field.PolicyID, Type: field.TypeString, Mandatory: true},
	{Field: field.CheckDescription, Type: field.TypeString, Mandatory: false},
	{Field: field.CheckRationale, Type: field.TypeString, Mandatory: false},
	{Field: field.CheckRemediation, Type: field.TypeString, Mandatory: false},
	{Field: field.CheckReferences, Type: field.TypeString, Mandatory: false},
	{Field: field.CheckCondition, Type: field.TypeString, Mandatory: false},
	{Field: field.CheckDirectory, Type: field.TypeString, Mandatory: false},
	{Field: field.CheckProcess, Type: field.TypeString, Mandatory: false},
	{Field: field.CheckRegistry, Type: field.TypeString, Mandatory: false},
	{Field: field.CheckCommand, Type: field.TypeString, Mandatory: false},
	{Field: field.CheckFile, Type: field.TypeString, Mandatory: false},
	{Field: field.CheckCompliance, Type: field.TypeObject, Mandatory: false},
	{Field: field.CheckRules, Type: field.TypeArray, Mandatory: false},
	{Field: field.CheckResult, Type: field.TypeString, Mandatory: false},
	{Field: field.CheckStatus, Type: field.TypeString, Mandatory: false},
	{Field: field.CheckReason, Type: field.TypeString, Mandatory: false},
}

// isValidCheckEvent checks the base schema plus the cross-field rule
// that a check carries either a result or a (status, reason) pair.
func isValidCheckEvent(ctx *DecodeContext) bool {
	if !validate.IsValidEvent(ctx.Doc, ctx.SourcePath, checkConditions) {
		return false
	}
	hasResult := ctx.Doc.Exists(ctx.SourcePath(field.CheckResult))
	hasStatus := ctx.Doc.Exists(ctx.SourcePath(field.CheckStatus))
	hasReason := ctx.Doc.Exists(ctx.SourcePath(field.CheckReason))
	return hasResult || (hasStatus && hasReason)
}

func handleCheck(ctx *DecodeContext) error {
	if !isValidCheckEvent(ctx) {
		return fmt.Errorf("invalid check event: %w", ErrValidation)
	}

	checkID, _ := ctx.Doc.GetInt(ctx.SourcePath(field.CheckID))
	id, _ := ctx.Doc.GetInt(ctx.SourcePath(field.ID))
	result, _ := ctx.Doc.GetString(ctx.SourcePath(field.CheckResult))
	status, _ := ctx.Doc.GetString(ctx.SourcePath(field.CheckStatus))
	reason, _ := ctx.Doc.GetString(ctx.SourcePath(field.CheckReason))

	checkIDStr := strconv.FormatInt(checkID, 10)
	queryPrevious := store.BuildQuery(ctx.AgentID, "query", checkIDStr)
	outcome, prev := ctx.Store.SearchAndParse(queryPrevious, true)

	var saveQuery, saveVerb string
	switch outcome {
	case store.Found:
		saveVerb = "update"
		saveQuery = store.BuildQuery(ctx.AgentID, saveVerb, checkIDStr, result, status, reason, strconv.FormatInt(id, 10))
	case store.NotFound:
		saveVerb = "insert"
		saveQuery = store.BuildQuery(ctx.AgentID, saveVerb, ctx.Doc.Str(ctx.SourcePath(field.Root)))
	case store.Err:
		metrics.StoreErrorsTotal.WithLabelValues("query").Inc()
		return fmt.Errorf("check event: query %s failed: %w", checkIDStr, ErrStoreUnavailable)
	}

	if err := ctx.Store.Write(saveQuery); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues(saveVerb).Inc()
		ctx.Log.WithError(err).Warn("sca decoder: check save query failed, continuing")
	}

	if outcome == store.NotFound {
		insertCompliance(ctx, checkID)
		insertRules(ctx, checkID)
	}

	var normalize bool
	if result == "" {
		normalize = status != "" && prev != status
	} else {
		normalize = prev != result
	}

	if normalize {
		fillCheckEvent(ctx, prev)
	}

	return nil
}

// fillCheckEvent materializes the normalized check under the /sca
// destination prefix: the type tag, the previous result if any, the
// identity/metadata fields that exist, CSV-to-array expansions, and
// either the result or the (status, reason) pair.
func fillCheckEvent(ctx *DecodeContext, prev string) {
	ctx.Doc.SetString(ctx.DestPath(field.Type), TypeCheck)
	if prev != "" {
		ctx.Doc.SetString(ctx.DestPath(field.CheckPreviousResult), prev)
	}

	copyIfExist(ctx, field.ID)
	copyIfExist(ctx, field.Policy)
	copyIfExist(ctx, field.PolicyID)
	copyIfExist(ctx, field.CheckID)
	copyIfExist(ctx, field.CheckTitle)
	copyIfExist(ctx, field.CheckDescription)
	copyIfExist(ctx, field.CheckRationale)
	copyIfExist(ctx, field.CheckRemediation)
	copyIfExist(ctx, field.CheckCompliance)
	copyIfExist(ctx, field.CheckReferences)

	for _, f := range field.CSVFields {
		csvStr2ArrayIfExist(ctx, f)
	}

	if result, ok := ctx.Doc.GetString(ctx.SourcePath(field.CheckResult)); ok && result != "" {
		ctx.Doc.SetString(ctx.DestPath(field.CheckResult), result)
		return
	}
	if status, ok := ctx.Doc.GetString(ctx.SourcePath(field.CheckStatus)); ok {
		ctx.Doc.SetString(ctx.DestPath(field.CheckStatus), status)
	}
	if reason, ok := ctx.Doc.GetString(ctx.SourcePath(field.CheckReason)); ok {
		ctx.Doc.SetString(ctx.DestPath(field.CheckReason), reason)
	}
}
