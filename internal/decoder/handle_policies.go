package decoder

import (
	"fmt"
	"strings"

	"github.com/invisible-tech/sca-event-decoder/internal/field"
	"github.com/invisible-tech/sca-event-decoder/internal/metrics"
	"github.com/invisible-tech/sca-event-decoder/internal/store"
	"github.com/invisible-tech/sca-event-decoder/internal/validate"
)

var policiesConditions = []field.Condition{
	{Field: field.Policies, Type: field.TypeArray, Mandatory: true},
}

func isValidPoliciesEvent(ctx *DecodeContext) bool {
	return validate.IsValidEvent(ctx.Doc, ctx.SourcePath, policiesConditions)
}

// handlePolicies reconciles the store's known policy set against the
// event's, deleting any stored policy the event no longer lists.
func handlePolicies(ctx *DecodeContext) error {
	if !isValidPoliciesEvent(ctx) {
		return fmt.Errorf("invalid policies event: %w", ErrValidation)
	}

	eventPolicies, _ := ctx.Doc.GetArray(ctx.SourcePath(field.Policies))
	if len(eventPolicies) == 0 {
		ctx.Log.Debug("sca decoder: policies event carries no policies, nothing to reconcile")
		return nil
	}

	known := make(map[string]bool, len(eventPolicies))
	for _, p := range eventPolicies {
		if s, ok := p.(string); ok {
			known[s] = true
		}
	}

	// BuildQuery's trailing empty arg reproduces the original's
	// "... sca query_policies " wire format (a verb with no positional
	// arguments still carries the trailing separator).
	q := store.BuildQuery(ctx.AgentID, "query_policies", "")
	outcome, payload := ctx.Store.SearchAndParse(q, true)
	if outcome == store.Err {
		metrics.StoreErrorsTotal.WithLabelValues("query_policies").Inc()
		ctx.Log.Warn("sca decoder: query_policies failed")
		return nil
	}
	if outcome == store.NotFound || payload == "" {
		return nil
	}

	for _, storedID := range strings.Split(payload, ",") {
		if !known[storedID] {
			deletePolicyAndCheck(ctx, storedID)
		}
	}

	return nil
}
