// Package decoder implements the SCA event decoder: the dispatcher that
// routes an inbound agent event to its handler, the four handlers
// themselves, and the rule/compliance helpers they share.
package decoder

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/invisible-tech/sca-event-decoder/internal/event"
	"github.com/invisible-tech/sca-event-decoder/internal/field"
	"github.com/invisible-tech/sca-event-decoder/internal/forward"
	"github.com/invisible-tech/sca-event-decoder/internal/metrics"
	"github.com/invisible-tech/sca-event-decoder/internal/store"
)

// Event kinds recognized by the dispatcher.
const (
	TypeCheck    = "check"
	TypeSummary  = "summary"
	TypePolicies = "policies"
	TypeDumpEnd  = "dump_end"
)

// DecodeContext is the per-call view a handler operates against: the
// mutable event document, the agent identity, the shared store and
// forwarder clients, and the source/destination path mappings bound at
// dispatch time.
type DecodeContext struct {
	Doc       *event.Document
	AgentID   string
	Store     *store.Client
	Forwarder *forward.Client
	Log       *logrus.Logger

	// SourcePath resolves a field to its path under the caller-supplied
	// source prefix. DestPath is always rooted at /sca.
	SourcePath func(field.Name) string
	DestPath   func(field.Name) string
}

// Decoder binds a store client and a forwarder client once, then
// decodes events against them. It retains no per-event state; all
// state needed across invocations lives in the store.
type Decoder struct {
	store     *store.Client
	forwarder *forward.Client
	log       *logrus.Logger
}

// New builds a Decoder over the given store and forwarder clients.
func New(storeClient *store.Client, forwarderClient *forward.Client, log *logrus.Logger) *Decoder {
	return &Decoder{store: storeClient, forwarder: forwarderClient, log: log}
}

// Decode dispatches one event. sourceSCApath and agentIDPath are
// JSON-pointer paths into doc; targetFieldPath receives the boolean
// success/failure result, exactly one write per call.
//
// If sourceSCApath or agentIDPath do not resolve, or agentIDPath is not
// a string, or /type is absent or unrecognized, Decode fails without
// invoking a handler.
func (d *Decoder) Decode(doc *event.Document, sourceSCApath, agentIDPath, targetFieldPath string) error {
	if !doc.Exists(sourceSCApath) || !doc.Exists(agentIDPath) || !doc.IsString(agentIDPath) {
		doc.SetBool(targetFieldPath, false)
		metrics.EventsTotal.WithLabelValues("unknown", metrics.OutcomeFailure).Inc()
		return fmt.Errorf("sca decoder: %s or %s not found: %w", sourceSCApath, agentIDPath, ErrValidation)
	}
	agentID, _ := doc.GetString(agentIDPath)

	typePath := sourceSCApath + field.RelativePath(field.Type)
	typ, ok := doc.GetString(typePath)
	if !ok {
		doc.SetBool(targetFieldPath, false)
		metrics.EventsTotal.WithLabelValues("unknown", metrics.OutcomeFailure).Inc()
		return fmt.Errorf("sca decoder: %s not found or not a string: %w", typePath, ErrValidation)
	}

	ctx := &DecodeContext{
		Doc:       doc,
		AgentID:   agentID,
		Store:     d.store,
		Forwarder: d.forwarder,
		Log:       d.log,
		SourcePath: func(f field.Name) string {
			return sourceSCApath + field.RelativePath(f)
		},
		DestPath: func(f field.Name) string {
			return "/sca" + field.RelativePath(f)
		},
	}

	var err error
	switch typ {
	case TypeCheck:
		err = handleCheck(ctx)
	case TypeSummary:
		err = handleSummary(ctx)
	case TypePolicies:
		err = handlePolicies(ctx)
	case TypeDumpEnd:
		err = handleDump(ctx)
	default:
		err = fmt.Errorf("sca decoder: unknown type %q: %w", typ, ErrUnknownType)
	}

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	metrics.EventsTotal.WithLabelValues(typ, outcome).Inc()
	doc.SetBool(targetFieldPath, err == nil)
	return err
}
