package document

import (
	"fmt"

	"github.com/bapx/backend/internal/domain/identity"
)

// PayloadKind is the shape of data an edge requires
type PayloadKind string

const (
	PayloadNote       PayloadKind = "note"       // Optional free-text note
	PayloadInspection PayloadKind = "inspection" // Full line-item list, every item checked
	PayloadReason     PayloadKind = "reason"     // Mandatory non-empty reason
)

// Edge is a single authorized state-to-state move in a pipeline
type Edge struct {
	Type      Type
	From      Status
	To        Status
	Role      identity.Role
	Payload   PayloadKind
	OwnerOnly bool
}

// Name returns a stable identifier for the edge, e.g. "BAPB:submitted->pic_checked"
func (e Edge) Name() string {
	return fmt.Sprintf("%s:%s->%s", e.Type, e.From, e.To)
}

type edgeKey struct {
	from Status
	to   Status
}

// pipelines holds one table per document type. An edge that is not
// listed here cannot be taken.
var pipelines = map[Type]map[edgeKey]Edge{
	TypeBAPB: buildTable(TypeBAPB, []Edge{
		{From: StatusDraft, To: StatusSubmitted, Role: identity.RoleVendor, Payload: PayloadNote, OwnerOnly: true},
		{From: StatusSubmitted, To: StatusPICChecked, Role: identity.RolePIC, Payload: PayloadInspection},
		{From: StatusPICChecked, To: StatusApproved, Role: identity.RolePIC, Payload: PayloadNote},
		{From: StatusSubmitted, To: StatusRejected, Role: identity.RolePIC, Payload: PayloadReason},
		{From: StatusPICChecked, To: StatusRejected, Role: identity.RolePIC, Payload: PayloadReason},
	}),
	TypeBAPP: buildTable(TypeBAPP, []Edge{
		{From: StatusDraft, To: StatusSubmitted, Role: identity.RoleVendor, Payload: PayloadNote, OwnerOnly: true},
		{From: StatusSubmitted, To: StatusReviewedPIC, Role: identity.RolePIC, Payload: PayloadInspection},
		{From: StatusReviewedPIC, To: StatusApprovedDireksi, Role: identity.RoleDireksi, Payload: PayloadNote},
		{From: StatusSubmitted, To: StatusRejected, Role: identity.RolePIC, Payload: PayloadReason},
		{From: StatusReviewedPIC, To: StatusRejected, Role: identity.RoleDireksi, Payload: PayloadReason},
	}),
}

// edgeOrder keeps Edges deterministic for callers that iterate
var edgeOrder = map[Type][]Edge{}

func buildTable(t Type, edges []Edge) map[edgeKey]Edge {
	table := make(map[edgeKey]Edge, len(edges))
	for _, e := range edges {
		e.Type = t
		key := edgeKey{from: e.From, to: e.To}
		if _, dup := table[key]; dup {
			panic(fmt.Sprintf("duplicate edge %s", e.Name()))
		}
		table[key] = e
		edgeOrder[t] = append(edgeOrder[t], e)
	}
	return table
}

// LookupEdge returns the edge of documentType going from -> to
func LookupEdge(t Type, from, to Status) (Edge, bool) {
	table, ok := pipelines[t]
	if !ok {
		return Edge{}, false
	}
	e, ok := table[edgeKey{from: from, to: to}]
	return e, ok
}

// Edges returns the edges of a pipeline in declaration order
func Edges(t Type) []Edge {
	out := make([]Edge, len(edgeOrder[t]))
	copy(out, edgeOrder[t])
	return out
}

// AllEdges returns the edges of every pipeline
func AllEdges() []Edge {
	var out []Edge
	for _, t := range AllTypes {
		out = append(out, Edges(t)...)
	}
	return out
}

// NextStatuses returns the states reachable from s in one step
func NextStatuses(t Type, s Status) []Status {
	var out []Status
	for _, e := range edgeOrder[t] {
		if e.From == s {
			out = append(out, e.To)
		}
	}
	return out
}

// AvailableEdges returns the edges an actor could take on the document
// right now, ignoring payload requirements
func AvailableEdges(d *Document, actor identity.Actor) []Edge {
	var out []Edge
	for _, e := range edgeOrder[d.Type] {
		if e.From != d.Status || e.Role != actor.Role {
			continue
		}
		if e.OwnerOnly && !d.IsOwnedBy(actor.UserID) {
			continue
		}
		out = append(out, e)
	}
	return out
}
