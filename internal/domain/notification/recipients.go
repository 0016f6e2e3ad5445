package notification

import (
	"errors"
	"fmt"

	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// Audience selects who receives a notification for an edge
type Audience string

const (
	AudienceOwner Audience = "owner" // The vendor who owns the document
	AudienceRole  Audience = "role"  // Every active user with Rule.Role
)

// Rule describes the notification produced when a document enters a state
type Rule struct {
	Audience Audience
	Role     identity.Role // set when Audience is AudienceRole
	Toggle   Toggle
	Kind     Kind
	Title    string // format with document number
	Message  string // format with document type and number
}

type ruleKey struct {
	docType document.Type
	to      document.Status
}

// rules is a pure function of (document type, target state). Every
// pipeline edge must have an entry; CheckRules enforces it at startup.
var rules = map[ruleKey]Rule{
	{document.TypeBAPB, document.StatusSubmitted}: {
		Audience: AudienceRole, Role: identity.RolePIC, Toggle: ToggleSubmission, Kind: KindInfo,
		Title:   "%s menunggu pemeriksaan",
		Message: "%s %s telah diajukan dan menunggu pemeriksaan barang.",
	},
	{document.TypeBAPB, document.StatusPICChecked}: {
		Audience: AudienceRole, Role: identity.RolePIC, Toggle: ToggleReview, Kind: KindInfo,
		Title:   "%s siap disetujui",
		Message: "Pemeriksaan barang %s %s selesai dan menunggu persetujuan.",
	},
	{document.TypeBAPB, document.StatusApproved}: {
		Audience: AudienceOwner, Toggle: ToggleApproval, Kind: KindSuccess,
		Title:   "%s disetujui",
		Message: "%s %s telah disetujui.",
	},
	{document.TypeBAPB, document.StatusRejected}: {
		Audience: AudienceOwner, Toggle: ToggleRejection, Kind: KindError,
		Title:   "%s ditolak",
		Message: "%s %s ditolak oleh PIC.",
	},
	{document.TypeBAPP, document.StatusSubmitted}: {
		Audience: AudienceRole, Role: identity.RolePIC, Toggle: ToggleSubmission, Kind: KindInfo,
		Title:   "%s menunggu review",
		Message: "%s %s telah diajukan dan menunggu review PIC.",
	},
	{document.TypeBAPP, document.StatusReviewedPIC}: {
		Audience: AudienceRole, Role: identity.RoleDireksi, Toggle: ToggleReview, Kind: KindInfo,
		Title:   "%s menunggu persetujuan Direksi",
		Message: "%s %s telah direview PIC dan menunggu persetujuan Direksi.",
	},
	{document.TypeBAPP, document.StatusApprovedDireksi}: {
		Audience: AudienceOwner, Toggle: ToggleApproval, Kind: KindSuccess,
		Title:   "%s disetujui Direksi",
		Message: "%s %s telah disetujui Direksi.",
	},
	{document.TypeBAPP, document.StatusRejected}: {
		Audience: AudienceOwner, Toggle: ToggleRejection, Kind: KindError,
		Title:   "%s ditolak",
		Message: "%s %s ditolak.",
	},
}

// ErrMissingRule is returned when an edge has no recipient rule
var ErrMissingRule = errors.New("notification: edge has no recipient rule")

// RuleFor returns the rule for a document entering state to
func RuleFor(t document.Type, to document.Status) (Rule, error) {
	r, ok := rules[ruleKey{docType: t, to: to}]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s -> %s", ErrMissingRule, t, to)
	}
	return r, nil
}

// CheckRules verifies that every edge has a recipient rule
func CheckRules(edges []document.Edge) error {
	var errs []error
	for _, e := range edges {
		if _, err := RuleFor(e.Type, e.To); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Render fills the title and message templates for a document
func (r Rule) Render(d *document.Document) (title, message string) {
	return fmt.Sprintf(r.Title, d.Number), fmt.Sprintf(r.Message, d.Type, d.Number)
}

// Resolve turns the rule into a recipient list. roleMembers holds the
// active users of Rule.Role. The actor never receives its own
// notification and duplicates are removed.
func (r Rule) Resolve(d *document.Document, actorID uuid.UUID, roleMembers []*identity.User) []identity.Actor {
	seen := make(map[uuid.UUID]bool)
	var out []identity.Actor
	add := func(a identity.Actor) {
		if a.UserID == actorID || seen[a.UserID] {
			return
		}
		seen[a.UserID] = true
		out = append(out, a)
	}

	switch r.Audience {
	case AudienceOwner:
		add(identity.NewActor(d.OwnerID, identity.RoleVendor))
	case AudienceRole:
		for _, u := range roleMembers {
			if u.Active && u.Role == r.Role {
				add(u.Actor())
			}
		}
	}
	return out
}
