package notification

import (
	"time"

	"github.com/google/uuid"
)

// Toggle names a preference switch
type Toggle string

const (
	ToggleSubmission Toggle = "notify_on_submission" // A document entered a reviewer's queue
	ToggleReview     Toggle = "notify_on_review"     // Inspection or review completed
	ToggleApproval   Toggle = "notify_on_approval"   // Final approval
	ToggleRejection  Toggle = "notify_on_rejection"  // Rejection
)

// Preference is a user's set of notification switches. A user without a
// stored preference receives everything.
type Preference struct {
	UserID             uuid.UUID
	NotifyOnSubmission bool
	NotifyOnReview     bool
	NotifyOnApproval   bool
	NotifyOnRejection  bool
	UpdatedAt          time.Time
}

// DefaultPreference returns the all-enabled preference of a user
func DefaultPreference(userID uuid.UUID) *Preference {
	return &Preference{
		UserID:             userID,
		NotifyOnSubmission: true,
		NotifyOnReview:     true,
		NotifyOnApproval:   true,
		NotifyOnRejection:  true,
	}
}

// Allows reports whether the toggle is enabled
func (p *Preference) Allows(t Toggle) bool {
	switch t {
	case ToggleSubmission:
		return p.NotifyOnSubmission
	case ToggleReview:
		return p.NotifyOnReview
	case ToggleApproval:
		return p.NotifyOnApproval
	case ToggleRejection:
		return p.NotifyOnRejection
	}
	return false
}

// PreferenceUpdate is a partial update; nil fields are left unchanged
type PreferenceUpdate struct {
	NotifyOnSubmission *bool
	NotifyOnReview     *bool
	NotifyOnApproval   *bool
	NotifyOnRejection  *bool
}

// Apply merges u into p
func (p *Preference) Apply(u PreferenceUpdate) {
	if u.NotifyOnSubmission != nil {
		p.NotifyOnSubmission = *u.NotifyOnSubmission
	}
	if u.NotifyOnReview != nil {
		p.NotifyOnReview = *u.NotifyOnReview
	}
	if u.NotifyOnApproval != nil {
		p.NotifyOnApproval = *u.NotifyOnApproval
	}
	if u.NotifyOnRejection != nil {
		p.NotifyOnRejection = *u.NotifyOnRejection
	}
	p.UpdatedAt = time.Now()
}
