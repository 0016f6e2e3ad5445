// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel and AggregateModel
//   - identity.go: users
//   - document.go: documents, document_line_items, document_transitions
//   - attachment.go: document_attachments
//   - notification.go: notifications, notification_preferences
//
// The SQL migrations under migrations/ are the source of truth for the
// schema; AutoMigrate over these models is only used by sqlite tests.
package models

// All returns every model, in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&UserModel{},
		&DocumentModel{},
		&DocumentLineItemModel{},
		&DocumentTransitionModel{},
		&AttachmentModel{},
		&NotificationModel{},
		&NotificationPreferenceModel{},
	}
}
