package attachment

import (
	"fmt"
	"mime"
	"strings"

	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/shared"
)

// DefaultMaxFileSize is the per-file limit when none is configured (10MB)
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Policy decides which files are accepted and in which document states
// attachments may change. It is built from deployment configuration.
type Policy struct {
	MaxFileSize       int64
	AllowedMIMETypes  map[string]bool
	AllowedExtensions map[string]bool

	// MutableStatuses is the allow-list of document states in which the
	// owner may upload or delete attachments.
	MutableStatuses map[document.Status]bool
}

// PolicyConfig is the plain configuration a Policy is built from
type PolicyConfig struct {
	MaxFileSize       int64
	AllowedMIMETypes  []string
	AllowedExtensions []string
	MutableStatuses   []string
}

// DefaultPolicyConfig returns the defaults: drafts only, common office
// document and image formats
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MaxFileSize: DefaultMaxFileSize,
		AllowedMIMETypes: []string{
			"application/pdf",
			"image/jpeg",
			"image/png",
			"image/webp",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.ms-excel",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		},
		AllowedExtensions: []string{".pdf", ".jpg", ".jpeg", ".png", ".webp", ".doc", ".docx", ".xls", ".xlsx"},
		MutableStatuses:   []string{string(document.StatusDraft)},
	}
}

// NewPolicy validates cfg and builds a Policy
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("attachment max file size must be positive, got %d", cfg.MaxFileSize)
	}
	if len(cfg.MutableStatuses) == 0 {
		return nil, fmt.Errorf("attachment mutable statuses cannot be empty")
	}

	p := &Policy{
		MaxFileSize:       cfg.MaxFileSize,
		AllowedMIMETypes:  make(map[string]bool, len(cfg.AllowedMIMETypes)),
		AllowedExtensions: make(map[string]bool, len(cfg.AllowedExtensions)),
		MutableStatuses:   make(map[document.Status]bool, len(cfg.MutableStatuses)),
	}
	for _, m := range cfg.AllowedMIMETypes {
		p.AllowedMIMETypes[strings.ToLower(strings.TrimSpace(m))] = true
	}
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		p.AllowedExtensions[ext] = true
	}
	for _, s := range cfg.MutableStatuses {
		st := document.Status(strings.ToLower(strings.TrimSpace(s)))
		if !st.IsValid() {
			return nil, fmt.Errorf("attachment mutable status %q is not a document status", s)
		}
		if st.IsTerminal() {
			return nil, fmt.Errorf("attachment mutable status %q is terminal", s)
		}
		p.MutableStatuses[st] = true
	}
	return p, nil
}

// EnsureMutable returns Forbidden unless actor owns doc and doc is in one
// of the allowed states. Callers must pass a freshly loaded document.
func (p *Policy) EnsureMutable(doc *document.Document, actor identity.Actor) error {
	if !doc.IsOwnedBy(actor.UserID) {
		return shared.NewForbiddenError("only the owner may change attachments of document %s", doc.Number)
	}
	if !p.MutableStatuses[doc.Status] {
		return shared.NewForbiddenError("attachments of document %s are read-only while it is %s", doc.Number, doc.Status)
	}
	return nil
}

// CheckFile returns a human readable reason when the file is not accepted,
// or an empty string
func (p *Policy) CheckFile(filename string, size int64, mimeType string) string {
	if size <= 0 {
		return "file is empty"
	}
	if size > p.MaxFileSize {
		return fmt.Sprintf("file exceeds maximum size of %d bytes", p.MaxFileSize)
	}
	ext := Extension(filename)
	if !p.AllowedExtensions[ext] {
		if ext == "" {
			return "file has no extension"
		}
		return fmt.Sprintf("extension %s is not allowed", ext)
	}
	media := baseMediaType(mimeType)
	if !p.AllowedMIMETypes[media] {
		return fmt.Sprintf("content type %s is not allowed", media)
	}
	return ""
}

func baseMediaType(mimeType string) string {
	media, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return media
}
