package model

import "time"

// DocumentType enumerates the supported file kinds.
type DocumentType string

const (
	TypePDF        DocumentType = "pdf"
	TypeWord       DocumentType = "word"
	TypeExcel      DocumentType = "excel"
	TypePowerPoint DocumentType = "powerpoint"
	TypeImage      DocumentType = "image"
	TypeText       DocumentType = "text"
	TypeArchive    DocumentType = "archive"
	TypeOther      DocumentType = "other"
)

// Valid reports whether t is one of the supported document types.
func (t DocumentType) Valid() bool {
	switch t {
	case TypePDF, TypeWord, TypeExcel, TypePowerPoint, TypeImage, TypeText, TypeArchive, TypeOther:
		return true
	}
	return false
}

// TypeFromExtension maps a file extension (with or without the leading dot)
// to a DocumentType. Unknown extensions map to TypeOther.
func TypeFromExtension(ext string) DocumentType {
	if len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	switch ext {
	case "pdf":
		return TypePDF
	case "doc", "docx", "odt", "rtf":
		return TypeWord
	case "xls", "xlsx", "ods", "csv":
		return TypeExcel
	case "ppt", "pptx", "odp":
		return TypePowerPoint
	case "png", "jpg", "jpeg", "gif", "webp", "svg":
		return TypeImage
	case "txt", "md":
		return TypeText
	case "zip", "tar", "gz", "rar", "7z":
		return TypeArchive
	default:
		return TypeOther
	}
}

// Permission is the access level carried by a share grant.
type Permission string

const (
	PermissionView  Permission = "view"
	PermissionEdit  Permission = "edit"
	PermissionAdmin Permission = "admin"
)

// Valid reports whether p is a known permission level.
func (p Permission) Valid() bool {
	return p == PermissionView || p == PermissionEdit || p == PermissionAdmin
}

// AtLeast reports whether p grants at least the access level of min.
func (p Permission) AtLeast(min Permission) bool {
	return rank(p) >= rank(min)
}

func rank(p Permission) int {
	switch p {
	case PermissionView:
		return 1
	case PermissionEdit:
		return 2
	case PermissionAdmin:
		return 3
	}
	return 0
}

// ShareGrant gives a single user access to a document.
// Grants are unique per user; re-sharing updates the permission in place.
type ShareGrant struct {
	UserID     string     `json:"user_id"`
	Permission Permission `json:"permission"`
}

// Document is the canonical record held by the primary store.
// The search index only ever holds a derived projection of it (see
// the search package); this struct is the single source of truth.
type Document struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Type       DocumentType `json:"type"`
	Size       int64        `json:"size"`
	Path       string       `json:"path"`
	OwnerID    string       `json:"owner_id"`
	CategoryID *string      `json:"category_id,omitempty"`
	SharedWith []ShareGrant `json:"shared_with"`
	Tags       []string     `json:"tags"`
	IsFavorite bool         `json:"is_favorite"`

	// Trash lifecycle: DeletedAt is non-nil iff IsDeleted is true.
	// A record absent from the primary store entirely is purged.
	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// Active reports whether the document is in the active lifecycle state,
// i.e. present and not trashed. Only active documents belong in the
// search index.
func (d *Document) Active() bool {
	return !d.IsDeleted
}

// GrantFor returns the share grant held by userID, if any.
func (d *Document) GrantFor(userID string) (ShareGrant, bool) {
	for _, g := range d.SharedWith {
		if g.UserID == userID {
			return g, true
		}
	}
	return ShareGrant{}, false
}
