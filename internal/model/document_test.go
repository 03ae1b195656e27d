package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want DocumentType
	}{
		{".pdf", TypePDF},
		{"pdf", TypePDF},
		{".docx", TypeWord},
		{".csv", TypeExcel},
		{".pptx", TypePowerPoint},
		{".webp", TypeImage},
		{".md", TypeText},
		{".tar", TypeArchive},
		{".exe", TypeOther},
		{"", TypeOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TypeFromExtension(tt.ext), "ext %q", tt.ext)
	}
}

func TestPermissionAtLeast(t *testing.T) {
	assert.True(t, PermissionAdmin.AtLeast(PermissionEdit))
	assert.True(t, PermissionEdit.AtLeast(PermissionEdit))
	assert.False(t, PermissionView.AtLeast(PermissionEdit))
	assert.False(t, Permission("bogus").AtLeast(PermissionView))
}

func TestGrantFor(t *testing.T) {
	doc := Document{SharedWith: []ShareGrant{
		{UserID: "u2", Permission: PermissionView},
		{UserID: "u3", Permission: PermissionAdmin},
	}}

	g, ok := doc.GrantFor("u3")
	assert.True(t, ok)
	assert.Equal(t, PermissionAdmin, g.Permission)

	_, ok = doc.GrantFor("u9")
	assert.False(t, ok)
}
