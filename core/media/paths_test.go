package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/a", "/a"},
		{"a/b", "/a/b"},
		{"/a/b.md", "/a/b"},
		{"/index.md", "/"},
		{"/index", "/"},
		{"/docs/index.md", "/docs/"},
		{"/a?x=1#top", "/a"},
		{"https://main--site--org.aem.page/news/item", "/news/item"},
		{"  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.in))
		})
	}
}

func TestFolders_IsPage(t *testing.T) {
	f := DefaultFolders()

	assert.True(t, f.IsPage("/a"))
	assert.True(t, f.IsPage("/blog/post.md"))
	assert.True(t, f.IsPage("/fragments/header.md"))
	assert.False(t, f.IsPage("/fragments/header"))
	assert.False(t, f.IsPage("/media_1234.png"))
	assert.False(t, f.IsPage("/media/folder/item"))
	assert.False(t, f.IsPage("/docs/spec.pdf"))
	assert.False(t, f.IsPage("/icons/logo.svg"))
}

func TestFolders_IsFragment(t *testing.T) {
	f := DefaultFolders()

	assert.True(t, f.IsFragment("/fragments/footer"))
	assert.True(t, f.IsFragment("fragments/footer"))
	assert.False(t, f.IsFragment("/fragments_old/footer"))
	assert.False(t, f.IsFragment("/a/fragments/footer"))
}

func TestNameFromURL(t *testing.T) {
	assert.Equal(t, "img.png", NameFromURL("https://x/a/img.png?width=200"))
	assert.Equal(t, "my file.pdf", NameFromURL("/docs/my%20file.pdf"))
	assert.Equal(t, "folder", NameFromURL("https://x/folder/"))
}

func TestTypeFromContentType(t *testing.T) {
	assert.Equal(t, TypeImage, TypeFromContentType("image/png"))
	assert.Equal(t, TypeVideo, TypeFromContentType("video/mp4; codecs=avc1"))
	assert.Equal(t, TypeDocument, TypeFromContentType("application/pdf"))
	assert.Equal(t, TypeUnknown, TypeFromContentType(""))
	assert.Equal(t, TypeUnknown, TypeFromContentType("application/octet-stream"))
}

func TestTypeFromPath(t *testing.T) {
	assert.Equal(t, TypeImage, TypeFromPath("/media_1.JPG"))
	assert.Equal(t, TypeVideo, TypeFromPath("https://cdn/x.webm?x=1"))
	assert.Equal(t, TypeDocument, TypeFromPath("/a.pdf"))
	assert.Equal(t, TypeUnknown, TypeFromPath("/a"))
}
