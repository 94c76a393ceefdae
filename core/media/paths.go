package media

import (
	"net/url"
	"path"
	"strings"
)

// Folders names the site folders that hold non-page content.
type Folders struct {
	// Media is the prefix of library-managed uploads (e.g. "/media").
	// Both "/media/..." and "/media_..." are treated as media paths.
	Media string
	// Fragment is the prefix of reusable fragment documents (e.g. "/fragments").
	Fragment string
}

// DefaultFolders returns the folder layout used by content sites by default.
func DefaultFolders() Folders {
	return Folders{Media: "/media", Fragment: "/fragments"}
}

// IsPage reports whether an audit path denotes a page: a markdown document, or
// an extension-less path outside the media and fragment folders.
func (f Folders) IsPage(p string) bool {
	p = stripQuery(p)
	if strings.HasSuffix(strings.ToLower(p), ".md") {
		return true
	}
	if Extension(p) != "" {
		return false
	}
	return !f.IsMedia(p) && !f.IsFragment(p)
}

// IsMedia reports whether p lives in the media folder.
func (f Folders) IsMedia(p string) bool {
	return underFolder(ensureSlash(stripQuery(p)), f.Media, true)
}

// IsFragment reports whether p lives in the fragment folder.
func (f Folders) IsFragment(p string) bool {
	return underFolder(ensureSlash(stripQuery(p)), f.Fragment, false)
}

func underFolder(p, folder string, allowUnderscore bool) bool {
	if folder == "" {
		return false
	}
	folder = strings.TrimSuffix(ensureSlash(folder), "/")
	if strings.HasPrefix(p, folder+"/") {
		return true
	}
	return allowUnderscore && strings.HasPrefix(p, folder+"_")
}

// NormalizePath turns a page reference into its canonical spelling: leading
// slash, no query or fragment, no ".md" suffix, and "/index" collapsed to "/".
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if strings.Contains(p, "://") {
		p = PathnameFromURL(p)
	}
	p = ensureSlash(stripQuery(p))
	if strings.HasSuffix(strings.ToLower(p), ".md") {
		p = p[:len(p)-3]
	}
	if p == "/index" {
		return "/"
	}
	if strings.HasSuffix(p, "/index") {
		p = strings.TrimSuffix(p, "index")
	}
	return p
}

// Extension returns the lower-case extension of the last path segment,
// including the dot, or "" if there is none.
func Extension(p string) string {
	p = stripQuery(p)
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return strings.ToLower(path.Ext(base))
}

// PathnameFromURL returns the path component of a URL. Inputs that do not
// parse are returned without their query string.
func PathnameFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return stripQuery(raw)
	}
	return u.Path
}

// NameFromURL returns the last path segment of a delivery URL.
func NameFromURL(raw string) string {
	p := PathnameFromURL(raw)
	p = strings.TrimSuffix(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if decoded, err := url.PathUnescape(p); err == nil {
		return decoded
	}
	return p
}

// TypeFromContentType maps a MIME type to an asset type.
func TypeFromContentType(ct string) Type {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	switch {
	case ct == "":
		return TypeUnknown
	case strings.HasPrefix(ct, "image/"):
		return TypeImage
	case strings.HasPrefix(ct, "video/"):
		return TypeVideo
	case ct == "application/pdf", strings.HasPrefix(ct, "application/vnd."), ct == "application/msword":
		return TypeDocument
	case ct == "text/html", ct == "text/markdown":
		return TypeFragment
	}
	return TypeUnknown
}

var extensionTypes = map[string]Type{
	".png":  TypeImage,
	".jpg":  TypeImage,
	".jpeg": TypeImage,
	".gif":  TypeImage,
	".webp": TypeImage,
	".avif": TypeImage,
	".svg":  TypeImage,
	".ico":  TypeImage,
	".bmp":  TypeImage,
	".tif":  TypeImage,
	".tiff": TypeImage,
	".mp4":  TypeVideo,
	".webm": TypeVideo,
	".mov":  TypeVideo,
	".m4v":  TypeVideo,
	".ogv":  TypeVideo,
	".pdf":  TypeDocument,
	".doc":  TypeDocument,
	".docx": TypeDocument,
	".xls":  TypeDocument,
	".xlsx": TypeDocument,
	".ppt":  TypeDocument,
	".pptx": TypeDocument,
}

// TypeFromPath guesses the asset type from a path or URL extension.
func TypeFromPath(p string) Type {
	if t, ok := extensionTypes[Extension(p)]; ok {
		return t
	}
	return TypeUnknown
}

func stripQuery(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}

func ensureSlash(p string) string {
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}
