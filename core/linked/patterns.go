package linked

import (
	"regexp"
	"strings"

	"media-index/core/media"
)

// HostPattern classifies external URLs by host when the path carries no
// recognisable media extension.
type HostPattern struct {
	// Name identifies the hosting service in logs.
	Name string
	// Host matches the lower-case URL host.
	Host *regexp.Regexp
	// Type is the asset type of matching URLs.
	Type media.Type
	// SubType optionally refines Type from the URL path; "" keeps Type.
	SubType func(path string) media.Type
}

// HostPatterns is the table of known media hosting services.
var HostPatterns = []HostPattern{
	{Name: "youtube", Host: regexp.MustCompile(`(^|\.)youtube(-nocookie)?\.com$|^youtu\.be$`), Type: media.TypeVideo},
	{Name: "vimeo", Host: regexp.MustCompile(`(^|\.)vimeo\.com$`), Type: media.TypeVideo},
	{Name: "wistia", Host: regexp.MustCompile(`(^|\.)wistia\.(com|net)$`), Type: media.TypeVideo},
	{Name: "brightcove", Host: regexp.MustCompile(`(^|\.)brightcove\.(com|net)$`), Type: media.TypeVideo},
	{Name: "scene7", Host: regexp.MustCompile(`(^|\.)scene7\.com$`), Type: media.TypeImage, SubType: scene7SubType},
	{Name: "cloudinary", Host: regexp.MustCompile(`^res\.cloudinary\.com$`), Type: media.TypeImage, SubType: cloudinarySubType},
	{Name: "aem-assets", Host: regexp.MustCompile(`^delivery-p\d+-e\d+\.adobeaemcloud\.com$`), Type: media.TypeImage, SubType: assetsSubType},
	{Name: "unsplash", Host: regexp.MustCompile(`^(images|plus)\.unsplash\.com$`), Type: media.TypeImage},
	{Name: "imgur", Host: regexp.MustCompile(`^i\.imgur\.com$`), Type: media.TypeImage},
}

// scene7 serves images under /is/image/ and video or documents under /is/content/.
func scene7SubType(path string) media.Type {
	if strings.Contains(path, "/is/content/") {
		return media.TypeVideo
	}
	return ""
}

// cloudinary paths look like /{cloud}/{image|video|raw}/upload/...
func cloudinarySubType(path string) media.Type {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	switch parts[1] {
	case "video":
		return media.TypeVideo
	case "raw":
		return media.TypeDocument
	}
	return ""
}

// assets delivery paths end in /play for video renditions.
func assetsSubType(path string) media.Type {
	if strings.HasSuffix(strings.TrimSuffix(path, "/"), "/play") {
		return media.TypeVideo
	}
	return ""
}

// classifyExternal reports the media type of an off-site URL, or false when
// the URL is not media.
func classifyExternal(host, path string) (media.Type, bool) {
	switch t := media.TypeFromPath(path); t {
	case media.TypeImage, media.TypeVideo, media.TypeDocument:
		return t, true
	}

	host = strings.ToLower(host)
	for _, p := range HostPatterns {
		if !p.Host.MatchString(host) {
			continue
		}
		if p.SubType != nil {
			if sub := p.SubType(path); sub != "" {
				return sub, true
			}
		}
		return p.Type, true
	}
	return "", false
}
