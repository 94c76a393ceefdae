package reconcile

import (
	"strings"

	"media-index/core/media"
)

// Config holds the site layout the reconciliation depends on.
type Config struct {
	// MediaFolder is the prefix of library-managed uploads.
	MediaFolder string `mapstructure:"media_folder" default:"/media"`
	// FragmentFolder is the prefix of reusable fragment documents.
	FragmentFolder string `mapstructure:"fragment_folder" default:"/fragments"`
	// ContentURLTemplate builds delivery URLs of linked content.
	// {ref}, {repo}, {org} and {path} are substituted.
	ContentURLTemplate string `mapstructure:"content_url_template" default:"https://{ref}--{repo}--{org}.aem.page{path}"`
}

// Folders returns the folder layout, falling back to defaults.
func (c Config) Folders() media.Folders {
	f := media.DefaultFolders()
	if c.MediaFolder != "" {
		f.Media = c.MediaFolder
	}
	if c.FragmentFolder != "" {
		f.Fragment = c.FragmentFolder
	}
	return f
}

// ContentURL returns the delivery URL of a site path.
func (c Config) ContentURL(site media.Site, path string) string {
	tmpl := c.ContentURLTemplate
	if tmpl == "" {
		tmpl = "https://{ref}--{repo}--{org}.aem.page{path}"
	}
	return strings.NewReplacer(
		"{ref}", site.Ref,
		"{repo}", site.Repo,
		"{org}", site.Org,
		"{path}", path,
	).Replace(tmpl)
}
