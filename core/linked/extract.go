package linked

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"media-index/core/media"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"
)

// IconFolder is where ":name:" placeholders resolve to.
const IconFolder = "/icons"

var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify))

var iconPattern = regexp.MustCompile(`:([a-zA-Z][a-zA-Z0-9_-]*):`)

// reservedTokens look like icon placeholders but are not icons.
var reservedTokens = map[string]struct{}{
	"http":       {},
	"https":      {},
	"mailto":     {},
	"tel":        {},
	"ftp":        {},
	"data":       {},
	"blob":       {},
	"javascript": {},
	"urn":        {},
	"aem":        {},
	"nbsp":       {},
	"todo":       {},
}

var siteHostSuffixes = []string{".hlx.page", ".hlx.live", ".aem.page", ".aem.live"}

// Refs holds the linked content found in one page source, deduplicated in
// order of first appearance.
type Refs struct {
	PDFs      []string
	SVGs      []string
	Fragments []string
	External  []ExternalLink
}

// ExternalLink is an off-site media URL.
type ExternalLink struct {
	URL  string
	Type media.Type
}

type refCollector struct {
	site    media.Site
	page    string
	folders media.Folders
	refs    Refs
	seen    map[string]struct{}
}

// Extract parses a page's markdown source and returns its linked content.
// page is the normalized path of the page and anchors relative links.
func Extract(source string, site media.Site, page string, folders media.Folders) Refs {
	c := &refCollector{site: site, page: page, folders: folders, seen: make(map[string]struct{})}
	src := []byte(source)

	doc := markdown.Parser().Parse(gmtext.NewReader(src))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			c.addTarget(string(node.Destination))
		case *ast.Image:
			c.addTarget(string(node.Destination))
		case *ast.AutoLink:
			if node.AutoLinkType == ast.AutoLinkURL {
				c.addTarget(string(node.URL(src)))
			}
		}
		return ast.WalkContinue, nil
	})

	for _, m := range iconPattern.FindAllStringSubmatch(source, -1) {
		name := strings.ToLower(m[1])
		if _, reserved := reservedTokens[name]; reserved {
			continue
		}
		c.add("svg:", &c.refs.SVGs, IconFolder+"/"+name+".svg")
	}

	return c.refs
}

func (c *refCollector) add(kind string, list *[]string, id string) {
	if _, ok := c.seen[kind+id]; ok {
		return
	}
	c.seen[kind+id] = struct{}{}
	*list = append(*list, id)
}

func (c *refCollector) addTarget(dest string) {
	dest = strings.TrimSpace(dest)
	if dest == "" || strings.HasPrefix(dest, "#") {
		return
	}
	u, err := url.Parse(dest)
	if err != nil {
		return
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return
	}

	if u.Host != "" && !isSiteHost(u.Hostname(), c.site) {
		c.addExternal(u)
		return
	}

	p := u.Path
	if p == "" {
		return
	}
	if strings.HasPrefix(p, "/") {
		p = path.Clean(p)
	} else {
		p = path.Join(path.Dir(c.page), p)
	}

	switch {
	case c.folders.IsFragment(p):
		c.add("fragment:", &c.refs.Fragments, media.NormalizePath(p))
	case media.Extension(p) == ".pdf":
		c.add("pdf:", &c.refs.PDFs, p)
	case media.Extension(p) == ".svg":
		c.add("svg:", &c.refs.SVGs, p)
	}
}

func (c *refCollector) addExternal(u *url.URL) {
	t, ok := classifyExternal(u.Hostname(), u.Path)
	if !ok {
		return
	}
	u.Fragment = ""
	id := u.String()
	if _, dup := c.seen["external:"+id]; dup {
		return
	}
	c.seen["external:"+id] = struct{}{}
	c.refs.External = append(c.refs.External, ExternalLink{URL: id, Type: t})
}

// isSiteHost reports whether host serves the site itself
// ({ref}--{repo}--{org}.aem.page and its variants).
func isSiteHost(host string, site media.Site) bool {
	host = strings.ToLower(host)
	if host == "localhost" {
		return true
	}
	suffix := strings.ToLower("--" + site.Repo + "--" + site.Org)
	for _, tld := range siteHostSuffixes {
		if strings.HasSuffix(host, suffix+tld) {
			return true
		}
	}
	return false
}
