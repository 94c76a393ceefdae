package mediaindex

import (
	"errors"

	"media-index/core/indexstore"
	"media-index/core/lock"
	"media-index/core/logger"
	"media-index/core/media"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// BuildResponse is the body returned by a build request.
type BuildResponse struct {
	Site         media.Site    `json:"site"`
	Mode         string        `json:"mode"`
	Reason       string        `json:"reason,omitempty"`
	HasChanges   bool          `json:"hasChanges"`
	DurationMs   int64         `json:"durationMs"`
	EntriesCount int           `json:"entriesCount"`
	Entries      []media.Entry `json:"entries"`
}

// MediaResponse is a filtered page of the media table.
type MediaResponse struct {
	Total int           `json:"total"`
	Data  []media.Entry `json:"data"`
}

// UsageResponse lists the hashes a page uses.
type UsageResponse struct {
	Page   string   `json:"page"`
	Hashes []string `json:"hashes"`
}

// Handler handles HTTP requests for the media index.
type Handler struct {
	indexer *Indexer
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(indexer *Indexer, logger *zap.Logger) *Handler {
	return &Handler{indexer: indexer, logger: logger}
}

// RegisterRoutes registers the index routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/index/:org/:repo")
	group.Post("/build", h.HandleBuild)
	group.Get("/media", h.HandleMedia)
	group.Get("/usage", h.HandleUsage)
	group.Get("/where", h.HandleWhere)
	group.Get("/status", h.HandleStatus)
}

func siteOf(c *fiber.Ctx) media.Site {
	return media.NewSite(c.Params("org"), c.Params("repo"), c.Query("ref"))
}

// HandleBuild runs a build and returns the resulting table.
// @Summary Build Index
// @Description Build the media index of a site. mode=auto picks incremental when the stored watermark allows it.
// @Tags index
// @Produce json
// @Param org path string true "Organization"
// @Param repo path string true "Repository"
// @Param ref query string false "Branch" default(main)
// @Param mode query string false "auto, full or incremental" default(auto)
// @Param user query string false "Recorded as lastRefreshBy"
// @Success 200 {object} BuildResponse "Build result"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 409 {object} map[string]string "Build already in progress"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /index/{org}/{repo}/build [post]
func (h *Handler) HandleBuild(c *fiber.Ctx) error {
	site := siteOf(c)
	l := logger.WithRayID(h.logger, c).With(zap.String("site", site.ID))

	opts := BuildOptions{RefreshedBy: c.Query("user", "api")}
	switch c.Query("mode", "auto") {
	case "auto":
	case "full":
		opts.ForceFull = true
	case "incremental":
		opts.RequireIncremental = true
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mode must be auto, full or incremental"})
	}

	res, err := h.indexer.BuildIndex(c.Context(), "", site.Org, site.Repo, site.Ref, nil, nil, opts)
	if err != nil {
		switch {
		case errors.Is(err, lock.ErrInProgress):
			l.Info("Build rejected", zap.Error(err))
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case IsConfigurationError(err):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Index build failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(BuildResponse{
		Site:         res.Site,
		Mode:         string(res.Mode),
		Reason:       res.Reason,
		HasChanges:   res.HasChanges,
		DurationMs:   res.Duration.Milliseconds(),
		EntriesCount: len(res.Entries),
		Entries:      res.Entries,
	})
}

// HandleMedia returns rows of the media table.
// @Summary List Media
// @Description Filter the media table of a site.
// @Tags index
// @Produce json
// @Param org path string true "Organization"
// @Param repo path string true "Repository"
// @Param hash query string false "Media hash"
// @Param doc query string false "Page path"
// @Param status query string false "referenced or unused"
// @Param type query string false "image, video, document, fragment, link"
// @Param orphans query bool false "Only rows without a page"
// @Success 200 {object} MediaResponse "Rows"
// @Failure 404 {object} map[string]string "Index not found"
// @Router /index/{org}/{repo}/media [get]
func (h *Handler) HandleMedia(c *fiber.Ctx) error {
	status, err := ParseStatus(c.Query("status"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	filter := MediaFilter{
		Hash:    c.Query("hash"),
		Doc:     c.Query("doc"),
		Status:  status,
		Type:    media.Type(c.Query("type")),
		Orphans: c.QueryBool("orphans"),
	}

	rows, err := h.indexer.Media(c.Context(), siteOf(c), filter)
	if err != nil {
		return h.readError(c, err)
	}
	return c.JSON(MediaResponse{Total: len(rows), Data: rows})
}

// HandleUsage returns the hashes a page uses.
// @Summary Page Usage
// @Description List the media hashes a page references.
// @Tags index
// @Produce json
// @Param org path string true "Organization"
// @Param repo path string true "Repository"
// @Param page query string true "Page path"
// @Success 200 {object} UsageResponse "Usage"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Index not found"
// @Router /index/{org}/{repo}/usage [get]
func (h *Handler) HandleUsage(c *fiber.Ctx) error {
	page := c.Query("page")
	if page == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "page is required"})
	}

	hashes, err := h.indexer.Usage(c.Context(), siteOf(c), page)
	if err != nil {
		return h.readError(c, err)
	}
	if hashes == nil {
		hashes = []string{}
	}
	return c.JSON(UsageResponse{Page: media.NormalizePath(page), Hashes: hashes})
}

// HandleWhere reports the pages using a hash.
// @Summary Where Used
// @Description Report whether a media hash is used and on which pages.
// @Tags index
// @Produce json
// @Param org path string true "Organization"
// @Param repo path string true "Repository"
// @Param hash query string true "Media hash"
// @Success 200 {object} Where "Usage of the hash"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Index not found"
// @Router /index/{org}/{repo}/where [get]
func (h *Handler) HandleWhere(c *fiber.Ctx) error {
	hash := c.Query("hash")
	if hash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "hash is required"})
	}

	w, err := h.indexer.WhereUsed(c.Context(), siteOf(c), hash)
	if err != nil {
		return h.readError(c, err)
	}
	return c.JSON(w)
}

// HandleStatus returns the metadata and lock state of a site.
// @Summary Index Status
// @Description Metadata, lock and next build mode of a site.
// @Tags index
// @Produce json
// @Param org path string true "Organization"
// @Param repo path string true "Repository"
// @Success 200 {object} Status "Status"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /index/{org}/{repo}/status [get]
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	st, err := h.indexer.Status(c.Context(), siteOf(c))
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Failed to read index status", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(st)
}

func (h *Handler) readError(c *fiber.Ctx, err error) error {
	if indexstore.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "index not found, run a build first"})
	}
	logger.WithRayID(h.logger, c).Error("Failed to read index", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
