package integrity

import (
	"errors"

	"media-index/core/indexstore"
	"media-index/core/logger"
	"media-index/core/media"
	"media-index/feature/integrity/checks"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	// Force import for Swagger
	var _ = checks.SchemaReport{}
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/storage", h.HandleStorageCheck)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/index/:org/:repo", h.HandleIndexCheck)
}

// HandleIntegrityCheck triggers all integrity checks.
// @Summary Run All Integrity Checks
// @Description Performs the storage and schema checks, then verifies the index of every site found in storage.
// @Tags integrity
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	ctx := c.Context()
	report := make(map[string]interface{})

	storageReport, err := h.service.CheckStorage(ctx)
	if err != nil {
		report["storage"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["storage"] = storageReport
	}

	if schemaReport, err := h.service.CheckSchema(); errors.Is(err, ErrNoDatabase) {
		report["schema"] = map[string]interface{}{"status": "skipped"}
	} else if err != nil {
		report["schema"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["schema"] = schemaReport
	}

	indexes := make(map[string]interface{})
	if storageReport != nil {
		for _, id := range storageReport.Sites {
			org, repo, ok := media.ParseSiteID(id)
			if !ok {
				continue
			}
			if idxReport, err := h.service.CheckIndex(ctx, org, repo); err != nil {
				indexes[id] = map[string]interface{}{"status": "error", "error": err.Error()}
			} else {
				indexes[id] = idxReport
			}
		}
	}
	report["indexes"] = indexes

	return c.JSON(report)
}

// HandleStorageCheck checks and optionally fixes the index bucket.
// @Summary Check Storage
// @Description Checks that the index bucket exists and lists the sites with a persisted index. Optionally creates the bucket.
// @Tags integrity
// @Accept json
// @Produce json
// @Param fix query boolean false "Create the bucket when missing"
// @Success 200 {object} map[string]interface{} "Storage Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/storage [get]
func (h *Handler) HandleStorageCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	report, err := h.service.CheckStorage(c.Context())
	if err != nil {
		l.Error("Storage check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if !report.Exists {
		l.Warn("Index bucket missing", zap.String("bucket", report.Bucket))

		if fix {
			l.Info("Attempting to create index bucket")
			if err := h.service.FixStorage(c.Context()); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Failed to create bucket",
					"details": err.Error(),
				})
			}
			return c.JSON(fiber.Map{
				"status": "fixed",
				"bucket": report.Bucket,
			})
		}
	}

	return c.JSON(fiber.Map{
		"status": "checked",
		"exists": report.Exists,
		"sites":  report.Sites,
	})
}

// HandleSchemaCheck checks the SQL index schema.
// @Summary Check Index Schema
// @Description Checks that the index tables exist and carry the expected columns.
// @Tags integrity
// @Accept json
// @Produce json
// @Success 200 {object} checks.SchemaReport "Schema Check Report"
// @Failure 404 {object} map[string]string "Database not configured"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/schema [get]
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Starting index schema check")

	report, err := h.service.CheckSchema()
	if errors.Is(err, ErrNoDatabase) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(report)
}

// HandleIndexCheck verifies the persisted index of one site.
// @Summary Check Site Index
// @Description Loads the persisted index of a site and checks its invariants: unique keys, orphan rows, usage table and metadata counters.
// @Tags integrity
// @Accept json
// @Produce json
// @Param org path string true "Organization"
// @Param repo path string true "Repository"
// @Success 200 {object} checks.IndexReport "Index Report"
// @Failure 404 {object} map[string]string "Index not found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/index/{org}/{repo} [get]
func (h *Handler) HandleIndexCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckIndex(c.Context(), c.Params("org"), c.Params("repo"))
	if err != nil {
		if indexstore.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Index check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(report)
}
