package mediaindex

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	indexer *Indexer
	handler *Handler
}

// NewFeature creates the media index feature around an indexer.
func NewFeature(indexer *Indexer, logger *zap.Logger) *Feature {
	return &Feature{indexer: indexer, handler: NewHandler(indexer, logger)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "mediaindex"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.indexer != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
