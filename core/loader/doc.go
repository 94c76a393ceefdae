// Package loader registers HTTP features and mounts their routes.
//
// A feature is a self-contained module (service, handler, routes) that the
// start command wires with its dependencies and hands to a Manager. The
// Manager mounts every enabled feature in registration order and skips the
// rest, so a feature whose backend is not configured simply stays dark.
//
// # Feature Interface
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// # Manager
//
//   - Register() adds a feature to the registry.
//   - Features() returns the registered features.
//   - LoadAll() loads the enabled ones and wraps the first failure with the feature name.
//
// The 'mediaindex' and 'integrity' features are registered this way.
package loader
