// Package utils provides common utility functions for the media-index application.
// It includes helper functions for loose type conversion of values decoded from
// remote JSON, where the same field has been seen as a number and as a string.
package utils
