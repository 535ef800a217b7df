// Package constants holds identifiers shared across layers.
package constants

// Runtime environments
const (
	EnvLocal   = "local"
	EnvDevelop = "develop"
	EnvProd    = "prod"
)

// Pub/Sub providers
const (
	PubSubProviderLocal  = "local"
	PubSubProviderGoogle = "google"
)

// Document types sent to the upload API, keyed by side
const (
	DocumentTypeIDFront = "CI_ANVERSO"
	DocumentTypeIDBack  = "CI_REVERSO"
)
