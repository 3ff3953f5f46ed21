package constants

// Upstream API routes recognized by the web console, one constant per route.
const (
	PathV1ChatCompletions     = "/v1/chat/completions"
	PathV1Responses           = "/v1/responses"
	PathV1Messages            = "/v1/messages"
	PathV1BetaModels          = "/v1beta/models"
	PathV1Embeddings          = "/v1/embeddings"
	PathV1Rerank              = "/v1/rerank"
	PathV1ImagesGenerations   = "/v1/images/generations"
	PathV1ImagesEdits         = "/v1/images/edits"
	PathV1ImagesVariations    = "/v1/images/variations"
	PathV1AudioSpeech         = "/v1/audio/speech"
	PathV1AudioTranscriptions = "/v1/audio/transcriptions"
	PathV1AudioTranslations   = "/v1/audio/translations"
)

// apiEndpoints keeps display order. It is an array so that the only way
// out is a copy.
var apiEndpoints = [...]string{
	PathV1ChatCompletions,
	PathV1Responses,
	PathV1Messages,
	PathV1BetaModels,
	PathV1Embeddings,
	PathV1Rerank,
	PathV1ImagesGenerations,
	PathV1ImagesEdits,
	PathV1ImagesVariations,
	PathV1AudioSpeech,
	PathV1AudioTranscriptions,
	PathV1AudioTranslations,
}

// apiEndpointMap is a map for O(1) lookup of API endpoints.
var apiEndpointMap = func() map[string]bool {
	m := make(map[string]bool, len(apiEndpoints))
	for _, p := range apiEndpoints {
		m[p] = true
	}
	return m
}()

// APIEndpoints returns the recognized upstream API routes in display order.
// Each call returns a new slice; modifying it does not affect later calls.
func APIEndpoints() []string {
	out := make([]string, len(apiEndpoints))
	copy(out, apiEndpoints[:])
	return out
}

// IsAPIEndpoint reports whether path is one of the recognized API routes.
func IsAPIEndpoint(path string) bool {
	return apiEndpointMap[path]
}
