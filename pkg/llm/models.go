package llm

// ModelList is the response of GET /models on the upstream server,
// used once at startup to auto-detect the served model.
type ModelList struct {
	Data []Model `json:"data"`
}

// Model is a single entry in the upstream model list.
type Model struct {
	ID string `json:"id"`
}
