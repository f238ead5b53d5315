package domain

// DefaultQuestions is the static suggestion list used when generation fails.
var DefaultQuestions = []string{
	"What are the main features described in this documentation?",
	"How do I get started?",
	"What is the purpose of this project?",
	"Where can I find the API reference?",
	"Where is the developer guide?",
	"How do I install it?",
	"What are the frequently asked questions?",
}

// Suggestion counts used by the chat surfaces.
const (
	InitialSuggestionCount     = 4
	AfterAnswerSuggestionCount = 3
)

// DefaultTopicKeywords bias corpus sampling toward common documentation topics.
var DefaultTopicKeywords = []string{
	"getting started",
	"installation",
	"configuration",
	"API",
	"guide",
}
