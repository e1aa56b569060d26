package llm

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FinishReasonStop is reported when the model ended its answer on its own.
const FinishReasonStop = "stop"

// ChatParams holds parameters for chat completion requests.
type ChatParams struct {
	// Model specifies the model to use. If empty, the client's default model is used.
	Model string

	// MaxTokens specifies the maximum number of tokens to generate.
	// If 0, the client's default is used.
	MaxTokens int

	// Temperature controls the randomness of the output.
	// If 0, the client's default is used.
	Temperature float32
}

// Completion is the generated answer plus how generation ended.
type Completion struct {
	Text             string
	FinishReason     string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Completed reports whether the model finished naturally rather than being cut off.
func (c Completion) Completed() bool {
	return c.FinishReason == FinishReasonStop
}
