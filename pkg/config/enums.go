package config

// LLMProviderType defines supported LLM providers for the generation backend.
type LLMProviderType string

const (
	// LLMProviderTypeBedrock is Amazon Bedrock (Anthropic Claude models).
	LLMProviderTypeBedrock LLMProviderType = "bedrock"
	// LLMProviderTypeOpenAI is OpenAI's API.
	LLMProviderTypeOpenAI LLMProviderType = "openai"
	// LLMProviderTypeAnthropic is Anthropic's direct API.
	LLMProviderTypeAnthropic LLMProviderType = "anthropic"
)

// IsValid checks if the LLM provider type is valid.
func (t LLMProviderType) IsValid() bool {
	switch t {
	case LLMProviderTypeBedrock, LLMProviderTypeOpenAI, LLMProviderTypeAnthropic:
		return true
	default:
		return false
	}
}
