package config

const (
	KeyGitHubToken            = "github_token"
	KeyAuthorToken            = "author_token"
	KeyGitHubAPIURL           = "github_api_url"
	KeyEventPath              = "github_event_path"
	KeyEventName              = "github_event_name"
	KeyLogLevel               = "log_level"
	KeyLogFormat              = "log_format"
	KeyLLMProvider            = "llm_provider"
	KeyLLMModel               = "llm_model"
	KeyOpenAIKey              = "openai_api_key"
	KeyOpenAIBaseURL          = "openai_base_url"
	KeyOllamaURL              = "ollama_url"
	KeyLLMCallTimeout         = "llm_call_timeout"
	KeyMaxPromptTokens        = "max_prompt_tokens"
	KeyExclude                = "exclude"
	KeySkipGenerated          = "skip_generated"
	KeyAttribution            = "owner"
	KeyEvidencePromptVersion  = "evidence_prompt_version"
	KeyNarrativePromptVersion = "narrative_prompt_version"
	KeyPromptsFile            = "prompts_file"
	KeyMCPListenAddr          = "mcp_listen_addr"
)

// actionInputs are the keys a GitHub Action workflow may set through `with:`.
// The runner exposes them as INPUT_<NAME> environment variables.
var actionInputs = []string{
	KeyGitHubToken,
	KeyAuthorToken,
	KeyLLMProvider,
	KeyLLMModel,
	KeyOpenAIKey,
	KeyExclude,
	KeySkipGenerated,
	KeyAttribution,
	KeyEvidencePromptVersion,
	KeyNarrativePromptVersion,
}
