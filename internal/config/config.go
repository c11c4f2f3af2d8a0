package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func Init(root *cobra.Command) {
	viper.AutomaticEnv()
	_ = godotenv.Load(".env")
	bindActionInputs()
	if root != nil {
		// Flags use dashes, keys use underscores.
		root.PersistentFlags().VisitAll(func(f *pflag.Flag) {
			_ = viper.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
	}
	setDefaults()
}

// bindActionInputs lets every action input be read either from its plain
// environment name or from the INPUT_ variable the Actions runner sets.
func bindActionInputs() {
	for _, key := range actionInputs {
		_ = viper.BindEnv(key, strings.ToUpper(key), "INPUT_"+strings.ToUpper(key))
	}
}

func setDefaults() {
	viper.SetDefault(KeyGitHubAPIURL, "")
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyLogFormat, "console")
	viper.SetDefault(KeyLLMProvider, "openai")
	viper.SetDefault(KeyLLMModel, "gpt-4o")
	viper.SetDefault(KeyOllamaURL, "http://localhost:11434")
	viper.SetDefault(KeyLLMCallTimeout, "2m")
	viper.SetDefault(KeyMaxPromptTokens, 6000)
	viper.SetDefault(KeyExclude, "")
	viper.SetDefault(KeySkipGenerated, false)
	viper.SetDefault(KeyAttribution, "bot")
	viper.SetDefault(KeyMCPListenAddr, ":8080")
}

func GitHubToken() string            { return viper.GetString(KeyGitHubToken) }
func AuthorToken() string            { return viper.GetString(KeyAuthorToken) }
func GitHubAPIURL() string           { return viper.GetString(KeyGitHubAPIURL) }
func EventPath() string              { return viper.GetString(KeyEventPath) }
func EventName() string              { return viper.GetString(KeyEventName) }
func LogLevel() string               { return viper.GetString(KeyLogLevel) }
func LogFormat() string              { return viper.GetString(KeyLogFormat) }
func LLMProvider() string            { return viper.GetString(KeyLLMProvider) }
func LLMModel() string               { return viper.GetString(KeyLLMModel) }
func OpenAIKey() string              { return viper.GetString(KeyOpenAIKey) }
func OpenAIBaseURL() string          { return viper.GetString(KeyOpenAIBaseURL) }
func OllamaURL() string              { return viper.GetString(KeyOllamaURL) }
func LLMCallTimeout() string         { return viper.GetString(KeyLLMCallTimeout) }
func MaxPromptTokens() int           { return viper.GetInt(KeyMaxPromptTokens) }
func Exclude() string                { return viper.GetString(KeyExclude) }
func SkipGenerated() bool            { return viper.GetBool(KeySkipGenerated) }
func Attribution() string            { return viper.GetString(KeyAttribution) }
func EvidencePromptVersion() string  { return viper.GetString(KeyEvidencePromptVersion) }
func NarrativePromptVersion() string { return viper.GetString(KeyNarrativePromptVersion) }
func PromptsFile() string            { return viper.GetString(KeyPromptsFile) }
func MCPListenAddr() string          { return viper.GetString(KeyMCPListenAddr) }
