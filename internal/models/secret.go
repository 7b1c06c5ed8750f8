package models

// Secret key names published to the UI. Every key here always appears in the
// secret state map, set or not, so forms can render uniformly.
const (
	SecretHorde           = "api_key_horde"
	SecretMancer          = "api_key_mancer"
	SecretVllm            = "api_key_vllm"
	SecretAphrodite       = "api_key_aphrodite"
	SecretTabby           = "api_key_tabby"
	SecretOpenAI          = "api_key_openai"
	SecretNovel           = "api_key_novel"
	SecretClaude          = "api_key_claude"
	SecretOpenRouter      = "api_key_openrouter"
	SecretScale           = "api_key_scale"
	SecretAI21            = "api_key_ai21"
	SecretScaleCookie     = "scale_cookie"
	SecretMakerSuite      = "api_key_makersuite"
	SecretSerpAPI         = "api_key_serpapi"
	SecretMistralAI       = "api_key_mistralai"
	SecretTogetherAI      = "api_key_togetherai"
	SecretInfermaticAI    = "api_key_infermaticai"
	SecretDreamGen        = "api_key_dreamgen"
	SecretCustom          = "api_key_custom"
	SecretOoba            = "api_key_ooba"
	SecretNomicAI         = "api_key_nomicai"
	SecretKoboldCpp       = "api_key_koboldcpp"
	SecretLlamaCpp        = "api_key_llamacpp"
	SecretCohere          = "api_key_cohere"
	SecretPerplexity      = "api_key_perplexity"
	SecretGroq            = "api_key_groq"
	SecretAzureTTS        = "api_key_azure_tts"
	SecretFeatherless     = "api_key_featherless"
	SecretZeroOneAI       = "api_key_01ai"
	SecretHuggingFace     = "api_key_huggingface"
	SecretStability       = "api_key_stability"
	SecretCustomOpenAITTS = "api_key_custom_openai_tts"
	SecretNanoGPT         = "api_key_nanogpt"
	SecretTavily          = "api_key_tavily"
	SecretBFL             = "api_key_bfl"
	SecretGeneric         = "api_key_generic"
	SecretDeepSeek        = "api_key_deepseek"
	SecretMoonshot        = "api_key_moonshot"
	SecretSiliconFlow     = "api_key_siliconflow"
	SecretZai             = "api_key_zai"
	SecretSerper          = "api_key_serper"
	SecretFalAI           = "api_key_falai"
	SecretXAI             = "api_key_xai"
	SecretCSRF            = "csrf_secret"
)

// KnownSecretKeys is the published key list backing the secret state report.
var KnownSecretKeys = []string{
	SecretHorde, SecretMancer, SecretVllm, SecretAphrodite, SecretTabby,
	SecretOpenAI, SecretNovel, SecretClaude, SecretOpenRouter, SecretScale,
	SecretAI21, SecretScaleCookie, SecretMakerSuite, SecretSerpAPI,
	SecretMistralAI, SecretTogetherAI, SecretInfermaticAI, SecretDreamGen,
	SecretCustom, SecretOoba, SecretNomicAI, SecretKoboldCpp, SecretLlamaCpp,
	SecretCohere, SecretPerplexity, SecretGroq, SecretAzureTTS,
	SecretFeatherless, SecretZeroOneAI, SecretHuggingFace, SecretStability,
	SecretCustomOpenAITTS, SecretNanoGPT, SecretTavily, SecretBFL,
	SecretGeneric, SecretDeepSeek, SecretMoonshot, SecretSiliconFlow,
	SecretZai, SecretSerper, SecretFalAI, SecretXAI, SecretCSRF,
}

// ExportableSecretKeys may be returned to the UI even when keys exposure is
// disabled; they are service URLs rather than credentials.
var ExportableSecretKeys = []string{
	"libre_url",
	"lingva_url",
	"oneringtranslator_url",
	"deeplx_url",
}

// IsExportableSecret reports whether key is on the exportable allow-list.
func IsExportableSecret(key string) bool {
	for _, k := range ExportableSecretKeys {
		if k == key {
			return true
		}
	}
	return false
}
