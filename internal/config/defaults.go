package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"

	DefaultServerPort = 5000

	DefaultDBPath = "leobot.db"

	DefaultSendTimeout = 30 * time.Second

	DefaultLLMModel          = "gemini-2.0-flash"
	DefaultLLMTemperature    = 0.7
	DefaultLLMMaxRetries     = 2
	DefaultLLMRetryDelaySecs = 5
	DefaultLLMRequestTimeout = 2 * time.Minute

	DefaultRateMinInterval = 2 * time.Second
	DefaultRateHourlyCap   = 30
	DefaultRateUsageCap    = 100

	DefaultMemoryWindow        = 20
	DefaultMemoryMaxMessageLen = 500

	DefaultAuthorConfidenceThreshold = 0.7

	DefaultReindexTimeout = 60 * time.Second
)

// DefaultMessages holds the canned reply texts used when the config file
// does not override them. Wording follows the voice of the bot persona.
var DefaultMessages = MessagesConfig{
	RateWait:          "Calma aí! Espera só um pouquinho antes de mandar outra mensagem 😅",
	RateLimit:         "Opa, você já mandou muitas mensagens hoje! Vamos conversar mais amanhã? 😊",
	UsageCap:          "Você atingiu o limite de mensagens. Entre em contato com o administrador.",
	SecurityInjection: "Mensagem bloqueada por segurança. Evite comandos especiais.",
	SecurityRepeat:    "Mensagem com muito texto repetido. Tente ser mais claro.",
	SecurityChars:     "Mensagem contém caracteres suspeitos.",
	TooLong:           "Opa, sua mensagem tá muito grande! Tenta resumir um pouco? 😅",
	EmptyMessage:      "Não entendi... pode mandar de novo? 🤔",
	GeneralError:      "Opa, tive um probleminha aqui 😅 Pode tentar de novo?",
	ReindexOK:         "✅ Sistema atualizado com sucesso!\n\nOs alunos já podem consultar sua nova mensagem através do Leo.\n\nTudo pronto! 🎉",
	ReindexFail:       "❌ Erro ao atualizar o sistema.\n\nPor favor, contate o administrador do sistema.\n\nErro técnico registrado nos logs.",
}

// setDefaults registers default values for optional configuration parameters.
func setDefaults() {
	viper.SetDefault("log.level", DefaultLogLevel)
	viper.SetDefault("log.json", false)

	viper.SetDefault("server.port", DefaultServerPort)

	viper.SetDefault("database.path", DefaultDBPath)

	// Required keys get an empty default so environment-only values
	// are picked up by Unmarshal; validation rejects them if left
	// unset.
	viper.SetDefault("evolution.api_url", "")
	viper.SetDefault("evolution.api_key", "")
	viper.SetDefault("evolution.instance", "")
	viper.SetDefault("evolution.send_timeout", DefaultSendTimeout)

	viper.SetDefault("llm.api_key", "")

	viper.SetDefault("llm.model", DefaultLLMModel)
	viper.SetDefault("llm.temperature", DefaultLLMTemperature)
	viper.SetDefault("llm.max_retries", DefaultLLMMaxRetries)
	viper.SetDefault("llm.retry_delay_seconds", DefaultLLMRetryDelaySecs)
	viper.SetDefault("llm.request_timeout", DefaultLLMRequestTimeout)

	viper.SetDefault("rate.min_interval", DefaultRateMinInterval)
	viper.SetDefault("rate.hourly_cap", DefaultRateHourlyCap)
	viper.SetDefault("rate.usage_cap", DefaultRateUsageCap)

	viper.SetDefault("memory.window", DefaultMemoryWindow)
	viper.SetDefault("memory.max_message_len", DefaultMemoryMaxMessageLen)

	viper.SetDefault("author.privileged_senders", []string{})
	viper.SetDefault("author.confidence_threshold", DefaultAuthorConfidenceThreshold)

	viper.SetDefault("rag.indexer_url", "")
	viper.SetDefault("rag.reindex_timeout", DefaultReindexTimeout)

	viper.SetDefault("scheduler.tasks", map[string]TaskConfig{
		"rag_reindex":     {Enabled: true, Schedule: "0 0 * * * *"},
		"sql_maintenance": {Enabled: true, Schedule: "0 0 4 * * *"},
	})

	viper.SetDefault("messages.rate_wait", DefaultMessages.RateWait)
	viper.SetDefault("messages.rate_limit", DefaultMessages.RateLimit)
	viper.SetDefault("messages.usage_cap", DefaultMessages.UsageCap)
	viper.SetDefault("messages.security_injection", DefaultMessages.SecurityInjection)
	viper.SetDefault("messages.security_repeat", DefaultMessages.SecurityRepeat)
	viper.SetDefault("messages.security_chars", DefaultMessages.SecurityChars)
	viper.SetDefault("messages.too_long", DefaultMessages.TooLong)
	viper.SetDefault("messages.empty_message", DefaultMessages.EmptyMessage)
	viper.SetDefault("messages.general_error", DefaultMessages.GeneralError)
	viper.SetDefault("messages.reindex_ok", DefaultMessages.ReindexOK)
	viper.SetDefault("messages.reindex_fail", DefaultMessages.ReindexFail)
}
