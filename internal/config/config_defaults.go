package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// API client
	v.SetDefault("api.baseURL", "http://localhost:5002")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.authToken", "")
	v.SetDefault("api.userAgent", "talentloop")
	v.SetDefault("api.retry.maxRetries", 2)
	v.SetDefault("api.retry.baseDelay", 500*time.Millisecond)
	v.SetDefault("api.retry.maxDelay", 5*time.Second)
	v.SetDefault("api.circuitBreaker.enabled", true)
	v.SetDefault("api.circuitBreaker.maxRequests", 3)
	v.SetDefault("api.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("api.circuitBreaker.timeout", 30*time.Second)
	v.SetDefault("api.circuitBreaker.minRequests", 5)
	v.SetDefault("api.circuitBreaker.failureThreshold", 0.6)
	v.SetDefault("api.rateLimit.enabled", true)
	v.SetDefault("api.rateLimit.requestsPerSecond", 5.0)
	v.SetDefault("api.rateLimit.burst", 10)

	// Interview session
	v.SetDefault("interview.duration", 5*time.Minute)
	v.SetDefault("interview.finalQuestionThreshold", 15*time.Second)
	v.SetDefault("interview.warningThreshold", 20*time.Second)
	v.SetDefault("interview.restartDelay", time.Second)
	v.SetDefault("interview.muteWarningDuration", 3*time.Second)
	v.SetDefault("interview.speakFallbackDelay", time.Second)
	v.SetDefault("interview.muteReminderInterval", time.Duration(0))
	v.SetDefault("interview.language", "en-US")
	v.SetDefault("interview.permissionPolicy", "continue")
	v.SetDefault("interview.enableVideo", true)

	// Speech
	v.SetDefault("speech.recognizer", "console")
	v.SetDefault("speech.synthesizer", "console")
	v.SetDefault("speech.voicePreferences", []string{"Google", "Natural", "Microsoft"})
	v.SetDefault("speech.rate", 1.0)
	v.SetDefault("speech.pitch", 1.0)
	v.SetDefault("speech.volume", 1.0)
	v.SetDefault("speech.wordsPerMinute", 170)
	v.SetDefault("speech.sampleRateHz", 16000)
	v.SetDefault("speech.audioFile", "")

	// Handoff store
	v.SetDefault("handoff.backend", "file")
	v.SetDefault("handoff.filePath", defaultHandoffPath())
	v.SetDefault("handoff.keyPrefix", "talentloop:")
	v.SetDefault("handoff.ttl", 24*time.Hour)
	v.SetDefault("handoff.redis.addr", "localhost:6379")
	v.SetDefault("handoff.redis.password", "")
	v.SetDefault("handoff.redis.db", 0)

	// System check
	v.SetDefault("systemCheck.probeURL", "")
	v.SetDefault("systemCheck.samples", 3)
	v.SetDefault("systemCheck.minMicLevel", 5.0)
	v.SetDefault("systemCheck.micSamples", 10)
	v.SetDefault("systemCheck.timeout", 5*time.Second)

	// Rehearsal server
	v.SetDefault("rehearsal.host", "localhost")
	v.SetDefault("rehearsal.port", "5002")
	v.SetDefault("rehearsal.readTimeout", 30*time.Second)
	v.SetDefault("rehearsal.writeTimeout", 90*time.Second)
	v.SetDefault("rehearsal.idleTimeout", 120*time.Second)
	v.SetDefault("rehearsal.maxRequestSize", 1<<20)
	v.SetDefault("rehearsal.allowedOrigins", []string{"*"})
	v.SetDefault("rehearsal.maxQuestions", 5)
	v.SetDefault("rehearsal.rateLimit.enabled", true)
	v.SetDefault("rehearsal.rateLimit.requestsPerMin", 60)
	v.SetDefault("rehearsal.rateLimit.burstCapacity", 10)
	v.SetDefault("rehearsal.ai.provider", "scripted")
	v.SetDefault("rehearsal.ai.model", "gemini-2.0-flash")
	v.SetDefault("rehearsal.ai.timeout", 60*time.Second)
	v.SetDefault("rehearsal.ai.apiKey", "")
	v.SetDefault("rehearsal.ai.maxRetries", 2)
	v.SetDefault("rehearsal.ai.temperature", 0.4)
	v.SetDefault("rehearsal.ai.circuitBreaker.enabled", true)
	v.SetDefault("rehearsal.ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("rehearsal.ai.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("rehearsal.ai.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("rehearsal.ai.circuitBreaker.minRequests", 3)
	v.SetDefault("rehearsal.ai.circuitBreaker.failureThreshold", 0.6)
	v.SetDefault("rehearsal.ai.promptFiles.nextQuestion", "")
	v.SetDefault("rehearsal.ai.promptFiles.summarize", "")

	// App
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown", "yaml"})

	// Vault
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.pollInterval", time.Duration(0))
	v.SetDefault("vault.secrets.authToken", "")
	v.SetDefault("vault.secrets.rehearsalKeys", "")
	v.SetDefault("vault.secrets.geminiKey", "")

	// Observability
	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "talentloop")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 30*time.Second)
	v.SetDefault("observability.customMetrics.transport.enabled", true)
	v.SetDefault("observability.customMetrics.transport.trackDuration", true)
	v.SetDefault("observability.customMetrics.interview.enabled", true)
	v.SetDefault("observability.customMetrics.interview.trackTurns", true)
	v.SetDefault("observability.customMetrics.ai.enabled", true)
	v.SetDefault("observability.customMetrics.ai.trackDuration", true)
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", false)
	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
}
