package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment. Provider
// credentials are allowed to be empty here; each stage checks its own key and
// falls back instead of failing at startup.
type Config struct {
	Port string

	// TranscribeProvider selects the batch transcription variant:
	// "deepgram" (single blocking call) or "assemblyai" (submit then poll).
	TranscribeProvider string
	DeepgramAPIKey     string
	AssemblyAIAPIKey   string

	GroqAPIKey       string
	GroqPolishModel  string
	GroqExtractModel string

	MongoURI      string
	MongoDatabase string

	AllowedOrigins string
	UploadDir      string
}

// Load reads .env if present and builds the config from environment variables.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               envOr("PORT", "3000"),
		TranscribeProvider: envOr("TRANSCRIBE_PROVIDER", "deepgram"),
		DeepgramAPIKey:     os.Getenv("DEEPGRAM_API_KEY"),
		AssemblyAIAPIKey:   os.Getenv("ASSEMBLYAI_API_KEY"),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		GroqPolishModel:    envOr("GROQ_POLISH_MODEL", "llama-3.1-8b-instant"),
		GroqExtractModel:   envOr("GROQ_EXTRACT_MODEL", "openai/gpt-oss-120b"),
		MongoURI:           os.Getenv("MONGODB_URI"),
		MongoDatabase:      envOr("MONGODB_DATABASE", "proposal-maker"),
		AllowedOrigins:     envOr("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		UploadDir:          envOr("UPLOAD_DIR", "uploads"),
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
