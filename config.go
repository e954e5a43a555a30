package coursegrader

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const insecureSessionSecret = "change-me-session-secret"

// Config holds application configuration
type Config struct {
	Port          string
	SessionSecret string
	SessionDir    string
	OpenAIKey     string
	OpenAIModel   string
	RubricDB      string
	LogDir        string
	CourseFile    string
	Verbose       bool
}

// LoadConfig reads .env (when present) and the environment. The OpenAI key
// is optional: without it roleplay and feedback use their fallback replies.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		VerboseLog("No .env file loaded: %v", err)
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8180"),
		SessionSecret: getEnv("SESSION_SECRET", insecureSessionSecret),
		SessionDir:    getEnv("SESSION_DIR", os.TempDir()),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),
		RubricDB:      getEnv("RUBRIC_DB", "./rubrics.db"),
		LogDir:        getEnv("LOG_DIR", "log"),
		CourseFile:    os.Getenv("COURSE_FILE"),
		Verbose:       getEnvBool("VERBOSE", false),
	}

	if cfg.SessionSecret == insecureSessionSecret {
		log.Println("Warning: using the default SESSION_SECRET. Set it in your environment.")
	}
	if cfg.OpenAIKey == "" {
		log.Println("OPENAI_API_KEY not set; philosopher chat and reflection feedback will use canned replies.")
	}
	return cfg
}

// Course loads COURSE_FILE when set, otherwise the embedded course.
func (c *Config) Course() (*Course, error) {
	if c.CourseFile == "" {
		return DefaultCourse(), nil
	}
	return LoadCourseFile(c.CourseFile)
}

// Generator returns the configured LLM generator, or nil without a key.
func (c *Config) Generator() Generator {
	if c.OpenAIKey == "" {
		return nil
	}
	return NewOpenAIGenerator(c.OpenAIKey, c.OpenAIModel)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}
