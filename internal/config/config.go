// Package config handles application configuration loading and management.
// The whole configuration is loaded once at process start into an immutable
// Config value that is passed into each component; nothing reads the
// environment after Load returns.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Session   SessionConfig
	History   HistoryConfig
	OpenAI    OpenAIConfig
	Vision    VisionConfig
	Storage   StorageConfig
	Search    SearchConfig
	Templates TemplatesConfig
	Frontend  FrontendConfig
	Auth      AuthConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host    string
	Port    int
	GinMode string
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// SessionConfig holds the Redis session store configuration.
type SessionConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	CookieName    string
	TTL           time.Duration
	EncryptionKey string
}

// HistoryConfig holds the conversation history document store configuration.
type HistoryConfig struct {
	URI            string
	Database       string
	Container      string
	EnableFeedback bool
}

// Enabled reports whether chat history persistence is configured.
func (c HistoryConfig) Enabled() bool {
	return c.URI != "" && c.Database != "" && c.Container != ""
}

// OpenAIConfig holds the Azure OpenAI chat completion configuration.
type OpenAIConfig struct {
	Endpoint            string
	Resource            string
	Key                 string
	Model               string
	ModelName           string
	APIVersion          string
	Temperature         float32
	TopP                float32
	MaxTokens           int
	StopSequence        string
	Stream              bool
	SystemMessage       string
	SystemMessageTutor  string
	EmbeddingName       string
	EmbeddingEndpoint   string
	EmbeddingKey        string
}

// ResolveEndpoint returns the explicit endpoint, or one derived from the
// resource name.
func (c OpenAIConfig) ResolveEndpoint() (string, error) {
	if c.Endpoint != "" {
		return c.Endpoint, nil
	}
	if c.Resource != "" {
		return fmt.Sprintf("https://%s.openai.azure.com/", c.Resource), nil
	}
	return "", fmt.Errorf("AZURE_OPENAI_ENDPOINT or AZURE_OPENAI_RESOURCE is required")
}

// VisionConfig holds the vision-capable model configuration.
type VisionConfig struct {
	Endpoint   string
	Credential string
}

// StorageConfig holds the blob object store configuration used for vision
// image uploads.
type StorageConfig struct {
	AccountName string
	AccountKey  string
	Container   string
	SASValidity time.Duration
}

// SearchConfig groups every retrieval backend's settings plus the shared
// defaults applied when a backend leaves a knob unset.
type SearchConfig struct {
	TopK       int
	Strictness int
	InDomain   bool

	CognitiveSearch CognitiveSearchConfig
	CosmosVector    CosmosVectorConfig
	Elasticsearch   ElasticsearchConfig
	Pinecone        PineconeConfig
	MLIndex         MLIndexConfig
}

// CognitiveSearchConfig holds Azure Cognitive Search settings.
type CognitiveSearchConfig struct {
	Service               string
	Index                 string
	Key                   string
	UseSemanticSearch     bool
	SemanticSearchConfig  string
	TopK                  int
	InDomain              bool
	ContentColumns        string
	FilenameColumn        string
	TitleColumn           string
	URLColumn             string
	VectorColumns         string
	QueryType             string
	PermittedGroupsColumn string
	Strictness            int
}

// CosmosVectorConfig holds Cosmos DB for MongoDB vCore vector settings.
type CosmosVectorConfig struct {
	ConnectionString string
	Database         string
	Container        string
	Index            string
	TopK             int
	Strictness       int
	InDomain         bool
	ContentColumns   string
	FilenameColumn   string
	TitleColumn      string
	URLColumn        string
	VectorColumns    string
}

// ElasticsearchConfig holds Elasticsearch settings.
type ElasticsearchConfig struct {
	Endpoint         string
	EncodedAPIKey    string
	Index            string
	QueryType        string
	TopK             int
	InDomain         bool
	ContentColumns   string
	FilenameColumn   string
	TitleColumn      string
	URLColumn        string
	VectorColumns    string
	Strictness       int
	EmbeddingModelID string
}

// PineconeConfig holds Pinecone settings.
type PineconeConfig struct {
	Environment    string
	APIKey         string
	IndexName      string
	TopK           int
	Strictness     int
	InDomain       bool
	ContentColumns string
	FilenameColumn string
	TitleColumn    string
	URLColumn      string
	VectorColumns  string
}

// MLIndexConfig holds Azure ML Index settings.
type MLIndexConfig struct {
	Name              string
	Version           string
	ProjectResourceID string
	TopK              int
	Strictness        int
	InDomain          bool
	ContentColumns    string
	FilenameColumn    string
	TitleColumn       string
	URLColumn         string
	VectorColumns     string
	QueryType         string
}

// TemplatesConfig holds the optional per-user filter template service.
type TemplatesConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Enabled reports whether the template service is configured.
func (c TemplatesConfig) Enabled() bool {
	return c.URL != ""
}

// FrontendConfig holds capability flags and UI settings served to the client.
type FrontendConfig struct {
	Title                 string
	Logo                  string
	ChatLogo              string
	ChatTitle             string
	ChatDescription       string
	Favicon               string
	ShowShareButton       bool
	PromptSuggestions     string
	PromptSuggestionsShow string
}

// AuthConfig holds the identity derivation toggle.
type AuthConfig struct {
	Enabled bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	topK := getEnvAsInt("SEARCH_TOP_K", 5)
	strictness := getEnvAsInt("SEARCH_STRICTNESS", 3)
	inDomain := getEnvAsBool("SEARCH_ENABLE_IN_DOMAIN", true)

	cfg := &Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvAsInt("SERVER_PORT", 8080),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Session: SessionConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			CookieName:    getEnv("SESSION_NAME", "chat_session"),
			TTL:           time.Duration(getEnvAsInt("SESSION_TTL_SECONDS", 86400)) * time.Second,
			EncryptionKey: getEnv("SESSION_ENCRYPTION_KEY", ""),
		},
		History: HistoryConfig{
			URI:            getEnv("HISTORY_DB_URI", ""),
			Database:       getEnv("HISTORY_DB_DATABASE", ""),
			Container:      getEnv("HISTORY_DB_CONTAINER", ""),
			EnableFeedback: getEnvAsBool("HISTORY_ENABLE_FEEDBACK", false),
		},
		OpenAI: OpenAIConfig{
			Endpoint:           getEnv("AZURE_OPENAI_ENDPOINT", ""),
			Resource:           getEnv("AZURE_OPENAI_RESOURCE", ""),
			Key:                getEnv("AZURE_OPENAI_KEY", ""),
			Model:              getEnv("AZURE_OPENAI_MODEL", ""),
			ModelName:          getEnv("AZURE_OPENAI_MODEL_NAME", "gpt-35-turbo-16k"),
			APIVersion:         getEnv("AZURE_OPENAI_PREVIEW_API_VERSION", "2023-12-01-preview"),
			Temperature:        getEnvAsFloat("AZURE_OPENAI_TEMPERATURE", 0),
			TopP:               getEnvAsFloat("AZURE_OPENAI_TOP_P", 1.0),
			MaxTokens:          getEnvAsInt("AZURE_OPENAI_MAX_TOKENS", 1000),
			StopSequence:       getEnv("AZURE_OPENAI_STOP_SEQUENCE", ""),
			Stream:             getEnvAsBool("AZURE_OPENAI_STREAM", true),
			SystemMessage:      getEnv("AZURE_OPENAI_SYSTEM_MESSAGE", "You are an AI assistant that helps people find information."),
			SystemMessageTutor: getEnv("AZURE_OPENAI_SYSTEM_MESSAGE_TUTOR", "You are an upbeat, encouraging tutor who helps students understand concepts by explaining ideas and asking students questions."),
			EmbeddingName:      getEnv("AZURE_OPENAI_EMBEDDING_NAME", ""),
			EmbeddingEndpoint:  getEnv("AZURE_OPENAI_EMBEDDING_ENDPOINT", ""),
			EmbeddingKey:       getEnv("AZURE_OPENAI_EMBEDDING_KEY", ""),
		},
		Vision: VisionConfig{
			Endpoint:   getEnv("AZURE_VISION_ENDPOINT", ""),
			Credential: getEnv("AZURE_INFERENCE_CREDENTIAL", ""),
		},
		Storage: StorageConfig{
			AccountName: getEnv("AZURE_STORAGE_ACCOUNT_NAME", ""),
			AccountKey:  getEnv("AZURE_STORAGE_ACCOUNT_KEY", ""),
			Container:   getEnv("AZURE_STORAGE_CONTAINER", "chat-images"),
			SASValidity: time.Duration(getEnvAsInt("AZURE_STORAGE_SAS_VALIDITY_SECONDS", 3600)) * time.Second,
		},
		Search: SearchConfig{
			TopK:       topK,
			Strictness: strictness,
			InDomain:   inDomain,
			CognitiveSearch: CognitiveSearchConfig{
				Service:               getEnv("AZURE_SEARCH_SERVICE", ""),
				Index:                 getEnv("AZURE_SEARCH_INDEX", ""),
				Key:                   getEnv("AZURE_SEARCH_KEY", ""),
				UseSemanticSearch:     getEnvAsBool("AZURE_SEARCH_USE_SEMANTIC_SEARCH", false),
				SemanticSearchConfig:  getEnv("AZURE_SEARCH_SEMANTIC_SEARCH_CONFIG", "default"),
				TopK:                  getEnvAsInt("AZURE_SEARCH_TOP_K", topK),
				InDomain:              getEnvAsBool("AZURE_SEARCH_ENABLE_IN_DOMAIN", inDomain),
				ContentColumns:        getEnv("AZURE_SEARCH_CONTENT_COLUMNS", ""),
				FilenameColumn:        getEnv("AZURE_SEARCH_FILENAME_COLUMN", ""),
				TitleColumn:           getEnv("AZURE_SEARCH_TITLE_COLUMN", ""),
				URLColumn:             getEnv("AZURE_SEARCH_URL_COLUMN", ""),
				VectorColumns:         getEnv("AZURE_SEARCH_VECTOR_COLUMNS", ""),
				QueryType:             getEnv("AZURE_SEARCH_QUERY_TYPE", ""),
				PermittedGroupsColumn: getEnv("AZURE_SEARCH_PERMITTED_GROUPS_COLUMN", ""),
				Strictness:            getEnvAsInt("AZURE_SEARCH_STRICTNESS", strictness),
			},
			CosmosVector: CosmosVectorConfig{
				ConnectionString: getEnv("AZURE_COSMOSDB_MONGO_VCORE_CONNECTION_STRING", ""),
				Database:         getEnv("AZURE_COSMOSDB_MONGO_VCORE_DATABASE", ""),
				Container:        getEnv("AZURE_COSMOSDB_MONGO_VCORE_CONTAINER", ""),
				Index:            getEnv("AZURE_COSMOSDB_MONGO_VCORE_INDEX", ""),
				TopK:             getEnvAsInt("AZURE_COSMOSDB_MONGO_VCORE_TOP_K", topK),
				Strictness:       getEnvAsInt("AZURE_COSMOSDB_MONGO_VCORE_STRICTNESS", strictness),
				InDomain:         getEnvAsBool("AZURE_COSMOSDB_MONGO_VCORE_ENABLE_IN_DOMAIN", inDomain),
				ContentColumns:   getEnv("AZURE_COSMOSDB_MONGO_VCORE_CONTENT_COLUMNS", ""),
				FilenameColumn:   getEnv("AZURE_COSMOSDB_MONGO_VCORE_FILENAME_COLUMN", ""),
				TitleColumn:      getEnv("AZURE_COSMOSDB_MONGO_VCORE_TITLE_COLUMN", ""),
				URLColumn:        getEnv("AZURE_COSMOSDB_MONGO_VCORE_URL_COLUMN", ""),
				VectorColumns:    getEnv("AZURE_COSMOSDB_MONGO_VCORE_VECTOR_COLUMNS", ""),
			},
			Elasticsearch: ElasticsearchConfig{
				Endpoint:         getEnv("ELASTICSEARCH_ENDPOINT", ""),
				EncodedAPIKey:    getEnv("ELASTICSEARCH_ENCODED_API_KEY", ""),
				Index:            getEnv("ELASTICSEARCH_INDEX", ""),
				QueryType:        getEnv("ELASTICSEARCH_QUERY_TYPE", "simple"),
				TopK:             getEnvAsInt("ELASTICSEARCH_TOP_K", topK),
				InDomain:         getEnvAsBool("ELASTICSEARCH_ENABLE_IN_DOMAIN", inDomain),
				ContentColumns:   getEnv("ELASTICSEARCH_CONTENT_COLUMNS", ""),
				FilenameColumn:   getEnv("ELASTICSEARCH_FILENAME_COLUMN", ""),
				TitleColumn:      getEnv("ELASTICSEARCH_TITLE_COLUMN", ""),
				URLColumn:        getEnv("ELASTICSEARCH_URL_COLUMN", ""),
				VectorColumns:    getEnv("ELASTICSEARCH_VECTOR_COLUMNS", ""),
				Strictness:       getEnvAsInt("ELASTICSEARCH_STRICTNESS", strictness),
				EmbeddingModelID: getEnv("ELASTICSEARCH_EMBEDDING_MODEL_ID", ""),
			},
			Pinecone: PineconeConfig{
				Environment:    getEnv("PINECONE_ENVIRONMENT", ""),
				APIKey:         getEnv("PINECONE_API_KEY", ""),
				IndexName:      getEnv("PINECONE_INDEX_NAME", ""),
				TopK:           getEnvAsInt("PINECONE_TOP_K", topK),
				Strictness:     getEnvAsInt("PINECONE_STRICTNESS", strictness),
				InDomain:       getEnvAsBool("PINECONE_ENABLE_IN_DOMAIN", inDomain),
				ContentColumns: getEnv("PINECONE_CONTENT_COLUMNS", ""),
				FilenameColumn: getEnv("PINECONE_FILENAME_COLUMN", ""),
				TitleColumn:    getEnv("PINECONE_TITLE_COLUMN", ""),
				URLColumn:      getEnv("PINECONE_URL_COLUMN", ""),
				VectorColumns:  getEnv("PINECONE_VECTOR_COLUMNS", ""),
			},
			MLIndex: MLIndexConfig{
				Name:              getEnv("AZURE_MLINDEX_NAME", ""),
				Version:           getEnv("AZURE_MLINDEX_VERSION", ""),
				ProjectResourceID: getEnv("AZURE_ML_PROJECT_RESOURCE_ID", ""),
				TopK:              getEnvAsInt("AZURE_MLINDEX_TOP_K", topK),
				Strictness:        getEnvAsInt("AZURE_MLINDEX_STRICTNESS", strictness),
				InDomain:          getEnvAsBool("AZURE_MLINDEX_ENABLE_IN_DOMAIN", inDomain),
				ContentColumns:    getEnv("AZURE_MLINDEX_CONTENT_COLUMNS", ""),
				FilenameColumn:    getEnv("AZURE_MLINDEX_FILENAME_COLUMN", ""),
				TitleColumn:       getEnv("AZURE_MLINDEX_TITLE_COLUMN", ""),
				URLColumn:         getEnv("AZURE_MLINDEX_URL_COLUMN", ""),
				VectorColumns:     getEnv("AZURE_MLINDEX_VECTOR_COLUMNS", ""),
				QueryType:         getEnv("AZURE_MLINDEX_QUERY_TYPE", ""),
			},
		},
		Templates: TemplatesConfig{
			URL:     getEnv("SEARCH_TEMPLATE_URL", ""),
			APIKey:  getEnv("SEARCH_TEMPLATE_API_KEY", ""),
			Timeout: time.Duration(getEnvAsInt("SEARCH_TEMPLATE_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Frontend: FrontendConfig{
			Title:                 getEnv("UI_TITLE", "Contoso"),
			Logo:                  getEnv("UI_LOGO", ""),
			ChatLogo:              getEnv("UI_CHAT_LOGO", ""),
			ChatTitle:             getEnv("UI_CHAT_TITLE", "Start chatting"),
			ChatDescription:       getEnv("UI_CHAT_DESCRIPTION", "This chatbot is configured to answer your questions"),
			Favicon:               getEnv("UI_FAVICON", "/favicon.ico"),
			ShowShareButton:       getEnvAsBool("UI_SHOW_SHARE_BUTTON", true),
			PromptSuggestions:     getEnv("PROMPT_SUGGESTIONS", ""),
			PromptSuggestionsShow: getEnv("PROMPT_SUGGESTIONS_SHOW_NUM", ""),
		},
		Auth: AuthConfig{
			Enabled: getEnvAsBool("AUTH_ENABLED", true),
		},
	}

	if cfg.OpenAI.Model == "" {
		return nil, fmt.Errorf("AZURE_OPENAI_MODEL is required")
	}
	if _, err := cfg.OpenAI.ResolveEndpoint(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseMultiColumns splits a delimited column-name setting into a slice.
// Pipe-delimited values win over comma-delimited ones, matching how the
// settings have historically been written.
func ParseMultiColumns(s string) []string {
	if s == "" {
		return nil
	}
	sep := ","
	if strings.Contains(s, "|") {
		sep = "|"
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as a float with a default value.
func getEnvAsFloat(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.EqualFold(value, "true")
	}
	return defaultValue
}
