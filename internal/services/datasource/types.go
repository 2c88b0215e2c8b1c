// Package datasource selects and configures the retrieval backend attached
// to chat completion requests ("on your data").
package datasource

// Type identifies a retrieval backend. The set is closed; every Type has
// exactly one parameter builder in the selector.
type Type string

const (
	TypeAzureCognitiveSearch Type = "AzureCognitiveSearch"
	TypeAzureCosmosDB        Type = "AzureCosmosDB"
	TypeElasticsearch        Type = "Elasticsearch"
	TypePinecone             Type = "Pinecone"
	TypeAzureMLIndex         Type = "AzureMLIndex"
)

// Authentication carries the credential block sent to the completion API
// for the retrieval backend. Field names match the extension wire format.
type Authentication struct {
	Type             string `json:"type"`
	Key              string `json:"key,omitempty"`
	APIKey           string `json:"apiKey,omitempty"`
	ConnectionString string `json:"connectionString,omitempty"`
	EncodedAPIKey    string `json:"encodedApiKey,omitempty"`
}

// FieldsMapping maps index columns onto the roles the retrieval layer
// understands.
type FieldsMapping struct {
	ContentFields []string `json:"contentFields"`
	TitleField    string   `json:"titleField,omitempty"`
	URLField      string   `json:"urlField,omitempty"`
	FilepathField string   `json:"filepathField,omitempty"`
	VectorFields  []string `json:"vectorFields"`
}

// EmbeddingDependency tells the retrieval layer how to embed queries when a
// vector query type is in effect.
type EmbeddingDependency struct {
	Type           string          `json:"type"`
	DeploymentName string          `json:"deploymentName,omitempty"`
	Endpoint       string          `json:"endpoint,omitempty"`
	ModelID        string          `json:"modelId,omitempty"`
	Authentication *Authentication `json:"authentication,omitempty"`
}

// Parameters is the backend-specific parameter block. Unused fields are
// omitted from the wire payload, so one struct serves all backend types.
type Parameters struct {
	Endpoint              string               `json:"endpoint,omitempty"`
	Authentication        *Authentication      `json:"authentication,omitempty"`
	IndexName             string               `json:"indexName,omitempty"`
	DatabaseName          string               `json:"databaseName,omitempty"`
	ContainerName         string               `json:"containerName,omitempty"`
	Environment           string               `json:"environment,omitempty"`
	Name                  string               `json:"name,omitempty"`
	Version               string               `json:"version,omitempty"`
	ProjectResourceID     string               `json:"projectResourceId,omitempty"`
	FieldsMapping         FieldsMapping        `json:"fieldsMapping"`
	InScope               bool                 `json:"inScope"`
	TopNDocuments         int                  `json:"topNDocuments"`
	QueryType             string               `json:"queryType,omitempty"`
	SemanticConfiguration string               `json:"semanticConfiguration,omitempty"`
	RoleInformation       string               `json:"roleInformation"`
	Filter                string               `json:"filter,omitempty"`
	Strictness            int                  `json:"strictness"`
	EmbeddingDependency   *EmbeddingDependency `json:"embeddingDependency,omitempty"`
}

// DataSource is the tagged retrieval backend configuration attached to a
// model request.
type DataSource struct {
	Type       Type       `json:"type"`
	Parameters Parameters `json:"parameters"`
}

// RequestContext carries the per-request inputs that vary the built
// parameters: the caller's persona (role information), the access token
// used for document-level filtering, and an optional pre-built filter from
// the template service.
type RequestContext struct {
	RoleInformation string
	AccessToken     string
	Filter          string
}
