package datasource_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuschat/chat-service/internal/config"
	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
	"github.com/campuschat/chat-service/internal/services/datasource"
)

func cognitiveSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		CognitiveSearch: config.CognitiveSearchConfig{
			Service:        "campus-search",
			Index:          "courses",
			Key:            "search-key",
			TopK:           5,
			Strictness:     3,
			InDomain:       true,
			ContentColumns: "content|body",
			TitleColumn:    "title",
			URLColumn:      "url",
			FilenameColumn: "filepath",
		},
	}
}

func pineconeConfig() config.SearchConfig {
	return config.SearchConfig{
		Pinecone: config.PineconeConfig{
			Environment: "us-east-1",
			APIKey:      "pinecone-key",
			IndexName:   "courses",
			TopK:        5,
			Strictness:  3,
		},
	}
}

func TestNewSelector_NoBackendConfigured(t *testing.T) {
	// Arrange + Act
	selector := datasource.NewSelector(config.SearchConfig{}, config.OpenAIConfig{}, nil)

	// Assert
	assert.False(t, selector.Enabled())
	assert.Equal(t, datasource.Type(""), selector.Active())
}

func TestNewSelector_CognitiveSearchWinsOverPinecone(t *testing.T) {
	// Arrange
	search := pineconeConfig()
	search.CognitiveSearch = cognitiveSearchConfig().CognitiveSearch

	// Act
	selector := datasource.NewSelector(search, config.OpenAIConfig{}, nil)

	// Assert
	assert.Equal(t, datasource.TypeAzureCognitiveSearch, selector.Active())
}

func TestNewSelector_CosmosWinsOverElasticsearch(t *testing.T) {
	// Arrange
	search := config.SearchConfig{
		CosmosVector: config.CosmosVectorConfig{
			ConnectionString: "mongodb://cosmos",
			Database:         "db",
			Container:        "vectors",
			Index:            "idx",
		},
		Elasticsearch: config.ElasticsearchConfig{
			Endpoint:      "https://es.example.com",
			EncodedAPIKey: "ZWxhc3RpYw==",
			Index:         "courses",
		},
	}

	// Act
	selector := datasource.NewSelector(search, config.OpenAIConfig{}, nil)

	// Assert
	assert.Equal(t, datasource.TypeAzureCosmosDB, selector.Active())
}

func TestNewSelector_MLIndexIsLastResort(t *testing.T) {
	// Arrange
	search := config.SearchConfig{
		MLIndex: config.MLIndexConfig{
			Name:              "campus-index",
			Version:           "1",
			ProjectResourceID: "/subscriptions/abc/resourceGroups/rg",
		},
	}

	// Act
	selector := datasource.NewSelector(search, config.OpenAIConfig{}, nil)

	// Assert
	assert.Equal(t, datasource.TypeAzureMLIndex, selector.Active())
}

func TestBuild_CognitiveSearchDefaults(t *testing.T) {
	// Arrange
	selector := datasource.NewSelector(cognitiveSearchConfig(), config.OpenAIConfig{}, nil)

	// Act
	ds, err := selector.Build(context.Background(), datasource.RequestContext{
		RoleInformation: "You are a helpful assistant.",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, datasource.TypeAzureCognitiveSearch, ds.Type)
	assert.Equal(t, "https://campus-search.search.windows.net", ds.Parameters.Endpoint)
	assert.Equal(t, "courses", ds.Parameters.IndexName)
	assert.Equal(t, "simple", ds.Parameters.QueryType)
	assert.Equal(t, "APIKey", ds.Parameters.Authentication.Type)
	assert.Equal(t, "search-key", ds.Parameters.Authentication.Key)
	assert.Equal(t, []string{"content", "body"}, ds.Parameters.FieldsMapping.ContentFields)
	assert.Equal(t, "You are a helpful assistant.", ds.Parameters.RoleInformation)
	assert.Equal(t, 5, ds.Parameters.TopNDocuments)
	assert.Equal(t, 3, ds.Parameters.Strictness)
	assert.True(t, ds.Parameters.InScope)
	assert.Nil(t, ds.Parameters.EmbeddingDependency)
}

func TestBuild_CognitiveSearchSemanticQueryType(t *testing.T) {
	// Arrange
	search := cognitiveSearchConfig()
	search.CognitiveSearch.UseSemanticSearch = true
	search.CognitiveSearch.SemanticSearchConfig = "default"
	selector := datasource.NewSelector(search, config.OpenAIConfig{}, nil)

	// Act
	ds, err := selector.Build(context.Background(), datasource.RequestContext{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "semantic", ds.Parameters.QueryType)
	assert.Equal(t, "default", ds.Parameters.SemanticConfiguration)
}

func TestBuild_CognitiveSearchExplicitQueryTypeWins(t *testing.T) {
	// Arrange
	search := cognitiveSearchConfig()
	search.CognitiveSearch.UseSemanticSearch = true
	search.CognitiveSearch.SemanticSearchConfig = "default"
	search.CognitiveSearch.QueryType = "vectorSimpleHybrid"
	openAI := config.OpenAIConfig{EmbeddingName: "text-embedding-ada-002"}
	selector := datasource.NewSelector(search, openAI, nil)

	// Act
	ds, err := selector.Build(context.Background(), datasource.RequestContext{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "vectorSimpleHybrid", ds.Parameters.QueryType)
}

func TestBuild_CognitiveSearchManagedIdentityWithoutKey(t *testing.T) {
	// Arrange
	search := cognitiveSearchConfig()
	search.CognitiveSearch.Key = ""
	selector := datasource.NewSelector(search, config.OpenAIConfig{}, nil)

	// Act
	ds, err := selector.Build(context.Background(), datasource.RequestContext{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "SystemAssignedManagedIdentity", ds.Parameters.Authentication.Type)
	assert.Empty(t, ds.Parameters.Authentication.Key)
}

func TestBuild_PermittedGroupsWithoutTokenIsUnauthorized(t *testing.T) {
	// Arrange
	search := cognitiveSearchConfig()
	search.CognitiveSearch.PermittedGroupsColumn = "permitted_groups"
	selector := datasource.NewSelector(search, config.OpenAIConfig{}, stubGroupResolver{})

	// Act
	ds, err := selector.Build(context.Background(), datasource.RequestContext{})

	// Assert
	require.Error(t, err)
	assert.Nil(t, ds)
	domainErr, ok := domainerrors.GetDomainError(err)
	require.True(t, ok)
	assert.Equal(t, 401, domainErr.HTTPStatus)
}

func TestBuild_PermittedGroupsBuildsFilter(t *testing.T) {
	// Arrange
	search := cognitiveSearchConfig()
	search.CognitiveSearch.PermittedGroupsColumn = "permitted_groups"
	resolver := stubGroupResolver{groups: []string{"g-1", "g-2"}}
	selector := datasource.NewSelector(search, config.OpenAIConfig{}, resolver)

	// Act
	ds, err := selector.Build(context.Background(), datasource.RequestContext{AccessToken: "token"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "permitted_groups/any(g:search.in(g, 'g-1, g-2'))", ds.Parameters.Filter)
}

func TestBuild_CosmosForcesVectorAndNeedsEmbedding(t *testing.T) {
	// Arrange
	search := config.SearchConfig{
		CosmosVector: config.CosmosVectorConfig{
			ConnectionString: "mongodb://cosmos",
			Database:         "db",
			Container:        "vectors",
			Index:            "idx",
		},
	}
	selector := datasource.NewSelector(search, config.OpenAIConfig{}, nil)

	// Act
	ds, err := selector.Build(context.Background(), datasource.RequestContext{})

	// Assert
	require.Error(t, err)
	assert.Nil(t, ds)
	assert.True(t, domainerrors.IsConfigurationError(err))
}

func TestBuild_EmbeddingDeploymentNamePreferred(t *testing.T) {
	// Arrange
	openAI := config.OpenAIConfig{
		EmbeddingName:     "text-embedding-ada-002",
		EmbeddingEndpoint: "https://embed.example.com",
		EmbeddingKey:      "embed-key",
	}
	selector := datasource.NewSelector(pineconeConfig(), openAI, nil)

	// Act
	ds, err := selector.Build(context.Background(), datasource.RequestContext{})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, ds.Parameters.EmbeddingDependency)
	assert.Equal(t, "DeploymentName", ds.Parameters.EmbeddingDependency.Type)
	assert.Equal(t, "text-embedding-ada-002", ds.Parameters.EmbeddingDependency.DeploymentName)
}

func TestBuild_EmbeddingEndpointFallback(t *testing.T) {
	// Arrange
	openAI := config.OpenAIConfig{
		EmbeddingEndpoint: "https://embed.example.com",
		EmbeddingKey:      "embed-key",
	}
	selector := datasource.NewSelector(pineconeConfig(), openAI, nil)

	// Act
	ds, err := selector.Build(context.Background(), datasource.RequestContext{})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, ds.Parameters.EmbeddingDependency)
	assert.Equal(t, "Endpoint", ds.Parameters.EmbeddingDependency.Type)
	assert.Equal(t, "https://embed.example.com", ds.Parameters.EmbeddingDependency.Endpoint)
	require.NotNil(t, ds.Parameters.EmbeddingDependency.Authentication)
	assert.Equal(t, "embed-key", ds.Parameters.EmbeddingDependency.Authentication.Key)
}

func TestBuild_ElasticsearchModelIDFallback(t *testing.T) {
	// Arrange
	search := config.SearchConfig{
		Elasticsearch: config.ElasticsearchConfig{
			Endpoint:         "https://es.example.com",
			EncodedAPIKey:    "ZWxhc3RpYw==",
			Index:            "courses",
			QueryType:        "vector",
			EmbeddingModelID: "sentence-transformers__all-minilm-l6-v2",
		},
	}
	selector := datasource.NewSelector(search, config.OpenAIConfig{}, nil)

	// Act
	ds, err := selector.Build(context.Background(), datasource.RequestContext{})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, ds.Parameters.EmbeddingDependency)
	assert.Equal(t, "ModelId", ds.Parameters.EmbeddingDependency.Type)
	assert.Equal(t, "sentence-transformers__all-minilm-l6-v2", ds.Parameters.EmbeddingDependency.ModelID)
}

func TestBuild_MLIndexSkipsEmbeddingAndQueryType(t *testing.T) {
	// Arrange
	search := config.SearchConfig{
		MLIndex: config.MLIndexConfig{
			Name:              "campus-index",
			Version:           "1",
			ProjectResourceID: "/subscriptions/abc/resourceGroups/rg",
			QueryType:         "vector",
		},
	}
	selector := datasource.NewSelector(search, config.OpenAIConfig{}, nil)

	// Act
	ds, err := selector.Build(context.Background(), datasource.RequestContext{})

	// Assert
	require.NoError(t, err)
	assert.Empty(t, ds.Parameters.QueryType)
	assert.Nil(t, ds.Parameters.EmbeddingDependency)
	assert.Equal(t, "campus-index", ds.Parameters.Name)
	assert.Equal(t, "/subscriptions/abc/resourceGroups/rg", ds.Parameters.ProjectResourceID)
}

type stubGroupResolver struct {
	groups []string
	err    error
}

func (s stubGroupResolver) ResolveGroups(ctx context.Context, accessToken string) ([]string, error) {
	return s.groups, s.err
}
