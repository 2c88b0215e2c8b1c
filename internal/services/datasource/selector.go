package datasource

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/campuschat/chat-service/internal/config"
	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
)

// Selector resolves which retrieval backend is active and builds its
// request parameters. Selection happens once at construction and is
// read-only afterwards.
type Selector struct {
	search    config.SearchConfig
	embedding embeddingConfig
	active    Type
	groups    GroupResolver
}

type embeddingConfig struct {
	DeploymentName string
	Endpoint       string
	Key            string
}

// NewSelector evaluates the configured backends in fixed priority order and
// returns a selector bound to the first complete one. Active reports the
// zero Type when no backend is configured, which disables retrieval.
func NewSelector(search config.SearchConfig, openAI config.OpenAIConfig, groups GroupResolver) *Selector {
	s := &Selector{
		search: search,
		embedding: embeddingConfig{
			DeploymentName: openAI.EmbeddingName,
			Endpoint:       openAI.EmbeddingEndpoint,
			Key:            openAI.EmbeddingKey,
		},
		groups: groups,
	}
	s.active = s.selectBackend()
	if s.active != "" {
		log.Debug().Str("datasource", string(s.active)).Msg("retrieval backend selected")
	} else {
		log.Debug().Msg("no retrieval backend configured")
	}
	return s
}

// Active returns the selected backend type, or "" when retrieval is off.
func (s *Selector) Active() Type {
	return s.active
}

// Enabled reports whether a retrieval backend is active.
func (s *Selector) Enabled() bool {
	return s.active != ""
}

// selectBackend walks the priority order and returns the first backend
// whose required settings are all present.
func (s *Selector) selectBackend() Type {
	cs := s.search.CognitiveSearch
	if cs.Service != "" && cs.Index != "" {
		return TypeAzureCognitiveSearch
	}

	cv := s.search.CosmosVector
	if cv.ConnectionString != "" && cv.Database != "" && cv.Container != "" && cv.Index != "" {
		return TypeAzureCosmosDB
	}

	es := s.search.Elasticsearch
	if es.Endpoint != "" && es.EncodedAPIKey != "" && es.Index != "" {
		return TypeElasticsearch
	}

	pc := s.search.Pinecone
	if pc.Environment != "" && pc.APIKey != "" && pc.IndexName != "" {
		return TypePinecone
	}

	ml := s.search.MLIndex
	if ml.Name != "" && ml.Version != "" && ml.ProjectResourceID != "" {
		return TypeAzureMLIndex
	}

	return ""
}

// Build produces the data source payload for one request. The request
// context supplies the persona-resolved role information and, when
// document-level filtering is on, the caller's access token.
func (s *Selector) Build(ctx context.Context, reqCtx RequestContext) (*DataSource, error) {
	var (
		ds  *DataSource
		err error
	)

	switch s.active {
	case TypeAzureCognitiveSearch:
		ds, err = s.buildCognitiveSearch(ctx, reqCtx)
	case TypeAzureCosmosDB:
		ds = s.buildCosmosVector(reqCtx)
	case TypeElasticsearch:
		ds = s.buildElasticsearch(reqCtx)
	case TypePinecone:
		ds = s.buildPinecone(reqCtx)
	case TypeAzureMLIndex:
		ds = s.buildMLIndex(reqCtx)
	default:
		return nil, domainerrors.NewConfigurationError(
			fmt.Sprintf("data source type is not configured or unknown: %s", s.active))
	}
	if err != nil {
		return nil, err
	}

	if err := s.resolveEmbeddingDependency(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *Selector) buildCognitiveSearch(ctx context.Context, reqCtx RequestContext) (*DataSource, error) {
	cfg := s.search.CognitiveSearch

	queryType := "simple"
	if cfg.QueryType != "" {
		queryType = cfg.QueryType
	} else if cfg.UseSemanticSearch && cfg.SemanticSearchConfig != "" {
		queryType = "semantic"
	}

	filter := reqCtx.Filter
	if cfg.PermittedGroupsColumn != "" {
		if reqCtx.AccessToken == "" {
			return nil, domainerrors.NewUnauthorizedError(
				"document-level access control is enabled, but user access token could not be fetched")
		}
		groupFilter, err := buildGroupFilter(ctx, s.groups, cfg.PermittedGroupsColumn, reqCtx.AccessToken)
		if err != nil {
			return nil, err
		}
		filter = groupFilter
	}

	auth := &Authentication{Type: "SystemAssignedManagedIdentity"}
	if cfg.Key != "" {
		auth = &Authentication{
			Type:   "APIKey",
			Key:    cfg.Key,
			APIKey: cfg.Key,
		}
	}

	return &DataSource{
		Type: TypeAzureCognitiveSearch,
		Parameters: Parameters{
			Endpoint:       fmt.Sprintf("https://%s.search.windows.net", cfg.Service),
			Authentication: auth,
			IndexName:      cfg.Index,
			FieldsMapping: FieldsMapping{
				ContentFields: config.ParseMultiColumns(cfg.ContentColumns),
				TitleField:    cfg.TitleColumn,
				URLField:      cfg.URLColumn,
				FilepathField: cfg.FilenameColumn,
				VectorFields:  config.ParseMultiColumns(cfg.VectorColumns),
			},
			InScope:               cfg.InDomain,
			TopNDocuments:         cfg.TopK,
			QueryType:             queryType,
			SemanticConfiguration: cfg.SemanticSearchConfig,
			RoleInformation:       reqCtx.RoleInformation,
			Filter:                filter,
			Strictness:            cfg.Strictness,
		},
	}, nil
}

func (s *Selector) buildCosmosVector(reqCtx RequestContext) *DataSource {
	cfg := s.search.CosmosVector

	return &DataSource{
		Type: TypeAzureCosmosDB,
		Parameters: Parameters{
			Authentication: &Authentication{
				Type:             "ConnectionString",
				ConnectionString: cfg.ConnectionString,
			},
			IndexName:     cfg.Index,
			DatabaseName:  cfg.Database,
			ContainerName: cfg.Container,
			FieldsMapping: FieldsMapping{
				ContentFields: config.ParseMultiColumns(cfg.ContentColumns),
				TitleField:    cfg.TitleColumn,
				URLField:      cfg.URLColumn,
				FilepathField: cfg.FilenameColumn,
				VectorFields:  config.ParseMultiColumns(cfg.VectorColumns),
			},
			InScope:         cfg.InDomain,
			TopNDocuments:   cfg.TopK,
			QueryType:       "vector",
			RoleInformation: reqCtx.RoleInformation,
			Strictness:      cfg.Strictness,
		},
	}
}

func (s *Selector) buildElasticsearch(reqCtx RequestContext) *DataSource {
	cfg := s.search.Elasticsearch

	queryType := "simple"
	if cfg.QueryType != "" {
		queryType = cfg.QueryType
	}

	return &DataSource{
		Type: TypeElasticsearch,
		Parameters: Parameters{
			Endpoint: cfg.Endpoint,
			Authentication: &Authentication{
				Type:          "EncodedAPIKey",
				EncodedAPIKey: cfg.EncodedAPIKey,
			},
			IndexName: cfg.Index,
			FieldsMapping: FieldsMapping{
				ContentFields: config.ParseMultiColumns(cfg.ContentColumns),
				TitleField:    cfg.TitleColumn,
				URLField:      cfg.URLColumn,
				FilepathField: cfg.FilenameColumn,
				VectorFields:  config.ParseMultiColumns(cfg.VectorColumns),
			},
			InScope:         cfg.InDomain,
			TopNDocuments:   cfg.TopK,
			QueryType:       queryType,
			RoleInformation: reqCtx.RoleInformation,
			Strictness:      cfg.Strictness,
		},
	}
}

func (s *Selector) buildPinecone(reqCtx RequestContext) *DataSource {
	cfg := s.search.Pinecone

	return &DataSource{
		Type: TypePinecone,
		Parameters: Parameters{
			Environment: cfg.Environment,
			Authentication: &Authentication{
				Type: "APIKey",
				Key:  cfg.APIKey,
			},
			IndexName: cfg.IndexName,
			FieldsMapping: FieldsMapping{
				ContentFields: config.ParseMultiColumns(cfg.ContentColumns),
				TitleField:    cfg.TitleColumn,
				URLField:      cfg.URLColumn,
				FilepathField: cfg.FilenameColumn,
				VectorFields:  config.ParseMultiColumns(cfg.VectorColumns),
			},
			InScope:         cfg.InDomain,
			TopNDocuments:   cfg.TopK,
			QueryType:       "vector",
			RoleInformation: reqCtx.RoleInformation,
			Strictness:      cfg.Strictness,
		},
	}
}

func (s *Selector) buildMLIndex(reqCtx RequestContext) *DataSource {
	cfg := s.search.MLIndex

	// The ML Index parameter block does not take a queryType; the index
	// decides its own retrieval mode.
	return &DataSource{
		Type: TypeAzureMLIndex,
		Parameters: Parameters{
			Name:              cfg.Name,
			Version:           cfg.Version,
			ProjectResourceID: cfg.ProjectResourceID,
			FieldsMapping: FieldsMapping{
				ContentFields: config.ParseMultiColumns(cfg.ContentColumns),
				TitleField:    cfg.TitleColumn,
				URLField:      cfg.URLColumn,
				FilepathField: cfg.FilenameColumn,
				VectorFields:  config.ParseMultiColumns(cfg.VectorColumns),
			},
			InScope:         cfg.InDomain,
			TopNDocuments:   cfg.TopK,
			RoleInformation: reqCtx.RoleInformation,
			Strictness:      cfg.Strictness,
		},
	}
}

// resolveEmbeddingDependency attaches the query embedding strategy when the
// effective query type needs vectors. The three strategies are mutually
// exclusive and tried in order: named deployment, explicit endpoint plus
// key, then the Elasticsearch-native model id.
func (s *Selector) resolveEmbeddingDependency(ds *DataSource) error {
	if ds.Type == TypeAzureMLIndex {
		return nil
	}
	if !strings.Contains(strings.ToLower(ds.Parameters.QueryType), "vector") {
		return nil
	}

	switch {
	case s.embedding.DeploymentName != "":
		ds.Parameters.EmbeddingDependency = &EmbeddingDependency{
			Type:           "DeploymentName",
			DeploymentName: s.embedding.DeploymentName,
		}
	case s.embedding.Endpoint != "" && s.embedding.Key != "":
		ds.Parameters.EmbeddingDependency = &EmbeddingDependency{
			Type:     "Endpoint",
			Endpoint: s.embedding.Endpoint,
			Authentication: &Authentication{
				Type: "APIKey",
				Key:  s.embedding.Key,
			},
		}
	case ds.Type == TypeElasticsearch && s.search.Elasticsearch.EmbeddingModelID != "":
		ds.Parameters.EmbeddingDependency = &EmbeddingDependency{
			Type:    "ModelId",
			ModelID: s.search.Elasticsearch.EmbeddingModelID,
		}
	default:
		return domainerrors.NewConfigurationError(fmt.Sprintf(
			"vector query type (%s) is selected for data source type %s but no embedding dependency is configured",
			ds.Parameters.QueryType, ds.Type))
	}
	return nil
}
