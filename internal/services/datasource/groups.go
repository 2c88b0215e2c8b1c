package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
)

// GroupResolver resolves the security group IDs the token's subject belongs
// to, used to build document-level access filters.
type GroupResolver interface {
	ResolveGroups(ctx context.Context, accessToken string) ([]string, error)
}

const graphMemberGroupsURL = "https://graph.microsoft.com/v1.0/me/getMemberGroups"

// GraphGroupResolver resolves group membership through the Microsoft Graph
// getMemberGroups endpoint, following paging links until exhausted.
type GraphGroupResolver struct {
	baseURL    string
	httpClient *http.Client
}

// NewGraphGroupResolver creates a resolver against the public Graph endpoint.
func NewGraphGroupResolver() *GraphGroupResolver {
	return &GraphGroupResolver{
		baseURL:    graphMemberGroupsURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewGraphGroupResolverWithBaseURL creates a resolver against a custom
// endpoint, used in tests.
func NewGraphGroupResolverWithBaseURL(baseURL string, httpClient *http.Client) *GraphGroupResolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &GraphGroupResolver{baseURL: baseURL, httpClient: httpClient}
}

type memberGroupsResponse struct {
	Value    []string `json:"value"`
	NextLink string   `json:"@odata.nextLink"`
}

// ResolveGroups returns every securityEnabled group ID for the token's
// subject.
func (r *GraphGroupResolver) ResolveGroups(ctx context.Context, accessToken string) ([]string, error) {
	var groups []string
	url := r.baseURL

	for url != "" {
		body := strings.NewReader(`{"securityEnabledOnly": true}`)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
		if err != nil {
			return nil, fmt.Errorf("failed to create group membership request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return nil, domainerrors.NewUpstreamError("failed to fetch user group membership", err)
		}

		var page memberGroupsResponse
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, domainerrors.NewUnauthorizedError("user access token was rejected by the directory")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, domainerrors.NewUpstreamError(
				fmt.Sprintf("group membership lookup returned status %d", resp.StatusCode), nil)
		}
		if err != nil {
			return nil, domainerrors.NewUpstreamError("failed to decode group membership response", err)
		}

		groups = append(groups, page.Value...)
		url = page.NextLink
	}

	return groups, nil
}

// buildGroupFilter turns the caller's group membership into an OData filter
// over the permitted-groups column.
func buildGroupFilter(ctx context.Context, resolver GroupResolver, permittedGroupsColumn, accessToken string) (string, error) {
	if resolver == nil {
		return "", domainerrors.NewConfigurationError(
			"document-level access control is enabled but no group resolver is configured")
	}

	groups, err := resolver.ResolveGroups(ctx, accessToken)
	if err != nil {
		return "", err
	}

	groupIDs := strings.Join(groups, ", ")
	return fmt.Sprintf("%s/any(g:search.in(g, '%s'))", permittedGroupsColumn, groupIDs), nil
}
