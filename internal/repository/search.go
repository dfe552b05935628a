package repository

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"talent-match-workers/internal/common/errors"
	"talent-match-workers/internal/matching"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// CandidateSearch narrows the freelancer pool to profiles sharing at least
// one skill with the project.
type CandidateSearch struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
}

func NewCandidateSearch(client *elasticsearch.Client, index string, timeout time.Duration) *CandidateSearch {
	return &CandidateSearch{client: client, index: index, timeout: timeout}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchBySkills returns up to size freelancer ids ordered by skill relevance.
// It returns nil, nil when the project names no skills.
func (s *CandidateSearch) SearchBySkills(ctx context.Context, req matching.ProjectRequirements, size int) ([]string, error) {
	query := buildSkillQuery(req)
	if query == nil {
		return nil, nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"query":   query,
		"_source": false,
		"sort":    []interface{}{"_score", map[string]interface{}{"_id": "asc"}},
	})
	if err != nil {
		return nil, errors.NewCandidateSearchFailedError(err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	request := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := request.Do(ctx, s.client)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.NewSearchTimeoutError(s.index)
		}
		return nil, errors.NewCandidateSearchFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewCandidateSearchFailedError(fmt.Errorf("search %s: %s", s.index, res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewCandidateSearchFailedError(fmt.Errorf("decode search response: %w", err))
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// freelancerMapping keeps skills searchable both as analyzed text, for
// relevance, and as lowercased whole names, for containment lookups.
var freelancerMapping = map[string]interface{}{
	"settings": map[string]interface{}{
		"analysis": map[string]interface{}{
			"normalizer": map[string]interface{}{
				"lowercase_name": map[string]interface{}{
					"type":   "custom",
					"filter": []string{"lowercase", "trim"},
				},
			},
		},
	},
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"status": map[string]interface{}{"type": "keyword"},
			"skills": map[string]interface{}{
				"type": "text",
				"fields": map[string]interface{}{
					"keyword": map[string]interface{}{
						"type":       "keyword",
						"normalizer": "lowercase_name",
					},
				},
			},
		},
	},
}

// EnsureIndex creates the freelancer index with its mapping when it does not
// exist yet. An existing index is left untouched.
func (s *CandidateSearch) EnsureIndex(ctx context.Context) error {
	exists, err := esapi.IndicesExistsRequest{Index: []string{s.index}}.Do(ctx, s.client)
	if err != nil {
		return errors.NewCandidateSearchFailedError(err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(freelancerMapping)
	if err != nil {
		return errors.NewCandidateSearchFailedError(err)
	}
	res, err := esapi.IndicesCreateRequest{Index: s.index, Body: bytes.NewReader(body)}.Do(ctx, s.client)
	if err != nil {
		return errors.NewCandidateSearchFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.NewCandidateSearchFailedError(fmt.Errorf("create index %s: %s", s.index, res.Status()))
	}
	return nil
}

// buildSkillQuery matches a freelancer when any listed skill would match a
// project skill in the engine: equal names, or for names of two or more
// characters, one containing the other. The analyzed match clause only adds
// relevance.
func buildSkillQuery(req matching.ProjectRequirements) map[string]interface{} {
	tiers := []struct {
		skills []string
		boost  float64
	}{
		{req.RequiredSkills, 3},
		{req.PreferredSkills, 2},
		{req.NiceToHaveSkills, 1},
	}

	should := []interface{}{}
	for _, tier := range tiers {
		for _, skill := range tier.skills {
			if clause := skillClause(skill, tier.boost); clause != nil {
				should = append(should, clause)
			}
		}
	}
	if len(should) == 0 {
		return nil
	}

	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               should,
			"minimum_should_match": 1,
			"filter": []interface{}{
				map[string]interface{}{"term": map[string]interface{}{"status": "active"}},
			},
		},
	}
}

func skillClause(skill string, boost float64) map[string]interface{} {
	name := strings.ToLower(strings.TrimSpace(skill))
	if name == "" {
		return nil
	}

	var should []interface{}
	if utf8.RuneCountInString(name) < 2 {
		should = []interface{}{
			map[string]interface{}{
				"term": map[string]interface{}{
					"skills.keyword": map[string]interface{}{"value": name, "case_insensitive": true},
				},
			},
		}
	} else {
		should = []interface{}{
			map[string]interface{}{
				"match": map[string]interface{}{
					"skills": map[string]interface{}{"query": skill},
				},
			},
			// listed skill contains the project skill
			map[string]interface{}{
				"wildcard": map[string]interface{}{
					"skills.keyword": map[string]interface{}{
						"value":            "*" + escapeWildcard(name) + "*",
						"case_insensitive": true,
					},
				},
			},
			// project skill contains the listed skill
			map[string]interface{}{
				"terms": map[string]interface{}{"skills.keyword": containedNames(name)},
			},
		}
	}

	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should": should,
			"boost":  boost,
		},
	}
}

// containedNames lists every substring of name that is at least two
// characters long, name included.
func containedNames(name string) []string {
	runes := []rune(name)
	seen := map[string]struct{}{}
	out := []string{}
	for i := 0; i < len(runes); i++ {
		for j := i + 2; j <= len(runes); j++ {
			sub := string(runes[i:j])
			if strings.TrimSpace(sub) != sub {
				continue
			}
			if _, ok := seen[sub]; ok {
				continue
			}
			seen[sub] = struct{}{}
			out = append(out, sub)
		}
	}
	return out
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}
