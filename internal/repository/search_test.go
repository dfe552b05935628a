package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	commonerrors "talent-match-workers/internal/common/errors"
	"talent-match-workers/internal/matching"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchServer(t *testing.T, status int, body string, capture *map[string]interface{}) *CandidateSearch {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, capture)
		}
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewCandidateSearch(client, "freelancers", time.Second)
}

func TestCandidateSearch_SearchBySkills(t *testing.T) {
	var sent map[string]interface{}
	search := newSearchServer(t, http.StatusOK,
		`{"hits":{"total":{"value":2},"hits":[{"_id":"f-7","_score":4.1},{"_id":"f-2","_score":1.3}]}}`, &sent)

	ids, err := search.SearchBySkills(context.Background(), matching.ProjectRequirements{
		RequiredSkills:  []string{"React"},
		PreferredSkills: []string{"GraphQL"},
	}, 50)

	require.NoError(t, err)
	assert.Equal(t, []string{"f-7", "f-2"}, ids)

	query := sent["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Len(t, query["should"], 2)
	assert.Equal(t, float64(1), query["minimum_should_match"])
}

func TestCandidateSearch_NoSkills(t *testing.T) {
	search := newSearchServer(t, http.StatusInternalServerError, `{}`, nil)

	ids, err := search.SearchBySkills(context.Background(), matching.ProjectRequirements{}, 50)
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestCandidateSearch_ErrorStatus(t *testing.T) {
	search := newSearchServer(t, http.StatusServiceUnavailable, `{"error":"unavailable"}`, nil)

	_, err := search.SearchBySkills(context.Background(), matching.ProjectRequirements{RequiredSkills: []string{"Go"}}, 10)
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeCandidateSearchFailed, errorCode(t, err))
}

func skillClauses(t *testing.T, skill string) []interface{} {
	t.Helper()
	query := buildSkillQuery(matching.ProjectRequirements{RequiredSkills: []string{skill}})
	require.NotNil(t, query)
	should := query["bool"].(map[string]interface{})["should"].([]interface{})
	require.Len(t, should, 1)
	return should[0].(map[string]interface{})["bool"].(map[string]interface{})["should"].([]interface{})
}

// prefilterAdmits evaluates a skill clause the way elasticsearch would against
// a lowercased skills.keyword value.
func prefilterAdmits(clauses []interface{}, listed string) bool {
	listed = strings.ToLower(strings.TrimSpace(listed))
	for _, c := range clauses {
		clause := c.(map[string]interface{})
		if w, ok := clause["wildcard"]; ok {
			pattern := w.(map[string]interface{})["skills.keyword"].(map[string]interface{})["value"].(string)
			if strings.Contains(listed, strings.Trim(pattern, "*")) {
				return true
			}
		}
		if terms, ok := clause["terms"]; ok {
			for _, v := range terms.(map[string]interface{})["skills.keyword"].([]string) {
				if v == listed {
					return true
				}
			}
		}
		if term, ok := clause["term"]; ok {
			if term.(map[string]interface{})["skills.keyword"].(map[string]interface{})["value"] == listed {
				return true
			}
		}
	}
	return false
}

func TestBuildSkillQuery_CoversEngineContainment(t *testing.T) {
	tests := []struct {
		project string
		listed  string
	}{
		{"React", "React.js"},
		{"React", "react"},
		{"Node.js", "Node"},
		{"PostgreSQL", "Postgres"},
		{"React Native", "React"},
		{"Go", "Golang"},
		{"AWS Lambda", "lambda"},
		{"C", "C"},
		{"C", "C++"},
		{"Rust", "Go"},
		{"Java", "JavaScript"},
	}
	for _, tt := range tests {
		t.Run(tt.project+"/"+tt.listed, func(t *testing.T) {
			req := matching.ProjectRequirements{RequiredSkills: []string{tt.project}}
			engineMatches := matching.MatchSkills([]string{tt.listed}, req, matching.DefaultPolicy()).RequiredMatched > 0

			admitted := prefilterAdmits(skillClauses(t, tt.project), tt.listed)
			if engineMatches {
				assert.True(t, admitted, "prefilter drops a freelancer the engine would match")
			}
		})
	}
}

func TestBuildSkillQuery_ClauseShapes(t *testing.T) {
	clauses := skillClauses(t, "Node.js")
	require.Len(t, clauses, 3)

	wildcard := clauses[1].(map[string]interface{})["wildcard"].(map[string]interface{})["skills.keyword"].(map[string]interface{})
	assert.Equal(t, "*node.js*", wildcard["value"])
	assert.Equal(t, true, wildcard["case_insensitive"])

	terms := clauses[2].(map[string]interface{})["terms"].(map[string]interface{})["skills.keyword"].([]string)
	assert.Contains(t, terms, "node")
	assert.Contains(t, terms, "js")
	assert.Contains(t, terms, "node.js")
	assert.NotContains(t, terms, "n")

	single := skillClauses(t, "C")
	require.Len(t, single, 1)
	assert.Contains(t, single[0], "term")

	assert.Equal(t, `c++\*\?`, escapeWildcard("c++*?"))
}

func TestCandidateSearch_EnsureIndex(t *testing.T) {
	tests := []struct {
		name       string
		headStatus int
		wantCreate bool
	}{
		{"creates missing index", http.StatusNotFound, true},
		{"keeps existing index", http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created map[string]interface{}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Elastic-Product", "Elasticsearch")
				w.Header().Set("Content-Type", "application/json")
				switch r.Method {
				case http.MethodHead:
					w.WriteHeader(tt.headStatus)
				case http.MethodPut:
					raw, _ := io.ReadAll(r.Body)
					_ = json.Unmarshal(raw, &created)
					_, _ = w.Write([]byte(`{"acknowledged":true}`))
				default:
					w.WriteHeader(http.StatusMethodNotAllowed)
				}
			}))
			t.Cleanup(srv.Close)
			client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
			require.NoError(t, err)

			err = NewCandidateSearch(client, "freelancers", time.Second).EnsureIndex(context.Background())
			require.NoError(t, err)

			if !tt.wantCreate {
				assert.Nil(t, created)
				return
			}
			require.NotNil(t, created)
			props := created["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
			keyword := props["skills"].(map[string]interface{})["fields"].(map[string]interface{})["keyword"].(map[string]interface{})
			assert.Equal(t, "lowercase_name", keyword["normalizer"])
		})
	}
}
