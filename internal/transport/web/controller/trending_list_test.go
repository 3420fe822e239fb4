package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jbeshir/problem-rankings/internal/command"
	cmdmocks "github.com/jbeshir/problem-rankings/internal/command/mocks"
	"github.com/jbeshir/problem-rankings/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type trendingListEnvelope struct {
	Success  bool                      `json:"success"`
	Data     []TrendingProblemResponse `json:"data"`
	Metadata TrendingListMetadata      `json:"metadata"`
}

func TestTrendingList_ServeHTTP(t *testing.T) {
	hot := command.TrendingProblem{
		Problem: domain.Problem{ID: "p1", Title: "Flood sensors", CategoryID: "climate", VoteCount: 20, CreatedAt: testTime},
		Record:  domain.TrendingRecord{ProblemID: "p1", TrendingScore: 87.5, VoteVelocity: 4.2, CalculatedAt: testTime},
	}

	cases := []struct {
		name          string
		query         string
		expectedReq   *command.ListTrendingRequest
		result        command.ListTrendingResult
		commandErr    error
		wantStatus    int
		wantCacheCtrl string
		wantIDs       []string
		wantFromCache bool
	}{
		{
			name:          "defaults_from_cache",
			query:         "",
			expectedReq:   &command.ListTrendingRequest{},
			result:        command.ListTrendingResult{Problems: []command.TrendingProblem{hot}, FromCache: true},
			wantStatus:    http.StatusOK,
			wantCacheCtrl: "max-age=300",
			wantIDs:       []string{"p1"},
			wantFromCache: true,
		},
		{
			name:          "limit_category_refresh",
			query:         "?limit=5&category_id=climate&refresh=true",
			expectedReq:   &command.ListTrendingRequest{Limit: 5, CategoryID: "climate", Refresh: true},
			result:        command.ListTrendingResult{Problems: []command.TrendingProblem{hot}},
			wantStatus:    http.StatusOK,
			wantCacheCtrl: "no-store",
			wantIDs:       []string{"p1"},
		},
		{
			name:          "empty",
			query:         "",
			expectedReq:   &command.ListTrendingRequest{},
			result:        command.ListTrendingResult{},
			wantStatus:    http.StatusOK,
			wantCacheCtrl: "max-age=300",
			wantIDs:       []string{},
		},
		{
			name:       "invalid_limit",
			query:      "?limit=abc",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "limit_too_large",
			query:      "?limit=1000",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid_refresh",
			query:      "?refresh=yes",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "command_error",
			query:       "",
			expectedReq: &command.ListTrendingRequest{},
			commandErr:  errors.New("database error"),
			wantStatus:  http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			listCmd := cmdmocks.NewMockCommand[command.ListTrendingRequest, command.ListTrendingResult](t)
			if tc.expectedReq != nil {
				listCmd.EXPECT().
					Execute(mock.Anything, *tc.expectedReq).
					Return(tc.result, tc.commandErr)
			}

			controller := TrendingList{
				Command:     listCmd,
				CacheMaxAge: 5 * time.Minute,
				Now:         testClock,
			}

			req := testContext()(httptest.NewRequest(http.MethodGet, "/recommendations/trending"+tc.query, nil))
			rec := httptest.NewRecorder()

			controller.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)

			if tc.wantStatus != http.StatusOK {
				var response ErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
				assert.NotEmpty(t, response.Error)
				return
			}

			assert.Equal(t, tc.wantCacheCtrl, rec.Header().Get("Cache-Control"))

			var response trendingListEnvelope
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
			assert.True(t, response.Success)

			ids := []string{}
			for _, p := range response.Data {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tc.wantIDs, ids)
			assert.Equal(t, len(tc.wantIDs), response.Metadata.Count)
			assert.Equal(t, tc.wantFromCache, response.Metadata.FromCache)
			assert.Equal(t, testTime, response.Metadata.GeneratedAt)
		})
	}
}

func TestTrendingList_ServeHTTP_ScoreFactors(t *testing.T) {
	listCmd := cmdmocks.NewMockCommand[command.ListTrendingRequest, command.ListTrendingResult](t)
	listCmd.EXPECT().
		Execute(mock.Anything, command.ListTrendingRequest{}).
		Return(command.ListTrendingResult{Problems: []command.TrendingProblem{{
			Problem: domain.Problem{ID: "p1", Title: "Flood sensors", VoteCount: 20},
			Record: domain.TrendingRecord{
				ProblemID: "p1", TrendingScore: 87.5, VoteVelocity: 4.2, EngagementScore: 0.24,
				TimeDecayFactor: 0.5, CategoryBoost: 1.2, CalculatedAt: testTime,
			},
		}}}, nil)

	req := testContext()(httptest.NewRequest(http.MethodGet, "/recommendations/trending", nil))
	rec := httptest.NewRecorder()
	TrendingList{Command: listCmd, Now: testClock}.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response trendingListEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.Len(t, response.Data, 1)
	assert.Equal(t, TrendingProblemResponse{
		Problem:         domain.Problem{ID: "p1", Title: "Flood sensors", VoteCount: 20},
		TrendingScore:   87.5,
		VoteVelocity:    4.2,
		EngagementScore: 0.24,
		TimeDecayFactor: 0.5,
		CategoryBoost:   1.2,
		CalculatedAt:    testTime,
	}, response.Data[0])
}
