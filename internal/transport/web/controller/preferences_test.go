package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jbeshir/problem-rankings/internal/command"
	cmdmocks "github.com/jbeshir/problem-rankings/internal/command/mocks"
	"github.com/jbeshir/problem-rankings/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPreferencesGet_ServeHTTP(t *testing.T) {
	cases := []struct {
		name       string
		userID     string
		commandErr error
		wantStatus int
	}{
		{name: "preferences", userID: "user456", wantStatus: http.StatusOK},
		{name: "no_user_id_unauthorized", wantStatus: http.StatusUnauthorized},
		{name: "command_error", userID: "user456", commandErr: errors.New("database error"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			getCmd := cmdmocks.NewMockCommand[string, domain.UserPreferences](t)
			prefs := domain.DefaultUserPreferences(tc.userID)
			if tc.userID != "" {
				getCmd.EXPECT().Execute(mock.Anything, tc.userID).Return(prefs, tc.commandErr)
			}

			req := httptest.NewRequest(http.MethodGet, "/recommendations/personal/preferences", nil)
			if tc.userID != "" {
				req = testContextWithUserID(tc.userID)(req)
			} else {
				req = testContext()(req)
			}
			rec := httptest.NewRecorder()

			PreferencesGet{Command: getCmd}.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus != http.StatusOK {
				return
			}

			var response Response[domain.UserPreferences]
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
			assert.True(t, response.Success)
			assert.Equal(t, prefs, response.Data)
		})
	}
}

func TestPreferencesUpdate_ServeHTTP(t *testing.T) {
	diversity := 0.6
	threshold := 3

	cases := []struct {
		name        string
		userID      string
		body        string
		expectedReq *command.UpdatePreferencesRequest
		commandErr  error
		wantStatus  int
	}{
		{
			name:   "partial_update",
			userID: "user456",
			body:   `{"diversity_preference": 0.6, "min_vote_threshold": 3, "category_weights": {"climate": 0.9}}`,
			expectedReq: &command.UpdatePreferencesRequest{
				UserID:              "user456",
				CategoryWeights:     map[string]float64{"climate": 0.9},
				DiversityPreference: &diversity,
				MinVoteThreshold:    &threshold,
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "clear_excluded_categories",
			userID: "user456",
			body:   `{"exclude_categories": []}`,
			expectedReq: &command.UpdatePreferencesRequest{
				UserID:            "user456",
				ExcludeCategories: []string{},
			},
			wantStatus: http.StatusOK,
		},
		{
			name:        "validation_error",
			userID:      "user456",
			body:        `{}`,
			expectedReq: &command.UpdatePreferencesRequest{UserID: "user456"},
			commandErr:  fmt.Errorf("%w: no preference fields given", command.ErrInvalidPreferences),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:       "malformed_body",
			userID:     "user456",
			body:       `not json`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no_user_id_unauthorized",
			body:       `{"trending_preference": 1}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:        "command_error",
			userID:      "user456",
			body:        `{"exclude_categories": ["health"]}`,
			expectedReq: &command.UpdatePreferencesRequest{UserID: "user456", ExcludeCategories: []string{"health"}},
			commandErr:  errors.New("database error"),
			wantStatus:  http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			updateCmd := cmdmocks.NewMockCommand[command.UpdatePreferencesRequest, domain.UserPreferences](t)
			updated := domain.DefaultUserPreferences(tc.userID)
			if tc.expectedReq != nil {
				updateCmd.EXPECT().Execute(mock.Anything, *tc.expectedReq).Return(updated, tc.commandErr)
			}

			req := httptest.NewRequest(http.MethodPost, "/recommendations/personal", strings.NewReader(tc.body))
			if tc.userID != "" {
				req = testContextWithUserID(tc.userID)(req)
			} else {
				req = testContext()(req)
			}
			rec := httptest.NewRecorder()

			PreferencesUpdate{Command: updateCmd}.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus != http.StatusOK {
				var response ErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
				assert.NotEmpty(t, response.Error)
				return
			}

			var response Response[domain.UserPreferences]
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
			assert.Equal(t, updated, response.Data)
		})
	}
}
