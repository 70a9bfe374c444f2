package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/2beens/fitjournal/internal/recipes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestRecipes() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()
	token := s.doLogin(ctx, t)

	// mutations without a token bounce on the auth middleware
	status, _ := s.doReq(ctx, t, "POST", "/recipes", "", map[string]string{
		"title": "Sneaky Recipe",
	})
	require.Equal(t, http.StatusUnauthorized, status)

	status, respBytes := s.doReq(ctx, t, "GET", "/recipes?page=0", token, nil)
	require.Equal(t, http.StatusOK, status)

	var listResp recipes.ListResponse
	require.NoError(t, json.Unmarshal(respBytes, &listResp))
	assert.Empty(t, listResp.Recipes)
	assert.False(t, listResp.HasMore)

	status, respBytes = s.doReq(ctx, t, "POST", "/recipes", token, map[string]string{
		"title":          "Shakshuka",
		"description":    "eggs poached in tomato sauce",
		"socialMediaUrl": "https://instagram.com/p/shakshuka",
	})
	require.Equal(t, http.StatusCreated, status)

	var added recipes.Recipe
	require.NoError(t, json.Unmarshal(respBytes, &added))
	require.NotEmpty(t, added.ID)
	assert.Equal(t, "Shakshuka", added.Title)

	status, respBytes = s.doReq(ctx, t, "GET", fmt.Sprintf("/recipes/%s", added.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	var fetched recipes.Recipe
	require.NoError(t, json.Unmarshal(respBytes, &fetched))
	assert.Equal(t, added.ID, fetched.ID)
	require.NotNil(t, fetched.SocialMediaURL)
	assert.Equal(t, "https://instagram.com/p/shakshuka", *fetched.SocialMediaURL)

	status, _ = s.doReq(ctx, t, "PUT", "/recipes", token, map[string]string{
		"id":          added.ID,
		"title":       "Shakshuka Deluxe",
		"description": "eggs poached in tomato sauce, with feta",
	})
	require.Equal(t, http.StatusOK, status)

	// the list view cache was bumped by the mutations above
	status, respBytes = s.doReq(ctx, t, "GET", "/recipes?page=0&query=deluxe", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(respBytes, &listResp))
	require.Len(t, listResp.Recipes, 1)
	assert.Equal(t, "Shakshuka Deluxe", listResp.Recipes[0].Title)

	status, _ = s.doReq(ctx, t, "DELETE", fmt.Sprintf("/recipes/%s", added.ID), token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.doReq(ctx, t, "GET", fmt.Sprintf("/recipes/%s", added.ID), token, nil)
	require.Equal(t, http.StatusNotFound, status)
}
