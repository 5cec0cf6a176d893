package status

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/prappser/gallery_server/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type stubCounter map[string]map[string]int

func (s stubCounter) Count(state string) (map[string]int, error) {
	counts, ok := s[state]
	if !ok {
		return nil, apperr.NotFound("state directory %s does not exist", state)
	}
	return counts, nil
}

type stubClients struct{}

func (stubClients) GetStats() (int, int) { return 2, 3 }

func TestStatusEndpoints_Status_ShouldReportTotalsPerState(t *testing.T) {
	// given
	counter := stubCounter{
		"uploaded": {"alice": 2, "bob": 1, "all": 3},
		"verified": {"alice": 1, "all": 1},
	}
	endpoints := NewEndpoints("1.2.3", counter, stubClients{})
	ctx := &fasthttp.RequestCtx{}

	// when
	endpoints.Status(ctx)

	// then
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var response StatusResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
	assert.Equal(t, "1.2.3", response.Version)
	assert.Equal(t, map[string]int{"uploaded": 3, "verified": 1, "deleted": 0}, response.Assets)
	assert.Equal(t, 2, response.Clients)
	assert.Equal(t, 3, response.Subscriptions)
}
