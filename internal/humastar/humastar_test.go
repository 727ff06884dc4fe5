package humastar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"projectName":"Nordheide","scale":25000,"dpi":150.5,"keepLayers":true}`))
	require.NoError(t, err)

	assert.Equal(t, "Nordheide", s.String("projectName"))
	assert.Equal(t, 25000, s.Int("scale"))
	assert.Equal(t, 150.5, s.Float("dpi"))
	assert.True(t, s.Bool("keepLayers"))
	assert.True(t, s.Has("scale"))
	assert.False(t, s.Has("paper"))
	assert.Empty(t, s.String("scale"))

	var req struct {
		ProjectName string `json:"projectName"`
		Scale       int    `json:"scale"`
	}
	require.NoError(t, s.Decode(&req))
	assert.Equal(t, "Nordheide", req.ProjectName)
	assert.Equal(t, 25000, req.Scale)

	in := SignalsInput{RawBody: []byte("not json")}
	_, err = in.MustParse()
	assert.Error(t, err)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	p := Paginate(items, 2, 2)
	assert.Equal(t, []int{3, 4}, p.Data)
	assert.Equal(t, 5, p.Total)
	assert.Equal(t, []string{
		`</runs?offset=0&limit=2>; rel="first"`,
		`</runs?offset=0&limit=2>; rel="prev"`,
		`</runs?offset=4&limit=2>; rel="next"`,
		`</runs?offset=4&limit=2>; rel="last"`,
	}, p.PaginationLinks("/runs"))

	assert.Empty(t, Paginate(items, 10, 2).Data)
	assert.Len(t, Paginate(items, 0, 0).Data, 5)

	empty := Paginate([]int{}, 0, 0)
	assert.Equal(t, 1, empty.Limit)
	assert.Contains(t, empty.PaginationLinks("/runs"), `</runs?offset=0&limit=1>; rel="last"`)
}

func TestActions(t *testing.T) {
	actions := ActionsFor("42", []ActionDef{
		{Rel: "self", Pattern: "/api/v1/runs/%s", Method: "GET"},
		{Rel: "artifact", Pattern: "/api/v1/runs/%s/artifact", Method: "GET", Title: "Exported map"},
	})
	require.Len(t, actions, 2)
	assert.Equal(t, `</api/v1/runs/42>; rel="self"; method="GET"`, actions[0].LinkHeader())
	assert.Equal(t, `</api/v1/runs/42/artifact>; rel="artifact"; method="GET"; title="Exported map"`, actions[1].LinkHeader())
}

func TestParseLinkHeader(t *testing.T) {
	rel, href := parseLinkHeader(`</api/v1/runs>; rel="collection"`)
	assert.Equal(t, "collection", rel)
	assert.Equal(t, "/api/v1/runs", href)

	rel, _ = parseLinkHeader("garbage")
	assert.Empty(t, rel)
}
