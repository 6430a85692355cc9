package postgrest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/repository"
)

func TestParams(t *testing.T) {
	q := repository.Query{}.
		Where("shed", "Shed A").
		Since("date", models.MustDate("2024-03-01")).
		Until("date", models.MustDate("2024-03-31")).
		OrderBy("date", true).
		Take(3)

	params := Params(q)
	assert.Equal(t, "*", params.Get("select"))
	assert.Equal(t, "eq.Shed A", params.Get("shed"))
	assert.Equal(t, []string{"gte.2024-03-01", "lte.2024-03-31"}, params["date"])
	assert.Equal(t, "date.desc", params.Get("order"))
	assert.Equal(t, "3", params.Get("limit"))
}

func TestBackendRoundTrip(t *testing.T) {
	var lastAuth, lastPrefer string
	var inserted map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastAuth = r.Header.Get("Authorization")
		lastPrefer = r.Header.Get("Prefer")
		assert.Equal(t, "anon", r.Header.Get("apikey"))

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/rest/v1/mortality":
			assert.Equal(t, "eq.Shed A", r.URL.Query().Get("shed"))
			_, _ = w.Write([]byte(`[{"id":"m1","date":"2024-03-02","shed":"Shed A","count":3,"cause":"heat"}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/rest/v1/mortality":
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &inserted))
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPatch && r.URL.Query().Get("id") == "eq.m1":
			_, _ = w.Write([]byte(`[{"id":"m1"}]`))
		case r.Method == http.MethodPatch:
			_, _ = w.Write([]byte(`[]`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"new row violates row-level security policy","code":"42501"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	b := New(srv.URL, "anon", nil)
	table := repository.NewTable[models.Mortality](b, models.TableMortality)
	ctx := WithAccessToken(context.Background(), "user-jwt")

	rows, err := table.List(ctx, repository.Query{}.Where("shed", "Shed A"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-03-02", rows[0].Date.String())
	assert.Equal(t, 3, rows[0].Count)
	assert.Equal(t, "Bearer user-jwt", lastAuth)

	require.NoError(t, table.Insert(context.Background(), &models.Mortality{ID: "m2", Date: models.MustDate("2024-03-04"), Shed: "Shed B", Count: 1}))
	assert.Equal(t, "Bearer anon", lastAuth)
	assert.Equal(t, "return=minimal", lastPrefer)
	assert.Equal(t, "2024-03-04", inserted["date"])

	require.NoError(t, table.Update(ctx, "m1", map[string]any{"count": 4}))
	assert.ErrorIs(t, table.Update(ctx, "nope", map[string]any{"count": 4}), repository.ErrNotFound)

	err = table.Delete(ctx, "m1")
	require.Error(t, err)
	assert.Equal(t, "new row violates row-level security policy", repository.Message(err))
}
