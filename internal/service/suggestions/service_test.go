package suggestions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/service/dashboard"
	"github.com/mamadbah2/farmops/pkg/clients/anthropic"
)

type fakeClient struct {
	got anthropic.Metrics
	err error
}

func (f *fakeClient) Suggest(_ context.Context, m anthropic.Metrics) (string, error) {
	f.got = m
	if f.err != nil {
		return "", f.err
	}
	return "- Check ventilation in Shed B.", nil
}

type fakeDashboard struct{ view dashboard.View }

func (f fakeDashboard) Manager(context.Context) dashboard.View { return f.view }

type fakeArchive struct {
	saved []models.Suggestion
}

func (f *fakeArchive) SaveSuggestion(_ context.Context, s models.Suggestion) error {
	f.saved = append([]models.Suggestion{s}, f.saved...)
	return nil
}

func (f *fakeArchive) RecentSuggestions(context.Context, int64) ([]models.Suggestion, error) {
	return f.saved, nil
}

var manager = auth.Identity{UserID: "mgr", FullName: "Mariama Bah", Role: models.RoleManager}

func availableView() dashboard.View {
	v := dashboard.View{Available: true, ActiveBirds: 970}
	v.EggProduction.Raw = 82.5
	v.FeedConsumption.Raw = 12
	v.MortalityRate.Raw = 0.4
	return v
}

func TestGenerateFromDashboard(t *testing.T) {
	client := &fakeClient{}
	archive := &fakeArchive{}
	s := NewService(client, fakeDashboard{view: availableView()}, archive, nil)

	got, err := s.Generate(context.Background(), manager, nil)
	require.NoError(t, err)
	assert.Equal(t, "- Check ventilation in Shed B.", got.Text)
	assert.Equal(t, "Mariama Bah", got.RequestedBy)
	assert.Equal(t, 970, client.got.BirdCount)
	assert.Equal(t, 82.5, client.got.ProductionRate)

	recent, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, got.ID, recent[0].ID)
}

func TestGenerateWithExplicitMetrics(t *testing.T) {
	client := &fakeClient{}
	s := NewService(client, fakeDashboard{view: dashboard.Unavailable()}, nil, nil)

	_, err := s.Generate(context.Background(), manager, &anthropic.Metrics{BirdCount: 500, ProductionRate: 70})
	require.NoError(t, err)
	assert.Equal(t, 500, client.got.BirdCount)
}

func TestGenerateErrors(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil).Generate(context.Background(), manager, nil)
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = NewService(&fakeClient{}, fakeDashboard{view: dashboard.Unavailable()}, nil, nil).Generate(context.Background(), manager, nil)
	assert.ErrorIs(t, err, ErrMetricsUnavailable)

	upstream := errors.New("overloaded")
	_, err = NewService(&fakeClient{err: upstream}, fakeDashboard{view: availableView()}, nil, nil).Generate(context.Background(), manager, nil)
	assert.ErrorIs(t, err, upstream)
}

func TestRecentWithoutArchive(t *testing.T) {
	out, err := NewService(&fakeClient{}, nil, nil, nil).Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, out)
}
