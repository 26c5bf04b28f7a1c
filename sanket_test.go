package sanket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/sanket/ai"
	"github.com/poiesic/sanket/ai/mock"
	"github.com/poiesic/sanket/answer"
	"github.com/poiesic/sanket/config"
	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/ingestion"
)

// bulletinServer serves a CSV bulletin whose content can be swapped.
type bulletinServer struct {
	server *httptest.Server
	body   atomic.Pointer[string]
}

func newBulletinServer(t *testing.T, body string) *bulletinServer {
	t.Helper()
	b := &bulletinServer{}
	b.body.Store(&body)
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, *b.body.Load())
	}))
	t.Cleanup(b.server.Close)
	return b
}

func bulletin(rows int, tag string) string {
	var sb strings.Builder
	sb.WriteString("Date,State,District,Mine,Cause,Killed,Description\n")
	for i := range rows {
		fmt.Fprintf(&sb, "12-03-2024,Jharkhand,Dhanbad,Colliery %d,Fall of Roof,2,roof collapse in district gallery %d %s\n", i, i, tag)
	}
	return sb.String()
}

func testConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Source.DocumentURL = url + "/writereaddata/sanket.csv"
	cfg.AI.Provider = ai.ProviderMock
	cfg.Storage.InMemory = true
	cfg.Storage.Path = ""
	cfg.Source.RateLimit = 100
	cfg.Ingestion.RetireGrace = -1
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config, opts ...Option) *Service {
	t.Helper()
	svc, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestService_UpdateAndQuery(t *testing.T) {
	srv := newBulletinServer(t, bulletin(12, "v1"))
	svc := newTestService(t, testConfig(srv.server.URL))
	ctx := context.Background()

	_, err := svc.Query(ctx, "roof collapse", 0, "")
	assert.ErrorIs(t, err, core.ErrNoActiveNamespace)

	report, err := svc.Update(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeActivated, report.Outcome)
	assert.Equal(t, 12, report.Records)
	assert.Equal(t, 3, report.Chunks)

	resp, err := svc.Query(ctx, "roof collapse in Dhanbad", 2, "")
	require.NoError(t, err)
	assert.True(t, resp.Grounded)
	assert.LessOrEqual(t, len(resp.Evidence.Hits), 2)
	assert.NotEmpty(t, resp.Evidence.Hits)
	assert.Equal(t, report.Namespace, resp.Evidence.Namespace)
	for i := 1; i < len(resp.Evidence.Hits); i++ {
		assert.GreaterOrEqual(t, resp.Evidence.Hits[i-1].Score, resp.Evidence.Hits[i].Score)
	}

	status, err := svc.IndexStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.Namespace, status.ActiveNamespace)
	assert.Equal(t, core.StateIdle, status.State)
	assert.False(t, status.LastUpdateTime.IsZero())

	history, err := svc.VersionHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, report.Version, history[0].Version)
}

func TestService_UnchangedDocumentIsNotReindexed(t *testing.T) {
	srv := newBulletinServer(t, bulletin(6, "v1"))
	svc := newTestService(t, testConfig(srv.server.URL))
	ctx := context.Background()

	first, err := svc.Update(ctx, false)
	require.NoError(t, err)

	second, err := svc.Update(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, ingestion.OutcomeUnchanged, second.Outcome)

	forced, err := svc.Update(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeActivated, forced.Outcome)
	assert.NotEqual(t, first.Namespace, forced.Namespace)

	body := bulletin(7, "v2")
	srv.body.Store(&body)
	third, err := svc.Update(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeActivated, third.Outcome)
	assert.Equal(t, forced.Namespace, third.Previous)
}

func TestService_EmptyRetrievalSkipsGeneration(t *testing.T) {
	srv := newBulletinServer(t, bulletin(5, "v1"))
	generator := mock.NewMockGenerator()
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), generator)

	cfg := testConfig(srv.server.URL)
	cfg.Search.MinScore = 0.99
	svc := newTestService(t, cfg, WithProvider(provider))
	ctx := context.Background()

	_, err := svc.Update(ctx, false)
	require.NoError(t, err)

	resp, err := svc.Query(ctx, "helicopter", 0, "")
	require.NoError(t, err)
	assert.Equal(t, answer.NoDataAnswer, resp.Answer)
	assert.False(t, resp.Grounded)
	assert.Equal(t, 0, generator.CallCount())
}

func TestService_QueryUnknownNamespace(t *testing.T) {
	srv := newBulletinServer(t, bulletin(5, "v1"))
	svc := newTestService(t, testConfig(srv.server.URL))

	_, err := svc.Update(context.Background(), false)
	require.NoError(t, err)

	_, err = svc.Query(context.Background(), "roof", 0, "g999999-missing")
	assert.ErrorIs(t, err, core.ErrNamespaceNotFound)
}

func TestService_StartAndTrigger(t *testing.T) {
	srv := newBulletinServer(t, bulletin(5, "v1"))
	svc := newTestService(t, testConfig(srv.server.URL))

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	require.Eventually(t, func() bool {
		status, err := svc.IndexStatus(context.Background())
		return err == nil && status.ActiveNamespace != ""
	}, 5*time.Second, 10*time.Millisecond)
	svc.TriggerUpdate()
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	_, err := New(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestService_CloseIsIdempotent(t *testing.T) {
	srv := newBulletinServer(t, bulletin(5, "v1"))
	svc, err := New(context.Background(), testConfig(srv.server.URL))
	require.NoError(t, err)
	assert.NoError(t, svc.Close())
	assert.NoError(t, svc.Close())
}
