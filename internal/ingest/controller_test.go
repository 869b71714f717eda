package ingest_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-alert-pipeline/internal/domain"
	"github.com/couchcryptid/weather-alert-pipeline/internal/ingest"
	"github.com/couchcryptid/weather-alert-pipeline/internal/observability"
)

// --- mocks ---

type mockSource struct {
	ch chan domain.FileEvent
}

func newMockSource(events ...domain.FileEvent) *mockSource {
	ch := make(chan domain.FileEvent, len(events))
	for _, e := range events {
		ch <- e
	}
	return &mockSource{ch: ch}
}

func (m *mockSource) Events() <-chan domain.FileEvent { return m.ch }

type mockResolver struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockResolver) ResolveDownloadURL(_ context.Context, fileURL string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return fileURL + "?signed", nil
}

func (m *mockResolver) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockDownloader struct {
	body []byte
	err  error
}

func (m *mockDownloader) Download(_ context.Context, _ string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.body, nil
}

type mockPublisher struct {
	mu        sync.Mutex
	published []domain.PublishedAlertSet
	err       error
}

func (m *mockPublisher) PublishAlertSet(_ context.Context, set domain.PublishedAlertSet) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	m.published = append(m.published, set)
	m.mu.Unlock()
	return nil
}

func (m *mockPublisher) sets() []domain.PublishedAlertSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PublishedAlertSet(nil), m.published...)
}

func fixtureXML(t *testing.T) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "domain", "testdata", "report.xml"))
	require.NoError(t, err)
	return raw
}

func runController(t *testing.T, c *ingest.Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Run(ctx))
}

// --- tests ---

func TestController_HappyPath(t *testing.T) {
	source := newMockSource(domain.FileEvent{
		Filename: "knmi_waarschuwingen_202412291245.xml",
		URL:      "https://api.example/files/knmi_waarschuwingen_202412291245.xml/url",
	})
	resolver := &mockResolver{}
	downloader := &mockDownloader{body: fixtureXML(t)}
	publisher := &mockPublisher{}

	c := ingest.New(source, resolver, downloader, publisher,
		slog.Default(), observability.NewMetricsForTesting())
	runController(t, c)

	sets := publisher.sets()
	require.Len(t, sets, 1)
	set := sets[0]
	assert.Equal(t, "knmi_waarschuwingen_202412291245.xml", set.Report)
	assert.False(t, set.PublishedAt.IsZero())

	require.Len(t, set.Alerts["Zuid-Holland"], 1)
	alert := set.Alerts["Zuid-Holland"][0]
	assert.Equal(t, "Windstoten", alert.Phenomenon)
	assert.Equal(t, "Red", alert.Code)
	assert.Equal(t, time.Date(2024, 12, 29, 10, 0, 0, 0, time.UTC), alert.StartTime)
	assert.Equal(t, time.Date(2024, 12, 29, 14, 0, 0, 0, time.UTC), alert.EndTime)
	assert.Empty(t, set.Alerts["Noord-Holland"])

	assert.NoError(t, c.CheckReadiness(context.Background()))
}

func TestController_SkipsNonReportFiles(t *testing.T) {
	source := newMockSource(domain.FileEvent{
		Filename: "checksums.txt",
		URL:      "https://api.example/files/checksums.txt/url",
	})
	resolver := &mockResolver{}
	publisher := &mockPublisher{}

	c := ingest.New(source, resolver, &mockDownloader{}, publisher,
		slog.Default(), observability.NewMetricsForTesting())
	runController(t, c)

	assert.Zero(t, resolver.callCount(), "non-report events must not hit the resolver")
	assert.Empty(t, publisher.sets())
}

func TestController_DownloadFailureDropsEvent(t *testing.T) {
	source := newMockSource(
		domain.FileEvent{Filename: "a.xml", URL: "https://api.example/a"},
		domain.FileEvent{Filename: "b.xml", URL: "https://api.example/b"},
	)
	resolver := &mockResolver{err: domain.ErrDownloadFailed}
	publisher := &mockPublisher{}

	c := ingest.New(source, resolver, &mockDownloader{}, publisher,
		slog.Default(), observability.NewMetricsForTesting())
	runController(t, c)

	// Both events attempted, neither fatal to the loop, nothing published.
	assert.Equal(t, 2, resolver.callCount())
	assert.Empty(t, publisher.sets())
	assert.Error(t, c.CheckReadiness(context.Background()))
}

func TestController_MalformedReportPublishesNothing(t *testing.T) {
	source := newMockSource(domain.FileEvent{Filename: "bad.xml", URL: "https://api.example/bad"})
	downloader := &mockDownloader{body: []byte("<report><data></data></report>")}
	publisher := &mockPublisher{}

	c := ingest.New(source, &mockResolver{}, downloader, publisher,
		slog.Default(), observability.NewMetricsForTesting())
	runController(t, c)

	assert.Empty(t, publisher.sets())
}

func TestController_PublishFailureIsContained(t *testing.T) {
	source := newMockSource(domain.FileEvent{Filename: "a.xml", URL: "https://api.example/a"})
	downloader := &mockDownloader{body: fixtureXML(t)}
	publisher := &mockPublisher{err: errors.New("broker down")}

	c := ingest.New(source, &mockResolver{}, downloader, publisher,
		slog.Default(), observability.NewMetricsForTesting())
	runController(t, c)

	assert.Error(t, c.CheckReadiness(context.Background()),
		"a cycle that failed to publish must not mark the controller ready")
}

func TestController_StopsOnContextCancellation(t *testing.T) {
	c := ingest.New(newMockSource(), &mockResolver{}, &mockDownloader{}, &mockPublisher{},
		slog.Default(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, c.Run(ctx))
}
