package sampler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodrush/tracking/internal/pkg/logger"
	"github.com/foodrush/tracking/internal/pkg/models"
)

type fakeProvider struct {
	raw     chan models.LocationFix
	authErr error
	subErr  error
}

func (f *fakeProvider) Authorize(ctx context.Context) error {
	return f.authErr
}

func (f *fakeProvider) Subscribe(ctx context.Context) (<-chan models.LocationFix, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.raw, nil
}

func testConfig() Config {
	return Config{
		MinInterval:     3 * time.Second,
		MinDisplacement: 5,
	}
}

// fix builds a fix at an offset (in meters, roughly) north of a base point.
func fix(northMeters float64, ts int64) models.LocationFix {
	// One degree of latitude is ~111.32 km.
	return models.LocationFix{
		Point: models.GeoPoint{
			Latitude:  36.8065 + northMeters/111320.0,
			Longitude: 10.1815,
		},
		CapturedAt: ts,
	}
}

// collect feeds fixes through a sampler and returns everything emitted.
func collect(t *testing.T, fixes ...models.LocationFix) []models.LocationFix {
	provider := &fakeProvider{raw: make(chan models.LocationFix)}
	s := New(provider, testConfig(), logger.GetGlobalLogger())

	out, err := s.Start(context.Background())
	require.NoError(t, err)

	var emitted []models.LocationFix
	done := make(chan struct{})
	go func() {
		defer close(done)
		for f := range out {
			emitted = append(emitted, f)
		}
	}()

	for _, f := range fixes {
		provider.raw <- f
	}
	close(provider.raw)
	<-done

	return emitted
}

func TestFirstFixAlwaysEmitted(t *testing.T) {
	emitted := collect(t, fix(0, 1000))
	require.Len(t, emitted, 1)
	assert.Equal(t, int64(1000), emitted[0].CapturedAt)
}

func TestDisplacementThreshold(t *testing.T) {
	emitted := collect(t,
		fix(0, 1000),
		fix(2, 5000),  // moved 2 m, below threshold
		fix(20, 9000), // moved ~18 m from the last emitted fix
	)
	require.Len(t, emitted, 2)
	assert.Equal(t, int64(1000), emitted[0].CapturedAt)
	assert.Equal(t, int64(9000), emitted[1].CapturedAt)
}

func TestIntervalThreshold(t *testing.T) {
	emitted := collect(t,
		fix(0, 1000),
		fix(50, 2000),  // only 1 s after the last emission
		fix(100, 5000), // 4 s after
	)
	require.Len(t, emitted, 2)
	assert.Equal(t, int64(1000), emitted[0].CapturedAt)
	assert.Equal(t, int64(5000), emitted[1].CapturedAt)
}

func TestStaleAndInvalidFixesDropped(t *testing.T) {
	stale := fix(100, 500)
	zero := models.LocationFix{CapturedAt: 9000}
	outOfRange := models.LocationFix{
		Point:      models.GeoPoint{Latitude: 95, Longitude: 10},
		CapturedAt: 9500,
	}

	emitted := collect(t, fix(0, 1000), stale, zero, outOfRange)
	require.Len(t, emitted, 1)
	assert.Equal(t, int64(1000), emitted[0].CapturedAt)
}

func TestLatestWinsWhenConsumerLags(t *testing.T) {
	provider := &fakeProvider{raw: make(chan models.LocationFix)}
	s := New(provider, testConfig(), logger.GetGlobalLogger())

	out, err := s.Start(context.Background())
	require.NoError(t, err)

	provider.raw <- fix(0, 1000)
	provider.raw <- fix(100, 5000)
	close(provider.raw)

	var emitted []models.LocationFix
	for f := range out {
		emitted = append(emitted, f)
	}

	// The consumer never read the first fix, so only the latest survives.
	require.NotEmpty(t, emitted)
	assert.Equal(t, int64(5000), emitted[len(emitted)-1].CapturedAt)
	assert.LessOrEqual(t, len(emitted), 2)
}

func TestPermissionDenied(t *testing.T) {
	provider := &fakeProvider{authErr: ErrPermissionDenied}
	s := New(provider, testConfig(), logger.GetGlobalLogger())

	out, err := s.Start(context.Background())
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.ErrorIs(t, s.Err(), ErrPermissionDenied)
}

func TestProviderUnavailableAtSubscribe(t *testing.T) {
	provider := &fakeProvider{subErr: errors.New("no gps")}
	s := New(provider, testConfig(), logger.GetGlobalLogger())

	out, err := s.Start(context.Background())
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestProviderDiesMidStream(t *testing.T) {
	provider := &fakeProvider{raw: make(chan models.LocationFix)}
	s := New(provider, testConfig(), logger.GetGlobalLogger())

	out, err := s.Start(context.Background())
	require.NoError(t, err)

	provider.raw <- fix(0, 1000)
	close(provider.raw)

	for range out {
	}
	assert.ErrorIs(t, s.Err(), ErrProviderUnavailable)
}

func TestStopIsIdempotent(t *testing.T) {
	provider := &fakeProvider{raw: make(chan models.LocationFix)}
	s := New(provider, testConfig(), logger.GetGlobalLogger())

	out, err := s.Start(context.Background())
	require.NoError(t, err)

	s.Stop()
	s.Stop()

	_, open := <-out
	assert.False(t, open)
	assert.NoError(t, s.Err())
}

func TestStopBeforeStart(t *testing.T) {
	s := New(&fakeProvider{}, testConfig(), logger.GetGlobalLogger())
	assert.NotPanics(t, s.Stop)
}

func TestStartTwice(t *testing.T) {
	provider := &fakeProvider{raw: make(chan models.LocationFix)}
	s := New(provider, testConfig(), logger.GetGlobalLogger())

	_, err := s.Start(context.Background())
	require.NoError(t, err)

	_, err = s.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	s.Stop()
}

func TestSimProviderReplaysWaypoints(t *testing.T) {
	provider := &SimProvider{
		Waypoints: []models.GeoPoint{
			{Latitude: 36.8065, Longitude: 10.1815},
			{Latitude: 36.8070, Longitude: 10.1816},
		},
		Interval: 5 * time.Millisecond,
		Accuracy: 10,
	}
	require.NoError(t, provider.Authorize(context.Background()))

	raw, err := provider.Subscribe(context.Background())
	require.NoError(t, err)

	var fixes []models.LocationFix
	for f := range raw {
		fixes = append(fixes, f)
	}
	require.Len(t, fixes, 2)
	assert.InDelta(t, 36.8065, fixes[0].Point.Latitude, 1e-9)
	assert.InDelta(t, 10, fixes[0].Accuracy, 1e-9)
	assert.NotZero(t, fixes[0].CapturedAt)
}
