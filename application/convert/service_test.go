package convert

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"testing"
	"time"

	"squeeze-audio/domain/audio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations for testing ---

// mockProber implements audio.DurationProber for testing
type mockProber struct {
	duration float64
	err      error
	block    bool
	calls    int
}

func (m *mockProber) Duration(ctx context.Context, inputPath string) (float64, error) {
	m.calls++
	if m.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return m.duration, m.err
}

// mockFiles implements audio.FileStore over an in-memory map
type mockFiles struct {
	mu        sync.Mutex
	sizes     map[string]int64
	removed   []string
	sizeErr   error
	removeErr error
}

func newMockFiles() *mockFiles {
	return &mockFiles{sizes: make(map[string]int64)}
}

func (m *mockFiles) Size(path string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sizeErr != nil {
		return 0, m.sizeErr
	}
	size, ok := m.sizes[path]
	if !ok {
		return 0, fs.ErrNotExist
	}
	return size, nil
}

func (m *mockFiles) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.sizes, path)
	m.removed = append(m.removed, path)
	return nil
}

func (m *mockFiles) exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sizes[path]
	return ok
}

// mockEncoder writes a file of a size chosen by sizeFor into mockFiles
type mockEncoder struct {
	files   *mockFiles
	sizeFor func(attempt, bitrateKbps int) int64
	failOn  int
	failErr error
	calls   []audio.EncodeRequest
	// existedBefore records whether the output path was present when each call started
	existedBefore []bool
}

func (m *mockEncoder) Encode(ctx context.Context, req audio.EncodeRequest) error {
	m.calls = append(m.calls, req)
	m.existedBefore = append(m.existedBefore, m.files.exists(req.OutputPath))
	attempt := len(m.calls)
	if m.failOn == attempt {
		return m.failErr
	}
	m.files.mu.Lock()
	m.files.sizes[req.OutputPath] = m.sizeFor(attempt, req.BitrateKbps)
	m.files.mu.Unlock()
	return nil
}

// recordingObserver captures every event in order
type recordingObserver struct {
	events []Event
}

func (r *recordingObserver) OnEvent(e Event) {
	r.events = append(r.events, e)
}

func (r *recordingObserver) count(kind EventKind) int {
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// --- Helper functions ---

func newRequest(t *testing.T, opts audio.RequestOptions) *audio.ConversionRequest {
	t.Helper()
	profile, err := audio.LookupProfile("mp3")
	require.NoError(t, err)
	// Lift the cap so planner scenarios match the raw formula.
	if opts.MaxBitrateKbps == 0 {
		opts.MaxBitrateKbps = 1000
	}
	req, err := audio.NewConversionRequest("/videos/lecture.mp4", profile, opts)
	require.NoError(t, err)
	return req
}

func mb(v float64) int64 {
	return int64(v * audio.BytesPerMB)
}

// --- Tests ---

func TestService_Convert_SuccessFirstAttempt(t *testing.T) {
	files := newMockFiles()
	encoder := &mockEncoder{files: files, sizeFor: func(int, int) int64 { return mb(24) }}
	prober := &mockProber{duration: 600}
	observer := &recordingObserver{}

	svc := NewService(prober, encoder, files, WithObserver(observer))
	outcome := svc.Convert(context.Background(), newRequest(t, audio.RequestOptions{}))

	assert.Equal(t, audio.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "/videos/lecture.mp3", outcome.OutputPath)
	assert.Equal(t, mb(24), outcome.SizeBytes)
	assert.Equal(t, 1, outcome.Attempts)
	assert.NoError(t, outcome.Err())
	require.Len(t, encoder.calls, 1)
	assert.Equal(t, 332, encoder.calls[0].BitrateKbps)
	assert.True(t, files.exists("/videos/lecture.mp3"))
	assert.Empty(t, files.removed)
}

func TestService_Convert_ExactlyAtCeilingIsSuccess(t *testing.T) {
	files := newMockFiles()
	encoder := &mockEncoder{files: files, sizeFor: func(int, int) int64 { return mb(25) }}

	svc := NewService(&mockProber{duration: 600}, encoder, files)
	outcome := svc.Convert(context.Background(), newRequest(t, audio.RequestOptions{}))

	assert.Equal(t, audio.OutcomeSuccess, outcome.Kind)
}

func TestService_Convert_RetriesWithRescaledBitrate(t *testing.T) {
	files := newMockFiles()
	sizes := []int64{mb(30), mb(24.5)}
	encoder := &mockEncoder{files: files, sizeFor: func(attempt, _ int) int64 { return sizes[attempt-1] }}
	observer := &recordingObserver{}

	svc := NewService(&mockProber{duration: 600}, encoder, files, WithObserver(observer))
	outcome := svc.Convert(context.Background(), newRequest(t, audio.RequestOptions{MaxBitrateKbps: 318}))

	require.Equal(t, audio.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, 2, outcome.Attempts)
	require.Len(t, encoder.calls, 2)
	assert.Equal(t, 318, encoder.calls[0].BitrateKbps)
	assert.Equal(t, 251, encoder.calls[1].BitrateKbps)
	assert.Equal(t, []bool{false, false}, encoder.existedBefore, "oversized intermediate must be removed before the retry")
	assert.Equal(t, 1, observer.count(EventRetrying))
	require.Len(t, outcome.History, 2)
	assert.Equal(t, audio.Attempt{Number: 2, BitrateKbps: 251, SizeBytes: mb(24.5)}, outcome.History[1])
}

func TestService_Convert_ProbeFailureSkipsEncoding(t *testing.T) {
	files := newMockFiles()
	encoder := &mockEncoder{files: files, sizeFor: func(int, int) int64 { return 1 }}
	probeErr := errors.New("ffprobe exited with code 1")

	svc := NewService(&mockProber{err: probeErr}, encoder, files)
	outcome := svc.Convert(context.Background(), newRequest(t, audio.RequestOptions{}))

	assert.Equal(t, audio.OutcomeProbeFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Err(), probeErr)
	assert.Empty(t, encoder.calls)
	assert.Zero(t, outcome.DurationSeconds)
}

func TestService_Convert_NonPositiveDurationIsProbeFailure(t *testing.T) {
	for _, d := range []float64{0, -3} {
		files := newMockFiles()
		encoder := &mockEncoder{files: files, sizeFor: func(int, int) int64 { return 1 }}

		svc := NewService(&mockProber{duration: d}, encoder, files)
		outcome := svc.Convert(context.Background(), newRequest(t, audio.RequestOptions{}))

		assert.Equal(t, audio.OutcomeProbeFailed, outcome.Kind)
		assert.ErrorIs(t, outcome.Cause, audio.ErrInvalidDuration)
		assert.Empty(t, encoder.calls)
	}
}

func TestService_Convert_ProbeTimeout(t *testing.T) {
	files := newMockFiles()
	encoder := &mockEncoder{files: files, sizeFor: func(int, int) int64 { return 1 }}

	svc := NewService(&mockProber{block: true}, encoder, files, WithProbeTimeout(20*time.Millisecond))
	outcome := svc.Convert(context.Background(), newRequest(t, audio.RequestOptions{}))

	assert.Equal(t, audio.OutcomeProbeFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Cause, context.DeadlineExceeded)
	assert.Empty(t, encoder.calls)
}

func TestService_Convert_EncodeFailureIsNotRetried(t *testing.T) {
	files := newMockFiles()
	encodeErr := errors.New("ffmpeg exited with code 234")
	encoder := &mockEncoder{
		files:   files,
		sizeFor: func(int, int) int64 { return mb(40) },
		failOn:  2,
		failErr: encodeErr,
	}

	svc := NewService(&mockProber{duration: 600}, encoder, files)
	outcome := svc.Convert(context.Background(), newRequest(t, audio.RequestOptions{}))

	assert.Equal(t, audio.OutcomeEncodeFailed, outcome.Kind)
	assert.Equal(t, 2, outcome.Attempts)
	assert.ErrorIs(t, outcome.Err(), encodeErr)
	assert.Len(t, encoder.calls, 2)
	assert.False(t, files.exists("/videos/lecture.mp3"), "failed attempt output must not be measured or kept")
}

func TestService_Convert_MeasureFailureIsEncodeFailure(t *testing.T) {
	files := newMockFiles()
	files.sizeErr = fs.ErrPermission
	encoder := &mockEncoder{files: files, sizeFor: func(int, int) int64 { return 1 }}

	svc := NewService(&mockProber{duration: 600}, encoder, files)
	outcome := svc.Convert(context.Background(), newRequest(t, audio.RequestOptions{}))

	assert.Equal(t, audio.OutcomeEncodeFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Cause, fs.ErrPermission)
	assert.False(t, files.exists("/videos/lecture.mp3"), "unmeasured output must not be left behind")
	assert.Equal(t, []string{"/videos/lecture.mp3"}, files.removed)
}

func TestService_Convert_OversizedAfterAllAttempts(t *testing.T) {
	files := newMockFiles()
	encoder := &mockEncoder{files: files, sizeFor: func(int, int) int64 { return mb(30) }}

	svc := NewService(&mockProber{duration: 600}, encoder, files)
	outcome := svc.Convert(context.Background(), newRequest(t, audio.RequestOptions{MaxAttempts: 5}))

	assert.Equal(t, audio.OutcomeOversizedAfterRetries, outcome.Kind)
	assert.Equal(t, 5, outcome.Attempts)
	assert.Len(t, encoder.calls, 5)
	assert.Equal(t, mb(30), outcome.SizeBytes)
	assert.True(t, files.exists(outcome.OutputPath), "last oversized output is kept")
	assert.Len(t, files.removed, 4, "attempts 1-4 outputs are removed")
	assert.Equal(t, []bool{false, false, false, false, false}, encoder.existedBefore)

	for i := 1; i < len(encoder.calls); i++ {
		assert.Less(t, encoder.calls[i].BitrateKbps, encoder.calls[i-1].BitrateKbps, "bitrate must decrease")
	}
}

func TestService_Convert_GivesUpAtFloor(t *testing.T) {
	files := newMockFiles()
	encoder := &mockEncoder{files: files, sizeFor: func(int, int) int64 { return mb(30) }}

	// Ten hours plans below the 32 kbps floor, so the first attempt already runs at it.
	svc := NewService(&mockProber{duration: 36000}, encoder, files)
	outcome := svc.Convert(context.Background(), newRequest(t, audio.RequestOptions{MaxAttempts: 5}))

	assert.Equal(t, audio.OutcomeOversizedAfterRetries, outcome.Kind)
	assert.Equal(t, 1, outcome.Attempts)
	require.Len(t, encoder.calls, 1)
	assert.Equal(t, 32, encoder.calls[0].BitrateKbps)
	assert.True(t, files.exists(outcome.OutputPath))
}

func TestService_Convert_RemoveFailureStopsLoop(t *testing.T) {
	files := newMockFiles()
	files.removeErr = fs.ErrPermission
	encoder := &mockEncoder{files: files, sizeFor: func(int, int) int64 { return mb(30) }}

	svc := NewService(&mockProber{duration: 600}, encoder, files)
	outcome := svc.Convert(context.Background(), newRequest(t, audio.RequestOptions{}))

	assert.Equal(t, audio.OutcomeEncodeFailed, outcome.Kind)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Len(t, encoder.calls, 1)
}

func TestService_Convert_TerminatesWithinAttemptBudget(t *testing.T) {
	for maxAttempts := 1; maxAttempts <= 8; maxAttempts++ {
		files := newMockFiles()
		// Output always lands 50% over whatever was planned.
		encoder := &mockEncoder{files: files, sizeFor: func(_ int, kbps int) int64 {
			return int64(float64(kbps) * 1000 / 8 * 600 * 1.5)
		}}
		observer := &recordingObserver{}

		svc := NewService(&mockProber{duration: 600}, encoder, files, WithObserver(observer))
		outcome := svc.Convert(context.Background(), newRequest(t, audio.RequestOptions{MaxAttempts: maxAttempts}))

		assert.LessOrEqual(t, len(encoder.calls), maxAttempts)
		assert.Equal(t, 1, observer.count(EventFinished), "exactly one terminal outcome")
		assert.Contains(t, []audio.OutcomeKind{audio.OutcomeSuccess, audio.OutcomeOversizedAfterRetries}, outcome.Kind)
	}
}

func TestService_Convert_EventOrder(t *testing.T) {
	files := newMockFiles()
	sizes := []int64{mb(26), mb(20)}
	encoder := &mockEncoder{files: files, sizeFor: func(attempt, _ int) int64 { return sizes[attempt-1] }}
	observer := &recordingObserver{}

	svc := NewService(&mockProber{duration: 600}, encoder, files, WithObserver(observer))
	svc.Convert(context.Background(), newRequest(t, audio.RequestOptions{}))

	var kinds []EventKind
	for _, e := range observer.events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []EventKind{
		EventProbeStarted, EventProbeFinished,
		EventEncodeStarted, EventEncodeFinished, EventMeasured, EventRetrying,
		EventEncodeStarted, EventEncodeFinished, EventMeasured,
		EventFinished,
	}, kinds)

	last := observer.events[len(observer.events)-1]
	require.NotNil(t, last.Outcome)
	assert.Equal(t, audio.OutcomeSuccess, last.Outcome.Kind)
}
