//go:build integration

package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"squeeze-audio/cmd"
	"squeeze-audio/domain/audio"

	"github.com/cucumber/godog"
)

// mockProber returns a fixed duration or error
type mockProber struct {
	duration float64
	err      error
	calls    int
}

func (m *mockProber) Duration(ctx context.Context, inputPath string) (float64, error) {
	m.calls++
	return m.duration, m.err
}

// mockEncoder records bitrates and stores output sizes in the mock file store
type mockEncoder struct {
	files    *mockFileStore
	sizeFor  func(attempt, kbps int) int64
	err      error
	bitrates []int
}

func (m *mockEncoder) Encode(ctx context.Context, req audio.EncodeRequest) error {
	m.bitrates = append(m.bitrates, req.BitrateKbps)
	if m.err != nil {
		return m.err
	}
	m.files.sizes[req.OutputPath] = m.sizeFor(len(m.bitrates), req.BitrateKbps)
	return nil
}

// mockFileStore is an in-memory file system of path to size
type mockFileStore struct {
	sizes map[string]int64
}

func (m *mockFileStore) Exists(path string) bool {
	_, ok := m.sizes[path]
	return ok
}

func (m *mockFileStore) Size(path string) (int64, error) {
	size, ok := m.sizes[path]
	if !ok {
		return 0, fmt.Errorf("no such file: %s", path)
	}
	return size, nil
}

func (m *mockFileStore) Remove(path string) error {
	delete(m.sizes, path)
	return nil
}

// convertContext holds test state for convert scenarios
type convertContext struct {
	inputPath string
	prober    *mockProber
	encoder   *mockEncoder
	files     *mockFileStore
	output    *bytes.Buffer
	err       error
}

// SharedConvertContext is reset before each scenario via Before hook
var SharedConvertContext *convertContext

func getConvertContext() *convertContext {
	return SharedConvertContext
}

func InitializeConvertScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		files := &mockFileStore{sizes: make(map[string]int64)}
		SharedConvertContext = &convertContext{
			prober:  &mockProber{},
			encoder: &mockEncoder{files: files, sizeFor: func(int, int) int64 { return 1 }},
			files:   files,
			output:  &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		SharedConvertContext = nil
		return c, nil
	})

	ctx.Step(`^a video at "([^"]*)"$`, aVideoAt)
	ctx.Step(`^no video exists at "([^"]*)"$`, noVideoExistsAt)
	ctx.Step(`^the media is (\d+) seconds long$`, theMediaIsSecondsLong)
	ctx.Step(`^the duration probe fails with "([^"]*)"$`, theDurationProbeFailsWith)
	ctx.Step(`^the encoder produces files at the predicted size$`, theEncoderProducesFilesAtThePredictedSize)
	ctx.Step(`^the encoder produces (\d+) MB on the first attempt$`, theEncoderProducesMBOnTheFirstAttempt)
	ctx.Step(`^the encoder always produces (\d+) MB$`, theEncoderAlwaysProducesMB)
	ctx.Step(`^the encoder fails with "([^"]*)"$`, theEncoderFailsWith)
	ctx.Step(`^I convert with a (\d+) MB limit$`, iConvertWithAMBLimit)
	ctx.Step(`^I convert with a (\d+) MB limit and a (\d+) kbps maximum$`, iConvertWithAMBLimitAndAKbpsMaximum)
	ctx.Step(`^I convert "([^"]*)" with a (\d+) MB limit$`, iConvertPathWithAMBLimit)
	ctx.Step(`^the conversion should succeed$`, theConversionShouldSucceed)
	ctx.Step(`^the encoder should have been called at bitrates "([^"]*)"$`, theEncoderShouldHaveBeenCalledAtBitrates)
	ctx.Step(`^the encoder should have been called (\d+) times$`, theEncoderShouldHaveBeenCalledTimes)
	ctx.Step(`^the encoder should not have been called$`, theEncoderShouldNotHaveBeenCalled)
	ctx.Step(`^the duration probe should not have been called$`, theDurationProbeShouldNotHaveBeenCalled)
	ctx.Step(`^the output file "([^"]*)" should exist$`, theOutputFileShouldExist)
	ctx.Step(`^the output should mention "([^"]*)"$`, theOutputShouldMention)
	ctx.Step(`^the exit code should be (\d+)$`, theExitCodeShouldBe)
}

func aVideoAt(path string) error {
	c := getConvertContext()
	c.inputPath = path
	c.files.sizes[path] = 500 * audio.BytesPerMB
	return nil
}

func noVideoExistsAt(path string) error {
	c := getConvertContext()
	delete(c.files.sizes, path)
	return nil
}

func theMediaIsSecondsLong(seconds int) error {
	getConvertContext().prober.duration = float64(seconds)
	return nil
}

func theDurationProbeFailsWith(msg string) error {
	getConvertContext().prober.err = errors.New(msg)
	return nil
}

func predictedSize(kbps int) int64 {
	c := getConvertContext()
	return int64(float64(kbps) * 1000 / 8 * c.prober.duration)
}

func theEncoderProducesFilesAtThePredictedSize() error {
	getConvertContext().encoder.sizeFor = func(_, kbps int) int64 { return predictedSize(kbps) }
	return nil
}

func theEncoderProducesMBOnTheFirstAttempt(mb int) error {
	getConvertContext().encoder.sizeFor = func(attempt, kbps int) int64 {
		if attempt == 1 {
			return int64(mb) * audio.BytesPerMB
		}
		return predictedSize(kbps)
	}
	return nil
}

func theEncoderAlwaysProducesMB(mb int) error {
	getConvertContext().encoder.sizeFor = func(int, int) int64 { return int64(mb) * audio.BytesPerMB }
	return nil
}

func theEncoderFailsWith(msg string) error {
	getConvertContext().encoder.err = errors.New(msg)
	return nil
}

func runConvert(inputPath string, opts audio.RequestOptions) {
	c := getConvertContext()
	deps := cmd.ConvertDependencies{
		Prober:  c.prober,
		Encoder: c.encoder,
		Files:   c.files,
	}
	c.err = cmd.RunConvertWithDependencies(context.Background(), deps, cmd.ConvertOptions{
		InputPath: inputPath,
		Profile:   audio.DefaultProfileName,
		Request:   opts,
	}, c.output)
}

func iConvertWithAMBLimit(mb int) error {
	runConvert(getConvertContext().inputPath, audio.RequestOptions{MaxSizeMB: float64(mb)})
	return nil
}

func iConvertWithAMBLimitAndAKbpsMaximum(mb, kbps int) error {
	runConvert(getConvertContext().inputPath, audio.RequestOptions{MaxSizeMB: float64(mb), MaxBitrateKbps: kbps})
	return nil
}

func iConvertPathWithAMBLimit(path string, mb int) error {
	runConvert(path, audio.RequestOptions{MaxSizeMB: float64(mb)})
	return nil
}

func theConversionShouldSucceed() error {
	c := getConvertContext()
	if c.err != nil {
		return fmt.Errorf("expected success, got: %v\noutput:\n%s", c.err, c.output.String())
	}
	return nil
}

func theEncoderShouldHaveBeenCalledAtBitrates(list string) error {
	c := getConvertContext()
	var want []int
	for _, s := range strings.Split(list, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		want = append(want, n)
	}
	if fmt.Sprint(c.encoder.bitrates) != fmt.Sprint(want) {
		return fmt.Errorf("expected bitrates %v, got %v", want, c.encoder.bitrates)
	}
	return nil
}

func theEncoderShouldHaveBeenCalledTimes(n int) error {
	if got := len(getConvertContext().encoder.bitrates); got != n {
		return fmt.Errorf("expected %d encode calls, got %d", n, got)
	}
	return nil
}

func theEncoderShouldNotHaveBeenCalled() error {
	return theEncoderShouldHaveBeenCalledTimes(0)
}

func theDurationProbeShouldNotHaveBeenCalled() error {
	if calls := getConvertContext().prober.calls; calls != 0 {
		return fmt.Errorf("expected no probe calls, got %d", calls)
	}
	return nil
}

func theOutputFileShouldExist(path string) error {
	if !getConvertContext().files.Exists(path) {
		return fmt.Errorf("expected %s to exist", path)
	}
	return nil
}

func theOutputShouldMention(text string) error {
	out := getConvertContext().output.String()
	if !strings.Contains(out, text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, out)
	}
	return nil
}

func theExitCodeShouldBe(code int) error {
	if got := cmd.ExitCode(getConvertContext().err); got != code {
		return fmt.Errorf("expected exit code %d, got %d (err: %v)", code, got, getConvertContext().err)
	}
	return nil
}
