//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"squeeze-audio/cmd"
	"squeeze-audio/infrastructure/config"

	"github.com/cucumber/godog"
)

// configContext holds test state for configuration scenarios
type configContext struct {
	tempDir    string
	configPath string
	cfg        *config.Config
	err        error
}

// SharedConfigContext is reset before each scenario via Before hook
var SharedConfigContext *configContext

func InitializeConfigScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		dir, err := os.MkdirTemp("", "squeeze-audio-config-")
		if err != nil {
			return c, err
		}
		SharedConfigContext = &configContext{
			tempDir:    dir,
			configPath: filepath.Join(dir, "config.yaml"),
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedConfigContext != nil {
			os.RemoveAll(SharedConfigContext.tempDir)
		}
		SharedConfigContext = nil
		return c, nil
	})

	ctx.Step(`^no configuration file exists$`, noConfigurationFileExists)
	ctx.Step(`^a configuration file with:$`, aConfigurationFileWith)
	ctx.Step(`^I load the configuration$`, iLoadTheConfiguration)
	ctx.Step(`^the max size should be (\d+) MB$`, theMaxSizeShouldBeMB)
	ctx.Step(`^the profile should be "([^"]*)"$`, theProfileShouldBe)
	ctx.Step(`^I set "([^"]*)" to "([^"]*)"$`, iSetTo)
	ctx.Step(`^the saved configuration should have (\d+) max attempts$`, theSavedConfigurationShouldHaveMaxAttempts)
	ctx.Step(`^I should receive an invalid value error$`, iShouldReceiveAnInvalidValueError)
}

func noConfigurationFileExists() error {
	os.Remove(SharedConfigContext.configPath)
	return nil
}

func aConfigurationFileWith(doc *godog.DocString) error {
	return os.WriteFile(SharedConfigContext.configPath, []byte(doc.Content), 0644)
}

func iLoadTheConfiguration() error {
	c := SharedConfigContext
	c.cfg, c.err = config.LoadOrDefault(c.configPath)
	return c.err
}

func theMaxSizeShouldBeMB(mb int) error {
	if got := SharedConfigContext.cfg.Conversion.MaxSizeMB; got != float64(mb) {
		return fmt.Errorf("expected max size %d, got %v", mb, got)
	}
	return nil
}

func theProfileShouldBe(profile string) error {
	if got := SharedConfigContext.cfg.Conversion.Profile; got != profile {
		return fmt.Errorf("expected profile %q, got %q", profile, got)
	}
	return nil
}

func iSetTo(key, value string) error {
	c := SharedConfigContext
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	c.err = cmd.RunConfigSetWithDependencies(c.cfg, c.configPath, key, value, io.Discard)
	return nil
}

func theSavedConfigurationShouldHaveMaxAttempts(n int) error {
	c := SharedConfigContext
	if c.err != nil {
		return c.err
	}
	saved, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if saved.Conversion.MaxAttempts != n {
		return fmt.Errorf("expected %d max attempts, got %d", n, saved.Conversion.MaxAttempts)
	}
	return nil
}

func iShouldReceiveAnInvalidValueError() error {
	if !errors.Is(SharedConfigContext.err, config.ErrInvalidValue) {
		return fmt.Errorf("expected invalid value error, got %v", SharedConfigContext.err)
	}
	return nil
}
