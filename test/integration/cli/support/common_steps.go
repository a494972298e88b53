package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// iRunCommand executes a command and stores the result.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substituteVars(command)

	testCtx.LastCommand = command
	testCtx.LastStartTime = time.Now()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = testCtx.WorkingDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	// Results go to stdout and logs to stderr; JSON steps only look at stdout.
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	testCtx.LastStdout = stdout.String()
	testCtx.LastOutput = stdout.String() + stderr.String()
	testCtx.LastError = err
	testCtx.LastDuration = time.Since(testCtx.LastStartTime)

	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	} else {
		testCtx.LastExitCode = 0
	}

	return nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldContain verifies the output contains specific text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldBeValidJSON verifies stdout is valid JSON.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := parseJSON(testCtx.LastStdout)
	return err
}

// theErrorShouldMention verifies the failure output contains specific text.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil && testCtx.LastExitCode == 0 {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}

	fullErrorText := testCtx.LastOutput
	if testCtx.LastError != nil {
		fullErrorText += " " + testCtx.LastError.Error()
	}

	if !strings.Contains(strings.ToLower(fullErrorText), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", errorText, fullErrorText)
	}
	return nil
}

// theJSONFieldShouldBe compares a dotted path of the stdout JSON.
func (testCtx *TestContext) theJSONFieldShouldBe(path, expected string) error {
	return jsonFieldEquals(testCtx.LastStdout, path, expected)
}

func (testCtx *TestContext) theJSONFieldShouldNotBe(path, unexpected string) error {
	got, err := jsonField(testCtx.LastStdout, path)
	if err != nil {
		return err
	}
	if got == unexpected {
		return fmt.Errorf("field %s is %q", path, got)
	}
	return nil
}

// theOptionsShouldRead checks the 0/1 values of a group, e.g. "0,1,0,0".
func (testCtx *TestContext) theOptionsShouldRead(group string, page int, expected string) error {
	return optionsRead(testCtx.LastStdout, group, page, expected)
}

// theFileShouldContain checks a file written by the last command.
func (testCtx *TestContext) theFileShouldContain(filename, expectedContent string) error {
	data, err := os.ReadFile(testCtx.substituteVars(filename))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if !strings.Contains(string(data), expectedContent) {
		return fmt.Errorf("file %s does not contain '%s'\nContent: %s", filename, expectedContent, data)
	}
	return nil
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.AddEnvVar(name, testCtx.substituteVars(value))
	return nil
}

func parseJSON(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &v); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, s)
	}
	return v, nil
}

// jsonField walks a dotted path such as "pages.0.recognizes.1.rec_id" and
// renders the leaf the way it appears in a feature file.
func jsonField(s, path string) (string, error) {
	cur, err := parseJSON(s)
	if err != nil {
		return "", err
	}
	for _, key := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return "", fmt.Errorf("field %q not found in %s", key, path)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return "", fmt.Errorf("index %q out of range in %s", key, path)
			}
			cur = node[i]
		default:
			return "", fmt.Errorf("cannot descend into %s at %q", path, key)
		}
	}
	if cur == nil {
		return "null", nil
	}
	return fmt.Sprint(cur), nil
}

func jsonFieldEquals(s, path, expected string) error {
	got, err := jsonField(s, path)
	if err != nil {
		return err
	}
	if got != expected {
		return fmt.Errorf("field %s is %q, expected %q", path, got, expected)
	}
	return nil
}

func optionsRead(s, group string, page int, expected string) error {
	for g := 0; ; g++ {
		prefix := fmt.Sprintf("pages.%d.recognizes.%d", page, g)
		id, err := jsonField(s, prefix+".rec_id")
		if err != nil {
			return fmt.Errorf("group %s not found on page %d: %w", group, page, err)
		}
		if id != group {
			continue
		}
		var values []string
		for o := 0; ; o++ {
			v, err := jsonField(s, fmt.Sprintf("%s.rec_options.%d.value", prefix, o))
			if err != nil {
				break
			}
			values = append(values, v)
		}
		if got := strings.Join(values, ","); got != expected {
			return fmt.Errorf("group %s on page %d reads %s, expected %s", group, page, got, expected)
		}
		return nil
	}
}

// RegisterCommonSteps registers the command and output steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the JSON field "([^"]*)" should not be "([^"]*)"$`, testCtx.theJSONFieldShouldNotBe)
	sc.Step(`^the options of "([^"]*)" on page (\d+) should read "([^"]*)"$`, testCtx.theOptionsShouldRead)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
}
