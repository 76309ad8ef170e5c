/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile = "configuration.yaml"
	defaultEnvFile    = ".env"
)

// configuration resolves a camelCase path from, in order: the process
// environment (UPPER_SNAKE_CASE), the .env file and the YAML file
type configuration struct {
	file   map[string]interface{}
	lookup func(string) (string, bool)
}

func newConfiguration() (*configuration, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = defaultEnvFile
	}
	// godotenv never overrides variables already present in the environment
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrapf(err, "unable to load %s", envFile)
	}

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = defaultConfigFile
	}
	contents, err := ioutil.ReadFile(configFile)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "unable to read %s", configFile)
	}
	return parseConfiguration(contents, os.LookupEnv)
}

func parseConfiguration(contents []byte, lookup func(string) (string, bool)) (*configuration, error) {
	config := &configuration{file: map[string]interface{}{}, lookup: lookup}
	if len(contents) > 0 {
		if err := yaml.Unmarshal(contents, &config.file); err != nil {
			return nil, errors.Wrap(err, "unable to parse configuration file")
		}
	}
	return config, nil
}

// envName converts a camelCase path such as videoCaptureFOURCC to VIDEO_CAPTURE_FOURCC
func envName(path string) string {
	var builder strings.Builder
	runes := []rune(path)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
			builder.WriteRune('_')
		}
		builder.WriteRune(unicode.ToUpper(r))
	}
	return builder.String()
}

func (config *configuration) get(path string) (interface{}, error) {
	if config.lookup != nil {
		if value, ok := config.lookup(envName(path)); ok {
			return value, nil
		}
	}
	if value, ok := config.file[path]; ok && value != nil {
		return value, nil
	}
	return nil, fmt.Errorf("%s not found", path)
}

func (config *configuration) GetString(path string) (string, error) {
	value, err := config.get(path)
	if err != nil {
		return "", err
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	return fmt.Sprint(value), nil
}

func (config *configuration) GetInt(path string) (int, error) {
	value, err := config.get(path)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, errors.Wrapf(err, "%s is not an integer", path)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%s is not an integer: %v", path, value)
}

func (config *configuration) GetFloat(path string) (float64, error) {
	value, err := config.get(path)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errors.Wrapf(err, "%s is not a number", path)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%s is not a number: %v", path, value)
}

func (config *configuration) GetBool(path string) (bool, error) {
	value, err := config.get(path)
	if err != nil {
		return false, err
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, errors.Wrapf(err, "%s is not a boolean", path)
		}
		return b, nil
	}
	return false, fmt.Errorf("%s is not a boolean: %v", path, value)
}
