package config

import (
	_ "embed"
	"errors"
	"io/fs"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	hostnameRegexStringRFC1123 = `^([a-zA-Z0-9]{1}[a-zA-Z0-9-]{0,62}){1}(\.[a-zA-Z0-9]{1}[a-zA-Z0-9-]{0,62})*?$` // accepts hostname starting with a digit https://tools.ietf.org/html/rfc1123
)

var (
	//go:embed config.schema.json
	JSONSchema string

	hostnameRegexRFC1123 = regexp.MustCompile(hostnameRegexStringRFC1123)

	goDurationSchema = jsonschema.MustCompileString("goDuration.json", `{
	"properties" : {
		"duration": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"minimum": {
					"type": "string"
				},
				"maximum": {
					"type": "string"
				}
			}
		}
	}
}`)
)

type duration struct {
	min time.Duration
	max time.Duration
}

func (d duration) Validate(ctx jsonschema.ValidationContext, v interface{}) error {
	val, ok := v.(string)
	if !ok {
		return ctx.Error("duration", "invalid duration, given %s", v)
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return ctx.Error("duration", "invalid duration, given %s", val)
	}

	if d.min > 0 && duration < d.min {
		return ctx.Error("duration", "must be greater or equal than %s, given %s", d.min, val)
	}

	if d.max > 0 && duration > d.max {
		return ctx.Error("duration", "must be less or equal than %s, given %s", d.max, val)
	}

	return nil
}

type durationCompiler struct{}

func (durationCompiler) Compile(ctx jsonschema.CompilerContext, m map[string]interface{}) (jsonschema.ExtSchema, error) {
	if val, ok := m["duration"]; ok {
		if mapVal, ok := val.(map[string]interface{}); ok {
			var minDuration, maxDuration time.Duration
			var err error

			minDurationString, ok := mapVal["minimum"].(string)
			if ok {
				minDuration, err = time.ParseDuration(minDurationString)
				if err != nil {
					return nil, err
				}
			}
			maxDurationString, ok := mapVal["maximum"].(string)
			if ok {
				maxDuration, err = time.ParseDuration(maxDurationString)
				if err != nil {
					return nil, err
				}
			}
			return duration{
				min: minDuration,
				max: maxDuration,
			}, nil
		}

		return duration{}, nil
	}
	// nothing to compile, return nil
	return nil, nil
}

func ValidateConfig(yamlData []byte, schema string) error {
	var v interface{}
	if err := yaml.Unmarshal(yamlData, &v); err != nil {
		return err
	}

	c := jsonschema.NewCompiler()
	// Formats are annotation-only under draft 2020-12 unless assertion is
	// enabled; without this the registered formats below never run.
	c.AssertFormat = true
	c.Formats["go-duration"] = isGoDuration
	c.Formats["http-url"] = isHttpURL
	c.Formats["file-path"] = isFilePath
	c.Formats["hostname-port"] = isHostnamePort

	c.RegisterExtension("duration", goDurationSchema, durationCompiler{})

	err := c.AddResource("config.schema.json", strings.NewReader(schema))
	if err != nil {
		return err
	}

	sch, err := c.Compile("config.schema.json")
	if err != nil {
		return err
	}

	return sch.Validate(v)
}

// isGoDuration is the validation function for validating if the current field's value is a valid Go duration.
func isGoDuration(s any) bool {
	val, ok := s.(string)
	if !ok {
		return false
	}
	_, err := time.ParseDuration(val)
	return err == nil
}

// isURL is the validation function for validating if the current field's value is a valid URL.
func isURL(a any) bool {
	val, ok := a.(string)
	if !ok {
		return false
	}
	s := strings.ToLower(val)

	if len(s) == 0 {
		return false
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}

	if u.Host == "" && u.Fragment == "" && u.Opaque == "" {
		return false
	}

	return true
}

// isHttpURL is the validation function for validating if the current field's value is a valid HTTP(s) URL.
func isHttpURL(a any) bool {
	val, ok := a.(string)
	if !ok {
		return false
	}

	if !isURL(val) {
		return false
	}

	s := strings.ToLower(val)

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}

	return u.Scheme == "http" || u.Scheme == "https"
}

// isDir is the validation function for validating if the current field's value is a valid existing directory.
func isDir(s string) bool {
	fileInfo, err := os.Stat(s)
	if err != nil {
		return false
	}

	return fileInfo.IsDir()
}

// isFile is the validation function for validating if the current field's value is a valid existing file path.
func isFile(s string) bool {
	fileInfo, err := os.Stat(s)
	if err != nil {
		return false
	}

	return !fileInfo.IsDir()
}

// isFilePath is the validation function for validating if the current field's value is a valid file path.
func isFilePath(a any) bool {
	val, ok := a.(string)
	if !ok {
		return false
	}

	// Not valid if it is a directory.
	if isDir(val) {
		return false
	}
	// If it exists, it obviously is valid.
	if isFile(val) {
		return true
	}

	// Every OS allows for whitespace, but none
	// let you use a file with no filename.
	if strings.TrimSpace(val) == "" {
		return false
	}

	// We make sure it isn't a directory.
	if strings.HasSuffix(val, string(os.PathSeparator)) {
		return false
	}

	if _, err := os.Stat(val); err != nil {
		var t *fs.PathError
		if errors.As(err, &t) {
			if errors.Is(t.Err, syscall.EINVAL) {
				// It's definitely an invalid character in the filepath.
				return false
			}
			// It could be a permission error, a does-not-exist error, etc.
			// Out-of-scope for this validation, though.
			return true
		}
		return false
	}

	return false
}

// isHostnamePort validates a <dns>:<port> combination for fields typically used for socket address.
func isHostnamePort(a any) bool {
	val, ok := a.(string)
	if !ok {
		return false
	}

	host, port, err := net.SplitHostPort(val)
	if err != nil {
		return false
	}
	// Port must be an int <= 65535.
	if portNum, err := strconv.ParseInt(
		port, 10, 32,
	); err != nil || portNum > 65535 || portNum < 1 {
		return false
	}

	// If host is specified, it should match a DNS name
	if host != "" {
		return hostnameRegexRFC1123.MatchString(host)
	}
	return true
}
