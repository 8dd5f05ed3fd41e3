// Package config resolves parcel's runtime configuration from flags, the
// environment, an optional parcel.yaml file and built-in defaults.
package config

import (
	"errors"
	"net/textproto"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"go.trai.ch/parcel/internal/build"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const (
	keyRoot       = "root"
	keyCatalogURL = "catalog_url"
	keyOutput     = "output"
	keyLogJSON    = "log_json"
)

var outputModes = []string{domain.OutputAuto, domain.OutputInteractive, domain.OutputLinear}

// Loader implements ports.ConfigLoader.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load resolves the configuration. Each scalar is taken from the first source
// that sets it: explicit overrides, then PARCEL_* environment variables, then
// the config file, then defaults. Headers from the file and the overrides are
// merged, overrides winning; the client identifier is always set by parcel.
func (l *Loader) Load(o domain.Overrides) (*domain.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(domain.EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault(keyRoot, domain.DefaultRootDir)
	v.SetDefault(keyCatalogURL, domain.DefaultCatalogURL)
	v.SetDefault(keyOutput, domain.OutputAuto)
	v.SetDefault(keyLogJSON, false)

	file, err := l.readParcelfile(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	if file != nil {
		if err := v.MergeConfigMap(file.settings()); err != nil {
			return nil, errors.Join(domain.ErrConfigParseFailed, err)
		}
	}

	if o.Root != "" {
		v.Set(keyRoot, o.Root)
	}
	if o.CatalogURL != "" {
		v.Set(keyCatalogURL, o.CatalogURL)
	}
	if o.OutputMode != "" {
		v.Set(keyOutput, o.OutputMode)
	}
	if o.LogJSON {
		v.Set(keyLogJSON, true)
	}

	root, err := filepath.Abs(v.GetString(keyRoot))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to resolve root"), "root", v.GetString(keyRoot))
	}

	mode := strings.ToLower(v.GetString(keyOutput))
	if !slices.Contains(outputModes, mode) {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidOutputMode, "unsupported output mode"), "output", mode)
	}

	var fileHeaders map[string]string
	if file != nil {
		fileHeaders = file.Headers
	}
	headers, err := l.mergeHeaders(fileHeaders, o.Headers)
	if err != nil {
		return nil, err
	}

	return &domain.Config{
		Root:       root,
		CatalogURL: v.GetString(keyCatalogURL),
		Headers:    headers,
		OutputMode: mode,
		LogJSON:    v.GetBool(keyLogJSON),
	}, nil
}

// readParcelfile reads the explicit config file, or parcel.yaml in the
// working directory when present. It returns nil when there is no file.
// A relative root in the file is resolved against the file's directory.
func (l *Loader) readParcelfile(path string) (*Parcelfile, error) {
	if path == "" {
		if _, err := os.Stat(domain.ConfigFileName); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, nil
			}
			return nil, errors.Join(domain.ErrConfigReadFailed, err)
		}
		path = domain.ConfigFileName
	}

	var file Parcelfile
	if err := readAndUnmarshalYAML(path, &file); err != nil {
		return nil, zerr.With(err, "config_file", path)
	}

	if file.Root != "" && !filepath.IsAbs(file.Root) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, errors.Join(domain.ErrConfigReadFailed, err)
		}
		file.Root = filepath.Join(filepath.Dir(abs), file.Root)
	}

	return &file, nil
}

func (l *Loader) mergeHeaders(layers ...map[string]string) (map[string]string, error) {
	headers := make(map[string]string)
	for _, layer := range layers {
		for name, value := range layer {
			if err := validateHeader(name, value); err != nil {
				return nil, err
			}
			canonical := textproto.CanonicalMIMEHeaderKey(name)
			if canonical == domain.ClientHeader {
				l.warn("header " + domain.ClientHeader + " is managed by parcel and was ignored")
				continue
			}
			headers[canonical] = value
		}
	}
	headers[domain.ClientHeader] = ClientIdentifier()
	return headers, nil
}

func (l *Loader) warn(msg string) {
	if l.Logger != nil {
		l.Logger.Warn(msg)
	}
}

// ClientIdentifier returns the value sent in the client header.
func ClientIdentifier() string {
	return "parcel/" + build.Version
}

// ParseHeaders parses "Name=value" pairs as given on the command line.
func ParseHeaders(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	headers := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidHeader, "malformed header flag"), "header", pair)
		}
		if err := validateHeader(name, value); err != nil {
			return nil, err
		}
		headers[name] = value
	}
	return headers, nil
}

// validateHeader rejects names that are not HTTP tokens and values that
// would split the header line.
func validateHeader(name, value string) error {
	if name == "" || strings.ContainsFunc(name, func(r rune) bool {
		return r <= ' ' || r >= 0x7f || strings.ContainsRune(`()<>@,;:\"/[]?={}`, r)
	}) {
		return zerr.With(zerr.Wrap(domain.ErrInvalidHeader, "invalid header name"), "header", name)
	}
	if strings.ContainsAny(value, "\r\n") {
		return zerr.With(zerr.Wrap(domain.ErrInvalidHeader, "invalid header value"), "header", name)
	}
	return nil
}

func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath comes from the user's own flag or working directory
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Join(domain.ErrConfigReadFailed, err)
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return errors.Join(domain.ErrConfigParseFailed, parseErr)
	}

	return nil
}
