package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/magiconair/properties"
)

// EnvSource reads settings from environment variables. Names match
// case-insensitively, so SORT, sort and Sort are the same setting.
type EnvSource struct {
	vars map[string]string
}

// NewEnvSource captures the process environment.
func NewEnvSource() *EnvSource {
	return EnvSourceFrom(os.Environ())
}

// EnvSourceFrom builds a source from KEY=VALUE pairs.
func EnvSourceFrom(environ []string) *EnvSource {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		vars[strings.ToUpper(k)] = v
	}
	return &EnvSource{vars: vars}
}

func (e *EnvSource) Lookup(s Setting) (string, bool) {
	v, ok := e.vars[strings.ToUpper(s.Env)]
	return v, ok
}

// PropertiesSource reads settings from a Java-style .properties document.
type PropertiesSource struct {
	props *properties.Properties
}

// LoadPropertiesFile parses the properties file at path.
func LoadPropertiesFile(path string) (*PropertiesSource, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("load properties %s: %w", path, err)
	}
	return &PropertiesSource{props: p}, nil
}

// ParseProperties parses properties from a string.
func ParseProperties(s string) (*PropertiesSource, error) {
	p, err := properties.LoadString(s)
	if err != nil {
		return nil, fmt.Errorf("parse properties: %w", err)
	}
	return &PropertiesSource{props: p}, nil
}

func (p *PropertiesSource) Lookup(s Setting) (string, bool) {
	return p.props.Get(s.Property)
}
