package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const SourceTypeGeneric = "generic"

// SourceConfig 是 sources 文件中的一项：
// 对内置来源可禁用或覆盖 feeds / entry；type: generic 的项会新增一个通用 feed 来源。
type SourceConfig struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Disabled bool     `yaml:"disabled"`
	Feeds    []string `yaml:"feeds"`
	Entry    string   `yaml:"entry"`
	Category string   `yaml:"category"`
}

type SourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// LoadSources 读取 YAML 来源配置；path 为空时返回空配置
func LoadSources(path string) (*SourcesFile, error) {
	if path == "" {
		return &SourcesFile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return ParseSources(data)
}

func ParseSources(data []byte) (*SourcesFile, error) {
	var sf SourcesFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	for i, s := range sf.Sources {
		if strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("sources[%d]: name is required", i)
		}
		if s.Type == SourceTypeGeneric && len(s.Feeds) == 0 {
			return nil, fmt.Errorf("sources[%d] %q: generic source needs at least one feed", i, s.Name)
		}
	}
	return &sf, nil
}

// Lookup 按名称查找（大小写不敏感）
func (sf *SourcesFile) Lookup(name string) (SourceConfig, bool) {
	if sf == nil {
		return SourceConfig{}, false
	}
	for _, s := range sf.Sources {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// Generic 返回所有启用的通用 feed 来源
func (sf *SourcesFile) Generic() []SourceConfig {
	if sf == nil {
		return nil
	}
	var out []SourceConfig
	for _, s := range sf.Sources {
		if s.Type == SourceTypeGeneric && !s.Disabled {
			out = append(out, s)
		}
	}
	return out
}
