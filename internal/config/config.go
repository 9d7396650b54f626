// Package config loads the optional YAML tool configuration. Everything has
// a working default; the file and the DEVOLVE_* environment variables only
// override tool locations and encode tuning.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Tools  ToolsConfig  `yaml:"tools"`
	Encode EncodeConfig `yaml:"encode"`
}

type ToolsConfig struct {
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
	FFplay  string `yaml:"ffplay"`
}

type EncodeConfig struct {
	Preset       string `yaml:"preset"`
	CRF          int    `yaml:"crf"`
	AudioBitrate string `yaml:"audio_bitrate"`
}

// Load reads configuration from path, or from the first file found on the
// search path when path is empty, falling back to defaults. Environment
// variables win over the file.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Tools: ToolsConfig{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			FFplay:  "ffplay",
		},
		Encode: EncodeConfig{
			Preset:       "veryfast",
			CRF:          18,
			AudioBitrate: "192k",
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./devolve.yaml",
		"./devolve.yml",
		filepath.Join(os.Getenv("HOME"), ".devolve", "config.yaml"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DEVOLVE_FFMPEG"); v != "" {
		cfg.Tools.FFmpeg = v
	}
	if v := os.Getenv("DEVOLVE_FFPROBE"); v != "" {
		cfg.Tools.FFprobe = v
	}
	if v := os.Getenv("DEVOLVE_FFPLAY"); v != "" {
		cfg.Tools.FFplay = v
	}
}
