/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/pingax/gem-sub001/internal/resources"
)

// Config is the packaged logger configuration.
type Config struct {
	Level      string     `yaml:"level"`
	DebugLevel string     `yaml:"debug_level"`
	Console    bool       `yaml:"console"`
	File       FileConfig `yaml:"file"`
}

// FileConfig describes the log file sink.
type FileConfig struct {
	Name         string `yaml:"name"`
	BackupSuffix string `yaml:"backup_suffix"`
	MaxSizeMB    int    `yaml:"max_size_mb"`
	MaxBackups   int    `yaml:"max_backups"`
}

// LoadConfig parses the packaged logger configuration.
func LoadConfig() (Config, error) {
	data, err := resources.Read(resources.Logger)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

// ParseConfig parses a logger configuration document.
func ParseConfig(data []byte) (Config, error) {
	cfg := Config{
		Level:      "info",
		DebugLevel: "debug",
		Console:    true,
		File:       FileConfig{Name: "gem.log", BackupSuffix: ".old", MaxSizeMB: 4, MaxBackups: 1},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse logger config: %w", err)
	}
	return cfg, nil
}

// Setup configures zerolog for a process that only writes to the console.
func Setup(debug bool) zerolog.Logger {
	return SetupWithWriter(debug, nil)
}

// SetupWithWriter configures zerolog with an additional writer (e.g. the log file).
func SetupWithWriter(debug bool, additionalWriter io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return newLogger(level, true, additionalWriter)
}

func newLogger(level zerolog.Level, console bool, additionalWriter io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var writers []io.Writer
	if console {
		// Console writer for human-readable output
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if additionalWriter != nil {
		writers = append(writers, additionalWriter)
	}

	var writer io.Writer = io.Discard
	switch len(writers) {
	case 1:
		writer = writers[0]
	case 2:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(level)
	log.Logger = logger
	return logger
}

// FileLogger owns the log file sink.
type FileLogger struct {
	Logger zerolog.Logger
	Path   string
	sink   *lumberjack.Logger
}

// Close flushes and closes the log file.
func (f *FileLogger) Close() error {
	if f == nil || f.sink == nil {
		return nil
	}
	return f.sink.Close()
}

// SetupFile rotates an existing log in dir to its backup name, then returns
// a logger writing to a fresh file there and, when configured, to the console.
func SetupFile(cfg Config, dir string, debug bool) (*FileLogger, error) {
	path := filepath.Join(dir, cfg.File.Name)
	if err := Rotate(path, path+cfg.File.BackupSuffix); err != nil {
		return nil, err
	}

	levelName := cfg.Level
	if debug {
		levelName = cfg.DebugLevel
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("logger level %q: %w", levelName, err)
	}

	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.File.MaxSizeMB,
		MaxBackups: cfg.File.MaxBackups,
	}

	return &FileLogger{
		Logger: newLogger(level, cfg.Console, sink),
		Path:   path,
		sink:   sink,
	}, nil
}

// Rotate moves path to backup, replacing any previous backup. A missing
// path is not an error.
func Rotate(path, backup string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := os.Rename(path, backup); err != nil {
		return fmt.Errorf("rotate %s: %w", path, err)
	}
	return nil
}
