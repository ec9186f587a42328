/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package integrity reports and repairs inconsistencies between the
// configuration files, the games database and the ROM directories.
package integrity

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/pingax/gem-sub001/internal/db"
	"github.com/pingax/gem-sub001/internal/engine"
)

type FindingType string

const (
	FindingConsoleMissingDirectory FindingType = "console_missing_directory"
	FindingEmulatorMissingBinary   FindingType = "emulator_missing_binary"
	FindingOrphanGameRow           FindingType = "orphan_game_row"
	FindingOrphanEnvironment       FindingType = "orphan_environment"
	FindingUnknownGameEmulator     FindingType = "unknown_game_emulator"
)

type Finding struct {
	ID         string
	Type       FindingType
	Severity   string
	Summary    string
	ResourceID string
	Repairable bool
	Details    map[string]any
}

type Report struct {
	GeneratedAt time.Time
	Total       int
	ByType      map[FindingType]int
	Findings    []Finding
}

type RepairInput struct {
	Type       FindingType
	ResourceID string
}

type RepairResult struct {
	Changed bool
	Message string
}

type Service struct {
	lib    *engine.API
	logger zerolog.Logger
}

func NewService(lib *engine.API, logger zerolog.Logger) *Service {
	return &Service{
		lib:    lib,
		logger: logger.With().Str("component", "integrity").Logger(),
	}
}

// Scan rescans every console, then compares the library with the database
// and environment.conf.
func (s *Service) Scan(ctx context.Context) (*Report, error) {
	if s.lib.Database() == nil {
		return nil, engine.ErrLockedInstance
	}

	findings := make([]Finding, 0, 32)
	scans := []func(context.Context) ([]Finding, error){
		s.scanConsoles,
		s.scanEmulators,
		s.scanOrphanGameRows,
		s.scanOrphanEnvironment,
		s.scanUnknownGameEmulators,
	}
	for _, scan := range scans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		added, err := scan(ctx)
		if err != nil {
			return nil, err
		}
		findings = append(findings, added...)
	}

	byType := make(map[FindingType]int)
	for _, f := range findings {
		byType[f.Type]++
	}

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Total:       len(findings),
		ByType:      byType,
		Findings:    findings,
	}

	if report.Total > 0 {
		s.logger.Warn().Int("total_findings", report.Total).Interface("by_type", byType).Msg("integrity scan completed with findings")
	} else {
		s.logger.Info().Msg("integrity scan completed with no findings")
	}

	return report, nil
}

func (s *Service) Repair(ctx context.Context, input RepairInput) (RepairResult, error) {
	if err := ctx.Err(); err != nil {
		return RepairResult{}, err
	}
	switch input.Type {
	case FindingConsoleMissingDirectory:
		return s.repairConsoleMissingDirectory(input)
	case FindingOrphanGameRow:
		return s.repairOrphanGameRow(input)
	case FindingOrphanEnvironment:
		return s.repairOrphanEnvironment(input)
	case FindingUnknownGameEmulator:
		return s.repairUnknownGameEmulator(input)
	default:
		return RepairResult{}, fmt.Errorf("unsupported finding type: %s", input.Type)
	}
}

func (s *Service) scanConsoles(ctx context.Context) ([]Finding, error) {
	var findings []Finding
	for _, c := range s.lib.GetConsoles() {
		err := c.InitGames()
		if err == nil {
			continue
		}
		findings = append(findings, Finding{
			ID:         findingID(FindingConsoleMissingDirectory, c.ID),
			Type:       FindingConsoleMissingDirectory,
			Severity:   "high",
			Summary:    "Console ROM directory cannot be scanned",
			ResourceID: c.ID,
			Repairable: c.Path != "",
			Details: map[string]any{
				"path":  c.Path,
				"error": err.Error(),
			},
		})
	}
	return findings, nil
}

func (s *Service) scanEmulators(ctx context.Context) ([]Finding, error) {
	var findings []Finding
	for _, e := range s.lib.GetEmulators() {
		if e.Exists() {
			continue
		}
		findings = append(findings, Finding{
			ID:         findingID(FindingEmulatorMissingBinary, e.ID),
			Type:       FindingEmulatorMissingBinary,
			Severity:   "medium",
			Summary:    "Emulator binary is not installed",
			ResourceID: e.ID,
			Details: map[string]any{
				"binary": e.Binary,
			},
		})
	}
	return findings, nil
}

// scannedFilenames returns the file names of the games found by the last
// console scans.
func (s *Service) scannedFilenames() map[string]bool {
	names := make(map[string]bool)
	for _, g := range s.lib.GetGames() {
		names[g.Filename()] = true
	}
	return names
}

func (s *Service) scanOrphanGameRows(ctx context.Context) ([]Finding, error) {
	values, err := s.lib.Database().Values("games", "filename", nil)
	if err != nil {
		return nil, err
	}

	scanned := s.scannedFilenames()
	var findings []Finding
	for _, value := range values {
		filename, ok := value.(string)
		if !ok || scanned[filename] {
			continue
		}
		findings = append(findings, Finding{
			ID:         findingID(FindingOrphanGameRow, filename),
			Type:       FindingOrphanGameRow,
			Severity:   "low",
			Summary:    "Game row has no ROM in any console",
			ResourceID: filename,
			Repairable: true,
		})
	}
	return findings, nil
}

func (s *Service) scanOrphanEnvironment(ctx context.Context) ([]Finding, error) {
	env := s.lib.Environment()
	if env == nil {
		return nil, nil
	}

	known := make(map[string]bool)
	for _, g := range s.lib.GetGames() {
		known[g.ID] = true
	}

	var findings []Finding
	for _, section := range env.Sections() {
		if known[section] {
			continue
		}
		findings = append(findings, Finding{
			ID:         findingID(FindingOrphanEnvironment, section),
			Type:       FindingOrphanEnvironment,
			Severity:   "low",
			Summary:    "Environment section does not match any game",
			ResourceID: section,
			Repairable: true,
		})
	}
	return findings, nil
}

func (s *Service) scanUnknownGameEmulators(ctx context.Context) ([]Finding, error) {
	values, err := s.lib.Database().Values("games", "emulator", nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var findings []Finding
	for _, value := range values {
		name, ok := value.(string)
		if !ok || name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if s.lib.GetEmulator(name) != nil {
			continue
		}
		findings = append(findings, Finding{
			ID:         findingID(FindingUnknownGameEmulator, name),
			Type:       FindingUnknownGameEmulator,
			Severity:   "medium",
			Summary:    "Games reference an emulator that is not configured",
			ResourceID: name,
			Repairable: true,
		})
	}
	return findings, nil
}

func (s *Service) repairConsoleMissingDirectory(input RepairInput) (RepairResult, error) {
	c := s.lib.GetConsole(input.ResourceID)
	if c == nil {
		return RepairResult{}, fmt.Errorf("%w: console %s", engine.ErrUnknownID, input.ResourceID)
	}
	if info, err := os.Stat(c.Path); err == nil && info.IsDir() {
		return RepairResult{Changed: false, Message: "directory already exists"}, nil
	}
	if err := os.MkdirAll(c.Path, 0o755); err != nil {
		return RepairResult{}, err
	}
	return RepairResult{Changed: true, Message: "directory created"}, nil
}

func (s *Service) repairOrphanGameRow(input RepairInput) (RepairResult, error) {
	where := db.Row{"filename": input.ResourceID}
	row, err := s.lib.Database().Get("games", where)
	if err != nil {
		return RepairResult{}, err
	}
	if row == nil {
		return RepairResult{Changed: false, Message: "row already removed"}, nil
	}
	if err := s.lib.Database().Remove("games", where); err != nil {
		return RepairResult{}, err
	}
	return RepairResult{Changed: true, Message: "row removed"}, nil
}

func (s *Service) repairOrphanEnvironment(input RepairInput) (RepairResult, error) {
	env := s.lib.Environment()
	if env == nil || !env.RemoveSection(input.ResourceID) {
		return RepairResult{Changed: false, Message: "section already removed"}, nil
	}
	if err := env.Update(); err != nil {
		return RepairResult{}, err
	}
	return RepairResult{Changed: true, Message: "section removed"}, nil
}

func (s *Service) repairUnknownGameEmulator(input RepairInput) (RepairResult, error) {
	where := db.Row{"emulator": input.ResourceID}
	rows, err := s.lib.Database().Values("games", "filename", where)
	if err != nil {
		return RepairResult{}, err
	}
	if len(rows) == 0 {
		return RepairResult{Changed: false, Message: "no game uses this emulator"}, nil
	}
	if err := s.lib.Database().Update("games", db.Row{"emulator": nil}, where); err != nil {
		return RepairResult{}, err
	}
	return RepairResult{Changed: true, Message: fmt.Sprintf("%d games reset to the console emulator", len(rows))}, nil
}

func findingID(t FindingType, resourceID string) string {
	return fmt.Sprintf("%s|%s", t, resourceID)
}
