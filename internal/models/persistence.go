package models

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Transcript is a complete episode as seen by a client: the scenario, every
// step payload and, once the game ends, the debrief.
type Transcript struct {
	Game    Game             `yaml:"game"`
	Steps   []StepResponse   `yaml:"steps"`
	Choices []string         `yaml:"choices,omitempty"`
	Debrief *DebriefResponse `yaml:"debrief,omitempty"`
}

const transcriptExt = ".yaml"

// Save writes the transcript to dir/<game id>.yaml and returns the path.
func (t *Transcript) Save(dir string) (string, error) {
	if t.Game.ID == "" {
		return "", fmt.Errorf("transcript has no game id")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(t)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, t.Game.ID+transcriptExt)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// LoadTranscript reads dir/<gameID>.yaml.
func LoadTranscript(dir, gameID string) (*Transcript, error) {
	data, err := os.ReadFile(filepath.Join(dir, gameID+transcriptExt))
	if err != nil {
		return nil, err
	}
	var t Transcript
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse transcript %s: %w", gameID, err)
	}
	return &t, nil
}

// ListTranscripts returns the game ids saved in dir, sorted.
func ListTranscripts(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), transcriptExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), transcriptExt))
	}
	sort.Strings(ids)
	return ids, nil
}
