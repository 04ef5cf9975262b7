package hub

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"agents-chat/internal/utils"
)

type Settings struct {
	LastAgent int `json:"lastAgent,omitempty"`
}

func (s *Server) SettingsPath() string {
	return filepath.Join(s.cfg.DataDir, "settings.json")
}

func (s *Server) LoadSettings() error {
	if s.cfg.Ephemeral {
		return nil
	}
	data, err := os.ReadFile(s.SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "read settings")
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		s.logger.Warnf("ignoring unreadable settings: %v", err)
		return nil
	}
	s.settingsMu.Lock()
	s.settings = settings
	s.settingsMu.Unlock()
	return nil
}

func (s *Server) SaveSettings() error {
	if s.cfg.Ephemeral {
		return nil
	}
	if err := s.EnsureDataDir(); err != nil {
		return err
	}
	s.settingsMu.Lock()
	data, err := json.MarshalIndent(s.settings, "", "  ")
	s.settingsMu.Unlock()
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}
	return utils.WriteFileAtomic(s.SettingsPath(), data, 0o644)
}

func (s *Server) UpdateLastAgent(id int) {
	if id <= 0 {
		return
	}
	s.settingsMu.Lock()
	if s.settings.LastAgent == id {
		s.settingsMu.Unlock()
		return
	}
	s.settings.LastAgent = id
	s.settingsMu.Unlock()
	if err := s.SaveSettings(); err != nil {
		s.logger.Warnf("failed to save settings: %v", err)
	}
}

// LastAgent returns the remembered selection if it still exists in the catalog.
func (s *Server) LastAgent() (int, bool) {
	s.settingsMu.Lock()
	id := s.settings.LastAgent
	s.settingsMu.Unlock()
	if _, ok := s.catalog.GetAgent(id); !ok {
		return 0, false
	}
	return id, true
}
