package am

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/logger"
)

// UIConfigFileName is the file in ~/.framemark holding settings changed from the UI.
const UIConfigFileName = "am_from_ui.toml"

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		// don't fail the save over a stale backup
		logger.Warnw("Failed to delete old config backup", logger.FieldPath, back3, logger.FieldError, err.Error())
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}

// GetUIConfigPath returns the path to ~/.framemark/am_from_ui.toml
func GetUIConfigPath() string {
	dir := UserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, UIConfigFileName)
}

// loadOrInitializeUIConfig loads the UI config file, or an empty map if it doesn't exist
func loadOrInitializeUIConfig() (map[string]interface{}, string, error) {
	configPath := GetUIConfigPath()
	if configPath == "" {
		return nil, "", errors.New("could not determine home directory")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return nil, "", errors.Wrap(err, "failed to create .framemark directory")
	}

	config := make(map[string]interface{})
	if data, err := os.ReadFile(configPath); err == nil {
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, "", errors.Wrapf(err, "failed to parse UI config %s", configPath)
		}
	}
	return config, configPath, nil
}

// saveUIConfig writes the config to the UI config file with backup
func saveUIConfig(config map[string]interface{}, configPath string) error {
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// Mark this as our own write to prevent reload loops
	if w := GetGlobalWatcher(); w != nil {
		w.MarkOwnWrite(configPath)
	}

	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write UI config")
	}
	return nil
}

// updateUIValue sets section.key in the UI config file.
func updateUIValue(section, key string, value interface{}) error {
	config, configPath, err := loadOrInitializeUIConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load UI config")
	}

	table, ok := config[section].(map[string]interface{})
	if !ok {
		table = make(map[string]interface{})
	}
	table[key] = value
	config[section] = table

	return saveUIConfig(config, configPath)
}

// UpdateAnnotationMode persists annotation.mode.
func UpdateAnnotationMode(mode string) error {
	return updateUIValue("annotation", "mode", mode)
}

// UpdateCopyBox persists annotation.copy_box.
func UpdateCopyBox(enabled bool) error {
	return updateUIValue("annotation", "copy_box", enabled)
}

// UpdateCopyLocation persists annotation.copy_location.
func UpdateCopyLocation(enabled bool) error {
	return updateUIValue("annotation", "copy_location", enabled)
}
