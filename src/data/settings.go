package data

import (
	"log"
	"strings"
	"sync"

	"github.com/stake-plus/giveaways/src/shared/giveaway"
	"gorm.io/gorm"
)

var (
	settingsCache map[string]string
	settingsMu    sync.RWMutex
)

// LoadSettings replaces the in-process settings snapshot with the active
// rows of the settings table. Both processes call it once at startup.
func LoadSettings(db *gorm.DB) error {
	var rows []giveaway.Setting
	if err := db.Where("active = ?", 1).Find(&rows).Error; err != nil {
		return err
	}

	next := make(map[string]string, len(rows))
	for _, s := range rows {
		next[strings.TrimSpace(s.Name)] = strings.TrimSpace(s.Value)
	}

	settingsMu.Lock()
	settingsCache = next
	settingsMu.Unlock()

	log.Printf("settings: loaded %d active setting(s)", len(next))
	return nil
}

// GetSetting returns the cached value, or "" when unset.
func GetSetting(name string) string {
	v, _ := LookupSetting(name)
	return v
}

// LookupSetting reports whether name is present in the snapshot.
func LookupSetting(name string) (string, bool) {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	v, ok := settingsCache[name]
	return v, ok
}

// SetSettingsForTest replaces the cached settings.
func SetSettingsForTest(values map[string]string) {
	next := make(map[string]string, len(values))
	for k, v := range values {
		next[k] = v
	}
	settingsMu.Lock()
	settingsCache = next
	settingsMu.Unlock()
}
