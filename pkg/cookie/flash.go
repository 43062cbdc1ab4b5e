package cookie

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const flashPrefix = "__flash_"

// SetFlash stores value as an encrypted one-shot cookie.
func (m *Manager) SetFlash(w http.ResponseWriter, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal flash: %w", err)
	}
	return m.SetEncrypted(w, flashPrefix+key, string(data))
}

// GetFlash decodes the flash into dest and deletes the cookie.
func (m *Manager) GetFlash(w http.ResponseWriter, r *http.Request, key string, dest any) error {
	name := flashPrefix + key
	data, err := m.GetEncrypted(r, name)
	if err != nil {
		return err
	}
	m.Delete(w, name)

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("unmarshal flash: %w", err)
	}
	return nil
}
