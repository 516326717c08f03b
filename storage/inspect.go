package storage

import (
	"encoding/json"
	"fmt"

	"github.com/mama165/sdk-go/database"
)

// InspectRow describes a local key for the debug inspector. Tokens are never shown.
func InspectRow(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	switch key {
	case sessionKey:
		row.Type = "SESSION"
		var disk diskSession
		if err := json.Unmarshal(val, &disk); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Detail = fmt.Sprintf("%s (%s) expires %s", disk.Email, disk.UserID, disk.ExpiresAt.Format("2006-01-02 15:04"))
	case consentKey:
		row.Type = "CONSENT"
		row.Detail = string(val)
	}
	return row
}
