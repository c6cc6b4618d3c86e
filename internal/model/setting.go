package model

import "time"

const (
	SettingDriveRefreshToken   = "drive_refresh_token"
	SettingDriveConnectedEmail = "drive_connected_email"
	SettingDriveConnectedAt    = "drive_connected_at"
)

type Setting struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}
