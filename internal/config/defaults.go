package config

// GetDefaultSettings returns the stock settings applied before any user or
// project overlay. The numeric ids match the common first-user account on
// most distributions; all roots live under /opt/stackctl so a bare
// "stackctl install" works on a fresh host.
func GetDefaultSettings() Settings {
	return Settings{
		PUID:        "1000",
		PGID:        "1000",
		Timezone:    "Etc/UTC",
		DataRoot:    "/opt/stackctl/data",
		ConfigRoot:  "/opt/stackctl/config",
		InstallRoot: "/opt/stackctl",
		DBUser:      "stackctl",
	}
}
