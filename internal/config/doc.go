// Package config loads platconf's own settings with Viper.
//
// Settings come, in increasing precedence, from defaults, a config.yaml in
// the working directory or the platconf XDG config directory, and
// PLATCONF_* environment variables:
//
//	version: 1
//	install_location: /opt/eclipse
//	configuration: /opt/eclipse/configuration/platform.xml
//	environment:
//	  os: linux
//	  ws: gtk
//	  arch: x86_64
//	  nl: en_US
//	backup:
//	  retention: 5
//	log:
//	  format: text
//
// Nested keys map to environment variables with dots replaced by
// underscores, e.g. PLATCONF_BACKUP_RETENTION.
package config
