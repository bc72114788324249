// Package backup keeps timestamped copies of a platform configuration file.
//
// Backups live next to the file they protect and are named after the time
// they were taken in Unix milliseconds:
//
//	configuration/
//	├── platform.xml
//	├── 1717243200000.xml
//	└── 1717156800000.xml
//
// Because the names have a fixed width, lexical order is chronological
// order, and the most recent backup is the lexically last *.xml file other
// than the configuration file itself.
//
// # Rotating
//
// [Manager.Rotate] moves the current file aside as a new backup, just
// before a fresh copy is renamed into place:
//
//	mgr := backup.NewManager("/opt/eclipse/configuration/platform.xml")
//	b, err := mgr.Rotate()
//
// # Listing and Pruning
//
// [Manager.List] returns backups newest first, [Manager.Latest] the most
// recent one, and [Manager.Prune] removes all but the newest n:
//
//	removed, err := mgr.Prune(5)
//
// # Restoring
//
// [Manager.Restore] atomically replaces the configuration file with the
// contents of a backup, after rotating the current file so the restore
// itself can be undone.
package backup
