// Package platform is the entry point to a platform configuration. It
// loads platform.xml for an install location and keeps it usable when
// the file is damaged, then exposes the enabled sites and saves changes
// back safely.
//
// # Loading
//
// [Initialize] reads the configuration file through a recovery chain:
//
//  1. the configuration file itself
//  2. <file>.tmp, left behind by a save that did not finish
//  3. the newest <millis>.xml backup next to the file
//
// A configuration recovered from steps 2 or 3 is marked dirty so the next
// [PlatformConfiguration.Save] writes it back under its real name. When
// every step fails the error of step 1 is logged and an empty
// configuration is used instead.
//
// After loading, the linked configuration named by the shared_ur
// attribute is layered underneath, and the sites contributed by
// <install>/links/*.link files are added.
//
// # Saving
//
// [PlatformConfiguration.Save] writes <file>.tmp, checks that it reads
// back, rotates the current file into a backup and renames the temporary
// file into place. Old backups beyond the retention count are pruned.
package platform
