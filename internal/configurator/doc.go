// Package configurator holds the in-memory model of a platform
// configuration: the sites (install locations) it names, the features each
// site contributes, and the change stamps used to skip rescanning unchanged
// directory trees.
//
// # Model
//
// A [Configuration] maps canonical site URLs to [SiteEntry] values and may
// sit on top of a linked, read-only Configuration whose sites are merged in
// at read time. A SiteEntry lazily scans its features/ and plugins/
// directories and caches one [FeatureEntry] per feature id, keeping the
// highest version when several are found.
//
// # Persistence
//
// [Read] and [Configuration.Write] convert between a Configuration and the
// platform.xml document. The feature.xml files inside a site are read by a
// [FeatureParser], which only looks at the root element's attributes.
//
// # Concurrency
//
// Every SiteEntry guards its caches with a mutex, so concurrent callers of
// [SiteEntry.FeatureEntries] observe at most one detection pass. A
// Configuration guards its maps with a read/write mutex.
package configurator
