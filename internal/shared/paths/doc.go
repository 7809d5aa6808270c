// Package paths provides the on-disk layout of the library provider.
//
// # Directory Structure
//
//	<data>/                  ($XDG_DATA_HOME/playtron/plugins/local)
//	  ├── apps/              (install records, one <app_id>.json each)
//	  ├── library/           (home library scan root)
//	  └── account.json       (current account, optional)
//
// Removable roots live outside the data directory and are discovered by
// the mounts package.
//
// # Usage
//
//	layout := paths.NewLayout("")
//	recordPath := layout.RecordPath("game1")  // <data>/apps/game1.json
//
//	if err := paths.ValidateAppID(id); err != nil {
//	    // reject before building any path from id
//	}
package paths
