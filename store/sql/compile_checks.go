package sqlstore

import "github.com/goliatone/go-dirsync/core"

var (
	_ core.RunStore = (*RunStore)(nil)
	_ core.RunStore = (*CachedRunStore)(nil)
)
