package sqlstore

import "github.com/uptrace/bun"

// cellRow maps to the 'cells' table: one row per cell region.
type cellRow struct {
	bun.BaseModel `bun:"table:cells"`
	Region        string `bun:"region,pk"`
	Value         []byte `bun:"value"`
}

// kvRow maps to the 'kv' table. Keys are BLOBs; SQLite compares BLOBs
// bytewise, so ORDER BY k matches the ordered-map contract.
type kvRow struct {
	bun.BaseModel `bun:"table:kv"`
	Region        string `bun:"region,pk"`
	Key           []byte `bun:"k,pk"`
	Value         []byte `bun:"v"`
}

// logRow maps to the 'logs' table: one row per appended entry.
type logRow struct {
	bun.BaseModel `bun:"table:logs"`
	Region        string `bun:"region,pk"`
	Idx           uint64 `bun:"idx,pk"`
	Value         []byte `bun:"v"`
}

// regionRow maps to the 'regions' table recording which shape a region is
// bound to, so a region is never reused for another purpose.
type regionRow struct {
	bun.BaseModel `bun:"table:regions"`
	Region        string `bun:"region,pk"`
	Shape         string `bun:"shape,notnull"`
}
