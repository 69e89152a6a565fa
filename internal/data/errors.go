package data

// Shared constants for data-layer repositories.
const (
	sortDirAsc  = "ASC"
	sortDirDesc = "DESC"
)
