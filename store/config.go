package store

// Default physical names for the report table and its coarse index.
const (
	DefaultTable = "driver-infrastructure-reports"
	DefaultIndex = "gsi1"
)

// Config holds the physical table configuration for the Store.
type Config struct {
	// Table is the DynamoDB table holding all report records.
	Table string

	// Index is the global secondary index keyed by the coarse gsi1pk
	// attribute, with the table sort key reused as its sort key.
	Index string
}

// DefaultConfig returns the stock table and index names.
func DefaultConfig() Config {
	return Config{
		Table: DefaultTable,
		Index: DefaultIndex,
	}
}

// validate fills in defaults for unset fields.
func (c *Config) validate() {
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.Index == "" {
		c.Index = DefaultIndex
	}
}
