package soep

// TableID identifies the destination of an exported table, usually a database table name.
// Users of the library may want to add more fields, like a schema name.
type TableID interface {
	TableID() string
	TableName() string
}

// TableName implements TableID with a simple table name.
type TableName string

func (t TableName) TableID() string {
	return string(t)
}

func (t TableName) TableName() string {
	return string(t)
}

// SchemaTableName implements TableID with a schema and a table name.
type SchemaTableName struct {
	schema    string
	tableName string
}

var _ TableID = SchemaTableName{}

// NewSchemaTableName returns a TableID for a table inside a database schema.
func NewSchemaTableName(schema string, tableName string) SchemaTableName {
	return SchemaTableName{
		schema:    schema,
		tableName: tableName,
	}
}

func (t SchemaTableName) TableID() string {
	if t.schema == "" {
		return t.tableName
	}
	return t.schema + "." + t.tableName
}

func (t SchemaTableName) TableName() string {
	return t.tableName
}

func (t SchemaTableName) Schema() string {
	return t.schema
}
