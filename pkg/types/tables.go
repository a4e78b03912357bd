package types

// Logical table names. Backends persist the same logical layout and Export
// writes one file per table.
const (
	ObjectTypesTable     = "object_types"
	ObjectFieldsTable    = "object_fields"
	FieldTemplatesTable  = "field_templates"
	FieldOverridesTable  = "object_field_overrides"
	ObjectsTable         = "objects"
	ObjectDataTable      = "object_data"
	ObjectRelationsTable = "object_relations"
	RelationTypesTable   = "relation_types"
	RelationRulesTable   = "relation_type_rules"
)

// StandardTableNames lists the logical tables in dependency order.
var StandardTableNames = []string{
	ObjectTypesTable,
	FieldTemplatesTable,
	ObjectFieldsTable,
	ObjectsTable,
	ObjectDataTable,
	FieldOverridesTable,
	RelationTypesTable,
	RelationRulesTable,
	ObjectRelationsTable,
}
