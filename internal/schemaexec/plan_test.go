package schemaexec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sqlengine/internal/catalog"
	"sqlengine/internal/schemaexec"
)

func TestCreateSchemaPlanOrdersRecordBeforeFolder(t *testing.T) {
	plan := schemaexec.BuildPlan(catalog.Request{Kind: catalog.CreateSchema, SchemaNames: []string{"s"}})
	require_ := assert.New(t)
	require_.Equal(schemaexec.CreateRecord, plan[1].Kind)
	require_.Equal(schemaexec.CreateFolder, plan[2].Kind)
}

func TestDropSchemasPlanOrdersColumnsBeforeTablesBeforeSchemata(t *testing.T) {
	plan := schemaexec.BuildPlan(catalog.Request{Kind: catalog.DropSchemas, SchemaNames: []string{"s"}, Cascade: true})
	var kinds []schemaexec.StepKind
	for _, step := range plan {
		kinds = append(kinds, step.Kind)
	}
	assert.Contains(t, kinds, schemaexec.RemoveColumns)
	assert.NotContains(t, kinds, schemaexec.CheckDependants, "CASCADE skips the dependants check")

	colIdx, tableIdx, schemaIdx := -1, -1, -1
	for i, k := range kinds {
		switch k {
		case schemaexec.RemoveColumns:
			colIdx = i
		case schemaexec.RemoveRecord:
			if tableIdx == -1 {
				tableIdx = i
			} else {
				schemaIdx = i
			}
		}
	}
	assert.True(t, colIdx < tableIdx && tableIdx < schemaIdx)
}

func TestDropSchemasWithoutCascadeChecksDependants(t *testing.T) {
	plan := schemaexec.BuildPlan(catalog.Request{Kind: catalog.DropSchemas, SchemaNames: []string{"s"}})
	found := false
	for _, step := range plan {
		if step.Kind == schemaexec.CheckDependants {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCreateTablePlanSkipsOnIfNotExists(t *testing.T) {
	plan := schemaexec.BuildPlan(catalog.Request{Kind: catalog.CreateTable, Schema: "s", Table: "t", IfNotExists: true})
	assert.Equal(t, schemaexec.SkipIfExists, plan[1].SkipIf)
}
