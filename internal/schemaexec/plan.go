package schemaexec

import (
	"fmt"

	"sqlengine/internal/catalog"
)

// BuildPlan produces the ordered Step trace a catalog.Request will take,
// matching catalog.Apply's actual ordering (COLUMNS -> TABLES -> SCHEMATA
// on drop, the reverse on create). It does not execute anything itself.
func BuildPlan(req catalog.Request) Plan {
	switch req.Kind {
	case catalog.CreateSchema:
		return createSchemaPlan(req)
	case catalog.DropSchemas:
		return dropSchemasPlan(req)
	case catalog.CreateTable:
		return createTablePlan(req)
	case catalog.DropTables:
		return dropTablesPlan(req)
	case catalog.CreateIndex:
		return createIndexPlan(req)
	default:
		panic("schemaexec: unknown request kind")
	}
}

func createSchemaPlan(req catalog.Request) Plan {
	var plan Plan
	skip := SkipNever
	if req.IfNotExists {
		skip = SkipIfExists
	}
	for _, name := range req.SchemaNames {
		plan = append(plan,
			Step{Kind: CheckExistence, Target: name, SkipIf: skip},
			Step{Kind: CreateRecord, Target: "SCHEMATA:" + name},
			Step{Kind: CreateFolder, Target: name},
		)
	}
	return plan
}

func dropSchemasPlan(req catalog.Request) Plan {
	var plan Plan
	skip := SkipNever
	if req.IfExists {
		skip = SkipIfNotExists
	}
	for _, name := range req.SchemaNames {
		plan = append(plan, Step{Kind: CheckExistence, Target: name, SkipIf: skip})
		if !req.Cascade {
			plan = append(plan, Step{Kind: CheckDependants, Target: name})
		}
		plan = append(plan,
			Step{Kind: RemoveColumns, Target: name},
			Step{Kind: RemoveRecord, Target: "TABLES:" + name},
			Step{Kind: RemoveRecord, Target: "SCHEMATA:" + name},
			Step{Kind: RemoveFolder, Target: name},
		)
	}
	return plan
}

func createTablePlan(req catalog.Request) Plan {
	skip := SkipNever
	if req.IfNotExists {
		skip = SkipIfExists
	}
	target := fmt.Sprintf("%s.%s", req.Schema, req.Table)
	return Plan{
		Step{Kind: CheckExistence, Target: req.Schema},
		Step{Kind: CheckExistence, Target: target, SkipIf: skip},
		Step{Kind: CreateRecord, Target: "TABLES:" + target},
		Step{Kind: CreateRecord, Target: "COLUMNS:" + target},
		Step{Kind: CreateFile, Target: target},
	}
}

func dropTablesPlan(req catalog.Request) Plan {
	skip := SkipNever
	if req.IfExists {
		skip = SkipIfNotExists
	}
	target := fmt.Sprintf("%s.%s", req.Schema, req.Table)
	return Plan{
		Step{Kind: CheckExistence, Target: req.Schema},
		Step{Kind: CheckExistence, Target: target, SkipIf: skip},
		Step{Kind: RemoveColumns, Target: target},
		Step{Kind: RemoveRecord, Target: "TABLES:" + target},
		Step{Kind: RemoveFile, Target: target},
	}
}

func createIndexPlan(req catalog.Request) Plan {
	target := fmt.Sprintf("%s.%s", req.Schema, req.Table)
	return Plan{
		Step{Kind: CheckExistence, Target: target},
		Step{Kind: CheckDependants, Target: target + "." + req.IndexName},
		Step{Kind: CreateRecord, Target: "INDEXES:" + target + "." + req.IndexName},
		Step{Kind: CreateFile, Target: target + "#" + req.IndexName},
	}
}
