// Package session is the layer stringing the analyzer, the catalog, and
// the planner together behind the single entry point a wire-protocol front
// end needs. Logging convention: a *zap.Logger injected at construction,
// structured fields, no package-level logger.
package session

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sqlengine/internal/analyzer"
	"sqlengine/internal/ast"
	"sqlengine/internal/catalog"
	"sqlengine/internal/ir"
	"sqlengine/internal/planner"
	"sqlengine/internal/schemaexec"
	"sqlengine/internal/sqltype"
)

// EventKind discriminates the QueryEvent variants the engine emits.
type EventKind int

const (
	EventParseComplete EventKind = iota
	EventBindComplete
	EventSchemaCreated
	EventSchemaDropped
	EventTableCreated
	EventTableDropped
	EventIndexCreated
	EventStatementDescription
	EventStatementParameters
	EventRecordsInserted
	EventRecordsUpdated
	EventRecordsDeleted
	EventRecordsSelected
)

// QueryEvent is the typed result of executing one statement.
type QueryEvent struct {
	Kind EventKind

	ParamFamilies []sqltype.Family
	Description   []planner.SelectColumn
	Select        *planner.SelectOutput
	Count         int
}

// ParseFunc adapts an external SQL parser so a Query command can carry raw
// SQL text. The core itself never lexes SQL; front ends inject
// whatever parser they speak.
type ParseFunc func(sql string) (ast.Statement, error)

// CommandKind discriminates the wire-facing Command sum type.
type CommandKind int

const (
	CommandParse CommandKind = iota
	CommandBind
	CommandDescribeStatement
	CommandExecute
	CommandQuery
)

// Command is one request from the wire layer: a pre-parsed statement for
// the extended flow (Parse/DescribeStatement/Execute), bound parameter
// values for Bind, or raw SQL for the simple Query flow.
type Command struct {
	Kind      CommandKind
	Statement ast.Statement
	Params    []ir.TypedValue
	RawSQL    string
}

// Session is one client connection's handle: its own uuid, its own logger
// fields, its prepared-statement slot, and a shared *catalog.Catalog (the
// catalog's internal maps are already safe for concurrent use across
// sessions).
type Session struct {
	ID       uuid.UUID
	catalog  *catalog.Catalog
	analyzer *analyzer.Analyzer
	parse    ParseFunc
	log      *zap.Logger

	prepared *ast.Statement
	bound    []ir.TypedValue
}

// New opens a session against an already-bootstrapped catalog. log may be
// nil, in which case a no-op logger is used. A session opened with New
// rejects Query commands; use NewWithParser when raw SQL must be accepted.
func New(cat *catalog.Catalog, log *zap.Logger) *Session {
	return NewWithParser(cat, nil, log)
}

// NewWithParser opens a session that additionally accepts Query commands,
// routing their raw SQL through parse.
func NewWithParser(cat *catalog.Catalog, parse ParseFunc, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()
	return &Session{
		ID:       id,
		catalog:  cat,
		analyzer: analyzer.New(cat),
		parse:    parse,
		log:      log.With(zap.String("session_id", id.String())),
	}
}

// Handle dispatches one wire-layer Command. The extended flow
// is Parse → DescribeStatement → Bind → Execute against the session's
// single prepared-statement slot; Query parses and executes in one step.
func (s *Session) Handle(cmd Command) (QueryEvent, error) {
	switch cmd.Kind {
	case CommandParse:
		if _, err := s.analyzer.Analyze(cmd.Statement); err != nil {
			return QueryEvent{}, err
		}
		stmt := cmd.Statement
		s.prepared = &stmt
		s.bound = nil
		return QueryEvent{Kind: EventParseComplete}, nil
	case CommandBind:
		if s.prepared == nil {
			return QueryEvent{}, fmt.Errorf("session: bind without a prepared statement")
		}
		s.bound = cmd.Params
		return QueryEvent{Kind: EventBindComplete}, nil
	case CommandDescribeStatement:
		if s.prepared == nil {
			return QueryEvent{}, fmt.Errorf("session: describe without a prepared statement")
		}
		return s.Describe(*s.prepared)
	case CommandExecute:
		if s.prepared == nil {
			return QueryEvent{}, fmt.Errorf("session: execute without a prepared statement")
		}
		return s.Execute(*s.prepared, s.bound)
	case CommandQuery:
		if s.parse == nil {
			return QueryEvent{}, fmt.Errorf("session: no parser attached; open the session with NewWithParser to accept raw SQL")
		}
		stmt, err := s.parse(cmd.RawSQL)
		if err != nil {
			return QueryEvent{}, err
		}
		return s.Execute(stmt, nil)
	default:
		return QueryEvent{}, fmt.Errorf("session: unknown command kind %d", cmd.Kind)
	}
}

// Describe runs analyzer name/type resolution without executing anything, for the
// wire layer's DescribeStatement / StatementParameters round trip. A SELECT
// additionally reports its result columns as a StatementDescription.
func (s *Session) Describe(stmt ast.Statement) (QueryEvent, error) {
	families, cols, err := s.analyzer.Describe(stmt)
	if err != nil {
		s.log.Debug("describe failed", zap.Error(err))
		return QueryEvent{}, err
	}
	event := QueryEvent{Kind: EventStatementParameters, ParamFamilies: families}
	if cols != nil {
		event.Kind = EventStatementDescription
		event.Description = make([]planner.SelectColumn, len(cols))
		for i, c := range cols {
			event.Description[i] = planner.SelectColumn{Name: c.Name, Type: c.Type.String()}
		}
	}
	return event, nil
}

// Execute analyzes stmt, then routes it to the catalog (DDL) or the
// planner (DML/query), returning the typed QueryEvent the wire layer
// reports.
func (s *Session) Execute(stmt ast.Statement, params []ir.TypedValue) (QueryEvent, error) {
	res, err := s.analyzer.Analyze(stmt)
	if err != nil {
		s.log.Debug("analyze failed", zap.Error(err))
		return QueryEvent{}, err
	}

	switch res.Kind {
	case analyzer.ResultDataDefinition:
		return s.executeSchemaChange(res.SchemaChange)
	case analyzer.ResultInsert:
		n, err := planner.RunInsert(s.catalog.Backing(), res.Insert, params)
		if err != nil {
			return QueryEvent{}, err
		}
		s.log.Info("insert", zap.Int("count", n))
		return QueryEvent{Kind: EventRecordsInserted, Count: n}, nil
	case analyzer.ResultUpdate:
		def, ok, err := s.catalog.Table(res.Update.Schema, res.Update.Table)
		if err != nil {
			return QueryEvent{}, err
		}
		if !ok {
			return QueryEvent{}, &catalog.TableDoesNotExistError{Schema: res.Update.Schema, Table: res.Update.Table}
		}
		n, err := planner.RunUpdate(s.catalog.Backing(), def, res.Update, params)
		if err != nil {
			return QueryEvent{}, err
		}
		s.log.Info("update", zap.Int("count", n))
		return QueryEvent{Kind: EventRecordsUpdated, Count: n}, nil
	case analyzer.ResultDelete:
		n, err := planner.RunDelete(s.catalog.Backing(), res.Delete.Schema, res.Delete.Table)
		if err != nil {
			return QueryEvent{}, err
		}
		s.log.Info("delete", zap.Int("count", n))
		return QueryEvent{Kind: EventRecordsDeleted, Count: n}, nil
	case analyzer.ResultSelect:
		def, ok, err := s.catalog.Table(res.Select.Schema, res.Select.Table)
		if err != nil {
			return QueryEvent{}, err
		}
		if !ok {
			return QueryEvent{}, &catalog.TableDoesNotExistError{Schema: res.Select.Schema, Table: res.Select.Table}
		}
		out, err := planner.RunSelect(s.catalog.Backing(), def, res.Select)
		if err != nil {
			return QueryEvent{}, err
		}
		return QueryEvent{Kind: EventRecordsSelected, Select: out}, nil
	default:
		return QueryEvent{}, fmt.Errorf("session: unhandled analyzer result kind %d", res.Kind)
	}
}

func (s *Session) executeSchemaChange(req catalog.Request) (QueryEvent, error) {
	plan := schemaexec.BuildPlan(req)
	s.log.Debug("schema change plan", zap.Int("steps", len(plan)))

	if err := s.catalog.Apply(req); err != nil {
		s.log.Info("schema change failed", zap.Error(err))
		return QueryEvent{}, err
	}

	switch req.Kind {
	case catalog.CreateSchema:
		return QueryEvent{Kind: EventSchemaCreated}, nil
	case catalog.DropSchemas:
		return QueryEvent{Kind: EventSchemaDropped}, nil
	case catalog.CreateTable:
		return QueryEvent{Kind: EventTableCreated}, nil
	case catalog.DropTables:
		return QueryEvent{Kind: EventTableDropped}, nil
	case catalog.CreateIndex:
		return QueryEvent{Kind: EventIndexCreated}, nil
	default:
		panic("session: unknown request kind")
	}
}
