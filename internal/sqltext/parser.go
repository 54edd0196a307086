package sqltext

import (
	"fmt"
	"strings"

	"sqlengine/internal/ast"
)

// Parser recognizes one statement at a time from raw SQL text.
type Parser struct{}

// NewParser constructs a Parser. Parser carries no state between calls.
func NewParser() *Parser { return &Parser{} }

// Parse recognizes a single SQL statement.
func (p *Parser) Parse(sql string) (ast.Statement, error) {
	toks, err := lex(sql)
	if err != nil {
		return ast.Statement{}, err
	}
	ps := &parseState{toks: toks}
	stmt, err := ps.parseStatement()
	if err != nil {
		return ast.Statement{}, err
	}
	if ps.atPunct(";") {
		ps.advance()
	}
	if ps.cur().kind != tokEOF {
		return ast.Statement{}, fmt.Errorf("sqltext: unexpected trailing input near %q", ps.cur().text)
	}
	return stmt, nil
}

type parseState struct {
	toks []token
	pos  int
}

func (ps *parseState) cur() token { return ps.toks[ps.pos] }

func (ps *parseState) advance() token {
	t := ps.toks[ps.pos]
	if ps.pos < len(ps.toks)-1 {
		ps.pos++
	}
	return t
}

func (ps *parseState) atKeyword(kw string) bool {
	t := ps.cur()
	return t.kind == tokKeyword && t.text == kw
}

func (ps *parseState) atOp(op string) bool {
	t := ps.cur()
	return t.kind == tokOp && t.text == op
}

func (ps *parseState) atPunct(p string) bool {
	t := ps.cur()
	return t.kind == tokPunct && t.text == p
}

func (ps *parseState) expectKeyword(kw string) error {
	if !ps.atKeyword(kw) {
		return fmt.Errorf("sqltext: expected %s, got %q", kw, ps.cur().text)
	}
	ps.advance()
	return nil
}

func (ps *parseState) expectPunct(p string) error {
	if !ps.atPunct(p) {
		return fmt.Errorf("sqltext: expected %q, got %q", p, ps.cur().text)
	}
	ps.advance()
	return nil
}

func (ps *parseState) expectIdent() (string, error) {
	t := ps.cur()
	if t.kind != tokIdent {
		return "", fmt.Errorf("sqltext: expected identifier, got %q", t.text)
	}
	ps.advance()
	return t.raw, nil
}

func (ps *parseState) parseStatement() (ast.Statement, error) {
	switch {
	case ps.atKeyword("INSERT"):
		return ps.parseInsert()
	case ps.atKeyword("UPDATE"):
		return ps.parseUpdate()
	case ps.atKeyword("DELETE"):
		return ps.parseDelete()
	case ps.atKeyword("SELECT"):
		return ps.parseSelect()
	case ps.atKeyword("CREATE"), ps.atKeyword("DROP"):
		return ps.parseSchemaChange()
	default:
		return ast.Statement{}, fmt.Errorf("sqltext: unrecognized statement starting at %q", ps.cur().text)
	}
}

// parseTableRef parses `name` or `schema.name`.
func (ps *parseState) parseTableRef() (ast.TableRef, error) {
	first, err := ps.expectIdent()
	if err != nil {
		return ast.TableRef{}, err
	}
	if ps.atPunct(".") {
		ps.advance()
		second, err := ps.expectIdent()
		if err != nil {
			return ast.TableRef{}, err
		}
		return ast.TableRef{Schema: first, Table: second}, nil
	}
	return ast.TableRef{Table: first}, nil
}

func (ps *parseState) parseInsert() (ast.Statement, error) {
	if err := ps.expectKeyword("INSERT"); err != nil {
		return ast.Statement{}, err
	}
	if err := ps.expectKeyword("INTO"); err != nil {
		return ast.Statement{}, err
	}
	table, err := ps.parseTableRef()
	if err != nil {
		return ast.Statement{}, err
	}

	var columns []string
	if ps.atPunct("(") {
		ps.advance()
		for {
			name, err := ps.expectIdent()
			if err != nil {
				return ast.Statement{}, err
			}
			columns = append(columns, name)
			if ps.atPunct(",") {
				ps.advance()
				continue
			}
			break
		}
		if err := ps.expectPunct(")"); err != nil {
			return ast.Statement{}, err
		}
	}

	if err := ps.expectKeyword("VALUES"); err != nil {
		return ast.Statement{}, err
	}

	var rows [][]*ast.Expr
	for {
		if err := ps.expectPunct("("); err != nil {
			return ast.Statement{}, err
		}
		var row []*ast.Expr
		for {
			e, err := ps.parseExpr(0)
			if err != nil {
				return ast.Statement{}, err
			}
			row = append(row, e)
			if ps.atPunct(",") {
				ps.advance()
				continue
			}
			break
		}
		if err := ps.expectPunct(")"); err != nil {
			return ast.Statement{}, err
		}
		rows = append(rows, row)
		if ps.atPunct(",") {
			ps.advance()
			continue
		}
		break
	}

	return ast.Statement{Kind: ast.StmtInsert, Insert: &ast.InsertStmt{Table: table, Columns: columns, Rows: rows}}, nil
}

func (ps *parseState) parseUpdate() (ast.Statement, error) {
	if err := ps.expectKeyword("UPDATE"); err != nil {
		return ast.Statement{}, err
	}
	table, err := ps.parseTableRef()
	if err != nil {
		return ast.Statement{}, err
	}
	if err := ps.expectKeyword("SET"); err != nil {
		return ast.Statement{}, err
	}

	var set []ast.SetClause
	for {
		col, err := ps.expectIdent()
		if err != nil {
			return ast.Statement{}, err
		}
		if err := ps.expectOp("="); err != nil {
			return ast.Statement{}, err
		}
		val, err := ps.parseExpr(0)
		if err != nil {
			return ast.Statement{}, err
		}
		set = append(set, ast.SetClause{Column: col, Value: val})
		if ps.atPunct(",") {
			ps.advance()
			continue
		}
		break
	}

	if ps.atKeyword("WHERE") {
		return ast.Statement{}, fmt.Errorf("sqltext: WHERE clauses are not supported; UPDATE always applies to every row")
	}

	return ast.Statement{Kind: ast.StmtUpdate, Update: &ast.UpdateStmt{Table: table, Set: set}}, nil
}

func (ps *parseState) parseDelete() (ast.Statement, error) {
	if err := ps.expectKeyword("DELETE"); err != nil {
		return ast.Statement{}, err
	}
	if err := ps.expectKeyword("FROM"); err != nil {
		return ast.Statement{}, err
	}
	table, err := ps.parseTableRef()
	if err != nil {
		return ast.Statement{}, err
	}
	if ps.atKeyword("WHERE") {
		return ast.Statement{}, fmt.Errorf("sqltext: WHERE clauses are not supported; DELETE always empties the whole table")
	}
	return ast.Statement{Kind: ast.StmtDelete, Delete: &ast.DeleteStmt{Table: table}}, nil
}

func (ps *parseState) parseSelect() (ast.Statement, error) {
	if err := ps.expectKeyword("SELECT"); err != nil {
		return ast.Statement{}, err
	}

	sel := &ast.SelectStmt{}
	if ps.atOp("*") {
		ps.advance()
		sel.Projections = nil
	} else {
		for {
			if ps.atOp("*") {
				ps.advance()
				sel.Projections = append(sel.Projections, &ast.Expr{Kind: ast.ExprStar})
			} else {
				name, err := ps.expectIdent()
				if err != nil {
					return ast.Statement{}, err
				}
				if ps.atPunct(".") {
					sel.HasQualifiedStar = true
					ps.advance()
					ps.advance() // skip whatever follows the qualifier
				}
				sel.Projections = append(sel.Projections, &ast.Expr{Kind: ast.ExprColumnRef, ColumnName: name})
			}
			if ps.atKeyword("AS") {
				sel.HasAliases = true
				ps.advance()
				ps.advance()
			}
			if ps.atPunct(",") {
				ps.advance()
				continue
			}
			break
		}
	}

	if err := ps.expectKeyword("FROM"); err != nil {
		return ast.Statement{}, err
	}
	table, err := ps.parseTableRef()
	if err != nil {
		return ast.Statement{}, err
	}
	sel.Table = table

	if ps.atKeyword("AS") {
		sel.HasAliases = true
		ps.advance()
		ps.advance()
	} else if ps.cur().kind == tokIdent {
		sel.HasAliases = true
		ps.advance()
	}

	for ps.atKeyword("JOIN") {
		sel.HasJoins = true
		for !ps.atKeyword("WHERE") && ps.cur().kind != tokEOF && !ps.atPunct(";") {
			ps.advance()
		}
	}
	if ps.atKeyword("WHERE") {
		return ast.Statement{}, fmt.Errorf("sqltext: WHERE clauses are not supported; SELECT always returns every row")
	}

	return ast.Statement{Kind: ast.StmtSelect, Select: sel}, nil
}

func (ps *parseState) parseSchemaChange() (ast.Statement, error) {
	switch {
	case ps.atKeyword("CREATE"):
		ps.advance()
		switch {
		case ps.atKeyword("SCHEMA"):
			return ps.parseCreateSchema()
		case ps.atKeyword("TABLE"):
			return ps.parseCreateTable()
		case ps.atKeyword("INDEX"):
			return ps.parseCreateIndex()
		default:
			return ast.Statement{}, fmt.Errorf("sqltext: expected SCHEMA, TABLE, or INDEX after CREATE, got %q", ps.cur().text)
		}
	case ps.atKeyword("DROP"):
		ps.advance()
		switch {
		case ps.atKeyword("SCHEMA"):
			return ps.parseDropSchemas()
		case ps.atKeyword("TABLE"):
			return ps.parseDropTables()
		default:
			return ast.Statement{}, fmt.Errorf("sqltext: expected SCHEMA or TABLE after DROP, got %q", ps.cur().text)
		}
	default:
		return ast.Statement{}, fmt.Errorf("sqltext: expected CREATE or DROP")
	}
}

func (ps *parseState) parseIfNotExists() bool {
	if ps.atKeyword("IF") {
		start := ps.pos
		ps.advance()
		if ps.atKeyword("NOT") {
			ps.advance()
			if ps.atKeyword("EXISTS") {
				ps.advance()
				return true
			}
		}
		ps.pos = start
	}
	return false
}

func (ps *parseState) parseIfExists() bool {
	if ps.atKeyword("IF") {
		ps.advance()
		if ps.atKeyword("EXISTS") {
			ps.advance()
			return true
		}
	}
	return false
}

func (ps *parseState) parseNameList() ([]string, error) {
	var names []string
	for {
		n, err := ps.expectIdent()
		if err != nil {
			return nil, err
		}
		names = append(names, n)
		if ps.atPunct(",") {
			ps.advance()
			continue
		}
		break
	}
	return names, nil
}

func (ps *parseState) parseCreateSchema() (ast.Statement, error) {
	ps.advance() // SCHEMA
	ifNotExists := ps.parseIfNotExists()
	names, err := ps.parseNameList()
	if err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{Kind: ast.StmtSchemaChange, Schema: &ast.SchemaChangeStmt{
		Kind: ast.ChangeCreateSchema, SchemaNames: names, IfNotExists: ifNotExists,
	}}, nil
}

func (ps *parseState) parseDropSchemas() (ast.Statement, error) {
	ps.advance() // SCHEMA
	ifExists := ps.parseIfExists()
	names, err := ps.parseNameList()
	if err != nil {
		return ast.Statement{}, err
	}
	cascade := false
	if ps.atKeyword("CASCADE") {
		ps.advance()
		cascade = true
	}
	return ast.Statement{Kind: ast.StmtSchemaChange, Schema: &ast.SchemaChangeStmt{
		Kind: ast.ChangeDropSchemas, SchemaNames: names, IfExists: ifExists, Cascade: cascade,
	}}, nil
}

func (ps *parseState) parseCreateTable() (ast.Statement, error) {
	ps.advance() // TABLE
	ifNotExists := ps.parseIfNotExists()
	table, err := ps.parseTableRef()
	if err != nil {
		return ast.Statement{}, err
	}
	if err := ps.expectPunct("("); err != nil {
		return ast.Statement{}, err
	}
	var cols []ast.ColumnDecl
	for {
		name, err := ps.expectIdent()
		if err != nil {
			return ast.Statement{}, err
		}
		rawType, err := ps.parseRawType()
		if err != nil {
			return ast.Statement{}, err
		}
		cols = append(cols, ast.ColumnDecl{Name: name, RawType: rawType})
		if ps.atPunct(",") {
			ps.advance()
			continue
		}
		break
	}
	if err := ps.expectPunct(")"); err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{Kind: ast.StmtSchemaChange, Schema: &ast.SchemaChangeStmt{
		Kind: ast.ChangeCreateTable, Table: table, Columns: cols, IfNotExists: ifNotExists,
	}}, nil
}

// parseRawType collects the type keyword and an optional (N) length
// argument, e.g. "VARCHAR" or "VARCHAR(255)", and hands the raw spelling to
// internal/sqltype.Parse.
func (ps *parseState) parseRawType() (string, error) {
	t := ps.cur()
	if t.kind != tokIdent && t.kind != tokKeyword {
		return "", fmt.Errorf("sqltext: expected a type name, got %q", t.text)
	}
	raw := t.raw
	if raw == "" {
		raw = t.text
	}
	ps.advance()
	// "double precision" is the one two-word type spelling.
	if next := ps.cur(); next.kind == tokIdent && isDoublePrecisionPair(raw, next.raw) {
		raw += " " + next.raw
		ps.advance()
	}
	if ps.atPunct("(") {
		ps.advance()
		n := ps.cur()
		if n.kind != tokNumber {
			return "", fmt.Errorf("sqltext: expected a numeric type length, got %q", n.text)
		}
		ps.advance()
		raw += "(" + n.text + ")"
		if err := ps.expectPunct(")"); err != nil {
			return "", err
		}
	}
	return raw, nil
}

func isDoublePrecisionPair(first, second string) bool {
	return strings.EqualFold(first, "double") && strings.EqualFold(second, "precision")
}

func (ps *parseState) parseDropTables() (ast.Statement, error) {
	ps.advance() // TABLE
	ifExists := ps.parseIfExists()
	table, err := ps.parseTableRef()
	if err != nil {
		return ast.Statement{}, err
	}
	cascade := false
	if ps.atKeyword("CASCADE") {
		ps.advance()
		cascade = true
	}
	return ast.Statement{Kind: ast.StmtSchemaChange, Schema: &ast.SchemaChangeStmt{
		Kind: ast.ChangeDropTables, Table: table, IfExists: ifExists, Cascade: cascade,
	}}, nil
}

func (ps *parseState) parseCreateIndex() (ast.Statement, error) {
	ps.advance() // INDEX
	indexName, err := ps.expectIdent()
	if err != nil {
		return ast.Statement{}, err
	}
	if err := ps.expectKeyword("ON"); err != nil {
		return ast.Statement{}, err
	}
	table, err := ps.parseTableRef()
	if err != nil {
		return ast.Statement{}, err
	}
	if err := ps.expectPunct("("); err != nil {
		return ast.Statement{}, err
	}
	cols, err := ps.parseNameList()
	if err != nil {
		return ast.Statement{}, err
	}
	if err := ps.expectPunct(")"); err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{Kind: ast.StmtSchemaChange, Schema: &ast.SchemaChangeStmt{
		Kind: ast.ChangeCreateIndex, Table: table, IndexName: indexName, IndexColumn: cols,
	}}, nil
}

func (ps *parseState) expectOp(op string) error {
	if !ps.atOp(op) {
		return fmt.Errorf("sqltext: expected %q, got %q", op, ps.cur().text)
	}
	ps.advance()
	return nil
}
