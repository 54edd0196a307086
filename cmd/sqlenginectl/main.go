// Package main implements the engine's command-line control tool: one
// cobra command per verb.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sqlengine/internal/catalog"
	"sqlengine/internal/config"
	"sqlengine/internal/ir"
	"sqlengine/internal/kvstore"
	"sqlengine/internal/kvstore/durable"
	"sqlengine/internal/planner"
	"sqlengine/internal/session"
	"sqlengine/internal/sqltext"
	"sqlengine/internal/sqltype"
)

type execFlags struct {
	configPath string
	params     []string
}

type serveFlags struct {
	configPath string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "sqlenginectl",
		Short: "SQL engine command-line control tool",
	}

	rootCmd.AddCommand(execCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func execCmd() *cobra.Command {
	flags := &execFlags{}
	cmd := &cobra.Command{
		Use:   "exec <statement>",
		Short: "Analyze and run one SQL statement against the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runExec(args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to a TOML config file (default: in-memory catalog named \"default\")")
	cmd.Flags().StringArrayVarP(&flags.params, "param", "p", nil, "Bind value for $1, $2, ... in positional order")
	return cmd
}

func serveCmd() *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Open and bootstrap a catalog, report that it is ready, and exit",
		Long: `serve opens (and bootstraps, if needed) the configured catalog, logs and
prints that it is ready, then closes it and exits. The wire protocol itself
is out of scope for this engine core; serve does not hold the catalog open
or accept connections.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(flags)
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to a TOML config file")
	return cmd
}

func openCatalog(configPath string, log *zap.Logger) (*catalog.Catalog, error) {
	if configPath == "" {
		return catalog.Open(kvstore.NewInMemory(), "default")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("sqlenginectl: %w", err)
	}
	if cfg.Catalog.Path == "" {
		return catalog.Open(kvstore.NewInMemory(), cfg.Catalog.Name)
	}
	backing, err := durable.Open(cfg.Catalog.Path, log)
	if err != nil {
		return nil, fmt.Errorf("sqlenginectl: open durable catalog: %w", err)
	}
	return catalog.Open(backing, cfg.Catalog.Name)
}

func runExec(stmtText string, flags *execFlags) error {
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cat, err := openCatalog(flags.configPath, log)
	if err != nil {
		return err
	}
	defer cat.Backing().Close()

	stmt, err := sqltext.NewParser().Parse(stmtText)
	if err != nil {
		return fmt.Errorf("sqlenginectl: %w", err)
	}

	sess := session.New(cat, log)

	described, err := sess.Describe(stmt)
	if err != nil {
		return fmt.Errorf("sqlenginectl: describe: %w", err)
	}
	params, err := bindParams(described.ParamFamilies, flags.params)
	if err != nil {
		return err
	}

	event, err := sess.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("sqlenginectl: execute: %w", err)
	}

	printEvent(event)
	return nil
}

func runServe(flags *serveFlags) error {
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cat, err := openCatalog(flags.configPath, log)
	if err != nil {
		return err
	}
	defer cat.Backing().Close()

	log.Info("catalog ready", zap.String("catalog", cat.CatalogName()))
	fmt.Fprintf(os.Stdout, "catalog %q ready; wire protocol front end is out of scope for this build\n", cat.CatalogName())
	return nil
}

// bindParams converts the CLI's raw --param strings into typed values
// against the families internal/analyzer.Describe inferred for each
// placeholder.
func bindParams(families []sqltype.Family, raw []string) ([]ir.TypedValue, error) {
	if len(raw) != len(families) {
		return nil, fmt.Errorf("sqlenginectl: statement has %d parameter(s), got %d --param flag(s)", len(families), len(raw))
	}
	out := make([]ir.TypedValue, len(raw))
	for i, text := range raw {
		v, err := bindOne(families[i], text)
		if err != nil {
			return nil, fmt.Errorf("sqlenginectl: $%d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

func bindOne(family sqltype.Family, text string) (ir.TypedValue, error) {
	if strings.EqualFold(text, "null") {
		return ir.NullValue(family), nil
	}
	switch family {
	case sqltype.FamilyBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return ir.TypedValue{}, fmt.Errorf("not a bool: %q", text)
		}
		return ir.BoolValue(b), nil
	case sqltype.FamilyString:
		return ir.StringValue(text), nil
	default:
		n, err := decimalFromText(text)
		if err != nil {
			return ir.TypedValue{}, err
		}
		return ir.NumValue(family, n), nil
	}
}

func decimalFromText(text string) (decimal.Decimal, error) {
	n, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("not a number: %q", text)
	}
	return n, nil
}

func printEvent(event session.QueryEvent) {
	switch event.Kind {
	case session.EventSchemaCreated:
		fmt.Println("CREATE SCHEMA")
	case session.EventSchemaDropped:
		fmt.Println("DROP SCHEMA")
	case session.EventTableCreated:
		fmt.Println("CREATE TABLE")
	case session.EventTableDropped:
		fmt.Println("DROP TABLE")
	case session.EventIndexCreated:
		fmt.Println("CREATE INDEX")
	case session.EventRecordsInserted:
		fmt.Printf("INSERT %d\n", event.Count)
	case session.EventRecordsUpdated:
		fmt.Printf("UPDATE %d\n", event.Count)
	case session.EventRecordsDeleted:
		fmt.Printf("DELETE %d\n", event.Count)
	case session.EventRecordsSelected:
		printSelect(event.Select)
	case session.EventStatementParameters:
		fmt.Printf("parameters: %v\n", event.ParamFamilies)
	case session.EventStatementDescription:
		for _, c := range event.Description {
			fmt.Printf("%s\t%s\n", c.Name, c.Type)
		}
	}
}

func printSelect(out *planner.SelectOutput) {
	names := make([]string, len(out.Columns))
	for i, c := range out.Columns {
		names[i] = c.Name
	}
	fmt.Println(strings.Join(names, "\t"))
	for _, row := range out.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v.IsNull() {
				cells[i] = "NULL"
			} else {
				cells[i] = v.AsText()
			}
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
	fmt.Printf("(%d rows)\n", len(out.Rows))
}
