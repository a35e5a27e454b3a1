// Command meritctl runs administrative tasks against the merit-score database.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mind-engage/meritscore/internal/academicyear"
	"github.com/mind-engage/meritscore/internal/account"
	"github.com/mind-engage/meritscore/internal/category"
	"github.com/mind-engage/meritscore/internal/config"
	"github.com/mind-engage/meritscore/internal/db"
	"github.com/mind-engage/meritscore/internal/ledger"
	"github.com/mind-engage/meritscore/internal/rbac"
	"github.com/mind-engage/meritscore/internal/scoring"
)

const usage = `usage: meritctl <command> [args]

commands:
  migrate                         create the schema
  import-accounts <file.csv>      bulk upsert accounts
  set-role <user> <role>          change an account's role
  years list|add|current|delete [name]
  standings [-year Y] [-college C] [-grade G] [-class K] [-xlsx out.xlsx]
`

// cliActor runs privileged reads on behalf of the operator.
var cliActor = rbac.Actor{ID: "meritctl", Role: rbac.RoleAdmin}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	drv, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		fail(err)
	}
	dbh, err := db.Open(ctx, drv, cfg.DBDSN)
	if err != nil {
		fail(err)
	}
	defer dbh.Close()

	if err := dispatch(ctx, cfg, dbh, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "meritctl:", err)
	os.Exit(1)
}

var errUsage = errors.New("bad arguments; run meritctl without arguments for usage")

func dispatch(ctx context.Context, cfg config.Config, dbh *sql.DB, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "migrate":
		// db.Open already applied the schema.
		fmt.Fprintln(out, "schema up to date")
		return nil
	case "import-accounts":
		if len(args) != 1 {
			return errUsage
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		rows, err := account.ParseCSV(f)
		if err != nil {
			return err
		}
		ins, upd, err := account.NewStore(dbh).BulkUpsert(ctx, rows)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "inserted %d, updated %d\n", ins, upd)
		return nil
	case "set-role":
		if len(args) != 2 {
			return errUsage
		}
		return account.NewStore(dbh).SetRole(ctx, args[0], args[1])
	case "years":
		return years(ctx, academicyear.NewRegistry(dbh), args, out)
	case "standings":
		return standings(ctx, cfg, dbh, args, out)
	default:
		return errUsage
	}
}

func years(ctx context.Context, reg *academicyear.Registry, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	if args[0] == "list" {
		ys, err := reg.ListYears(ctx)
		if err != nil {
			return err
		}
		for _, y := range ys {
			mark := " "
			if y.IsCurrent {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %s\n", mark, y.Name)
		}
		return nil
	}
	if len(args) != 2 {
		return errUsage
	}
	switch args[0] {
	case "add":
		return reg.AddYear(ctx, args[1])
	case "current":
		return reg.SetCurrent(ctx, args[1])
	case "delete":
		return reg.DeleteYear(ctx, args[1])
	}
	return errUsage
}

func standings(ctx context.Context, cfg config.Config, dbh *sql.DB, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("standings", flag.ContinueOnError)
	var q scoring.StandingsQuery
	fs.StringVar(&q.AcademicYear, "year", "", "academic year (default: current)")
	fs.StringVar(&q.College, "college", "", "college filter")
	fs.StringVar(&q.Grade, "grade", "", "grade filter")
	fs.StringVar(&q.ClassName, "class", "", "class filter")
	xlsx := fs.String("xlsx", "", "write an xlsx workbook instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	catCfg := category.DefaultConfig()
	if cfg.CatalogFile != "" {
		var err error
		if catCfg, err = category.LoadFile(cfg.CatalogFile); err != nil {
			return err
		}
	}
	cat, err := category.New(catCfg)
	if err != nil {
		return err
	}
	svc := scoring.NewService(dbh, scoring.NewEngine(cat), ledger.NewStore(dbh), account.NewStore(dbh), nil)

	if *xlsx != "" {
		f, err := os.Create(*xlsx)
		if err != nil {
			return err
		}
		if err := svc.ExportStandingsXLSX(ctx, cliActor, q, f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	year, list, err := svc.Standings(ctx, cliActor, q)
	if err != nil {
		return err
	}
	if year == "" {
		year = "all years"
	}
	fmt.Fprintf(out, "standings for %s\n", year)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNUMBER\tNAME\tCLASS\tTOTAL\t35-PT\tRECORDS")
	for _, s := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\n", s.Rank, s.StudentNumber, s.Name, s.ClassName, s.Total, s.Scale35, s.Records)
	}
	return tw.Flush()
}
