// Package ranges holds the "range" subcommands: offline validation of range
// files and management of the local range inventory.
package ranges

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/martinsuchenak/geotoolkit/internal/config"
	"github.com/martinsuchenak/geotoolkit/internal/inventory"
	"github.com/martinsuchenak/geotoolkit/internal/iprange"
	"github.com/martinsuchenak/geotoolkit/internal/model"
	"github.com/martinsuchenak/geotoolkit/internal/storage"
	"github.com/paularlott/cli"
)

// ErrCriticalRanges is returned in strict mode when any range is critical
var ErrCriticalRanges = errors.New("one or more ranges have critical issues")

// Commands returns the range subcommands
func Commands() []*cli.Command {
	return []*cli.Command{
		validateCommand(),
		listCommand(),
		addCommand(),
		deleteCommand(),
		auditCommand(),
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:         "format",
		Usage:        "Output format: auto, text or json",
		DefaultValue: formatAuto,
	}
}

func policyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "policy",
		Usage:   "Validation policy file (YAML or JSON)",
		EnvVars: []string{"GEO_POLICY_FILE"},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:        "validate",
		Usage:       "Validate a range file",
		Description: "Classify every range in a JSON range file and print the results with a summary",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Range file, or - for stdin", Required: true},
			formatFlag(),
			policyFlag(),
			&cli.BoolFlag{Name: "strict", Usage: "Fail when any range has a critical issue"},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			validator, err := iprange.NewFromFile(cmd.GetString("policy"))
			if err != nil {
				return err
			}

			in, closeIn, err := openInput(cmd.GetString("file"))
			if err != nil {
				return err
			}
			defer closeIn()

			p := newPrinter(os.Stdout, cmd.GetString("format"))
			return runValidate(p, in, validator, cmd.GetBool("strict"))
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "List known ranges",
		Description: "List the ranges stored in the local inventory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Filter by name (partial match)"},
			&cli.StringFlag{Name: "tags", Usage: "Filter by tags (comma-separated, any match)"},
			formatFlag(),
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			svc, closeStore, err := openService(config.Load(), "")
			if err != nil {
				return err
			}
			defer closeStore()

			ranges, err := svc.List(&model.KnownRangeFilter{
				Name: cmd.GetString("name"),
				Tags: parseList(cmd.GetString("tags")),
			})
			if err != nil {
				return err
			}
			return newPrinter(os.Stdout, cmd.GetString("format")).knownRanges(ranges)
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:        "add",
		Usage:       "Add a known range",
		Description: "Validate a range against the inventory and store it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Range name", Required: true},
			&cli.StringFlag{Name: "start", Usage: "First IPv4 address", Required: true},
			&cli.StringFlag{Name: "end", Usage: "Last IPv4 address", Required: true},
			&cli.StringFlag{Name: "description", Usage: "Range description"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.BoolFlag{Name: "force", Usage: "Store the range even if it has critical issues"},
			policyFlag(),
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			svc, closeStore, err := openService(config.Load(), cmd.GetString("policy"))
			if err != nil {
				return err
			}
			defer closeStore()

			r := &model.KnownRange{
				Name:        cmd.GetString("name"),
				Description: cmd.GetString("description"),
				StartIP:     cmd.GetString("start"),
				EndIP:       cmd.GetString("end"),
				Tags:        parseList(cmd.GetString("tags")),
			}
			return runAdd(newPrinter(os.Stdout, formatText), svc, r, cmd.GetBool("force"))
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:        "delete",
		Usage:       "Delete a known range",
		Description: "Remove a range from the local inventory by ID or name",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id", Required: true},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			svc, closeStore, err := openService(config.Load(), "")
			if err != nil {
				return err
			}
			defer closeStore()

			id := cmd.GetStringArg("id")
			existing, err := svc.Get(id)
			if err != nil {
				return fmt.Errorf("range %q: %w", id, err)
			}
			if err := svc.Delete(existing.ID); err != nil {
				return err
			}
			fmt.Printf("Deleted range %s (%s)\n", existing.Name, existing.ID)
			return nil
		},
	}
}

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:        "audit",
		Usage:       "Validate the local inventory",
		Description: "Validate every stored range as one batch and print the results",
		Flags: []cli.Flag{
			formatFlag(),
			policyFlag(),
			&cli.BoolFlag{Name: "strict", Usage: "Fail when any range has a critical issue"},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			svc, closeStore, err := openService(config.Load(), cmd.GetString("policy"))
			if err != nil {
				return err
			}
			defer closeStore()

			report, err := svc.Audit()
			if err != nil {
				return err
			}

			p := newPrinter(os.Stdout, cmd.GetString("format"))
			if err := p.audit(report); err != nil {
				return err
			}
			if cmd.GetBool("strict") {
				return checkStrict(report.Summary)
			}
			return nil
		},
	}
}

// runValidate decodes a range file, validates it and prints the report
func runValidate(p *printer, in io.Reader, validator *iprange.Validator, strict bool) error {
	ranges, err := iprange.Decode(in)
	if err != nil {
		return err
	}

	results := validator.ValidateAll(ranges)
	report := inventory.Report{Results: results, Summary: iprange.Summarize(results)}
	if err := p.report(report); err != nil {
		return err
	}

	if strict {
		return checkStrict(report.Summary)
	}
	return nil
}

func runAdd(p *printer, svc *inventory.Service, r *model.KnownRange, force bool) error {
	result, err := svc.Create(r, force)
	if err != nil && !errors.Is(err, inventory.ErrRejected) {
		return err
	}

	p.result(r.Name, result)
	if err != nil {
		return fmt.Errorf("%w (use --force to store it anyway)", err)
	}

	fmt.Fprintf(p.w, "Created range %s (%s)\n", r.Name, r.ID)
	return nil
}

func checkStrict(sum iprange.Summary) error {
	if sum.RangesWithErrors > 0 {
		return fmt.Errorf("%w: %d of %d", ErrCriticalRanges, sum.RangesWithErrors, sum.TotalRanges)
	}
	return nil
}

func openService(cfg *config.Config, policyPath string) (*inventory.Service, func(), error) {
	if policyPath == "" {
		policyPath = cfg.PolicyFile
	}
	validator, err := iprange.NewFromFile(policyPath)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewStorage(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening inventory: %w", err)
	}

	return inventory.NewService(store, validator), func() { store.Close() }, nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening range file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
