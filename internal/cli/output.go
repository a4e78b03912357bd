package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// emit writes v as indented JSON in --json mode and calls human otherwise.
func (a *app) emit(v any, human func() error) error {
	if a.flags.jsonMode {
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return errors.Wrap(err, "marshal JSON")
		}
		_, err = fmt.Fprintln(a.stdout(), string(out))
		return err
	}
	return human()
}

// table renders rows under header with pterm.
func (a *app) table(header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(a.stdout(), "(none)")
		return err
	}
	data := append(pterm.TableData{header}, rows...)
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(a.stdout()).Render()
}

// printf writes one human-readable line.
func (a *app) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(a.stdout(), format+"\n", args...)
	return err
}

// parseJSON decodes a command-line JSON argument into v. Malformed input is
// a usage error.
func parseJSON(arg, what string, v any) error {
	if err := json.Unmarshal([]byte(arg), v); err != nil {
		return usageError(errors.Wrapf(err, "parse %s JSON", what))
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// batchErrorRows renders per-entry relation failures.
func batchErrorRows(errs []types.BatchError) [][]string {
	rows := make([][]string, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, []string{itoa(e.Index), e.TargetObjectID, e.Class, e.Message})
	}
	return rows
}
