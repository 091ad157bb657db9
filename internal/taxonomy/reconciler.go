package taxonomy

import (
	"fmt"
	"io"
	"strings"
)

// Reconciler checks a taxonomy report and, when allowed, edits the taxonomy
// file to resolve it. Without fix flags it only reports.
type Reconciler struct {
	out        io.Writer
	fixMissing bool
	prune      bool
}

// NewReconciler creates a Reconciler. fixMissing enables AddMissing and
// prune enables RemoveUnused.
func NewReconciler(out io.Writer, fixMissing, prune bool) *Reconciler {
	return &Reconciler{out: out, fixMissing: fixMissing, prune: prune}
}

// CheckUnused fails when the report lists unused fields. With pruning
// enabled they are removed from the file first; the check still fails for
// this run.
func (r *Reconciler) CheckUnused(path string, report Report) error {
	count := len(report.Unused)
	if count > 0 {
		fmt.Fprintf(r.out, "Unused fields (%d) in %s:\n %s\n", count, path, strings.Join(report.Unused, ", "))
	}

	if r.prune && count > 0 {
		removed, err := RemoveUnused(path, report)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "%d removed from %s\n", removed, path)
		r.lintHint(path)
	} else if count > 0 {
		fmt.Fprintf(r.out, "use --prune-taxonomy to cleanup unused fields\n")
	}

	if count > 0 {
		return fmt.Errorf("%d unused fields in %s", count, path)
	}
	return nil
}

// CheckMissing fails when the report lists missing fields. With fixing
// enabled they are added to the file first; the check still fails for this
// run.
func (r *Reconciler) CheckMissing(path string, report Report) error {
	count := len(report.Missing)
	fmt.Fprintf(r.out, "Missing fields (%d):\n\n", count)
	for _, field := range report.Missing {
		fmt.Fprintln(r.out, field)
	}

	if r.fixMissing && count > 0 {
		added, err := AddMissing(path, report)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "%d updated in %s\n", added, path)
		fmt.Fprintf(r.out, "Please complete the description and adapt the field type\n")
		r.lintHint(path)
	} else if count > 0 {
		fmt.Fprintf(r.out, "use --fix-missing-fields to add missing fields\n")
	}

	if count > 0 {
		return fmt.Errorf("%d missing fields in %s", count, path)
	}
	return nil
}

func (r *Reconciler) lintHint(path string) {
	fmt.Fprintf(r.out, "Please run the following commandline to ensure yaml is properly linted\n")
	fmt.Fprintf(r.out, "npx prettier --write %s\n", path)
}
